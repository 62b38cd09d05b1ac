//go:build linux

package mmarinus

import "golang.org/x/sys/unix"

const (
	// https://man7.org/linux/man-pages/man2/mmap.2.html
	mapHugeShift = 26
	mapHugeMask  = 0x3f

	mapHugeTLB        = unix.MAP_HUGETLB
	mapFixedNoReplace = unix.MAP_FIXED_NOREPLACE
)
