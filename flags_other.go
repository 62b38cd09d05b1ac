//go:build unix && !linux

package mmarinus

// Huge pages and MAP_FIXED_NOREPLACE are Linux only. The values keep the
// builder compiling; the system calls themselves report ENOTSUP.
const (
	mapHugeShift      = 26
	mapHugeMask       = 0x3f
	mapHugeTLB        = 0
	mapFixedNoReplace = 0
)
