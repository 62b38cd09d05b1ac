//go:build unix && !linux

package sys

import "golang.org/x/sys/unix"

// The mapping flags used by mmarinus are Linux specific.

const MremapMayMove = 1

func (Native) Mmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	return 0, unix.ENOTSUP
}

func (Native) Munmap(addr, length uintptr) error { return unix.ENOTSUP }

func (Native) Mprotect(addr, length uintptr, prot int) error { return unix.ENOTSUP }

func (Native) Mremap(addr, oldLength, newLength uintptr, flags int) (uintptr, error) {
	return 0, unix.ENOTSUP
}

func (Native) Msync(addr, length uintptr, flags int) error { return unix.ENOTSUP }

func (Native) Madvise(addr, length uintptr, advice int) error { return unix.ENOTSUP }

func (Native) Mlock(addr, length uintptr) error { return unix.ENOTSUP }

func (Native) Munlock(addr, length uintptr) error { return unix.ENOTSUP }

func (Native) Pagesize() int {
	return unix.Getpagesize()
}
