//go:build linux

package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// MremapMayMove lets mremap relocate the mapping.
// https://man7.org/linux/man-pages/man2/mremap.2.html
const MremapMayMove = 1

func (Native) Mmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	p, err := unix.MmapPtr(fd, offset, unsafe.Pointer(addr), length, prot, flags)
	if err != nil {
		return 0, err
	}
	return uintptr(p), nil
}

func (Native) Munmap(addr, length uintptr) error {
	return unix.MunmapPtr(unsafe.Pointer(addr), length)
}

func (Native) Mprotect(addr, length uintptr, prot int) error {
	_, _, errno := unix.Syscall(unix.SYS_MPROTECT, addr, length, uintptr(prot))
	if errno != 0 {
		return errno
	}
	return nil
}

func (Native) Mremap(addr, oldLength, newLength uintptr, flags int) (uintptr, error) {
	newAddr, _, errno := unix.Syscall6(
		unix.SYS_MREMAP,
		addr,
		oldLength,
		newLength,
		uintptr(flags),
		0, 0)
	if errno != 0 {
		return 0, errno
	}
	return newAddr, nil
}

func (Native) Msync(addr, length uintptr, flags int) error {
	_, _, errno := unix.Syscall(unix.SYS_MSYNC, addr, length, uintptr(flags))
	if errno != 0 {
		return errno
	}
	return nil
}

func (Native) Madvise(addr, length uintptr, advice int) error {
	_, _, errno := unix.Syscall(unix.SYS_MADVISE, addr, length, uintptr(advice))
	if errno != 0 {
		return errno
	}
	return nil
}

func (Native) Mlock(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MLOCK, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (Native) Munlock(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNLOCK, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (Native) Pagesize() int {
	return unix.Getpagesize()
}
