// Package sys is the operating system boundary of mmarinus.
//
// Every primitive takes raw addresses and lengths. Callers own the
// consistency of those values; nothing here tracks mappings.
package sys

// Ops is the set of virtual memory primitives the mapping layer relies on.
type Ops interface {
	// Mmap creates a mapping and returns its address.
	Mmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error)
	// Munmap destroys the mapping at [addr, addr+length).
	Munmap(addr, length uintptr) error
	// Mprotect changes the protection of [addr, addr+length).
	Mprotect(addr, length uintptr, prot int) error
	// Mremap resizes a mapping, possibly moving it.
	Mremap(addr, oldLength, newLength uintptr, flags int) (uintptr, error)
	Msync(addr, length uintptr, flags int) error
	Madvise(addr, length uintptr, advice int) error
	Mlock(addr, length uintptr) error
	Munlock(addr, length uintptr) error
	// Pagesize returns the base page size of the running system.
	Pagesize() int
}

// Native issues the real system calls.
type Native struct{}

var _ Ops = Native{}
