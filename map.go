package mmarinus

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Giulio2002/mmarinus/internal/sys"
	"github.com/Giulio2002/mmarinus/perms"
)

// ops is the OS boundary. Tests swap it to observe system calls.
var ops sys.Ops = sys.Native{}

// Map owns a mapped region of memory.
//
// T is the permission of the region and K its kind. Close unmaps the region.
// Operations that replace the region (Remap, Reprotect, Split, Resize, Erase)
// consume the receiver on success: the old handle becomes inert, never
// touches the memory again and Close on it is a no-op. On failure the
// receiver is handed back inside the error and stays live.
//
// A Map is not safe for concurrent use.
type Map[T perms.Type, K Kind] struct {
	addr  uintptr
	size  int
	prot  int
	spent bool
}

// Addr returns the address of the mapping.
func (m *Map[T, K]) Addr() uintptr {
	return m.addr
}

// Size returns the length of the mapping in bytes.
func (m *Map[T, K]) Size() int {
	return m.size
}

// Prot returns the protection bits the mapping was created or last
// reprotected with.
func (m *Map[T, K]) Prot() int {
	return m.prot
}

// Consumed reports whether ownership of the region has left this handle.
func (m *Map[T, K]) Consumed() bool {
	return m.spent
}

func (m *Map[T, K]) consumed() bool { return m.spent }

// retire marks the handle inert without unmapping.
func (m *Map[T, K]) retire() { m.spent = true }

// Close unmaps the region. Zero-length regions and inert handles never
// reach munmap. Close is idempotent once it has succeeded; after a failed
// munmap the handle stays live and Close may be retried.
func (m *Map[T, K]) Close() error {
	if m == nil || m.spent {
		return nil
	}
	if m.size > 0 {
		if err := ops.Munmap(m.addr, uintptr(m.size)); err != nil {
			return NewError("munmap", err)
		}
	}
	m.spent = true
	return nil
}

func (m *Map[T, K]) bytes() []byte {
	if m.spent || m.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(m.addr)), m.size)
}

// Slice returns the region as a read-only byte slice. The slice must not be
// written and must not be used after the Map is closed or consumed.
func Slice[T perms.Readable, K Safe](m *Map[T, K]) []byte {
	return m.bytes()
}

// MutSlice returns the region as a writable byte slice. The slice must not
// be used after the Map is closed or consumed.
func MutSlice[T perms.ReadWritable, K Safe](m *Map[T, K]) []byte {
	return m.bytes()
}

// View is the run-time checked counterpart of Slice, for maps whose
// permission is only known at run time.
func (m *Map[T, K]) View() ([]byte, error) {
	if err := m.check(unix.PROT_READ); err != nil {
		return nil, NewError("view", err)
	}
	return m.bytes(), nil
}

// MutView is the run-time checked counterpart of MutSlice.
func (m *Map[T, K]) MutView() ([]byte, error) {
	if err := m.check(unix.PROT_READ | unix.PROT_WRITE); err != nil {
		return nil, NewError("view", err)
	}
	return m.bytes(), nil
}

func (m *Map[T, K]) check(want int) error {
	switch {
	case m.spent:
		return ErrConsumed
	case !isSafe[K]():
		return ErrUnsafeKind
	case !perms.Has(m.prot, unix.PROT_READ):
		return ErrNotReadable
	case !perms.Has(m.prot, want):
		return ErrNotWritable
	}
	return nil
}

// Erase converts m into a map whose permission is only known at run time.
// m is consumed.
func Erase[T perms.Known, K Kind](m *Map[T, K]) (*Map[perms.Unknown, K], error) {
	if m.spent {
		return nil, &Error[*Map[T, K]]{Op: "erase", Map: m, Err: ErrConsumed}
	}
	out := &Map[perms.Unknown, K]{addr: m.addr, size: m.size, prot: m.prot}
	m.retire()
	return out, nil
}

// Remap re-enters the builder to change the backing of the mapping while
// keeping its address and size. The new mapping is placed with MAP_FIXED
// over the old one; on success the new Map owns the region and m is
// consumed, on failure m is returned inside the error.
func (m *Map[T, K]) Remap() Destination[*Map[T, K]] {
	return Destination[*Map[T, K]]{
		prev: Size[*Map[T, K]]{prev: m, size: m.size},
		addr: address{how: placeOnto, addr: m.addr},
	}
}

// Reprotect changes the permission of the mapping. Address and length are
// preserved. On success m is consumed.
func Reprotect[U perms.Type, T perms.Type, K Kind](m *Map[T, K], perm U) (*Map[U, K], error) {
	if m.spent {
		return nil, &Error[*Map[T, K]]{Op: "mprotect", Map: m, Err: ErrConsumed}
	}
	prot := perm.Prot()
	if m.size > 0 {
		if err := ops.Mprotect(m.addr, uintptr(m.size), prot); err != nil {
			return nil, &Error[*Map[T, K]]{Op: "mprotect", Map: m, Err: err}
		}
	}
	out := &Map[U, K]{addr: m.addr, size: m.size, prot: prot}
	m.retire()
	return out, nil
}

// Split cuts the mapping at offset into two independently owned maps
// covering [Addr, Addr+offset) and [Addr+offset, Addr+Size).
//
// offset must not exceed the size and Addr+offset must be page-aligned.
// Splitting at 0 or at the full size is legal and yields a zero-length side.
// On success m is consumed.
func (m *Map[T, K]) Split(offset int) (*Map[T, K], *Map[T, K], error) {
	if m.spent {
		return nil, nil, &Error[*Map[T, K]]{Op: "split", Map: m, Err: ErrConsumed}
	}

	ps := ops.Pagesize()
	if ps <= 0 || offset < 0 || offset > m.size {
		return nil, nil, &Error[*Map[T, K]]{Op: "split", Map: m, Err: ErrInvalidArgument}
	}
	at := m.addr + uintptr(offset)
	if at%uintptr(ps) != 0 {
		return nil, nil, &Error[*Map[T, K]]{Op: "split", Map: m, Err: ErrInvalidArgument}
	}

	l := &Map[T, K]{addr: m.addr, size: offset, prot: m.prot}
	r := &Map[T, K]{addr: at, size: m.size - offset, prot: m.prot}
	m.retire()
	return l, r, nil
}

// SplitAt is Split at an address. An address below the start of the
// mapping splits at the full size, leaving the right side empty.
func (m *Map[T, K]) SplitAt(addr uintptr) (*Map[T, K], *Map[T, K], error) {
	offset := m.size
	if addr >= m.addr {
		offset = int(addr - m.addr)
	}
	return m.Split(offset)
}

// Resize grows or shrinks the mapping with mremap, allowing the kernel to
// move it. Contents up to the smaller of both sizes are preserved. On
// success m is consumed, even when the size is unchanged and no system call
// is made.
func (m *Map[T, K]) Resize(newSize int) (*Map[T, K], error) {
	if m.spent {
		return nil, &Error[*Map[T, K]]{Op: "mremap", Map: m, Err: ErrConsumed}
	}
	if newSize <= 0 || m.size == 0 {
		return nil, &Error[*Map[T, K]]{Op: "mremap", Map: m, Err: ErrInvalidArgument}
	}

	addr := m.addr
	if newSize != m.size {
		var err error
		addr, err = ops.Mremap(m.addr, uintptr(m.size), uintptr(newSize), sys.MremapMayMove)
		if err != nil {
			return nil, &Error[*Map[T, K]]{Op: "mremap", Map: m, Err: err}
		}
	}

	out := &Map[T, K]{addr: addr, size: newSize, prot: m.prot}
	m.retire()
	return out, nil
}

// Sync flushes changes to the backing file synchronously.
func (m *Map[T, K]) Sync() error {
	return m.msync(unix.MS_SYNC)
}

// SyncAsync schedules changes to be flushed to the backing file.
func (m *Map[T, K]) SyncAsync() error {
	return m.msync(unix.MS_ASYNC)
}

func (m *Map[T, K]) msync(flags int) error {
	if m.spent {
		return NewError("msync", ErrConsumed)
	}
	if m.size == 0 {
		return nil
	}
	if err := ops.Msync(m.addr, uintptr(m.size), flags); err != nil {
		return NewError("msync", err)
	}
	return nil
}

// Advise provides hints to the kernel about memory usage patterns.
func (m *Map[T, K]) Advise(advice int) error {
	if m.spent {
		return NewError("madvise", ErrConsumed)
	}
	if m.size == 0 {
		return nil
	}
	if err := ops.Madvise(m.addr, uintptr(m.size), advice); err != nil {
		return NewError("madvise", err)
	}
	return nil
}

// Lock locks the mapped pages in memory (prevents swapping).
func (m *Map[T, K]) Lock() error {
	if m.spent {
		return NewError("mlock", ErrConsumed)
	}
	if m.size == 0 {
		return nil
	}
	if err := ops.Mlock(m.addr, uintptr(m.size)); err != nil {
		return NewError("mlock", err)
	}
	return nil
}

// Unlock unlocks the mapped pages.
func (m *Map[T, K]) Unlock() error {
	if m.spent {
		return NewError("munlock", ErrConsumed)
	}
	if m.size == 0 {
		return nil
	}
	if err := ops.Munlock(m.addr, uintptr(m.size)); err != nil {
		return NewError("munlock", err)
	}
	return nil
}
