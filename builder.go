package mmarinus

import (
	"golang.org/x/sys/unix"

	"github.com/Giulio2002/mmarinus/perms"
)

// placement is where a new mapping may land.
type placement uint8

const (
	placeAnywhere placement = iota
	placeAt                 // MAP_FIXED_NOREPLACE
	placeNear               // hint only
	placeOnto               // MAP_FIXED
)

type address struct {
	how  placement
	addr uintptr
}

// translate returns the mmap address argument and the fixed flag.
// Address zero means "no constraint" to the kernel, so it is only legal with
// placeAnywhere.
func (a address) translate() (uintptr, int, error) {
	if a.how == placeAnywhere {
		return 0, 0, nil
	}
	if a.addr == 0 {
		return 0, 0, ErrInvalidArgument
	}
	switch a.how {
	case placeAt:
		return a.addr, mapFixedNoReplace, nil
	case placeNear:
		return a.addr, 0, nil
	case placeOnto:
		return a.addr, unix.MAP_FIXED, nil
	}
	return 0, 0, ErrInvalidArgument
}

// Size is the first builder stage. It holds the length of the mapping and
// the payload M handed back on failure.
type Size[M any] struct {
	prev M
	size int
}

// Bytes begins a new mapping of size bytes.
func Bytes(size int) Size[Unit] {
	return Size[Unit]{size: size}
}

// Anywhere lets the kernel pick the address. This is equivalent to passing
// NULL to mmap.
func (s Size[M]) Anywhere() Destination[M] {
	return Destination[M]{prev: s, addr: address{how: placeAnywhere}}
}

// At places the mapping exactly at addr and fails if anything is already
// mapped there (MAP_FIXED_NOREPLACE).
func (s Size[M]) At(addr uintptr) Destination[M] {
	return Destination[M]{prev: s, addr: address{how: placeAt, addr: addr}}
}

// Near asks for the mapping to be placed near addr. The kernel may place it
// elsewhere.
func (s Size[M]) Near(addr uintptr) Destination[M] {
	return Destination[M]{prev: s, addr: address{how: placeNear, addr: addr}}
}

// UnsafeOnto places the mapping exactly at addr with MAP_FIXED.
//
// Anything already mapped in the range is silently replaced, including
// memory owned by an unrelated Map elsewhere in the process. Accessing that
// Map afterwards reads or writes the new mapping, and closing it unmaps the
// new mapping.
func (s Size[M]) UnsafeOnto(addr uintptr) Destination[M] {
	return Destination[M]{prev: s, addr: address{how: placeOnto, addr: addr}}
}

// Destination is the second builder stage.
type Destination[M any] struct {
	prev Size[M]
	addr address
}

// Fd is an open handle that exposes its raw descriptor, such as *os.File.
type Fd interface {
	Fd() uintptr
}

// Anonymously backs the mapping with zero-filled memory. This is
// equivalent to passing -1 as the descriptor, 0 as the offset and
// MAP_ANONYMOUS in the flags.
func (d Destination[M]) Anonymously() Source[M, Private] {
	return Source[M, Private]{prev: d, fd: -1}
}

// From backs the mapping with the contents of f starting at offset.
//
// Only the raw descriptor is read. The builder neither retains nor closes f,
// but f must stay open until With returns.
func (d Destination[M]) From(f Fd, offset int64) Source[M, Private] {
	return Source[M, Private]{prev: d, fd: int(f.Fd()), offset: offset}
}

// Source is the last builder stage before the mapping is created.
type Source[M any, K Kind] struct {
	prev    Destination[M]
	fd      int
	offset  int64
	huge    int
	hasHuge bool
	kind    K
}

// WithHugePages backs the mapping with huge pages.
//
// With pow 0 the kernel picks the huge page size. Otherwise pow is the log2
// of the wanted page size, e.g. 21 for 2 MiB pages.
func (s Source[M, K]) WithHugePages(pow uint8) Source[M, K] {
	s.huge = int(pow)
	s.hasHuge = true
	return s
}

// WithKind switches the kind of the mapping. Sources start out Private.
func WithKind[X Kind, M any, K Kind](s Source[M, K], kind X) Source[M, X] {
	return Source[M, X]{
		prev:    s.prev,
		fd:      s.fd,
		offset:  s.offset,
		huge:    s.huge,
		hasHuge: s.hasHuge,
		kind:    kind,
	}
}

// With creates the mapping with the given permission.
//
// Known permissions should be preferred over perms.Unknown: only they unlock
// Slice and MutSlice.
//
// On failure the error is an *Error[M] carrying the payload of the builder,
// untouched. When the builder came from Map.Remap, that payload is the
// original Map and it remains valid. On success the payload is consumed
// without being released.
func With[T perms.Type, M any, K Kind](s Source[M, K], perm T) (*Map[T, K], error) {
	prev := s.prev.prev.prev
	size := s.prev.prev.size
	op := "mmap"
	if _, ok := any(prev).(owner); ok {
		op = "remap"
	}
	fail := func(err error) (*Map[T, K], error) {
		return nil, &Error[M]{Op: op, Map: prev, Err: err}
	}

	if size < 0 {
		return fail(ErrInvalidArgument)
	}
	if isConsumed(prev) {
		return fail(ErrConsumed)
	}

	huge := 0
	if s.hasHuge {
		if s.huge&^mapHugeMask != 0 {
			return fail(ErrInvalidArgument)
		}
		huge = s.huge<<mapHugeShift | mapHugeTLB
	}

	addr, fixed, err := s.prev.addr.translate()
	if err != nil {
		return fail(err)
	}

	anon := 0
	if s.fd == -1 {
		anon = unix.MAP_ANON
	}

	prot := perm.Prot()
	flags := s.kind.Flags() | fixed | anon | huge

	ret, err := ops.Mmap(addr, uintptr(size), prot, flags, s.fd, s.offset)
	if err != nil {
		return fail(err)
	}

	retire(prev)
	return &Map[T, K]{addr: ret, size: size, prot: prot}, nil
}

// owner is implemented by payloads that hold a live mapping.
type owner interface {
	consumed() bool
	retire()
}

func isConsumed(v any) bool {
	o, ok := v.(owner)
	return ok && o.consumed()
}

func retire(v any) {
	if o, ok := v.(owner); ok {
		o.retire()
	}
}
