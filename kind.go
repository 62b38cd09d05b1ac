package mmarinus

import "golang.org/x/sys/unix"

// Kind selects whether a mapping is private or shared.
type Kind interface {
	Flags() int
}

// Safe is implemented by kinds whose memory may be handed out as a byte
// slice. Both kinds shipped here are safe; concurrent writers of a shared
// mapping are the caller's responsibility.
type Safe interface {
	Kind
	safe()
}

// Private is a copy-on-write mapping visible only to this process.
type Private struct{}

// Flags returns MAP_PRIVATE.
func (Private) Flags() int { return unix.MAP_PRIVATE }

func (Private) safe() {}

// Shared is a mapping visible to every other mapper of the same object.
type Shared struct{}

// Flags returns MAP_SHARED.
func (Shared) Flags() int { return unix.MAP_SHARED }

func (Shared) safe() {}

func isSafe[K Kind]() bool {
	var k K
	_, ok := any(k).(Safe)
	return ok
}
