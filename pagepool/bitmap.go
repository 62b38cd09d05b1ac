// Package pagepool hands out page-sized slots carved from memory mappings.
package pagepool

import "math/bits"

// bitmap tracks which slots of a segment are in use, 64 slots per word.
type bitmap struct {
	words []uint64
	slots uint32
	hint  uint32 // first slot worth probing
}

func newBitmap(slots uint32) *bitmap {
	return &bitmap{
		words: make([]uint64, (slots+63)/64),
		slots: slots,
	}
}

// allocate marks the first free slot at or after the hint, wrapping around.
func (b *bitmap) allocate() (uint32, bool) {
	n := uint32(len(b.words))
	start := b.hint / 64
	for i := uint32(0); i < n; i++ {
		w := (start + i) % n
		free := ^b.words[w]
		if free == 0 {
			continue
		}
		bit := uint32(bits.TrailingZeros64(free))
		slot := w*64 + bit
		if slot >= b.slots {
			// Only the tail bits of the last word are left.
			continue
		}
		b.words[w] |= 1 << bit
		b.hint = slot + 1
		return slot, true
	}
	return 0, false
}

// free releases slot and reports whether it was allocated.
func (b *bitmap) free(slot uint32) bool {
	if !b.isAllocated(slot) {
		return false
	}
	b.words[slot/64] &^= 1 << (slot % 64)
	if slot < b.hint {
		b.hint = slot
	}
	return true
}

func (b *bitmap) isAllocated(slot uint32) bool {
	if slot >= b.slots {
		return false
	}
	return b.words[slot/64]&(1<<(slot%64)) != 0
}

func (b *bitmap) clear() {
	clear(b.words)
	b.hint = 0
}

func (b *bitmap) count() uint32 {
	var n uint32
	for _, w := range b.words {
		n += uint32(bits.OnesCount64(w))
	}
	return n
}
