package pagepool

import (
	"os"
	"strconv"
	"sync"

	"github.com/Giulio2002/mmarinus"
	"github.com/Giulio2002/mmarinus/internal/fastmap"
	"github.com/Giulio2002/mmarinus/perms"
)

// DefaultSegmentCap is the default capacity (number of pages) per segment.
const DefaultSegmentCap = 1024

// MaxSegments is the maximum number of segments (limits total capacity).
const MaxSegments = 256

// region is what a segment needs from its mapping, whatever its kind.
type region interface {
	Close() error
	Sync() error
}

// segment is a single mapping of the pool.
type segment struct {
	file   *os.File // nil for anonymous segments
	region region
	data   []byte
	path   string
	used   *bitmap
	cap    uint32
}

// Pool hands out fixed-size slots backed by memory mappings instead of the
// Go heap.
//
// With a path, each segment is a shared mapping of its own file (path,
// path.1, path.2, ...), so slot contents reach the file on Sync. Without a
// path, segments are private anonymous memory.
//
// The pool grows by whole segments, so slices returned by Allocate and Get
// stay valid until the slot is released or the pool is closed.
type Pool struct {
	mu         sync.Mutex
	basePath   string
	pageSize   uint32
	segmentCap uint32
	segments   []*segment
	curSegment int // first segment worth probing
	allocated  uint32
	bound      fastmap.Uint32Map[*Slot]
}

// Slot identifies an allocated page.
type Slot struct {
	Pgno       uint32 // caller page number, set by Bind
	SegmentIdx uint16
	SlotIdx    uint16
	bound      bool
}

// New creates a pool of pageSize-byte slots. An empty path gives an
// anonymous pool. segmentCap is the number of slots per segment; zero
// selects DefaultSegmentCap.
func New(path string, pageSize, segmentCap uint32) (*Pool, error) {
	if pageSize == 0 {
		return nil, errInvalidPageSize
	}
	if segmentCap == 0 {
		segmentCap = DefaultSegmentCap
	}
	if segmentCap > 1<<16 {
		// SlotIdx is 16 bits wide.
		return nil, errInvalidSegmentCap
	}

	p := &Pool{
		basePath:   path,
		pageSize:   pageSize,
		segmentCap: segmentCap,
		segments:   make([]*segment, 0, 4),
	}

	if err := p.addSegment(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) addSegment() error {
	if len(p.segments) >= MaxSegments {
		return ErrPoolFull
	}

	size := int(p.segmentCap) * int(p.pageSize)
	seg := &segment{
		used: newBitmap(p.segmentCap),
		cap:  p.segmentCap,
	}

	if p.basePath == "" {
		m, err := mmarinus.With(mmarinus.Bytes(size).Anywhere().Anonymously(), perms.ReadWrite{})
		if err != nil {
			return err
		}
		seg.region, seg.data = m, mmarinus.MutSlice(m)
		p.segments = append(p.segments, seg)
		return nil
	}

	seg.path = p.basePath
	if idx := len(p.segments); idx > 0 {
		seg.path = p.basePath + "." + strconv.Itoa(idx)
	}

	file, err := os.OpenFile(seg.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		os.Remove(seg.path)
		return err
	}

	src := mmarinus.WithKind(mmarinus.Bytes(size).Anywhere().From(file, 0), mmarinus.Shared{})
	m, err := mmarinus.With(src, perms.ReadWrite{})
	if err != nil {
		file.Close()
		os.Remove(seg.path)
		return err
	}

	seg.file = file
	seg.region, seg.data = m, mmarinus.MutSlice(m)
	p.segments = append(p.segments, seg)
	return nil
}

// Close unmaps every segment. If deleteFiles is true, the segment files
// are removed as well.
func (p *Pool) Close(deleteFiles bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, seg := range p.segments {
		seg.data = nil
		if err := seg.region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if seg.file != nil {
			if err := seg.file.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if deleteFiles && seg.path != "" {
			if err := os.Remove(seg.path); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	p.segments = nil
	p.bound.Clear()
	return firstErr
}

// Allocate reserves a slot and returns its page. New segments are added
// when every existing one is full.
func (p *Pool) Allocate() ([]byte, *Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.segments == nil {
		return nil, nil, ErrClosed
	}

	for p.curSegment < len(p.segments) {
		if data, slot, ok := p.allocateIn(p.curSegment); ok {
			return data, slot, nil
		}
		p.curSegment++
	}

	if err := p.addSegment(); err != nil {
		return nil, nil, err
	}
	data, slot, ok := p.allocateIn(p.curSegment)
	if !ok {
		return nil, nil, ErrPoolFull
	}
	return data, slot, nil
}

func (p *Pool) allocateIn(segIdx int) ([]byte, *Slot, bool) {
	seg := p.segments[segIdx]
	idx, ok := seg.used.allocate()
	if !ok {
		return nil, nil, false
	}
	p.allocated++
	return p.page(seg, idx), &Slot{SegmentIdx: uint16(segIdx), SlotIdx: uint16(idx)}, true
}

func (p *Pool) page(seg *segment, idx uint32) []byte {
	off := int(idx) * int(p.pageSize)
	return seg.data[off : off+int(p.pageSize) : off+int(p.pageSize)]
}

// Get returns the page of an allocated slot, or nil.
func (p *Pool) Get(slot *Slot) []byte {
	if slot == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seg := p.segmentOf(slot)
	if seg == nil {
		return nil
	}
	return p.page(seg, uint32(slot.SlotIdx))
}

func (p *Pool) segmentOf(slot *Slot) *segment {
	if int(slot.SegmentIdx) >= len(p.segments) {
		return nil
	}
	seg := p.segments[slot.SegmentIdx]
	if !seg.used.isAllocated(uint32(slot.SlotIdx)) {
		return nil
	}
	return seg
}

// Bind associates slot with a caller page number so it can be found with
// Lookup. A previous binding of pgno is replaced.
func (p *Pool) Bind(slot *Slot, pgno uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.segmentOf(slot) == nil {
		return
	}
	if slot.bound {
		p.bound.Delete(slot.Pgno)
	}
	if prev, ok := p.bound.Get(pgno); ok {
		prev.bound = false
	}
	slot.Pgno = pgno
	slot.bound = true
	p.bound.Set(pgno, slot)
}

// Lookup returns the slot bound to pgno, or nil.
func (p *Pool) Lookup(pgno uint32) *Slot {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, _ := p.bound.Get(pgno)
	return slot
}

// BoundCount returns the number of slots currently bound to a page number.
func (p *Pool) BoundCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bound.Len()
}

// Release returns a slot to the pool.
func (p *Pool) Release(slot *Slot) {
	if slot == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.release(slot)
}

// ReleaseBulk returns multiple slots to the pool.
func (p *Pool) ReleaseBulk(slots []*Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, slot := range slots {
		if slot != nil {
			p.release(slot)
		}
	}
}

func (p *Pool) release(slot *Slot) {
	if int(slot.SegmentIdx) >= len(p.segments) {
		return
	}
	if !p.segments[slot.SegmentIdx].used.free(uint32(slot.SlotIdx)) {
		return
	}
	p.allocated--
	if slot.bound {
		p.bound.Delete(slot.Pgno)
		slot.bound = false
	}
	// Probe earlier segments first on the next allocation.
	if int(slot.SegmentIdx) < p.curSegment {
		p.curSegment = int(slot.SegmentIdx)
	}
}

// Clear releases all slots without unmapping anything.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range p.segments {
		seg.used.clear()
	}
	p.bound.ForEach(func(_ uint32, s *Slot) { s.bound = false })
	p.bound.Clear()
	p.curSegment = 0
	p.allocated = 0
}

// Sync flushes file-backed segments to disk. It is a no-op for anonymous
// pools.
func (p *Pool) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, seg := range p.segments {
		if seg.file == nil {
			continue
		}
		if err := seg.region.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Capacity returns the total capacity in number of pages.
func (p *Pool) Capacity() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint32(len(p.segments)) * p.segmentCap
}

// AllocatedCount returns the number of allocated slots.
func (p *Pool) AllocatedCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// PageSize returns the slot size of this pool.
func (p *Pool) PageSize() uint32 {
	return p.pageSize
}

// Error types
var (
	ErrPoolFull = &poolError{"pool full (max segments reached)"}
	ErrClosed   = &poolError{"pool closed"}

	errInvalidPageSize   = &poolError{"page size must be positive"}
	errInvalidSegmentCap = &poolError{"segment capacity exceeds 65536 slots"}
)

type poolError struct {
	msg string
}

func (e *poolError) Error() string {
	return "pagepool: " + e.msg
}
