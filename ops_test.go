//go:build linux

package mmarinus

import (
	"testing"

	"github.com/Giulio2002/mmarinus/internal/sys"
)

// countingOps forwards to the real system calls and records what it saw.
type countingOps struct {
	sys.Ops
	pagesize  int
	mmaps     int
	munmaps   int
	mprotects int
	lastFlags int
	lastAddr  uintptr
	mmapErr   error
	munmapErr error
}

func (c *countingOps) Mmap(addr, length uintptr, prot, flags, fd int, offset int64) (uintptr, error) {
	c.mmaps++
	c.lastFlags = flags
	c.lastAddr = addr
	if c.mmapErr != nil {
		return 0, c.mmapErr
	}
	return c.Ops.Mmap(addr, length, prot, flags, fd, offset)
}

func (c *countingOps) Munmap(addr, length uintptr) error {
	c.munmaps++
	if c.munmapErr != nil {
		return c.munmapErr
	}
	return c.Ops.Munmap(addr, length)
}

func (c *countingOps) Mprotect(addr, length uintptr, prot int) error {
	c.mprotects++
	return c.Ops.Mprotect(addr, length, prot)
}

func (c *countingOps) Pagesize() int {
	if c.pagesize != 0 {
		return c.pagesize
	}
	return c.Ops.Pagesize()
}

func useCountingOps(t *testing.T) *countingOps {
	t.Helper()
	c := &countingOps{Ops: sys.Native{}}
	prev := ops
	ops = c
	t.Cleanup(func() { ops = prev })
	return c
}
