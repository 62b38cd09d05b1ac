//go:build linux

package mmarinus

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Giulio2002/mmarinus/perms"
)

func openZero(t *testing.T) *os.File {
	t.Helper()
	zero, err := os.Open("/dev/zero")
	require.NoError(t, err)
	t.Cleanup(func() { zero.Close() })
	return zero
}

// freeAddress returns a page-aligned address that was mapped and released.
func freeAddress(t *testing.T, size int) uintptr {
	t.Helper()
	m, err := With(Bytes(size).Anywhere().Anonymously(), perms.None{})
	require.NoError(t, err)
	addr := m.Addr()
	require.NoError(t, m.Close())
	return addr
}

func TestAnonymous(t *testing.T) {
	m, err := With(Bytes(32).Anywhere().Anonymously(), perms.Read{})
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, 32, m.Size())
	require.Zero(t, m.Addr()%uintptr(os.Getpagesize()))
	require.Equal(t, unix.PROT_READ, m.Prot())
	require.Equal(t, make([]byte, 32), Slice(m))
}

func TestNearFromZero(t *testing.T) {
	zero := openZero(t)

	m, err := With(Bytes(32).Near(128<<20).From(zero, 0), perms.Read{})
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, make([]byte, 32), Slice(m))
}

func TestAt(t *testing.T) {
	ps := os.Getpagesize()
	addr := freeAddress(t, 4*ps)

	m, err := With(Bytes(4*ps).At(addr).Anonymously(), perms.ReadWrite{})
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, addr, m.Addr())
	MutSlice(m)[0] = 1
}

func TestAtOccupied(t *testing.T) {
	ps := os.Getpagesize()
	busy, err := With(Bytes(ps).Anywhere().Anonymously(), perms.Read{})
	require.NoError(t, err)
	defer busy.Close()

	_, err = With(Bytes(ps).At(busy.Addr()).Anonymously(), perms.Read{})
	require.ErrorIs(t, err, unix.EEXIST)

	_, ok := Recover[Unit](err)
	require.True(t, ok)
}

func TestUnsafeOnto(t *testing.T) {
	ps := os.Getpagesize()
	m, err := With(Bytes(ps).Anywhere().Anonymously(), perms.ReadWrite{})
	require.NoError(t, err)
	MutSlice(m)[0] = 9

	// The replacement takes over the region, so the first handle must not
	// unmap it as well.
	onto, err := With(Bytes(ps).UnsafeOnto(m.Addr()).Anonymously(), perms.Read{})
	require.NoError(t, err)
	defer onto.Close()
	m.retire()

	require.Equal(t, m.Addr(), onto.Addr())
	require.Equal(t, byte(0), Slice(onto)[0])
}

func TestZeroAddressRejected(t *testing.T) {
	tests := []struct {
		name string
		dst  Destination[Unit]
	}{
		{"at", Bytes(4096).At(0)},
		{"near", Bytes(4096).Near(0)},
		{"onto", Bytes(4096).UnsafeOnto(0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := useCountingOps(t)

			_, err := With(tc.dst.Anonymously(), perms.Read{})
			require.True(t, IsInvalidArgument(err))
			require.Zero(t, c.mmaps)

			_, ok := Recover[Unit](err)
			require.True(t, ok)
		})
	}
}

func TestHugePagesOutOfRange(t *testing.T) {
	c := useCountingOps(t)

	_, err := With(Bytes(4096).Anywhere().Anonymously().WithHugePages(64), perms.Read{})
	require.True(t, IsInvalidArgument(err))
	require.Zero(t, c.mmaps)
}

func TestNegativeSize(t *testing.T) {
	c := useCountingOps(t)

	_, err := With(Bytes(-1).Anywhere().Anonymously(), perms.Read{})
	require.True(t, IsInvalidArgument(err))
	require.Zero(t, c.mmaps)
}

func TestFlags(t *testing.T) {
	zero := openZero(t)

	tests := []struct {
		name      string
		src       func() (*Map[perms.Read, Private], error)
		wantFlags int
		wantAddr  uintptr
	}{
		{
			name: "anonymous anywhere",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).Anywhere().Anonymously(), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_ANON,
		},
		{
			name: "file at",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).At(1<<30).From(zero, 0), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_FIXED_NOREPLACE,
			wantAddr:  1 << 30,
		},
		{
			name: "near",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).Near(1<<30).Anonymously(), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_ANON,
			wantAddr:  1 << 30,
		},
		{
			name: "onto",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).UnsafeOnto(1<<30).Anonymously(), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_FIXED | unix.MAP_ANON,
			wantAddr:  1 << 30,
		},
		{
			name: "kernel huge page size",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).Anywhere().Anonymously().WithHugePages(0), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_HUGETLB,
		},
		{
			name: "2MiB huge pages",
			src: func() (*Map[perms.Read, Private], error) {
				return With(Bytes(4096).Anywhere().Anonymously().WithHugePages(21), perms.Read{})
			},
			wantFlags: unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_HUGETLB | 21<<mapHugeShift,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := useCountingOps(t)
			c.mmapErr = unix.ENOMEM

			_, err := tc.src()
			require.ErrorIs(t, err, unix.ENOMEM)
			require.Equal(t, 1, c.mmaps)
			require.Equal(t, tc.wantFlags, c.lastFlags)
			require.Equal(t, tc.wantAddr, c.lastAddr)
		})
	}
}

func TestSharedFlags(t *testing.T) {
	c := useCountingOps(t)
	c.mmapErr = unix.ENOMEM

	_, err := With(WithKind(Bytes(4096).Anywhere().Anonymously(), Shared{}), perms.Read{})
	require.Error(t, err)
	require.Equal(t, unix.MAP_SHARED|unix.MAP_ANON, c.lastFlags)
}

func createFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dat")
	require.NoError(t, os.WriteFile(path, data, 0644))
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSharedVisible(t *testing.T) {
	ps := os.Getpagesize()
	f := createFile(t, make([]byte, ps))

	a, err := With(WithKind(Bytes(ps).Anywhere().From(f, 0), Shared{}), perms.ReadWrite{})
	require.NoError(t, err)
	defer a.Close()

	b, err := With(WithKind(Bytes(ps).Anywhere().From(f, 0), Shared{}), perms.Read{})
	require.NoError(t, err)
	defer b.Close()

	copy(MutSlice(a), "shared")
	require.True(t, bytes.HasPrefix(Slice(b), []byte("shared")))
}

func TestPrivateIsolated(t *testing.T) {
	ps := os.Getpagesize()
	f := createFile(t, make([]byte, ps))

	a, err := With(Bytes(ps).Anywhere().From(f, 0), perms.ReadWrite{})
	require.NoError(t, err)
	defer a.Close()

	b, err := With(Bytes(ps).Anywhere().From(f, 0), perms.Read{})
	require.NoError(t, err)
	defer b.Close()

	copy(MutSlice(a), "private")
	require.Equal(t, make([]byte, ps), Slice(b))
}

func TestFileOffset(t *testing.T) {
	ps := os.Getpagesize()
	data := make([]byte, 2*ps)
	copy(data[ps:], "second page")
	f := createFile(t, data)

	m, err := With(Bytes(ps).Anywhere().From(f, int64(ps)), perms.Read{})
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, data[ps:], Slice(m))
}

func TestUnalignedOffsetReportsOSError(t *testing.T) {
	f := createFile(t, make([]byte, 2*os.Getpagesize()))

	_, err := With(Bytes(16).Anywhere().From(f, 1), perms.Read{})
	require.ErrorIs(t, err, unix.EINVAL)
}

func TestZeroSizeReportsOSError(t *testing.T) {
	c := useCountingOps(t)

	_, err := With(Bytes(0).Anywhere().Anonymously(), perms.Read{})
	require.ErrorIs(t, err, unix.EINVAL)
	require.Equal(t, 1, c.mmaps)
}

func TestUnknownPermission(t *testing.T) {
	m, err := With(Bytes(64).Anywhere().Anonymously(), perms.Unknown{Value: unix.PROT_READ | unix.PROT_WRITE})
	require.NoError(t, err)
	defer m.Close()

	b, err := m.MutView()
	require.NoError(t, err)
	b[0] = 1
	require.Equal(t, byte(1), b[0])
}
