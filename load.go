package mmarinus

import (
	"os"

	"github.com/Giulio2002/mmarinus/perms"
)

// Load maps a whole file into memory.
//
// The file is opened read-only and closed before Load returns; the mapping
// stays valid after that. Writable shared permissions therefore fail with
// EACCES. Use the builder with an O_RDWR file for those.
func Load[T perms.Type, K Kind](path string, kind K, perm T) (*Map[T, K], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError("open", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, NewError("stat", err)
	}

	size := fi.Size()
	if size == 0 {
		return nil, NewError("load", ErrEmptyFile)
	}
	if size < 0 || int64(int(size)) != size {
		return nil, NewError("load", ErrInvalidData)
	}

	return With(WithKind(Bytes(int(size)).Anywhere().From(f, 0), kind), perm)
}
