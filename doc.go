// Package mmarinus wraps the mmap family of system calls in a staged builder
// that cannot express an inconsistent request, and in a Map handle whose
// type records what the memory may be used for.
//
// A mapping is requested in four steps: size, placement, source, and finally
// permission. Only the last step calls mmap:
//
//	zero, err := os.Open("/dev/zero")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer zero.Close()
//
//	m, err := mmarinus.With(
//	    mmarinus.Bytes(32).Near(128<<20).From(zero, 0),
//	    perms.Read{},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	data := mmarinus.Slice(m) // 32 zero bytes
//
// Slice is only available for readable permissions and MutSlice only for
// permissions that are both readable and writable; using them on any other
// map is a compile error. Maps whose permission is decided at run time use
// perms.Unknown and the checked View and MutView methods.
//
// Operations that replace a mapping consume the old handle:
//
//	rw, err := mmarinus.Reprotect(m, perms.ReadWrite{})
//	if err != nil {
//	    // m is still valid and is also available as the error's payload.
//	    old, _ := mmarinus.Recover[*mmarinus.Map[perms.Read, mmarinus.Private]](err)
//	    _ = old
//	}
//
// Once an operation succeeds the old handle is inert: it no longer accesses
// or unmaps the region, so each region is unmapped exactly once by whichever
// handle owns it last.
//
// Mapping a whole file is a convenience:
//
//	m, err := mmarinus.Load("/etc/os-release", mmarinus.Private{}, perms.Read{})
//
// Mapping flags are Linux specific. On other unix systems every system call
// reports ENOTSUP.
package mmarinus
