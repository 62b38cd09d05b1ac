// Package perms defines the access permissions of a mapping.
//
// The known permissions are zero-sized markers. Each one states, through the
// Readable, Writable and Executable interfaces, which accesses it grants, so
// functions that hand out byte slices can demand those accesses in their type
// parameters. Unknown carries a permission decided at run time and grants
// nothing at compile time.
package perms

import "golang.org/x/sys/unix"

// Type is any permission that can be passed to mmap or mprotect.
type Type interface {
	Prot() int
}

// Known is a permission whose value is fixed at compile time.
type Known interface {
	Type
	known()
}

// Readable is implemented by known permissions that include PROT_READ.
type Readable interface {
	Known
	readable()
}

// Writable is implemented by known permissions that include PROT_WRITE.
type Writable interface {
	Known
	writable()
}

// Executable is implemented by known permissions that include PROT_EXEC.
type Executable interface {
	Known
	executable()
}

// ReadWritable is implemented by known permissions that include both
// PROT_READ and PROT_WRITE.
type ReadWritable interface {
	Readable
	Writable
}

type (
	None             struct{}
	Read             struct{}
	Write            struct{}
	Execute          struct{}
	ReadWrite        struct{}
	ReadExecute      struct{}
	WriteExecute     struct{}
	ReadWriteExecute struct{}
)

func (None) Prot() int             { return unix.PROT_NONE }
func (Read) Prot() int             { return unix.PROT_READ }
func (Write) Prot() int            { return unix.PROT_WRITE }
func (Execute) Prot() int          { return unix.PROT_EXEC }
func (ReadWrite) Prot() int        { return unix.PROT_READ | unix.PROT_WRITE }
func (ReadExecute) Prot() int      { return unix.PROT_READ | unix.PROT_EXEC }
func (WriteExecute) Prot() int     { return unix.PROT_WRITE | unix.PROT_EXEC }
func (ReadWriteExecute) Prot() int { return unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC }

func (None) known()             {}
func (Read) known()             {}
func (Write) known()            {}
func (Execute) known()          {}
func (ReadWrite) known()        {}
func (ReadExecute) known()      {}
func (WriteExecute) known()     {}
func (ReadWriteExecute) known() {}

func (Read) readable()             {}
func (ReadWrite) readable()        {}
func (ReadExecute) readable()      {}
func (ReadWriteExecute) readable() {}

func (Write) writable()            {}
func (ReadWrite) writable()        {}
func (WriteExecute) writable()     {}
func (ReadWriteExecute) writable() {}

func (Execute) executable()          {}
func (ReadExecute) executable()      {}
func (WriteExecute) executable()     {}
func (ReadWriteExecute) executable() {}

// Unknown is a permission known only at run time, e.g. loaded from
// configuration. Value is passed to the kernel unchecked.
type Unknown struct {
	Value int
}

// Prot returns the raw protection bits.
func (u Unknown) Prot() int {
	return u.Value
}

// Has reports whether prot includes every bit of want.
func Has(prot, want int) bool {
	return prot&want == want
}
