package devs

import "fmt"

// Value is the opaque value-tree handle a Dynamics passes across ports. The
// kernel never inspects Data's shape; it only moves the handle around,
// mirroring the source engine's clone/refcount-share/type-tag/pretty-print
// operations on an opaque value tree.
//
// Go's garbage collector already gives handle-sharing-without-copy for free:
// assigning or passing a Value copies the struct (a string header plus an
// interface header), never the underlying Data. A manual refcount, as the
// source keeps for its hand-managed value pool, would only duplicate work
// the runtime already does, so none is implemented here.
type Value struct {
	Tag  string
	Data any
}

// NewValue tags data with a type name for diagnostics and pretty-printing.
func NewValue(tag string, data any) Value {
	return Value{Tag: tag, Data: data}
}

// String renders a Value for logs and diagnostics.
func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Tag, v.Data)
}
