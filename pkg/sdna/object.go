package sdna

import (
	"fmt"
	"strings"
)

// Address is an origin address recorded by the process that wrote the file.
// It is an identity key, never a usable pointer.
type Address uint64

func (a Address) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Object is a decoded struct instance. Values holds one entry per field in
// schema order.
//
// Field value shapes:
//   - scalar fields hold the matching Go numeric type (uint8 for char, int32 for int...)
//   - fixed-width character arrays hold Text
//   - other scalar arrays hold a typed slice, nested arrays hold []any
//   - inline struct fields hold *Object
//   - pointer fields hold an Address before linking and the resolved target
//     (or nil) afterwards
//   - void fields hold Opaque
type Object struct {
	Struct *Struct
	Values []any
}

// NewObject returns a zero-valued instance of st.
func NewObject(st *Struct) *Object {
	o := &Object{Struct: st, Values: make([]any, len(st.Fields))}
	for i, f := range st.Fields {
		o.Values[i] = zeroValue(f.Type)
	}
	return o
}

// Get returns the value of the named field, or nil if there is no such field.
func (o *Object) Get(name string) any {
	if i, ok := o.Struct.FieldIndex(name); ok {
		return o.Values[i]
	}
	return nil
}

// Has reports whether the struct declares the named field.
func (o *Object) Has(name string) bool {
	_, ok := o.Struct.FieldIndex(name)
	return ok
}

// Set replaces the value of the named field.
func (o *Object) Set(name string, v any) error {
	i, ok := o.Struct.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%s has no field %q", o.Struct.Name, name)
	}
	o.Values[i] = v
	return nil
}

// Path follows a dotted path through inline and linked objects, for example
// "id.name".
func (o *Object) Path(path string) any {
	var cur any = o
	for part := range strings.SplitSeq(path, ".") {
		obj, ok := cur.(*Object)
		if !ok || obj == nil {
			return nil
		}
		cur = obj.Get(part)
	}
	return cur
}

// Clone returns a shallow copy; nested objects are shared.
func (o *Object) Clone() *Object {
	c := &Object{Struct: o.Struct, Values: make([]any, len(o.Values))}
	copy(c.Values, o.Values)
	return c
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%p", o.Struct.Name, o)
}

// ObjectList is a block holding more than one instance of a struct.
type ObjectList struct {
	Struct *Struct
	Items  []*Object
}

// Buffer is an untyped payload whose element type is decided by the first
// pointer that references it.
type Buffer struct {
	Data  []byte
	Count int
}

// TypedArray is a Buffer reinterpreted as a flat scalar sequence. Values is a
// typed slice such as []float32.
type TypedArray struct {
	Elem   *Type
	Values any
	Count  int
	// Tail holds trailing bytes that do not fill a whole element.
	Tail []byte
}

// Len returns the number of elements.
func (a *TypedArray) Len() int { return sliceLen(a.Values) }

// PointerArray is a Buffer of addresses resolved element by element.
type PointerArray struct {
	// Elem is the type each element points to.
	Elem    *Type
	Targets []any
	Count   int
}

// Text is a fixed-width character field. Raw keeps the bytes as read,
// including anything after the terminator.
type Text struct {
	Value string
	Raw   []byte
}

func (t Text) String() string { return t.Value }

// NewText builds a Text value from a Go string.
func NewText(s string) Text { return Text{Value: s} }

func textFromBytes(b []byte) Text {
	v := b
	for i, c := range b {
		if c == 0 {
			v = b[:i]
			break
		}
	}
	return Text{Value: string(v), Raw: b}
}

// CString decodes a NUL-terminated string from b.
func CString(b []byte) string { return textFromBytes(b).Value }

// Opaque holds the bytes of a field whose type is unknown to the schema.
type Opaque []byte

func zeroValue(t *Type) any {
	switch t.Kind {
	case KindScalar:
		v, _ := convertScalar(t, 0)
		return v
	case KindPointer:
		return nil
	case KindArray:
		if t.IsText() {
			return Text{Raw: make([]byte, t.Len)}
		}
		if t.Elem.Kind == KindScalar {
			return makeScalars(t.Elem, t.Len)
		}
		out := make([]any, t.Len)
		for i := range out {
			out[i] = zeroValue(t.Elem)
		}
		return out
	case KindStruct:
		return NewObject(t.Struct)
	default:
		return make(Opaque, t.Size())
	}
}
