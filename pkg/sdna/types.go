package sdna

import (
	"fmt"
	"strconv"
)

// Kind is the top-level variant of a Type.
type Kind uint8

const (
	KindVoid Kind = iota
	KindScalar
	KindPointer
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindScalar:
		return "scalar"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ScalarKind is the storage class of a scalar field.
type ScalarKind uint8

const (
	Int8 ScalarKind = iota + 1
	Int16
	Int32
	Int64
	Float32
	Float64
)

var scalarNames = map[ScalarKind]string{
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
}

func (k ScalarKind) String() string {
	if n, ok := scalarNames[k]; ok {
		return n
	}
	return fmt.Sprintf("scalar(%d)", uint8(k))
}

// Size returns the encoded width in bytes.
func (k ScalarKind) Size() int {
	switch k {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (k ScalarKind) IsFloat() bool { return k == Float32 || k == Float64 }

// PointerSize is the encoded width of every pointer field, independent of the
// pointer-width byte in the file preamble.
const PointerSize = 8

// defaultVoidSize is used for opaque types whose length table entry is zero.
const defaultVoidSize = 8

// Type describes how one field is laid out. Types are immutable once the
// schema that produced them is built.
type Type struct {
	Kind     Kind
	Scalar   ScalarKind
	Unsigned bool
	// Name is the base type token for scalars and void, e.g. "float" or an
	// unknown struct name.
	Name   string
	Elem   *Type
	Len    int
	Struct *Struct
	// VoidSize is the inline width of an opaque type.
	VoidSize int
}

func ScalarType(name string, kind ScalarKind, unsigned bool) *Type {
	return &Type{Kind: KindScalar, Name: name, Scalar: kind, Unsigned: unsigned}
}

func VoidType(name string, size int) *Type {
	return &Type{Kind: KindVoid, Name: name, VoidSize: size}
}

func PointerTo(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem}
}

func ArrayOf(n int, elem *Type) *Type {
	return &Type{Kind: KindArray, Len: n, Elem: elem}
}

func StructType(st *Struct) *Type {
	return &Type{Kind: KindStruct, Name: st.Name, Struct: st}
}

// Size returns the encoded width of t. Struct sizes must already be computed.
func (t *Type) Size() int {
	switch t.Kind {
	case KindScalar:
		return t.Scalar.Size()
	case KindPointer:
		return PointerSize
	case KindArray:
		return t.Len * t.Elem.Size()
	case KindStruct:
		return t.Struct.Size
	default:
		if t.VoidSize > 0 {
			return t.VoidSize
		}
		return defaultVoidSize
	}
}

// IsText reports whether values of t decode as fixed-width text.
func (t *Type) IsText() bool {
	return t.Kind == KindArray && t.Elem.Kind == KindScalar && t.Elem.Scalar == Int8 && t.Elem.Unsigned
}

// Innermost strips array wrappers.
func (t *Type) Innermost() *Type {
	for t.Kind == KindArray {
		t = t.Elem
	}
	return t
}

// Flat returns the total number of innermost elements of an array type.
func (t *Type) Flat() int {
	n := 1
	for t.Kind == KindArray {
		n *= t.Len
		t = t.Elem
	}
	return n
}

func (t *Type) String() string {
	switch t.Kind {
	case KindScalar:
		return t.Name
	case KindPointer:
		return "*" + t.Elem.String()
	case KindArray:
		return t.Elem.String() + "[" + strconv.Itoa(t.Len) + "]"
	case KindStruct:
		return "struct " + t.Struct.Name
	default:
		if t.Name == "" {
			return "void"
		}
		return t.Name
	}
}

// baseTypes maps schema type tokens to scalar descriptors. Anything not
// listed here and not a struct name decodes as void.
var baseTypes = map[string]struct {
	kind     ScalarKind
	unsigned bool
}{
	"char":     {Int8, true},
	"uchar":    {Int8, true},
	"uint8_t":  {Int8, true},
	"int8_t":   {Int8, false},
	"short":    {Int16, false},
	"ushort":   {Int16, true},
	"int16_t":  {Int16, false},
	"uint16_t": {Int16, true},
	"int":      {Int32, false},
	"uint":     {Int32, true},
	"int32_t":  {Int32, false},
	"uint32_t": {Int32, true},
	"long":     {Int32, false},
	"ulong":    {Int32, true},
	"float":    {Float32, false},
	"double":   {Float64, false},
	"int64_t":  {Int64, false},
	"uint64_t": {Int64, true},
}

// BaseType resolves a non-struct type token. ok is false for tokens that fall
// back to void.
func BaseType(name string) (*Type, bool) {
	if b, ok := baseTypes[name]; ok {
		return ScalarType(name, b.kind, b.unsigned), true
	}
	return nil, false
}
