package sdna

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/blendkit/pkg/binio"
)

// DecodeStruct reads one instance of st. Pointer fields are left as raw
// Address values.
func DecodeStruct(r *binio.Reader, st *Struct) (*Object, error) {
	if r.Remaining() < st.Size {
		return nil, fmt.Errorf("decode %s: need %d bytes, have %d: %w", st.Name, st.Size, r.Remaining(), ErrFormat)
	}
	o := &Object{Struct: st, Values: make([]any, len(st.Fields))}
	for i, f := range st.Fields {
		v, err := DecodeValue(r, f.Type)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", st.Name, f.Name, err)
		}
		o.Values[i] = v
	}
	return o, nil
}

// DecodeObjects reads count consecutive instances of st from data.
func DecodeObjects(data []byte, order binary.ByteOrder, st *Struct, count int) ([]*Object, error) {
	if count < 0 || count*st.Size > len(data) {
		return nil, fmt.Errorf("decode %d x %s from %d bytes: %w", count, st.Name, len(data), ErrFormat)
	}
	if st.Size == 0 && count > 1 {
		return nil, fmt.Errorf("decode %d x empty struct %s: %w", count, st.Name, ErrFormat)
	}
	r := binio.NewReader(data, order)
	out := make([]*Object, count)
	for i := range out {
		o, err := DecodeStruct(r, st)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}

// DecodeValue reads one value of type t.
func DecodeValue(r *binio.Reader, t *Type) (any, error) {
	switch t.Kind {
	case KindScalar:
		return readScalar(r, t)
	case KindPointer:
		a, err := r.U64()
		return Address(a), err
	case KindStruct:
		return DecodeStruct(r, t.Struct)
	case KindArray:
		if t.IsText() {
			b, err := r.Bytes(t.Len)
			if err != nil {
				return nil, err
			}
			return textFromBytes(b), nil
		}
		if t.Elem.Kind == KindScalar {
			return ReadScalars(r, t.Elem, t.Len)
		}
		out := make([]any, t.Len)
		for i := range out {
			v, err := DecodeValue(r, t.Elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		b, err := r.Bytes(t.Size())
		return Opaque(b), err
	}
}

// Encoder writes objects in their fixed layout.
type Encoder struct {
	W *binio.Writer
	// Ref returns the address to store for a pointer field value. Without
	// Ref only nil and Address values can be encoded.
	Ref func(v any, pointee *Type) (Address, error)
	// Lower may substitute an object before it is encoded, for structs whose
	// decoded form differs from their stored form.
	Lower func(o *Object) (*Object, error)
	// ForeignOrder marks values read in the other byte order. Opaque bytes
	// cannot be swapped, so non-zero ones are refused.
	ForeignOrder bool
}

// EncodeStruct writes o, always producing exactly o.Struct.Size bytes.
func (e *Encoder) EncodeStruct(o *Object) error {
	if e.Lower != nil {
		lo, err := e.Lower(o)
		if err != nil {
			return fmt.Errorf("lower %s: %w", o.Struct.Name, err)
		}
		o = lo
	}
	st := o.Struct
	start := e.W.Len()
	for i, f := range st.Fields {
		var v any
		if i < len(o.Values) {
			v = o.Values[i]
		}
		if err := e.EncodeValue(f.Type, v); err != nil {
			return fmt.Errorf("encode %s.%s: %w", st.Name, f.Name, err)
		}
	}
	if n := e.W.Len() - start; n != st.Size {
		return fmt.Errorf("encode %s: wrote %d bytes, layout is %d: %w", st.Name, n, st.Size, ErrCodec)
	}
	return nil
}

// EncodeValue writes v as type t.
func (e *Encoder) EncodeValue(t *Type, v any) error {
	switch t.Kind {
	case KindScalar:
		return WriteScalar(e.W, t, v)
	case KindPointer:
		a, err := e.ref(v, t.Elem)
		if err != nil {
			return err
		}
		e.W.U64(uint64(a))
		return nil
	case KindStruct:
		switch o := v.(type) {
		case *Object:
			if o.Struct != t.Struct {
				return fmt.Errorf("inline %s holds %s: %w", t.Struct.Name, o.Struct.Name, ErrCodec)
			}
			return e.EncodeStruct(o)
		case nil:
			return e.EncodeStruct(NewObject(t.Struct))
		default:
			return fmt.Errorf("inline %s holds %T: %w", t.Struct.Name, v, ErrCodec)
		}
	case KindArray:
		if t.IsText() {
			writeText(e.W, v, t.Len)
			return nil
		}
		if t.Elem.Kind == KindScalar {
			return WriteScalars(e.W, t.Elem, v, t.Len)
		}
		have := sliceLen(v)
		for i := range t.Len {
			var ev any
			if i < have {
				ev = sliceAt(v, i)
			}
			if err := e.EncodeValue(t.Elem, ev); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	default:
		n := t.Size()
		b, _ := v.(Opaque)
		if e.ForeignOrder && !ZeroBytes(b) {
			return fmt.Errorf("opaque %s in foreign byte order: %w", t, ErrPrecondition)
		}
		if len(b) > n {
			b = b[:n]
		}
		e.W.Raw(b)
		e.W.Zero(n - len(b))
		return nil
	}
}

func (e *Encoder) ref(v any, pointee *Type) (Address, error) {
	if e.Ref != nil {
		return e.Ref(v, pointee)
	}
	switch a := v.(type) {
	case nil:
		return 0, nil
	case Address:
		return a, nil
	default:
		return 0, fmt.Errorf("no address for %T: %w", v, ErrPrecondition)
	}
}

func writeText(w *binio.Writer, v any, width int) {
	switch t := v.(type) {
	case Text:
		if len(t.Raw) == width && CString(t.Raw) == t.Value {
			w.Raw(t.Raw)
			return
		}
		w.FixedString(t.Value, width)
	case string:
		w.FixedString(t, width)
	case []byte:
		w.FixedString(string(t), width)
	default:
		w.Zero(width)
	}
}

// Finish reinterprets a raw buffer as a flat array of the scalar type at the
// bottom of elem.
func Finish(buf *Buffer, elem *Type, order binary.ByteOrder) (*TypedArray, error) {
	inner := elem.Innermost()
	if inner.Kind != KindScalar {
		return nil, fmt.Errorf("cannot reinterpret raw buffer as %s: %w", elem, ErrLink)
	}
	size := inner.Scalar.Size()
	n := len(buf.Data) / size
	vals, err := ReadScalars(binio.NewReader(buf.Data, order), inner, n)
	if err != nil {
		return nil, err
	}
	a := &TypedArray{Elem: inner, Values: vals, Count: buf.Count}
	if rest := buf.Data[n*size:]; len(rest) > 0 {
		a.Tail = bytes.Clone(rest)
	}
	return a, nil
}

// EncodeTypedArray writes the elements of a in the writer's byte order,
// followed by any partial trailing element as read.
func EncodeTypedArray(w *binio.Writer, a *TypedArray) error {
	if err := WriteScalars(w, a.Elem, a.Values, a.Len()); err != nil {
		return err
	}
	w.Raw(a.Tail)
	return nil
}

// ZeroBytes reports whether b holds only zero bytes.
func ZeroBytes(b []byte) bool {
	return len(bytes.Trim(b, "\x00")) == 0
}
