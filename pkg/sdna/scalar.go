package sdna

import (
	"fmt"
	"math"
	"reflect"

	"github.com/samcharles93/blendkit/pkg/binio"
)

func readScalar(r *binio.Reader, t *Type) (any, error) {
	switch t.Scalar {
	case Int8:
		v, err := r.U8()
		if t.Unsigned {
			return v, err
		}
		return int8(v), err
	case Int16:
		v, err := r.U16()
		if t.Unsigned {
			return v, err
		}
		return int16(v), err
	case Int32:
		v, err := r.U32()
		if t.Unsigned {
			return v, err
		}
		return int32(v), err
	case Int64:
		v, err := r.U64()
		if t.Unsigned {
			return v, err
		}
		return int64(v), err
	case Float32:
		return r.F32()
	case Float64:
		return r.F64()
	default:
		return nil, fmt.Errorf("unknown scalar kind %d: %w", t.Scalar, ErrSchema)
	}
}

func makeScalars(t *Type, n int) any {
	switch t.Scalar {
	case Int8:
		if t.Unsigned {
			return make([]uint8, n)
		}
		return make([]int8, n)
	case Int16:
		if t.Unsigned {
			return make([]uint16, n)
		}
		return make([]int16, n)
	case Int32:
		if t.Unsigned {
			return make([]uint32, n)
		}
		return make([]int32, n)
	case Int64:
		if t.Unsigned {
			return make([]uint64, n)
		}
		return make([]int64, n)
	case Float32:
		return make([]float32, n)
	default:
		return make([]float64, n)
	}
}

// ReadScalars decodes n consecutive scalars of type t into a typed slice.
func ReadScalars(r *binio.Reader, t *Type, n int) (any, error) {
	if n < 0 || n*t.Scalar.Size() > r.Remaining() {
		return nil, fmt.Errorf("read %d x %s: %w", n, t.Name, ErrFormat)
	}
	out := makeScalars(t, n)
	var err error
	switch s := out.(type) {
	case []uint8:
		for i := range s {
			s[i], err = r.U8()
		}
	case []int8:
		for i := range s {
			s[i], err = r.I8()
		}
	case []uint16:
		for i := range s {
			s[i], err = r.U16()
		}
	case []int16:
		for i := range s {
			s[i], err = r.I16()
		}
	case []uint32:
		for i := range s {
			s[i], err = r.U32()
		}
	case []int32:
		for i := range s {
			s[i], err = r.I32()
		}
	case []uint64:
		for i := range s {
			s[i], err = r.U64()
		}
	case []int64:
		for i := range s {
			s[i], err = r.I64()
		}
	case []float32:
		for i := range s {
			s[i], err = r.F32()
		}
	case []float64:
		for i := range s {
			s[i], err = r.F64()
		}
	}
	return out, err
}

// WriteScalar encodes v as a scalar of type t. Any Go numeric or bool value
// is accepted and converted.
func WriteScalar(w *binio.Writer, t *Type, v any) error {
	cv, err := convertScalar(t, v)
	if err != nil {
		return err
	}
	switch x := cv.(type) {
	case uint8:
		w.U8(x)
	case int8:
		w.I8(x)
	case uint16:
		w.U16(x)
	case int16:
		w.I16(x)
	case uint32:
		w.U32(x)
	case int32:
		w.I32(x)
	case uint64:
		w.U64(x)
	case int64:
		w.I64(x)
	case float32:
		w.F32(x)
	case float64:
		w.F64(x)
	}
	return nil
}

// WriteScalars encodes n scalars from a typed slice or []any, zero filling
// missing elements.
func WriteScalars(w *binio.Writer, t *Type, v any, n int) error {
	have := sliceLen(v)
	for i := range n {
		var e any
		if i < have {
			e = sliceAt(v, i)
		}
		if err := WriteScalar(w, t, e); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// convertScalar coerces v to the Go type that represents t.
func convertScalar(t *Type, v any) (any, error) {
	var (
		i   int64
		u   uint64
		f   float64
		flt bool
	)
	switch x := v.(type) {
	case nil:
	case bool:
		if x {
			i, u = 1, 1
		}
	case int:
		i, u = int64(x), uint64(x)
	case int8:
		i, u = int64(x), uint64(x)
	case int16:
		i, u = int64(x), uint64(x)
	case int32:
		i, u = int64(x), uint64(x)
	case int64:
		i, u = x, uint64(x)
	case uint:
		i, u = int64(x), uint64(x)
	case uint8:
		i, u = int64(x), uint64(x)
	case uint16:
		i, u = int64(x), uint64(x)
	case uint32:
		i, u = int64(x), uint64(x)
	case uint64:
		i, u = int64(x), x
	case float32:
		f, flt = float64(x), true
	case float64:
		f, flt = x, true
	default:
		return nil, fmt.Errorf("cannot encode %T as %s: %w", v, t.Name, ErrCodec)
	}
	if flt {
		i, u = int64(f), uint64(int64(f))
		if f >= math.MaxInt64 {
			u = uint64(f)
		}
	} else {
		f = float64(i)
		if _, ok := v.(uint64); ok {
			f = float64(u)
		}
	}

	switch t.Scalar {
	case Int8:
		if t.Unsigned {
			return uint8(u), nil
		}
		return int8(i), nil
	case Int16:
		if t.Unsigned {
			return uint16(u), nil
		}
		return int16(i), nil
	case Int32:
		if t.Unsigned {
			return uint32(u), nil
		}
		return int32(i), nil
	case Int64:
		if t.Unsigned {
			return u, nil
		}
		return i, nil
	case Float32:
		return float32(f), nil
	case Float64:
		return f, nil
	default:
		return nil, fmt.Errorf("unknown scalar kind %d: %w", t.Scalar, ErrSchema)
	}
}

func sliceLen(v any) int {
	switch s := v.(type) {
	case nil:
		return 0
	case []any:
		return len(s)
	case Opaque:
		return len(s)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 0
}

func sliceAt(v any, i int) any {
	if s, ok := v.([]any); ok {
		return s[i]
	}
	return reflect.ValueOf(v).Index(i).Interface()
}

// ConvertScalars builds the typed slice representing vals as elements of t.
func ConvertScalars(t *Type, vals []any) (any, error) {
	out := makeScalars(t, len(vals))
	rv := reflect.ValueOf(out)
	for i, v := range vals {
		cv, err := convertScalar(t, v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		rv.Index(i).Set(reflect.ValueOf(cv))
	}
	return out, nil
}

// Elements returns the items of any slice value as []any.
func Elements(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	n := sliceLen(v)
	out := make([]any, n)
	for i := range out {
		out[i] = sliceAt(v, i)
	}
	return out
}

// Int returns v as an int64 when it holds any Go integer type.
func Int(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case uint:
		return int64(x), true
	}
	return 0, false
}

// Convert coerces a Go numeric or bool value to the representation of the
// scalar type t.
func Convert(t *Type, v any) (any, error) { return convertScalar(t, v) }
