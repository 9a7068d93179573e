// Package customdata decodes the per-element attribute arrays referenced by
// CustomDataLayer objects.
package customdata

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// StructName is the schema struct whose data field this package decodes.
const StructName = "CustomDataLayer"

// Layer replaces the data field of a decoded CustomDataLayer.
type Layer struct {
	Type  LayerType
	Shape string
	// Struct is set when the shape names a schema struct.
	Struct *sdna.Struct
	// Values holds one entry per element: a scalar, a []any tuple for vector
	// shapes, or the *sdna.Object itself for structs with no plain form.
	Values []any
	// Passthrough is set when the shape's struct is missing from the schema;
	// Raw is then the only representation.
	Passthrough bool
	// Raw is the linked data the layer was decoded from.
	Raw any
}

func (l *Layer) Len() int { return len(l.Values) }

// ElemSize returns the byte width of one element, or -1 when unknown.
func (l *Layer) ElemSize() int {
	base, dim, err := splitShape(l.Shape)
	if err != nil {
		return -1
	}
	if n, ok := primitiveSizes[base]; ok {
		return n * dim
	}
	if l.Struct != nil {
		return l.Struct.Size * dim
	}
	return -1
}

// Decode replaces obj's data field with a *Layer. Calling it again is a
// no-op.
func Decode(obj *sdna.Object, schema *sdna.Schema, order binary.ByteOrder) error {
	raw := obj.Get("data")
	if _, done := raw.(*Layer); done {
		return nil
	}
	tv, ok := sdna.Int(obj.Get("type"))
	if !ok {
		return fmt.Errorf("%s without integer type field: %w", obj.Struct.Name, sdna.ErrCodec)
	}
	lt := LayerType(tv)
	shape, ok := Shape(lt)
	if !ok {
		return &UnknownTypeError{Type: lt}
	}
	base, dim, err := splitShape(shape)
	if err != nil {
		return fmt.Errorf("layer %v: %w: %w", lt, err, sdna.ErrCodec)
	}

	layer := &Layer{Type: lt, Shape: shape, Raw: raw}
	if size, ok := primitiveSizes[base]; ok {
		layer.Values, err = decodePrimitive(raw, base, dim, size, order)
	} else if st, ok := schema.Lookup(base); ok {
		layer.Struct = st
		layer.Values, err = decodeStructs(raw, st, dim, order)
	} else {
		layer.Passthrough = true
	}
	if err != nil {
		return fmt.Errorf("layer %v %q: %w", lt, layerName(obj), err)
	}
	return obj.Set("data", layer)
}

func layerName(obj *sdna.Object) string {
	if t, ok := obj.Get("name").(sdna.Text); ok {
		return t.Value
	}
	return ""
}

func decodePrimitive(raw any, base string, dim, size int, order binary.ByteOrder) ([]any, error) {
	var data []byte
	switch d := raw.(type) {
	case nil:
		return []any{}, nil
	case *sdna.Buffer:
		data = d.Data
	default:
		return nil, fmt.Errorf("primitive layer data is %T: %w", raw, sdna.ErrCodec)
	}
	n := len(data) / (size * dim)
	r := binio.NewReader(data, order)
	out := make([]any, n)
	for i := range out {
		if dim == 1 {
			v, err := readPrimitive(r, base)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		tuple := make([]any, dim)
		for j := range tuple {
			v, err := readPrimitive(r, base)
			if err != nil {
				return nil, err
			}
			tuple[j] = v
		}
		out[i] = tuple
	}
	return out, nil
}

func readPrimitive(r *binio.Reader, base string) (any, error) {
	switch base {
	case "byte":
		return r.U8()
	case "short":
		return r.I16()
	case "int":
		return r.I32()
	case "float":
		return r.F32()
	case "double":
		return r.F64()
	case "void*":
		return r.U64()
	}
	return nil, fmt.Errorf("unknown primitive %q: %w", base, sdna.ErrCodec)
}

func writePrimitive(w *binio.Writer, base string, v any) error {
	var t *sdna.Type
	switch base {
	case "byte":
		t = sdna.ScalarType("uchar", sdna.Int8, true)
	case "short":
		t = sdna.ScalarType("short", sdna.Int16, false)
	case "int":
		t = sdna.ScalarType("int", sdna.Int32, false)
	case "float":
		t = sdna.ScalarType("float", sdna.Float32, false)
	case "double":
		t = sdna.ScalarType("double", sdna.Float64, false)
	case "void*":
		t = sdna.ScalarType("uint64_t", sdna.Int64, true)
	default:
		return fmt.Errorf("unknown primitive %q: %w", base, sdna.ErrCodec)
	}
	return sdna.WriteScalar(w, t, v)
}

func decodeStructs(raw any, st *sdna.Struct, dim int, order binary.ByteOrder) ([]any, error) {
	var items []*sdna.Object
	switch d := raw.(type) {
	case nil:
	case *sdna.Object:
		items = []*sdna.Object{d}
	case *sdna.ObjectList:
		items = d.Items
	case *sdna.Buffer:
		if st.Size == 0 {
			return nil, fmt.Errorf("zero-size struct %s: %w", st.Name, sdna.ErrCodec)
		}
		var err error
		items, err = sdna.DecodeObjects(d.Data, order, st, len(d.Data)/st.Size)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("struct layer data is %T: %w", raw, sdna.ErrCodec)
	}

	out := make([]any, 0, len(items)/dim)
	for i := 0; i+dim <= len(items); i += dim {
		if dim == 1 {
			v, _ := Unbox(items[i])
			out = append(out, v)
			continue
		}
		tuple := make([]any, dim)
		for j := range tuple {
			tuple[j], _ = Unbox(items[i+j])
		}
		out = append(out, tuple)
	}
	return out, nil
}

// Lower returns a copy of obj whose data field holds the stored form of its
// *Layer. Objects without a decoded layer are returned as is.
func Lower(obj *sdna.Object, order binary.AppendByteOrder) (*sdna.Object, error) {
	layer, ok := obj.Get("data").(*Layer)
	if !ok {
		return obj, nil
	}
	shadow := obj.Clone()
	data, err := layer.lower(order)
	if err != nil {
		return nil, fmt.Errorf("layer %v: %w", layer.Type, err)
	}
	return shadow, shadow.Set("data", data)
}

func (l *Layer) lower(order binary.AppendByteOrder) (any, error) {
	if l.Passthrough {
		return l.Raw, nil
	}
	if l.Raw == nil && len(l.Values) == 0 {
		return nil, nil
	}
	count := 1
	if b, ok := l.Raw.(*sdna.Buffer); ok {
		count = b.Count
	}
	base, dim, err := splitShape(l.Shape)
	if err != nil {
		return nil, err
	}

	if l.Struct == nil {
		w := binio.NewWriter(order)
		if err := l.writePrimitives(w, base, dim); err != nil {
			return nil, err
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: count}, nil
	}

	items, err := l.items(dim)
	if err != nil {
		return nil, err
	}
	switch l.Raw.(type) {
	case *sdna.Buffer:
		w := binio.NewWriter(order)
		if err := encodeItems(w, items); err != nil {
			return nil, err
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: count}, nil
	case *sdna.Object:
		if len(items) == 1 {
			return items[0], nil
		}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &sdna.ObjectList{Struct: l.Struct, Items: items}, nil
}

// Encode packs the layer's values in their stored element layout.
func (l *Layer) Encode(order binary.AppendByteOrder) ([]byte, error) {
	if l.Passthrough {
		if b, ok := l.Raw.(*sdna.Buffer); ok {
			return b.Data, nil
		}
		return nil, fmt.Errorf("layer %v has no packed form: %w", l.Type, sdna.ErrCodec)
	}
	base, dim, err := splitShape(l.Shape)
	if err != nil {
		return nil, err
	}
	w := binio.NewWriter(order)
	if l.Struct == nil {
		err = l.writePrimitives(w, base, dim)
	} else {
		var items []*sdna.Object
		if items, err = l.items(dim); err == nil {
			err = encodeItems(w, items)
		}
	}
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (l *Layer) writePrimitives(w *binio.Writer, base string, dim int) error {
	for i, v := range l.Values {
		if dim == 1 {
			if err := writePrimitive(w, base, v); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			continue
		}
		tuple := sdna.Elements(v)
		if len(tuple) != dim {
			return fmt.Errorf("element %d has %d components, want %d: %w", i, len(tuple), dim, sdna.ErrCodec)
		}
		for _, c := range tuple {
			if err := writePrimitive(w, base, c); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

// items reboxes the values into schema objects, dim per element.
func (l *Layer) items(dim int) ([]*sdna.Object, error) {
	items := make([]*sdna.Object, 0, len(l.Values)*dim)
	for i, v := range l.Values {
		parts := []any{v}
		if dim > 1 {
			parts = sdna.Elements(v)
		}
		for _, p := range parts {
			o, err := Rebox(l.Struct, p)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			items = append(items, o)
		}
	}
	return items, nil
}

func encodeItems(w *binio.Writer, items []*sdna.Object) error {
	enc := &sdna.Encoder{W: w}
	for _, o := range items {
		if err := enc.EncodeStruct(o); err != nil {
			return err
		}
	}
	return nil
}
