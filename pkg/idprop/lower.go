package idprop

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// Lower returns a copy of prop with its inline data converted back to the
// stored representation. The group list is rebuilt from Members; the
// children's own next/prev links are written as they are.
func Lower(prop *sdna.Object, order binary.AppendByteOrder) (*sdna.Object, error) {
	data, ok := prop.Get("data").(*sdna.Object)
	if !ok {
		return prop, nil
	}
	shadow := prop.Clone()
	sdata := data.Clone()
	if err := shadow.Set("data", sdata); err != nil {
		return nil, err
	}

	typ, sub := TypeOf(prop)
	switch typ {
	case Float:
		if f, ok := sdata.Get("val").(float32); ok {
			return shadow, sdata.Set("val", int32(math.Float32bits(f)))
		}
	case Double:
		if f, ok := sdata.Get("val").(float64); ok {
			bits := math.Float64bits(f)
			lo, hi := int32(uint32(bits)), int32(uint32(bits>>32))
			if order.AppendUint16(nil, 1)[0] != 1 {
				lo, hi = hi, lo
			}
			if err := sdata.Set("val", lo); err != nil {
				return nil, err
			}
			return shadow, sdata.Set("val2", hi)
		}
	case Boolean:
		if b, ok := sdata.Get("val").(bool); ok {
			v := int32(0)
			if b {
				v = 1
			}
			return shadow, sdata.Set("val", v)
		}
	case String:
		if s, ok := sdata.Get("pointer").(string); ok {
			buf := &sdna.Buffer{Data: append([]byte(s), 0), Count: 1}
			if err := sdata.Set("pointer", buf); err != nil {
				return nil, err
			}
			return shadow, setLen(shadow, len(buf.Data))
		}
	case Array:
		if _, raw := sdata.Get("pointer").(*sdna.Buffer); raw {
			return shadow, nil
		}
		buf, n, err := lowerArray(sdata.Get("pointer"), sub, order)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", Name(prop), err)
		}
		var ptr any
		if n > 0 {
			ptr = buf
		}
		if err := sdata.Set("pointer", ptr); err != nil {
			return nil, err
		}
		return shadow, setLen(shadow, n)
	case IDPArray:
		if items, ok := sdata.Get("pointer").([]*sdna.Object); ok {
			var v any
			if len(items) > 0 {
				v = &sdna.ObjectList{Struct: prop.Struct, Items: items}
			}
			if err := sdata.Set("pointer", v); err != nil {
				return nil, err
			}
			return shadow, setLen(shadow, len(items))
		}
	case Group:
		if m, ok := sdata.Get("group").(*Members); ok {
			f := sdata.Struct.Field("group")
			if f == nil || f.Type.Kind != sdna.KindStruct {
				return nil, fmt.Errorf("%s.group is not an inline list: %w", sdata.Struct.Name, sdna.ErrCodec)
			}
			list := sdna.NewObject(f.Type.Struct)
			if len(m.Items) > 0 {
				_ = list.Set("first", m.Items[0])
				_ = list.Set("last", m.Items[len(m.Items)-1])
			}
			return shadow, sdata.Set("group", list)
		}
	}
	return shadow, nil
}

func setLen(prop *sdna.Object, n int) error {
	if !prop.Has("len") {
		return nil
	}
	return prop.Set("len", int32(n))
}

func lowerArray(v any, sub Type, order binary.AppendByteOrder) (*sdna.Buffer, int, error) {
	w := binio.NewWriter(order)
	switch a := v.(type) {
	case []float32:
		for _, x := range a {
			w.F32(x)
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: 1}, len(a), nil
	case []float64:
		for _, x := range a {
			w.F64(x)
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: 1}, len(a), nil
	case []int32:
		for _, x := range a {
			w.I32(x)
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: 1}, len(a), nil
	case []bool:
		for _, x := range a {
			if x {
				w.U8(1)
			} else {
				w.U8(0)
			}
		}
		return &sdna.Buffer{Data: w.Bytes(), Count: 1}, len(a), nil
	case nil:
		return nil, 0, nil
	default:
		return nil, 0, fmt.Errorf("array subtype %v holds %T: %w", sub, v, sdna.ErrCodec)
	}
}
