package customdata

import (
	"fmt"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

// boxing describes how a small wrapper struct maps to a plain value.
type boxing struct {
	fields []string // tuple of scalar fields
	array  string   // single scalar array field
	scalar string   // single scalar field
}

var (
	xy   = []string{"x", "y"}
	xyz  = []string{"x", "y", "z"}
	rgba = []string{"r", "g", "b", "a"}
)

var boxes = map[string]boxing{
	"vec2f":          {fields: xy},
	"vec3f":          {fields: xyz},
	"vec2i":          {fields: xy},
	"MCol":           {fields: rgba},
	"MLoopCol":       {fields: rgba},
	"MPropCol":       {array: "color"},
	"MIntProperty":   {scalar: "i"},
	"MFloatProperty": {scalar: "f"},
	"MBoolProperty":  {scalar: "b"},
}

// boxingFor returns the mapping for st if st has all the fields it needs.
func boxingFor(st *sdna.Struct) (boxing, bool) {
	b, ok := boxes[st.Name]
	if !ok {
		return b, false
	}
	for _, name := range b.names() {
		if st.Field(name) == nil {
			return b, false
		}
	}
	return b, true
}

func (b boxing) names() []string {
	switch {
	case b.array != "":
		return []string{b.array}
	case b.scalar != "":
		return []string{b.scalar}
	default:
		return b.fields
	}
}

// Unbox converts a well-known wrapper struct to a scalar or []any tuple.
// Other structs are returned unchanged with ok false.
func Unbox(o *sdna.Object) (any, bool) {
	b, ok := boxingFor(o.Struct)
	if !ok {
		return o, false
	}
	switch {
	case b.scalar != "":
		return o.Get(b.scalar), true
	case b.array != "":
		return sdna.Elements(o.Get(b.array)), true
	default:
		out := make([]any, len(b.fields))
		for i, name := range b.fields {
			out[i] = o.Get(name)
		}
		return out, true
	}
}

// Rebox is the inverse of Unbox. Objects are passed through.
func Rebox(st *sdna.Struct, v any) (*sdna.Object, error) {
	if o, ok := v.(*sdna.Object); ok {
		return o, nil
	}
	b, ok := boxingFor(st)
	if !ok {
		return nil, fmt.Errorf("%s has no plain form, got %T: %w", st.Name, v, sdna.ErrCodec)
	}
	o := sdna.NewObject(st)
	switch {
	case b.scalar != "":
		f := st.Field(b.scalar)
		cv, err := sdna.Convert(f.Type, v)
		if err != nil {
			return nil, err
		}
		return o, o.Set(b.scalar, cv)
	case b.array != "":
		f := st.Field(b.array)
		vals, err := sdna.ConvertScalars(f.Type.Elem, sdna.Elements(v))
		if err != nil {
			return nil, err
		}
		return o, o.Set(b.array, vals)
	default:
		vals := sdna.Elements(v)
		if len(vals) != len(b.fields) {
			return nil, fmt.Errorf("%s wants %d components, got %d: %w", st.Name, len(b.fields), len(vals), sdna.ErrCodec)
		}
		for i, name := range b.fields {
			cv, err := sdna.Convert(st.Field(name).Type, vals[i])
			if err != nil {
				return nil, err
			}
			if err := o.Set(name, cv); err != nil {
				return nil, err
			}
		}
		return o, nil
	}
}
