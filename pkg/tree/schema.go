package tree

import "github.com/samcharles93/blendkit/pkg/sdna"

// Schema renders the struct table of s in index order.
func Schema(s *sdna.Schema) []any {
	out := make([]any, len(s.Structs))
	for i, st := range s.Structs {
		out[i] = Struct(st)
	}
	return out
}

// Struct renders one struct layout.
func Struct(st *sdna.Struct) *Map {
	fields := make([]any, len(st.Fields))
	for i, f := range st.Fields {
		m := NewMap(5)
		m.Set("name", f.Name)
		m.Set("decl", f.Decl)
		m.Set("type", f.Type.String())
		m.Set("offset", f.Offset)
		m.Set("size", f.Size())
		fields[i] = m
	}
	m := NewMap(4)
	m.Set("name", st.Name)
	m.Set("index", st.Index)
	m.Set("size", st.Size)
	m.Set("fields", fields)
	return m
}
