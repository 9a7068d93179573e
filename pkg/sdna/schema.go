package sdna

import "fmt"

// Field is one member of a struct.
type Field struct {
	Name string
	// Decl is the declared name string including pointer and array markers.
	Decl     string
	TypeName string
	Type     *Type
	Offset   int

	typeIndex int
	nameIndex int
}

// Size is the encoded width of the field.
func (f *Field) Size() int { return f.Type.Size() }

// Struct is a laid-out record from the schema struct table.
type Struct struct {
	Name string
	// Index is the dense id used by block headers.
	Index  int
	Fields []*Field
	Size   int

	typeIndex int
	byName    map[string]int
}

// FieldIndex returns the position of the named field.
func (s *Struct) FieldIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Field returns the named field or nil.
func (s *Struct) Field(name string) *Field {
	if i, ok := s.byName[name]; ok {
		return s.Fields[i]
	}
	return nil
}

func (s *Struct) String() string {
	return fmt.Sprintf("%s(%d fields, %d bytes)", s.Name, len(s.Fields), s.Size)
}

// Schema is the struct table embedded in a blend stream.
type Schema struct {
	Names    []string
	Types    []string
	TypeLens []int16
	Structs  []*Struct

	// rawTypes keeps the type table as stored so the blob re-encodes exactly.
	rawTypes []string
	byName   map[string]*Struct
}

// Lookup returns the struct with the given name.
func (s *Schema) Lookup(name string) (*Struct, bool) {
	st, ok := s.byName[name]
	return st, ok
}

// At returns the struct with the given block-header index.
func (s *Schema) At(index int) (*Struct, error) {
	if index < 0 || index >= len(s.Structs) {
		return nil, fmt.Errorf("struct index %d out of range [0,%d): %w", index, len(s.Structs), ErrFormat)
	}
	return s.Structs[index], nil
}

// SizeMismatches lists structs whose computed size differs from the length
// table.
func (s *Schema) SizeMismatches() []string {
	var out []string
	for _, st := range s.Structs {
		if want := int(s.TypeLens[st.typeIndex]); want != st.Size {
			out = append(out, fmt.Sprintf("%s: computed %d, table %d", st.Name, st.Size, want))
		}
	}
	return out
}
