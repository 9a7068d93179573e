package sdna

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/samcharles93/blendkit/pkg/binio"
)

// Builder assembles a schema from C-like field declarations. It is used to
// author documents from scratch and to construct fixtures.
type Builder struct {
	names   []string
	nameIdx map[string]int
	types   []string
	typeIdx map[string]int
	lens    []int16
	structs []builtStruct
}

type builtStruct struct {
	typeIndex int
	fields    [][2]int
}

func NewBuilder() *Builder {
	return &Builder{nameIdx: map[string]int{}, typeIdx: map[string]int{}}
}

// Type declares a type token with an explicit length table entry. Base
// types are declared implicitly on first use.
func (b *Builder) Type(name string, length int) *Builder {
	i := b.typeIndex(name)
	b.lens[i] = int16(length)
	return b
}

// Struct declares a struct whose fields are written as "type decl", for
// example "float co[3]" or "Link *next".
func (b *Builder) Struct(name string, fields ...string) *Builder {
	st := builtStruct{typeIndex: b.typeIndex(name)}
	for _, f := range fields {
		typ, d, ok := strings.Cut(strings.TrimSpace(f), " ")
		if !ok {
			typ, d = f, f
		}
		st.fields = append(st.fields, [2]int{b.typeIndex(typ), b.nameIndex(strings.TrimSpace(d))})
	}
	b.structs = append(b.structs, st)
	return b
}

func (b *Builder) typeIndex(name string) int {
	if i, ok := b.typeIdx[name]; ok {
		return i
	}
	i := len(b.types)
	b.types = append(b.types, name)
	b.typeIdx[name] = i
	var l int16
	if t, ok := BaseType(name); ok {
		l = int16(t.Size())
	}
	b.lens = append(b.lens, l)
	return i
}

func (b *Builder) nameIndex(name string) int {
	if i, ok := b.nameIdx[name]; ok {
		return i
	}
	i := len(b.names)
	b.names = append(b.names, name)
	b.nameIdx[name] = i
	return i
}

// Build parses the assembled blob and fills struct lengths into the length
// table.
func (b *Builder) Build() (*Schema, error) {
	s, err := Parse(b.blob(binary.LittleEndian), binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	for _, st := range s.Structs {
		s.TypeLens[st.typeIndex] = int16(st.Size)
	}
	return s, nil
}

func (b *Builder) blob(order binary.AppendByteOrder) []byte {
	w := binio.NewWriter(order)
	w.String(tagSDNA)
	w.String(tagNAME)
	writeStrings(w, b.names)
	w.String(tagTYPE)
	writeStrings(w, b.types)
	w.String(tagTLEN)
	for _, l := range b.lens {
		w.I16(l)
	}
	w.Align(0, 4)
	w.String(tagSTRC)
	w.I32(int32(len(b.structs)))
	for _, st := range b.structs {
		w.I16(int16(st.typeIndex))
		w.I16(int16(len(st.fields)))
		for _, f := range st.fields {
			w.I16(int16(f[0]))
			w.I16(int16(f[1]))
		}
	}
	return w.Bytes()
}
