package sdna

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/blendkit/pkg/binio"
)

const (
	tagSDNA = "SDNA"
	tagNAME = "NAME"
	tagTYPE = "TYPE"
	tagTLEN = "TLEN"
	tagSTRC = "STRC"
)

// legacyTypeRenames holds the one historical type rename applied on read.
var legacyTypeRenames = map[string]string{
	"bScreen": "Screen",
}

// Parse decodes an embedded schema blob.
func Parse(blob []byte, order binary.ByteOrder) (*Schema, error) {
	r := binio.NewReader(blob, order)
	s := &Schema{}

	if err := expectTag(r, tagSDNA); err != nil {
		return nil, err
	}
	if err := expectTag(r, tagNAME); err != nil {
		return nil, err
	}
	names, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	s.Names = names

	if err := expectTag(r, tagTYPE); err != nil {
		return nil, err
	}
	types, err := readStrings(r)
	if err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	s.rawTypes = types
	s.Types = make([]string, len(types))
	for i, t := range types {
		if to, ok := legacyTypeRenames[t]; ok {
			t = to
		}
		s.Types[i] = t
	}

	if err := expectTag(r, tagTLEN); err != nil {
		return nil, err
	}
	s.TypeLens = make([]int16, len(types))
	for i := range s.TypeLens {
		if s.TypeLens[i], err = r.I16(); err != nil {
			return nil, fmt.Errorf("read type length %d: %w", i, formatErr(err))
		}
	}
	if err := r.Align(0, 4); err != nil {
		return nil, formatErr(err)
	}

	if err := expectTag(r, tagSTRC); err != nil {
		return nil, err
	}
	if err := s.readStructs(r); err != nil {
		return nil, err
	}
	if err := s.resolve(); err != nil {
		return nil, err
	}
	if err := s.layout(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Schema) readStructs(r *binio.Reader) error {
	count, err := r.I32()
	if err != nil {
		return fmt.Errorf("read struct count: %w", formatErr(err))
	}
	if count < 0 {
		return fmt.Errorf("negative struct count %d: %w", count, ErrFormat)
	}
	// Each struct header is at least 4 bytes.
	if int64(count) > int64(r.Remaining()/4) {
		return fmt.Errorf("struct count %d exceeds %d remaining bytes: %w", count, r.Remaining(), ErrFormat)
	}
	s.Structs = make([]*Struct, 0, count)
	s.byName = make(map[string]*Struct, count)
	for i := range int(count) {
		ti, err := r.I16()
		if err != nil {
			return fmt.Errorf("read struct %d: %w", i, formatErr(err))
		}
		nf, err := r.I16()
		if err != nil {
			return fmt.Errorf("read struct %d: %w", i, formatErr(err))
		}
		if int(ti) < 0 || int(ti) >= len(s.Types) {
			return fmt.Errorf("struct %d: type index %d out of range: %w", i, ti, ErrFormat)
		}
		if nf < 0 || int(nf)*4 > r.Remaining() {
			return fmt.Errorf("struct %d: field count %d exceeds %d remaining bytes: %w", i, nf, r.Remaining(), ErrFormat)
		}
		st := &Struct{
			Name:      s.Types[ti],
			Index:     i,
			typeIndex: int(ti),
			Fields:    make([]*Field, 0, nf),
			byName:    make(map[string]int, nf),
		}
		for j := range int(nf) {
			ft, err := r.I16()
			if err != nil {
				return fmt.Errorf("read %s field %d: %w", st.Name, j, formatErr(err))
			}
			fn, err := r.I16()
			if err != nil {
				return fmt.Errorf("read %s field %d: %w", st.Name, j, formatErr(err))
			}
			if int(ft) < 0 || int(ft) >= len(s.Types) || int(fn) < 0 || int(fn) >= len(s.Names) {
				return fmt.Errorf("%s field %d: index out of range: %w", st.Name, j, ErrFormat)
			}
			st.Fields = append(st.Fields, &Field{
				Decl:      s.Names[fn],
				TypeName:  s.Types[ft],
				typeIndex: int(ft),
				nameIndex: int(fn),
			})
		}
		s.Structs = append(s.Structs, st)
		if _, dup := s.byName[st.Name]; !dup {
			s.byName[st.Name] = st
		}
	}
	return nil
}

// resolve binds every field's type token against the complete struct table.
func (s *Schema) resolve() error {
	for _, st := range s.Structs {
		for i, f := range st.Fields {
			d, err := parseDecl(f.Decl)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", st.Name, f.Decl, err)
			}
			f.Name = d.name
			f.Type = s.wrap(s.baseType(f.typeIndex), d)
			st.byName[f.Name] = i
		}
	}
	return nil
}

func (s *Schema) baseType(typeIndex int) *Type {
	name := s.Types[typeIndex]
	if st, ok := s.byName[name]; ok {
		return StructType(st)
	}
	if t, ok := BaseType(name); ok {
		return t
	}
	return VoidType(name, int(s.TypeLens[typeIndex]))
}

func (s *Schema) wrap(base *Type, d decl) *Type {
	t := base
	for range d.pointers {
		t = PointerTo(t)
	}
	for i := len(d.dims) - 1; i >= 0; i-- {
		t = ArrayOf(d.dims[i], t)
	}
	return t
}

// layout computes struct sizes and field offsets, nested structs first.
func (s *Schema) layout() error {
	const (
		pending = iota
		active
		done
	)
	state := make(map[*Struct]int, len(s.Structs))
	var size func(st *Struct) error
	size = func(st *Struct) error {
		switch state[st] {
		case done:
			return nil
		case active:
			return fmt.Errorf("struct %s contains itself inline: %w", st.Name, ErrSchema)
		}
		state[st] = active
		off := 0
		for _, f := range st.Fields {
			if inner := f.Type.Innermost(); inner.Kind == KindStruct {
				if err := size(inner.Struct); err != nil {
					return err
				}
			}
			f.Offset = off
			off += f.Type.Size()
		}
		st.Size = off
		state[st] = done
		return nil
	}
	for _, st := range s.Structs {
		if err := size(st); err != nil {
			return err
		}
	}
	return nil
}

type decl struct {
	name     string
	pointers int
	dims     []int
}

// parseDecl splits a declared field name such as "*next", "co[3]" or
// "(*func)()" into pointer depth, identifier and array dimensions.
func parseDecl(s string) (decl, error) {
	var d decl
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ' ', '\t':
			return -1
		}
		return r
	}, s)
	for strings.HasPrefix(clean, "*") {
		d.pointers++
		clean = clean[1:]
	}
	name, rest, _ := strings.Cut(clean, "[")
	if name == "" {
		return d, fmt.Errorf("empty field name in %q: %w", s, ErrSchema)
	}
	d.name = name
	if rest == "" {
		return d, nil
	}
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return d, fmt.Errorf("malformed array suffix in %q: %w", s, ErrSchema)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return d, fmt.Errorf("unterminated array suffix in %q: %w", s, ErrSchema)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return d, fmt.Errorf("bad array length in %q: %w", s, ErrSchema)
		}
		d.dims = append(d.dims, n)
		rest = rest[end+1:]
	}
	return d, nil
}

func expectTag(r *binio.Reader, want string) error {
	at := r.Offset()
	got, err := r.Tag(4)
	if err != nil {
		return fmt.Errorf("expected %s section at %d: %w", want, at, formatErr(err))
	}
	if got != want {
		return fmt.Errorf("expected %s section at %d, got %q: %w", want, at, got, ErrFormat)
	}
	return nil
}

func readStrings(r *binio.Reader) ([]string, error) {
	n, err := r.I32()
	if err != nil {
		return nil, formatErr(err)
	}
	if n < 0 || int(n) > r.Remaining() {
		return nil, fmt.Errorf("string count %d: %w", n, ErrFormat)
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.CString(); err != nil {
			return nil, formatErr(err)
		}
	}
	if err := r.Align(0, 4); err != nil {
		return nil, formatErr(err)
	}
	return out, nil
}

func formatErr(err error) error {
	return fmt.Errorf("%w: %w", ErrFormat, err)
}
