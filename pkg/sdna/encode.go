package sdna

import (
	"encoding/binary"

	"github.com/samcharles93/blendkit/pkg/binio"
)

// Encode re-emits the schema in the section layout Parse reads.
func (s *Schema) Encode(order binary.AppendByteOrder) []byte {
	w := binio.NewWriter(order)
	w.String(tagSDNA)

	w.String(tagNAME)
	writeStrings(w, s.Names)

	types := s.rawTypes
	if len(types) != len(s.Types) {
		types = s.Types
	}
	w.String(tagTYPE)
	writeStrings(w, types)

	w.String(tagTLEN)
	for _, l := range s.TypeLens {
		w.I16(l)
	}
	w.Align(0, 4)

	w.String(tagSTRC)
	w.I32(int32(len(s.Structs)))
	for _, st := range s.Structs {
		w.I16(int16(st.typeIndex))
		w.I16(int16(len(st.Fields)))
		for _, f := range st.Fields {
			w.I16(int16(f.typeIndex))
			w.I16(int16(f.nameIndex))
		}
	}
	return w.Bytes()
}

func writeStrings(w *binio.Writer, ss []string) {
	w.I32(int32(len(ss)))
	for _, s := range ss {
		w.CString(s)
	}
	w.Align(0, 4)
}
