package blend

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// stream assembles a blend stream block by block.
type stream struct {
	t      *testing.T
	order  binary.ByteOrder
	out    *binio.Writer
	schema *sdna.Schema
}

func newStream(t *testing.T, schema *sdna.Schema, order binary.ByteOrder) *stream {
	t.Helper()
	marker := byte(bigEndianByte)
	if order.Uint16([]byte{1, 0}) == 1 {
		marker = littleEndianByte
	}
	s := &stream{t: t, order: order, out: binio.NewWriter(order.(binary.AppendByteOrder)), schema: schema}
	s.out.String(magic)
	s.out.U8(DefaultPointerByte)
	s.out.U8(marker)
	s.out.String("300")
	return s
}

// nativeStream uses the byte order Encode writes.
func nativeStream(t *testing.T, schema *sdna.Schema) *stream {
	order, _ := nativeOrder()
	return newStream(t, schema, order)
}

func (s *stream) payload() *binio.Writer {
	return binio.NewWriter(s.order.(binary.AppendByteOrder))
}

func (s *stream) block(code string, addr uint64, index, count int, payload []byte) *stream {
	s.out.String(code)
	s.out.I32(int32(len(payload)))
	s.out.U64(addr)
	s.out.I32(int32(index))
	s.out.I32(int32(count))
	s.out.Raw(payload)
	return s
}

// object encodes values into a typed block of the named struct.
func (s *stream) object(code string, addr uint64, structName string, objs ...map[string]any) *stream {
	s.t.Helper()
	st, ok := s.schema.Lookup(structName)
	require.True(s.t, ok, structName)
	w := s.payload()
	enc := &sdna.Encoder{W: w}
	for _, fields := range objs {
		o := sdna.NewObject(st)
		for k, v := range fields {
			require.NoError(s.t, setPath(o, k, v), k)
		}
		require.NoError(s.t, enc.EncodeStruct(o))
	}
	return s.block(code, addr, st.Index, len(objs), w.Bytes())
}

func setPath(o *sdna.Object, path string, v any) error {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			inner, _ := o.Get(path[:i]).(*sdna.Object)
			if inner == nil {
				return o.Set(path[:i], nil)
			}
			return setPath(inner, path[i+1:], v)
		}
	}
	return o.Set(path, v)
}

func (s *stream) finish() []byte {
	s.block(CodeSchema, 0xD0A, 0, 1, s.schema.Encode(s.order.(binary.AppendByteOrder)))
	s.block(CodeEnd, 0, 0, 0, nil)
	return s.out.Bytes()
}

func addr(a uint64) sdna.Address { return sdna.Address(a) }
