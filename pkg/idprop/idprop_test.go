package idprop

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

type fixture struct {
	schema *sdna.Schema
	prop   *sdna.Struct
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s, err := sdna.NewBuilder().
		Struct("ListBase", "void *first", "void *last").
		Struct("IDPropertyData", "void *pointer", "ListBase group", "int val", "int val2").
		Struct("IDProperty", "IDProperty *next", "IDProperty *prev", "char type", "char subtype",
			"short flag", "char name[64]", "int saved", "IDPropertyData data", "int len", "int totallen").
		Build()
	require.NoError(t, err)
	st, ok := s.Lookup(StructName)
	require.True(t, ok)
	return fixture{schema: s, prop: st}
}

func (f fixture) new(name string, typ Type) *sdna.Object {
	o := sdna.NewObject(f.prop)
	_ = o.Set("name", sdna.NewText(name))
	_ = o.Set("type", uint8(typ))
	return o
}

func data(o *sdna.Object) *sdna.Object { return o.Get("data").(*sdna.Object) }

func TestFloatBitPattern(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.new("scale", Float)
	_ = data(p).Set("val", int32(math.Float32bits(1.5)))

	require.NoError(t, NewDecoder(binary.LittleEndian).Decode(p))
	assert.Equal(t, float32(1.5), Value(p))

	low, err := Lower(p, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, int32(math.Float32bits(1.5)), data(low).Get("val"))
	assert.Equal(t, float32(1.5), Value(p), "lowering does not touch the source")
}

func TestDoubleWordOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bits := math.Float64bits(math.Pi)
	lo, hi := int32(uint32(bits)), int32(uint32(bits>>32))

	for _, tc := range []struct {
		order    binary.ByteOrder
		val, val2 int32
	}{
		{binary.LittleEndian, lo, hi},
		{binary.BigEndian, hi, lo},
	} {
		p := f.new("pi", Double)
		_ = data(p).Set("val", tc.val)
		_ = data(p).Set("val2", tc.val2)
		require.NoError(t, NewDecoder(tc.order).Decode(p))
		assert.Equal(t, math.Pi, Value(p), "%v", tc.order)

		low, err := Lower(p, tc.order.(binary.AppendByteOrder))
		require.NoError(t, err)
		assert.Equal(t, tc.val, data(low).Get("val"))
		assert.Equal(t, tc.val2, data(low).Get("val2"))
	}
}

func TestBooleanAndString(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	dec := NewDecoder(binary.LittleEndian)

	b := f.new("flag", Boolean)
	_ = data(b).Set("val", int32(1))
	require.NoError(t, dec.Decode(b))
	assert.Equal(t, true, Value(b))

	s := f.new("label", String)
	_ = data(s).Set("pointer", &sdna.Buffer{Data: []byte("hello\x00junk"), Count: 1})
	require.NoError(t, dec.Decode(s))
	assert.Equal(t, "hello", Value(s))

	low, err := Lower(s, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00"), data(low).Get("pointer").(*sdna.Buffer).Data)
	assert.Equal(t, int32(6), low.Get("len"))

	lowb, err := Lower(b, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, int32(1), data(lowb).Get("val"))
}

func TestArraySubtypes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	w := binio.NewWriter(binary.LittleEndian)
	for _, v := range []float32{1, 2, 3} {
		w.F32(v)
	}
	floats := f.new("weights", Array)
	_ = floats.Set("subtype", uint8(Float))
	_ = floats.Set("len", int32(3))
	_ = data(floats).Set("pointer", &sdna.Buffer{Data: w.Bytes(), Count: 1})

	w2 := binio.NewWriter(binary.LittleEndian)
	w2.I32(-1)
	w2.I32(7)
	ints := f.new("ids", Array)
	_ = ints.Set("subtype", uint8(Int))
	_ = ints.Set("len", int32(2))
	_ = data(ints).Set("pointer", &sdna.Buffer{Data: w2.Bytes(), Count: 1})

	bools := f.new("mask", Array)
	_ = bools.Set("subtype", uint8(Boolean))
	_ = bools.Set("len", int32(3))
	_ = data(bools).Set("pointer", &sdna.Buffer{Data: []byte{1, 0, 2}, Count: 1})

	dec := NewDecoder(binary.LittleEndian)
	for _, p := range []*sdna.Object{floats, ints, bools} {
		require.NoError(t, dec.Decode(p))
	}
	assert.Equal(t, []float32{1, 2, 3}, Value(floats))
	assert.Equal(t, []int32{-1, 7}, Value(ints))
	assert.Equal(t, []bool{true, false, true}, Value(bools))

	low, err := Lower(floats, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, w.Bytes(), data(low).Get("pointer").(*sdna.Buffer).Data)

	lowb, err := Lower(bools, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1}, data(lowb).Get("pointer").(*sdna.Buffer).Data)
}

func TestGroupFlattening(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	a := f.new("a", Int)
	_ = data(a).Set("val", int32(5))
	b := f.new("b", Float)
	_ = data(b).Set("val", int32(math.Float32bits(0.5)))
	inner := f.new("inner", Group)
	c := f.new("c", Boolean)
	_ = data(c).Set("val", int32(0))
	_ = data(inner).Get("group").(*sdna.Object).Set("first", c)

	_ = a.Set("next", b)
	_ = b.Set("prev", a)
	_ = b.Set("next", inner)
	_ = inner.Set("prev", b)

	root := f.new("root", Group)
	list := data(root).Get("group").(*sdna.Object)
	_ = list.Set("first", a)
	_ = list.Set("last", inner)

	require.NoError(t, NewDecoder(binary.LittleEndian).Decode(root))
	m := Value(root).(*Members)
	require.Len(t, m.Items, 3)
	assert.Same(t, b, m.ByName["b"])
	assert.Equal(t, float32(0.5), Value(b))
	assert.Equal(t, false, Value(c), "nested groups are decoded recursively")

	low, err := Lower(root, binary.LittleEndian)
	require.NoError(t, err)
	lowList := data(low).Get("group").(*sdna.Object)
	assert.Same(t, a, lowList.Get("first"))
	assert.Same(t, inner, lowList.Get("last"))
}

func TestGroupCycleTerminates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.new("a", Int)
	b := f.new("b", Int)
	_ = a.Set("next", b)
	_ = b.Set("next", a)
	root := f.new("root", Group)
	_ = data(root).Get("group").(*sdna.Object).Set("first", a)

	require.NoError(t, NewDecoder(binary.LittleEndian).Decode(root))
	assert.Len(t, Value(root).(*Members).Items, 2)
}

func TestIDPArray(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	x := f.new("", Float)
	_ = data(x).Set("val", int32(math.Float32bits(2)))
	y := f.new("", Int)
	arr := f.new("list", IDPArray)
	_ = data(arr).Set("pointer", &sdna.ObjectList{Struct: f.prop, Items: []*sdna.Object{x, y}})

	require.NoError(t, NewDecoder(binary.LittleEndian).Decode(arr))
	items := Value(arr).([]*sdna.Object)
	require.Len(t, items, 2)
	assert.Equal(t, float32(2), Value(x))

	low, err := Lower(arr, binary.LittleEndian)
	require.NoError(t, err)
	assert.Len(t, data(low).Get("pointer").(*sdna.ObjectList).Items, 2)
	assert.Equal(t, int32(2), low.Get("len"))
}

func TestUnknownDiscriminants(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	p := f.new("odd", Type(42))
	err := NewDecoder(binary.LittleEndian).Decode(p)
	var ute *UnknownTypeError
	require.True(t, errors.As(err, &ute))
	assert.False(t, ute.Subtype)
	assert.ErrorIs(t, err, sdna.ErrCodec)

	arr := f.new("odd_array", Array)
	_ = arr.Set("subtype", uint8(Group))
	err = NewDecoder(binary.LittleEndian).Decode(arr)
	require.True(t, errors.As(err, &ute))
	assert.True(t, ute.Subtype)
	assert.Equal(t, "odd_array", ute.Name)
}
