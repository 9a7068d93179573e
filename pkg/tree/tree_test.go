package tree

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/customdata"
	"github.com/samcharles93/blendkit/pkg/idprop"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

type fixture struct {
	t      *testing.T
	schema *sdna.Schema
	doc    *blend.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := sdna.NewBuilder().
		Struct("ListBase", "void *first", "void *last").
		Struct("ID", "void *next", "char name[24]", "IDProperty *properties").
		Struct("Mesh", "ID id", "char _pad0[4]", "Material **mat", "CustomDataLayer *layers", "Mesh *self").
		Struct("Material", "ID id", "float r").
		Struct("Node", "int v", "Node *next").
		Struct("CustomDataLayer", "int type", "char name[8]", "void *data").
		Struct("IDPropertyData", "void *pointer", "ListBase group", "int val", "int val2").
		Struct("IDProperty", "IDProperty *next", "IDProperty *prev", "char type", "char subtype", "short flag", "char name[16]", "IDPropertyData data", "int len").
		Build()
	require.NoError(t, err)
	return &fixture{t: t, schema: s, doc: &blend.Document{
		Version:   "300",
		Order:     binary.LittleEndian,
		Schema:    s,
		Addresses: blend.NewAddressMap(),
		Main:      blend.NewRegistry(),
	}}
}

func (f *fixture) object(name string, fields map[string]any) *sdna.Object {
	f.t.Helper()
	st, ok := f.schema.Lookup(name)
	require.True(f.t, ok, name)
	o := sdna.NewObject(st)
	for k, v := range fields {
		target := o
		if head, rest, nested := strings.Cut(k, "."); nested {
			target = o.Get(head).(*sdna.Object)
			k = rest
		}
		require.NoError(f.t, target.Set(k, v), k)
	}
	return o
}

func (f *fixture) prop(name string, typ idprop.Type, fields map[string]any) *sdna.Object {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["type"] = uint8(typ)
	fields["name"] = sdna.NewText(name)
	return f.object("IDProperty", fields)
}

func (f *fixture) properties() *sdna.Object {
	ints := binio.NewWriter(binary.LittleEndian)
	for _, v := range []int32{1, 2, 3} {
		ints.I32(v)
	}
	scale := f.prop("scale", idprop.Float, map[string]any{"data.val": int32(math.Float32bits(0.5))})
	label := f.prop("label", idprop.String, map[string]any{"data.pointer": &sdna.Buffer{Data: []byte("hey\x00")}})
	list := f.prop("ids", idprop.Array, map[string]any{
		"subtype":      uint8(idprop.Int),
		"len":          int32(3),
		"data.pointer": &sdna.Buffer{Data: ints.Bytes()},
	})
	require.NoError(f.t, scale.Set("next", label))
	require.NoError(f.t, label.Set("next", list))

	root := f.prop("props", idprop.Group, nil)
	group := root.Path("data.group").(*sdna.Object)
	require.NoError(f.t, group.Set("first", scale))
	require.NoError(f.t, group.Set("last", list))
	require.NoError(f.t, idprop.NewDecoder(binary.LittleEndian).Decode(root))
	return root
}

func (f *fixture) layer(typ customdata.LayerType, name string, data []byte) *sdna.Object {
	o := f.object("CustomDataLayer", map[string]any{
		"type": int32(typ),
		"name": sdna.NewText(name),
		"data": &sdna.Buffer{Data: data, Count: 1},
	})
	require.NoError(f.t, customdata.Decode(o, f.schema, binary.LittleEndian))
	return o
}

func TestPropertyRendering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := New(f.doc, DefaultOptions())

	out, err := Marshal(p.Object(f.properties()), JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "props", "type": "GROUP",
		"children": [
			{"name": "scale", "type": "FLOAT", "value": 0.5},
			{"name": "label", "type": "STRING", "value": "hey"},
			{"name": "ids", "type": "ARRAY", "subtype": "INT", "value": [1, 2, 3]}
		]
	}`, string(out))
	s := string(out)
	assert.Less(t, strings.Index(s, `"name"`), strings.Index(s, `"type"`))
	assert.Less(t, strings.Index(s, `"type"`), strings.Index(s, `"children"`))
}

func TestObjectRendering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	big := make([]byte, 50*12)
	small := binio.NewWriter(binary.LittleEndian)
	small.I32(4)
	small.I32(-4)
	cdl, _ := f.schema.Lookup("CustomDataLayer")
	layers := &sdna.ObjectList{Struct: cdl, Items: []*sdna.Object{
		f.layer(customdata.PropFloat3, "pos", big),
		f.layer(customdata.PropInt32, "ids", small.Bytes()),
	}}

	mat := f.object("Material", map[string]any{"id.name": sdna.NewText("MARed"), "r": float32(1)})
	mesh := f.object("Mesh", map[string]any{
		"id.name":       sdna.NewText("MECube"),
		"id.properties": f.properties(),
		"mat":           &sdna.PointerArray{Targets: []any{mat, nil}},
		"layers":        layers,
	})
	require.NoError(t, mesh.Set("self", mesh))
	f.doc.Main.Add("me", "Cube", mesh)
	f.doc.Main.Add("ma", "Red", mat)

	p := New(f.doc, DefaultOptions())
	tree := p.Object(mesh).(*Map)
	assert.Equal(t, []string{"id", "mat", "layers", "self"}, tree.Keys(), "padding is omitted")

	self, _ := tree.Get("self")
	assert.Equal(t, "ME:Cube", self)
	mats, _ := tree.Get("mat")
	assert.Equal(t, []any{"MA:Red", nil}, mats)

	id, _ := tree.Get("id")
	name, _ := id.(*Map).Get("name")
	assert.Equal(t, "MECube", name)

	rendered, _ := tree.Get("layers")
	list := rendered.([]any)
	require.Len(t, list, 2)
	packed, _ := list[0].(*Map).Get("data")
	require.IsType(t, "", packed)
	assert.True(t, strings.HasPrefix(packed.(string), "#comparray#zlib:"), packed)
	data, ok, err := Unpack(packed.(string))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, big, data)

	plain, _ := list[1].(*Map).Get("data")
	assert.Equal(t, []any{int32(4), int32(-4)}, plain)

	assert.Equal(t, tree, p.Object(mesh), "projection leaves the document untouched")
	assert.IsType(t, &customdata.Layer{}, layers.Items[0].Get("data"))

	doc := p.Document()
	assert.Equal(t, []string{"version", "main"}, doc.Keys())
	main, _ := doc.Get("main")
	assert.Equal(t, []string{"me", "ma"}, main.(*Map).Keys())
}

func TestBackReferences(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.object("Node", map[string]any{"v": int32(1)})
	b := f.object("Node", map[string]any{"v": int32(2), "next": a})
	require.NoError(t, a.Set("next", b))

	p := New(f.doc, Options{})
	tree := p.Object(a).(*Map)
	next, _ := tree.Get("next")
	back, _ := next.(*Map).Get("next")
	assert.Equal(t, "#ref#1", back)

	again := p.Object(b).(*Map)
	next, _ = again.Get("next")
	back, _ = next.(*Map).Get("next")
	assert.Equal(t, "#ref#1", back, "numbering restarts per object")
}

func TestThresholdDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	layer := f.layer(customdata.PropFloat, "w", make([]byte, 4*300))
	tree := New(f.doc, Options{}).Object(layer).(*Map)
	data, _ := tree.Get("data")
	assert.Len(t, data, 300)

	tree = New(f.doc, Options{Threshold: 16, Codec: compress.None}).Object(layer).(*Map)
	data, _ = tree.Get("data")
	assert.True(t, strings.HasPrefix(data.(string), "#comparray#none:"))
}

func TestUnpackRejects(t *testing.T) {
	t.Parallel()
	_, ok, err := Unpack("plain")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, err = Unpack("#comparray#nope:AAAA")
	assert.True(t, ok)
	assert.Error(t, err)

	_, _, err = Unpack("#comparray#none:!!")
	assert.Error(t, err)
}

func TestMapEncodingsKeepOrder(t *testing.T) {
	t.Parallel()
	inner := NewMap(1)
	inner.Set("k", "v")
	m := NewMap(3)
	m.Set("z", 1)
	m.Set("a", inner)
	m.Set("m", nil)
	m.Set("z", 2)

	js, err := Marshal(m, JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z": 2, "a": {"k": "v"}, "m": null}`, string(js))
	assert.Less(t, strings.Index(string(js), `"z"`), strings.Index(string(js), `"a"`))
	assert.Less(t, strings.Index(string(js), `"a"`), strings.Index(string(js), `"m"`))

	ym, err := Marshal(m, YAML)
	require.NoError(t, err)
	assert.Equal(t, "z: 2\na:\n    k: v\nm: null\n", string(ym))

	flat := NewMap(2)
	flat.Set("z", 1)
	flat.Set("a", 2)
	cb, err := Marshal(flat, CBOR)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa2, 0x61, 'z', 0x01, 0x61, 'a', 0x02}, cb)

	var back map[string]any
	require.NoError(t, cbor.Unmarshal(cb, &back))
	assert.Equal(t, map[string]any{"z": uint64(1), "a": uint64(2)}, back)
}

func TestCBORHeadWidths(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0xb7}, cborHead(5, 23))
	assert.Equal(t, []byte{0xb8, 24}, cborHead(5, 24))
	assert.Equal(t, []byte{0xb9, 0x01, 0x00}, cborHead(5, 256))
	assert.Equal(t, []byte{0xba, 0x00, 0x01, 0x00, 0x00}, cborHead(5, 65536))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{"": JSON, "JSON": JSON, "yml": YAML, "cbor": CBOR} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestStructLayout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	st, _ := f.schema.Lookup("Node")
	out, err := Marshal(Struct(st), JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Node", "index": 4, "size": 12, "fields": [
		{"name": "v", "decl": "v", "type": "int", "offset": 0, "size": 4},
		{"name": "next", "decl": "*next", "type": "*struct Node", "offset": 4, "size": 8}
	]}`, string(out))
	assert.Len(t, Schema(f.schema), len(f.schema.Structs))
}
