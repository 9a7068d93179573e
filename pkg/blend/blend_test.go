package blend

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/customdata"
	"github.com/samcharles93/blendkit/pkg/idprop"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

func buildSchema(t *testing.T, b *sdna.Builder) *sdna.Schema {
	t.Helper()
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestMinimalStreamRoundTrip(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next", "Link *prev").
		Struct("Thing", "int a", "float b"))

	s := nativeStream(t, schema)
	w := s.payload()
	w.I32(7)
	w.F32(2.5)
	s.block("OB\x00\x00", 1, 1, 1, w.Bytes())
	s.block(CodeSchema, 2, 0, 1, schema.Encode(s.order.(binary.AppendByteOrder)))
	s.block(CodeEnd, 0, 0, 0, nil)
	src := bytes.Clone(s.out.Bytes())

	doc, err := Decode(quietContext(), src)
	require.NoError(t, err)
	assert.Equal(t, "300", doc.Version)
	assert.Equal(t, []string{"ob"}, doc.Main.Keys())
	entries := doc.Main.Get("ob")
	require.Len(t, entries, 1)
	assert.Equal(t, int32(7), entries[0].Object.Get("a"))
	assert.Equal(t, float32(2.5), entries[0].Object.Get("b"))

	out, err := Encode(quietContext(), doc, EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestBigEndianInput(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next").
		Struct("Thing", "int a", "float b", "double c"))
	data := newStream(t, schema, binary.BigEndian).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 7, "b": 2.5, "c": -1.25}).
		finish()

	doc, err := Decode(quietContext(), data)
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, doc.Order)
	o := doc.Main.Get("ob")[0].Object
	assert.Equal(t, int32(7), o.Get("a"))
	assert.Equal(t, float32(2.5), o.Get("b"))
	assert.Equal(t, -1.25, o.Get("c"))
}

// sceneSchema describes a small document with every pointer shape the
// linker handles.
func sceneSchema(t *testing.T) *sdna.Schema {
	return buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next", "Link *prev").
		Struct("ListBase", "void *first", "void *last").
		Struct("ID", "void *next", "void *prev", "char name[24]", "IDProperty *properties").
		Struct("FileGlobal", "char subvstr[4]", "int fileflags", "void *curscreen").
		Struct("Mesh", "ID id", "float *co", "int totvert", "Material **mat", "short totcol", "short flag", "CustomData vdata", "Link *extra").
		Struct("Material", "ID id", "float r", "float g", "float b").
		Struct("CustomData", "CustomDataLayer *layers", "int totlayer").
		Struct("CustomDataLayer", "int type", "char name[8]", "void *data").
		Struct("MLoopCol", "uchar r", "uchar g", "uchar b", "uchar a").
		Struct("IDPropertyData", "void *pointer", "ListBase group", "int val", "int val2").
		Struct("IDProperty", "IDProperty *next", "IDProperty *prev", "char type", "char subtype", "short flag", "char name[16]", "IDPropertyData data", "int len").
		Struct("Orphan", "int value", "Orphan *self"))
}

func sceneStream(t *testing.T) []byte {
	t.Helper()
	s := nativeStream(t, sceneSchema(t))

	co := s.payload()
	for _, f := range []float32{0, 1, 2, 3, 4, 5} {
		co.F32(f)
	}
	mats := s.payload()
	mats.U64(0x400)
	mats.U64(0x999)
	attr := s.payload()
	for _, f := range []float32{1, 1, 1, 2, 2, 2} {
		attr.F32(f)
	}

	return s.
		object(CodeGlobal, 0x10, "FileGlobal", map[string]any{"subvstr": "v1", "curscreen": addr(0x100)}).
		object("ME\x00\x00", 0x100, "Mesh", map[string]any{
			"id.name":        "MECube",
			"id.properties":  addr(0x500),
			"co":             addr(0x200),
			"totvert":        2,
			"mat":            addr(0x300),
			"totcol":         2,
			"vdata.layers":   addr(0x600),
			"vdata.totlayer": 2,
			"extra":          addr(0),
		}).
		block(CodeData, 0x200, 0, 1, co.Bytes()).
		block(CodeData, 0x300, 0, 1, mats.Bytes()).
		object("MA\x00\x00", 0x400, "Material", map[string]any{"id.name": "MARed", "r": 1}).
		object(CodeData, 0x600, "CustomDataLayer",
			map[string]any{"type": int32(customdata.PropFloat3), "name": "pos", "data": addr(0x700)},
			map[string]any{"type": int32(customdata.PropByteColor), "name": "col", "data": addr(0x800)}).
		block(CodeData, 0x700, 0, 1, attr.Bytes()).
		object(CodeData, 0x800, "MLoopCol",
			map[string]any{"r": 10, "g": 20, "b": 30, "a": 255},
			map[string]any{"r": 40, "g": 50, "b": 60, "a": 255}).
		object(CodeData, 0x500, "IDProperty", map[string]any{
			"type": uint8(idprop.Group), "name": "root",
			"data.group.first": addr(0x510), "data.group.last": addr(0x520),
		}).
		object(CodeData, 0x510, "IDProperty", map[string]any{
			"type": uint8(idprop.Float), "name": "scale", "next": addr(0x520),
			"data.val": int32(math.Float32bits(1.5)),
		}).
		object(CodeData, 0x520, "IDProperty", map[string]any{
			"type": uint8(idprop.String), "name": "label", "prev": addr(0x510),
			"data.pointer": addr(0x530), "len": 3,
		}).
		block(CodeData, 0x530, 0, 1, []byte("hi\x00")).
		object(CodeData, 0x900, "Orphan", map[string]any{"value": 9, "self": addr(0x900)}).
		block(CodeRender, 0, 0, 1, []byte("render")).
		block(CodeThumbnail, 0, 0, 1, []byte("thumb")).
		finish()
}

func TestLinkedScene(t *testing.T) {
	t.Parallel()
	doc, err := Decode(quietContext(), sceneStream(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"me", "ma"}, doc.Main.Keys())
	mesh, ok := doc.Lookup("me", "Cube")
	require.True(t, ok)
	mat, ok := doc.Lookup("ma", "Red")
	require.True(t, ok)
	assert.Equal(t, "MECube", mesh.Path("id.name").(sdna.Text).Value, "registry names do not rewrite the field")

	require.NotNil(t, doc.Global)
	assert.Same(t, mesh, doc.Global.Get("curscreen"), "void pointer to a typed block resolves")
	assert.Equal(t, []byte("render"), doc.Render)
	assert.Equal(t, []byte("thumb"), doc.Thumbnail)

	co := mesh.Get("co").(*sdna.TypedArray)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, co.Values)
	stored, _ := doc.Addresses.Lookup(0x200)
	assert.Same(t, co, stored, "finished buffers replace their address map entry")

	mats := mesh.Get("mat").(*sdna.PointerArray)
	require.Len(t, mats.Targets, 2)
	assert.Same(t, mat, mats.Targets[0])
	assert.Nil(t, mats.Targets[1], "unknown addresses become explicit nil")
	assert.Nil(t, mesh.Get("extra"))

	layers := mesh.Path("vdata.layers").(*sdna.ObjectList)
	require.Len(t, layers.Items, 2)
	pos := layers.Items[0].Get("data").(*customdata.Layer)
	assert.Equal(t, []any{float32(2), float32(2), float32(2)}, pos.Values[1])
	col := layers.Items[1].Get("data").(*customdata.Layer)
	assert.Equal(t, []any{uint8(40), uint8(50), uint8(60), uint8(255)}, col.Values[1])

	root := mesh.Path("id.properties").(*sdna.Object)
	members := idprop.Value(root).(*idprop.Members)
	require.Len(t, members.Items, 2)
	assert.Equal(t, float32(1.5), idprop.Value(members.ByName["scale"]))
	assert.Equal(t, "hi", idprop.Value(members.ByName["label"]))

	orphanBlock, _ := doc.Addresses.Lookup(0x900)
	orphan := orphanBlock.(*sdna.Object)
	assert.Same(t, orphan, orphan.Get("self"), "unreferenced typed blocks are linked and cycles terminate")

	st := doc.Stats()
	assert.Equal(t, 2, st.Named)
	assert.Greater(t, st.Raw, 0)
}

func TestSceneRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := quietContext()
	doc, err := Decode(ctx, sceneStream(t))
	require.NoError(t, err)

	first, err := Encode(ctx, doc, EncodeOptions{})
	require.NoError(t, err)
	again, err := Decode(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, doc.Main.Keys(), again.Main.Keys())
	for _, key := range doc.Main.Keys() {
		assert.Len(t, again.Main.Get(key), len(doc.Main.Get(key)), key)
	}

	mesh, _ := again.Lookup("me", "Cube")
	mat, _ := again.Lookup("ma", "Red")
	require.NotNil(t, mesh)
	assert.Same(t, mesh, again.Global.Get("curscreen"))
	assert.Same(t, mat, mesh.Get("mat").(*sdna.PointerArray).Targets[0])
	assert.Equal(t, float32(1), mat.Get("r"))
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, mesh.Get("co").(*sdna.TypedArray).Values)

	layers := mesh.Path("vdata.layers").(*sdna.ObjectList)
	col := layers.Items[1].Get("data").(*customdata.Layer)
	assert.Equal(t, []any{uint8(10), uint8(20), uint8(30), uint8(255)}, col.Values[0])

	members := idprop.Value(mesh.Path("id.properties").(*sdna.Object)).(*idprop.Members)
	require.Len(t, members.Items, 2)
	assert.Equal(t, float32(1.5), idprop.Value(members.ByName["scale"]))
	assert.Equal(t, "hi", idprop.Value(members.ByName["label"]))
	assert.Same(t, members.Items[0], members.Items[1].Get("prev"))

	second, err := Encode(ctx, again, EncodeOptions{})
	require.NoError(t, err)
	if !bytes.Equal(first, second) {
		t.Fatalf("encoding is not a fixed point:\n%s", spew.Sdump(again.Stats(), doc.Stats()))
	}
	assert.Nil(t, again.Render, "REND is not written back")
}

func TestDeferredVoidPointer(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next").
		Struct("Holder", "void *blob", "float *typed"))

	s := newStream(t, schema, binary.LittleEndian)
	w := s.payload()
	w.F32(1)
	w.F32(2)
	data := s.
		object("HO\x00\x00", 0x10, "Holder", map[string]any{"blob": addr(0x20), "typed": addr(0x20)}).
		block(CodeData, 0x20, 0, 1, w.Bytes()).
		finish()

	doc, err := Decode(quietContext(), data)
	require.NoError(t, err)
	h := doc.Main.Get("ho")[0].Object
	assert.Same(t, h.Get("typed"), h.Get("blob"), "deferred void pointer picks up the typed array")
	assert.Equal(t, []float32{1, 2}, h.Get("typed").(*sdna.TypedArray).Values)
}

func TestLinkErrors(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next").
		Struct("Holder", "int n", "void *blob").
		Struct("Owner", "Link *link"))

	voidData := newStream(t, schema, binary.LittleEndian).
		object("HO\x00\x00", 0x10, "Holder", map[string]any{"blob": addr(0x20)}).
		block(CodeData, 0x20, 0, 1, []byte{1, 2, 3, 4}).
		finish()
	_, err := Decode(quietContext(), voidData)
	require.ErrorIs(t, err, sdna.ErrLink)
	var le *LinkError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Holder", le.Struct)
	assert.Equal(t, "blob", le.Field)
	assert.Equal(t, addr(0x20), le.Addr)

	structData := newStream(t, schema, binary.LittleEndian).
		object("OW\x00\x00", 0x10, "Owner", map[string]any{"link": addr(0x20)}).
		block(CodeData, 0x20, 0, 1, make([]byte, 8)).
		finish()
	_, err = Decode(quietContext(), structData)
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "link", le.Field)
}

func TestMalformedStreams(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().Struct("Thing", "int a"))
	good := newStream(t, schema, binary.LittleEndian).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 1}).
		finish()

	noSchema := newStream(t, schema, binary.LittleEndian).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 1})
	noSchema.block(CodeEnd, 0, 0, 0, nil)

	badIndex := newStream(t, schema, binary.LittleEndian).block("OB\x00\x00", 0x10, 7, 1, []byte{0, 0, 0, 0}).finish()

	cases := map[string][]byte{
		"magic":     append([]byte("BLENDEX"), good[7:]...),
		"version":   append(append([]byte{}, good[:9]...), append([]byte("3x0"), good[12:]...)...),
		"short":     good[:5],
		"truncated": good[:headerSize+blockHeaderSize+2],
		"no schema": noSchema.out.Bytes(),
		"bad index": badIndex,
	}
	for name, data := range cases {
		_, err := Decode(quietContext(), data)
		assert.ErrorIs(t, err, sdna.ErrFormat, name)
	}

	_, err := Decode(quietContext(), good)
	require.NoError(t, err)
}

func TestUnknownLayerTypeFails(t *testing.T) {
	t.Parallel()
	schema := sceneSchema(t)
	data := nativeStream(t, schema).
		object("ME\x00\x00", 0x10, "Mesh", map[string]any{"vdata.layers": addr(0x20)}).
		object(CodeData, 0x20, "CustomDataLayer", map[string]any{"type": 99}).
		finish()
	_, err := Decode(quietContext(), data)
	assert.ErrorIs(t, err, sdna.ErrCodec)
}

func TestEncodePreconditions(t *testing.T) {
	t.Parallel()
	doc, err := Decode(quietContext(), sceneStream(t))
	require.NoError(t, err)

	_, err = Encode(quietContext(), doc, EncodeOptions{Version: "3a0"})
	assert.ErrorIs(t, err, sdna.ErrPrecondition)

	_, err = Encode(quietContext(), &Document{Version: "300", Main: NewRegistry()}, EncodeOptions{})
	assert.ErrorIs(t, err, sdna.ErrPrecondition)
}

func TestWorklistRoundCap(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Raw", "int x").
		Struct("Link", "Link *next", "int v").
		Struct("Head", "Link *chain"))
	data := newStream(t, schema, binary.LittleEndian).
		object("HE\x00\x00", 0x10, "Head", map[string]any{"chain": addr(0x20)}).
		object(CodeData, 0x20, "Link", map[string]any{"next": addr(0x30), "v": 1}).
		object(CodeData, 0x30, "Link", map[string]any{"next": addr(0x40), "v": 2}).
		object(CodeData, 0x40, "Link", map[string]any{"v": 3}).
		finish()
	doc, err := Decode(quietContext(), data)
	require.NoError(t, err)

	_, err = Encode(quietContext(), doc, EncodeOptions{MaxRounds: 2})
	assert.ErrorIs(t, err, sdna.ErrPrecondition)
	_, err = Encode(quietContext(), doc, EncodeOptions{MaxRounds: 3})
	assert.NoError(t, err)
}

// foreignOrder is the byte order the writer does not use.
func foreignOrder() binary.ByteOrder {
	if native, _ := nativeOrder(); native.String() == binary.BigEndian.String() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func TestForeignOrderOpaqueBytes(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Type("Blob", 4).
		Struct("Raw", "int x").
		Struct("Thing", "int a", "Blob b"))

	zeros := newStream(t, schema, foreignOrder()).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 1, "b": sdna.Opaque{0, 0, 0, 0}}).
		finish()
	doc, err := Decode(quietContext(), zeros)
	require.NoError(t, err)
	_, err = Encode(quietContext(), doc, EncodeOptions{})
	require.NoError(t, err, "zero bytes read the same in either order")

	filled := newStream(t, schema, foreignOrder()).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 1, "b": sdna.Opaque{1, 2, 3, 4}}).
		finish()
	doc, err = Decode(quietContext(), filled)
	require.NoError(t, err)
	_, err = Encode(quietContext(), doc, EncodeOptions{})
	assert.ErrorIs(t, err, sdna.ErrPrecondition)
}

func TestForeignOrderPassthroughLayer(t *testing.T) {
	t.Parallel()
	s := newStream(t, sceneSchema(t), foreignOrder())
	data := s.
		object("ME\x00\x00", 0x10, "Mesh", map[string]any{
			"id.name": "MEGrid", "vdata.layers": addr(0x600), "vdata.totlayer": 1,
		}).
		object(CodeData, 0x600, "CustomDataLayer",
			map[string]any{"type": int32(customdata.MDisps), "name": "disp", "data": addr(0x700)}).
		block(CodeData, 0x700, 0, 1, []byte{1, 2, 3, 4}).
		finish()

	doc, err := Decode(quietContext(), data)
	require.NoError(t, err)
	_, err = Encode(quietContext(), doc, EncodeOptions{})
	assert.ErrorIs(t, err, sdna.ErrPrecondition)
}

func TestStaleAddressesWrittenAsNull(t *testing.T) {
	t.Parallel()
	schema := buildSchema(t, sdna.NewBuilder().
		Struct("Link", "Link *next").
		Struct("Thing", "int a", "Link *link"))
	data := nativeStream(t, schema).
		object("OB\x00\x00", 0x10, "Thing", map[string]any{"a": 3}).
		finish()
	doc, err := Decode(quietContext(), data)
	require.NoError(t, err)
	o := doc.Main.Get("ob")[0].Object
	require.NoError(t, o.Set("link", sdna.Address(0xDEAD)))

	out, err := Encode(quietContext(), doc, EncodeOptions{})
	require.NoError(t, err)
	again, err := Decode(quietContext(), out)
	require.NoError(t, err)
	assert.Nil(t, again.Main.Get("ob")[0].Object.Get("link"))
}

func TestOpenAndWriteFile(t *testing.T) {
	t.Parallel()
	ctx := quietContext()
	dir := t.TempDir()
	src := sceneStream(t)

	plain := filepath.Join(dir, "scene.blend")
	require.NoError(t, os.WriteFile(plain, src, 0o644))
	doc, err := Open(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Main.Len())

	for _, codec := range []compress.Codec{compress.Gzip, compress.Zstd} {
		path := filepath.Join(dir, "scene-"+codec.String()+".blend")
		require.NoError(t, WriteFile(ctx, path, doc, EncodeOptions{Compression: codec}))
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, codec, compress.Sniff(raw))

		back, err := Open(ctx, path)
		require.NoError(t, err, codec.String())
		assert.Equal(t, doc.Main.Keys(), back.Main.Keys())
	}

	_, err = Open(ctx, filepath.Join(dir, "missing.blend"))
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	t.Parallel()
	doc, err := Read(quietContext(), bytes.NewReader(sceneStream(t)))
	require.NoError(t, err)
	assert.NotNil(t, doc.Schema)
}

func TestCodeKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ob", KeyForCode("OB\x00\x00"))
	assert.Equal(t, "OB\x00\x00", CodeForKey("ob"))
	assert.Equal(t, "WOTE", CodeForKey(KeyForCode("WOTE")))
	assert.True(t, IsInfrastructure(CodeGlobal))
	assert.False(t, IsInfrastructure("SC\x00\x00"))
}
