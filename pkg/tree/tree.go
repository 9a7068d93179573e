// Package tree projects a linked document onto plain ordered data for
// printing and export. Projection never modifies the document.
package tree

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/customdata"
	"github.com/samcharles93/blendkit/pkg/idprop"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// DefaultThreshold is the packed layer size in bytes above which layers are
// rendered as compressed strings.
const DefaultThreshold = 512

const (
	refPrefix    = "#ref#"
	packedPrefix = "#comparray#"
)

type Options struct {
	// Threshold enables packed layer strings for layers larger than this
	// many bytes. Zero or less renders every layer as a value list.
	Threshold int
	Codec     compress.Codec
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Codec: compress.Zlib}
}

// Projector renders objects of one document.
type Projector struct {
	doc   *blend.Document
	opts  Options
	order binary.AppendByteOrder
}

func New(doc *blend.Document, opts Options) *Projector {
	order, ok := doc.Order.(binary.AppendByteOrder)
	if !ok {
		order = binary.LittleEndian
	}
	return &Projector{doc: doc, opts: opts, order: order}
}

// Document renders every named object grouped by registry key.
func (p *Projector) Document() *Map {
	root := NewMap(2)
	root.Set("version", p.doc.Version)
	main := NewMap(len(p.doc.Main.Keys()))
	for _, key := range p.doc.Main.Keys() {
		entries := p.doc.Main.Get(key)
		list := make([]any, len(entries))
		for i, e := range entries {
			list[i] = p.Object(e.Object)
		}
		main.Set(key, list)
	}
	root.Set("main", main)
	return root
}

// Object renders o and everything it reaches. Back-reference numbering
// starts afresh for each call.
func (p *Projector) Object(o *sdna.Object) any {
	if o == nil {
		return nil
	}
	r := &render{p: p, ids: map[any]int{}}
	return r.object(o)
}

// tag names a registered object as "KEY:name".
func (p *Projector) tag(o *sdna.Object) (string, bool) {
	e, ok := p.doc.Main.EntryOf(o)
	if !ok {
		return "", false
	}
	return strings.ToUpper(e.Key) + ":" + e.Name, true
}

func (p *Projector) pack(data []byte) string {
	codec := p.opts.Codec
	out, err := compress.Shrink(codec, data)
	if err != nil {
		codec, out = compress.None, data
	}
	return packedPrefix + codec.String() + ":" + base64.StdEncoding.EncodeToString(out)
}

// Unpack reverses a packed layer string. ok is false when s is not one.
func Unpack(s string) (data []byte, ok bool, err error) {
	rest, found := strings.CutPrefix(s, packedPrefix)
	if !found {
		return nil, false, nil
	}
	name, payload, found := strings.Cut(rest, ":")
	if !found {
		return nil, true, errors.New("packed array without codec")
	}
	codec, err := compress.Parse(name)
	if err != nil {
		return nil, true, err
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, true, fmt.Errorf("packed array: %w", err)
	}
	data, err = compress.Decompress(codec, raw)
	return data, true, err
}

type render struct {
	p    *Projector
	ids  map[any]int
	next int
}

// seen numbers v on first sight and returns its back reference afterwards.
func (r *render) seen(v any) (string, bool) {
	if id, ok := r.ids[v]; ok {
		return refPrefix + strconv.Itoa(id), true
	}
	r.next++
	r.ids[v] = r.next
	return "", false
}

func (r *render) object(o *sdna.Object) any {
	if ref, ok := r.seen(o); ok {
		return ref
	}
	if o.Struct.Name == idprop.StructName {
		return r.property(o)
	}
	m := NewMap(len(o.Struct.Fields))
	for i, f := range o.Struct.Fields {
		if strings.HasPrefix(f.Name, "_pad") {
			continue
		}
		var v any
		if i < len(o.Values) {
			v = o.Values[i]
		}
		m.Set(f.Name, r.value(f.Type, v))
	}
	return m
}

func (r *render) value(t *sdna.Type, v any) any {
	switch t.Kind {
	case sdna.KindScalar:
		return v
	case sdna.KindArray:
		switch x := v.(type) {
		case nil:
			return nil
		case sdna.Text:
			return x.Value
		case []any:
			out := make([]any, len(x))
			for i := range x {
				out[i] = r.value(t.Elem, x[i])
			}
			return out
		default:
			return sdna.Elements(v)
		}
	case sdna.KindStruct:
		if o, ok := v.(*sdna.Object); ok && o != nil {
			return r.object(o)
		}
		return nil
	case sdna.KindPointer:
		return r.pointer(v)
	default:
		if b, ok := v.(sdna.Opaque); ok {
			return []byte(b)
		}
		return nil
	}
}

func (r *render) pointer(v any) any {
	switch x := v.(type) {
	case *sdna.Object:
		if x == nil {
			return nil
		}
		if tag, ok := r.p.tag(x); ok {
			return tag
		}
		return r.object(x)
	case *sdna.ObjectList:
		if ref, ok := r.seen(x); ok {
			return ref
		}
		out := make([]any, len(x.Items))
		for i, o := range x.Items {
			out[i] = r.pointer(o)
		}
		return out
	case *sdna.TypedArray:
		if ref, ok := r.seen(x); ok {
			return ref
		}
		return sdna.Elements(x.Values)
	case *sdna.PointerArray:
		if ref, ok := r.seen(x); ok {
			return ref
		}
		out := make([]any, len(x.Targets))
		for i, t := range x.Targets {
			out[i] = r.pointer(t)
		}
		return out
	case *sdna.Buffer:
		if ref, ok := r.seen(x); ok {
			return ref
		}
		if r.p.opts.Threshold > 0 && len(x.Data) > r.p.opts.Threshold {
			return r.p.pack(x.Data)
		}
		return sdna.Elements(x.Data)
	case *customdata.Layer:
		if ref, ok := r.seen(x); ok {
			return ref
		}
		return r.layer(x)
	default:
		// nil and stale addresses
		return nil
	}
}

func (r *render) layer(l *customdata.Layer) any {
	if l.Passthrough {
		return r.pointer(l.Raw)
	}
	if size := l.ElemSize(); r.p.opts.Threshold > 0 && size > 0 && size*l.Len() > r.p.opts.Threshold {
		if data, err := l.Encode(r.p.order); err == nil {
			return r.p.pack(data)
		}
	}
	out := make([]any, len(l.Values))
	for i, v := range l.Values {
		out[i] = r.element(v)
	}
	return out
}

func (r *render) element(v any) any {
	switch x := v.(type) {
	case *sdna.Object:
		return r.pointer(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = r.element(x[i])
		}
		return out
	default:
		return v
	}
}

// property renders an IDProperty as {name, type, subtype, value|children}.
func (r *render) property(prop *sdna.Object) any {
	m := NewMap(4)
	m.Set("name", idprop.Name(prop))
	typ, sub := idprop.TypeOf(prop)
	m.Set("type", typ.String())
	if typ == idprop.Array {
		m.Set("subtype", sub.String())
	}

	v := idprop.Value(prop)
	switch typ {
	case idprop.Group:
		var children []any
		if members, ok := v.(*idprop.Members); ok {
			children = make([]any, len(members.Items))
			for i, c := range members.Items {
				children[i] = r.object(c)
			}
		}
		m.Set("children", children)
	case idprop.IDPArray:
		items, _ := v.([]*sdna.Object)
		children := make([]any, len(items))
		for i, c := range items {
			children[i] = r.object(c)
		}
		m.Set("children", children)
	case idprop.ID:
		m.Set("value", r.pointer(v))
	case idprop.Array:
		m.Set("value", sdna.Elements(v))
	default:
		m.Set("value", v)
	}
	return m
}
