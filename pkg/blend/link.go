package blend

import (
	"errors"
	"fmt"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/customdata"
	"github.com/samcharles93/blendkit/pkg/idprop"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// voidSite classifies the owner of a void pointer to an untyped buffer.
type voidSite uint8

const (
	siteGeneric voidSite = iota
	siteAttributeLayer
	siteProperty
)

func siteOf(st *sdna.Struct) voidSite {
	switch st.Name {
	case customdata.StructName:
		return siteAttributeLayer
	case idprop.DataStructName:
		return siteProperty
	default:
		return siteGeneric
	}
}

type deferredLink struct {
	owner *sdna.Object
	field *sdna.Field
	addr  sdna.Address
	set   func(any)
}

type linker struct {
	doc      *Document
	log      logger.Logger
	visited  map[*sdna.Object]bool
	stack    []*sdna.Object
	deferred []deferredLink
	layers   []*sdna.Object
	props    []*sdna.Object
	missing  int
}

// link resolves every address-valued field of doc in place, then decodes
// attribute layers and property trees.
func link(log logger.Logger, doc *Document) error {
	l := &linker{doc: doc, log: log, visited: map[*sdna.Object]bool{}}

	for _, e := range doc.Main.Entries() {
		if err := l.walk(e.Object); err != nil {
			return err
		}
	}
	for _, b := range doc.Blocks {
		switch v := b.Value.(type) {
		case *sdna.Object:
			if err := l.walk(v); err != nil {
				return err
			}
		case *sdna.ObjectList:
			for _, o := range v.Items {
				if err := l.walk(o); err != nil {
					return err
				}
			}
		}
	}
	if err := l.retryDeferred(); err != nil {
		return err
	}
	if l.missing > 0 {
		log.Debug("pointers to unknown addresses cleared", "count", l.missing)
	}

	for _, layer := range l.layers {
		if err := customdata.Decode(layer, doc.Schema, doc.Order); err != nil {
			return fmt.Errorf("decode attribute layer: %w", err)
		}
	}
	dec := idprop.NewDecoder(doc.Order)
	for _, p := range l.props {
		if err := dec.Decode(p); err != nil {
			return fmt.Errorf("decode property: %w", err)
		}
	}
	log.Debug("linked", "objects", len(l.visited), "layers", len(l.layers), "properties", len(l.props))
	return nil
}

func (l *linker) push(o *sdna.Object) {
	if o != nil && !l.visited[o] {
		l.stack = append(l.stack, o)
	}
}

func (l *linker) pushValue(v any) {
	switch x := v.(type) {
	case *sdna.Object:
		l.push(x)
	case *sdna.ObjectList:
		for _, o := range x.Items {
			l.push(o)
		}
	}
}

// walk links root and everything reachable from it.
func (l *linker) walk(root *sdna.Object) error {
	l.push(root)
	for len(l.stack) > 0 {
		o := l.stack[len(l.stack)-1]
		l.stack = l.stack[:len(l.stack)-1]
		if l.visited[o] {
			continue
		}
		l.visited[o] = true

		switch o.Struct.Name {
		case customdata.StructName:
			l.layers = append(l.layers, o)
		case idprop.StructName:
			l.props = append(l.props, o)
		}

		for i, f := range o.Struct.Fields {
			if err := l.linkValue(o, f, f.Type, o.Values[i], func(v any) { o.Values[i] = v }); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *linker) linkValue(owner *sdna.Object, f *sdna.Field, t *sdna.Type, v any, set func(any)) error {
	switch t.Kind {
	case sdna.KindStruct:
		if o, ok := v.(*sdna.Object); ok {
			l.push(o)
		}
	case sdna.KindArray:
		if t.Innermost().Kind == sdna.KindScalar {
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		for j := range items {
			if err := l.linkValue(owner, f, t.Elem, items[j], func(x any) { items[j] = x }); err != nil {
				return err
			}
		}
	case sdna.KindPointer:
		addr, ok := v.(sdna.Address)
		if !ok {
			return nil
		}
		target, deferred, err := l.resolve(owner, f, t.Elem, addr)
		if err != nil {
			return err
		}
		if deferred {
			l.deferred = append(l.deferred, deferredLink{owner: owner, field: f, addr: addr, set: set})
			return nil
		}
		set(target)
	}
	return nil
}

func (l *linker) resolve(owner *sdna.Object, f *sdna.Field, pointee *sdna.Type, addr sdna.Address) (any, bool, error) {
	if addr == 0 {
		return nil, false, nil
	}
	target, ok := l.doc.Addresses.Lookup(addr)
	if !ok {
		l.missing++
		l.log.Debug("pointer to unknown address", "struct", owner.Struct.Name, "field", f.Name, "addr", addr.String())
		return nil, false, nil
	}
	buf, ok := target.(*sdna.Buffer)
	if !ok {
		l.pushValue(target)
		return target, false, nil
	}

	inner := pointee.Innermost()
	switch inner.Kind {
	case sdna.KindVoid:
		if siteOf(owner.Struct) != siteGeneric {
			return buf, false, nil
		}
		return nil, true, nil
	case sdna.KindScalar:
		arr, err := sdna.Finish(buf, pointee, l.doc.Order)
		if err != nil {
			return nil, false, &LinkError{Struct: owner.Struct.Name, Field: f.Name, Addr: addr, Reason: err.Error()}
		}
		l.doc.Addresses.Store(addr, arr)
		return arr, false, nil
	case sdna.KindPointer:
		arr, err := l.pointerArray(buf, inner.Elem)
		if err != nil {
			return nil, false, err
		}
		l.doc.Addresses.Store(addr, arr)
		return arr, false, nil
	default:
		return nil, false, &LinkError{
			Struct: owner.Struct.Name,
			Field:  f.Name,
			Addr:   addr,
			Reason: fmt.Sprintf("%s points to an untyped buffer", pointee),
		}
	}
}

// pointerArray resolves a buffer of addresses element by element.
func (l *linker) pointerArray(buf *sdna.Buffer, elem *sdna.Type) (*sdna.PointerArray, error) {
	r := binio.NewReader(buf.Data, l.doc.Order)
	n := len(buf.Data) / sdna.PointerSize
	arr := &sdna.PointerArray{Elem: elem, Targets: make([]any, n), Count: buf.Count}
	for i := range n {
		a, err := r.U64()
		if err != nil {
			return nil, err
		}
		addr := sdna.Address(a)
		if addr == 0 {
			continue
		}
		target, ok := l.doc.Addresses.Lookup(addr)
		if !ok {
			l.missing++
			continue
		}
		if b, raw := target.(*sdna.Buffer); raw && elem.Innermost().Kind == sdna.KindScalar {
			fin, err := sdna.Finish(b, elem, l.doc.Order)
			if err != nil {
				return nil, err
			}
			l.doc.Addresses.Store(addr, fin)
			target = fin
		}
		l.pushValue(target)
		arr.Targets[i] = target
	}
	return arr, nil
}

// retryDeferred gives queued void pointers a second chance now that other
// pointers may have typed their buffers.
func (l *linker) retryDeferred() error {
	var errs []error
	for _, d := range l.deferred {
		target, _ := l.doc.Addresses.Lookup(d.addr)
		if _, raw := target.(*sdna.Buffer); raw || target == nil {
			errs = append(errs, &LinkError{
				Struct: d.owner.Struct.Name,
				Field:  d.field.Name,
				Addr:   d.addr,
				Reason: "void pointer to an untyped buffer",
			})
			continue
		}
		d.set(target)
	}
	l.deferred = nil
	return errors.Join(errs...)
}
