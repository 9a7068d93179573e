// Package idprop decodes IDProperty trees: the tagged-union metadata
// attached to ID blocks.
package idprop

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// Schema struct names handled by this package.
const (
	StructName     = "IDProperty"
	DataStructName = "IDPropertyData"
)

// Type is the discriminant stored in IDProperty.type.
type Type uint8

const (
	String   Type = 0
	Int      Type = 1
	Float    Type = 2
	Array    Type = 5
	Group    Type = 6
	ID       Type = 7
	Double   Type = 8
	IDPArray Type = 9
	Boolean  Type = 10
)

var typeNames = map[Type]string{
	String:   "STRING",
	Int:      "INT",
	Float:    "FLOAT",
	Array:    "ARRAY",
	Group:    "GROUP",
	ID:       "ID",
	Double:   "DOUBLE",
	IDPArray: "IDPARRAY",
	Boolean:  "BOOLEAN",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "IDP(" + strconv.Itoa(int(t)) + ")"
}

// Members is the decoded form of a group's child list.
type Members struct {
	Items  []*sdna.Object
	ByName map[string]*sdna.Object
}

// UnknownTypeError reports an unsupported type or array subtype.
type UnknownTypeError struct {
	Name    string
	Type    Type
	Subtype bool
}

func (e *UnknownTypeError) Error() string {
	what := "type"
	if e.Subtype {
		what = "array subtype"
	}
	return fmt.Sprintf("property %q: unknown %s %d", e.Name, what, uint8(e.Type))
}

func (e *UnknownTypeError) Unwrap() error { return sdna.ErrCodec }

// Name returns the property's name.
func Name(prop *sdna.Object) string {
	if t, ok := prop.Get("name").(sdna.Text); ok {
		return t.Value
	}
	return ""
}

// TypeOf returns the property's discriminants.
func TypeOf(prop *sdna.Object) (typ, subtype Type) {
	t, _ := sdna.Int(prop.Get("type"))
	s, _ := sdna.Int(prop.Get("subtype"))
	return Type(t), Type(s)
}

// Value returns the decoded payload of prop: a number, bool, string, typed
// slice, *Members, []*sdna.Object or the referenced ID object depending on
// its type.
func Value(prop *sdna.Object) any {
	data, ok := prop.Get("data").(*sdna.Object)
	if !ok {
		return nil
	}
	typ, _ := TypeOf(prop)
	switch typ {
	case Int, Float, Double, Boolean:
		return data.Get("val")
	case Group:
		return data.Get("group")
	default:
		return data.Get("pointer")
	}
}

// Decoder refines linked IDProperty objects in place. A Decoder remembers
// what it has visited, so each property is decoded once.
type Decoder struct {
	order binary.ByteOrder
	done  map[*sdna.Object]bool
}

func NewDecoder(order binary.ByteOrder) *Decoder {
	return &Decoder{order: order, done: map[*sdna.Object]bool{}}
}

// Decode refines prop and every property below it.
func (d *Decoder) Decode(prop *sdna.Object) error {
	if d.done[prop] {
		return nil
	}
	d.done[prop] = true

	data, ok := prop.Get("data").(*sdna.Object)
	if !ok {
		return fmt.Errorf("property %q has no inline data: %w", Name(prop), sdna.ErrCodec)
	}
	typ, sub := TypeOf(prop)
	switch typ {
	case Int, ID:
		return nil
	case Float:
		if bits, ok := sdna.Int(data.Get("val")); ok {
			return data.Set("val", math.Float32frombits(uint32(bits)))
		}
	case Double:
		lo, ok1 := sdna.Int(data.Get("val"))
		hi, ok2 := sdna.Int(data.Get("val2"))
		if ok1 && ok2 {
			if !littleEndian(d.order) {
				lo, hi = hi, lo
			}
			return data.Set("val", math.Float64frombits(uint64(uint32(lo))|uint64(uint32(hi))<<32))
		}
	case Boolean:
		if v, ok := sdna.Int(data.Get("val")); ok {
			return data.Set("val", v != 0)
		}
	case String:
		s, err := decodeString(data.Get("pointer"))
		if err != nil {
			return fmt.Errorf("property %q: %w", Name(prop), err)
		}
		return data.Set("pointer", s)
	case Group:
		return d.decodeGroup(prop, data)
	case IDPArray:
		items, err := objects(data.Get("pointer"))
		if err != nil {
			return fmt.Errorf("property %q: %w", Name(prop), err)
		}
		for _, child := range items {
			if err := d.Decode(child); err != nil {
				return err
			}
		}
		return data.Set("pointer", items)
	case Array:
		n, _ := sdna.Int(prop.Get("len"))
		vals, err := d.decodeArray(data.Get("pointer"), sub, int(n))
		if err != nil {
			if _, unknown := err.(*UnknownTypeError); unknown {
				return &UnknownTypeError{Name: Name(prop), Type: sub, Subtype: true}
			}
			return fmt.Errorf("property %q: %w", Name(prop), err)
		}
		return data.Set("pointer", vals)
	default:
		return &UnknownTypeError{Name: Name(prop), Type: typ}
	}
	return nil
}

func (d *Decoder) decodeGroup(prop, data *sdna.Object) error {
	if _, done := data.Get("group").(*Members); done {
		return nil
	}
	list, ok := data.Get("group").(*sdna.Object)
	if !ok {
		return fmt.Errorf("group %q has no list: %w", Name(prop), sdna.ErrCodec)
	}
	m := &Members{ByName: map[string]*sdna.Object{}}
	seen := map[*sdna.Object]bool{}
	for cur, _ := list.Get("first").(*sdna.Object); cur != nil && !seen[cur]; cur, _ = cur.Get("next").(*sdna.Object) {
		seen[cur] = true
		if err := d.Decode(cur); err != nil {
			return err
		}
		m.Items = append(m.Items, cur)
		m.ByName[Name(cur)] = cur
	}
	return data.Set("group", m)
}

func (d *Decoder) decodeArray(ptr any, sub Type, n int) (any, error) {
	var raw []byte
	switch p := ptr.(type) {
	case nil:
	case *sdna.Buffer:
		raw = p.Data
	default:
		return nil, fmt.Errorf("array data is %T: %w", ptr, sdna.ErrCodec)
	}
	var elem *sdna.Type
	switch sub {
	case Float:
		elem = sdna.ScalarType("float", sdna.Float32, false)
	case Double:
		elem = sdna.ScalarType("double", sdna.Float64, false)
	case Int:
		elem = sdna.ScalarType("int", sdna.Int32, false)
	case Boolean:
		n = min(n, len(raw))
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	default:
		return nil, &UnknownTypeError{Type: sub, Subtype: true}
	}
	n = min(n, len(raw)/elem.Scalar.Size())
	return sdna.ReadScalars(binio.NewReader(raw, d.order), elem, max(n, 0))
}

func decodeString(ptr any) (string, error) {
	switch p := ptr.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	case *sdna.Buffer:
		return sdna.CString(p.Data), nil
	default:
		return "", fmt.Errorf("string data is %T: %w", ptr, sdna.ErrCodec)
	}
}

func objects(ptr any) ([]*sdna.Object, error) {
	switch p := ptr.(type) {
	case nil:
		return nil, nil
	case []*sdna.Object:
		return p, nil
	case *sdna.Object:
		return []*sdna.Object{p}, nil
	case *sdna.ObjectList:
		return p.Items, nil
	default:
		return nil, fmt.Errorf("property array data is %T: %w", ptr, sdna.ErrCodec)
	}
}

func littleEndian(order binary.ByteOrder) bool {
	return order.Uint16([]byte{1, 0}) == 1
}
