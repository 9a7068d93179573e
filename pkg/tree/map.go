package tree

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Map is a string-keyed map that keeps insertion order in every encoding.
type Map struct {
	keys []string
	vals map[string]any
}

func NewMap(capacity int) *Map {
	return &Map{keys: make([]string, 0, capacity), vals: make(map[string]any, capacity)}
}

// Set stores v under key. A new key goes last; an existing key keeps its
// position.
func (m *Map) Set(key string, v any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *Map) Get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map) Keys() []string { return m.keys }

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Map) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: make([]*yaml.Node, 0, 2*len(m.keys))}
	for _, k := range m.keys {
		v := &yaml.Node{}
		if err := v.Encode(m.vals[k]); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, v)
	}
	return n, nil
}

// MarshalCBOR writes a definite-length map in insertion order. Values use
// the package encoder.
func (m *Map) MarshalCBOR() ([]byte, error) {
	out := cborHead(5, len(m.keys))
	for _, k := range m.keys {
		kb, err := encMode.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := encMode.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, vb...)
	}
	return out, nil
}

// cborHead encodes a major type and argument (RFC 8949 section 3).
func cborHead(major byte, n int) []byte {
	m := major << 5
	switch {
	case n < 24:
		return []byte{m | byte(n)}
	case n <= math.MaxUint8:
		return []byte{m | 24, byte(n)}
	case n <= math.MaxUint16:
		return binary.BigEndian.AppendUint16([]byte{m | 25}, uint16(n))
	default:
		return binary.BigEndian.AppendUint32([]byte{m | 26}, uint32(n))
	}
}
