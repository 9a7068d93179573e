// Package blend reads, links and writes blend block streams.
package blend

import (
	"encoding/binary"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

// Document is a decoded and linked stream.
type Document struct {
	Version     string
	PointerByte byte
	Order       binary.ByteOrder
	Schema      *sdna.Schema
	// Blocks lists every block before the end marker, in file order.
	Blocks    []*Block
	Addresses *AddressMap
	Main      *Registry
	// Global is the decoded GLOB block, if any.
	Global *sdna.Object
	// Render and Thumbnail are the raw REND and TEST payloads. They are kept
	// for export and not written back.
	Render    []byte
	Thumbnail []byte
}

// Lookup returns the main object registered under key and name.
func (d *Document) Lookup(key, name string) (*sdna.Object, bool) {
	e, ok := d.Main.Find(key, name)
	if !ok {
		return nil, false
	}
	return e.Object, true
}

// Stats summarises a document for logs and inspection output.
type Stats struct {
	Blocks    int `json:"blocks"`
	Typed     int `json:"typed"`
	Raw       int `json:"raw"`
	Named     int `json:"named"`
	Structs   int `json:"structs"`
	Addresses int `json:"addresses"`
}

func (d *Document) Stats() Stats {
	s := Stats{
		Blocks:    len(d.Blocks),
		Named:     d.Main.Len(),
		Addresses: d.Addresses.Len(),
	}
	if d.Schema != nil {
		s.Structs = len(d.Schema.Structs)
	}
	for _, b := range d.Blocks {
		switch b.Value.(type) {
		case *sdna.Object, *sdna.ObjectList:
			s.Typed++
		case nil:
		default:
			s.Raw++
		}
	}
	return s
}
