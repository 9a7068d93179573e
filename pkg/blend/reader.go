package blend

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// Read decodes a complete stream from r.
func Read(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blend stream: %w", err)
	}
	return Decode(ctx, data)
}

// Decode parses, decodes and links a stream held in memory. The returned
// document does not reference data.
func Decode(ctx context.Context, data []byte) (*Document, error) {
	log := logger.WithSession(logger.FromContext(ctx))

	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Version:     h.Version,
		PointerByte: h.PointerByte,
		Order:       h.Order,
		Addresses:   NewAddressMap(),
		Main:        NewRegistry(),
	}

	r := binio.NewReader(data, h.Order)
	if err := r.Seek(headerSize); err != nil {
		return nil, fmt.Errorf("%w: %w", sdna.ErrFormat, err)
	}
	doc.Blocks, err = readBlocks(r)
	if err != nil {
		return nil, err
	}

	var schemaBlock *Block
	for _, b := range doc.Blocks {
		if b.Code == CodeSchema {
			schemaBlock = b
			break
		}
	}
	if schemaBlock == nil {
		return nil, fmt.Errorf("no %s block: %w", CodeSchema, sdna.ErrFormat)
	}
	if doc.Schema, err = sdna.Parse(schemaBlock.Data, h.Order); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	log.Debug("read blocks", "version", doc.Version, "order", byteOrderName(doc.Order), "blocks", len(doc.Blocks), "structs", len(doc.Schema.Structs))

	for i, b := range doc.Blocks {
		if err := doc.decodeBlock(b); err != nil {
			return nil, fmt.Errorf("block %d (%q at %v): %w", i, b.Code, b.Addr, err)
		}
	}

	if err := link(log, doc); err != nil {
		return nil, err
	}
	st := doc.Stats()
	log.Info("decoded blend stream", "version", doc.Version, "blocks", st.Blocks, "named", st.Named, "addresses", st.Addresses)
	return doc, nil
}

func readBlocks(r *binio.Reader) ([]*Block, error) {
	var blocks []*Block
	for r.Remaining() > 0 {
		at := r.Offset()
		if r.Remaining() < blockHeaderSize {
			return nil, fmt.Errorf("truncated block header at %d: %w", at, sdna.ErrFormat)
		}
		code, _ := r.Tag(4)
		length, _ := r.I32()
		addr, _ := r.U64()
		index, _ := r.I32()
		count, _ := r.I32()
		if code == CodeEnd {
			break
		}
		if length < 0 || index < 0 || count < 0 {
			return nil, fmt.Errorf("block %q at %d: negative header field: %w", code, at, sdna.ErrFormat)
		}
		payload, err := r.Bytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("block %q at %d: payload of %d bytes: %w: %w", code, at, length, sdna.ErrFormat, err)
		}
		blocks = append(blocks, &Block{
			Code:  code,
			Addr:  sdna.Address(addr),
			SDNA:  int(index),
			Count: int(count),
			Data:  payload,
		})
	}
	return blocks, nil
}

func (d *Document) decodeBlock(b *Block) error {
	switch {
	case b.Code == CodeSchema:
		return nil
	case b.Code == CodeRender:
		d.Render = b.Data
		return nil
	case b.Code == CodeThumbnail:
		d.Thumbnail = b.Data
		return nil
	case b.SDNA == 0:
		buf := &sdna.Buffer{Data: b.Data, Count: b.Count}
		b.Value = buf
		d.Addresses.Store(b.Addr, buf)
		return nil
	}

	st, err := d.Schema.At(b.SDNA)
	if err != nil {
		return err
	}
	objs, err := sdna.DecodeObjects(b.Data, d.Order, st, b.Count)
	if err != nil {
		return err
	}
	if len(objs) == 1 {
		b.Value = objs[0]
	} else {
		b.Value = &sdna.ObjectList{Struct: st, Items: objs}
	}
	d.Addresses.Store(b.Addr, b.Value)

	if b.Code == CodeGlobal && len(objs) > 0 {
		d.Global = objs[0]
	}
	if !b.Infrastructure() {
		for _, o := range objs {
			d.Main.Add(b.Key(), objectName(o), o)
		}
	}
	return nil
}

// objectName returns the ID name of o with its type prefix removed.
func objectName(o *sdna.Object) string {
	t, ok := o.Path("id.name").(sdna.Text)
	if !ok || len(t.Value) < 2 {
		return ""
	}
	return t.Value[2:]
}

// byteOrderName is used in log attributes.
func byteOrderName(order binary.ByteOrder) string {
	if order == nil {
		return "unknown"
	}
	return order.String()
}
