package blend

import (
	"context"
	"fmt"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/binio"
	"github.com/samcharles93/blendkit/pkg/customdata"
	"github.com/samcharles93/blendkit/pkg/idprop"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

// DefaultMaxRounds bounds the direct-data worklist drain after each block.
const DefaultMaxRounds = 1 << 20

// EncodeOptions controls Encode. The zero value is usable.
type EncodeOptions struct {
	// MaxRounds caps worklist rounds per top-level block. Zero means
	// DefaultMaxRounds.
	MaxRounds int
	// Version overrides the document version.
	Version string
	// Compression wraps the stream written by WriteFile.
	Compression compress.Codec
}

type writer struct {
	doc       *Document
	log       logger.Logger
	maxRounds int
	order     byteOrder
	out       *binio.Writer
	// foreign is set when the document was read in the other byte order.
	foreign bool

	ids     map[any]sdna.Address
	next    sdna.Address
	top     map[*sdna.Object]bool
	queue   []any
	lowered map[*sdna.Object]*sdna.Object
	stale   int
	blocks  int
}

// Encode serializes doc into a fresh stream in the runtime's byte order.
// Addresses are reassigned from 1 in order of first reference.
func Encode(ctx context.Context, doc *Document, opts EncodeOptions) ([]byte, error) {
	log := logger.WithSession(logger.FromContext(ctx))
	if doc.Schema == nil {
		return nil, fmt.Errorf("document has no schema: %w", sdna.ErrPrecondition)
	}
	version := doc.Version
	if opts.Version != "" {
		version = opts.Version
	}
	if !validVersion(version) {
		return nil, fmt.Errorf("version %q is not three digits: %w", version, sdna.ErrPrecondition)
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}

	order, marker := nativeOrder()
	w := &writer{
		doc:       doc,
		log:       log,
		maxRounds: opts.MaxRounds,
		order:     order,
		out:       binio.NewWriter(order),
		ids:       map[any]sdna.Address{},
		next:      1,
		top:       map[*sdna.Object]bool{},
		lowered:   map[*sdna.Object]*sdna.Object{},
		foreign:   doc.Order != nil && doc.Order.String() != order.String(),
	}
	if doc.Global != nil {
		w.top[doc.Global] = true
	}
	for _, e := range doc.Main.Entries() {
		w.top[e.Object] = true
	}

	ptr := doc.PointerByte
	if ptr == 0 {
		ptr = DefaultPointerByte
	}
	w.out.String(magic)
	w.out.U8(ptr)
	w.out.U8(marker)
	w.out.String(version)

	if doc.Global != nil {
		if err := w.topBlock(CodeGlobal, doc.Global); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Main.Grouped() {
		if err := w.topBlock(CodeForKey(e.Key), e.Object); err != nil {
			return nil, fmt.Errorf("%s %q: %w", e.Key, e.Name, err)
		}
	}

	w.header(CodeSchema, 0, w.id(doc.Schema), 0, 1)
	payload := doc.Schema.Encode(order)
	w.patchLength(len(payload))
	w.out.Raw(payload)
	w.header(CodeEnd, 0, 0, 0, 0)

	if w.stale > 0 {
		log.Debug("unlinked addresses written as null", "count", w.stale)
	}
	log.Info("encoded blend stream", "blocks", w.blocks, "addresses", len(w.ids), "bytes", w.out.Len())
	return w.out.Bytes(), nil
}

// id returns the synthetic address of v, assigning the next one on first use.
func (w *writer) id(v any) sdna.Address {
	if a, ok := w.ids[v]; ok {
		return a
	}
	a := w.next
	w.next++
	w.ids[v] = a
	return a
}

// ref is the encoder callback for pointer fields. Newly seen targets that
// are not main objects join the direct-data worklist.
func (w *writer) ref(v any, _ *sdna.Type) (sdna.Address, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case sdna.Address:
		if x != 0 {
			w.stale++
		}
		return 0, nil
	case *sdna.Object:
		if x == nil {
			return 0, nil
		}
		if w.top[x] {
			return w.id(x), nil
		}
	case *sdna.ObjectList, *sdna.Buffer, *sdna.TypedArray, *sdna.PointerArray:
	default:
		return 0, fmt.Errorf("cannot reference %T: %w", v, sdna.ErrCodec)
	}
	if a, ok := w.ids[v]; ok {
		return a, nil
	}
	w.queue = append(w.queue, v)
	return w.id(v), nil
}

func (w *writer) lower(o *sdna.Object) (*sdna.Object, error) {
	if lo, ok := w.lowered[o]; ok {
		return lo, nil
	}
	lo := o
	var err error
	switch o.Struct.Name {
	case customdata.StructName:
		if l, ok := o.Get("data").(*customdata.Layer); ok && w.foreign && l.Passthrough {
			if b, ok := l.Raw.(*sdna.Buffer); ok && !sdna.ZeroBytes(b.Data) {
				return nil, fmt.Errorf("layer %v holds %s bytes of unknown layout: %w", l.Type, w.doc.Order, sdna.ErrPrecondition)
			}
		}
		lo, err = customdata.Lower(o, w.order)
	case idprop.StructName:
		lo, err = idprop.Lower(o, w.order)
	}
	if err != nil {
		return nil, err
	}
	w.lowered[o] = lo
	return lo, nil
}

func (w *writer) encoder(dst *binio.Writer) *sdna.Encoder {
	return &sdna.Encoder{W: dst, Ref: w.ref, Lower: w.lower, ForeignOrder: w.foreign}
}

func (w *writer) topBlock(code string, o *sdna.Object) error {
	start := w.out.Len()
	w.header(code, 0, w.id(o), o.Struct.Index, 1)
	if err := w.encoder(w.out).EncodeStruct(o); err != nil {
		return err
	}
	w.patchLengthAt(start, w.out.Len()-start-blockHeaderSize)
	return w.drain()
}

// drain emits queued direct data breadth first until nothing new is found.
func (w *writer) drain() error {
	for round := 0; len(w.queue) > 0; round++ {
		if round >= w.maxRounds {
			return fmt.Errorf("direct data still pending after %d rounds: %w", w.maxRounds, sdna.ErrPrecondition)
		}
		batch := w.queue
		w.queue = nil
		for _, v := range batch {
			if err := w.dataBlock(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *writer) dataBlock(v any) error {
	addr := w.ids[v]
	start := w.out.Len()
	switch x := v.(type) {
	case *sdna.Object:
		w.header(CodeData, 0, addr, x.Struct.Index, 1)
		if err := w.encoder(w.out).EncodeStruct(x); err != nil {
			return err
		}
	case *sdna.ObjectList:
		w.header(CodeData, 0, addr, x.Struct.Index, len(x.Items))
		enc := w.encoder(w.out)
		for i, o := range x.Items {
			if err := enc.EncodeStruct(o); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case *sdna.Buffer:
		w.header(CodeData, 0, addr, 0, rawCount(x.Count))
		w.out.Raw(x.Data)
	case *sdna.TypedArray:
		w.header(CodeData, 0, addr, 0, rawCount(x.Count))
		if err := sdna.EncodeTypedArray(w.out, x); err != nil {
			return err
		}
	case *sdna.PointerArray:
		w.header(CodeData, 0, addr, 0, rawCount(x.Count))
		for i, t := range x.Targets {
			a, err := w.ref(t, x.Elem)
			if err != nil {
				return fmt.Errorf("pointer %d: %w", i, err)
			}
			w.out.U64(uint64(a))
		}
	}
	w.patchLengthAt(start, w.out.Len()-start-blockHeaderSize)
	return nil
}

func rawCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (w *writer) header(code string, length int, addr sdna.Address, index, count int) {
	w.out.String(code)
	w.out.I32(int32(length))
	w.out.U64(uint64(addr))
	w.out.I32(int32(index))
	w.out.I32(int32(count))
	w.blocks++
}

// patchLength fixes the length of the block header just written.
func (w *writer) patchLength(n int) {
	w.patchLengthAt(w.out.Len()-blockHeaderSize, n)
}

func (w *writer) patchLengthAt(start, n int) {
	w.order.PutUint32(w.out.Bytes()[start+4:], uint32(int32(n)))
}
