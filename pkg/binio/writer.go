package binio

import (
	"encoding/binary"
	"math"
)

// Writer appends encoded values to a growable buffer.
type Writer struct {
	buf   []byte
	order binary.AppendByteOrder
}

func NewWriter(order binary.AppendByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{order: order}
}

func (w *Writer) Order() binary.AppendByteOrder { return w.order }
func (w *Writer) Len() int                      { return len(w.buf) }
func (w *Writer) Bytes() []byte                 { return w.buf }

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) Raw(p []byte)     { w.buf = append(w.buf, p...) }
func (w *Writer) String(s string)  { w.buf = append(w.buf, s...) }
func (w *Writer) U8(v uint8)       { w.buf = append(w.buf, v) }
func (w *Writer) I8(v int8)        { w.buf = append(w.buf, byte(v)) }
func (w *Writer) U16(v uint16)     { w.buf = w.order.AppendUint16(w.buf, v) }
func (w *Writer) I16(v int16)      { w.U16(uint16(v)) }
func (w *Writer) U32(v uint32)     { w.buf = w.order.AppendUint32(w.buf, v) }
func (w *Writer) I32(v int32)      { w.U32(uint32(v)) }
func (w *Writer) U64(v uint64)     { w.buf = w.order.AppendUint64(w.buf, v) }
func (w *Writer) I64(v int64)      { w.U64(uint64(v)) }
func (w *Writer) F32(v float32)    { w.U32(math.Float32bits(v)) }
func (w *Writer) F64(v float64)    { w.U64(math.Float64bits(v)) }
func (w *Writer) CString(s string) { w.buf = append(append(w.buf, s...), 0) }

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zeros to the next multiple of n relative to base.
func (w *Writer) Align(base, n int) {
	if rem := (len(w.buf) - base) % n; rem != 0 {
		w.Zero(n - rem)
	}
}

// FixedString writes s zero padded to exactly width bytes. Longer strings
// are cut to width-1 bytes so the field stays NUL terminated.
func (w *Writer) FixedString(s string, width int) {
	if width <= 0 {
		return
	}
	if len(s) >= width {
		s = s[:width-1]
	}
	w.String(s)
	w.Zero(width - len(s))
}
