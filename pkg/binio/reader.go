// Package binio holds the byte cursors shared by the schema parser, the
// block stream reader and the writer.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader is a bounds-checked sequential reader over an in-memory buffer.
type Reader struct {
	data  []byte
	off   int
	order binary.ByteOrder
}

func NewReader(data []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{data: data, order: order}
}

func (r *Reader) Order() binary.ByteOrder { return r.order }

func (r *Reader) Offset() int    { return r.off }
func (r *Reader) Len() int       { return len(r.data) }
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		return fmt.Errorf("seek to %d outside [0,%d]", off, len(r.data))
	}
	r.off = off
	return nil
}

func (r *Reader) Skip(n int) error {
	_, err := r.Next(n)
	return err
}

// Next returns the next n bytes without copying them.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if r.off+n > len(r.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Bytes returns a copy of the next n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.Next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.Next(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F32() (float32, error) {
	u, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (r *Reader) F64() (float64, error) {
	u, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// Tag reads a fixed-width ASCII tag.
func (r *Reader) Tag(n int) (string, error) {
	b, err := r.Next(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CString reads up to and including the next zero byte and returns the text
// before it.
func (r *Reader) CString() (string, error) {
	start := r.off
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.off = i + 1
			return string(r.data[start:i]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d: %w", start, io.ErrUnexpectedEOF)
}

// Align advances the cursor to the next multiple of n relative to base.
func (r *Reader) Align(base, n int) error {
	rel := r.off - base
	if rem := rel % n; rem != 0 {
		return r.Skip(n - rem)
	}
	return nil
}
