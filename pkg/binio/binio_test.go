package binio

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReaderWriterOrders(t *testing.T) {
	t.Parallel()
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		w := NewWriter(order.(binary.AppendByteOrder))
		w.U8(0xAB)
		w.I16(-2)
		w.U32(0xDEADBEEF)
		w.I64(-42)
		w.F32(1.5)
		w.F64(-0.25)
		w.CString("hi")

		r := NewReader(w.Bytes(), order)
		if v, _ := r.U8(); v != 0xAB {
			t.Fatalf("%v: U8 = %#x", order, v)
		}
		if v, _ := r.I16(); v != -2 {
			t.Fatalf("%v: I16 = %d", order, v)
		}
		if v, _ := r.U32(); v != 0xDEADBEEF {
			t.Fatalf("%v: U32 = %#x", order, v)
		}
		if v, _ := r.I64(); v != -42 {
			t.Fatalf("%v: I64 = %d", order, v)
		}
		if v, _ := r.F32(); v != 1.5 {
			t.Fatalf("%v: F32 = %v", order, v)
		}
		if v, _ := r.F64(); v != -0.25 {
			t.Fatalf("%v: F64 = %v", order, v)
		}
		if v, _ := r.CString(); v != "hi" {
			t.Fatalf("%v: CString = %q", order, v)
		}
		if r.Remaining() != 0 {
			t.Fatalf("%v: %d bytes left", order, r.Remaining())
		}
	}
}

func TestReaderShortRead(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{1, 2, 3}, nil)
	if _, err := r.U32(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	if r.Offset() != 0 {
		t.Fatalf("failed read moved cursor to %d", r.Offset())
	}
	if _, err := NewReader([]byte("abc"), nil).CString(); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestAlign(t *testing.T) {
	t.Parallel()
	w := NewWriter(nil)
	w.String("SDNA")
	w.CString("ab")
	w.Align(0, 4)
	if w.Len() != 8 {
		t.Fatalf("aligned length = %d, want 8", w.Len())
	}

	r := NewReader(w.Bytes(), nil)
	_ = r.Skip(5)
	if err := r.Align(0, 4); err != nil {
		t.Fatal(err)
	}
	if r.Offset() != 8 {
		t.Fatalf("reader offset = %d, want 8", r.Offset())
	}
}

func TestFixedString(t *testing.T) {
	t.Parallel()
	w := NewWriter(nil)
	w.FixedString("abcdef", 4)
	w.FixedString("abcd", 4)
	w.FixedString("ab", 4)
	w.FixedString("ignored", 0)
	if got := string(w.Bytes()); got != "abc\x00abc\x00ab\x00\x00" {
		t.Fatalf("got %q", got)
	}
}
