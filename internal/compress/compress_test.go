package compress

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("vertex data "), 512)
	for _, c := range []Codec{None, Zlib, Gzip, Zstd, LZ4} {
		packed, err := Compress(c, data)
		if err != nil {
			t.Fatalf("%v: compress: %v", c, err)
		}
		if c != None && len(packed) >= len(data) {
			t.Fatalf("%v: %d bytes did not shrink to %d", c, len(data), len(packed))
		}
		back, err := Decompress(c, packed)
		if err != nil {
			t.Fatalf("%v: decompress: %v", c, err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("%v: round trip mismatch", c)
		}
	}
}

func TestSniff(t *testing.T) {
	t.Parallel()
	data := []byte("BLENDER-v300")
	for _, c := range []Codec{Gzip, Zstd, LZ4} {
		packed, err := Compress(c, data)
		if err != nil {
			t.Fatal(err)
		}
		if got := Sniff(packed); got != c {
			t.Fatalf("Sniff(%v) = %v", c, got)
		}
	}
	if got := Sniff(data); got != None {
		t.Fatalf("Sniff(plain) = %v", got)
	}
}

func TestShrinkIncompressible(t *testing.T) {
	t.Parallel()
	if _, err := Shrink(Zstd, []byte{1, 2, 3}); !errors.Is(err, ErrIncompressible) {
		t.Fatalf("expected ErrIncompressible, got %v", err)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	for _, c := range []Codec{None, Zlib, Gzip, Zstd, LZ4} {
		got, err := Parse(c.String())
		if err != nil || got != c {
			t.Fatalf("Parse(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := Parse("brotli"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
	var c Codec
	if err := c.UnmarshalText([]byte("zst")); err != nil || c != Zstd {
		t.Fatalf("UnmarshalText = %v, %v", c, err)
	}
}
