// Package compress wraps the byte codecs used for compressed blend files
// and for packing large attribute buffers in exported trees.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a compression format.
type Codec uint8

const (
	None Codec = iota
	Zlib
	Gzip
	Zstd
	LZ4
)

// ErrIncompressible is returned when compressing would not shrink the data.
var ErrIncompressible = errors.New("data is incompressible")

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Parse returns the codec with the given name. The empty string is None.
func Parse(name string) (Codec, error) {
	switch name {
	case "", "none":
		return None, nil
	case "zlib":
		return Zlib, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

// MarshalText lets configuration files spell codecs by name.
func (c Codec) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Codec) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Sniff identifies self-describing compressed data by its magic bytes.
// Zlib streams carry no reliable magic and are never reported.
func Sniff(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return Gzip
	case bytes.HasPrefix(data, magicZstd):
		return Zstd
	case bytes.HasPrefix(data, magicLZ4):
		return LZ4
	default:
		return None
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress encodes data with c. None returns data unchanged.
func Compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case Zlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		return finish(&buf, zw, data)
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		return finish(&buf, zw, data)
	case LZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		return finish(&buf, zw, data)
	default:
		return nil, fmt.Errorf("compress: unsupported codec %v", c)
	}
}

// Shrink compresses data and reports ErrIncompressible when the result is
// not smaller than the input.
func Shrink(c Codec, data []byte) ([]byte, error) {
	out, err := Compress(c, data)
	if err != nil {
		return nil, err
	}
	if c != None && len(out) >= len(data) {
		return nil, ErrIncompressible
	}
	return out, nil
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case Zlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("decompress: unsupported codec %v", c)
	}
}
