package blend

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

const (
	magic      = "BLENDER"
	headerSize = len(magic) + 1 + 1 + 3

	// DefaultPointerByte is written when a document carries none.
	DefaultPointerByte = '-'

	littleEndianByte = 'v'
	bigEndianByte    = 'V'
)

// Header is the fixed file preamble.
type Header struct {
	PointerByte byte
	Order       binary.ByteOrder
	Version     string
}

func parseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < headerSize {
		return h, fmt.Errorf("file shorter than preamble (%d bytes): %w", len(data), sdna.ErrFormat)
	}
	if string(data[:len(magic)]) != magic {
		return h, fmt.Errorf("bad magic %q: %w", data[:len(magic)], sdna.ErrFormat)
	}
	h.PointerByte = data[7]
	if data[8] == littleEndianByte {
		h.Order = binary.LittleEndian
	} else {
		h.Order = binary.BigEndian
	}
	h.Version = string(data[9:12])
	if !validVersion(h.Version) {
		return h, fmt.Errorf("bad version %q: %w", h.Version, sdna.ErrFormat)
	}
	return h, nil
}

func validVersion(v string) bool {
	if len(v) != 3 {
		return false
	}
	for _, c := range []byte(v) {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// nativeOrder returns the runtime byte order and its preamble marker.
func nativeOrder() (byteOrder, byte) {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return binary.LittleEndian, littleEndianByte
	}
	return binary.BigEndian, bigEndianByte
}
