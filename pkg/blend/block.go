package blend

import (
	"strings"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

// Block codes with fixed meaning. Every other code names a main-database
// block type such as "OB" or "ME".
const (
	CodeData      = "DATA"
	CodeEnd       = "ENDB"
	CodeRender    = "REND"
	CodeGlobal    = "GLOB"
	CodeSchema    = "DNA1"
	CodeThumbnail = "TEST"
)

// blockHeaderSize is code, length, address, struct index and count.
const blockHeaderSize = 4 + 4 + 8 + 4 + 4

// Block is one unit of the stream.
type Block struct {
	Code  string
	Addr  sdna.Address
	SDNA  int
	Count int
	// Data is the payload as read, copied out of the input.
	Data []byte
	// Value is the decoded payload: *sdna.Buffer for untyped blocks,
	// *sdna.Object for a single typed instance, *sdna.ObjectList otherwise.
	Value any
}

// Infrastructure reports whether the block is not a main-database block.
func (b *Block) Infrastructure() bool { return IsInfrastructure(b.Code) }

// Key returns the registry key for the block's code.
func (b *Block) Key() string { return KeyForCode(b.Code) }

func IsInfrastructure(code string) bool {
	switch code {
	case CodeData, CodeEnd, CodeRender, CodeGlobal, CodeSchema, CodeThumbnail:
		return true
	}
	return false
}

// KeyForCode lowercases a block code and drops its zero padding, so
// "OB\x00\x00" becomes "ob".
func KeyForCode(code string) string {
	return strings.ToLower(strings.TrimRight(code, "\x00"))
}

// CodeForKey is the inverse of KeyForCode.
func CodeForKey(key string) string {
	code := strings.ToUpper(key)
	if len(code) > 4 {
		code = code[:4]
	}
	return code + strings.Repeat("\x00", 4-len(code))
}
