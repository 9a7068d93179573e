package sdna

import "errors"

// Error classes shared by every codec stage. Concrete errors wrap one of
// these so callers can test with errors.Is.
var (
	ErrFormat       = errors.New("malformed blend stream")
	ErrSchema       = errors.New("invalid schema")
	ErrLink         = errors.New("unresolved pointer")
	ErrCodec        = errors.New("unsupported encoded value")
	ErrPrecondition = errors.New("precondition failed")
)
