package blend

import (
	"fmt"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

// LinkError reports a pointer that could not be resolved.
type LinkError struct {
	Struct string
	Field  string
	Addr   sdna.Address
	Reason string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s.%s -> %v: %s", e.Struct, e.Field, e.Addr, e.Reason)
}

func (e *LinkError) Unwrap() error { return sdna.ErrLink }
