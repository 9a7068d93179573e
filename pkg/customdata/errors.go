package customdata

import (
	"fmt"

	"github.com/samcharles93/blendkit/pkg/sdna"
)

// UnknownTypeError reports a layer whose type tag has no registered shape.
type UnknownTypeError struct {
	Type LayerType
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown attribute layer type %d", int32(e.Type))
}

func (e *UnknownTypeError) Unwrap() error { return sdna.ErrCodec }
