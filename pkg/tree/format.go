package tree

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding for projected trees.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CBOR Format = "cbor"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("tree: CBOR encoder initialization failed: " + err.Error())
	}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return JSON, nil
	case JSON, YAML, CBOR:
		return f, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported tree format %q", s)
	}
}

// Ext is the file extension used for f, without the dot.
func (f Format) Ext() string { return string(f) }

// Marshal encodes a projected tree. JSON is indented by one space per
// level.
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case JSON, "":
		return json.MarshalIndent(v, "", " ")
	case YAML:
		return yaml.Marshal(v)
	case CBOR:
		return encMode.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported tree format %q", string(f))
	}
}
