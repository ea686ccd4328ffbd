// Package blob provides the YAML encoding shared by the persisted cache
// state and the disk-tier entry envelope: opaque byte values as base64
// scalars tagged !!binary.
package blob

import (
	"encoding/base64"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bytes is a []byte that serializes to YAML as a base64 scalar tagged
// !!binary. Without it, yaml.v3 encodes a byte slice as a sequence of
// per-byte integers, which no other tool reads as binary data.
type Bytes []byte

// MarshalYAML implements yaml.Marshaler.
func (b Bytes) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!binary",
		Value: base64.StdEncoding.EncodeToString(b),
	}, nil
}

// UnmarshalYAML implements the yaml.v3 node unmarshaler. It accepts any
// base64 scalar, tagged or not; the encoder may fold long scalars across
// lines, so embedded whitespace is stripped before decoding.
func (b *Bytes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("blob: value must be a base64 scalar")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(node.Value), ""))
	if err != nil {
		return fmt.Errorf("blob: decode base64 value: %w", err)
	}
	*b = decoded
	return nil
}

var (
	_ yaml.Marshaler = Bytes(nil)
)
