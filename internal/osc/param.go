// Package osc mirrors the avatar parameters a peer application exposes over
// OSC/UDP and pushes parameter updates back to it.
package osc

import "fmt"

// Kind is the typed interpretation of a parameter's float payload.
type Kind string

const (
	KindFloat Kind = "Float"
	KindInt   Kind = "Int"
	KindBool  Kind = "Bool"
)

// ParseKind maps a user-supplied kind label to a Kind.
func ParseKind(label string) (Kind, error) {
	switch Kind(label) {
	case KindFloat, KindInt, KindBool:
		return Kind(label), nil
	default:
		return "", fmt.Errorf("invalid parameter kind %q (expected Float, Int, or Bool)", label)
	}
}

// Parameter is one named avatar control value mirrored from the peer.
// Bool parameters carry 0.0/1.0, Int parameters a truncated integer.
type Parameter struct {
	Name  string  `json:"name"`
	Kind  Kind    `json:"kind"`
	Value float32 `json:"value"`
}
