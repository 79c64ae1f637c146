package store

import (
	"fmt"

	"github.com/roach88/servactory/internal/ir"
)

// marshalOutputs converts outputs to canonical JSON TEXT for storage.
func marshalOutputs(outputs map[string]any) (string, error) {
	if outputs == nil {
		outputs = map[string]any{}
	}
	data, err := ir.MarshalCanonical(outputs)
	if err != nil {
		return "", fmt.Errorf("marshal outputs: %w", err)
	}
	return string(data), nil
}

// unmarshalOutputs parses stored outputs. Numbers are normalized the same
// way invocation arguments are.
func unmarshalOutputs(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	out, err := ir.DecodeArgs([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal outputs: %w", err)
	}
	return out, nil
}
