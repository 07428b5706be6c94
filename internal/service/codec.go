package service

import (
	"encoding/json"
	"fmt"
)

// jsonCodec replaces connect's protojson codec so plain Go structs can be
// used as request and response messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}
