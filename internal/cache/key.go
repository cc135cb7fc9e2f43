package cache

import (
	"encoding/json"
	"fmt"
)

// GenerateKey serializes params into a deterministic cache key.
//
// Struct fields are encoded in declaration order and map keys are sorted by
// encoding/json, so two maps holding the same pairs yield the same key
// regardless of insertion order.
func GenerateKey(params any) (string, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("cache: generate key: %w", err)
	}
	return string(b), nil
}
