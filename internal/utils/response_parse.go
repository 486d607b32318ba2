package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when model output carries no JSON object.
var ErrNoJSONObject = errors.New("no json object in model output")

// ExtractJSONObject trims model output down to its outermost JSON object,
// dropping code fences or prose around it.
func ExtractJSONObject(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return clean[start : end+1], nil
}

// DecodeJSONObject extracts the JSON object from raw and decodes it into v.
// The generic map form is returned as well for schema validation.
func DecodeJSONObject(raw string, v any) (map[string]any, error) {
	clean, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(clean), &instance); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	return instance, nil
}
