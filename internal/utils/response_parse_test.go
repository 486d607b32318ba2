package utils

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject("```json\n{\"scores\":{\"joy\":0.9}}\n```")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != `{"scores":{"joy":0.9}}` {
		t.Fatalf("unexpected object: %s", got)
	}
}

func TestExtractJSONObjectMissing(t *testing.T) {
	_, err := ExtractJSONObject("joy")
	if !errors.Is(err, ErrNoJSONObject) {
		t.Fatalf("expected ErrNoJSONObject, got %v", err)
	}
}

func TestDecodeJSONObjectWithWrapper(t *testing.T) {
	var out struct {
		Scores map[string]float64 `json:"scores"`
	}
	instance, err := DecodeJSONObject(`prefix {"scores":{"sadness":0.4}} suffix`, &out)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Scores["sadness"] != 0.4 {
		t.Fatalf("unexpected scores: %v", out.Scores)
	}
	if _, ok := instance["scores"]; !ok {
		t.Fatalf("expected generic instance to carry scores, got %v", instance)
	}
}

func TestDecodeJSONObjectInvalid(t *testing.T) {
	var out map[string]any
	if _, err := DecodeJSONObject(`{"scores": }`, &out); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}
