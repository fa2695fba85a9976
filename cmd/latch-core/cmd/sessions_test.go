package cmd

import (
	"encoding/json"
	"testing"
)

func TestDecodePolicyOverride_Empty(t *testing.T) {
	doc, err := decodePolicyOverride(nil)
	if err != nil {
		t.Fatalf("decodePolicyOverride: %v", err)
	}
	if doc != nil {
		t.Fatalf("doc = %+v, want nil for empty input", doc)
	}
}

func TestDecodePolicyOverride_Valid(t *testing.T) {
	raw := json.RawMessage(`{"id":"override-1","permissions":{"allowFileWrite":false}}`)
	doc, err := decodePolicyOverride(raw)
	if err != nil {
		t.Fatalf("decodePolicyOverride: %v", err)
	}
	if doc == nil || doc.ID != "override-1" {
		t.Fatalf("doc = %+v, want ID override-1", doc)
	}
}

func TestDecodePolicyOverride_Malformed(t *testing.T) {
	if _, err := decodePolicyOverride(json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
