package vaulthttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolver_Resolve_PostsKeysAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Keys) != 2 {
			t.Fatalf("Keys = %v, want 2 entries", req.Keys)
		}
		json.NewEncoder(w).Encode(resolveResponse{Resolved: map[string]string{"GITHUB_TOKEN": "gh-abc"}})
	}))
	defer srv.Close()

	r := New(srv.URL)
	resolved, err := r.Resolve(t.Context(), []string{"GITHUB_TOKEN", "NPM_TOKEN"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved["GITHUB_TOKEN"] != "gh-abc" {
		t.Errorf("GITHUB_TOKEN = %q, want gh-abc", resolved["GITHUB_TOKEN"])
	}
}

func TestResolver_Resolve_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(srv.URL)
	if _, err := r.Resolve(t.Context(), []string{"X"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestResolver_Resolve_EmptyKeys(t *testing.T) {
	r := New("http://unused.invalid")
	resolved, err := r.Resolve(t.Context(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Errorf("len(resolved) = %d, want 0", len(resolved))
	}
}
