package authzhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTracingMiddleware_PassesThroughToHandler(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	mux := http.NewServeMux()
	mux.Handle("/authorize/{sessionId}", tracingMiddleware("authorize", next))

	req := httptest.NewRequest(http.MethodPost, "/authorize/s1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if !called {
		t.Error("tracingMiddleware did not invoke the wrapped handler")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
