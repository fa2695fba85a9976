package authzhttp

import "net/http"

// routes builds the server's handler: bearer auth, request-id tagging, and
// the body-size cap wrap every route; any method other than POST gets a 404
// from postOnlyMiddleware, and any unregistered path falls through to
// ServeMux's own 404 (spec.md §4.4: "any other method → 404").
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Patterns carry no method: spec.md §4.4 wants a bare 404 for any
	// non-POST method, whereas Go's method-aware ServeMux patterns
	// ("POST /x") answer a mismatched method with 405. postOnly enforces
	// the 404 itself before the mux ever sees the request.
	mux.Handle("/authorize/{sessionId}", tracingMiddleware("authorize", s.metricsMiddleware("authorize", s.handleAuthorize)))
	mux.Handle("/notify/{sessionId}", s.metricsMiddleware("notify", s.handleNotify))
	mux.Handle("/feed/{sessionId}", s.metricsMiddleware("feed", s.handleFeed))
	mux.Handle("/secrets/resolve", s.metricsMiddleware("secrets_resolve", s.handleSecretsResolve))

	var handler http.Handler = mux
	handler = postOnlyMiddleware(handler)
	handler = bodyLimitMiddleware(handler)
	handler = s.bearerAuthMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// postOnlyMiddleware rejects any non-POST method with 404, per spec.md
// §4.4 ("any other method → 404").
func postOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
