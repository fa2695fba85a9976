package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// secretRef is one entry parsed out of LATCH_RESOLVE: the vault key a
// child env var resolves from. The env var name itself is the key of the
// map parseResolveSpec returns.
type secretRef struct {
	key string
}

// parseResolveSpec parses LATCH_RESOLVE, formatted as
// "VAR1=secret:KEY1;VAR2=secret:KEY2", into a map of env var name to the
// vault key it should be resolved from.
func parseResolveSpec(spec string) (map[string]secretRef, error) {
	refs := map[string]secretRef{}
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		varName, rhs, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed LATCH_RESOLVE entry %q: expected VAR=secret:KEY", entry)
		}
		key, ok := strings.CutPrefix(rhs, "secret:")
		if !ok {
			return nil, fmt.Errorf("malformed LATCH_RESOLVE entry %q: value must start with \"secret:\"", entry)
		}
		if varName == "" || key == "" {
			return nil, fmt.Errorf("malformed LATCH_RESOLVE entry %q: empty var name or key", entry)
		}
		refs[varName] = secretRef{key: key}
	}
	return refs, nil
}

type secretsResolveRequest struct {
	Keys []string `json:"keys"`
}

type secretsResolveResponse struct {
	Resolved map[string]string `json:"resolved"`
}

// resolveSecrets calls the authorization server's /secrets/resolve route
// (spec.md §4.4) with the distinct keys named in refs.
func resolveSecrets(authzURL, authzSecret string, refs map[string]secretRef) (map[string]string, error) {
	if authzURL == "" {
		return nil, fmt.Errorf("LATCH_AUTHZ_URL is not set but LATCH_RESOLVE requires it")
	}

	seen := map[string]struct{}{}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.key]; ok {
			continue
		}
		seen[ref.key] = struct{}{}
		keys = append(keys, ref.key)
	}

	body, err := json.Marshal(secretsResolveRequest{Keys: keys})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(authzURL, "/")+"/secrets/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authzSecret != "" {
		req.Header.Set("Authorization", "Bearer "+authzSecret)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling authorization server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authorization server returned status %d", resp.StatusCode)
	}

	var out secretsResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out.Resolved, nil
}
