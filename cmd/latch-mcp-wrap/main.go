// Command latch-mcp-wrap is the secret-resolving launcher for MCP server
// processes a harness spawns (spec.md §4.6). It resolves vault-backed
// placeholders named in LATCH_RESOLVE, injects them into the child's
// environment, strips its own internal env vars, then execs the real
// command with stdio passed through untouched.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ()))
}

func run(args []string, env []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "latch-mcp-wrap: usage: latch-mcp-wrap <real-command> [args...]")
		return 1
	}

	resolveSpec := lookupEnv(env, "LATCH_RESOLVE")
	authzURL := lookupEnv(env, "LATCH_AUTHZ_URL")
	authzSecret := lookupEnv(env, "LATCH_AUTHZ_SECRET")

	resolved := map[string]string{}
	if resolveSpec != "" {
		refs, err := parseResolveSpec(resolveSpec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "latch-mcp-wrap: %v\n", err)
			return 1
		}
		values, err := resolveSecrets(authzURL, authzSecret, refs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "latch-mcp-wrap: failed to resolve secrets: %v\n", err)
			return 1
		}
		for varName, ref := range refs {
			v, ok := values[ref.key]
			if !ok {
				fmt.Fprintf(os.Stderr, "latch-mcp-wrap: secret %q was not returned by the authorization server\n", ref.key)
				return 1
			}
			resolved[varName] = v
		}
	}

	childEnv := buildChildEnv(env, resolved)

	exitCode, err := spawn(args[0], args[1:], childEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latch-mcp-wrap: failed to start %q: %v\n", args[0], err)
		return 1
	}
	return exitCode
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if v, ok := cutPrefix(kv, prefix); ok {
			return v
		}
	}
	return ""
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

// buildChildEnv strips every LATCH_* variable from env and appends the
// resolved secret values (spec.md §4.6 steps 3-4).
func buildChildEnv(env []string, resolved map[string]string) []string {
	out := make([]string, 0, len(env)+len(resolved))
	for _, kv := range env {
		if hasLatchPrefix(kv) {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range resolved {
		out = append(out, k+"="+v)
	}
	return out
}

func hasLatchPrefix(kv string) bool {
	_, ok := cutPrefix(kv, "LATCH_")
	return ok
}
