package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/latchagent/latch-core/internal/adapter/outbound/harnessgen"
	"github.com/latchagent/latch-core/internal/adapter/outbound/policyfile"
	"github.com/latchagent/latch-core/internal/adapter/outbound/sessionstore"
	"github.com/latchagent/latch-core/internal/config"
	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
	"github.com/latchagent/latch-core/internal/domain/session"
)

var registerFlags struct {
	sessionID   string
	harnessID   string
	policyPath  string
	target      string
	authzPort   int
	authzSecret string
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a session and write harness enforcement artefacts",
	Long: `register validates a sessionId, persists the session's binding to a
harness and policy to the sessions file "serve" loads at startup, and —
when --target is given — writes that harness's native enforcement
artefacts (spec.md §4.5) into the target directory.

Because session.Registry lives only inside a running "serve" process
(spec.md §3 Lifecycle), register never talks to one directly: it writes
to disk, and a "serve" started afterward (or restarted) picks the
registration up from there.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerFlags.sessionID, "session", "", "session id (required)")
	registerCmd.Flags().StringVar(&registerFlags.harnessID, "harness", "", "harness id, e.g. claude, codex, openclaw (required)")
	registerCmd.Flags().StringVar(&registerFlags.policyPath, "policy", "", "path to a YAML policy document (required)")
	registerCmd.Flags().StringVar(&registerFlags.target, "target", "", "directory to write harness enforcement artefacts into")
	registerCmd.Flags().IntVar(&registerFlags.authzPort, "authz-port", 0, "authorization server port, for --target artefact generation")
	registerCmd.Flags().StringVar(&registerFlags.authzSecret, "authz-secret", "", "authorization server shared secret, for --target artefact generation")
	_ = registerCmd.MarkFlagRequired("session")
	_ = registerCmd.MarkFlagRequired("harness")
	_ = registerCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	if !session.IDPattern.MatchString(registerFlags.sessionID) {
		return fmt.Errorf("%w: %q", session.ErrInvalidID, registerFlags.sessionID)
	}

	doc, err := loadPolicyDocument(registerFlags.policyPath)
	if err != nil {
		return fmt.Errorf("load policy document: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := seedPolicyStore(*cfg, doc); err != nil {
		return fmt.Errorf("seed policy store: %w", err)
	}

	store := sessionstore.Open(cfg.Sessions.File)
	if err := store.Upsert(sessionstore.Entry{
		SessionID:    registerFlags.sessionID,
		HarnessID:    registerFlags.harnessID,
		PolicyID:     doc.ID,
		RegisteredAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	fmt.Printf("registered session %q (harness=%s, policy=%s)\n", registerFlags.sessionID, registerFlags.harnessID, doc.ID)

	if registerFlags.target == "" {
		return nil
	}

	if err := harness.ValidateSessionID(registerFlags.sessionID); err != nil {
		return err
	}
	var authzOpts *harness.AuthzOptions
	if registerFlags.authzPort != 0 {
		authzOpts = &harness.AuthzOptions{
			Port:      registerFlags.authzPort,
			SessionID: registerFlags.sessionID,
			Secret:    registerFlags.authzSecret,
		}
	}

	gen := harnessgen.ForHarness(registerFlags.harnessID)
	written, err := gen.Enforce(doc, registerFlags.target, registerFlags.sessionID, authzOpts)
	if err != nil {
		return fmt.Errorf("write harness artefacts: %w", err)
	}
	for _, f := range written {
		fmt.Printf("wrote %s\n", f.Path)
	}
	return nil
}

func loadPolicyDocument(path string) (policy.PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return policy.PolicyDocument{}, err
	}
	var doc policy.PolicyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return policy.PolicyDocument{}, err
	}
	if doc.ID == "" {
		return policy.PolicyDocument{}, fmt.Errorf("policy document at %s has no id", path)
	}
	return doc, nil
}

// seedPolicyStore persists doc so a later "serve" using the file-backed
// policy store can find it by id. Memory-backed policy stores are
// per-process, so there is nothing useful to seed across the two
// separate processes register and serve run as.
func seedPolicyStore(cfg config.Config, doc policy.PolicyDocument) error {
	if cfg.Policy.Backend != "file" {
		return nil
	}
	store, err := policyfile.Open(cfg.Policy.Dir)
	if err != nil {
		return err
	}
	return store.Save(context.Background(), &doc)
}
