package harnessgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/latchagent/latch-core/internal/domain/harness"
	"github.com/latchagent/latch-core/internal/domain/policy"
)

// OpenClawGenerator implements harness.Generator for OpenClaw.
type OpenClawGenerator struct{}

var _ harness.Generator = OpenClawGenerator{}

func (OpenClawGenerator) LaunchFlags(pol policy.PolicyDocument, harnessID string) []string {
	return nil
}

func (OpenClawGenerator) Enforce(pol policy.PolicyDocument, dir string, sessionID string, authz *harness.AuthzOptions) ([]harness.WrittenFile, error) {
	if err := harness.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	var written []harness.WrittenFile

	configPath := filepath.Join(dir, "openclaw.json")
	if err := writeOpenClawConfig(configPath, pol); err != nil {
		return nil, err
	}
	written = append(written, harness.WrittenFile{Path: "openclaw.json", Mode: 0644})

	pluginDir := filepath.Join(dir, ".openclaw", "plugins", "latch-authz")
	if authz != nil {
		if err := os.MkdirAll(pluginDir, 0755); err != nil {
			return nil, fmt.Errorf("harnessgen/openclaw: create plugin dir: %w", err)
		}
		pluginPath := filepath.Join(pluginDir, "index.js")
		if err := writeOpenClawPlugin(pluginPath, sessionID, *authz, pol); err != nil {
			return nil, err
		}
		written = append(written, harness.WrittenFile{Path: ".openclaw/plugins/latch-authz/index.js", Mode: 0644})
	}

	approvalsDir := filepath.Join(dir, ".openclaw")
	if err := os.MkdirAll(approvalsDir, 0755); err != nil {
		return nil, fmt.Errorf("harnessgen/openclaw: create .openclaw dir: %w", err)
	}
	approvalsPath := filepath.Join(approvalsDir, "exec-approvals.json")
	if err := writeOpenClawApprovals(approvalsPath); err != nil {
		return nil, err
	}
	written = append(written, harness.WrittenFile{Path: ".openclaw/exec-approvals.json", Mode: 0644})

	return written, nil
}

type openClawConfig struct {
	Generated string             `json:"_generated"`
	Tools     openClawToolConfig `json:"tools"`
}

type openClawToolConfig struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

func writeOpenClawConfig(path string, pol policy.PolicyDocument) error {
	deny, allow := claudePermissionLists(pol) // same flag-to-tool-name mapping applies to OpenClaw's tool namespace
	cfg := openClawConfig{
		Generated: harness.GeneratedFileBanner,
		Tools:     openClawToolConfig{Allow: allow, Deny: deny},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("harnessgen/openclaw: marshal config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("harnessgen/openclaw: write openclaw.json: %w", err)
	}
	return nil
}

func writeOpenClawPlugin(path, sessionID string, authz harness.AuthzOptions, pol policy.PolicyDocument) error {
	timeoutMs := 5000
	if pol.Permissions.ConfirmDestructive {
		timeoutMs = 120000
	}

	module := fmt.Sprintf(`// generated; do not edit
module.exports = function latchAuthzPlugin(host) {
  const http = require('http');

  function authorize(toolName, args) {
    return new Promise(function (resolve) {
      const payload = JSON.stringify({ toolName: toolName, args: args });
      const req = http.request({
        host: '127.0.0.1',
        port: %d,
        path: '/authorize/%s',
        method: 'POST',
        timeout: %d,
        headers: {
          'Authorization': 'Bearer %s',
          'Content-Type': 'application/json',
          'Content-Length': Buffer.byteLength(payload),
        },
      }, function (res) {
        let body = '';
        res.on('data', function (chunk) { body += chunk; });
        res.on('end', function () {
          if (res.statusCode === 200) {
            resolve({ action: 'allow' });
          } else {
            let reason = 'denied';
            try { reason = JSON.parse(body).reason || reason; } catch (e) {}
            resolve({ action: 'block', reason: reason });
          }
        });
      });
      req.on('error', function () {
        resolve({ action: 'block', reason: 'authorization server unreachable' });
      });
      req.on('timeout', function () {
        req.destroy();
        resolve({ action: 'block', reason: 'authorization request timed out' });
      });
      req.write(payload);
      req.end();
    });
  }

  host.on('before_tool_call', function (event) {
    return authorize(event.toolName, event.args);
  });
};
`, authz.Port, sessionID, timeoutMs, authz.Secret)

	if err := os.WriteFile(path, []byte(module), 0644); err != nil {
		return fmt.Errorf("harnessgen/openclaw: write index.js: %w", err)
	}
	return nil
}

func writeOpenClawApprovals(path string) error {
	approvals := map[string]interface{}{
		"_generated": harness.GeneratedFileBanner,
		"exec":       map[string]string{"security": "full", "ask": "off"},
		"write":      map[string]string{"security": "full", "ask": "off"},
		"read":       map[string]string{"security": "full", "ask": "off"},
	}
	data, err := json.MarshalIndent(approvals, "", "  ")
	if err != nil {
		return fmt.Errorf("harnessgen/openclaw: marshal exec-approvals: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("harnessgen/openclaw: write exec-approvals.json: %w", err)
	}
	return nil
}
