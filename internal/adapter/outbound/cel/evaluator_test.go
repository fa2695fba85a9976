package cel

import (
	"strings"
	"testing"

	"github.com/latchagent/latch-core/internal/domain/tool"
)

func TestNew(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if eval == nil {
		t.Fatal("New() returned nil")
	}
}

func TestEval_TrueCondition(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	call := tool.Call{ToolName: "Bash", ToolInput: map[string]interface{}{"command": "rm -rf /tmp/scratch"}, HarnessID: "claude"}

	matched, err := eval.Eval(`arg(tool_input, "command").contains("rm -rf")`, call, tool.ActionExecute)
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if !matched {
		t.Fatal("Eval() = false, want true")
	}
}

func TestEval_FalseCondition(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	call := tool.Call{ToolName: "Bash", ToolInput: map[string]interface{}{"command": "ls"}, HarnessID: "claude"}

	matched, err := eval.Eval(`action_class == "write"`, call, tool.ActionExecute)
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if matched {
		t.Fatal("Eval() = true, want false")
	}
}

func TestEval_InvalidExpressionReturnsError(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	call := tool.Call{ToolName: "Bash"}

	_, err = eval.Eval(`this is not valid CEL !!!`, call, tool.ActionExecute)
	if err == nil {
		t.Fatal("Eval() expected error for invalid expression, got nil")
	}
}

func TestEval_ExpressionTooLongReturnsError(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	call := tool.Call{ToolName: "Bash"}

	huge := `tool_name == "` + strings.Repeat("a", maxExpressionLength) + `"`
	_, err = eval.Eval(huge, call, tool.ActionExecute)
	if err == nil {
		t.Fatal("Eval() expected error for oversize expression, got nil")
	}
}

func TestEval_CachesCompiledPrograms(t *testing.T) {
	eval, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	call := tool.Call{ToolName: "Bash"}
	expr := `tool_name == "Bash"`

	if _, err := eval.Eval(expr, call, tool.ActionExecute); err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if len(eval.cache) != 1 {
		t.Fatalf("cache size = %d, want 1", len(eval.cache))
	}
	if _, err := eval.Eval(expr, call, tool.ActionExecute); err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if len(eval.cache) != 1 {
		t.Fatalf("cache size after repeat = %d, want 1 (cached)", len(eval.cache))
	}
}
