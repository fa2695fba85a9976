// Package cel implements tool.ArgumentEvaluator (SPEC_FULL.md §4.2 step
// 6.5) against compiled CEL expressions, adapted from
// internal/adapter/outbound/cel.Evaluator.
package cel

import (
	"context"
	"fmt"
	"sync"
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/latchagent/latch-core/internal/domain/tool"
)

// maxExpressionLength bounds an ArgumentRule's CEL expression.
const maxExpressionLength = 1024

// maxCostBudget caps CEL evaluation cost to prevent a pathological rule
// from stalling the authorization path.
const maxCostBudget = 100_000

// maxNestingDepth bounds parenthesis/bracket/brace nesting.
const maxNestingDepth = 50

// evalTimeout bounds a single evaluation (I5: the evaluator must remain
// effectively synchronous and fast).
const evalTimeout = 500 * time.Millisecond

// Evaluator compiles and runs CEL expressions for argument rules. It
// implements tool.ArgumentEvaluator.
type Evaluator struct {
	env *celgo.Env

	mu    sync.Mutex
	cache map[string]celgo.Program
}

var _ tool.ArgumentEvaluator = (*Evaluator)(nil)

// New builds the CEL environment used for argument rules: the tool name,
// its classified action, and its raw input map.
func New() (*Evaluator, error) {
	env, err := celgo.NewEnv(
		celgo.Variable("tool_name", celgo.StringType),
		celgo.Variable("action_class", celgo.StringType),
		celgo.Variable("tool_input", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("harness_id", celgo.StringType),
		celgo.Function("arg",
			celgo.Overload("arg_string",
				[]*celgo.Type{celgo.MapType(celgo.StringType, celgo.DynType), celgo.StringType},
				celgo.StringType,
				celgo.BinaryBinding(func(m, key ref.Val) ref.Val {
					mm, ok := m.Value().(map[string]interface{})
					if !ok {
						return types.String("")
					}
					v, _ := mm[key.Value().(string)].(string)
					return types.String(v)
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: failed to build argument-rule environment: %w", err)
	}
	return &Evaluator{env: env, cache: make(map[string]celgo.Program)}, nil
}

// Eval compiles (and caches) expr, then evaluates it against call and
// class, returning the boolean result. Implements tool.ArgumentEvaluator.
func (e *Evaluator) Eval(expr string, call tool.Call, class tool.ActionClass) (bool, error) {
	prg, err := e.compile(expr)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	activation := map[string]interface{}{
		"tool_name":    call.ToolName,
		"action_class": string(class),
		"tool_input":   call.ToolInput,
		"harness_id":   call.HarnessID,
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return false, fmt.Errorf("cel: evaluation failed: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cel: expression %q did not evaluate to a bool", expr)
	}
	return b, nil
}

func (e *Evaluator) compile(expr string) (celgo.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expr]; ok {
		return prg, nil
	}

	if len(expr) > maxExpressionLength {
		return nil, fmt.Errorf("cel: expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if err := validateNesting(expr); err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel: compilation failed: %w", issues.Err())
	}
	prg, err := e.env.Program(ast,
		celgo.EvalOptions(celgo.OptOptimize),
		celgo.CostLimit(maxCostBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("cel: program creation failed: %w", err)
	}

	e.cache[expr] = prg
	return prg, nil
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("cel: expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}
