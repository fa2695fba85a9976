package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/latchagent/latch-core/internal/domain/policy"
	"go.uber.org/goleak"
)

func newTestApproval(id, sessionID string, timeoutMs int64, def policy.Decision) PendingApproval {
	return PendingApproval{
		ID:             id,
		SessionID:      sessionID,
		ToolName:       "Bash",
		ActionClass:    "execute",
		Risk:           "high",
		HarnessID:      "claude",
		TimeoutMs:      timeoutMs,
		TimeoutDefault: def,
	}
}

func TestCoordinator_ResolveApprove(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	done := make(chan Resolution, 1)
	go func() {
		done <- c.Park(context.Background(), newTestApproval("a1", "s1", 5000, policy.DecisionDeny))
	}()

	// Give Park a moment to register before resolving.
	waitForPending(t, c, 1)

	if err := c.Resolve("a1", policy.DecisionAllow, "user approved"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	res := <-done
	if res.Decision != policy.DecisionAllow {
		t.Fatalf("Decision = %v, want allow", res.Decision)
	}
	if c.Len() != 0 {
		t.Fatalf("pending count = %d, want 0 after resolution", c.Len())
	}
}

func TestCoordinator_ResolveDeny(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	done := make(chan Resolution, 1)
	go func() {
		done <- c.Park(context.Background(), newTestApproval("a1", "s1", 5000, policy.DecisionAllow))
	}()

	waitForPending(t, c, 1)
	if err := c.Resolve("a1", policy.DecisionDeny, "user denied"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	res := <-done
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny", res.Decision)
	}
}

func TestCoordinator_TimeoutAppliesDefault(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	p := newTestApproval("a1", "s1", 20, policy.DecisionDeny)

	res := c.Park(context.Background(), p)
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny (timeout default for high risk)", res.Decision)
	}
	if c.Len() != 0 {
		t.Fatalf("pending count = %d, want 0 after timeout", c.Len())
	}
}

func TestCoordinator_CancelSessionDeniesOnlyThatSessions(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	var wg sync.WaitGroup
	results := make(map[string]Resolution)
	var mu sync.Mutex

	for _, id := range []string{"a1", "a2"} {
		wg.Add(1)
		id := id
		go func() {
			defer wg.Done()
			res := c.Park(context.Background(), newTestApproval(id, "s1", 5000, policy.DecisionAllow))
			mu.Lock()
			results[id] = res
			mu.Unlock()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		res := c.Park(context.Background(), newTestApproval("a3", "s2", 5000, policy.DecisionAllow))
		mu.Lock()
		results["a3"] = res
		mu.Unlock()
	}()

	waitForPending(t, c, 3)
	c.CancelSession("s1")

	if err := c.Resolve("a3", policy.DecisionAllow, "user approved"); err != nil {
		t.Fatalf("Resolve(a3) error: %v", err)
	}
	wg.Wait()

	if results["a1"].Decision != policy.DecisionDeny || results["a2"].Decision != policy.DecisionDeny {
		t.Fatalf("session s1 approvals should deny on cancellation, got %+v", results)
	}
	if results["a3"].Decision != policy.DecisionAllow {
		t.Fatalf("session s2 approval should be unaffected, got %+v", results["a3"])
	}
}

func TestCoordinator_StopResolvesEveryPendingApprovalAsDeny(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	var wg sync.WaitGroup
	n := 5
	results := make([]Resolution, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			results[i] = c.Park(context.Background(), newTestApproval(idFor(i), "s1", 60000, policy.DecisionAllow))
		}()
	}

	waitForPending(t, c, n)
	c.Stop()
	wg.Wait()

	for i, r := range results {
		if r.Decision != policy.DecisionDeny {
			t.Fatalf("result[%d].Decision = %v, want deny after Stop", i, r.Decision)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("pending count = %d, want 0 after Stop", c.Len())
	}
}

func TestCoordinator_ContextCancelDenies(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Resolution, 1)
	go func() {
		done <- c.Park(ctx, newTestApproval("a1", "s1", 60000, policy.DecisionAllow))
	}()

	waitForPending(t, c, 1)
	cancel()

	res := <-done
	if res.Decision != policy.DecisionDeny {
		t.Fatalf("Decision = %v, want deny on client disconnect", res.Decision)
	}
}

func TestCoordinator_ResolveUnknownApproval(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	if err := c.Resolve("nope", policy.DecisionAllow, ""); err == nil {
		t.Fatal("expected error resolving an unknown approval id")
	}
}

func TestCoordinator_OnResolveHookFiresExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)
	t.Parallel()

	c := NewCoordinator()
	var mu sync.Mutex
	var fired int
	c.SetOnResolve(func(p PendingApproval, r Resolution) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	done := make(chan Resolution, 1)
	go func() {
		done <- c.Park(context.Background(), newTestApproval("a1", "s1", 5000, policy.DecisionAllow))
	}()
	waitForPending(t, c, 1)
	_ = c.Resolve("a1", policy.DecisionAllow, "")
	<-done

	// A second resolve attempt must not fire the hook again.
	_ = c.Resolve("a1", policy.DecisionDeny, "")

	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Fatalf("onResolve fired %d times, want exactly 1", fired)
	}
}

func idFor(i int) string {
	return string(rune('a' + i))
}

// waitForPending polls until the coordinator has registered want pending
// approvals, bounding the flakiness of racing against the Park goroutines.
func waitForPending(t *testing.T, c *Coordinator, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Len() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pending count never reached %d, stuck at %d", want, c.Len())
}
