package plan

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comercialtoddy/cs2-coach-ai/internal/capability"
)

func testConfig() Config {
	return Config{
		MaxConcurrentPlans: 4,
		MaxSteps:           8,
		DefaultTimeout:     time.Second,
		MaxBackoff:         50 * time.Millisecond,
	}
}

func alwaysOK(data map[string]any) capability.InvokeFunc {
	return func(ctx context.Context, input map[string]any) (capability.Result, error) {
		return capability.Result{Success: true, Data: data}, nil
	}
}

func alwaysFail() capability.InvokeFunc {
	return func(ctx context.Context, input map[string]any) (capability.Result, error) {
		return capability.Result{Success: false, Err: "scripted failure"}, nil
	}
}

func register(r *capability.FuncRegistry, name string, fn capability.InvokeFunc) {
	r.Register(capability.Descriptor{Name: name}, fn)
}

func TestExecuteStep_RetriesThenFallback(t *testing.T) {
	r := capability.NewFuncRegistry()
	var primaryCalls, fallbackCalls atomic.Int32
	register(r, "primary", func(ctx context.Context, input map[string]any) (capability.Result, error) {
		primaryCalls.Add(1)
		return capability.Result{Success: false, Err: "down"}, nil
	})
	register(r, "backup", func(ctx context.Context, input map[string]any) (capability.Result, error) {
		fallbackCalls.Add(1)
		return capability.Result{Success: true, Data: map[string]any{"message": "from backup"}}, nil
	})
	e := NewExecutor(r, testConfig())

	res := e.ExecuteStep(context.Background(), Step{
		ID:         "step",
		Capability: "primary",
		Timeout:    time.Second,
		Retry:      RetryPolicy{MaxRetries: 2, Backoff: BackoffLinear, Delay: time.Millisecond},
		Fallback:   "backup",
	})

	if got := primaryCalls.Load(); got != 3 {
		t.Errorf("primary calls = %d, want 3 (initial + 2 retries)", got)
	}
	if got := fallbackCalls.Load(); got != 1 {
		t.Errorf("fallback calls = %d, want exactly 1", got)
	}
	if !res.Success || !res.Fallback {
		t.Errorf("result = %+v, want fallback success", res)
	}
	if res.Capability != "backup" {
		t.Errorf("capability = %s, want backup", res.Capability)
	}
	if res.Attempts != 4 {
		t.Errorf("attempts = %d, want 4", res.Attempts)
	}
}

func TestExecuteStep_NoFallbackFails(t *testing.T) {
	r := capability.NewFuncRegistry()
	register(r, "primary", alwaysFail())
	e := NewExecutor(r, testConfig())

	res := e.ExecuteStep(context.Background(), Step{
		ID:         "step",
		Capability: "primary",
		Timeout:    time.Second,
		Retry:      RetryPolicy{MaxRetries: 1, Delay: time.Millisecond},
	})

	if res.Success {
		t.Error("expected failure")
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if res.Err == "" {
		t.Error("expected error text")
	}
}

func TestExecuteStep_TimeoutCountsAsFailure(t *testing.T) {
	r := capability.NewFuncRegistry()
	register(r, "slow", func(ctx context.Context, input map[string]any) (capability.Result, error) {
		time.Sleep(200 * time.Millisecond)
		return capability.Result{Success: true}, nil
	})
	e := NewExecutor(r, testConfig())

	start := time.Now()
	res := e.ExecuteStep(context.Background(), Step{
		ID:         "step",
		Capability: "slow",
		Timeout:    20 * time.Millisecond,
	})

	if res.Success {
		t.Error("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("step was not abandoned at its timeout, took %s", elapsed)
	}
}

func TestExecute_DependencyFailureSkipsDownstream(t *testing.T) {
	r := capability.NewFuncRegistry()
	register(r, "fetch", alwaysOK(nil))
	register(r, "generate", alwaysFail())
	register(r, "speak", alwaysOK(nil))
	e := NewExecutor(r, testConfig())

	res, err := e.Execute(context.Background(), "d1", []Step{
		{ID: "s1", Capability: "fetch", Timeout: time.Second},
		{ID: "s2", Capability: "generate", Timeout: time.Second, DependsOn: []string{"s1"},
			Retry: RetryPolicy{MaxRetries: 1, Delay: time.Millisecond}},
		{ID: "s3", Capability: "speak", Timeout: time.Second, DependsOn: []string{"s2"}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !res.Steps[0].Success {
		t.Error("s1 should succeed")
	}
	if res.Steps[1].Success || res.Steps[1].Skipped {
		t.Errorf("s2 should fail after retries, got %+v", res.Steps[1])
	}
	if !res.Steps[2].Skipped {
		t.Errorf("s3 should be skipped, got %+v", res.Steps[2])
	}
	// Skipped steps count against the success rate.
	if res.SuccessRate < 0.32 || res.SuccessRate > 0.34 {
		t.Errorf("success rate = %.2f, want 1/3", res.SuccessRate)
	}
	if !res.Output.Errored {
		// s1 succeeded without user-facing text, so the output is generic
		// but not errored.
		t.Log("output:", res.Output.Message)
	}
}

func TestExecute_IndependentSiblingsBothRun(t *testing.T) {
	r := capability.NewFuncRegistry()
	var calls atomic.Int32
	register(r, "cap", func(ctx context.Context, input map[string]any) (capability.Result, error) {
		calls.Add(1)
		return capability.Result{Success: true}, nil
	})
	e := NewExecutor(r, testConfig())

	res, err := e.Execute(context.Background(), "d1", []Step{
		{ID: "a", Capability: "cap", Timeout: time.Second},
		{ID: "b", Capability: "cap", Timeout: time.Second},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if res.SuccessRate != 1 {
		t.Errorf("success rate = %.2f, want 1", res.SuccessRate)
	}
}

func TestExecute_UnresolvableDependencySkipped(t *testing.T) {
	r := capability.NewFuncRegistry()
	register(r, "cap", alwaysOK(nil))
	e := NewExecutor(r, testConfig())

	res, err := e.Execute(context.Background(), "d1", []Step{
		{ID: "a", Capability: "cap", Timeout: time.Second, DependsOn: []string{"ghost"}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Steps[0].Skipped {
		t.Errorf("expected skip for missing dependency, got %+v", res.Steps[0])
	}
}

func TestExecute_StepCeiling(t *testing.T) {
	r := capability.NewFuncRegistry()
	register(r, "cap", alwaysOK(nil))
	config := testConfig()
	config.MaxSteps = 2
	e := NewExecutor(r, config)

	steps := []Step{
		{ID: "a", Capability: "cap"},
		{ID: "b", Capability: "cap"},
		{ID: "c", Capability: "cap"},
	}
	_, err := e.Execute(context.Background(), "d1", steps)
	var rerr *ResourceLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *ResourceLimitError", err)
	}
}

func TestExecute_ConcurrentPlanCeiling(t *testing.T) {
	r := capability.NewFuncRegistry()
	started := make(chan struct{})
	release := make(chan struct{})
	register(r, "block", func(ctx context.Context, input map[string]any) (capability.Result, error) {
		close(started)
		<-release
		return capability.Result{Success: true}, nil
	})
	register(r, "cap", alwaysOK(nil))

	config := testConfig()
	config.MaxConcurrentPlans = 1
	e := NewExecutor(r, config)

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Execute(context.Background(), "d1", []Step{{ID: "a", Capability: "block", Timeout: time.Second}})
	}()
	<-started

	_, err := e.Execute(context.Background(), "d2", []Step{{ID: "b", Capability: "cap", Timeout: time.Second}})
	var rerr *ResourceLimitError
	if !errors.As(err, &rerr) {
		t.Errorf("err = %v, want *ResourceLimitError", err)
	}

	close(release)
	<-done
}

func TestExecute_EmptyPlanRejected(t *testing.T) {
	e := NewExecutor(capability.NewFuncRegistry(), testConfig())
	if _, err := e.Execute(context.Background(), "d1", nil); err == nil {
		t.Error("expected error for empty plan")
	}
}

func TestRetryDelay_Curves(t *testing.T) {
	e := NewExecutor(capability.NewFuncRegistry(), Config{MaxBackoff: time.Second})

	cases := []struct {
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{RetryPolicy{Backoff: BackoffLinear, Delay: 100 * time.Millisecond}, 1, 100 * time.Millisecond},
		{RetryPolicy{Backoff: BackoffLinear, Delay: 100 * time.Millisecond}, 3, 300 * time.Millisecond},
		{RetryPolicy{Backoff: BackoffExponential, Delay: 100 * time.Millisecond}, 1, 100 * time.Millisecond},
		{RetryPolicy{Backoff: BackoffExponential, Delay: 100 * time.Millisecond}, 3, 400 * time.Millisecond},
		{RetryPolicy{Backoff: BackoffExponential, Delay: 400 * time.Millisecond}, 4, time.Second}, // capped
	}
	for _, c := range cases {
		if got := e.retryDelay(c.policy, c.attempt); got != c.want {
			t.Errorf("retryDelay(%s attempt %d) = %s, want %s", c.policy.Backoff, c.attempt, got, c.want)
		}
	}
}

func TestBuildOutput_UserFacingText(t *testing.T) {
	results := []StepResult{
		{StepID: "fetch", Success: true},
		{StepID: "advice", Success: true, Output: map[string]any{
			"title":        "Eco call",
			"message":      "Save this round and full buy next.",
			"action_items": []any{"save your money", "stack B together"},
		}},
		{StepID: "show", Success: true},
	}
	out := buildOutput(results)
	if out.Title != "Eco call" || out.Errored {
		t.Errorf("unexpected output: %+v", out)
	}
	if len(out.ActionItems) != 2 {
		t.Errorf("action items = %v", out.ActionItems)
	}
}

func TestBuildOutput_AllFailed(t *testing.T) {
	out := buildOutput([]StepResult{{StepID: "a"}, {StepID: "b", Skipped: true}})
	if !out.Errored {
		t.Error("expected errored output for fully failed plan")
	}
}
