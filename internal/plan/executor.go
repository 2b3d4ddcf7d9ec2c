package plan

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/comercialtoddy/cs2-coach-ai/internal/capability"
)

// #region executor

// Executor runs decision plans against the capability registry. Plans run
// independently up to the concurrency ceiling; within one plan, steps run in
// dependency order with independent siblings issued concurrently.
type Executor struct {
	registry capability.Registry
	config   Config
	sem      *semaphore.Weighted
}

// NewExecutor creates an executor with the given registry and limits.
func NewExecutor(registry capability.Registry, config Config) *Executor {
	return &Executor{
		registry: registry,
		config:   config,
		sem:      semaphore.NewWeighted(config.MaxConcurrentPlans),
	}
}

// #endregion executor

// #region execute

// Execute runs a full plan. A *ResourceLimitError is returned when the plan
// is rejected outright (over the step ceiling or the concurrent-plan
// ceiling); execution failures of individual steps are reported inside the
// Result, which always carries a terminal user-facing output.
func (e *Executor) Execute(ctx context.Context, decisionID string, steps []Step) (Result, error) {
	if len(steps) == 0 {
		return Result{}, fmt.Errorf("empty plan for decision %s", decisionID)
	}
	if len(steps) > e.config.MaxSteps {
		return Result{}, &ResourceLimitError{
			Reason: fmt.Sprintf("%d steps exceeds ceiling %d", len(steps), e.config.MaxSteps),
		}
	}
	if !e.sem.TryAcquire(1) {
		return Result{}, &ResourceLimitError{Reason: "concurrent plan ceiling reached"}
	}
	defer e.sem.Release(1)

	start := time.Now()
	results := e.runWaves(ctx, steps)

	successes := 0
	for _, r := range results {
		if r.Success {
			successes++
		}
	}

	res := Result{
		DecisionID:  decisionID,
		Steps:       results,
		TotalTime:   time.Since(start),
		SuccessRate: float32(successes) / float32(len(steps)),
		Output:      buildOutput(results),
	}
	log.Printf("[EXEC] plan %s done: %d/%d steps ok in %s",
		decisionID, successes, len(steps), res.TotalTime.Round(time.Millisecond))
	return res, nil
}

// runWaves executes steps in dependency waves. Steps whose dependencies
// hard-failed are marked skipped without being attempted; steps with no
// dependency on the failure still run.
func (e *Executor) runWaves(ctx context.Context, steps []Step) []StepResult {
	var mu sync.Mutex
	terminal := make(map[string]StepResult, len(steps))
	pending := make(map[string]Step, len(steps))
	for _, s := range steps {
		pending[s.ID] = s
	}

	for len(pending) > 0 {
		var ready []Step
		for id, s := range pending {
			switch depState(s, terminal) {
			case depReady:
				ready = append(ready, s)
			case depFailed:
				terminal[id] = StepResult{
					StepID:     s.ID,
					Capability: s.Capability,
					Skipped:    true,
					Err:        "dependency failed",
				}
				delete(pending, id)
			}
		}
		if len(ready) == 0 {
			// Remaining steps have unresolvable dependencies (missing or
			// cyclic). Mark them skipped rather than spinning.
			for id, s := range pending {
				if _, done := terminal[id]; !done {
					terminal[id] = StepResult{
						StepID:     s.ID,
						Capability: s.Capability,
						Skipped:    true,
						Err:        "unresolvable dependency",
					}
				}
			}
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range ready {
			s := s
			delete(pending, s.ID)
			g.Go(func() error {
				r := e.ExecuteStep(gctx, s)
				mu.Lock()
				terminal[s.ID] = r
				mu.Unlock()
				return nil
			})
		}
		g.Wait()
	}

	out := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		out = append(out, terminal[s.ID])
	}
	return out
}

type depResult int

const (
	depWaiting depResult = iota
	depReady
	depFailed
)

func depState(s Step, terminal map[string]StepResult) depResult {
	state := depReady
	for _, dep := range s.DependsOn {
		r, done := terminal[dep]
		if !done {
			state = depWaiting
			continue
		}
		if !r.Success {
			return depFailed
		}
	}
	return state
}

// #endregion execute

// #region execute-step

// ExecuteStep runs one step with its retry policy, then a single un-retried
// fallback attempt if one is declared. Exposed for step-level reuse.
func (e *Executor) ExecuteStep(ctx context.Context, step Step) StepResult {
	start := time.Now()
	timeout := e.stepTimeout(step)

	attempts := 0
	var lastErr string
	for attempts <= step.Retry.MaxRetries {
		attempts++
		res, err := e.attempt(ctx, step.Capability, step.Input, timeout)
		if err == nil && res.Success {
			return StepResult{
				StepID:     step.ID,
				Capability: step.Capability,
				Success:    true,
				Output:     res.Data,
				Elapsed:    time.Since(start),
				Attempts:   attempts,
			}
		}
		lastErr = attemptError(res, err)
		log.Printf("[EXEC] step %s attempt %d failed: %s", step.ID, attempts, lastErr)

		if attempts <= step.Retry.MaxRetries {
			if !sleepCtx(ctx, e.retryDelay(step.Retry, attempts)) {
				lastErr = "canceled during retry backoff"
				break
			}
		}
	}

	if step.Fallback != "" {
		res, err := e.attempt(ctx, step.Fallback, step.Input, timeout)
		attempts++
		if err == nil && res.Success {
			return StepResult{
				StepID:     step.ID,
				Capability: step.Fallback,
				Success:    true,
				Output:     res.Data,
				Elapsed:    time.Since(start),
				Attempts:   attempts,
				Fallback:   true,
			}
		}
		lastErr = attemptError(res, err)
		log.Printf("[EXEC] step %s fallback %s failed: %s", step.ID, step.Fallback, lastErr)
	}

	return StepResult{
		StepID:     step.ID,
		Capability: step.Capability,
		Err:        lastErr,
		Elapsed:    time.Since(start),
		Attempts:   attempts,
		Fallback:   step.Fallback != "",
	}
}

// attempt races one capability invocation against its timeout. A capability
// that ignores context cancellation cannot block subsequent steps: the
// attempt is abandoned when the timer fires.
func (e *Executor) attempt(ctx context.Context, name string, input map[string]any, timeout time.Duration) (capability.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type invokeOut struct {
		res capability.Result
		err error
	}
	ch := make(chan invokeOut, 1)
	go func() {
		res, err := e.registry.Invoke(cctx, name, input)
		ch <- invokeOut{res, err}
	}()

	select {
	case out := <-ch:
		return out.res, out.err
	case <-cctx.Done():
		return capability.Result{}, fmt.Errorf("capability %s: %w", name, cctx.Err())
	}
}

func (e *Executor) stepTimeout(step Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	if desc, ok := e.registry.Describe(step.Capability); ok && desc.DefaultTimeout > 0 {
		return desc.DefaultTimeout
	}
	return e.config.DefaultTimeout
}

// retryDelay computes the capped backoff delay before retry number attempt.
func (e *Executor) retryDelay(p RetryPolicy, attempt int) time.Duration {
	base := p.Delay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	var d time.Duration
	switch p.Backoff {
	case BackoffExponential:
		d = base << (attempt - 1)
	default:
		d = base * time.Duration(attempt)
	}
	if d > e.config.MaxBackoff {
		d = e.config.MaxBackoff
	}
	return d
}

func attemptError(res capability.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	if res.Err != "" {
		return res.Err
	}
	return "capability reported failure"
}

// sleepCtx sleeps for d unless ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// #endregion execute-step
