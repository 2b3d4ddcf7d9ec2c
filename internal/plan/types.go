package plan

import (
	"fmt"
	"time"
)

// #region backoff

// Backoff selects the retry delay curve.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy controls per-step retry behavior. MaxRetries is the number of
// retries after the first attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    Backoff
	Delay      time.Duration // base delay before the first retry
}

// #endregion backoff

// #region step

// Step is one capability invocation within a plan.
type Step struct {
	ID         string
	Capability string
	Input      map[string]any
	DependsOn  []string
	Timeout    time.Duration // 0 = registry default, then executor default
	Retry      RetryPolicy
	Fallback   string // capability tried once after retries are exhausted
}

// StepResult records the terminal outcome of one step. Appended once per
// step, never mutated.
type StepResult struct {
	StepID     string
	Capability string
	Success    bool
	Output     map[string]any
	Err        string
	Elapsed    time.Duration
	Attempts   int
	Fallback   bool // result came from the fallback capability
	Skipped    bool // never attempted because a dependency hard-failed
}

// #endregion step

// #region result

// Output is the single user-facing object reduced from a plan run.
type Output struct {
	Title       string
	Message     string
	ActionItems []string
	Errored     bool
}

// Result is the terminal outcome of one plan execution.
type Result struct {
	DecisionID  string
	Steps       []StepResult
	TotalTime   time.Duration
	SuccessRate float32
	Output      Output
}

// #endregion result

// #region config

// Config holds executor resource limits and defaults.
type Config struct {
	MaxConcurrentPlans int64
	MaxSteps           int
	DefaultTimeout     time.Duration
	MaxBackoff         time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPlans: 4,
		MaxSteps:           8,
		DefaultTimeout:     10 * time.Second,
		MaxBackoff:         10 * time.Second,
	}
}

// #endregion config

// #region resource-limit-error

// ResourceLimitError reports a plan rejected before execution. No steps
// were attempted.
type ResourceLimitError struct {
	Reason string
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("plan rejected: %s", e.Reason)
}

// #endregion resource-limit-error
