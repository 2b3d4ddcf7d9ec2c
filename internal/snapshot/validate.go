package snapshot

import "fmt"

// #region validation-error

// ValidationError reports a structurally invalid snapshot. The caller
// decides whether to drop or retry; the loop continues with prior state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Reason)
}

// #endregion validation-error

// #region validate

// Validate checks structural completeness of a snapshot before it enters
// history. Required sub-states must be present and health must be in [0,100].
func Validate(s Snapshot) error {
	if s.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	if s.Processed.Player == nil {
		return &ValidationError{Field: "player", Reason: "sub-state missing"}
	}
	if s.Processed.Team == nil {
		return &ValidationError{Field: "team", Reason: "sub-state missing"}
	}
	if s.Processed.Map == nil {
		return &ValidationError{Field: "map", Reason: "sub-state missing"}
	}
	if h := s.Processed.Player.Health; h < 0 || h > 100 {
		return &ValidationError{Field: "player.health", Reason: fmt.Sprintf("%d out of [0,100]", h)}
	}
	return nil
}

// #endregion validate
