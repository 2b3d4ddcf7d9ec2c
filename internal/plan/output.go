package plan

// #region build-output

// buildOutput reduces step results into one user-facing output. The most
// recent successful step that produced user-facing text wins; a plan with no
// such step gets a generic message, and a fully failed plan gets a clearly
// labeled execution-error output so the feedback loop still has something to
// monitor.
func buildOutput(results []StepResult) Output {
	anySuccess := false
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if !r.Success {
			continue
		}
		anySuccess = true
		if out, ok := userFacing(r.Output); ok {
			return out
		}
	}

	if anySuccess {
		return Output{
			Title:   "Coach update",
			Message: "Advice prepared, but no summary was produced.",
		}
	}
	return Output{
		Title:   "Execution error",
		Message: "Coaching plan failed; no advice available this round.",
		Errored: true,
	}
}

// userFacing extracts title/message/action items from a step's output data.
func userFacing(data map[string]any) (Output, bool) {
	if data == nil {
		return Output{}, false
	}
	msg, ok := data["message"].(string)
	if !ok || msg == "" {
		return Output{}, false
	}

	out := Output{Message: msg, Title: "Coach"}
	if t, ok := data["title"].(string); ok && t != "" {
		out.Title = t
	}
	switch items := data["action_items"].(type) {
	case []string:
		out.ActionItems = items
	case []any:
		for _, it := range items {
			if s, ok := it.(string); ok {
				out.ActionItems = append(out.ActionItems, s)
			}
		}
	}
	return out, true
}

// #endregion build-output
