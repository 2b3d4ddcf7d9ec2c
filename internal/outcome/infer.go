package outcome

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// #region infer-outcome

// inferOutcome reduces a tracker's checkpoints into one Outcome. Expired
// trackers (deadline passed, nothing observed) still yield a low-confidence
// Outcome so every tracked decision produces exactly one feedback signal.
func inferOutcome(trackingID string, t *tracker, now time.Time, expired bool, highSig float32) Outcome {
	out := Outcome{
		TrackingID:  trackingID,
		DecisionID:  t.decision.ID,
		RuleID:      t.decision.RuleID,
		Category:    t.decision.Category,
		Checkpoints: len(t.checkpoints),
		ConcludedAt: now,
	}

	if expired {
		out.Status = StatusExpired
		out.Confidence = 0.2
		out.Learnings = []string{"no observable response within the monitoring window"}
		return out
	}
	out.Status = StatusConcluded

	out.Followed = inferFollowed(t.actionItems, t.checkpoints)
	out.Success = inferSuccess(t, out.Followed, highSig)
	out.Impact = inferImpact(t, out.Followed, out.Success)
	out.Confidence = 0.4 + 0.6*avgSignificance(t.checkpoints)
	out.Learnings = learnings(t, out)
	return out
}

// #endregion infer-outcome

// #region followed

// inferFollowed uses normalized bag-of-words overlap between the advice's
// action items and the checkpoint change descriptions. Any overlap counts
// as followed. This is a conservative heuristic, not semantic understanding.
func inferFollowed(actionItems []string, checkpoints []Checkpoint) bool {
	if len(actionItems) == 0 || len(checkpoints) == 0 {
		return false
	}
	advice := make(map[string]bool)
	for _, item := range actionItems {
		for _, w := range contentWords(item) {
			advice[w] = true
		}
	}
	for _, c := range checkpoints {
		for _, w := range contentWords(c.Description) {
			if advice[w] {
				return true
			}
		}
	}
	return false
}

var overlapStopwords = map[string]bool{
	"the": true, "and": true, "with": true, "your": true, "this": true,
	"that": true, "from": true, "into": true, "since": true, "after": true,
	"for": true, "you": true, "not": true, "don": true, "are": true,
	"advice": true, "round": true,
}

// contentWords lowercases, strips punctuation, and keeps words of at least
// three characters that are not stopwords. Three-letter words like "buy"
// must survive so money-related advice can match the money checkpoint.
func contentWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) >= 3 && !overlapStopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

// #endregion followed

// #region success

// inferSuccess applies the category-specific conclusion rules.
func inferSuccess(t *tracker, followed bool, highSig float32) bool {
	switch t.decision.Category {
	case "tactical":
		survived := t.lastAlive
		killsUp := t.lastKills > t.baseline.Kills
		return followed && (survived || killsUp)
	case "strategic":
		return t.lastScore > t.baseline.Score
	case "error_correction":
		return !t.errorSeen
	default:
		if !followed {
			return false
		}
		for _, c := range t.checkpoints {
			if c.Significance >= highSig {
				return true
			}
		}
		return false
	}
}

// inferImpact produces a signed score: successful advice earns the average
// checkpoint significance, followed-but-failed advice counts against the
// rule, ignored advice is near-neutral.
func inferImpact(t *tracker, followed, success bool) float32 {
	sig := avgSignificance(t.checkpoints)
	switch {
	case success:
		if sig < 0.2 {
			sig = 0.2
		}
		return sig
	case followed:
		return -0.5 * (0.4 + sig)
	default:
		return -0.1
	}
}

func avgSignificance(checkpoints []Checkpoint) float32 {
	if len(checkpoints) == 0 {
		return 0
	}
	var sum float32
	for _, c := range checkpoints {
		sum += c.Significance
	}
	return sum / float32(len(checkpoints))
}

// #endregion success

// #region learnings

func learnings(t *tracker, out Outcome) []string {
	var ls []string
	if out.Followed {
		ls = append(ls, "player acted on the advice")
	} else {
		ls = append(ls, "no behavioral match to the advice")
	}
	if out.Success {
		ls = append(ls, fmt.Sprintf("%s outcome improved within the window", t.decision.Category))
	} else if out.Followed {
		ls = append(ls, "advice was followed but did not help")
	}
	if t.errorSeen {
		ls = append(ls, "the flagged mistake repeated during monitoring")
	}
	return ls
}

// #endregion learnings
