package outcome

import (
	"testing"
	"time"
)

func TestContentWords(t *testing.T) {
	words := contentWords("Save your money, don't force-buy this round!")
	want := map[string]bool{"save": true, "money": true, "force": true, "buy": true}
	for _, w := range words {
		if !want[w] {
			t.Errorf("unexpected word %q", w)
		}
		delete(want, w)
	}
	for w := range want {
		t.Errorf("missing word %q", w)
	}
}

func TestInferFollowed_Overlap(t *testing.T) {
	items := []string{"rotate to the B site early"}
	checkpoints := []Checkpoint{
		{Dimension: "position", Description: "moved 450 units, position rotate"},
	}
	if !inferFollowed(items, checkpoints) {
		t.Error("expected overlap on 'rotate'")
	}

	checkpoints[0].Description = "health -40 since advice"
	if inferFollowed(items, checkpoints) {
		t.Error("expected no overlap")
	}

	if inferFollowed(nil, checkpoints) {
		t.Error("no advice means not followed")
	}
	if inferFollowed(items, nil) {
		t.Error("no checkpoints means not followed")
	}
}

func TestInferOutcome_Expired(t *testing.T) {
	tr := &tracker{decision: testDecision("tactical")}
	out := inferOutcome("t1", tr, time.Now(), true, 0.7)
	if out.Status != StatusExpired {
		t.Errorf("status = %s, want expired", out.Status)
	}
	if out.Confidence != 0.2 {
		t.Errorf("confidence = %.2f, want 0.2", out.Confidence)
	}
	if out.Followed || out.Success {
		t.Error("expired outcome must not claim followed or success")
	}
	if len(out.Learnings) == 0 {
		t.Error("expired outcome should still carry a learning note")
	}
}

func TestInferImpact_FollowedButFailedIsNegative(t *testing.T) {
	tr := &tracker{
		decision:    testDecision("economic"),
		checkpoints: []Checkpoint{{Significance: 0.3}},
	}
	impact := inferImpact(tr, true, false)
	if impact >= 0 {
		t.Errorf("impact = %.2f, want negative for followed-but-failed", impact)
	}
	ignored := inferImpact(&tracker{decision: testDecision("economic")}, false, false)
	if ignored != -0.1 {
		t.Errorf("ignored impact = %.2f, want -0.1", ignored)
	}
	if impact >= ignored {
		t.Error("followed-but-failed should cost more than ignored advice")
	}
}

func TestResponseFor(t *testing.T) {
	cases := []struct {
		followed, success bool
		want              string
	}{
		{true, true, "positive"},
		{true, false, "negative"},
		{false, true, "neutral"},
		{false, false, "neutral"},
	}
	for _, c := range cases {
		got := responseFor(Outcome{Followed: c.followed, Success: c.success})
		if string(got) != c.want {
			t.Errorf("followed=%v success=%v: response = %s, want %s", c.followed, c.success, got, c.want)
		}
	}
}
