package decision

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubMatcher struct {
	protected bool
	calls     int
}

func (m *stubMatcher) IsProtected(string) bool {
	m.calls++
	return m.protected
}

type stubGaps struct {
	inGap bool
	err   error
	calls int
}

func (g *stubGaps) IsInGap(context.Context, string, time.Time) (bool, error) {
	g.calls++
	return g.inGap, g.err
}

type stubBlackouts struct {
	active bool
	err    error
	calls  int
}

func (b *stubBlackouts) ActiveForSubject(context.Context, string) (bool, error) {
	b.calls++
	return b.active, b.err
}

func TestShouldSuppress_AnySourceSuppresses(t *testing.T) {
	cases := []struct {
		name      string
		protected bool
		inGap     bool
		blackout  bool
		want      bool
	}{
		{"none", false, false, false, false},
		{"protected resource", true, false, false, true},
		{"scheduled gap", false, true, false, true},
		{"active blackout", false, false, true, true},
		{"all three", true, true, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(&stubMatcher{protected: tc.protected},
				&stubGaps{inGap: tc.inGap},
				&stubBlackouts{active: tc.blackout})
			got := e.ShouldSuppress(context.Background(), "child-42", "https://example.org/page", time.Now())
			if got != tc.want {
				t.Errorf("ShouldSuppress = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestShouldSuppress_EvaluatesEveryCheck(t *testing.T) {
	// A protected match must not short-circuit the other lookups; the work
	// done per call has to be the same whichever source fires.
	matcher := &stubMatcher{protected: true}
	gaps := &stubGaps{inGap: true}
	blackouts := &stubBlackouts{active: true}
	e := NewEngine(matcher, gaps, blackouts)

	e.ShouldSuppress(context.Background(), "child-42", "https://example.org", time.Now())

	if matcher.calls != 1 || gaps.calls != 1 || blackouts.calls != 1 {
		t.Errorf("calls = matcher:%d gaps:%d blackouts:%d, want 1 each",
			matcher.calls, gaps.calls, blackouts.calls)
	}
}

func TestShouldSuppress_FailsTowardSuppression(t *testing.T) {
	boom := errors.New("store unavailable")

	e := NewEngine(&stubMatcher{}, &stubGaps{err: boom}, &stubBlackouts{})
	if !e.ShouldSuppress(context.Background(), "child-42", "https://example.org", time.Now()) {
		t.Error("gap lookup failure should suppress")
	}

	e = NewEngine(&stubMatcher{}, &stubGaps{}, &stubBlackouts{err: boom})
	if !e.ShouldSuppress(context.Background(), "child-42", "https://example.org", time.Now()) {
		t.Error("blackout lookup failure should suppress")
	}
}

func TestStats_CountsTotalsOnly(t *testing.T) {
	e := NewEngine(&stubMatcher{protected: true}, &stubGaps{}, &stubBlackouts{})
	ctx := context.Background()
	at := time.Now()

	e.ShouldSuppress(ctx, "child-42", "https://example.org", at)
	e.ShouldSuppress(ctx, "child-42", "https://example.org", at)

	e2 := NewEngine(&stubMatcher{}, &stubGaps{}, &stubBlackouts{})
	e2.ShouldSuppress(ctx, "child-42", "https://example.org", at)

	if evals, supp := e.Stats(); evals != 2 || supp != 2 {
		t.Errorf("stats = %d/%d, want 2/2", evals, supp)
	}
	if evals, supp := e2.Stats(); evals != 1 || supp != 0 {
		t.Errorf("stats = %d/%d, want 1/0", evals, supp)
	}
}
