package domain

import "testing"

func TestEstimateStatusTransitions(t *testing.T) {
	cases := []struct {
		from    EstimateStatus
		to      EstimateStatus
		allowed bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusAccepted, false},
		{StatusDraft, StatusRejected, false},
		{StatusDraft, StatusExpired, false},
		{StatusSent, StatusAccepted, true},
		{StatusSent, StatusRejected, true},
		{StatusSent, StatusExpired, true},
		{StatusSent, StatusDraft, false},
		{StatusAccepted, StatusRejected, false},
		{StatusRejected, StatusSent, false},
		{StatusExpired, StatusSent, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestEstimateStatusTerminal(t *testing.T) {
	for _, s := range []EstimateStatus{StatusAccepted, StatusRejected, StatusExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	for _, s := range []EstimateStatus{StatusDraft, StatusSent} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
	if EstimateStatus("converted").IsValid() {
		t.Error("unknown status reported valid")
	}
}
