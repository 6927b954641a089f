package domain

import "testing"

func TestOrderStatusHappyPath(t *testing.T) {
	chain := []OrderStatus{
		StatusPending, StatusConfirmed, StatusEstimateSent, StatusEstimateAccepted,
		StatusPaid, StatusProcessing, StatusDispatched, StatusShipped, StatusDelivered,
	}
	for i := 0; i < len(chain)-1; i++ {
		if !chain[i].CanTransitionTo(chain[i+1]) {
			t.Errorf("%s -> %s must be allowed", chain[i], chain[i+1])
		}
	}
}

func TestOrderStatusSkipEstimateLeg(t *testing.T) {
	if !StatusConfirmed.CanTransitionTo(StatusPaid) {
		t.Error("confirmed -> paid must be allowed without the estimate leg")
	}
}

func TestOrderStatusRejectsJumps(t *testing.T) {
	cases := []struct{ from, to OrderStatus }{
		{StatusPending, StatusPaid},
		{StatusPending, StatusDelivered},
		{StatusConfirmed, StatusShipped},
		{StatusEstimateSent, StatusPaid},
		{StatusEstimateRejected, StatusPaid},
		{StatusPaid, StatusShipped},
		{StatusShipped, StatusProcessing},
		{StatusDelivered, StatusPending},
	}
	for _, tc := range cases {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s must be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusCancellation(t *testing.T) {
	nonTerminal := []OrderStatus{
		StatusPending, StatusConfirmed, StatusEstimateSent, StatusEstimateAccepted,
		StatusEstimateRejected, StatusPaid, StatusProcessing, StatusDispatched, StatusShipped,
	}
	for _, s := range nonTerminal {
		if !s.CanTransitionTo(StatusCancelled) {
			t.Errorf("%s -> cancelled must be allowed", s)
		}
	}
	if StatusDelivered.CanTransitionTo(StatusCancelled) {
		t.Error("delivered -> cancelled must be rejected")
	}
	if StatusCancelled.CanTransitionTo(StatusPending) {
		t.Error("cancelled is terminal")
	}
}

func TestOrderStatusDomainClosure(t *testing.T) {
	if OrderStatus("returned").IsValid() {
		t.Error("unknown status reported valid")
	}
	for _, s := range []OrderStatus{StatusDelivered, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}
