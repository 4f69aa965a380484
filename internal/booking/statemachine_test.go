package booking

import (
	"errors"
	"testing"
)

var allStatuses = []Status{
	StatusPending,
	StatusPaymentInitiated,
	StatusPaymentAuthorized,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelledByClient,
	StatusCancelledByPro,
	StatusCancelledByProPending,
	StatusPendingPayout,
	StatusPaidOut,
}

var allActors = []Actor{ActorClient, ActorProfessional, ActorAdmin, ActorSystem, ActorGateway}

func TestAuthorizeLegalTransitions(t *testing.T) {
	legal := []struct {
		from  Status
		to    Status
		actor Actor
	}{
		{StatusPending, StatusPaymentInitiated, ActorSystem},
		{StatusPending, StatusCancelledByClient, ActorSystem},
		{StatusPaymentInitiated, StatusCancelledByClient, ActorSystem},
		{StatusPaymentInitiated, StatusPaymentAuthorized, ActorGateway},
		{StatusPaymentAuthorized, StatusConfirmed, ActorProfessional},
		{StatusPaymentAuthorized, StatusCancelledByClient, ActorClient},
		{StatusConfirmed, StatusCancelledByClient, ActorClient},
		{StatusConfirmed, StatusCancelledByProPending, ActorProfessional},
		{StatusCancelledByProPending, StatusCancelledByPro, ActorAdmin},
		{StatusConfirmed, StatusCompleted, ActorSystem},
		{StatusCompleted, StatusPendingPayout, ActorSystem},
		{StatusPendingPayout, StatusPaidOut, ActorSystem},
	}

	for _, c := range legal {
		if err := Authorize(c.from, c.to, c.actor); err != nil {
			t.Errorf("Authorize(%s, %s, %s) unexpectedly rejected: %v", c.from, c.to, c.actor, err)
		}
	}

	// Everything outside the legal set must fail, for every actor.
	legalSet := map[[3]string]bool{}
	for _, c := range legal {
		legalSet[[3]string{string(c.from), string(c.to), string(c.actor)}] = true
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			for _, actor := range allActors {
				if legalSet[[3]string{string(from), string(to), string(actor)}] {
					continue
				}
				err := Authorize(from, to, actor)
				if !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("Authorize(%s, %s, %s) = %v, want ErrIllegalTransition", from, to, actor, err)
				}
			}
		}
	}
}

func TestAuthorizeWrongActor(t *testing.T) {
	// The transition exists but the actor has no right to drive it.
	err := Authorize(StatusPaymentAuthorized, StatusConfirmed, ActorClient)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("client confirming should be illegal, got %v", err)
	}

	err = Authorize(StatusCancelledByProPending, StatusCancelledByPro, ActorProfessional)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("professional ratifying own cancellation should be illegal, got %v", err)
	}
}

func TestTerminal(t *testing.T) {
	terminals := map[Status]bool{
		StatusCancelledByClient: true,
		StatusCancelledByPro:    true,
		StatusPaidOut:           true,
	}

	for _, s := range allStatuses {
		if got := Terminal(s); got != terminals[s] {
			t.Errorf("Terminal(%s) = %v, want %v", s, got, terminals[s])
		}
	}
}

func TestBlocks(t *testing.T) {
	for _, s := range allStatuses {
		want := s != StatusCancelledByClient && s != StatusCancelledByPro
		if got := Blocks(s); got != want {
			t.Errorf("Blocks(%s) = %v, want %v", s, got, want)
		}
	}
}
