package booking

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalTransition = errors.New("illegal appointment status transition")
)

// Actor identifies who is driving a transition. Rights differ per transition
// and are enforced here, centrally, regardless of which handler or worker
// triggers the change.
type Actor string

const (
	ActorClient       Actor = "client"
	ActorProfessional Actor = "professional"
	ActorAdmin        Actor = "admin"
	ActorSystem       Actor = "system"
	ActorGateway      Actor = "gateway"
)

type transition struct {
	from Status
	to   Status
}

// The authoritative transition table. Any (from, to, actor) triple not listed
// fails with ErrIllegalTransition and must not mutate state. Callers branch on
// status via Authorize, never by re-implementing these rules.
var transitionActors = map[transition][]Actor{
	{StatusPending, StatusPaymentInitiated}:               {ActorSystem},
	{StatusPaymentInitiated, StatusPaymentAuthorized}:     {ActorGateway},
	// Stale-hold expiry: a booking whose hold never resolved is released
	// back into inventory by the worker.
	{StatusPending, StatusCancelledByClient}:          {ActorSystem},
	{StatusPaymentInitiated, StatusCancelledByClient}: {ActorSystem},
	{StatusPaymentAuthorized, StatusConfirmed}:            {ActorProfessional},
	{StatusPaymentAuthorized, StatusCancelledByClient}:    {ActorClient},
	{StatusConfirmed, StatusCancelledByClient}:            {ActorClient},
	{StatusConfirmed, StatusCancelledByProPending}:        {ActorProfessional},
	{StatusCancelledByProPending, StatusCancelledByPro}:   {ActorAdmin},
	{StatusConfirmed, StatusCompleted}:                    {ActorSystem},
	{StatusCompleted, StatusPendingPayout}:                {ActorSystem},
	{StatusPendingPayout, StatusPaidOut}:                  {ActorSystem},
}

// Authorize checks a candidate transition against the table. It has no side
// effects; the actual status write is a compare-and-swap in the repository.
func Authorize(from, to Status, actor Actor) error {
	actors, ok := transitionActors[transition{from: from, to: to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	for _, a := range actors {
		if a == actor {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move %s -> %s", ErrIllegalTransition, actor, from, to)
}

// Terminal reports whether no transition leads out of the status.
func Terminal(s Status) bool {
	for t := range transitionActors {
		if t.from == s {
			return false
		}
	}
	return true
}
