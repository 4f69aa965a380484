package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/serviq/booking-engine/internal/redis"
)

// --- fakes ---

type fakeRepo struct {
	pros    map[uuid.UUID]*Professional
	clients map[uuid.UUID]*Client
	appts   map[uuid.UUID]*Appointment
	events  []EventLog
	now     func() time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pros:    map[uuid.UUID]*Professional{},
		clients: map[uuid.UUID]*Client{},
		appts:   map[uuid.UUID]*Appointment{},
		now:     time.Now,
	}
}

func (r *fakeRepo) addProfessional() uuid.UUID {
	id := uuid.New()
	r.pros[id] = &Professional{ID: id, Name: "Pro", PayoutAccount: "acct_test"}
	return id
}

func (r *fakeRepo) addClient() uuid.UUID {
	id := uuid.New()
	r.clients[id] = &Client{ID: id, Name: "Client"}
	return id
}

func (r *fakeRepo) addAppointment(a Appointment) *Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.appts[a.ID] = &a
	return &a
}

func (r *fakeRepo) GetProfessionalByID(_ context.Context, id uuid.UUID) (*Professional, error) {
	p, ok := r.pros[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetClientByID(_ context.Context, id uuid.UUID) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) GetAppointmentByHoldRef(_ context.Context, holdRef string) (*Appointment, error) {
	for _, a := range r.appts {
		if a.HoldRef == holdRef {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *fakeRepo) FindByProfessionalAndDate(_ context.Context, professionalID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appts {
		if a.ProfessionalID == professionalID && !a.StartTime.Before(dayStart) && a.StartTime.Before(dayEnd) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	cp := *appt
	cp.ID = uuid.New()
	cp.CreatedAt = r.now()
	cp.UpdatedAt = cp.CreatedAt
	for _, a := range r.appts {
		if a.ProfessionalID == cp.ProfessionalID && Blocks(a.Status) &&
			cp.StartTime.Before(a.EndTime()) && a.StartTime.Before(cp.EndTime()) {
			return nil, ErrSlotTaken
		}
	}
	r.appts[cp.ID] = &cp
	stored := cp
	return &stored, nil
}

func (r *fakeRepo) CompareAndSwapStatus(_ context.Context, id uuid.UUID, from, to Status, change StatusChange) (*Appointment, error) {
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, fmt.Errorf("%w: expected status %s", ErrConcurrentModification, from)
	}
	a.Status = to
	a.UpdatedAt = r.now()
	if change.HoldRef != nil {
		a.HoldRef = *change.HoldRef
	}
	if change.ConfirmedAt != nil {
		a.ConfirmedAt = change.ConfirmedAt
	}
	if change.CompletedAt != nil {
		a.CompletedAt = change.CompletedAt
	}
	if change.CancelledAt != nil {
		a.CancelledAt = change.CancelledAt
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) ListByClient(_ context.Context, clientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appts {
		if a.ClientID == clientID {
			out = append(out, *a)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) FindConfirmedEndedBefore(_ context.Context, cutoff time.Time, limit int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusConfirmed && a.EndTime().Before(cutoff) {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByStatus(_ context.Context, status Status, limit int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appts {
		if a.Status == status {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appts {
		if (a.Status == StatusPending || a.Status == StatusPaymentInitiated) && a.CreatedAt.Before(cutoff) {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRepo) eventTypes() []string {
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fakeLocker struct {
	contended bool
	calls     int
}

func (l *fakeLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ string, fn func(ctx context.Context) error) error {
	l.calls++
	if l.contended {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type fakePayments struct {
	holdErr    error
	captureErr error

	holds    int
	captures int
	releases int
	refunds  int
	payouts  int
}

func (p *fakePayments) RequestHold(_ context.Context, appt *Appointment) (string, string, error) {
	p.holds++
	if p.holdErr != nil {
		return "", "", p.holdErr
	}
	return "pi_" + appt.ID.String()[:8], "secret_" + appt.ID.String()[:8], nil
}

func (p *fakePayments) Capture(_ context.Context, _ *Appointment) error {
	p.captures++
	return p.captureErr
}

func (p *fakePayments) Release(_ context.Context, _ *Appointment) error {
	p.releases++
	return nil
}

func (p *fakePayments) Refund(_ context.Context, _ *Appointment) error {
	p.refunds++
	return nil
}

func (p *fakePayments) Payout(_ context.Context, appt *Appointment, _ string) (string, error) {
	p.payouts++
	return "tr_" + appt.ID.String()[:8], nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// --- harness ---

type testEnv struct {
	repo     *fakeRepo
	locker   *fakeLocker
	payments *fakePayments
	clock    *fakeClock
	svc      *Service

	proID    uuid.UUID
	clientID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		repo:     newFakeRepo(),
		locker:   &fakeLocker{},
		payments: &fakePayments{},
		clock:    &fakeClock{now: time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)},
	}
	env.repo.now = env.clock.Now
	env.proID = env.repo.addProfessional()
	env.clientID = env.repo.addClient()

	env.svc = NewService(ServiceConfig{
		Repo:     env.repo,
		Locker:   env.locker,
		Payments: env.payments,
		Pricing: Pricing{
			Tariff30Cents:   3500,
			Tariff60Cents:   6000,
			TaxRateBasisPts: 2000,
			Currency:        "eur",
		},
		PendingTTL: 15 * time.Minute,
		Clock:      env.clock,
		Location:   time.UTC,
	})
	return env
}

func (env *testEnv) slotStart() time.Time {
	return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
}

// --- tests ---

func TestBookHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, clientSecret, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	require.NotNil(t, appt)

	assert.Equal(t, StatusPaymentInitiated, appt.Status)
	assert.NotEmpty(t, appt.HoldRef)
	assert.NotEmpty(t, clientSecret)
	assert.EqualValues(t, 3500, appt.AmountExclTax)
	assert.EqualValues(t, 4200, appt.AmountInclTax)
	assert.Equal(t, "eur", appt.Currency)
	assert.Equal(t, 1, env.payments.holds)
	assert.Equal(t, 1, env.locker.calls)
	assert.Contains(t, env.repo.eventTypes(), EventAppointmentBooked)
	assert.Contains(t, env.repo.eventTypes(), EventHoldRequested)
}

func TestBookRejectsBadDuration(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Book(context.Background(), env.proID, env.clientID, env.slotStart(), 45)
	require.ErrorIs(t, err, ErrInvalidDuration)
	assert.Zero(t, env.locker.calls, "no lock should be taken for invalid input")
}

func TestBookUnknownParties(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.svc.Book(ctx, uuid.New(), env.clientID, env.slotStart(), 30)
	require.ErrorIs(t, err, ErrProfessionalNotFound)

	_, _, err = env.svc.Book(ctx, env.proID, uuid.New(), env.slotStart(), 30)
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestBookLosesRaceToExistingAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A blocking appointment already occupies 09:00-10:00.
	env.repo.addAppointment(Appointment{
		ProfessionalID:  env.proID,
		ClientID:        uuid.New(),
		StartTime:       env.slotStart(),
		DurationMinutes: 60,
		Status:          StatusConfirmed,
	})

	// 09:30 overlaps its second half.
	_, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart().Add(30*time.Minute), 30)
	require.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	assert.Zero(t, env.payments.holds, "no hold may be requested for a lost race")
}

func TestBookCancelledSlotIsFree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.repo.addAppointment(Appointment{
		ProfessionalID:  env.proID,
		ClientID:        uuid.New(),
		StartTime:       env.slotStart(),
		DurationMinutes: 60,
		Status:          StatusCancelledByClient,
	})

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 60)
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentInitiated, appt.Status)
}

func TestBookLockContention(t *testing.T) {
	env := newTestEnv(t)
	env.locker.contended = true

	_, _, err := env.svc.Book(context.Background(), env.proID, env.clientID, env.slotStart(), 30)
	require.ErrorIs(t, err, ErrSlotBeingBooked)
}

func TestBookGatewayFailureLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	env.payments.holdErr = errors.New("gateway down")

	appt, _, err := env.svc.Book(context.Background(), env.proID, env.clientID, env.slotStart(), 30)
	require.Error(t, err)
	require.NotNil(t, appt, "the created appointment is returned even when the hold fails")

	stored, getErr := env.repo.GetAppointmentByID(context.Background(), appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, stored.Status, "a failed hold must not advance the status")
	assert.Empty(t, stored.HoldRef)
}

func TestConfirmHoldByRef(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)

	updated, err := env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentAuthorized, updated.Status)

	// Webhook replay: the second authorization is an illegal transition.
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestConfirmCapturesThenAdvances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)

	confirmed, err := env.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, 1, env.payments.captures)
}

func TestConfirmBeforeAuthorizationIsIllegal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)

	_, err = env.svc.Confirm(ctx, appt.ID)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Zero(t, env.payments.captures, "capture must not run for an illegal transition")
}

func TestConfirmGatewayFailureKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)

	env.payments.captureErr = errors.New("stripe 500")
	_, err = env.svc.Confirm(ctx, appt.ID)
	require.Error(t, err)

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPaymentAuthorized, stored.Status, "status stays on the last committed state")
}

func TestCancelByClientReleasesAuthorizedHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)

	cancelled, err := env.svc.CancelByClient(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByClient, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 1, env.payments.releases)
	assert.Zero(t, env.payments.refunds)
}

func TestCancelByClientRefundsConfirmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.CancelByClient(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByClient, cancelled.Status)
	assert.Equal(t, 1, env.payments.refunds)
	assert.Zero(t, env.payments.releases)
}

func TestCancelByClientTooLate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)

	env.clock.now = appt.StartTime // exactly at start counts as too late
	_, err = env.svc.CancelByClient(ctx, appt.ID)
	require.ErrorIs(t, err, ErrTooLateToCancel)
	assert.Zero(t, env.payments.releases, "no money may move on a refused cancellation")

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPaymentAuthorized, stored.Status)
}

func TestProfessionalCancellationNeedsRatification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)

	parked, err := env.svc.CancelByProfessional(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByProPending, parked.Status)
	assert.Zero(t, env.payments.refunds, "no refund before ratification")

	ratified, err := env.svc.RatifyProfessionalCancellation(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelledByPro, ratified.Status)
	assert.Equal(t, 1, env.payments.refunds)
}

func TestRatifyRequiresPendingState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)

	_, err = env.svc.RatifyProfessionalCancellation(ctx, appt.ID)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Zero(t, env.payments.refunds)
}

func TestCompleteElapsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)

	// Still running: nothing to complete.
	env.clock.now = appt.StartTime.Add(10 * time.Minute)
	n, err := env.svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.now = appt.EndTime().Add(time.Minute)
	n, err = env.svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestRunPayoutBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, appt.ID)
	require.NoError(t, err)

	env.clock.now = appt.EndTime().Add(time.Minute)
	_, err = env.svc.CompleteElapsed(ctx)
	require.NoError(t, err)

	paid, err := env.svc.RunPayoutBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, env.payments.payouts)

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPaidOut, stored.Status)
	assert.Contains(t, env.repo.eventTypes(), EventPayoutSent)

	// A second batch finds nothing and must not pay twice.
	paid, err = env.svc.RunPayoutBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.Equal(t, 1, env.payments.payouts)
}

func TestTransitionSurfacesConcurrentModification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, appt.HoldRef)
	require.NoError(t, err)

	// Another writer moves the row between the read and the CAS.
	stale, err := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, err)
	_, err = env.repo.CompareAndSwapStatus(ctx, appt.ID, StatusPaymentAuthorized, StatusConfirmed, StatusChange{})
	require.NoError(t, err)

	_, err = env.svc.transition(ctx, stale, StatusCancelledByClient, ActorClient, StatusChange{})
	require.ErrorIs(t, err, ErrConcurrentModification)
}

func TestExpireStaleHoldsFreesBlockedSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Hold request fails at booking time: the row stays pending and keeps
	// blocking the slot.
	env.payments.holdErr = errors.New("gateway down")
	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.Error(t, err)
	require.NotNil(t, appt)

	otherClient := env.repo.addClient()
	_, _, err = env.svc.Book(ctx, env.proID, otherClient, env.slotStart(), 30)
	require.ErrorIs(t, err, ErrSlotNoLongerAvailable)

	// The client has no transition out of pending; only expiry frees it.
	_, err = env.svc.CancelByClient(ctx, appt.ID)
	require.ErrorIs(t, err, ErrIllegalTransition)

	env.clock.now = env.clock.now.Add(16 * time.Minute)
	expired, err := env.svc.ExpireStaleHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Zero(t, env.payments.releases, "no hold exists for a pending row")

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusCancelledByClient, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.Contains(t, env.repo.eventTypes(), EventAppointmentExpired)

	env.payments.holdErr = nil
	rebooked, _, err := env.svc.Book(ctx, env.proID, otherClient, env.slotStart(), 30)
	require.NoError(t, err, "the expired booking must release its slot")
	assert.Equal(t, StatusPaymentInitiated, rebooked.Status)
}

func TestExpireStaleHoldsReleasesUnresolvedHold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The hold was created but the authorization event never arrived.
	appt, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)
	require.Equal(t, StatusPaymentInitiated, appt.Status)

	env.clock.now = env.clock.now.Add(16 * time.Minute)
	expired, err := env.svc.ExpireStaleHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, env.payments.releases, "the dangling hold must be cancelled at the gateway")

	stored, getErr := env.repo.GetAppointmentByID(ctx, appt.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusCancelledByClient, stored.Status)
}

func TestExpireStaleHoldsSkipsFreshAndResolved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Fresh unresolved hold: inside the TTL, left alone.
	fresh, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart(), 30)
	require.NoError(t, err)

	// Authorized hold: out of expiry's reach regardless of age.
	authorized, _, err := env.svc.Book(ctx, env.proID, env.clientID, env.slotStart().Add(time.Hour), 30)
	require.NoError(t, err)
	_, err = env.svc.ConfirmHold(ctx, authorized.HoldRef)
	require.NoError(t, err)

	expired, err := env.svc.ExpireStaleHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	stored, getErr := env.repo.GetAppointmentByID(ctx, fresh.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPaymentInitiated, stored.Status)
}

func TestListAppointmentsByClientClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.repo.addAppointment(Appointment{
			ProfessionalID:  env.proID,
			ClientID:        env.clientID,
			StartTime:       env.slotStart().Add(time.Duration(i) * time.Hour),
			DurationMinutes: 30,
			Status:          StatusConfirmed,
		})
	}

	appts, err := env.svc.ListAppointmentsByClient(ctx, env.clientID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, appts, 2)

	appts, err = env.svc.ListAppointmentsByClient(ctx, env.clientID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, appts, 3, "zero limit falls back to the default")
}
