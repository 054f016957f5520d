package booking

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	bookingRepo "tourbook/database/repository/booking"
	"tourbook/models"
	"tourbook/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memLedger is an in-memory BookingRepository whose UpdateStatus is a real
// compare-and-swap under a mutex, so concurrency tests exercise actual races.
type memLedger struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	attempts map[string]*models.PaymentAttempt
}

func newMemLedger() *memLedger {
	return &memLedger{
		bookings: make(map[string]*models.Booking),
		attempts: make(map[string]*models.PaymentAttempt),
	}
}

func (m *memLedger) Create(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memLedger) GetByID(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memLedger) UpdateStatus(_ context.Context, id string, expectedFrom models.BookingStatus, change models.StatusChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != expectedFrom {
		return false, nil
	}
	b.Status = change.To
	b.UpdatedAt = change.At
	b.History = append(b.History, change)
	return true, nil
}

func (m *memLedger) List(_ context.Context, filter bookingRepo.ListFilter) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *memLedger) ListExpiredConfirmed(_ context.Context, cutoff time.Time, _ int64) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.Status == models.BookingStatusConfirmed && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memLedger) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return bookingRepo.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *memLedger) CreateAttempt(_ context.Context, a *models.PaymentAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attempts {
		if existing.BookingID == a.BookingID && existing.Status == models.AttemptStatusPending {
			return bookingRepo.ErrPendingAttemptExists
		}
	}
	cp := *a
	m.attempts[a.ID] = &cp
	return nil
}

func (m *memLedger) GetAttemptByRef(_ context.Context, ref string) (*models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ProviderRef == ref {
			cp := *a
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (m *memLedger) ResolveAttempt(_ context.Context, id string, status models.AttemptStatus, code string, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || a.Status != models.AttemptStatusPending {
		return false, nil
	}
	a.Status = status
	a.ResponseCode = code
	a.PaidAt = paidAt
	return true, nil
}

func (m *memLedger) ListAttempts(_ context.Context, bookingID string) ([]models.PaymentAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentAttempt
	for _, a := range m.attempts {
		if a.BookingID == bookingID {
			out = append(out, *a)
		}
	}
	return out, nil
}

var _ bookingRepo.BookingRepository = (*memLedger)(nil)

// memTours serves a single tour with a fixed unit price.
type memTours struct {
	tour models.Tour
}

func (m *memTours) GetByID(_ context.Context, id string) (*models.Tour, error) {
	if id != m.tour.ID {
		return nil, bookingRepo.ErrNotFound
	}
	cp := m.tour
	return &cp, nil
}

// fakeGateway skips real signing: Initiate always succeeds and VerifyCallback
// decodes the JSON result the test crafted. Engine tests care about state
// machine behavior, not HMAC math (that lives in the payment package tests).
type fakeGateway struct {
	provider    models.PaymentProvider
	initiateErr error
	verifyErr   error
}

func (g *fakeGateway) Provider() models.PaymentProvider { return g.provider }

func (g *fakeGateway) Initiate(_ context.Context, b *models.Booking, ref string) (string, error) {
	if g.initiateErr != nil {
		return "", g.initiateErr
	}
	return "https://pay.example/" + ref, nil
}

func (g *fakeGateway) VerifyCallback(raw []byte) (*models.CallbackResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	var result models.CallbackResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &payment.VerificationError{Provider: g.provider, Reason: "bad payload"}
	}
	result.Provider = g.provider
	return &result, nil
}

// countingNotifier counts dispatches so exactly-once assertions are possible.
type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) DispatchBookingPaid(_ context.Context, _ *models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *countingNotifier) dispatched() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// fakeClock lets tests move wall time across the payment window.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

const (
	testTourID    = "tour-ha-long"
	testUnitPrice = int64(500000)
	testWindow    = 10 * time.Minute
)

func newTestService(t *testing.T) (*DefaultBookingService, *memLedger, *countingNotifier, *fakeClock) {
	t.Helper()
	ledger := newMemLedger()
	notifier := &countingNotifier{}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

	svc := &DefaultBookingService{
		Repo: ledger,
		Tours: &memTours{tour: models.Tour{
			ID: testTourID, Name: "Ha Long Bay day trip", UnitPrice: testUnitPrice, Currency: "VND",
		}},
		Gateways: payment.NewRegistry(&fakeGateway{provider: models.ProviderVNPay}),
		Notifier: notifier,
		Window:   testWindow,
		Logger:   zap.NewNop(),
		Clock:    clock.Now,
	}
	return svc, ledger, notifier, clock
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		TourID:       testTourID,
		ContactName:  "Nguyen Van A",
		ContactPhone: "+84 912 345 678",
		TravelDate:   "2025-06-15",
		PartySize:    2,
	}
}

func successCallback(ref string, amount int64) []byte {
	raw, _ := json.Marshal(models.CallbackResult{
		ProviderRef:  ref,
		TxnRef:       "txn-123",
		Amount:       amount,
		Success:      true,
		ResponseCode: "00",
	})
	return raw
}

func pendingRef(t *testing.T, ledger *memLedger, bookingID string) string {
	t.Helper()
	attempts, err := ledger.ListAttempts(context.Background(), bookingID)
	require.NoError(t, err)
	for _, a := range attempts {
		if a.Status == models.AttemptStatusPending {
			return a.ProviderRef
		}
	}
	t.Fatalf("no pending attempt for booking %s", bookingID)
	return ""
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
	}{
		{"zero party size", func(in *CreateBookingInput) { in.PartySize = 0 }},
		{"negative party size", func(in *CreateBookingInput) { in.PartySize = -3 }},
		{"past travel date", func(in *CreateBookingInput) { in.TravelDate = "2025-05-01" }},
		{"garbage travel date", func(in *CreateBookingInput) { in.TravelDate = "01/06/2025" }},
		{"missing contact name", func(in *CreateBookingInput) { in.ContactName = "" }},
		{"unknown tour", func(in *CreateBookingInput) { in.TourID = "no-such-tour" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.CreateBooking(ctx, input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestCreateBookingComputesTotal(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	b, err := svc.CreateBooking(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, testUnitPrice, b.UnitPrice)
	assert.Equal(t, int64(1000000), b.TotalPrice)
	require.Len(t, b.History, 1)
	assert.Equal(t, EventCreate, b.History[0].Event)
}

// Scenario A end to end: create -> initiate -> gateway success -> PaidPending
// -> staff confirm -> Paid, notification dispatched exactly once.
func TestHappyPathToPaid(t *testing.T) {
	svc, ledger, notifier, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	target, err := svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
	assert.Contains(t, target.PayURL, "https://pay.example/")

	ref := pendingRef(t, ledger, b.ID)
	result, err := svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 1000000))
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaidPending, got.Status)
	assert.Equal(t, "awaiting_confirmation", got.PublicStatus())
	assert.Equal(t, 0, notifier.dispatched(), "notification must wait for staff confirmation")

	confirmed, err := svc.StaffConfirmPayment(ctx, b.ID, "staff-1", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, confirmed.Status)
	assert.Equal(t, 1, notifier.dispatched())

	attempts, err := ledger.ListAttempts(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptStatusSucceeded, attempts[0].Status)
	require.NotNil(t, attempts[0].PaidAt)
}

func TestDuplicateCallbackIsNoOp(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)

	ref := pendingRef(t, ledger, b.ID)
	payload := successCallback(ref, 1000000)

	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, payload)
	require.NoError(t, err)
	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, payload)
	require.NoError(t, err, "re-delivered callback must be a harmless no-op")

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaidPending, got.Status)
	require.Len(t, got.History, 2, "duplicate must not append a second transition")
}

func TestFailedCallbackKeepsBookingConfirmed(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)

	ref := pendingRef(t, ledger, b.ID)
	raw, _ := json.Marshal(models.CallbackResult{ProviderRef: ref, Amount: 1000000, Success: false, ResponseCode: "24"})
	result, err := svc.HandleGatewayCallback(ctx, models.ProviderVNPay, raw)
	require.NoError(t, err)
	assert.False(t, result.Success)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	// The attempt resolved, so the customer can retry immediately.
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
}

func TestSecondPendingAttemptRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)

	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
}

func TestGatewayInitiateFailureLeavesNoPendingAttempt(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	gw := &fakeGateway{
		provider:    models.ProviderVNPay,
		initiateErr: &payment.GatewayError{Provider: models.ProviderVNPay, Err: context.DeadlineExceeded},
	}
	svc.Gateways = payment.NewRegistry(gw)

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	var gErr *payment.GatewayError
	require.ErrorAs(t, err, &gErr)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	// Retry must succeed once the gateway recovers.
	gw.initiateErr = nil
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
}

func TestCallbackAmountMismatchRejected(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)

	ref := pendingRef(t, ledger, b.ID)
	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 999999))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	attempts, err := ledger.ListAttempts(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptStatusFailed, attempts[0].Status)
}

func TestLazyExpiryOnRead(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	clock.Advance(testWindow - time.Second)
	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status, "inside the window the hold survives")

	clock.Advance(2 * time.Second)
	got, err = svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	// Reading again must not error or double-cancel.
	again, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, again.Status)
	assert.Equal(t, len(got.History), len(again.History))
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	second, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	clock.Advance(6 * time.Minute) // first is 11m old, second 6m

	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetBooking(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)

	got, err = svc.GetBooking(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}

func TestLateCallbackAfterExpiryIsAnomaly(t *testing.T) {
	svc, ledger, _, clock := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
	ref := pendingRef(t, ledger, b.ID)

	clock.Advance(testWindow + time.Minute)
	_, err = svc.GetBooking(ctx, b.ID) // lazy expiry cancels
	require.NoError(t, err)

	result, err := svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 1000000))
	require.NoError(t, err, "late callbacks are acked, not errored")
	assert.True(t, result.Success)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status, "a cancelled booking is never revived")

	attempts, err := ledger.ListAttempts(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.AttemptStatusSucceeded, attempts[0].Status, "the money moved; the trail records it")
}

func TestStaffConfirmRequiresRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.StaffConfirmPayment(ctx, b.ID, "cust-1", models.RoleCustomer)
	var fErr *ForbiddenError
	require.ErrorAs(t, err, &fErr)
}

func TestStaffConfirmOnConfirmedIsInvalid(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.StaffConfirmPayment(ctx, b.ID, "staff-1", models.RoleStaff)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, models.BookingStatusConfirmed, tErr.From)
	assert.Equal(t, 0, notifier.dispatched())
}

func TestConcurrentStaffConfirmDispatchesOnce(t *testing.T) {
	svc, ledger, notifier, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
	ref := pendingRef(t, ledger, b.ID)
	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 1000000))
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.StaffConfirmPayment(ctx, b.ID, "staff-1", models.RoleStaff)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err, "losers observe a successful no-op, not an error")
	}
	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, got.Status)
	assert.Equal(t, 1, notifier.dispatched(), "exactly one notification despite the race")
}

func TestCancelPermissions(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	// A customer can release their own Confirmed hold.
	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	cancelled, err := svc.CancelBooking(ctx, b.ID, "cust-1", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	// Cancelling again is an idempotent no-op.
	again, err := svc.CancelBooking(ctx, b.ID, "cust-1", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, again.Status)

	// Only staff may cancel a PaidPending booking.
	b2, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b2.ID, models.ProviderVNPay)
	require.NoError(t, err)
	ref := pendingRef(t, ledger, b2.ID)
	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 1000000))
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, b2.ID, "cust-1", models.RoleCustomer)
	var fErr *ForbiddenError
	require.ErrorAs(t, err, &fErr)

	disputed, err := svc.CancelBooking(ctx, b2.ID, "staff-1", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, disputed.Status)
}

func TestCancelRequiresOwnership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.CustomerID = "cust-owner"
	b, err := svc.CreateBooking(ctx, in)
	require.NoError(t, err)

	// Another customer knowing the id must not be able to cancel.
	_, err = svc.CancelBooking(ctx, b.ID, "cust-stranger", models.RoleCustomer)
	var fErr *ForbiddenError
	require.ErrorAs(t, err, &fErr)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)

	// The owner can; so can staff on someone else's booking.
	cancelled, err := svc.CancelBooking(ctx, b.ID, "cust-owner", models.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	in2 := validInput()
	in2.CustomerID = "cust-owner"
	b2, err := svc.CreateBooking(ctx, in2)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, b2.ID, "staff-1", models.RoleStaff)
	require.NoError(t, err)
}

func TestCreateBookingTravelDateInServerZone(t *testing.T) {
	svc, _, _, clock := newTestService(t)

	// Late evening in a zone far behind UTC: the local date is still
	// 2025-06-01 even though UTC has rolled over. Booking for "today" must
	// be accepted.
	zone := time.FixedZone("UTC-11", -11*60*60)
	clock.mu.Lock()
	clock.t = time.Date(2025, 6, 1, 20, 0, 0, 0, zone)
	clock.mu.Unlock()

	in := validInput()
	in.TravelDate = "2025-06-01"
	b, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
}

func TestCancelPaidIsInvalid(t *testing.T) {
	svc, ledger, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	require.NoError(t, err)
	ref := pendingRef(t, ledger, b.ID)
	_, err = svc.HandleGatewayCallback(ctx, models.ProviderVNPay, successCallback(ref, 1000000))
	require.NoError(t, err)
	_, err = svc.StaffConfirmPayment(ctx, b.ID, "staff-1", models.RoleStaff)
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, b.ID, "staff-1", models.RoleStaff)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, got.Status)
}

func TestInitiateAfterExpiryRejected(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	clock.Advance(testWindow + time.Second)
	_, err = svc.InitiatePayment(ctx, b.ID, models.ProviderVNPay)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, models.BookingStatusCancelled, tErr.From)
}

func TestDeleteBookingAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	var fErr *ForbiddenError
	require.ErrorAs(t, svc.DeleteBooking(ctx, b.ID, models.RoleStaff), &fErr)
	require.ErrorAs(t, svc.DeleteBooking(ctx, b.ID, models.RoleCustomer), &fErr)

	require.NoError(t, svc.DeleteBooking(ctx, b.ID, models.RoleAdmin))
	_, err = svc.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, bookingRepo.ErrNotFound)
}

func TestListBookingsScoping(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	in := validInput()
	in.CustomerID = "cust-1"
	_, err := svc.CreateBooking(ctx, in)
	require.NoError(t, err)

	in2 := validInput()
	in2.CustomerID = "cust-2"
	_, err = svc.CreateBooking(ctx, in2)
	require.NoError(t, err)

	// A customer without a customer scope is rejected.
	_, err = svc.ListBookings(ctx, bookingRepo.ListFilter{}, models.RoleCustomer)
	var fErr *ForbiddenError
	require.ErrorAs(t, err, &fErr)

	own, err := svc.ListBookings(ctx, bookingRepo.ListFilter{CustomerID: "cust-1"}, models.RoleCustomer)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := svc.ListBookings(ctx, bookingRepo.ListFilter{}, models.RoleStaff)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
