package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/repo/postgres"
)

// ---------- In-memory store ----------

// memStore implements the booking collaborators over a single slot and
// a wallet table. WithinTx serializes transactions with a mutex and
// restores a snapshot when the function fails, mirroring the rollback
// the real store gets from the database.
type memStore struct {
	mu sync.Mutex

	settings domain.Settings

	slotID    int64
	slotDate  time.Time
	slotClock string
	capacity  int
	booked    int
	available bool

	balances map[int64]int64

	nextBookingID int64
	bookings      map[int64]domain.Booking

	notifications []domain.NotificationEvent
}

func newMemStore(capacity int, dateStr, clock string) *memStore {
	date, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		panic(err)
	}
	return &memStore{
		settings:  domain.Settings{HourlyRate: 10000, OvertimeRate: 15000, CancellationHours: 24},
		slotID:    7,
		slotDate:  date,
		slotClock: clock,
		capacity:  capacity,
		available: true,
		balances:  map[int64]int64{},
		bookings:  map[int64]domain.Booking{},
	}
}

type memSnapshot struct {
	booked        int
	balances      map[int64]int64
	nextBookingID int64
	bookings      map[int64]domain.Booking
	notifications []domain.NotificationEvent
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		booked:        m.booked,
		balances:      make(map[int64]int64, len(m.balances)),
		nextBookingID: m.nextBookingID,
		bookings:      make(map[int64]domain.Booking, len(m.bookings)),
		notifications: append([]domain.NotificationEvent(nil), m.notifications...),
	}
	for k, v := range m.balances {
		s.balances[k] = v
	}
	for k, v := range m.bookings {
		s.bookings[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.booked = s.booked
	m.balances = s.balances
	m.nextBookingID = s.nextBookingID
	m.bookings = s.bookings
	m.notifications = s.notifications
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, q postgres.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// SlotInventory

func (m *memStore) ListAvailable(ctx context.Context, from time.Time) ([]domain.SlotDay, error) {
	if m.available && m.booked < m.capacity && !m.slotDate.Before(from) {
		return []domain.SlotDay{{Date: m.slotDate.Format(domain.DateLayout), Times: []string{m.slotClock}}}, nil
	}
	return []domain.SlotDay{}, nil
}

func (m *memStore) Reserve(ctx context.Context, q postgres.Querier, date time.Time, clock string) (int64, error) {
	if !m.available || !date.Equal(m.slotDate) || clock != m.slotClock {
		return 0, domain.ErrSlotNotFound
	}
	if m.booked >= m.capacity {
		return 0, domain.ErrSlotFull
	}
	m.booked++
	return m.slotID, nil
}

func (m *memStore) Release(ctx context.Context, q postgres.Querier, date time.Time, clock string) error {
	if m.booked > 0 {
		m.booked--
	}
	return nil
}

// PaymentLedger

func (m *memStore) Balance(ctx context.Context, userID int64) (int64, error) {
	return m.balances[userID], nil
}

func (m *memStore) Debit(ctx context.Context, q postgres.Querier, userID, amount int64) error {
	if m.balances[userID] < amount {
		return domain.ErrInsufficientFunds
	}
	m.balances[userID] -= amount
	return nil
}

// BookingRepository

func (m *memStore) Create(ctx context.Context, q postgres.Querier, b *domain.Booking) (*domain.Booking, error) {
	m.nextBookingID++
	out := *b
	out.ID = m.nextBookingID
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	m.bookings[out.ID] = out
	return &out, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error) {
	var out []domain.UserBooking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, domain.UserBooking{Booking: b})
		}
	}
	return out, nil
}

func (m *memStore) ListAll(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if status == nil || b.Status == *status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) Cancel(ctx context.Context, q postgres.Querier, id int64, reason string, at time.Time) (bool, error) {
	b, ok := m.bookings[id]
	if !ok || (b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed) {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	b.CancellationReason = reason
	b.CancelledAt = &at
	m.bookings[id] = b
	return true, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, actuals *domain.SessionActuals) (bool, error) {
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	if actuals != nil {
		if actuals.StartTime != nil {
			b.ActualStartTime = actuals.StartTime
		}
		if actuals.EndTime != nil {
			b.ActualEndTime = actuals.EndTime
		}
		if actuals.Duration != nil {
			b.ActualDuration = actuals.Duration
		}
	}
	m.bookings[id] = b
	return true, nil
}

// NotificationRepository

func (m *memStore) CreateBatch(ctx context.Context, q postgres.Querier, evts []domain.NotificationEvent) error {
	m.notifications = append(m.notifications, evts...)
	return nil
}

// SettingsSource

func (m *memStore) Get(ctx context.Context) (domain.Settings, error) {
	return m.settings, nil
}

// events.Publisher

type fakeBus struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeBus) Publish(ctx context.Context, subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) published(subject string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// ---------- Fixtures ----------

// leadTime returns date and clock strings for a session starting d from
// now. UTC keeps the round-trip through SessionStart exact regardless
// of the host timezone.
func leadTime(d time.Duration) (string, string) {
	t := time.Now().UTC().Add(d).Truncate(time.Minute)
	return t.Format(domain.DateLayout), t.Format(domain.TimeLayout)
}

func newBookingFixture(capacity int, lead time.Duration) (*memStore, *fakeBus, BookingService, *domain.CreateBookingRequest) {
	dateStr, clock := leadTime(lead)
	store := newMemStore(capacity, dateStr, clock)
	bus := &fakeBus{}
	svc := NewBookingService(store, store, store, store, store, store, bus)
	req := &domain.CreateBookingRequest{
		Hours:        3,
		SelectedDate: dateStr,
		SelectedTime: clock,
	}
	return store, bus, svc, req
}

// ---------- Tests ----------

func TestCreateBookingSuccess(t *testing.T) {
	store, bus, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)

	assert.Equal(t, int64(30000), booking.TotalCost)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentPaid, booking.PaymentStatus)
	assert.Equal(t, int64(7), booking.SlotID)
	assert.Equal(t, "user@example.com", booking.UserEmail)

	assert.Equal(t, int64(0), store.balances[1], "wallet should be fully debited")
	assert.Equal(t, 1, store.booked)
	assert.Len(t, store.notifications, 3)

	assert.True(t, bus.published("booking.confirmed"))
	assert.True(t, bus.published("notify.send"))
}

func TestCreateBookingInsufficientFunds(t *testing.T) {
	store, bus, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 5000
	req.Hours = 1

	_, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The whole unit rolls back: no reservation, no booking, no
	// notifications, wallet untouched.
	assert.Equal(t, 0, store.booked)
	assert.Empty(t, store.bookings)
	assert.Empty(t, store.notifications)
	assert.Equal(t, int64(5000), store.balances[1])
	assert.False(t, bus.published("booking.confirmed"))
}

func TestCreateBookingSlotFull(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 72*time.Hour)
	store.booked = 1
	store.balances[1] = 100000

	_, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	assert.ErrorIs(t, err, domain.ErrSlotFull)

	assert.Equal(t, int64(100000), store.balances[1], "no charge without a reservation")
	assert.Empty(t, store.bookings)
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 72*time.Hour)
	store.available = false
	store.balances[1] = 100000

	_, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestCreateBookingValidation(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 100000
	req.Hours = 0

	_, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, store.booked, "validation failures must not touch the slot")
}

func TestCreateBookingConcurrentCapacityOne(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 100000
	store.balances[2] = 100000

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := *req
			_, errs[i] = svc.CreateBooking(context.Background(), int64(i+1), "user@example.com", &r)
		}(i)
	}
	wg.Wait()

	var successes, full int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrSlotFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one booking wins the last unit")
	assert.Equal(t, 1, full)
	assert.Equal(t, 1, store.booked)
	assert.Len(t, store.bookings, 1)

	// Only the winner was charged.
	assert.Equal(t, int64(170000), store.balances[1]+store.balances[2])
}

func TestCancelBooking(t *testing.T) {
	store, bus, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)
	require.Equal(t, 1, store.booked)

	err = svc.CancelBooking(context.Background(), booking.ID, 1, "schedule conflict")
	require.NoError(t, err)

	got := store.bookings[booking.ID]
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, "schedule conflict", got.CancellationReason)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, 0, store.booked, "slot must be released")

	// No refund is issued on cancellation.
	assert.Equal(t, int64(0), store.balances[1])
	assert.True(t, bus.published("booking.cancelled"))
}

func TestCancelBookingInsideWindow(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 10*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)

	err = svc.CancelBooking(context.Background(), booking.ID, 1, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, 1, store.booked, "slot stays reserved")
	assert.Equal(t, domain.BookingConfirmed, store.bookings[booking.ID].Status)
}

func TestCancelBookingWrongUser(t *testing.T) {
	store, _, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)

	err = svc.CancelBooking(context.Background(), booking.ID, 2, "not mine")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCancelBookingNotFound(t *testing.T) {
	_, _, svc, _ := newBookingFixture(1, 72*time.Hour)

	err := svc.CancelBooking(context.Background(), 999, 1, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransitionRejectsCancellation(t *testing.T) {
	store, bus, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)
	require.Equal(t, 1, store.booked)

	// Cancelling through the status endpoint would skip the slot
	// release; it must be refused and leave everything untouched.
	_, err = svc.Transition(context.Background(), booking.ID, domain.BookingCancelled, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, domain.BookingConfirmed, store.bookings[booking.ID].Status)
	assert.Equal(t, 1, store.booked, "slot stays reserved until a real cancellation")
	assert.False(t, bus.published("booking.cancelled"))

	// The real flow still works afterwards.
	require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, 1, "changed plans"))
	assert.Equal(t, 0, store.booked)
}

func TestTransitionLifecycle(t *testing.T) {
	store, bus, svc, req := newBookingFixture(1, 72*time.Hour)
	store.balances[1] = 30000

	booking, err := svc.CreateBooking(context.Background(), 1, "user@example.com", req)
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), booking.ID, domain.BookingOngoing, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingOngoing, updated.Status)
	assert.True(t, bus.published("session.started"))

	start := time.Now().Add(-2 * time.Hour)
	end := time.Now()
	dur := 120
	updated, err = svc.Transition(context.Background(), booking.ID, domain.BookingCompleted, &domain.SessionActuals{
		StartTime: &start,
		EndTime:   &end,
		Duration:  &dur,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, updated.Status)
	assert.Equal(t, 120, *updated.ActualDuration)
	assert.True(t, bus.published("session.completed"))

	// Completed is terminal.
	_, err = svc.Transition(context.Background(), booking.ID, domain.BookingOngoing, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
