package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/internal/repo/postgres"
	"github.com/diagnosis/consult-sessions/pkg/events"
	"github.com/diagnosis/consult-sessions/pkg/logger"
)

// Collaborator interfaces consumed by the booking lifecycle. The
// postgres package provides the production implementations; tests
// substitute in-memory ones.

type SlotInventory interface {
	ListAvailable(ctx context.Context, from time.Time) ([]domain.SlotDay, error)
	Reserve(ctx context.Context, q postgres.Querier, date time.Time, clock string) (int64, error)
	Release(ctx context.Context, q postgres.Querier, date time.Time, clock string) error
}

type BookingRepository interface {
	Create(ctx context.Context, q postgres.Querier, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error)
	ListAll(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	Cancel(ctx context.Context, q postgres.Querier, id int64, reason string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus, actuals *domain.SessionActuals) (bool, error)
}

// PaymentLedger is the wallet collaborator. Debit must be able to join
// the booking transaction so that money never moves without a matching
// reservation.
type PaymentLedger interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Debit(ctx context.Context, q postgres.Querier, userID, amount int64) error
}

type NotificationRepository interface {
	CreateBatch(ctx context.Context, q postgres.Querier, evts []domain.NotificationEvent) error
}

type SettingsSource interface {
	Get(ctx context.Context) (domain.Settings, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, userID int64, userEmail string, req *domain.CreateBookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id, userID int64, reason string) error
	GetBooking(ctx context.Context, id, userID int64) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error)
	ListAllBookings(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	Transition(ctx context.Context, id int64, next domain.BookingStatus, actuals *domain.SessionActuals) (*domain.Booking, error)
}

type bookingService struct {
	txr           postgres.TxRunner
	slots         SlotInventory
	bookings      BookingRepository
	wallet        PaymentLedger
	notifications NotificationRepository
	settings      SettingsSource
	bus           events.Publisher
}

func NewBookingService(
	txr postgres.TxRunner,
	slots SlotInventory,
	bookings BookingRepository,
	wallet PaymentLedger,
	notifications NotificationRepository,
	settings SettingsSource,
	bus events.Publisher,
) BookingService {
	return &bookingService{
		txr:           txr,
		slots:         slots,
		bookings:      bookings,
		wallet:        wallet,
		notifications: notifications,
		settings:      settings,
		bus:           bus,
	}
}

// CreateBooking reserves the slot, debits the wallet and persists the
// booking with its notification schedule in one transaction. Any
// failure rolls back every prior step, so no partial state is ever
// observable.
func (s *bookingService) CreateBooking(ctx context.Context, userID int64, userEmail string, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	now := time.Now()

	date, clock, err := req.Validate(now)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	totalCost := int64(req.Hours) * cfg.HourlyRate

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var booking *domain.Booking
	err = s.txr.WithinTx(ctx, func(ctx context.Context, q postgres.Querier) error {
		slotID, err := s.slots.Reserve(ctx, q, date, clock)
		if err != nil {
			return err
		}

		if err := s.wallet.Debit(ctx, q, userID, totalCost); err != nil {
			return err
		}

		booking, err = s.bookings.Create(ctx, q, &domain.Booking{
			UserID:        userID,
			UserEmail:     userEmail,
			SlotID:        slotID,
			Hours:         req.Hours,
			TotalCost:     totalCost,
			Requirements:  req.Requirements,
			SelectedDate:  date,
			SelectedTime:  clock,
			Status:        domain.BookingConfirmed,
			PaymentStatus: domain.PaymentPaid,
		})
		if err != nil {
			return fmt.Errorf("failed to persist booking: %w", err)
		}

		notifs, err := domain.ScheduleNotifications(booking, now)
		if err != nil {
			return err
		}
		return s.notifications.CreateBatch(ctx, q, notifs)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.BookingConfirmed, events.BookingConfirmedEvent{
		BookingID:    booking.ID,
		UserID:       booking.UserID,
		UserEmail:    booking.UserEmail,
		Hours:        booking.Hours,
		TotalCost:    booking.TotalCost,
		SelectedDate: booking.SelectedDate.Format(domain.DateLayout),
		SelectedTime: booking.SelectedTime,
		CreatedAt:    booking.CreatedAt,
	})
	s.publish(ctx, events.NotifySend, events.NotifySendEvent{
		Type:         string(domain.NotifyBookingConfirmation),
		Recipient:    booking.UserEmail,
		BookingID:    booking.ID,
		SelectedDate: booking.SelectedDate.Format(domain.DateLayout),
		SelectedTime: booking.SelectedTime,
	})

	return booking, nil
}

// CancelBooking flips the status and releases the slot in one
// transaction. The observed flow does not credit the wallet back.
func (s *bookingService) CancelBooking(ctx context.Context, id, userID int64, reason string) error {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return domain.ErrNotFound
	}
	if booking.UserID != userID {
		return domain.ErrUnauthorized
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	now := time.Now()
	if !domain.CanCancel(booking, now, cfg.CancellationHours) {
		return domain.ErrInvalidTransition
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = s.txr.WithinTx(ctx, func(ctx context.Context, q postgres.Querier) error {
		ok, err := s.bookings.Cancel(ctx, q, id, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race against another transition.
			return domain.ErrInvalidTransition
		}
		return s.slots.Release(ctx, q, booking.SelectedDate, booking.SelectedTime)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.BookingCancelled, events.BookingCancelledEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		UserEmail:   booking.UserEmail,
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, id, userID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if booking.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return booking, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.UserBooking, error) {
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}

func (s *bookingService) ListAllBookings(ctx context.Context, status *domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	return s.bookings.ListAll(ctx, status, limit, offset)
}

// Transition accepts an externally driven status change (confirmed →
// ongoing → completed) and validates it against the transition table.
// This core never originates these moves. Cancellation is not accepted
// here: it must go through CancelBooking, which releases the slot in
// the same transaction as the status flip.
func (s *bookingService) Transition(ctx context.Context, id int64, next domain.BookingStatus, actuals *domain.SessionActuals) (*domain.Booking, error) {
	if next == domain.BookingCancelled {
		return nil, domain.ErrInvalidTransition
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.bookings.UpdateStatus(ctx, id, booking.Status, next, actuals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	switch next {
	case domain.BookingOngoing:
		s.publish(ctx, events.SessionStarted, events.SessionTransitionEvent{
			BookingID: id, Status: string(next), At: time.Now(),
		})
	case domain.BookingCompleted:
		s.publish(ctx, events.SessionCompleted, events.SessionTransitionEvent{
			BookingID: id, Status: string(next), At: time.Now(),
		})
	}

	return s.bookings.GetByID(ctx, id)
}

func (s *bookingService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
