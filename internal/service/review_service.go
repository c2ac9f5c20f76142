package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/consult-sessions/internal/domain"
	"github.com/diagnosis/consult-sessions/pkg/events"
	"github.com/diagnosis/consult-sessions/pkg/logger"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *domain.Review) (*domain.Review, error)
	GetByBooking(ctx context.Context, bookingID int64) (*domain.Review, error)
}

type ReviewService interface {
	Submit(ctx context.Context, bookingID, userID int64, req *domain.SubmitReviewRequest) (*domain.Review, error)
}

type reviewService struct {
	reviews  ReviewRepository
	bookings BookingRepository
	bus      events.Publisher
}

func NewReviewService(reviews ReviewRepository, bookings BookingRepository, bus events.Publisher) ReviewService {
	return &reviewService{reviews: reviews, bookings: bookings, bus: bus}
}

// Submit records the single post-completion rating for a booking and
// signals the professional-profile service to recompute its aggregate.
func (s *reviewService) Submit(ctx context.Context, bookingID, userID int64, req *domain.SubmitReviewRequest) (*domain.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if booking.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	if booking.Status != domain.BookingCompleted {
		return nil, domain.ErrInvalidTransition
	}

	existing, err := s.reviews.GetByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrInvalidTransition
	}

	review, err := s.reviews.Create(ctx, &domain.Review{
		BookingID: bookingID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return nil, err
	}

	if err := s.bus.Publish(ctx, events.ReviewSubmitted, events.ReviewSubmittedEvent{
		BookingID:   bookingID,
		ReviewID:    review.ID,
		UserID:      userID,
		Rating:      review.Rating,
		SubmittedAt: time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish review submitted event", "error", err, "booking_id", bookingID)
	}

	return review, nil
}
