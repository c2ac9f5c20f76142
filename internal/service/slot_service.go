package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type SlotAdmin interface {
	CreateBatch(ctx context.Context, slots []domain.TimeSlot) (int64, error)
	SetAvailability(ctx context.Context, id int64, available bool) (bool, error)
}

// SlotListing is the open-slot view returned to clients, combining the
// bookable days with the rates they will be charged under.
type SlotListing struct {
	Days              []domain.SlotDay `json:"days"`
	HourlyRate        int64            `json:"hourly_rate"`
	OvertimeRate      int64            `json:"overtime_rate"`
	CancellationHours int              `json:"cancellation_hours"`
}

type GenerateSlotsRequest struct {
	FromDate string   `json:"from_date"`
	ToDate   string   `json:"to_date"`
	Times    []string `json:"times"`
	Capacity int      `json:"capacity"`
}

type SlotService interface {
	ListOpen(ctx context.Context, from time.Time) (*SlotListing, error)
	Generate(ctx context.Context, req *GenerateSlotsRequest) (int64, error)
	SetAvailability(ctx context.Context, id int64, available bool) error
}

type slotService struct {
	slots    SlotInventory
	admin    SlotAdmin
	settings SettingsSource
}

func NewSlotService(slots SlotInventory, admin SlotAdmin, settings SettingsSource) SlotService {
	return &slotService{slots: slots, admin: admin, settings: settings}
}

func (s *slotService) ListOpen(ctx context.Context, from time.Time) (*SlotListing, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	days, err := s.slots.ListAvailable(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}

	return &SlotListing{
		Days:              days,
		HourlyRate:        cfg.HourlyRate,
		OvertimeRate:      cfg.OvertimeRate,
		CancellationHours: cfg.CancellationHours,
	}, nil
}

// Generate expands a date range and time list into slot rows. Existing
// (date, time) slots are left untouched.
func (s *slotService) Generate(ctx context.Context, req *GenerateSlotsRequest) (int64, error) {
	if req.Capacity < 1 {
		return 0, fmt.Errorf("%w: capacity must be at least 1", domain.ErrValidation)
	}
	if len(req.Times) == 0 {
		return 0, fmt.Errorf("%w: at least one time is required", domain.ErrValidation)
	}
	from, err := time.Parse(domain.DateLayout, req.FromDate)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid from_date %q", domain.ErrValidation, req.FromDate)
	}
	to, err := time.Parse(domain.DateLayout, req.ToDate)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid to_date %q", domain.ErrValidation, req.ToDate)
	}
	if to.Before(from) {
		return 0, fmt.Errorf("%w: to_date is before from_date", domain.ErrValidation)
	}
	for _, clock := range req.Times {
		if _, err := time.Parse(domain.TimeLayout, clock); err != nil {
			return 0, fmt.Errorf("%w: invalid time %q", domain.ErrValidation, clock)
		}
	}

	var slots []domain.TimeSlot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, clock := range req.Times {
			slots = append(slots, domain.TimeSlot{
				Date:        d,
				Time:        clock,
				Capacity:    req.Capacity,
				IsAvailable: true,
			})
		}
	}

	return s.admin.CreateBatch(ctx, slots)
}

func (s *slotService) SetAvailability(ctx context.Context, id int64, available bool) error {
	ok, err := s.admin.SetAvailability(ctx, id, available)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSlotNotFound
	}
	return nil
}
