package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/consult-sessions/internal/domain"
)

type memSlotAdmin struct {
	created      []domain.TimeSlot
	missing      bool
	availability map[int64]bool
}

func (m *memSlotAdmin) CreateBatch(ctx context.Context, slots []domain.TimeSlot) (int64, error) {
	m.created = append(m.created, slots...)
	return int64(len(slots)), nil
}

func (m *memSlotAdmin) SetAvailability(ctx context.Context, id int64, available bool) (bool, error) {
	if m.missing {
		return false, nil
	}
	if m.availability == nil {
		m.availability = map[int64]bool{}
	}
	m.availability[id] = available
	return true, nil
}

func TestGenerateSlots(t *testing.T) {
	admin := &memSlotAdmin{}
	store := newMemStore(1, "2026-09-15", "10:00")
	svc := NewSlotService(store, admin, store)

	created, err := svc.Generate(context.Background(), &GenerateSlotsRequest{
		FromDate: "2026-09-15",
		ToDate:   "2026-09-17",
		Times:    []string{"10:00", "14:00"},
		Capacity: 2,
	})
	require.NoError(t, err)

	// 3 days x 2 times.
	assert.Equal(t, int64(6), created)
	require.Len(t, admin.created, 6)
	assert.Equal(t, "10:00", admin.created[0].Time)
	assert.Equal(t, 2, admin.created[0].Capacity)
	assert.True(t, admin.created[0].IsAvailable)
	assert.Equal(t, "2026-09-17", admin.created[5].Date.Format(domain.DateLayout))
}

func TestGenerateSlotsValidation(t *testing.T) {
	admin := &memSlotAdmin{}
	store := newMemStore(1, "2026-09-15", "10:00")
	svc := NewSlotService(store, admin, store)

	cases := []struct {
		name string
		req  GenerateSlotsRequest
	}{
		{"zero capacity", GenerateSlotsRequest{FromDate: "2026-09-15", ToDate: "2026-09-16", Times: []string{"10:00"}}},
		{"no times", GenerateSlotsRequest{FromDate: "2026-09-15", ToDate: "2026-09-16", Capacity: 1}},
		{"bad from date", GenerateSlotsRequest{FromDate: "15-09-2026", ToDate: "2026-09-16", Times: []string{"10:00"}, Capacity: 1}},
		{"bad time", GenerateSlotsRequest{FromDate: "2026-09-15", ToDate: "2026-09-16", Times: []string{"25:99"}, Capacity: 1}},
		{"reversed range", GenerateSlotsRequest{FromDate: "2026-09-16", ToDate: "2026-09-15", Times: []string{"10:00"}, Capacity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), &tc.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Empty(t, admin.created)
}

func TestListOpen(t *testing.T) {
	admin := &memSlotAdmin{}
	store := newMemStore(1, "2026-09-15", "10:00")
	svc := NewSlotService(store, admin, store)

	from, err := time.Parse(domain.DateLayout, "2026-09-01")
	require.NoError(t, err)

	listing, err := svc.ListOpen(context.Background(), from)
	require.NoError(t, err)

	require.Len(t, listing.Days, 1)
	assert.Equal(t, "2026-09-15", listing.Days[0].Date)
	assert.Equal(t, int64(10000), listing.HourlyRate)
	assert.Equal(t, int64(15000), listing.OvertimeRate)
	assert.Equal(t, 24, listing.CancellationHours)
}

func TestSetSlotAvailability(t *testing.T) {
	admin := &memSlotAdmin{}
	store := newMemStore(1, "2026-09-15", "10:00")
	svc := NewSlotService(store, admin, store)

	require.NoError(t, svc.SetAvailability(context.Background(), 7, false))
	assert.False(t, admin.availability[7])

	admin.missing = true
	err := svc.SetAvailability(context.Background(), 99, true)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}
