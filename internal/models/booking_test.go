package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingType_Duration(t *testing.T) {
	assert.Equal(t, 15*time.Minute, BookingTypeFreeMeeting.Duration())
	assert.Equal(t, 60*time.Minute, BookingTypeLesson.Duration())
}

func TestBookingType_IsValid(t *testing.T) {
	assert.True(t, BookingTypeFreeMeeting.IsValid())
	assert.True(t, BookingTypeLesson.IsValid())
	assert.False(t, BookingType("BOGUS").IsValid())
}

func TestBookingStatus_IsActive(t *testing.T) {
	for _, s := range ActiveStatuses {
		assert.True(t, s.IsActive(), "%s should be active", s)
	}
	for _, s := range []BookingStatus{StatusCompleted, StatusCanceled, StatusRefunded, StatusPaymentFailed} {
		assert.False(t, s.IsActive(), "%s should not be active", s)
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	for _, s := range TerminalStatuses {
		assert.True(t, s.IsTerminal())
	}
	assert.False(t, StatusAwaitingPayment.IsTerminal())
}

func TestBookingStatus_RequiresPayment(t *testing.T) {
	// I5: every LESSON booking in these statuses must carry a Payment row.
	for _, s := range PaymentAttachedStatuses {
		assert.True(t, s.RequiresPayment(), "%s should require payment", s)
	}
	for _, s := range []BookingStatus{StatusAwaitingTutorConfirmation, StatusAwaitingStudentConfirmation, StatusCompleted, StatusCanceled} {
		assert.False(t, s.RequiresPayment(), "%s should not require payment", s)
	}
}

func TestBooking_Overlaps(t *testing.T) {
	start := time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	b := &Booking{StartTime: start, EndTime: end}

	tests := []struct {
		name        string
		candStart   time.Time
		candEnd     time.Time
		wantOverlap bool
	}{
		{"identical window", start, end, true},
		{"candidate fully inside", start.Add(15 * time.Minute), start.Add(45 * time.Minute), true},
		{"candidate starts exactly at end: half-open, no overlap", end, end.Add(time.Hour), false},
		{"candidate ends exactly at start: half-open, no overlap", start.Add(-time.Hour), start, false},
		{"candidate overlaps tail", start.Add(30 * time.Minute), end.Add(30 * time.Minute), true},
		{"candidate overlaps head", start.Add(-30 * time.Minute), start.Add(30 * time.Minute), true},
		{"disjoint, well before", start.Add(-2 * time.Hour), start.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOverlap, b.Overlaps(tt.candStart, tt.candEnd))
		})
	}
}

func TestListBookingsQuery_ApplyDefaults(t *testing.T) {
	q := &ListBookingsQuery{}
	q.ApplyDefaults()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, SortByStartTime, q.SortField)
	assert.Equal(t, SortDesc, q.SortDirection)

	q = &ListBookingsQuery{Limit: 500}
	q.ApplyDefaults()
	assert.Equal(t, 100, q.Limit)

	q = &ListBookingsQuery{Page: -3, Limit: -1}
	q.ApplyDefaults()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.Limit)
}
