package service

import (
	"context"

	"tutoring-platform/internal/models"
	"tutoring-platform/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ConflictDetector is the single shared implementation of spec.md §4.8,
// reused by Create (§4.2), Reschedule (§4.4) and the Recurrence Expander
// (§4.7) rather than duplicated per caller.
type ConflictDetector struct {
	bookingRepo *repository.BookingRepository
}

func NewConflictDetector(bookingRepo *repository.BookingRepository) *ConflictDetector {
	return &ConflictDetector{bookingRepo: bookingRepo}
}

// Detect returns the active bookings overlapping any candidate interval
// for hostID (or participantID, if given) in a single round trip.
func (d *ConflictDetector) Detect(ctx context.Context, tx pgx.Tx, hostID uuid.UUID, participantID uuid.NullUUID, candidates []repository.Interval) ([]*models.Booking, error) {
	return d.bookingRepo.FindConflicts(ctx, tx, hostID, participantID, candidates)
}
