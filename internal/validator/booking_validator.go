package validator

import (
	"tutoring-platform/internal/models"

	"github.com/google/uuid"
)

// BookingValidator is the declarative field-level schema for the command
// inputs spec.md §9 asks to replace runtime reflection/dynamic validation
// with: shape checks only, evaluated before the command touches the
// repository. Cross-request business rules (conflicts, prior bookings,
// role combinations) live in the engine, which has to run them inside the
// transaction anyway.
type BookingValidator struct{}

func NewBookingValidator() *BookingValidator {
	return &BookingValidator{}
}

// ValidateCreate checks CreateBookingCommand's shape.
func (v *BookingValidator) ValidateCreate(cmd *models.CreateBookingCommand) error {
	if cmd.StartTime == "" {
		return models.ErrInvalidDate
	}
	if cmd.CurrentUser == nil {
		return models.ErrInvalidInput
	}
	if _, err := models.ParseInstant(cmd.StartTime); err != nil {
		return err
	}
	if cmd.ToUserID == cmd.CurrentUser.ID {
		return models.ErrYourselfBooking
	}
	return nil
}

// ValidateReschedule checks RescheduleBookingCommand's shape.
func (v *BookingValidator) ValidateReschedule(cmd *models.RescheduleBookingCommand) error {
	if cmd.StartTime == "" {
		return models.ErrInvalidDate
	}
	if cmd.CurrentUser == nil || cmd.BookingID == uuid.Nil {
		return models.ErrInvalidInput
	}
	return nil
}
