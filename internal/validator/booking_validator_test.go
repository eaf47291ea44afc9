package validator

import (
	"testing"

	"tutoring-platform/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateCreate(t *testing.T) {
	v := NewBookingValidator()
	user := &models.User{ID: uuid.New()}

	t.Run("valid command", func(t *testing.T) {
		cmd := &models.CreateBookingCommand{StartTime: "2030-01-15T09:00:00.000Z", CurrentUser: user, ToUserID: uuid.New()}
		assert.NoError(t, v.ValidateCreate(cmd))
	})

	t.Run("missing start time", func(t *testing.T) {
		cmd := &models.CreateBookingCommand{CurrentUser: user, ToUserID: uuid.New()}
		assert.Equal(t, models.ErrInvalidDate, v.ValidateCreate(cmd))
	})

	t.Run("missing current user", func(t *testing.T) {
		cmd := &models.CreateBookingCommand{StartTime: "2030-01-15T09:00:00.000Z", ToUserID: uuid.New()}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateCreate(cmd))
	})

	t.Run("booking yourself", func(t *testing.T) {
		cmd := &models.CreateBookingCommand{StartTime: "2030-01-15T09:00:00.000Z", CurrentUser: user, ToUserID: user.ID}
		assert.Equal(t, models.ErrYourselfBooking, v.ValidateCreate(cmd))
	})
}

func TestValidateReschedule(t *testing.T) {
	v := NewBookingValidator()
	user := &models.User{ID: uuid.New()}
	bookingID := uuid.New()

	t.Run("valid command", func(t *testing.T) {
		cmd := &models.RescheduleBookingCommand{BookingID: bookingID, StartTime: "2030-01-15T09:00:00.000Z", CurrentUser: user}
		assert.NoError(t, v.ValidateReschedule(cmd))
	})

	t.Run("missing start time", func(t *testing.T) {
		cmd := &models.RescheduleBookingCommand{BookingID: bookingID, CurrentUser: user}
		assert.Equal(t, models.ErrInvalidDate, v.ValidateReschedule(cmd))
	})

	t.Run("missing booking id", func(t *testing.T) {
		cmd := &models.RescheduleBookingCommand{StartTime: "2030-01-15T09:00:00.000Z", CurrentUser: user}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateReschedule(cmd))
	})

	t.Run("missing current user", func(t *testing.T) {
		cmd := &models.RescheduleBookingCommand{BookingID: bookingID, StartTime: "2030-01-15T09:00:00.000Z"}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateReschedule(cmd))
	})
}
