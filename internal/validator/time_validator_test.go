package validator

import (
	"testing"
	"time"

	"tutoring-platform/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateListQuery(t *testing.T) {
	v := NewTimeValidator()

	t.Run("empty query is valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateListQuery(&models.ListBookingsQuery{}))
	})

	t.Run("startDate after endDate rejected", func(t *testing.T) {
		start := time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		q := &models.ListBookingsQuery{StartDate: &start, EndDate: &end}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(q))
	})

	t.Run("startDate equal to endDate is valid", func(t *testing.T) {
		start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		q := &models.ListBookingsQuery{StartDate: &start, EndDate: &start}
		assert.NoError(t, v.ValidateListQuery(q))
	})

	t.Run("unknown sort field rejected", func(t *testing.T) {
		q := &models.ListBookingsQuery{SortField: "BOGUS"}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(q))
	})

	t.Run("unknown sort direction rejected", func(t *testing.T) {
		q := &models.ListBookingsQuery{SortDirection: "sideways"}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(q))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		q := &models.ListBookingsQuery{Status: []models.BookingStatus{"BOGUS"}}
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(q))
	})

	t.Run("negative page or limit rejected", func(t *testing.T) {
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(&models.ListBookingsQuery{Page: -1}))
		assert.Equal(t, models.ErrInvalidInput, v.ValidateListQuery(&models.ListBookingsQuery{Limit: -1}))
	})
}
