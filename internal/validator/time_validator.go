package validator

import (
	"tutoring-platform/internal/models"
)

// TimeValidator holds the declarative field/cross-field checks that
// replace ad-hoc runtime validation at the command boundary (spec.md §9).
type TimeValidator struct{}

func NewTimeValidator() *TimeValidator {
	return &TimeValidator{}
}

var validStatuses = map[models.BookingStatus]bool{
	models.StatusAwaitingTutorConfirmation:   true,
	models.StatusAwaitingStudentConfirmation: true,
	models.StatusAwaitingPayment:             true,
	models.StatusPaymentFailed:               true,
	models.StatusScheduled:                   true,
	models.StatusCanceled:                    true,
	models.StatusCompleted:                   true,
	models.StatusAwaitingRefund:              true,
	models.StatusRefundFailed:                true,
	models.StatusRefunded:                    true,
}

// ValidateListQuery checks the cross-field refinements GetMany documents
// in spec.md §6: startDate <= endDate when both are given, and
// sortField/sortDirection are members of their enumerated sets.
func (v *TimeValidator) ValidateListQuery(q *models.ListBookingsQuery) error {
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return models.ErrInvalidInput
	}
	if q.SortField != "" && q.SortField != models.SortByStartTime && q.SortField != models.SortByCreatedAt {
		return models.ErrInvalidInput
	}
	if q.SortDirection != "" && q.SortDirection != models.SortAsc && q.SortDirection != models.SortDesc {
		return models.ErrInvalidInput
	}
	for _, s := range q.Status {
		if !validStatuses[s] {
			return models.ErrInvalidInput
		}
	}
	if q.Page < 0 || q.Limit < 0 {
		return models.ErrInvalidInput
	}
	return nil
}
