package service

import "tutoring-platform/internal/models"

// stateMachine enforces the per-(fromStatus, event, actor) transition
// table of spec.md §4.1. It holds no state of its own; every method takes
// the booking being transitioned and returns the next status or a
// rejection error.
type stateMachine struct{}

// confirmTarget implements the Confirm row: FREE_MEETING -> SCHEDULED,
// LESSON -> AWAITING_PAYMENT, gated on the booking being in one of the two
// awaiting-confirmation statuses and the actor being the party that owes
// the confirmation.
func (stateMachine) confirmTarget(b *models.Booking, actorIsHost bool) (models.BookingStatus, error) {
	switch b.Status {
	case models.StatusAwaitingTutorConfirmation:
		if !actorIsHost {
			return "", models.ErrUnauthorized
		}
	case models.StatusAwaitingStudentConfirmation:
		if actorIsHost {
			return "", models.ErrUnauthorized
		}
	default:
		return "", models.ErrInvalidStatus
	}

	if b.Type == models.BookingTypeFreeMeeting {
		return models.StatusScheduled, nil
	}
	return models.StatusAwaitingPayment, nil
}

// rescheduleTarget implements the Reschedule rows: the awaiting direction
// flips, and only the party currently being awaited may reschedule.
// actorIsHost tells us who is acting; the status tells us who the spec's
// per-actor error code should name when it's the wrong party.
func (stateMachine) rescheduleTarget(status models.BookingStatus, actorIsHost bool) (models.BookingStatus, error) {
	switch status {
	case models.StatusAwaitingTutorConfirmation:
		if !actorIsHost {
			return "", models.ErrInvalidStatusStudent
		}
		return models.StatusAwaitingStudentConfirmation, nil
	case models.StatusAwaitingStudentConfirmation:
		if actorIsHost {
			return "", models.ErrInvalidStatusTutor
		}
		return models.StatusAwaitingTutorConfirmation, nil
	case models.StatusCompleted, models.StatusCanceled, models.StatusAwaitingRefund,
		models.StatusRefundFailed, models.StatusRefunded:
		return "", models.ErrInvalidStatus
	default:
		return "", models.ErrInvalidStatus
	}
}

// cancelableStatuses is the Cancel row's "from" set.
var cancelableStatuses = map[models.BookingStatus]bool{
	models.StatusAwaitingTutorConfirmation:   true,
	models.StatusAwaitingStudentConfirmation: true,
	models.StatusScheduled:                   true,
	models.StatusAwaitingPayment:             true,
	models.StatusPaymentFailed:               true,
}

func (stateMachine) canCancel(status models.BookingStatus) bool {
	return cancelableStatuses[status]
}

func (stateMachine) canRequestRefund(status models.BookingStatus) bool {
	return status == models.StatusScheduled
}

// webhookTarget implements the five webhook rows of spec.md §4.9. ok is
// false when the event's expected pre-status doesn't match current — the
// caller acknowledges but performs no mutation (P6 / late-delivery
// handling in SPEC_FULL.md §5).
func (stateMachine) webhookTarget(eventType models.WebhookEventType, current models.BookingStatus) (next models.BookingStatus, ok bool) {
	switch eventType {
	case models.EventPaymentSucceeded:
		if current == models.StatusAwaitingPayment {
			return models.StatusScheduled, true
		}
	case models.EventPaymentFailed:
		if current == models.StatusAwaitingPayment {
			return models.StatusPaymentFailed, true
		}
	case models.EventRefundCreated:
		if current == models.StatusAwaitingRefund {
			return models.StatusAwaitingRefund, true
		}
	case models.EventRefundFailed:
		if current == models.StatusAwaitingRefund {
			return models.StatusRefundFailed, true
		}
	case models.EventChargeRefunded:
		if current == models.StatusAwaitingRefund {
			return models.StatusRefunded, true
		}
	}
	return "", false
}
