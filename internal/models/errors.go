package models

// Error is a stable, machine-readable domain error returned by the booking
// engine. Handlers map Code to a transport status; Message is safe to show
// to a caller.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newErr(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation errors.
var (
	ErrInvalidDate          = newErr("INVALID_DATE", "startTime is not a valid ISO-8601 UTC instant")
	ErrInvalidTimeSlot      = newErr("INVALID_TIME_SLOT", "time slot is not on the 15-minute grid or crosses midnight")
	ErrOverlappingTimeSlots = newErr("OVERLAPPING_TIME_SLOTS", "two requested time slots overlap on the same weekday")
	ErrInvalidInput         = newErr("INVALID_INPUT", "request input failed validation")
	ErrInvalidOverrideTime  = newErr("INVALID_OVERRIDE_TIME", "override newTimeOfDay is not on the 15-minute grid")
)

// Business rule errors.
var (
	ErrPastBooking               = newErr("PAST_BOOKING", "startTime is in the past")
	ErrPastTime                  = newErr("PAST_TIME", "startTime is in the past")
	ErrSameTime                  = newErr("SAME_TIME", "reschedule startTime matches the current startTime")
	ErrAdvanceBookingLimit       = newErr("ADVANCE_BOOKING_LIMIT", "startTime is more than one month ahead")
	ErrYourselfBooking           = newErr("YOURSELF_BOOKING", "a user cannot book themself")
	ErrInvalidBookingCombination = newErr("INVALID_BOOKING_COMBINATION", "both users are tutors")
	ErrFreeMeetingTutor          = newErr("FREE_MEETING_TUTOR", "a tutor cannot initiate a free meeting")
	ErrNoPreviousMeeting         = newErr("NO_PREVIOUS_MEETING", "tutor has no prior meeting with this student")
	ErrOngoingFreeMeeting        = newErr("ONGOING_FREE_MEETING", "an active free meeting already exists for this pair")
	ErrNoPriorBooking            = newErr("NO_PRIOR_BOOKING", "student has no prior completed or scheduled booking with this tutor")
	ErrBookingConflict           = newErr("BOOKING_CONFLICT", "candidate interval overlaps an active booking")
	ErrRecurringTemplateConflict = newErr("RECURRING_TEMPLATE_CONFLICT", "time slot overlaps an active recurring template for this host")
	ErrOverrideConflict          = newErr("OVERRIDE_CONFLICT", "override still conflicts after being applied")
)

// State errors.
var (
	ErrInvalidStatus        = newErr("INVALID_STATUS", "booking is not in a status that allows this operation")
	ErrInvalidStatusTutor   = newErr("INVALID_STATUS_TUTOR", "tutor cannot reschedule from this status")
	ErrInvalidStatusStudent = newErr("INVALID_STATUS_STUDENT", "student cannot reschedule from this status")
)

// Authorization errors.
var (
	ErrUnauthorized       = newErr("UNAUTHORIZED", "actor is not the host or participant of this booking")
	ErrUserNotFound       = newErr("USER_NOT_FOUND", "referenced user does not exist")
	ErrInvalidHost        = newErr("INVALID_HOST", "host does not hold the tutor role")
	ErrInvalidParticipant = newErr("INVALID_PARTICIPANT", "participant does not hold the student role")
)

// Payment errors.
var (
	ErrNoPaymentInfo                = newErr("NO_PAYMENT_INFO", "booking has no attached payment")
	ErrPaymentSessionCreationFailed = newErr("PAYMENT_SESSION_CREATION_FAILED", "payment gateway failed to create a checkout session")
	ErrPaymentCancellationFailed    = newErr("PAYMENT_CANCELLATION_FAILED", "payment gateway failed to expire the checkout session")
	ErrRefundProcessingFailed       = newErr("REFUND_PROCESSING_FAILED", "payment gateway failed to create a refund")
	ErrInvalidMetadata              = newErr("INVALID_METADATA", "webhook event is missing bookingId metadata")
	ErrInvalidSignature             = newErr("INVALID_SIGNATURE", "webhook signature verification failed")
)

// Infrastructure errors.
var (
	ErrInternal        = newErr("INTERNAL_SERVER_ERROR", "an unexpected error occurred")
	ErrBookingNotFound  = newErr("BOOKING_NOT_FOUND", "booking does not exist")
)

// IsDomainError reports whether err is a *Error carrying a stable code, as
// opposed to an infrastructure fault that should be logged and wrapped as
// ErrInternal at the boundary.
func IsDomainError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
