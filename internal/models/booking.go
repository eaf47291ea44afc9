package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingType is the tagged variant spec.md §9 asks for in place of
// subclassing: a FreeMeeting or a Lesson, nothing else.
type BookingType string

const (
	BookingTypeFreeMeeting BookingType = "FREE_MEETING"
	BookingTypeLesson      BookingType = "LESSON"
)

// DurationMinutes returns the fixed duration for the booking type (spec.md
// §3, I1/P2).
func (t BookingType) DurationMinutes() int {
	if t == BookingTypeLesson {
		return 60
	}
	return 15
}

func (t BookingType) Duration() time.Duration {
	return time.Duration(t.DurationMinutes()) * time.Minute
}

// IsValid reports whether t is a known booking type.
func (t BookingType) IsValid() bool {
	return t == BookingTypeFreeMeeting || t == BookingTypeLesson
}

// BookingStatus is one of the states in the transition table of spec.md
// §4.1.
type BookingStatus string

const (
	StatusAwaitingTutorConfirmation   BookingStatus = "AWAITING_TUTOR_CONFIRMATION"
	StatusAwaitingStudentConfirmation BookingStatus = "AWAITING_STUDENT_CONFIRMATION"
	StatusAwaitingPayment             BookingStatus = "AWAITING_PAYMENT"
	StatusPaymentFailed               BookingStatus = "PAYMENT_FAILED"
	StatusScheduled                   BookingStatus = "SCHEDULED"
	StatusCanceled                    BookingStatus = "CANCELED"
	StatusCompleted                   BookingStatus = "COMPLETED"
	StatusAwaitingRefund              BookingStatus = "AWAITING_REFUND"
	StatusRefundFailed                BookingStatus = "REFUND_FAILED"
	StatusRefunded                    BookingStatus = "REFUNDED"
)

// ActiveStatuses is the glossary's "active status set": bookings that hold
// a slot on the host's calendar and participate in conflict detection.
var ActiveStatuses = []BookingStatus{
	StatusAwaitingTutorConfirmation,
	StatusAwaitingStudentConfirmation,
	StatusAwaitingPayment,
	StatusScheduled,
}

// IsActive reports whether s is in the active status set (I2).
func (s BookingStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// TerminalStatuses never accept any further transition (spec.md §4.1 last
// row).
var TerminalStatuses = []BookingStatus{StatusCompleted, StatusCanceled, StatusRefunded}

func (s BookingStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// PaymentAttachedStatuses is I5: every LESSON booking in one of these
// statuses must own a Payment row.
var PaymentAttachedStatuses = []BookingStatus{
	StatusAwaitingPayment, StatusPaymentFailed, StatusScheduled,
	StatusAwaitingRefund, StatusRefundFailed, StatusRefunded,
}

func (s BookingStatus) RequiresPayment() bool {
	for _, p := range PaymentAttachedStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Booking is the central entity of spec.md §3.
type Booking struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	Title                string        `db:"title" json:"title"`
	Description          *string       `db:"description" json:"description,omitempty"`
	StartTime            time.Time     `db:"start_time" json:"startTime"`
	EndTime              time.Time     `db:"end_time" json:"endTime"`
	Type                 BookingType   `db:"type" json:"type"`
	Status               BookingStatus `db:"status" json:"status"`
	HostID               uuid.UUID     `db:"host_id" json:"hostId"`
	ParticipantID        uuid.UUID     `db:"participant_id" json:"participantId"`
	ServiceID            uuid.NullUUID `db:"service_id" json:"serviceId,omitempty"`
	RecurringTemplateID  uuid.NullUUID `db:"recurring_template_id" json:"recurringTemplateId,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updatedAt"`
}

// Overlaps reports the half-open interval overlap test of spec.md §4.8:
// existing.start < candidate.end && existing.end > candidate.start.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// BookingWithDetails denormalizes the host/participant/payment shape
// spec.md §6 requires from GetOne.
type BookingWithDetails struct {
	Booking
	Host        ParticipantView `json:"host"`
	Participant ParticipantView `json:"participant"`
	Payment     *Payment        `json:"payment,omitempty"`
}

// CreateBookingCommand is the input to §4.2.
type CreateBookingCommand struct {
	StartTime   string
	CurrentUser *User
	ToUserID    uuid.UUID
}

// RescheduleBookingCommand is the input to §4.4.
type RescheduleBookingCommand struct {
	BookingID   uuid.UUID
	StartTime   string
	CurrentUser *User
}

// ConfirmBookingCommand is the input to §4.5.
type ConfirmBookingCommand struct {
	BookingID   uuid.UUID
	CurrentUser *User
}

// CancelBookingCommand is the input to §4.3.
type CancelBookingCommand struct {
	BookingID   uuid.UUID
	CurrentUser *User
}

// RequestRefundCommand is the input to §4.6.
type RequestRefundCommand struct {
	BookingID   uuid.UUID
	CurrentUser *User
}

// SortField is the enumerated sort field for GetMany (spec.md §6).
type SortField string

const (
	SortByStartTime SortField = "START_TIME"
	SortByCreatedAt SortField = "CREATED_AT"
)

// SortDirection is asc/desc for GetMany.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListBookingsQuery is the input to §4's GetMany / spec.md §6 `GET
// bookings`.
type ListBookingsQuery struct {
	Page          int
	Limit         int
	Status        []BookingStatus
	Type          *BookingType
	StartDate     *time.Time
	EndDate       *time.Time
	Search        string
	SortField     SortField
	SortDirection SortDirection

	// HostID/ParticipantID scope the list to bookings the current user can
	// see; at least one must be set by the caller.
	HostID        uuid.NullUUID
	ParticipantID uuid.NullUUID
}

// ApplyDefaults fills in spec.md §6's documented defaults.
func (q *ListBookingsQuery) ApplyDefaults() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.SortField == "" {
		q.SortField = SortByStartTime
	}
	if q.SortDirection == "" {
		q.SortDirection = SortDesc
	}
}

// ListBookingsMetadata is the `metadata` half of the envelope spec.md §6
// requires from `GET bookings`.
type ListBookingsMetadata struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListBookingsResult is the `{items, metadata}` envelope of spec.md §6.
type ListBookingsResult struct {
	Items    []*BookingWithDetails `json:"items"`
	Metadata ListBookingsMetadata  `json:"metadata"`
}
