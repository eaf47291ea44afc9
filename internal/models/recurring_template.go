package models

import (
	"time"

	"github.com/google/uuid"

	"tutoring-platform/pkg/sanitize"
)

// RecurrencePattern is the step between generated instances (spec.md §3).
type RecurrencePattern string

const (
	PatternWeekly   RecurrencePattern = "WEEKLY"
	PatternBiweekly RecurrencePattern = "BIWEEKLY"
	PatternMonthly  RecurrencePattern = "MONTHLY"
)

func (p RecurrencePattern) IsValid() bool {
	return p == PatternWeekly || p == PatternBiweekly || p == PatternMonthly
}

// Step advances t to the next occurrence per the pattern.
func (p RecurrencePattern) Step(t time.Time) time.Time {
	switch p {
	case PatternBiweekly:
		return t.AddDate(0, 0, 14)
	case PatternMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 7)
	}
}

// TemplateStatus is ACTIVE or INACTIVE (spec.md §3).
type TemplateStatus string

const (
	TemplateActive   TemplateStatus = "ACTIVE"
	TemplateInactive TemplateStatus = "INACTIVE"
)

// RecurringTimeSlot is a weekday + time-of-day pair unique within a
// template (spec.md §3, I6).
type RecurringTimeSlot struct {
	Weekday    time.Weekday
	TimeOfDay  LocalTimeOfDay
}

// RecurringTemplate generates concrete child bookings over a fixed
// horizon (spec.md §4.7).
type RecurringTemplate struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	HostID           uuid.UUID         `db:"host_id" json:"hostId"`
	Title            string            `db:"title" json:"title"`
	Description      *string           `db:"description" json:"description,omitempty"`
	RecurrencePattern RecurrencePattern `db:"recurrence_pattern" json:"recurrencePattern"`
	DurationMinutes  int               `db:"duration_minutes" json:"durationMinutes"`
	Status           TemplateStatus    `db:"status" json:"status"`
	TimeSlots        []RecurringTimeSlot `json:"timeSlots"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// TimeSlotInput is one `{weekday, HH:mm}` entry in the wire request.
type TimeSlotInput struct {
	Weekday   time.Weekday
	TimeOfDay string
}

// RecurrenceOverride resolves one previously reported conflict (spec.md
// §4.7 step 5).
type RecurrenceOverride struct {
	ConflictTime  string // formatted per models.WireTimeLayout
	NewTimeOfDay  string // "HH:mm", optional
	Cancel        bool
}

// CreateRecurringTemplateCommand is the input to the Recurrence Expander
// (spec.md §6 `POST bookings/recurring`).
type CreateRecurringTemplateCommand struct {
	Title             string
	Description       *string
	HostID            uuid.UUID
	CurrentUser       *User
	RecurrencePattern RecurrencePattern
	TimeSlots         []TimeSlotInput
	Overrides         []RecurrenceOverride
}

// Sanitize cleans the free-text fields a caller supplies before they reach
// persistence or any downstream rendering.
func (c *CreateRecurringTemplateCommand) Sanitize() {
	c.Title = sanitize.Name(c.Title)
	if c.Description != nil {
		desc := sanitize.Description(*c.Description)
		c.Description = &desc
	}
}

// TimeSlotConflict is one offending candidate instance reported back to
// the caller (spec.md §4.7 step 3).
type TimeSlotConflict struct {
	ConflictTime     time.Time
	AlternativeTimes []string
}

// RecurrenceExpansionResult is what CreateRecurringTemplate returns: either
// a persisted template id, or the set of unresolved conflicts.
type RecurrenceExpansionResult struct {
	TemplateID uuid.NullUUID
	Conflicts  []TimeSlotConflict
}

// CandidateInstance is an internal working value threaded through
// expansion: the concrete start/end this slot maps to, prior to conflict
// resolution.
type CandidateInstance struct {
	Slot      RecurringTimeSlot
	Start     time.Time
	End       time.Time
	Canceled  bool
}
