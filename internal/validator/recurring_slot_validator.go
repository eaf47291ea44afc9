package validator

import (
	"tutoring-platform/internal/models"
)

// RecurringSlotValidator validates the {weekday, HH:mm} inputs to the
// Recurrence Expander (spec.md §4.7 pre-conditions), grounded on the
// teacher's single-struct-of-Validate*-methods shape.
type RecurringSlotValidator struct{}

func NewRecurringSlotValidator() *RecurringSlotValidator {
	return &RecurringSlotValidator{}
}

// durationMinutes is fixed at 60 for every recurring template (spec.md §3).
const durationMinutes = 60

// ParseAndValidate parses each input's HH:mm, checks the 15-minute grid and
// that a 60-minute lesson starting there doesn't cross midnight, and
// rejects any two slots on the same weekday whose windows overlap.
func (v *RecurringSlotValidator) ParseAndValidate(inputs []models.TimeSlotInput) ([]models.RecurringTimeSlot, error) {
	if len(inputs) == 0 {
		return nil, models.ErrInvalidInput
	}

	slots := make([]models.RecurringTimeSlot, 0, len(inputs))
	for _, in := range inputs {
		tod, err := models.ParseTimeOfDay(in.TimeOfDay)
		if err != nil {
			return nil, err
		}
		if !tod.FitsDuration(durationMinutes) {
			return nil, models.ErrInvalidTimeSlot
		}
		slots = append(slots, models.RecurringTimeSlot{Weekday: in.Weekday, TimeOfDay: tod})
	}

	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].Weekday != slots[j].Weekday {
				continue
			}
			if overlaps(slots[i].TimeOfDay, slots[j].TimeOfDay) {
				return nil, models.ErrOverlappingTimeSlots
			}
		}
	}

	return slots, nil
}

func overlaps(a, b models.LocalTimeOfDay) bool {
	aStart, bStart := a.MinutesSinceMidnight(), b.MinutesSinceMidnight()
	aEnd, bEnd := aStart+durationMinutes, bStart+durationMinutes
	return aStart < bEnd && bStart < aEnd
}
