package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tutoring-platform/internal/database"
	"tutoring-platform/internal/models"
	"tutoring-platform/internal/repository"
	"tutoring-platform/internal/validator"

	"github.com/google/uuid"
)

// shiftOffsets are the alternative-time candidates spec.md §4.7 step 3
// asks for: shift ±1h and ±2h from the offending slot.
var shiftOffsets = []int{-120, -60, 60, 120}

// durationMinutes is the fixed 60-minute window of every recurring
// template child booking (spec.md §3).
const durationMinutes = 60

// RecurrenceExpander implements spec.md §4.7: from a template input it
// generates concrete child bookings over a fixed one-month horizon,
// detects conflicts via the shared ConflictDetector, and reconciles
// caller-supplied overrides.
type RecurrenceExpander struct {
	db        *database.DB
	bookings  *repository.BookingRepository
	templates *repository.RecurringTemplateRepository
	conflict  *ConflictDetector
	clock     Clock
	slots     *validator.RecurringSlotValidator
}

func NewRecurrenceExpander(
	db *database.DB,
	bookings *repository.BookingRepository,
	templates *repository.RecurringTemplateRepository,
	clock Clock,
) *RecurrenceExpander {
	return &RecurrenceExpander{
		db:        db,
		bookings:  bookings,
		templates: templates,
		conflict:  NewConflictDetector(bookings),
		clock:     clock,
		slots:     validator.NewRecurringSlotValidator(),
	}
}

// Create implements the full §4.7 contract: pre-conditions, instance
// generation, conflict detection with alternatives, override application,
// and persistence.
func (x *RecurrenceExpander) Create(ctx context.Context, cmd *models.CreateRecurringTemplateCommand) (*models.RecurrenceExpansionResult, error) {
	cmd.Sanitize()

	if cmd.CurrentUser == nil || !cmd.CurrentUser.Roles.Has(models.RoleStudent) {
		return nil, models.ErrInvalidInput
	}
	if cmd.CurrentUser.ID == cmd.HostID {
		return nil, models.ErrInvalidInput
	}
	if !cmd.RecurrencePattern.IsValid() {
		return nil, models.ErrInvalidInput
	}

	slots, err := x.slots.ParseAndValidate(cmd.TimeSlots)
	if err != nil {
		return nil, err
	}

	now := x.clock.Now()
	horizonStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizonEnd := horizonStart.AddDate(0, 1, 0)

	priorTx, err := x.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return nil, fmt.Errorf("begin prior-booking check tx: %w", err)
	}
	hasPrior, err := x.bookings.HasPriorCompletedOrScheduled(ctx, priorTx, cmd.HostID, cmd.CurrentUser.ID)
	priorTx.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("check prior booking: %w", err)
	}
	if !hasPrior {
		return nil, models.ErrNoPriorBooking
	}

	activeSlots, err := x.templates.ActiveSlotsForHost(ctx, cmd.HostID)
	if err != nil {
		return nil, fmt.Errorf("load active template slots: %w", err)
	}
	for _, s := range slots {
		for _, a := range activeSlots {
			if a.Weekday == s.Weekday && overlapsTimeOfDay(s.TimeOfDay, a.TimeOfDay) {
				return nil, models.ErrRecurringTemplateConflict
			}
		}
	}

	candidates := generateInstances(slots, cmd.RecurrencePattern, now, horizonEnd)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start.Before(candidates[j].Start) })

	conflicts, err := x.detectConflicts(ctx, cmd.HostID, cmd.CurrentUser.ID, candidates)
	if err != nil {
		return nil, err
	}

	if len(conflicts) > 0 {
		resolved, unresolved, err := x.applyOverrides(ctx, cmd.HostID, cmd.CurrentUser.ID, candidates, conflicts, cmd.Overrides)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 {
			return &models.RecurrenceExpansionResult{Conflicts: unresolved}, nil
		}
		candidates = resolved
	}

	var finalCandidates []models.CandidateInstance
	for _, c := range candidates {
		if !c.Canceled {
			finalCandidates = append(finalCandidates, c)
		}
	}

	tmpl := &models.RecurringTemplate{
		HostID:            cmd.HostID,
		Title:             cmd.Title,
		Description:       cmd.Description,
		RecurrencePattern: cmd.RecurrencePattern,
		DurationMinutes:   durationMinutes,
		TimeSlots:         slots,
	}
	children := make([]*models.Booking, 0, len(finalCandidates))
	for _, c := range finalCandidates {
		children = append(children, &models.Booking{
			Title:         titleFor(models.BookingTypeLesson),
			StartTime:     c.Start,
			EndTime:       c.End,
			Type:          models.BookingTypeLesson,
			Status:        models.StatusAwaitingStudentConfirmation,
			HostID:        cmd.HostID,
			ParticipantID: cmd.CurrentUser.ID,
		})
	}

	tx, err := x.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return nil, fmt.Errorf("begin recurrence tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := x.templates.Create(ctx, tx, tmpl, children); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit recurrence: %w", err)
	}

	return &models.RecurrenceExpansionResult{TemplateID: uuid.NullUUID{UUID: tmpl.ID, Valid: true}}, nil
}

// generateInstances implements §4.7 step 1-2: for each slot, find the
// first occurrence at or after now on that weekday/time, then step by the
// pattern while strictly before horizonEnd.
func generateInstances(slots []models.RecurringTimeSlot, pattern models.RecurrencePattern, now, horizonEnd time.Time) []models.CandidateInstance {
	var out []models.CandidateInstance
	for _, slot := range slots {
		t := firstOccurrence(slot, now)
		for t.Before(horizonEnd) {
			out = append(out, models.CandidateInstance{
				Slot:  slot,
				Start: t,
				End:   t.Add(durationMinutes * time.Minute),
			})
			t = pattern.Step(t)
		}
	}
	return out
}

// firstOccurrence returns the first UTC instant >= now on slot.Weekday at
// slot.TimeOfDay.
func firstOccurrence(slot models.RecurringTimeSlot, now time.Time) time.Time {
	daysUntil := int(slot.Weekday) - int(now.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}
	candidate := time.Date(now.Year(), now.Month(), now.Day(), slot.TimeOfDay.Hour, slot.TimeOfDay.Minute, 0, 0, time.UTC)
	candidate = candidate.AddDate(0, 0, daysUntil)
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func overlapsTimeOfDay(a, b models.LocalTimeOfDay) bool {
	aStart, bStart := a.MinutesSinceMidnight(), b.MinutesSinceMidnight()
	return aStart < bStart+durationMinutes && bStart < aStart+durationMinutes
}

// detectConflicts runs the Conflict Detector over every candidate and
// computes alternatives for each offender (§4.7 step 3).
func (x *RecurrenceExpander) detectConflicts(ctx context.Context, hostID, studentID uuid.UUID, candidates []models.CandidateInstance) ([]models.TimeSlotConflict, error) {
	intervals := make([]repository.Interval, len(candidates))
	for i, c := range candidates {
		intervals[i] = repository.Interval{Start: c.Start, End: c.End}
	}

	tx, err := x.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return nil, fmt.Errorf("begin conflict detection tx: %w", err)
	}
	defer tx.Rollback(ctx)

	overlapping, err := x.conflict.Detect(ctx, tx, hostID, uuid.NullUUID{UUID: studentID, Valid: true}, intervals)
	if err != nil {
		return nil, fmt.Errorf("detect recurrence conflicts: %w", err)
	}

	var conflicts []models.TimeSlotConflict
	for _, c := range candidates {
		offending := false
		for _, b := range overlapping {
			if b.Overlaps(c.Start, c.End) {
				offending = true
				break
			}
		}
		if !offending {
			continue
		}
		alts, err := x.alternativesFor(ctx, hostID, studentID, c)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, models.TimeSlotConflict{ConflictTime: c.Start, AlternativeTimes: alts})
	}
	return conflicts, nil
}

// alternativesFor computes the ±1h/±2h shifts that stay on the 15-minute
// grid, fit within the day, and are conflict-free (§4.7 step 3).
func (x *RecurrenceExpander) alternativesFor(ctx context.Context, hostID, studentID uuid.UUID, c models.CandidateInstance) ([]string, error) {
	var out []string
	for _, offset := range shiftOffsets {
		shifted := c.Slot.TimeOfDay.Add(offset)
		if !shifted.OnGrid() || !shifted.FitsDuration(durationMinutes) {
			continue
		}
		start := c.Start.Add(time.Duration(offset) * time.Minute)
		end := start.Add(durationMinutes * time.Minute)

		conflictTx, err := x.db.BeginTx(ctx, serializableTx)
		if err != nil {
			return nil, fmt.Errorf("begin alternative-check tx: %w", err)
		}
		overlapping, err := x.conflict.Detect(ctx, conflictTx, hostID, uuid.NullUUID{UUID: studentID, Valid: true}, []repository.Interval{{Start: start, End: end}})
		conflictTx.Rollback(ctx)
		if err != nil {
			return nil, fmt.Errorf("check alternative slot: %w", err)
		}
		if len(overlapping) == 0 {
			out = append(out, shifted.String())
		}
	}
	return out, nil
}

// applyOverrides implements §4.7 step 5: every conflict's time must be
// covered by an override (cancel, or move + re-validate). Returns the
// resolved candidate set and any conflicts that remain unresolved.
func (x *RecurrenceExpander) applyOverrides(ctx context.Context, hostID, studentID uuid.UUID, candidates []models.CandidateInstance, conflicts []models.TimeSlotConflict, overrides []models.RecurrenceOverride) ([]models.CandidateInstance, []models.TimeSlotConflict, error) {
	if len(overrides) == 0 {
		return nil, conflicts, nil
	}

	byTime := make(map[string]models.RecurrenceOverride, len(overrides))
	for _, o := range overrides {
		byTime[o.ConflictTime] = o
	}

	var unresolved []models.TimeSlotConflict
	for _, c := range conflicts {
		if _, ok := byTime[models.FormatInstant(c.ConflictTime)]; !ok {
			unresolved = append(unresolved, c)
		}
	}
	if len(unresolved) > 0 {
		return nil, unresolved, nil
	}

	resolved := make([]models.CandidateInstance, len(candidates))
	copy(resolved, candidates)

	for i, c := range resolved {
		override, ok := byTime[models.FormatInstant(c.Start)]
		if !ok {
			continue
		}
		if override.Cancel {
			resolved[i].Canceled = true
			continue
		}
		newTOD, err := models.ParseTimeOfDay(override.NewTimeOfDay)
		if err != nil {
			return nil, nil, models.ErrInvalidOverrideTime
		}
		if !newTOD.FitsDuration(durationMinutes) {
			return nil, nil, models.ErrInvalidOverrideTime
		}
		newStart := time.Date(c.Start.Year(), c.Start.Month(), c.Start.Day(), newTOD.Hour, newTOD.Minute, 0, 0, time.UTC)
		resolved[i].Start = newStart
		resolved[i].End = newStart.Add(durationMinutes * time.Minute)
	}

	var remaining []models.CandidateInstance
	for _, c := range resolved {
		if !c.Canceled {
			remaining = append(remaining, c)
		}
	}
	remainingConflicts, err := x.detectConflicts(ctx, hostID, studentID, remaining)
	if err != nil {
		return nil, nil, err
	}
	if len(remainingConflicts) > 0 {
		return nil, nil, models.ErrOverrideConflict
	}

	return resolved, nil, nil
}
