package service

import (
	"context"
	"testing"
	"time"

	"tutoring-platform/internal/database"
	"tutoring-platform/internal/models"
	"tutoring-platform/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpander(t *testing.T, clock Clock) (*RecurrenceExpander, *database.DB) {
	t.Helper()
	pool := database.GetTestPool(t)
	database.CleanupTestTables(t, pool)
	sqlxDB := database.GetTestSqlxDB(t)
	db := &database.DB{Pool: pool, Sqlx: sqlxDB, Close: func() error { return nil }}

	bookings := repository.NewBookingRepository(sqlxDB)
	templates := repository.NewRecurringTemplateRepository(sqlxDB)
	expander := NewRecurrenceExpander(db, bookings, templates, clock)
	return expander, db
}

// TestRecurrenceExpander_ConflictReportsAlternatives implements scenario S7:
// a weekly template whose first occurrence collides with an existing
// booking is rejected with the conflicting time and a set of alternatives,
// and no template or child bookings are persisted.
func TestRecurrenceExpander_ConflictReportsAlternatives(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC) // a Monday
	clock := FixedClock{Instant: now}
	expander, db := newTestExpander(t, clock)

	tutor, student := uuid.New(), uuid.New()
	insertUser(t, db, tutor, "Tutor", "TUTOR")
	insertUser(t, db, student, "Student", "STUDENT")

	// A prior completed lesson so the student qualifies for a recurring
	// template with this tutor (spec.md §4.7 precondition).
	priorStart := now.AddDate(0, 0, -7)
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO bookings (id, title, start_time, end_time, type, status, host_id, participant_id)
		VALUES ($1, 'Lesson', $2, $3, 'LESSON', 'COMPLETED', $4, $5)
	`, uuid.New(), priorStart, priorStart.Add(time.Hour), tutor, student)
	require.NoError(t, err)

	// First weekly occurrence at 10:00 on the same Monday as now collides with this
	// existing scheduled booking for the same tutor.
	conflictStart := firstOccurrence(models.RecurringTimeSlot{Weekday: time.Monday, TimeOfDay: models.LocalTimeOfDay{Hour: 10, Minute: 0}}, now)
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO bookings (id, title, start_time, end_time, type, status, host_id, participant_id)
		VALUES ($1, 'Lesson', $2, $3, 'LESSON', 'SCHEDULED', $4, $5)
	`, uuid.New(), conflictStart, conflictStart.Add(time.Hour), tutor, uuid.New())
	require.NoError(t, err)

	cmd := &models.CreateRecurringTemplateCommand{
		Title:             "Weekly Algebra",
		HostID:            tutor,
		CurrentUser:       &models.User{ID: student, Roles: models.Roles{models.RoleStudent}},
		RecurrencePattern: models.PatternWeekly,
		TimeSlots:         []models.TimeSlotInput{{Weekday: time.Monday, TimeOfDay: "10:00"}},
	}

	result, err := expander.Create(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.TemplateID.Valid)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, conflictStart, result.Conflicts[0].ConflictTime)
	assert.NotEmpty(t, result.Conflicts[0].AlternativeTimes)

	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM recurring_templates`).Scan(&count))
	assert.Equal(t, 0, count, "no template should be persisted while conflicts remain unresolved")
}

// TestRecurrenceExpander_OverrideCancelResolvesConflict implements scenario
// S8: the same conflicting slot is resubmitted with a cancel override for
// the conflicting time; the template is persisted and every other weekly
// occurrence is generated as a child booking except the canceled one.
func TestRecurrenceExpander_OverrideCancelResolvesConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	now := time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC) // a Monday
	clock := FixedClock{Instant: now}
	expander, db := newTestExpander(t, clock)

	tutor, student := uuid.New(), uuid.New()
	insertUser(t, db, tutor, "Tutor", "TUTOR")
	insertUser(t, db, student, "Student", "STUDENT")

	priorStart := now.AddDate(0, 0, -7)
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO bookings (id, title, start_time, end_time, type, status, host_id, participant_id)
		VALUES ($1, 'Lesson', $2, $3, 'LESSON', 'COMPLETED', $4, $5)
	`, uuid.New(), priorStart, priorStart.Add(time.Hour), tutor, student)
	require.NoError(t, err)

	conflictStart := firstOccurrence(models.RecurringTimeSlot{Weekday: time.Monday, TimeOfDay: models.LocalTimeOfDay{Hour: 10, Minute: 0}}, now)
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO bookings (id, title, start_time, end_time, type, status, host_id, participant_id)
		VALUES ($1, 'Lesson', $2, $3, 'LESSON', 'SCHEDULED', $4, $5)
	`, uuid.New(), conflictStart, conflictStart.Add(time.Hour), tutor, uuid.New())
	require.NoError(t, err)

	cmd := &models.CreateRecurringTemplateCommand{
		Title:             "Weekly Algebra",
		HostID:            tutor,
		CurrentUser:       &models.User{ID: student, Roles: models.Roles{models.RoleStudent}},
		RecurrencePattern: models.PatternWeekly,
		TimeSlots:         []models.TimeSlotInput{{Weekday: time.Monday, TimeOfDay: "10:00"}},
		Overrides: []models.RecurrenceOverride{
			{ConflictTime: models.FormatInstant(conflictStart), Cancel: true},
		},
	}

	result, err := expander.Create(ctx, cmd)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.TemplateID.Valid)
	assert.Empty(t, result.Conflicts)

	var templateCount int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM recurring_templates WHERE id = $1`, result.TemplateID.UUID).Scan(&templateCount))
	assert.Equal(t, 1, templateCount)

	var childCount int
	require.NoError(t, db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE recurring_template_id = $1 AND start_time = $2
	`, result.TemplateID.UUID, conflictStart).Scan(&childCount))
	assert.Equal(t, 0, childCount, "the canceled occurrence must not be persisted as a child booking")

	var totalChildren int
	require.NoError(t, db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM bookings WHERE recurring_template_id = $1
	`, result.TemplateID.UUID).Scan(&totalChildren))
	assert.Greater(t, totalChildren, 0, "every non-canceled weekly occurrence within the horizon must be persisted")
}
