package repository

import (
	"context"
	"fmt"
	"time"

	"tutoring-platform/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// RecurringTemplateRepository persists templates and the time slots and
// child bookings they generate (spec.md §3 RecurringTemplate, §4.7).
type RecurringTemplateRepository struct {
	db *sqlx.DB
}

func NewRecurringTemplateRepository(db *sqlx.DB) *RecurringTemplateRepository {
	return &RecurringTemplateRepository{db: db}
}

// ActiveSlotForHost is one (template, slot) pair used for the I6 overlap
// check against other ACTIVE templates of the same host.
type ActiveSlotForHost struct {
	TemplateID uuid.UUID
	Weekday    time.Weekday
	TimeOfDay  models.LocalTimeOfDay
}

// ActiveSlotsForHost lists every RecurringTimeSlot belonging to an ACTIVE
// template of hostID, for the conflict pre-condition in spec.md §4.7.
func (r *RecurringTemplateRepository) ActiveSlotsForHost(ctx context.Context, hostID uuid.UUID) ([]ActiveSlotForHost, error) {
	query := `
		SELECT s.template_id, s.weekday, s.time_of_day
		FROM recurring_time_slots s
		JOIN recurring_templates t ON t.id = s.template_id
		WHERE t.host_id = $1 AND t.status = 'ACTIVE'
	`
	rows, err := r.db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("active slots for host %s: %w", hostID, err)
	}
	defer rows.Close()

	var out []ActiveSlotForHost
	for rows.Next() {
		var s ActiveSlotForHost
		var timeStr string
		if err := rows.Scan(&s.TemplateID, &s.Weekday, &timeStr); err != nil {
			return nil, fmt.Errorf("scan active slot: %w", err)
		}
		tod, err := models.ParseTimeOfDay(timeStr)
		if err != nil {
			return nil, err
		}
		s.TimeOfDay = tod
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the template, its time slots, and every generated child
// booking inside a single transaction (spec.md §4.7 step 6).
func (r *RecurringTemplateRepository) Create(ctx context.Context, tx pgx.Tx, tmpl *models.RecurringTemplate, children []*models.Booking) error {
	now := time.Now().UTC()
	if tmpl.ID == uuid.Nil {
		tmpl.ID = uuid.New()
	}
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	tmpl.Status = models.TemplateActive

	_, err := tx.Exec(ctx, `
		INSERT INTO recurring_templates (
			id, host_id, title, description, recurrence_pattern,
			duration_minutes, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, tmpl.ID, tmpl.HostID, tmpl.Title, tmpl.Description, tmpl.RecurrencePattern,
		tmpl.DurationMinutes, tmpl.Status, tmpl.CreatedAt, tmpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recurring template: %w", err)
	}

	for _, slot := range tmpl.TimeSlots {
		_, err := tx.Exec(ctx, `
			INSERT INTO recurring_time_slots (id, template_id, weekday, time_of_day)
			VALUES ($1,$2,$3,$4)
		`, uuid.New(), tmpl.ID, int(slot.Weekday), slot.TimeOfDay.String())
		if err != nil {
			if IsUniqueViolationError(err) {
				return models.ErrOverlappingTimeSlots
			}
			return fmt.Errorf("create recurring time slot: %w", err)
		}
	}

	bookingRepo := &BookingRepository{}
	for _, child := range children {
		child.RecurringTemplateID = uuid.NullUUID{UUID: tmpl.ID, Valid: true}
		if err := bookingRepo.Create(ctx, tx, child); err != nil {
			return fmt.Errorf("create template child booking: %w", err)
		}
	}

	return nil
}
