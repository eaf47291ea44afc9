package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutoring-platform/internal/models"
	"tutoring-platform/pkg/pagination"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// BookingRepository is the transactional data-access layer over bookings
// described in spec.md §2.2. Writes take an explicit pgx.Tx so every
// mutating command runs inside the single repository transaction §5
// requires; reads that don't need row locks use the plain sqlx handle.
type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Interval is a candidate half-open [Start,End) window, the unit the
// Conflict Detector (spec.md §4.8) operates on.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Create inserts a new booking inside tx. ID/CreatedAt/UpdatedAt are
// assigned here.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	query := `
		INSERT INTO bookings (
			id, title, description, start_time, end_time, type, status,
			host_id, participant_id, service_id, recurring_template_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`
	_, err := tx.Exec(ctx, query,
		b.ID, b.Title, b.Description, b.StartTime, b.EndTime, b.Type, b.Status,
		b.HostID, b.ParticipantID, b.ServiceID, b.RecurringTemplateID,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolationError(err) || IsExclusionViolationError(err) {
			return models.ErrBookingConflict
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByIDForUpdate re-reads the booking row with a row lock inside tx, the
// pattern spec.md §4.1 requires ("the engine re-reads the booking at the
// start of the transaction to prevent lost updates").
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Booking, error) {
	query := `SELECT ` + BookingSelectFields + ` FROM bookings WHERE id = $1 FOR UPDATE`
	row := tx.QueryRow(ctx, query, id)
	return scanBooking(row)
}

// GetByID reads the booking without locking, for read paths outside a
// mutating command.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT ` + BookingSelectFields + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return &b, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.Title, &b.Description, &b.StartTime, &b.EndTime, &b.Type, &b.Status,
		&b.HostID, &b.ParticipantID, &b.ServiceID, &b.RecurringTemplateID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	return &b, nil
}

// UpdateStatus transitions a booking's status inside tx. Used by every
// command that doesn't also move the time window.
func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.BookingStatus) error {
	_, err := tx.Exec(ctx, `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update booking %s status: %w", id, err)
	}
	return nil
}

// Reschedule moves a booking to a new [start,end) window and flips its
// awaiting-confirmation status in one statement (spec.md §4.4).
func (r *BookingRepository) Reschedule(ctx context.Context, tx pgx.Tx, id uuid.UUID, start, end time.Time, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET start_time = $1, end_time = $2, status = $3, updated_at = now()
		WHERE id = $4
	`
	_, err := tx.Exec(ctx, query, start, end, status, id)
	if err != nil {
		if IsExclusionViolationError(err) {
			return models.ErrBookingConflict
		}
		return fmt.Errorf("reschedule booking %s: %w", id, err)
	}
	return nil
}

// FindBetweenPair loads, in one query, the bookings between a tutor and
// student that are either active, or in {COMPLETED, SCHEDULED}, or overlap
// the candidate window — the single query spec.md §4.2 step 7 asks for.
func (r *BookingRepository) FindBetweenPair(ctx context.Context, tx pgx.Tx, tutorID, studentID uuid.UUID, candidateStart, candidateEnd time.Time) ([]*models.Booking, error) {
	query := `
		SELECT ` + BookingSelectFields + `
		FROM bookings
		WHERE host_id = $1 AND participant_id = $2
		  AND (
			status = ANY($3)
			OR status IN ('COMPLETED', 'SCHEDULED')
			OR (start_time < $5 AND end_time > $4)
		  )
		ORDER BY start_time ASC
	`
	rows, err := tx.Query(ctx, query, tutorID, studentID, activeStatusStrings(), candidateStart, candidateEnd)
	if err != nil {
		return nil, fmt.Errorf("find bookings between pair: %w", err)
	}
	defer rows.Close()
	return scanBookingRows(rows)
}

// FindConflicts implements the Conflict Detector (spec.md §4.8): a single
// round-trip OR-of-intervals query that returns every active booking for
// hostID (or, if participantID is set, also matching on participant)
// overlapping any of candidates.
func (r *BookingRepository) FindConflicts(ctx context.Context, tx pgx.Tx, hostID uuid.UUID, participantID uuid.NullUUID, candidates []Interval) ([]*models.Booking, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var clauses []string
	args := []interface{}{activeStatusStrings(), hostID}
	argN := 3
	if participantID.Valid {
		args = append(args, participantID.UUID)
		argN++
	}
	for _, c := range candidates {
		clause := fmt.Sprintf("(start_time < $%d AND end_time > $%d)", argN, argN+1)
		clauses = append(clauses, clause)
		args = append(args, c.End, c.Start)
		argN += 2
	}

	hostPredicate := "host_id = $2"
	if participantID.Valid {
		hostPredicate = "(host_id = $2 OR participant_id = $3)"
	}

	query := `
		SELECT ` + BookingSelectFields + `
		FROM bookings
		WHERE status = ANY($1)
		  AND ` + hostPredicate + `
		  AND (` + strings.Join(clauses, " OR ") + `)
		ORDER BY start_time ASC
	`
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	defer rows.Close()
	return scanBookingRows(rows)
}

// FindActiveByHost returns every active booking for hostID overlapping
// [start,end) — used by Reschedule's single-window conflict check.
func (r *BookingRepository) FindActiveByHost(ctx context.Context, tx pgx.Tx, hostID uuid.UUID, excludeID uuid.UUID, start, end time.Time) ([]*models.Booking, error) {
	query := `
		SELECT ` + BookingSelectFields + `
		FROM bookings
		WHERE host_id = $1 AND id != $2 AND status = ANY($3)
		  AND start_time < $5 AND end_time > $4
	`
	rows, err := tx.Query(ctx, query, hostID, excludeID, activeStatusStrings(), start, end)
	if err != nil {
		return nil, fmt.Errorf("find active by host: %w", err)
	}
	defer rows.Close()
	return scanBookingRows(rows)
}

func scanBookingRows(rows pgx.Rows) ([]*models.Booking, error) {
	var out []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.Title, &b.Description, &b.StartTime, &b.EndTime, &b.Type, &b.Status,
			&b.HostID, &b.ParticipantID, &b.ServiceID, &b.RecurringTemplateID,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// HasPriorCompletedOrScheduled reports whether tutor and student already
// share a COMPLETED or SCHEDULED booking — the gate spec.md §4.2 step 10
// and §4.7's NO_PRIOR_BOOKING precondition both rely on.
func (r *BookingRepository) HasPriorCompletedOrScheduled(ctx context.Context, tx pgx.Tx, tutorID, studentID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE host_id = $1 AND participant_id = $2
			  AND status IN ('COMPLETED', 'SCHEDULED')
		)
	`
	if err := tx.QueryRow(ctx, query, tutorID, studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check prior completed/scheduled booking: %w", err)
	}
	return exists, nil
}

func activeStatusStrings() []string {
	out := make([]string, len(models.ActiveStatuses))
	for i, s := range models.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// List applies the GetMany filters/pagination/sort of spec.md §6.
func (r *BookingRepository) List(ctx context.Context, q *models.ListBookingsQuery) (*models.ListBookingsResult, error) {
	q.ApplyDefaults()

	var where []string
	var args []interface{}
	argN := 1
	add := func(clause string, val interface{}) {
		where = append(where, fmt.Sprintf(clause, argN))
		args = append(args, val)
		argN++
	}

	if q.HostID.Valid {
		add("host_id = $%d", q.HostID.UUID)
	}
	if q.ParticipantID.Valid {
		add("participant_id = $%d", q.ParticipantID.UUID)
	}
	if len(q.Status) > 0 {
		strs := make([]string, len(q.Status))
		for i, s := range q.Status {
			strs[i] = string(s)
		}
		add("status = ANY($%d)", strs)
	}
	if q.Type != nil {
		add("type = $%d", string(*q.Type))
	}
	if q.StartDate != nil {
		add("start_time >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		add("start_time <= $%d", *q.EndDate)
	}
	if q.Search != "" {
		add("title ILIKE $%d", "%"+q.Search+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	sortCol := "start_time"
	if q.SortField == models.SortByCreatedAt {
		sortCol = "created_at"
	}
	dir := "DESC"
	if q.SortDirection == models.SortAsc {
		dir = "ASC"
	}
	// CREATED_AT is always the secondary tiebreaker (spec.md §6).
	orderClause := fmt.Sprintf("ORDER BY %s %s, created_at %s", sortCol, dir, dir)

	countQuery := `SELECT count(*) FROM bookings ` + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	limit := NormalizeLimit(q.Limit)
	offset := (q.Page - 1) * limit
	dataArgs := append(append([]interface{}{}, args...), limit, offset)
	dataQuery := fmt.Sprintf(`
		SELECT %s FROM bookings %s %s LIMIT $%d OFFSET $%d
	`, BookingSelectFields, whereClause, orderClause, argN, argN+1)

	var bookings []*models.Booking
	if err := r.db.SelectContext(ctx, &bookings, dataQuery, dataArgs...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	meta := pagination.NewMeta(q.Page, limit, total)

	items := make([]*models.BookingWithDetails, len(bookings))
	for i, b := range bookings {
		items[i] = &models.BookingWithDetails{Booking: *b}
	}

	return &models.ListBookingsResult{
		Items: items,
		Metadata: models.ListBookingsMetadata{
			Total: meta.Total,
			Page:  meta.Page,
			Limit: meta.PerPage,
			Pages: meta.TotalPages,
		},
	}, nil
}
