package repository

import (
	"context"
	"fmt"
	"strings"

	"tutoring-platform/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository is the read-only seam the booking engine needs onto the
// user/credential system owned by an external collaborator (spec.md §1).
// Only identity and roles are modeled here.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetParticipantView(ctx context.Context, id uuid.UUID) (*models.ParticipantView, error)
}

// UserRepo reads from the users table maintained by the out-of-scope user
// service; roles are persisted as a comma-separated column so the engine
// never needs a join table for a concern it doesn't own.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, name, roles, created_at, updated_at FROM users WHERE id = $1`

	var row struct {
		ID        uuid.UUID `db:"id"`
		Name      string    `db:"name"`
		Roles     string    `db:"roles"`
		CreatedAt interface{} `db:"created_at"`
		UpdatedAt interface{} `db:"updated_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	user := &models.User{ID: row.ID, Name: row.Name}
	for _, part := range strings.Split(row.Roles, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			user.Roles = append(user.Roles, models.Role(part))
		}
	}
	return user, nil
}

func (r *UserRepo) GetParticipantView(ctx context.Context, id uuid.UUID) (*models.ParticipantView, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ParticipantView{ID: user.ID, Name: user.Name}, nil
}
