package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the roles a User may hold. A user can hold several at
// once (an admin who also tutors), so User.Roles is a set, not a single
// value.
type Role string

const (
	RoleTutor     Role = "TUTOR"
	RoleStudent   Role = "STUDENT"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// Roles is a small set of Role values with convenience membership checks.
type Roles []Role

// Has reports whether the set contains r.
func (rs Roles) Has(r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// User is the minimal identity the booking engine needs: who is acting,
// and under which roles. Credentials, profile data, and catalog membership
// are out of scope and owned by external collaborators.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Roles     Roles     `db:"-" json:"roles"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParticipantView is the denormalized {id, name, image} shape spec.md §6
// requires embedded in GetOne responses.
type ParticipantView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image string    `json:"image,omitempty"`
}
