package auth

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the actor behind a request. A nil *Principal is the anonymous
// principal; every ability check accepts it.
type Principal struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email,omitempty"`
	FullName string    `json:"full_name,omitempty"`
}

// IsAnonymous reports whether p is the anonymous principal.
func (p *Principal) IsAnonymous() bool {
	return p == nil
}

// Is reports whether p is the user with the given id.
func (p *Principal) Is(userID uuid.UUID) bool {
	return p != nil && p.ID == userID
}

// User is the subset of the users table the authorization core reads.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	// LegacyRole is the pre-RBAC single role column. It is read only by the
	// one-time legacy role migration.
	LegacyRole string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Principal converts the user into a request principal.
func (u *User) Principal() *Principal {
	if u == nil {
		return nil
	}
	return &Principal{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
