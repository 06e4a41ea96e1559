package auth

import (
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
	"github.com/agroline/fieldops/pkg/visibility"
)

// User is a field-sales app account with its role and geographic assignment.
type User struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email,omitempty"`
	Role      hierarchy.Role `json:"role"`
	Territory string         `json:"territory,omitempty"`
	State     string         `json:"state,omitempty"`
	Zone      string         `json:"zone,omitempty"`
	// ReportsTo is the user id of this user's direct manager, empty at the
	// top of the hierarchy. A weak reference: lookup only, never cascaded.
	ReportsTo string    `json:"reports_to,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Context projects the user onto the visibility filter's viewer shape.
func (u *User) Context() visibility.UserContext {
	return visibility.UserContext{
		ID:        u.ID,
		Role:      u.Role,
		Territory: u.Territory,
		State:     u.State,
		Zone:      u.Zone,
	}
}

// APIToken is the stored record for an issued token. The plaintext token is
// returned once at creation and never persisted.
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
