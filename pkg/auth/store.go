package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUserNotFound = errors.New("user not found")
)

// Schema creates the users and api_tokens tables.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	role TEXT NOT NULL,
	territory TEXT,
	state TEXT,
	zone TEXT,
	reports_to TEXT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_reports_to ON users(reports_to);

CREATE TABLE IF NOT EXISTS api_tokens (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	token_hash TEXT NOT NULL UNIQUE,
	token_prefix TEXT NOT NULL,
	name TEXT,
	expires_at TIMESTAMP,
	revoked_at TIMESTAMP,
	last_used_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_tokens_user ON api_tokens(user_id);
`

// Store persists users and their API tokens.
type Store struct {
	db        *sql.DB
	generator *TokenGenerator
	now       func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		generator: NewTokenGenerator(),
		now:       time.Now,
	}
}

// EnsureSchema creates tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating auth schema: %w", err)
	}
	return nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("user must have an id")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, territory, state, zone, reports_to, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Name, u.Email, string(u.Role), u.Territory, u.State, u.Zone, u.ReportsTo, u.Active, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, err)
	}
	return nil
}

// GetUser loads one account by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, territory, state, zone, reports_to, active, created_at
		FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// DirectReports returns the ids of active users reporting to the given
// manager. Only one level: reports of reports are not followed.
func (s *Store) DirectReports(ctx context.Context, managerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM users
		WHERE reports_to = $1 AND active ORDER BY id`, managerID)
	if err != nil {
		return nil, fmt.Errorf("listing reports of %s: %w", managerID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning report id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateToken issues a token for a user. The plaintext token is returned
// exactly once.
func (s *Store) CreateToken(ctx context.Context, userID, name string, expiresAt *time.Time) (*APIToken, string, error) {
	token, hash, prefix, err := s.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generating token: %w", err)
	}

	created := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, hash, prefix, name, expiresAt, created)
	if err != nil {
		return nil, "", fmt.Errorf("storing token for %s: %w", userID, err)
	}
	id, _ := res.LastInsertId()

	return &APIToken{
		ID:          id,
		UserID:      userID,
		TokenHash:   hash,
		TokenPrefix: prefix,
		Name:        name,
		ExpiresAt:   expiresAt,
		CreatedAt:   created,
	}, token, nil
}

// ValidateToken checks a presented token and returns its user. Revoked and
// expired tokens fail, as do tokens for deactivated accounts. A successful
// validation stamps last_used_at.
func (s *Store) ValidateToken(ctx context.Context, token string) (*User, error) {
	if err := s.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}
	hash := s.generator.HashToken(token)

	row := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.expires_at, t.revoked_at,
			u.id, u.name, u.email, u.role, u.territory, u.state, u.zone, u.active, u.created_at
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1`, hash)

	var tokenID int64
	var expiresAt, revokedAt *time.Time
	var u User
	var email, territory, state, zone sql.NullString
	var role string
	err := row.Scan(&tokenID, &expiresAt, &revokedAt,
		&u.ID, &u.Name, &email, &role, &territory, &state, &zone, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	now := s.now().UTC()
	if revokedAt != nil {
		return nil, ErrInvalidToken
	}
	if expiresAt != nil && now.After(*expiresAt) {
		return nil, ErrInvalidToken
	}
	if !u.Active {
		return nil, ErrInvalidToken
	}

	u.Email = email.String
	u.Role = hierarchy.Role(role)
	u.Territory = territory.String
	u.State = state.String
	u.Zone = zone.String

	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used_at = $1 WHERE id = $2`, now, tokenID); err != nil {
		return nil, fmt.Errorf("stamping token use: %w", err)
	}
	return &u, nil
}

// RevokeToken marks a token unusable.
func (s *Store) RevokeToken(ctx context.Context, tokenID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		s.now().UTC(), tokenID)
	if err != nil {
		return fmt.Errorf("revoking token %d: %w", tokenID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvalidToken
	}
	return nil
}

// ListUserTokens returns a user's tokens, newest first, revoked included.
func (s *Store) ListUserTokens(ctx context.Context, userID string) ([]APIToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, token_prefix, name, expires_at, revoked_at, last_used_at, created_at
		FROM api_tokens WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tokens for %s: %w", userID, err)
	}
	defer rows.Close()

	var tokens []APIToken
	for rows.Next() {
		var t APIToken
		var name sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenPrefix, &name,
			&t.ExpiresAt, &t.RevokedAt, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}
		t.Name = name.String
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var email, territory, state, zone, reportsTo sql.NullString
	var role string
	err := row.Scan(&u.ID, &u.Name, &email, &role,
		&territory, &state, &zone, &reportsTo, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Role = hierarchy.Role(role)
	u.Territory = territory.String
	u.State = state.String
	u.Zone = zone.String
	u.ReportsTo = reportsTo.String
	return &u, nil
}
