package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// User is an account row. TokenVersion invalidates outstanding JWTs:
// a token minted for version N stops verifying once the row moves on.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, password_hash, token_version, created_at`

// getUser runs a single-row lookup. A missing row is (nil, nil), not an
// error; callers decide whether absence matters.
func (r *Repo) getUser(ctx context.Context, clause string, arg any) (*User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+clause, arg)

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", clause, err)
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, `id = ?`, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `email = ?`, normalizeEmail(email))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, `username = ?`, strings.TrimSpace(username))
}

// CreateUser inserts a new account. Emails are stored normalized so the
// unique constraint catches case-variant duplicates.
func (r *Repo) CreateUser(ctx context.Context, u User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, u.ID, strings.TrimSpace(u.Username), normalizeEmail(u.Email), u.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx,
		`SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

// BumpTokenVersion revokes every token issued for the user so far.
func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "bump token version", `
		UPDATE users SET token_version = token_version + 1 WHERE id = ?
	`, id)
}

// UpdatePasswordAndBumpTokenVersion swaps the credential and revokes
// outstanding tokens in the same statement, so no token signed against
// the old password survives the change.
func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
}

// execOne runs a write that must touch exactly one row.
func (r *Repo) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: user not found", op)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
