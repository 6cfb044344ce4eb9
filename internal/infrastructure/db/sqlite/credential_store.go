package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/konekta/identity/internal/core/domain"
)

// CredentialStore persists user records and the active session pointer.
// Writes go straight to the database, so a crash after a successful call
// never loses them.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

const userColumns = `id, email, first_name, last_name, secret_hash,
	username, full_name, bio, avatar_ref, interests,
	is_new_user, is_password_set, onboarding_complete, profile_setup_complete,
	pending_sync, created_at, updated_at`

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		domain.NormalizeEmail(email))
	return scanUser(row)
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username IS NOT NULL AND lower(username) = lower(?)`,
		username)
	return scanUser(row)
}

func (s *CredentialStore) Insert(ctx context.Context, user *domain.User) error {
	interests, err := marshalInterests(user.Profile.Interests)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, domain.NormalizeEmail(user.Email), user.FirstName, user.LastName, user.SecretHash,
		nullableUsername(user.Profile.Username), user.Profile.FullName, user.Profile.Bio, user.Profile.AvatarRef, interests,
		user.Flags.IsNewUser, user.Flags.IsPasswordSet, user.Flags.OnboardingComplete, user.Flags.ProfileSetupComplete,
		user.PendingSync, user.CreatedAt.Unix(), user.UpdatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *CredentialStore) Replace(ctx context.Context, user *domain.User) error {
	interests, err := marshalInterests(user.Profile.Interests)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			email = ?, first_name = ?, last_name = ?, secret_hash = ?,
			username = ?, full_name = ?, bio = ?, avatar_ref = ?, interests = ?,
			is_new_user = ?, is_password_set = ?, onboarding_complete = ?, profile_setup_complete = ?,
			pending_sync = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		domain.NormalizeEmail(user.Email), user.FirstName, user.LastName, user.SecretHash,
		nullableUsername(user.Profile.Username), user.Profile.FullName, user.Profile.Bio, user.Profile.AvatarRef, interests,
		user.Flags.IsNewUser, user.Flags.IsPasswordSet, user.Flags.OnboardingComplete, user.Flags.ProfileSetupComplete,
		user.PendingSync, user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("replace user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace user: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *CredentialStore) ListPendingSync(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE pending_sync = 1 ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var pending []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *CredentialStore) CurrentSession(ctx context.Context) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = (SELECT user_id FROM active_session WHERE k = 1)`)
	u, err := scanUser(row)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Either no pointer is set or the backing record is gone; a dangling
		// pointer is cleaned up so the session stays destroyed.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM active_session WHERE k = 1`)
		return nil, domain.ErrSessionNotFound
	}
	return u, err
}

func (s *CredentialStore) SetSession(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_session (k, user_id) VALUES (1, ?)
		ON CONFLICT(k) DO UPDATE SET user_id = excluded.user_id`,
		user.ID)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *CredentialStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_session WHERE k = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		username  sql.NullString
		interests string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.SecretHash,
		&username, &u.Profile.FullName, &u.Profile.Bio, &u.Profile.AvatarRef, &interests,
		&u.Flags.IsNewUser, &u.Flags.IsPasswordSet, &u.Flags.OnboardingComplete, &u.Flags.ProfileSetupComplete,
		&u.PendingSync, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Profile.Username = username.String
	if interests != "" {
		if err := json.Unmarshal([]byte(interests), &u.Profile.Interests); err != nil {
			return nil, fmt.Errorf("decode interests: %w", err)
		}
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}

func marshalInterests(interests []string) (string, error) {
	if interests == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(interests)
	if err != nil {
		return "", fmt.Errorf("encode interests: %w", err)
	}
	return string(raw), nil
}

// nullableUsername maps the empty username to NULL so the unique index only
// applies once a username has actually been claimed.
func nullableUsername(username string) any {
	if username == "" {
		return nil
	}
	return username
}

// isUniqueViolation matches SQLite's constraint error without depending on
// driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
