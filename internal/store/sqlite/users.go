package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, username, email, password_hash, must_reset_password, avatar_url`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(sc scanner) (*domain.User, error) {
	var u domain.User

	var (
		createdAt    string
		updatedAt    string
		passwordHash sql.NullString
		mustReset    int
		avatarURL    sql.NullString
	)

	err := sc.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Username,
		&u.Email,
		&passwordHash,
		&mustReset,
		&avatarURL,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = passwordHash.String
	u.MustResetPassword = mustReset != 0
	u.AvatarURL = avatarURL.String

	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the ID, username or email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := id.Ensure(&user.ID, id.PrefixUser); err != nil {
		return err
	}
	user.InitTimestamps(time.Now())
	user.Email = strings.TrimSpace(user.Email)
	if err := s.validate(user); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Username,
		user.Email,
		nullString(user.PasswordHash),
		boolToInt(user.MustResetPassword),
		nullString(user.AvatarURL),
	)
	return mapConstraintErr(err)
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return queryOne(ctx, s.db, scanUser,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return queryAll(ctx, s.db, scanUser,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
}
