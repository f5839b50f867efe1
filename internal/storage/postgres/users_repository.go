package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/users"
)

var _ users.Repository = (*UserRepository)(nil)

type UserRepository struct {
	conn
}

const userColumns = `id::text, username, email, password_hash, role, is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// mapUserWriteError turns constraint violations into domain errors.
func mapUserWriteError(err error, op string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return users.ErrUserNotFound
	case uniqueViolationOn(err, "username"):
		return users.ErrUsernameTaken
	case uniqueViolationOn(err, "email"):
		return users.ErrEmailTaken
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *UserRepository) List(ctx context.Context, filters users.Filters) (content.Page[users.User], error) {
	var cursorTime *time.Time
	var cursorID *string
	if filters.After != "" {
		cursor, err := pagination.DecodeTimeCursor(filters.After)
		if err != nil {
			return content.Page[users.User]{}, err
		}
		ts := cursor.Timestamp.UTC()
		cursorTime, cursorID = &ts, &cursor.ID
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = content.DefaultLimit
	}

	rows, err := r.queryer().Query(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE ($1 = '' OR role = $1)
   AND ($2::boolean IS NULL OR is_active = $2::boolean)
   AND ($3 = '' OR username ILIKE $3 OR email ILIKE $3)
   AND ($4::timestamptz IS NULL OR (created_at, id::text) < ($4::timestamptz, $5::text))
 ORDER BY created_at DESC, id::text DESC
 LIMIT $6
`, filters.Role, filters.Active, likePattern(filters.Query), cursorTime, cursorID, limit+1)
	if err != nil {
		return content.Page[users.User]{}, fmt.Errorf("list users: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (users.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return content.Page[users.User]{}, fmt.Errorf("scan users: %w", err)
	}
	return content.Paginate(items, limit, func(u users.User) string {
		return pagination.EncodeTimeCursor(u.CreatedAt, u.ID)
	}), nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, users.ErrUserNotFound
	}
	u, err := scanUser(r.queryer().QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*users.User, error) {
	u, err := scanUser(r.queryer().QueryRow(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE lower(username) = lower($1) OR lower(email) = lower($1)
 LIMIT 1
`, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user users.User) (*users.User, error) {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO users (id, username, email, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at
`, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapUserWriteError(err, "insert user")
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user users.User) (*users.User, error) {
	if _, err := uuid.Parse(user.ID); err != nil {
		return nil, users.ErrUserNotFound
	}
	updated, err := scanUser(r.queryer().QueryRow(ctx, `
UPDATE users
   SET username = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = now()
 WHERE id = $1
RETURNING `+userColumns,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive))
	if err != nil {
		return nil, mapUserWriteError(err, "update user")
	}
	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return users.ErrUserNotFound
	}
	tag, err := r.queryer().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.queryer().Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC()); err != nil {
		return fmt.Errorf("touch user login: %w", err)
	}
	return nil
}

func (r *UserRepository) CreateInvitation(ctx context.Context, inv users.Invitation) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO user_invitations (id, user_id, token_hash, email, expires_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
`, inv.ID, inv.UserID, inv.TokenHash, inv.Email, inv.ExpiresAt.UTC(), inv.CreatedBy)
	if err != nil {
		if isForeignKeyViolation(err) {
			return users.ErrUserNotFound
		}
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *UserRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*users.Invitation, error) {
	var inv users.Invitation
	err := r.queryer().QueryRow(ctx, `
SELECT id::text, user_id::text, token_hash, email, expires_at, accepted_at, created_by::text
  FROM user_invitations
 WHERE token_hash = $1
`, tokenHash).Scan(&inv.ID, &inv.UserID, &inv.TokenHash, &inv.Email, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrInvalidToken
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

func (r *UserRepository) AcceptInvitation(ctx context.Context, inv users.Invitation, passwordHash string, at time.Time) error {
	return r.inTx(ctx, func(q queryer) error {
		tag, err := q.Exec(ctx, `
UPDATE user_invitations SET accepted_at = $2
 WHERE id = $1 AND accepted_at IS NULL
`, inv.ID, at.UTC())
		if err != nil {
			return fmt.Errorf("accept invitation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return users.ErrInvalidToken
		}
		tag, err = q.Exec(ctx, `
UPDATE users SET password_hash = $2, is_active = true, updated_at = now()
 WHERE id = $1
`, inv.UserID, passwordHash)
		if err != nil {
			return fmt.Errorf("activate invited user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return users.ErrUserNotFound
		}
		return nil
	})
}
