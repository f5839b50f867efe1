// Package users manages admin panel accounts, sign-in and invitations.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/vitrin-cms/server/internal/domain/content"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired invitation token")
	ErrUserAlreadyActive  = errors.New("user is already active")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrSelfModification   = errors.New("you cannot delete, deactivate or demote your own account")
)

const (
	// DefaultInvitationExpiry is how long an invitation link stays valid.
	DefaultInvitationExpiry = 7 * 24 * time.Hour
	DefaultRole             = "viewer"
)

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Invitation struct {
	ID         string
	UserID     string
	TokenHash  string
	Email      string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedBy  *string
}

type CreateInput struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
}

type UpdateInput struct {
	Role     *string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
	IsActive *bool   `json:"is_active"`
}

type Filters struct {
	content.ListParams
	Role   string
	Active *bool
}

type Repository interface {
	List(ctx context.Context, filters Filters) (content.Page[User], error)
	Get(ctx context.Context, id string) (*User, error)
	// GetByLogin finds a user by username or email, case-insensitively.
	GetByLogin(ctx context.Context, login string) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
	Update(ctx context.Context, user User) (*User, error)
	Delete(ctx context.Context, id string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error

	CreateInvitation(ctx context.Context, inv Invitation) error
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error)
	// AcceptInvitation sets the password, activates the user and marks the
	// invitation accepted in one transaction.
	AcceptInvitation(ctx context.Context, inv Invitation, passwordHash string, at time.Time) error
}

// Mailer delivers invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, to, inviteLink, invitedBy string, expiresAt time.Time) error
}

// TokenIssuer signs session tokens for signed-in users.
type TokenIssuer interface {
	Generate(subject, username, role string) (string, error)
}
