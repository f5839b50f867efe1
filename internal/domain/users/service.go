package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/auth"
	"github.com/vitrin-cms/server/internal/domain/content"
)

// Service handles admin user management operations
type Service struct {
	repo        Repository
	mailer      Mailer
	tokens      TokenIssuer
	auditLogger *audit.Logger
	baseURL     string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(repo Repository, mailer Mailer, tokens TokenIssuer, auditLogger *audit.Logger, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		mailer:      mailer,
		tokens:      tokens,
		auditLogger: auditLogger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger.With().Str("component", "users").Logger(),
		now:         time.Now,
	}
}

func ParseFilters(values url.Values) (Filters, error) {
	params, err := content.ParseListParams(values)
	if err != nil {
		return Filters{}, err
	}
	params.Status = ""
	filters := Filters{ListParams: params}
	if role := strings.TrimSpace(values.Get("role")); role != "" {
		if !auth.ValidRole(role) {
			return Filters{}, content.FilterError{Field: "role", Message: "must be admin, editor or viewer"}
		}
		filters.Role = role
	}
	if raw := values.Get("active"); raw != "" {
		active, err := content.ParseBool("active", raw)
		if err != nil {
			return Filters{}, err
		}
		filters.Active = &active
	}
	return filters, nil
}

// Login checks credentials and returns the user with a signed session token.
// Unknown users, wrong passwords and inactive accounts all yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (*User, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			auth.CheckDummyPassword(password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}

	now := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLoginAt = &now
	}
	return user, token, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters Filters) (content.Page[User], error) {
	return s.repo.List(ctx, filters)
}

// CreateAndInvite creates an inactive user and emails them an invitation.
// Delivery failures are logged; the account and invitation stay in place
// so the invitation can be resent.
func (s *Service) CreateAndInvite(ctx context.Context, in CreateInput, actorID string) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	if err := content.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = DefaultRole
	}

	user, err := s.repo.Create(ctx, User{
		ID:       uuid.NewString(),
		Username: in.Username,
		Email:    in.Email,
		Role:     in.Role,
		IsActive: false,
	})
	if err != nil {
		return nil, err
	}

	invitedBy := s.actorName(ctx, actorID)
	if err := s.invite(ctx, user, actorID, invitedBy); err != nil {
		return nil, err
	}

	s.auditLogger.LogSuccess("user.created", invitedBy, "user", user.ID, "", map[string]string{
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
	return user, nil
}

// ResendInvitation issues a fresh token for a user who has not activated
// their account yet. Earlier tokens stay valid until they expire.
func (s *Service) ResendInvitation(ctx context.Context, id, actorID string) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsActive {
		return ErrUserAlreadyActive
	}
	invitedBy := s.actorName(ctx, actorID)
	if err := s.invite(ctx, user, actorID, invitedBy); err != nil {
		return err
	}
	s.auditLogger.LogSuccess("user.invitation_resent", invitedBy, "user", user.ID, "", map[string]string{
		"email": user.Email,
	})
	return nil
}

func (s *Service) invite(ctx context.Context, user *User, actorID, invitedBy string) error {
	token, err := generateSecureToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	expiresAt := s.now().Add(DefaultInvitationExpiry)

	inv := Invitation{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashToken(token),
		Email:     user.Email,
		ExpiresAt: expiresAt,
	}
	if actorID != "" {
		inv.CreatedBy = &actorID
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	if s.mailer == nil {
		return nil
	}
	link := fmt.Sprintf("%s/accept-invitation?token=%s", s.baseURL, url.QueryEscape(token))
	if err := s.mailer.SendInvitation(ctx, user.Email, link, invitedBy, expiresAt); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to send invitation email")
	}
	return nil
}

// AcceptInvitation sets the password of an invited user and activates them.
func (s *Service) AcceptInvitation(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	inv, err := s.repo.GetInvitationByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidToken) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to get invitation: %w", err)
	}
	now := s.now()
	if inv.AcceptedAt != nil || !now.Before(inv.ExpiresAt) {
		return ErrInvalidToken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return content.ValidationError{Fields: map[string]string{"password": err.Error()}}
		}
		return err
	}
	if err := s.repo.AcceptInvitation(ctx, *inv, hash, now.UTC()); err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.auditLogger.LogSuccess("user.invitation_accepted", inv.Email, "user", inv.UserID, "", nil)
	return nil
}

// Update changes role or active state. Admins cannot demote or deactivate
// themselves.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, actorID string) (*User, error) {
	if err := content.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == actorID {
		if in.Role != nil && *in.Role != user.Role {
			return nil, ErrSelfModification
		}
		if in.IsActive != nil && !*in.IsActive {
			return nil, ErrSelfModification
		}
	}

	details := map[string]string{}
	if in.Role != nil && *in.Role != user.Role {
		details["role"] = user.Role + " -> " + *in.Role
		user.Role = *in.Role
	}
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		if *in.IsActive && user.PasswordHash == "" {
			return nil, content.ValidationError{Fields: map[string]string{"is_active": "user has not accepted the invitation yet"}}
		}
		details["is_active"] = fmt.Sprintf("%t", *in.IsActive)
		user.IsActive = *in.IsActive
	}
	if len(details) == 0 {
		return user, nil
	}

	updated, err := s.repo.Update(ctx, *user)
	if err != nil {
		return nil, err
	}
	s.auditLogger.LogSuccess("user.updated", s.actorName(ctx, actorID), "user", id, "", details)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return ErrSelfModification
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditLogger.LogSuccess("user.deleted", s.actorName(ctx, actorID), "user", id, "", map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})
	return nil
}

// CreateActive creates a ready-to-use account with a password, for the
// admin CLI and bootstrap.
func (s *Service) CreateActive(ctx context.Context, in CreateInput, password string) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := content.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = DefaultRole
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.LogSuccess("user.created", "system", "user", user.ID, "", map[string]string{
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

// EnsureAdmin creates the bootstrap admin unless a user with that username
// or email already exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return false, nil
	}
	for _, login := range []string{username, email} {
		if strings.TrimSpace(login) == "" {
			continue
		}
		if _, err := s.repo.GetByLogin(ctx, login); err == nil {
			return false, nil
		} else if !errors.Is(err, ErrUserNotFound) {
			return false, err
		}
	}
	if _, err := s.CreateActive(ctx, CreateInput{Username: username, Email: email, Role: string(auth.RoleAdmin)}, password); err != nil {
		return false, err
	}
	s.logger.Info().Str("username", username).Msg("bootstrap admin created")
	return true, nil
}

func (s *Service) actorName(ctx context.Context, actorID string) string {
	if name := audit.Actor(ctx); name != "system" {
		return name
	}
	if actorID == "" {
		return "Administrator"
	}
	if actor, err := s.repo.Get(ctx, actorID); err == nil {
		return actor.Username
	}
	return "Administrator"
}

// generateSecureToken returns 32 random bytes as URL-safe base64.
func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken is what gets stored; the plaintext token only travels by email.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
