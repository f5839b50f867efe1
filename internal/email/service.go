package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service sends transactional email through Resend. When email is disabled
// messages are logged instead of sent.
type Service struct {
	config       config.EmailConfig
	siteName     string
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// InvitationData holds data for rendering the invitation email template
type InvitationData struct {
	SiteName    string
	InvitedBy   string
	InviteLink  string
	ExpiresAt   string
	CurrentYear int
}

func NewService(cfg config.EmailConfig, siteName string, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if strings.TrimSpace(cfg.ResendAPIKey) == "" {
			return nil, fmt.Errorf("RESEND_API_KEY is required when email is enabled")
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		siteName:  siteName,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// SendInvitation emails a new admin user the link that activates their account.
func (s *Service) SendInvitation(ctx context.Context, to, inviteLink, invitedBy string, expiresAt time.Time) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if err := validateInviteURL(inviteLink); err != nil {
		return fmt.Errorf("invalid invite link: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("invited_by", invitedBy).
			Str("link", inviteLink).
			Msg("email service disabled, skipping invitation email")
		return nil
	}

	htmlBody, err := s.renderTemplate("invitation.html", InvitationData{
		SiteName:    s.siteName,
		InvitedBy:   invitedBy,
		InviteLink:  inviteLink,
		ExpiresAt:   expiresAt.UTC().Format("2 January 2006 15:04 MST"),
		CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return fmt.Errorf("failed to render invitation template: %w", err)
	}

	subject := fmt.Sprintf("Your %s admin account", s.siteName)
	if err := s.sendViaResend(ctx, to, subject, htmlBody); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	return nil
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// validateInviteURL only accepts absolute http(s) links.
func validateInviteURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func (s *Service) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
