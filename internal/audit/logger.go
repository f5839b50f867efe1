// Package audit records admin mutations as structured log events.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/auth"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one audited admin action.
type Entry struct {
	Action       string
	AdminUser    string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Status       string
	Details      map[string]string
}

type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	event := l.logger.Info()
	if entry.Status == StatusFailure {
		event = l.logger.Warn()
	}
	event = event.
		Bool("audit", true).
		Str("action", entry.Action).
		Str("admin_user", entry.AdminUser).
		Str("status", entry.Status)
	if entry.ResourceType != "" {
		event = event.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != "" {
		event = event.Str("resource_id", entry.ResourceID)
	}
	if entry.IPAddress != "" {
		event = event.Str("ip_address", entry.IPAddress)
	}
	if len(entry.Details) > 0 {
		details := zerolog.Dict()
		for k, v := range entry.Details {
			details = details.Str(k, v)
		}
		event = event.Dict("details", details)
	}
	event.Msg("audit")
}

func (l *Logger) LogSuccess(action, adminUser, resourceType, resourceID, ipAddress string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		AdminUser:    adminUser,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Status:       StatusSuccess,
		Details:      details,
	})
}

func (l *Logger) LogFailure(action, adminUser, ipAddress string, details map[string]string) {
	l.Log(Entry{
		Action:    action,
		AdminUser: adminUser,
		IPAddress: ipAddress,
		Status:    StatusFailure,
		Details:   details,
	})
}

// LogFromRequest takes the admin from the request's auth claims and the
// client address from proxy headers.
func (l *Logger) LogFromRequest(r *http.Request, action, resourceType, resourceID, status string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		AdminUser:    Actor(r.Context()),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ClientIP(r),
		Status:       status,
		Details:      details,
	})
}

// Actor names the authenticated admin in ctx, or "system".
func Actor(ctx context.Context) string {
	if claims := auth.ClaimsFrom(ctx); claims != nil {
		if claims.Username != "" {
			return claims.Username
		}
		return claims.Subject
	}
	return "system"
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
