// Package assistant proxies editor writing tasks to a hosted language model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/metrics"
)

const (
	MaxTextRunes    = 20000
	DefaultMaxWords = 300
	MaxWords        = 2000
)

var (
	ErrNotConfigured = errors.New("assistant is not configured")
	ErrUpstream      = errors.New("assistant upstream failed")
)

type Task string

const (
	TaskTranslate Task = "translate"
	TaskSummarize Task = "summarize"
	TaskSEO       Task = "seo"
	TaskDraft     Task = "draft"
	TaskFree      Task = "free"
)

type Request struct {
	Task         Task   `json:"task" validate:"required,oneof=translate summarize seo draft free"`
	Text         string `json:"text" validate:"required"`
	SourceLocale string `json:"source_locale,omitempty"`
	TargetLocale string `json:"target_locale,omitempty"`
	MaxWords     int    `json:"max_words,omitempty" validate:"gte=0,lte=2000"`
}

type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Completer sends one prompt to a model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

type Service struct {
	completer Completer
	locales   i18n.Set
	logger    zerolog.Logger
}

// NewService returns a service; a nil completer makes every call fail with
// ErrNotConfigured.
func NewService(completer Completer, locales i18n.Set, logger zerolog.Logger) *Service {
	return &Service{
		completer: completer,
		locales:   locales,
		logger:    logger.With().Str("component", "assistant").Logger(),
	}
}

func (s *Service) Enabled() bool { return s.completer != nil }

func (s *Service) Complete(ctx context.Context, req Request) (Response, error) {
	if s.completer == nil {
		return Response{}, ErrNotConfigured
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validate(&req); err != nil {
		return Response{}, err
	}

	system, prompt := buildPrompt(req)
	text, err := s.completer.Complete(ctx, system, prompt)
	if err != nil {
		metrics.AssistantRequestsTotal.WithLabelValues(string(req.Task), "error").Inc()
		s.logger.Error().Err(err).Str("task", string(req.Task)).Msg("assistant completion failed")
		return Response{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	metrics.AssistantRequestsTotal.WithLabelValues(string(req.Task), "success").Inc()
	s.logger.Info().
		Str("task", string(req.Task)).
		Int("input_runes", utf8.RuneCountInString(req.Text)).
		Msg("assistant completion")
	return Response{Text: strings.TrimSpace(text), Model: s.completer.Model()}, nil
}

func (s *Service) validate(req *Request) error {
	problems, err := content.ValidationProblems(req)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Text) > MaxTextRunes {
		problems.Add("text", fmt.Sprintf("must be at most %d characters", MaxTextRunes))
	}
	if req.SourceLocale != "" {
		req.SourceLocale = i18n.Normalize(req.SourceLocale)
	}
	if req.TargetLocale != "" {
		req.TargetLocale = i18n.Normalize(req.TargetLocale)
	}
	if req.Task == TaskTranslate {
		if req.TargetLocale == "" {
			problems.Add("target_locale", "is required")
		} else if !s.locales.IsSupported(req.TargetLocale) {
			problems.Add("target_locale", "is not a supported locale")
		}
	}
	if req.MaxWords == 0 {
		req.MaxWords = DefaultMaxWords
	}
	return problems.Err()
}

const baseInstruction = "You are a writing assistant for a company website content editor. " +
	"Answer with the requested text only, without preamble or commentary. " +
	"Keep any HTML markup present in the input intact."

func buildPrompt(req Request) (system, prompt string) {
	var b strings.Builder
	switch req.Task {
	case TaskTranslate:
		from := req.SourceLocale
		if from == "" {
			from = "the detected source language"
		}
		fmt.Fprintf(&b, "Translate the following text from %s to %s. Preserve tone and formatting.\n\n", from, req.TargetLocale)
	case TaskSummarize:
		fmt.Fprintf(&b, "Summarize the following text in at most %d words.\n\n", req.MaxWords)
	case TaskSEO:
		b.WriteString("Write an SEO meta title (at most 60 characters) and meta description (at most 155 characters) " +
			"for the following page. Answer in two lines starting with \"Title:\" and \"Description:\".\n\n")
	case TaskDraft:
		fmt.Fprintf(&b, "Write a website article draft of about %d words based on these notes.\n\n", req.MaxWords)
	case TaskFree:
	}
	if req.Task != TaskTranslate && req.TargetLocale != "" {
		fmt.Fprintf(&b, "Answer in the language with code %q.\n\n", req.TargetLocale)
	}
	b.WriteString(req.Text)
	return baseInstruction, b.String()
}
