// Package content holds the primitives shared by every translatable content
// type: publication status, list parameters, result pages, slugs, and the
// validation error shape the API maps to 422 responses.
package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrSlugTaken = errors.New("slug already in use")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// ParseStatus accepts an empty value (no filter) or one of the known statuses.
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	status := Status(value)
	if !status.Valid() {
		return "", FilterError{Field: "status", Message: "must be draft or published"}
	}
	return status, nil
}

// OrDraft returns s, or draft when s is empty.
func (s Status) OrDraft() Status {
	if s == "" {
		return StatusDraft
	}
	return s
}

// ValidationError collects field problems keyed by JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Problems accumulates validation problems before they become an error.
type Problems map[string]string

func (p Problems) Add(field, message string) {
	if _, exists := p[field]; !exists {
		p[field] = message
	}
}

func (p Problems) Merge(other map[string]string) {
	for field, message := range other {
		p.Add(field, message)
	}
}

// Err returns nil when no problems were recorded.
func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	fields := make(map[string]string, len(p))
	for k, v := range p {
		fields[k] = v
	}
	return ValidationError{Fields: fields}
}

// FilterError reports an unusable query parameter.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
