package events

import (
	"errors"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var ErrUnparseableDate = errors.New("unrecognized date")

// ParseWhen accepts RFC 3339 timestamps and human-written dates. Values
// without an explicit offset are read in loc. Relative phrases ("tomorrow
// 10am") are resolved against now.
func ParseWhen(value string, loc *time.Location, now time.Time, languages []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparseableDate
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t.UTC(), nil
	}

	cfg := &dateparser.Configuration{
		Languages:       languages,
		DefaultTimezone: loc,
		CurrentTime:     now.In(loc),
	}
	parsed, err := dateparser.Parse(cfg, value)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, ErrUnparseableDate
	}
	return parsed.Time.UTC(), nil
}
