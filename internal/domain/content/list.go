package content

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vitrin-cms/server/internal/domain/ids"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListParams are the query options every admin list endpoint accepts.
type ListParams struct {
	Query  string
	Status Status
	Limit  int
	After  string
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ParseListParams reads q, status, limit and after from a query string.
func ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Limit: DefaultLimit}
	params.Query = strings.TrimSpace(values.Get("q"))

	status, err := ParseStatus(values.Get("status"))
	if err != nil {
		return params, err
	}
	params.Status = status

	limit, err := ParseLimit(values.Get("limit"))
	if err != nil {
		return params, err
	}
	params.Limit = limit
	params.After = strings.TrimSpace(values.Get("after"))
	return params, nil
}

// ParseLimit parses a page size in [1, MaxLimit]; empty means DefaultLimit.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, FilterError{Field: "limit", Message: "must be a number"}
	}
	if limit < 1 || limit > MaxLimit {
		return 0, FilterError{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(MaxLimit)}
	}
	return limit, nil
}

// ParseBool reads an optional boolean filter.
func ParseBool(field, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, FilterError{Field: field, Message: "must be true or false"}
	}
	return value, nil
}

// Paginate trims a limit+1 result set to limit items and builds the next
// cursor from the last kept item.
func Paginate[T any](items []T, limit int, cursor func(T) string) Page[T] {
	page := Page[T]{Items: items}
	if page.Items == nil {
		page.Items = []T{}
	}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = cursor(page.Items[limit-1])
	}
	return page
}

// MaxReorder bounds the number of ids accepted by a reorder request.
const MaxReorder = 1000

// CheckReorder validates a reorder request: non-empty, bounded, valid ULIDs,
// no duplicates. It returns the ids in canonical upper case.
func CheckReorder(order []string) ([]string, error) {
	problems := Problems{}
	switch {
	case len(order) == 0:
		problems.Add("ids", "is required")
	case len(order) > MaxReorder:
		problems.Add("ids", "too many ids")
	}
	normalized := make([]string, len(order))
	seen := make(map[string]bool, len(order))
	for i, raw := range order {
		id := ids.NormalizeULID(raw)
		normalized[i] = id
		if !ids.IsULID(id) {
			problems.Add(fmt.Sprintf("ids[%d]", i), "must be a valid ULID")
			continue
		}
		if seen[id] {
			problems.Add(fmt.Sprintf("ids[%d]", i), "duplicate id")
		}
		seen[id] = true
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}
	return normalized, nil
}
