package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/vitrin-cms/server/internal/api/pagination"
	"github.com/vitrin-cms/server/internal/api/problem"
	"github.com/vitrin-cms/server/internal/assistant"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/domain/media"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/domain/users"
	"github.com/vitrin-cms/server/internal/search"
	"github.com/vitrin-cms/server/internal/weather"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errBadBody marks a request body that is not the expected JSON document.
var errBadBody = errors.New("invalid request body")

// decodeJSON reads exactly one JSON value into dest. Unknown fields are
// rejected so typos in field names surface as 400s instead of silent drops.
func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errBadBody)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

// pathULID reads a ULID path parameter and normalizes its case.
func pathULID(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(r.PathValue(key))
	if err := ids.ValidateULID(value); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return ids.NormalizeULID(value), nil
}

func joinSorted(values []string) string {
	sort.Strings(values)
	return strings.Join(values, ",")
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeError maps domain and transport errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var validation content.ValidationError
	if errors.As(err, &validation) {
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeValidation, "Validation failed", err, env,
			problem.WithErrors(validation.Fields), problem.WithDetail("One or more fields are invalid"))
		return
	}
	var filter content.FilterError
	if errors.As(err, &filter) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeBadRequest, "Invalid query parameter", err, env,
			problem.WithDetail(filter.Error()))
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Request body too large", err, env)
		return
	}

	status, typ, title := classify(err)
	problem.Write(w, r, status, typ, title, err, env)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, problem.TypeBadRequest, "Invalid request body"
	case errors.Is(err, ids.ErrInvalidULID), errors.Is(err, ids.ErrInvalidUUID):
		return http.StatusBadRequest, problem.TypeBadRequest, "Invalid identifier"
	case errors.Is(err, pagination.ErrInvalidCursor):
		return http.StatusBadRequest, problem.TypeBadRequest, "Invalid cursor"

	case errors.Is(err, content.ErrNotFound), errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound, problem.TypeNotFound, "Not found"

	case errors.Is(err, content.ErrSlugTaken):
		return http.StatusConflict, problem.TypeConflict, "Slug already in use"
	case errors.Is(err, menus.ErrKeyTaken):
		return http.StatusConflict, problem.TypeConflict, "Menu key already in use"
	case errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict, problem.TypeConflict, "Email already taken"
	case errors.Is(err, users.ErrUsernameTaken):
		return http.StatusConflict, problem.TypeConflict, "Username already taken"
	case errors.Is(err, users.ErrUserAlreadyActive):
		return http.StatusConflict, problem.TypeConflict, "User is already active"

	case errors.Is(err, menus.ErrCycle):
		return http.StatusUnprocessableEntity, problem.TypeValidation, "Menu items would form a cycle"
	case errors.Is(err, menus.ErrUnknownItem), errors.Is(err, menus.ErrForeignParent):
		return http.StatusUnprocessableEntity, problem.TypeValidation, "Menu item belongs to another menu"
	case errors.Is(err, media.ErrNotVideo):
		return http.StatusUnprocessableEntity, problem.TypeValidation, "Media is not a video"

	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials"
	case errors.Is(err, users.ErrInvalidToken):
		return http.StatusBadRequest, problem.TypeBadRequest, "Invalid or expired invitation token"
	case errors.Is(err, users.ErrSelfModification):
		return http.StatusForbidden, problem.TypeForbidden, "Cannot modify your own account this way"

	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "File too large"
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, problem.TypeUnsupportedType, "File type not allowed"
	case errors.Is(err, media.ErrEmptyFile):
		return http.StatusBadRequest, problem.TypeBadRequest, "File is empty"

	case errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest, problem.TypeBadRequest, "Search query is required"
	case errors.Is(err, weather.ErrInvalidQuery):
		return http.StatusBadRequest, problem.TypeBadRequest, "city or lat/lon is required"
	case errors.Is(err, weather.ErrNotFound):
		return http.StatusNotFound, problem.TypeNotFound, "Location not found"

	case errors.Is(err, media.ErrBackendUnavailable),
		errors.Is(err, weather.ErrNotConfigured),
		errors.Is(err, assistant.ErrNotConfigured),
		errors.Is(err, problem.ErrFeatureDisabled):
		return http.StatusServiceUnavailable, problem.TypeFeatureDisabled, "Feature not configured"
	case errors.Is(err, weather.ErrUpstream), errors.Is(err, assistant.ErrUpstream):
		return http.StatusBadGateway, problem.TypeUpstream, "Upstream service failed"

	default:
		return http.StatusInternalServerError, problem.TypeServer, "Server error"
	}
}
