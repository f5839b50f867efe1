package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/auth"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/users"
)

const (
	adminID = "3f0e9c1c-6b7e-4b34-9e5b-2d9a4f1e7a10"
	otherID = "8b1d2c3e-4f5a-4b6c-8d7e-9f0a1b2c3d4e"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, filters users.Filters) (content.Page[users.User], error) {
	args := m.Called(ctx, filters)
	return args.Get(0).(content.Page[users.User]), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*users.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) CreateAndInvite(ctx context.Context, in users.CreateInput, actorID string) (*users.User, error) {
	args := m.Called(ctx, in, actorID)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) ResendInvitation(ctx context.Context, id, actorID string) error {
	return m.Called(ctx, id, actorID).Error(0)
}

func (m *MockUserService) Update(ctx context.Context, id string, in users.UpdateInput, actorID string) (*users.User, error) {
	args := m.Called(ctx, id, in, actorID)
	user, _ := args.Get(0).(*users.User)
	return user, args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id, actorID string) error {
	return m.Called(ctx, id, actorID).Error(0)
}

// withAdmin attaches admin claims the way the auth middleware would.
func withAdmin(req *http.Request) *http.Request {
	claims := &auth.Claims{
		Username:         "admin",
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: adminID},
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func testUser(id, username, role string, active bool) *users.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &users.User{ID: id, Username: username, Email: username + "@example.com", Role: role, IsActive: active, CreatedAt: now, UpdatedAt: now}
}

func TestAdminUsersHandler_ListUsers(t *testing.T) {
	svc := new(MockUserService)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f users.Filters) bool { return f.Role == "editor" })).
		Return(content.Page[users.User]{Items: []users.User{*testUser(otherID, "mehmet", "editor", true)}}, nil)

	h := NewAdminUsersHandler(svc, "test")
	req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?role=editor", nil))
	rec := httptest.NewRecorder()
	h.ListUsers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page content.Page[users.User]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "mehmet", page.Items[0].Username)
	svc.AssertExpectations(t)
}

func TestAdminUsersHandler_CreateUser(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockUserService)
		wantStatus int
	}{
		{
			name: "created",
			body: `{"username":"mehmet","email":"mehmet@example.com","role":"editor"}`,
			setup: func(m *MockUserService) {
				m.On("CreateAndInvite", mock.Anything, users.CreateInput{Username: "mehmet", Email: "mehmet@example.com", Role: "editor"}, adminID).
					Return(testUser(otherID, "mehmet", "editor", false), nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate email",
			body: `{"username":"mehmet","email":"taken@example.com"}`,
			setup: func(m *MockUserService) {
				m.On("CreateAndInvite", mock.Anything, mock.Anything, adminID).Return(nil, users.ErrEmailTaken)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "validation failure",
			body: `{"username":"x","email":"nope"}`,
			setup: func(m *MockUserService) {
				m.On("CreateAndInvite", mock.Anything, mock.Anything, adminID).
					Return(nil, content.ValidationError{Fields: map[string]string{"email": "must be a valid email"}})
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown field",
			body:       `{"username":"mehmet","password":"secret"}`,
			setup:      func(*MockUserService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			tt.setup(svc)
			h := NewAdminUsersHandler(svc, "test")

			req := withAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(tt.body)))
			rec := httptest.NewRecorder()
			h.CreateUser(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, "/api/v1/admin/users/"+otherID, rec.Header().Get("Location"))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminUsersHandler_GetUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Get", mock.Anything, otherID).Return(testUser(otherID, "mehmet", "viewer", true), nil)
	h := NewAdminUsersHandler(svc, "test")

	req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/"+strings.ToUpper(otherID), nil))
	req.SetPathValue("id", strings.ToUpper(otherID))
	rec := httptest.NewRecorder()
	h.GetUser(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAdminUsersHandler_GetUser_InvalidID(t *testing.T) {
	svc := new(MockUserService)
	h := NewAdminUsersHandler(svc, "test")

	req := withAdmin(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/nope", nil))
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.GetUser(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestAdminUsersHandler_UpdateUser(t *testing.T) {
	svc := new(MockUserService)
	role := "admin"
	svc.On("Update", mock.Anything, otherID, users.UpdateInput{Role: &role}, adminID).
		Return(testUser(otherID, "mehmet", "admin", true), nil)
	h := NewAdminUsersHandler(svc, "test")

	req := withAdmin(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/users/"+otherID, strings.NewReader(`{"role":"admin"}`)))
	req.SetPathValue("id", otherID)
	rec := httptest.NewRecorder()
	h.UpdateUser(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var user users.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "admin", user.Role)
	svc.AssertExpectations(t)
}

func TestAdminUsersHandler_UpdateSelfForbidden(t *testing.T) {
	svc := new(MockUserService)
	active := false
	svc.On("Update", mock.Anything, adminID, users.UpdateInput{IsActive: &active}, adminID).Return(nil, users.ErrSelfModification)
	h := NewAdminUsersHandler(svc, "test")

	req := withAdmin(httptest.NewRequest(http.MethodPatch, "/api/v1/admin/users/"+adminID, strings.NewReader(`{"is_active":false}`)))
	req.SetPathValue("id", adminID)
	rec := httptest.NewRecorder()
	h.UpdateUser(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestAdminUsersHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusNoContent},
		{name: "missing", err: users.ErrUserNotFound, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			svc.On("Delete", mock.Anything, otherID, adminID).Return(tt.err)
			h := NewAdminUsersHandler(svc, "test")

			req := withAdmin(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/"+otherID, nil))
			req.SetPathValue("id", otherID)
			rec := httptest.NewRecorder()
			h.DeleteUser(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminUsersHandler_ResendInvitation(t *testing.T) {
	svc := new(MockUserService)
	svc.On("ResendInvitation", mock.Anything, otherID, adminID).Return(users.ErrUserAlreadyActive).Once()
	svc.On("ResendInvitation", mock.Anything, otherID, adminID).Return(nil).Once()
	h := NewAdminUsersHandler(svc, "test")

	for _, want := range []int{http.StatusConflict, http.StatusAccepted} {
		req := withAdmin(httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/"+otherID+"/invitation", nil))
		req.SetPathValue("id", otherID)
		rec := httptest.NewRecorder()
		h.ResendInvitation(rec, req)
		assert.Equal(t, want, rec.Code)
	}
	svc.AssertExpectations(t)
}
