package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vitrin-cms/server/internal/domain/users"
)

func TestUserRepository_LoginAndInvitation(t *testing.T) {
	repo := setupPostgres(t).Users()
	ctx := context.Background()

	user, err := repo.Create(ctx, users.User{
		ID: uuid.NewString(), Username: "Editor", Email: "editor@example.com", Role: "editor",
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, users.User{ID: uuid.NewString(), Username: "editor", Email: "x@example.com", Role: "viewer"})
	require.ErrorIs(t, err, users.ErrUsernameTaken)
	_, err = repo.Create(ctx, users.User{ID: uuid.NewString(), Username: "other", Email: "EDITOR@example.com", Role: "viewer"})
	require.ErrorIs(t, err, users.ErrEmailTaken)

	byEmail, err := repo.GetByLogin(ctx, "Editor@Example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	_, err = repo.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, users.ErrUserNotFound)

	inv := users.Invitation{
		ID: uuid.NewString(), UserID: user.ID, TokenHash: "hash", Email: user.Email,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateInvitation(ctx, inv))

	stored, err := repo.GetInvitationByTokenHash(ctx, "hash")
	require.NoError(t, err)
	require.Nil(t, stored.AcceptedAt)
	require.Nil(t, stored.CreatedBy)

	require.NoError(t, repo.AcceptInvitation(ctx, *stored, "bcrypt-hash", time.Now()))
	require.ErrorIs(t, repo.AcceptInvitation(ctx, *stored, "again", time.Now()), users.ErrInvalidToken)

	active, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, active.IsActive)
	require.Equal(t, "bcrypt-hash", active.PasswordHash)

	_, err = repo.GetInvitationByTokenHash(ctx, "missing")
	require.ErrorIs(t, err, users.ErrInvalidToken)

	require.NoError(t, repo.TouchLogin(ctx, user.ID, time.Now()))
	inactive := false
	page, err := repo.List(ctx, users.Filters{Active: &inactive})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	require.NoError(t, repo.Delete(ctx, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, user.ID), users.ErrUserNotFound)
}
