package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-sevilla/sigma-auth"
	"github.com/sigma-sevilla/sigma-auth/config"
)

func seedUser(t *testing.T, repo auth.RepositoryManager, matricula, password string, role auth.Role) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &auth.User{
		Matricula:    matricula,
		Name:         "Luis",
		Surname1:     "Pérez",
		PasswordHash: hash,
		Role:         role,
	})
	require.NoError(t, err)
	return user
}

func TestCredentialVerifier_SuperAdmin(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))

	cfg := config.Defaults()
	cfg.Auth.SuperAdminMatricula = "admin"
	cfg.Auth.SuperAdminPassword = "bootstrap"

	verifier := auth.NewCredentialVerifier(repo.Users(), cfg, auth.WithCredentialLogger(quietLogger{}))

	identity, err := verifier.VerifyCredentials(ctx, "admin", "bootstrap")
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Matricula())
	assert.Equal(t, auth.RoleAdmin, identity.Role())
	assert.Empty(t, identity.ID())

	_, err = verifier.VerifyCredentials(ctx, "admin", "bootstrapx")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestCredentialVerifier_SuperAdminDisabled(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	verifier := auth.NewCredentialVerifier(repo.Users(), nil,
		auth.WithSuperAdmin("admin", ""),
		auth.WithCredentialLogger(quietLogger{}),
	)

	_, err := verifier.VerifyCredentials(context.Background(), "admin", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = verifier.VerifyCredentials(context.Background(), "admin", "anything")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestCredentialVerifier_StoredUsers(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))
	user := seedUser(t, repo, "12345", "s3cret", auth.RoleSupervisor)

	verifier := auth.NewCredentialVerifier(repo.Users(), nil,
		auth.WithSuperAdmin("admin", "bootstrap"),
		auth.WithCredentialLogger(quietLogger{}),
	)

	identity, err := verifier.VerifyCredentials(ctx, " 12345 ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, auth.RoleSupervisor, identity.Role())

	_, wrongPassword := verifier.VerifyCredentials(ctx, "12345", "nope")
	_, unknownUser := verifier.VerifyCredentials(ctx, "54321", "s3cret")
	assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestCredentialVerifier_ReloadIdentity(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(newTestDB(t))
	user := seedUser(t, repo, "12345", "s3cret", auth.RoleAgent)

	verifier := auth.NewCredentialVerifier(repo.Users(), nil,
		auth.WithSuperAdmin("admin", "bootstrap"),
		auth.WithCredentialLogger(quietLogger{}),
	)
	tokens := newTokens(t)

	raw, _, err := tokens.IssueRefresh(auth.NewIdentityFromUser(user))
	require.NoError(t, err)
	claims, err := tokens.Verify(raw)
	require.NoError(t, err)

	_, err = repo.Users().UpdateRole(ctx, user.ID, auth.RoleSupervisor)
	require.NoError(t, err)

	identity, err := verifier.ReloadIdentity(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSupervisor, identity.Role())

	require.NoError(t, repo.Users().Delete(ctx, user.ID))
	_, err = verifier.ReloadIdentity(ctx, claims)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	adminRaw, _, err := tokens.IssueRefresh(auth.NewSuperAdminIdentity("admin"))
	require.NoError(t, err)
	adminClaims, err := tokens.Verify(adminRaw)
	require.NoError(t, err)

	identity, err = verifier.ReloadIdentity(ctx, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, identity.Role())

	_, err = verifier.ReloadIdentity(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
