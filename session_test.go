package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-sevilla/sigma-auth"
)

func TestSessionResolver(t *testing.T) {
	tokens := newTokens(t)
	resolver := auth.NewSessionResolver(tokens)
	identity := testIdentity{matricula: "12345", role: auth.RoleAgent}

	t.Run("missing cookie", func(t *testing.T) {
		_, err := resolver.ResolveCaller("  ")
		assert.ErrorIs(t, err, auth.ErrMissingSession)
	})

	t.Run("access token", func(t *testing.T) {
		raw, _, err := tokens.IssueAccess(identity)
		require.NoError(t, err)

		claims, err := resolver.ResolveCaller(raw)
		require.NoError(t, err)
		assert.Equal(t, "12345", claims.Matricula())
		assert.Equal(t, auth.RoleAgent, claims.Role())
	})

	t.Run("refresh token is refused", func(t *testing.T) {
		raw, _, err := tokens.IssueRefresh(identity)
		require.NoError(t, err)

		_, err = resolver.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := resolver.ResolveCaller("abc.def.ghi")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
