package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAdminToken_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	secret := []byte("test-admin-secret")
	token, err := IssueAdminToken(secret, 3, "manager", time.Hour)
	require.NoError(t, err)

	claims, err := AdminClaimsFromToken(token, secret)
	require.NoError(t, err)

	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "manager", claims.Username)
	assert.Equal(t, "3", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestAdminClaimsFromToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("test-admin-secret")

	expired, err := IssueAdminToken(secret, 1, "a", -time.Minute)
	require.NoError(t, err)
	_, err = AdminClaimsFromToken(expired, secret)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	valid, err := IssueAdminToken(secret, 1, "a", time.Minute)
	require.NoError(t, err)
	_, err = AdminClaimsFromToken(valid, []byte("other"))
	require.Error(t, err)

	_, err = AdminClaimsFromToken("not.a.jwt", secret)
	require.Error(t, err)
}
