package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/models"
	"github.com/mpetrashov/user-service/internal/tokens"
)

type stubRevocations struct {
	revoked map[uuid.UUID]bool
}

func (s *stubRevocations) IsRevoked(_ context.Context, userID uuid.UUID) (bool, error) {
	return s.revoked[userID], nil
}

func newTestGuard(t *testing.T) (*Guard, *tokens.Codec, *stubRevocations) {
	t.Helper()
	codec, err := tokens.NewCodec([]byte("test-secret"), "HS256", time.Hour, 24*time.Hour)
	require.NoError(t, err)
	revocations := &stubRevocations{revoked: map[uuid.UUID]bool{}}
	return NewGuard(codec, revocations), codec, revocations
}

func runGuard(t *testing.T, g *Guard, header, query string, permitted ...models.Role) (echo.Context, error) {
	t.Helper()

	target := "/auth/users/current"
	if query != "" {
		target += "?authorization=" + query
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("authorization", header)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	return c, g.RequireRoles(permitted...)(next)(c)
}

func requireAPIError(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *apperr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
}

func TestGuard_MissingToken(t *testing.T) {
	t.Parallel()

	g, _, _ := newTestGuard(t)
	_, err := runGuard(t, g, "", "", models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestGuard_ValidAccessToken(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	userID := uuid.NewString()
	token, err := codec.EncodeAccess(userID, "user")
	require.NoError(t, err)

	c, err := runGuard(t, g, token, "", models.RoleAdmin, models.RoleManager, models.RoleUser)
	require.NoError(t, err)

	claims, ok := ClaimsFromEchoContext(c)
	require.True(t, ok)
	assert.Equal(t, userID, claims.UserID)

	raw, ok := RawTokenFromEchoContext(c)
	require.True(t, ok)
	assert.Equal(t, token, raw)
}

func TestGuard_BearerPrefixStrippedInHeader(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	token, err := codec.EncodeAccess(uuid.NewString(), "user")
	require.NoError(t, err)

	_, err = runGuard(t, g, "Bearer "+token, "", models.RoleUser)
	require.NoError(t, err)

	// The query path carries the raw value only; a scheme prefix there
	// is part of the (invalid) token.
	_, err = runGuard(t, g, "", "Bearer%20"+token, models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestGuard_HeaderTakesPrecedenceOverQuery(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	token, err := codec.EncodeAccess(uuid.NewString(), "user")
	require.NoError(t, err)

	_, err = runGuard(t, g, token, "garbage", models.RoleUser)
	require.NoError(t, err)

	_, err = runGuard(t, g, "garbage", token, models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)

	_, err = runGuard(t, g, "", token, models.RoleUser)
	require.NoError(t, err)
}

func TestGuard_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	token, err := codec.EncodeRefresh(uuid.NewString(), "user")
	require.NoError(t, err)

	_, err = runGuard(t, g, token, "", models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestGuard_ExpiredTokenCollapsesToUnauthorized(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	token, err := codec.Encode(uuid.NewString(), "user", tokens.TypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = runGuard(t, g, token, "", models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)
}

func TestGuard_RoleMembership(t *testing.T) {
	t.Parallel()

	g, codec, _ := newTestGuard(t)
	userToken, err := codec.EncodeAccess(uuid.NewString(), "user")
	require.NoError(t, err)
	adminToken, err := codec.EncodeAccess(uuid.NewString(), "admin")
	require.NoError(t, err)

	_, err = runGuard(t, g, userToken, "", models.RoleAdmin)
	requireAPIError(t, err, http.StatusForbidden)

	_, err = runGuard(t, g, adminToken, "", models.RoleAdmin)
	require.NoError(t, err)
}

func TestGuard_RevokedUserRejected(t *testing.T) {
	t.Parallel()

	g, codec, revocations := newTestGuard(t)
	userID := uuid.New()
	token, err := codec.EncodeAccess(userID.String(), "user")
	require.NoError(t, err)

	revocations.revoked[userID] = true
	_, err = runGuard(t, g, token, "", models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)

	// A fresh, otherwise valid token for the same user is rejected too.
	fresh, err := codec.EncodeAccess(userID.String(), "user")
	require.NoError(t, err)
	_, err = runGuard(t, g, fresh, "", models.RoleUser)
	requireAPIError(t, err, http.StatusUnauthorized)

	revocations.revoked[userID] = false
	_, err = runGuard(t, g, token, "", models.RoleUser)
	require.NoError(t, err)
}
