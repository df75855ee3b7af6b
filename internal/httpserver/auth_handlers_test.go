package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/hash"
	authmw "github.com/mpetrashov/user-service/internal/middleware/auth"
	"github.com/mpetrashov/user-service/internal/models"
	"github.com/mpetrashov/user-service/internal/repo"
	"github.com/mpetrashov/user-service/internal/service"
	"github.com/mpetrashov/user-service/internal/tokens"
	"github.com/mpetrashov/user-service/internal/transport"
)

type testEnv struct {
	T     *testing.T
	E     *echo.Echo
	DB    *gorm.DB
	Repo  *repo.GormRepo
	Codec *tokens.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RevokedToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	codec, err := tokens.NewCodec([]byte("test-secret"), "HS256", 24*time.Hour, 100*24*time.Hour)
	require.NoError(t, err)

	gormRepo := repo.New(db)

	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	Register(e, &Deps{
		AuthHandler:  &AuthHTTP{Svc: &service.AuthService{Repo: gormRepo, Codec: codec}},
		UsersHandler: &UsersHTTP{Svc: &service.UserService{Repo: gormRepo}},
		Guard:        authmw.NewGuard(codec, gormRepo),
	})

	return &testEnv{T: t, E: e, DB: db, Repo: gormRepo, Codec: codec}
}

func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	env.T.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("authorization", token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedUser(email, password string, role models.Role) *models.User {
	env.T.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := &models.User{
		Email:        email,
		Role:         role,
		IsActive:     true,
		PasswordHash: pwHash,
	}
	require.NoError(env.T, env.Repo.CreateUser(env.T.Context(), user))
	return user
}

func (env *testEnv) login(email, password string) transport.TokensResp {
	env.T.Helper()

	rec := env.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(env.T, http.StatusOK, rec.Code)

	var resp transport.TokensResp
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(env.T, resp.AccessToken)
	require.NotEmpty(env.T, resp.RefreshToken)
	return resp
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Detail)
	return body.Error
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"email":      "a@x.com",
		"password":   "p1",
		"first_name": "Anna",
	}
	rec := env.do(http.MethodPost, "/auth/create", "", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.NotEmpty(t, created.ID)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = env.do(http.MethodPost, "/auth/create", "", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorKind(t, rec))
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@x.com", "p1", models.RoleUser)

	rec := env.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))

	rec = env.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorKind(t, rec))
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@x.com", "p1", models.RoleUser)
	pair := env.login("a@x.com", "p1")

	rec := env.do(http.MethodPost, "/auth/refresh", "", map[string]string{"token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed transport.TokensResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	require.NotEmpty(t, refreshed.AccessToken)

	// An access token is never accepted where a refresh token is required.
	rec = env.do(http.MethodPost, "/auth/refresh", "", map[string]string{"token": pair.AccessToken})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/auth/refresh", "", map[string]string{"token": "garbage"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/auth/users/current", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", errorKind(t, rec))
}

func TestUserViews_WithholdAdminFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@x.com", "p1", models.RoleUser)
	env.seedUser("admin@x.com", "root-pass", models.RoleAdmin)
	pair := env.login("a@x.com", "p1")

	// The shared user list carries the editable profile fields only.
	rec := env.do(http.MethodGet, "/auth/users", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	for _, item := range listed {
		assert.Contains(t, item, "email")
		assert.Contains(t, item, "first_name")
		assert.NotContains(t, item, "id")
		assert.NotContains(t, item, "role")
		assert.NotContains(t, item, "is_active")
	}

	// The own-profile view adds role and active status but not the id.
	rec = env.do(http.MethodGet, "/auth/users/current", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var current map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "a@x.com", current["email"])
	assert.Equal(t, "user", current["role"])
	assert.Contains(t, current, "is_active")
	assert.NotContains(t, current, "id")
}

func TestGetUserByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@x.com", "p1", models.RoleUser)

	rec := env.do(http.MethodGet, "/auth/get_user?email=a@x.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.True(t, active)

	rec = env.do(http.MethodGet, "/auth/get_user?email=nobody@x.com", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))

	rec = env.do(http.MethodGet, "/auth/get_user", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute_NotFoundKind(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/auth/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorKind(t, rec))
}

func TestEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)

	// create user
	rec := env.do(http.MethodPost, "/auth/create", "", map[string]string{
		"email": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// login returns access+refresh tokens
	pair := env.login("a@x.com", "p1")

	// current user is reachable with the access token
	rec = env.do(http.MethodGet, "/auth/users/current", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// admin-only endpoint rejects the user-role access token
	rec = env.do(http.MethodGet, "/auth/private/users", pair.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorKind(t, rec))

	// refresh token is rejected at an access-gated route
	rec = env.do(http.MethodGet, "/auth/users/current", pair.RefreshToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// logout blacklists the presented token and returns the record
	rec = env.do(http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entry models.RevokedToken
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, pair.AccessToken, entry.Token)

	// the revoked user is rejected everywhere, even with the same token
	rec = env.do(http.MethodGet, "/auth/users/current", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", errorKind(t, rec))

	// a fresh login clears the blacklist and the new token works again
	fresh := env.login("a@x.com", "p1")
	rec = env.do(http.MethodGet, "/auth/users/current", fresh.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("admin@x.com", "root-pass", models.RoleAdmin)
	user := env.seedUser("a@x.com", "p1", models.RoleUser)

	pair := env.login("admin@x.com", "root-pass")

	rec := env.do(http.MethodGet, "/auth/private/users?page=1&size=10", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page transport.UserPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 2, page.Total)

	rec = env.do(http.MethodGet, "/auth/private/users/"+user.ID.String(), pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/auth/update/"+user.ID.String(), pair.AccessToken, map[string]any{
		"role": "manager", "is_active": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.RoleManager, updated.Role)
	assert.False(t, updated.IsActive)

	rec = env.do(http.MethodDelete, "/auth/private/users/"+user.ID.String(), pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/auth/private/users/"+user.ID.String(), pair.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Bearer-prefixed header is accepted as well.
	rec = env.do(http.MethodGet, "/auth/users/current", "Bearer "+pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("a@x.com", "p1", models.RoleUser)
	pair := env.login("a@x.com", "p1")

	rec := env.do(http.MethodPut, "/auth/update_current_user", pair.AccessToken, map[string]string{
		"first_name": "Anna",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Anna", updated.FirstName)

	// Admin update route stays closed to a user-role token.
	rec = env.do(http.MethodPut, "/auth/update/"+updated.ID.String(), pair.AccessToken, map[string]string{
		"first_name": "Eve",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
