package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/ashendes/pickle-storefront/internal/models"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := NewService(context.Background(), db, rdb, time.Hour)
	require.NoError(t, err)
	s.cost = bcrypt.MinCost
	return s, mr
}

func signedUp(t *testing.T, s *Service, email string, verify bool) models.SignUpResponse {
	t.Helper()
	resp, err := s.SignUp(context.Background(), email, "secret123", "Ravi")
	require.NoError(t, err)
	if verify {
		_, err := s.VerifyEmail(context.Background(), resp.VerificationCode)
		require.NoError(t, err)
	}
	return resp
}

func TestSignUpAndSignIn(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()

	resp := signedUp(t, s, "Ravi@Example.com ", false)
	assert.NotEmpty(t, resp.UserID)
	assert.NotEmpty(t, resp.VerificationCode)

	_, err := s.SignUp(ctx, "ravi@example.com", "another1", "Other")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.SignIn(ctx, "ravi@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	id, err := s.VerifyEmail(ctx, resp.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, id.UserID)
	assert.True(t, id.EmailVerified)

	_, err = s.VerifyEmail(ctx, resp.VerificationCode)
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = s.SignIn(ctx, "ravi@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	signin, err := s.SignIn(ctx, "RAVI@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", signin.Identity.Email)
	assert.Equal(t, "Ravi", signin.Identity.DisplayName)
	assert.True(t, mr.Exists("tokens:"+signin.Token))
	assert.Equal(t, time.Hour, mr.TTL("tokens:"+signin.Token))

	got, err := s.VerifyToken(ctx, signin.Token)
	require.NoError(t, err)
	assert.Equal(t, signin.Identity, got)

	require.NoError(t, s.SignOut(ctx, signin.Token))
	_, err = s.VerifyToken(ctx, signin.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()
	signedUp(t, s, "a@example.com", true)

	signin, err := s.SignIn(ctx, "a@example.com", "secret123")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = s.VerifyToken(ctx, signin.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type staticTokens map[string]models.Identity

func (s staticTokens) VerifyToken(_ context.Context, token string) (models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return models.Identity{}, ErrInvalidToken
	}
	return id, nil
}

func TestAdminAuthenticate(t *testing.T) {
	tokens := staticTokens{
		"admin-token": {UserID: "u1", Email: "Owner@Pickles.in"},
		"user-token":  {UserID: "u2", Email: "shopper@example.com"},
	}
	a := NewAdminAuthenticator(tokens, "hunter2", []string{" owner@pickles.in", ""})

	tests := []struct {
		name       string
		header     map[string]string
		wantMethod string
		wantStatus int
	}{
		{"password", map[string]string{"x-admin-password": "hunter2"}, MethodPassword, 0},
		{"wrong password", map[string]string{"x-admin-password": "nope"}, "", http.StatusUnauthorized},
		{"password wins over token", map[string]string{"x-admin-password": "nope", "Authorization": "Bearer admin-token"}, "", http.StatusUnauthorized},
		{"missing", nil, "", http.StatusUnauthorized},
		{"not bearer", map[string]string{"Authorization": "Basic abc"}, "", http.StatusUnauthorized},
		{"invalid token", map[string]string{"Authorization": "Bearer bogus"}, "", http.StatusUnauthorized},
		{"not allowlisted", map[string]string{"Authorization": "Bearer user-token"}, "", http.StatusForbidden},
		{"allowlisted", map[string]string{"Authorization": "Bearer admin-token"}, MethodToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.header {
				h.Set(k, v)
			}
			method, err := a.Authenticate(context.Background(), h)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMethod, method)
				return
			}
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.wantStatus, authErr.Status)
		})
	}
}

func TestAdminPasswordDisabledWhenUnset(t *testing.T) {
	a := NewAdminAuthenticator(staticTokens{}, "", nil)
	h := http.Header{}
	h.Set("x-admin-password", "anything")

	_, err := a.Authenticate(context.Background(), h)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := staticTokens{"t1": {UserID: "u1", Email: "owner@pickles.in"}}

	router := gin.New()
	router.GET("/me", RequireUser(tokens), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": IdentityFrom(c).UserID, "token": TokenFrom(c)})
	})
	admin := NewAdminAuthenticator(tokens, "pw", []string{"owner@pickles.in"})
	router.GET("/admin", admin.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, AdminMethodFrom(c))
	})

	do := func(path string, header map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do("/me", map[string]string{"Authorization": "Bearer t1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"u1","token":"t1"}`, w.Body.String())

	w = do("/admin", map[string]string{"x-admin-password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MethodPassword, w.Body.String())

	w = do("/admin", map[string]string{"Authorization": "Bearer t1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MethodToken, w.Body.String())

	w = do("/admin", map[string]string{"x-admin-password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid admin password")
}
