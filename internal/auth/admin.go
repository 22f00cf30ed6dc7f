package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// Admin authentication methods reported back to the caller
const (
	MethodPassword = "password"
	MethodToken    = "token"
)

// PasswordHeader carries the shared admin secret
const PasswordHeader = "x-admin-password"

const (
	identityKey = "identity"
	tokenKey    = "token"
	adminKey    = "admin_method"
)

// TokenVerifier resolves a bearer token to the identity it was issued to
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (models.Identity, error)
}

// AuthError is an authentication failure with the HTTP status it maps to
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// AdminAuthenticator admits requests carrying the shared admin password or
// a bearer token of an allowlisted account
type AdminAuthenticator struct {
	tokens    TokenVerifier
	password  string
	allowlist map[string]bool
}

// NewAdminAuthenticator builds an authenticator; an empty password disables
// password access
func NewAdminAuthenticator(tokens TokenVerifier, password string, emails []string) *AdminAuthenticator {
	allow := make(map[string]bool, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			allow[e] = true
		}
	}
	return &AdminAuthenticator{tokens: tokens, password: password, allowlist: allow}
}

// IsAdminEmail reports whether email is on the allowlist
func (a *AdminAuthenticator) IsAdminEmail(email string) bool {
	return email != "" && a.allowlist[normalizeEmail(email)]
}

// Authenticate returns the method that admitted the request or an *AuthError
func (a *AdminAuthenticator) Authenticate(ctx context.Context, header http.Header) (string, error) {
	if pw := header.Get(PasswordHeader); pw != "" {
		if a.password != "" && subtle.ConstantTimeCompare([]byte(pw), []byte(a.password)) == 1 {
			return MethodPassword, nil
		}
		return "", &AuthError{Status: http.StatusUnauthorized, Message: "Invalid admin password"}
	}

	token, ok := bearerToken(header)
	if !ok {
		return "", &AuthError{
			Status:  http.StatusUnauthorized,
			Message: "Missing authentication. Provide either 'Authorization: Bearer <token>' or 'x-admin-password' header.",
		}
	}

	id, err := a.tokens.VerifyToken(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			log.WithError(err).Error("Failed to verify admin token")
		}
		return "", &AuthError{Status: http.StatusUnauthorized, Message: "Invalid or expired token"}
	}
	if !a.IsAdminEmail(id.Email) {
		return "", &AuthError{
			Status:  http.StatusForbidden,
			Message: fmt.Sprintf("User %s is not authorized as admin", id.Email),
		}
	}
	return MethodToken, nil
}

// Middleware rejects requests that fail admin authentication
func (a *AdminAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		method, err := a.Authenticate(c.Request.Context(), c.Request.Header)
		if err != nil {
			var authErr *AuthError
			status := http.StatusInternalServerError
			if errors.As(err, &authErr) {
				status = authErr.Status
			}
			metrics.AuthAttempts.WithLabelValues("admin", resultLabel(status)).Inc()
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		metrics.AuthAttempts.WithLabelValues("admin", "ok").Inc()
		c.Set(adminKey, method)
		c.Next()
	}
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's identity on the context
func RequireUser(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.Request.Header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		id, err := tokens.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				log.WithError(err).Error("Failed to verify token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by RequireUser
func IdentityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{}
}

// TokenFrom returns the bearer token stored by RequireUser
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// AdminMethodFrom returns the method that admitted an admin request
func AdminMethodFrom(c *gin.Context) string {
	return c.GetString(adminKey)
}

func bearerToken(header http.Header) (string, bool) {
	v := header.Get("Authorization")
	if !strings.HasPrefix(v, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	return token, token != ""
}

func resultLabel(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	default:
		return "error"
	}
}
