package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// SignUp creates an account. It does not sign in.
func (c *Client) SignUp(ctx context.Context, req models.SignUpRequest) (models.SignUpResponse, error) {
	var resp models.SignUpResponse
	err := c.do(ctx, http.MethodPost, "/auth/signup", "", req, &resp)
	if statusIs(err, http.StatusConflict) {
		return resp, auth.ErrEmailTaken
	}
	if err != nil {
		return resp, fmt.Errorf("sign up failed: %w", err)
	}
	return resp, nil
}

// VerifyEmail confirms the address with the code issued at sign up
func (c *Client) VerifyEmail(ctx context.Context, code string) error {
	err := c.do(ctx, http.MethodPost, "/auth/verify", "", models.VerifyEmailRequest{Code: code}, nil)
	if statusIs(err, http.StatusBadRequest) {
		return auth.ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	return nil
}

// SignIn exchanges credentials for a token and remembers it for the user
func (c *Client) SignIn(ctx context.Context, email, password string) (models.SignInResponse, error) {
	var resp models.SignInResponse
	err := c.do(ctx, http.MethodPost, "/auth/signin", "", models.SignInRequest{Email: email, Password: password}, &resp)
	switch {
	case statusIs(err, http.StatusUnauthorized):
		return resp, auth.ErrInvalidCredentials
	case statusIs(err, http.StatusForbidden):
		return resp, auth.ErrEmailNotVerified
	case err != nil:
		return resp, fmt.Errorf("sign in failed: %w", err)
	}
	c.Remember(resp.Identity.UserID, resp.Token)
	return resp, nil
}

// SignOut revokes token and forgets it
func (c *Client) SignOut(ctx context.Context, cred models.Credential) error {
	defer c.Forget(cred.Identity.UserID)
	if err := c.do(ctx, http.MethodPost, "/auth/signout", cred.Token, nil, nil); err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}
	return nil
}

// Me validates a saved token and returns the current identity behind it
func (c *Client) Me(ctx context.Context, token string) (models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &id); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return id, auth.ErrInvalidToken
		}
		return id, fmt.Errorf("failed to load identity: %w", err)
	}
	c.Remember(id.UserID, token)
	return id, nil
}

func statusIs(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
