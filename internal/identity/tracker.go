// Package identity tracks who is using the shop client and tells observers,
// such as the cart session, whenever that changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/auth"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// Authenticator talks to the account service
type Authenticator interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (models.SignUpResponse, error)
	VerifyEmail(ctx context.Context, code string) error
	SignIn(ctx context.Context, email, password string) (models.SignInResponse, error)
	SignOut(ctx context.Context, cred models.Credential) error
	Me(ctx context.Context, token string) (models.Identity, error)
}

// CredentialStore keeps the signed-in credential between runs
type CredentialStore interface {
	SaveCredential(ctx context.Context, cred models.Credential) error
	LoadCredential(ctx context.Context) (models.Credential, bool, error)
	ClearCredential(ctx context.Context) error
}

// Observer is called with the new identity after every change
type Observer func(models.Identity)

// Tracker holds the current identity. Observers are notified in
// subscription order, one change at a time.
type Tracker struct {
	auth  Authenticator
	creds CredentialStore

	mu        sync.Mutex
	current   models.Credential
	observers map[int]Observer
	order     []int
	nextID    int

	notifyMu sync.Mutex
}

// NewTracker starts as the guest identity
func NewTracker(authn Authenticator, creds CredentialStore) *Tracker {
	return &Tracker{
		auth:      authn,
		creds:     creds,
		observers: make(map[int]Observer),
	}
}

// Current returns the current identity
func (t *Tracker) Current() models.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Identity
}

// Credential returns the current credential; the zero value for guests
func (t *Tracker) Credential() models.Credential {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Subscribe registers fn and calls it at once with the current identity.
// The returned func unsubscribes.
func (t *Tracker) Subscribe(fn Observer) func() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = fn
	t.order = append(t.order, id)
	current := t.current.Identity
	t.mu.Unlock()

	fn(current)

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.observers, id)
		for i, o := range t.order {
			if o == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
}

func (t *Tracker) set(cred models.Credential) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	t.current = cred
	observers := make([]Observer, 0, len(t.order))
	for _, id := range t.order {
		observers = append(observers, t.observers[id])
	}
	t.mu.Unlock()

	log.WithField("user_id", cred.Identity.UserID).Debug("Identity changed")
	for _, fn := range observers {
		fn(cred.Identity)
	}
}

// SignUp creates an account. The shopper stays signed out until the email
// is verified and they sign in.
func (t *Tracker) SignUp(ctx context.Context, email, password, displayName string) (models.SignUpResponse, error) {
	return t.auth.SignUp(ctx, models.SignUpRequest{Email: email, Password: password, DisplayName: displayName})
}

// VerifyEmail confirms an address with the code issued at sign up
func (t *Tracker) VerifyEmail(ctx context.Context, code string) error {
	return t.auth.VerifyEmail(ctx, code)
}

// SignIn signs in, remembers the credential and notifies observers
func (t *Tracker) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	resp, err := t.auth.SignIn(ctx, email, password)
	if err != nil {
		return models.Identity{}, err
	}

	cred := models.Credential{Token: resp.Token, Identity: resp.Identity}
	if err := t.creds.SaveCredential(ctx, cred); err != nil {
		log.WithError(err).Warn("Failed to remember sign-in")
	}
	t.set(cred)
	return resp.Identity, nil
}

// SignOut revokes the token, forgets the credential and switches to guest.
// Revocation failures are logged; the client signs out regardless.
func (t *Tracker) SignOut(ctx context.Context) error {
	cred := t.Credential()
	if cred.Identity.IsGuest() {
		return nil
	}

	if err := t.auth.SignOut(ctx, cred); err != nil {
		log.WithError(err).Warn("Failed to revoke token")
	}
	if err := t.creds.ClearCredential(ctx); err != nil {
		return fmt.Errorf("failed to forget credential: %w", err)
	}
	t.set(models.Credential{})
	return nil
}

// Restore signs back in with the remembered credential, if it is still
// valid. A rejected credential is forgotten. When the account service
// cannot be reached the tracker stays guest and the error is returned.
func (t *Tracker) Restore(ctx context.Context) (models.Identity, error) {
	cred, found, err := t.creds.LoadCredential(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to read credential: %w", err)
	}
	if !found || cred.Token == "" {
		return models.Identity{}, nil
	}

	id, err := t.auth.Me(ctx, cred.Token)
	if errors.Is(err, auth.ErrInvalidToken) {
		log.WithField("user_id", cred.Identity.UserID).Info("Saved sign-in expired")
		if err := t.creds.ClearCredential(ctx); err != nil {
			log.WithError(err).Warn("Failed to forget expired credential")
		}
		return models.Identity{}, nil
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to restore sign-in: %w", err)
	}

	cred.Identity = id
	if err := t.creds.SaveCredential(ctx, cred); err != nil {
		log.WithError(err).Warn("Failed to refresh remembered sign-in")
	}
	t.set(cred)
	return id, nil
}
