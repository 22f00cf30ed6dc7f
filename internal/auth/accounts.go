// Package auth manages shopper accounts, bearer tokens and admin access for
// the storefront service.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCode        = errors.New("invalid verification code")
)

const tokenKeyPrefix = "tokens:"

const accountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id           TEXT PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	display_name      TEXT NOT NULL,
	password_hash     TEXT NOT NULL,
	email_verified    INTEGER NOT NULL DEFAULT 0,
	verification_code TEXT,
	created_at        DATETIME NOT NULL
)`

// Service stores accounts in SQLite and issues bearer tokens kept in Redis
type Service struct {
	db       *sql.DB
	rdb      *redis.Client
	tokenTTL time.Duration
	cost     int
}

// NewService prepares the accounts table
func NewService(ctx context.Context, db *sql.DB, rdb *redis.Client, tokenTTL time.Duration) (*Service, error) {
	if _, err := db.ExecContext(ctx, accountsSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize accounts: %w", err)
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	return &Service{db: db, rdb: rdb, tokenTTL: tokenTTL, cost: bcrypt.DefaultCost}, nil
}

// SignUp creates an unverified account and returns the code that verifies it
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (models.SignUpResponse, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.SignUpResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var taken int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE email = ?`, email).Scan(&taken); err != nil {
		return models.SignUpResponse{}, fmt.Errorf("failed to create account: %w", err)
	}
	if taken > 0 {
		return models.SignUpResponse{}, ErrEmailTaken
	}

	resp := models.SignUpResponse{
		UserID:           uuid.New().String(),
		VerificationCode: uuid.New().String(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, email, display_name, password_hash, verification_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		resp.UserID, email, displayName, string(hash), resp.VerificationCode, time.Now().UTC())
	if err != nil {
		return models.SignUpResponse{}, fmt.Errorf("failed to create account: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id": resp.UserID,
		"email":   email,
	}).Info("Account created, awaiting email verification")
	return resp, nil
}

// VerifyEmail marks the account holding code as verified
func (s *Service) VerifyEmail(ctx context.Context, code string) (models.Identity, error) {
	if code == "" {
		return models.Identity{}, ErrInvalidCode
	}

	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM accounts WHERE verification_code = ?`, code).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Identity{}, ErrInvalidCode
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to verify email: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET email_verified = 1, verification_code = NULL WHERE email = ?`, email); err != nil {
		return models.Identity{}, fmt.Errorf("failed to verify email: %w", err)
	}

	id, _, err := s.lookup(ctx, email)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to verify email: %w", err)
	}
	log.WithField("user_id", id.UserID).Info("Email verified")
	return id, nil
}

// SignIn checks the password and issues a bearer token. Unverified accounts
// are refused.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.SignInResponse, error) {
	id, hash, err := s.lookup(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.AuthAttempts.WithLabelValues("signin", "invalid").Inc()
		return models.SignInResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.SignInResponse{}, fmt.Errorf("failed to sign in: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		metrics.AuthAttempts.WithLabelValues("signin", "invalid").Inc()
		return models.SignInResponse{}, ErrInvalidCredentials
	}
	if !id.EmailVerified {
		metrics.AuthAttempts.WithLabelValues("signin", "unverified").Inc()
		return models.SignInResponse{}, ErrEmailNotVerified
	}

	token := uuid.New().String()
	data, err := json.Marshal(id)
	if err != nil {
		return models.SignInResponse{}, fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := s.rdb.Set(ctx, tokenKeyPrefix+token, data, s.tokenTTL).Err(); err != nil {
		return models.SignInResponse{}, fmt.Errorf("failed to store token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("signin", "ok").Inc()
	log.WithField("user_id", id.UserID).Info("User signed in")
	return models.SignInResponse{Token: token, Identity: id}, nil
}

// SignOut revokes token. Revoking an unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// VerifyToken returns the identity a live token was issued to
func (s *Service) VerifyToken(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrInvalidToken
	}
	data, err := s.rdb.Get(ctx, tokenKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Identity{}, ErrInvalidToken
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to verify token: %w", err)
	}
	var id models.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return models.Identity{}, fmt.Errorf("failed to decode token: %w", err)
	}
	return id, nil
}

func (s *Service) lookup(ctx context.Context, email string) (models.Identity, string, error) {
	var (
		id       models.Identity
		hash     string
		verified int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, display_name, email_verified, password_hash FROM accounts WHERE email = ?`, email).
		Scan(&id.UserID, &id.Email, &id.DisplayName, &verified, &hash)
	id.EmailVerified = verified == 1
	return id, hash, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
