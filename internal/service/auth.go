// Package service — registration, confirmation and login rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/repository"
)

// AuthService orchestrates the account lifecycle.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - sessionTTL time.Duration              → session token lifetime (config)
//
// WHAT IT DOES NOT DO: set cookies, read requests, or send email. Mail
// dispatch is the handler's job precisely so this service stays testable
// without a network.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	sessionTTL time.Duration
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		passwords:  passwords,
		sessionTTL: sessionTTL,
		validate:   validator.New(),
		logger:     logger,
	}
}

// registerInput carries the registration form through validation. The
// validator tags enforce what the form itself can't: a real email shape and
// sane field lengths.
type registerInput struct {
	Username string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// Register creates an inactive account and returns it together with its
// confirmation token.
//
// FLOW:
//  1. Validate the input (shape only — no DB involved)
//  2. Reject a duplicate email
//  3. bcrypt-hash the password
//  4. Generate a random UUID confirmation token
//  5. Persist the record with is_active=false
//
// The caller dispatches the confirmation email; delivery failure never rolls
// back the record created here.
//
// Note the duplicate check is find-then-insert; the repository's unique
// email index closes the race between two concurrent registrations, and its
// duplicate-key translation makes both paths surface ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	in := registerInput{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := strings.ToLower(verrs[0].Field())
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("invalid %s", field))
		}
		return nil, apperror.ValidationFailed("", "invalid registration input")
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperror.DuplicateEmail(in.Email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Username:          in.Username,
		Email:             in.Email,
		PasswordHash:      hash,
		IsActive:          false,
		ConfirmationToken: uuid.NewString(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("username", user.Username),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Confirm activates the account holding the given confirmation token.
//
// The token is single-use: activation clears it, so confirming twice with
// the same token fails with ErrInvalidToken the second time.
func (s *AuthService) Confirm(ctx context.Context, token string) error {
	if err := s.users.Activate(ctx, token); err != nil {
		return err
	}

	s.logger.Info("email confirmed")
	return nil
}

// Login checks credentials and issues a session token.
//
// Failure order matters and is deliberate:
//   - unknown username and wrong password both yield ErrInvalidCredentials
//     (indistinguishable, so the response doesn't confirm which usernames
//     exist)
//   - a correct password on an unconfirmed account yields ErrEmailNotConfirmed
//
// On success the token carries sub=username and expires after the configured
// session TTL.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return "", apperror.InvalidCredentials()
	}

	if !user.IsActive {
		return "", apperror.EmailNotConfirmed()
	}

	token, err := s.tokens.Issue(user.Username, s.sessionTTL)
	if err != nil {
		return "", fmt.Errorf("service/auth: issuing token for %s: %w", user.Username, err)
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	return token, nil
}

// SessionTTL exposes the configured session lifetime so the handler can set
// a matching cookie Max-Age.
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}
