package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/auth_gateway/internal/events"
	"github.com/Skotchmaster/auth_gateway/internal/ids"
	"github.com/Skotchmaster/auth_gateway/internal/logging"
	"github.com/Skotchmaster/auth_gateway/internal/models"
	"github.com/Skotchmaster/auth_gateway/internal/repo"
	"github.com/Skotchmaster/auth_gateway/internal/tokens"
)

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type TokenService interface {
	Issue(ctx context.Context, userID string) (tokens.Token, error)
	Verify(ctx context.Context, raw string) (tokens.Claims, error)
	Refresh(ctx context.Context, raw string) (tokens.Token, error)
	Invalidate(ctx context.Context, raw string) error
}

// AuthService runs register, login, refresh and logout. It keeps no state
// between requests.
type AuthService struct {
	Store  repo.CredentialStore
	Hasher Hasher
	Tokens TokenService
	Events events.Publisher
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (tokens.Token, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Name = strings.TrimSpace(in.Name)
	in.Email = repo.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		l.Warn("register_failed", "status", 422, "reason", "validation", "error", err)
		return tokens.Token{}, toValidationError(err)
	}

	if _, err := s.Store.FindByEmail(ctx, in.Email); err == nil {
		l.Warn("register_failed", "status", 422, "reason", "email_taken")
		return tokens.Token{}, fieldError("email", "The email has already been taken.")
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		l.Error("register_error", "status", 500, "reason", "db_error", "error", err)
		return tokens.Token{}, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return tokens.Token{}, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           ids.NewUserID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.Store.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "status", 422, "reason", "email_taken")
			return tokens.Token{}, fieldError("email", "The email has already been taken.")
		}
		l.Error("register_error", "status", 500, "reason", "db_error", "error", err)
		return tokens.Token{}, err
	}

	tok, err := s.Tokens.Issue(ctx, user.ID)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot create token", "error", err)
		return tokens.Token{}, err
	}

	s.Events.Publish(ctx, events.New(user.ID, events.Registered, s.now()))
	l.Info("register_success", "user_id", user.ID)
	return tok, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (tokens.Token, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// same bcrypt cost as a real mismatch
			s.Hasher.Compare(s.dummy(), password)
			l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
			return tokens.Token{}, ErrInvalidCredentials
		}
		l.Error("login_error", "status", 500, "reason", "db_error", "error", err)
		return tokens.Token{}, err
	}

	if !s.Hasher.Compare(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return tokens.Token{}, ErrInvalidCredentials
	}

	tok, err := s.Tokens.Issue(ctx, user.ID)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot create token", "error", err)
		return tokens.Token{}, err
	}

	s.Events.Publish(ctx, events.New(user.ID, events.Authenticated, s.now()))
	l.Info("login_successful", "user_id", user.ID)
	return tok, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) Refresh(ctx context.Context, raw string) (tokens.Token, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	tok, err := s.Tokens.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, tokens.ErrToken) {
			l.Warn("refresh_failed", "status", 401, "reason", tokens.Reason(err))
		} else {
			l.Error("refresh_error", "status", 500, "error", err)
		}
		return tokens.Token{}, err
	}
	l.Info("refresh_successful", "user_id", tok.UserID)
	return tok, nil
}

// Logout succeeds for expired and already revoked tokens; only malformed
// tokens and registry failures are reported.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.Tokens.Invalidate(ctx, raw); err != nil {
		if errors.Is(err, tokens.ErrToken) {
			l.Warn("logout_failed", "status", 401, "reason", tokens.Reason(err))
		} else {
			l.Error("logout_error", "status", 500, "reason", "cannot revoke token", "error", err)
		}
		return err
	}
	l.Info("successful_logout")
	return nil
}

func (s *AuthService) Authenticate(ctx context.Context, raw string) (tokens.Claims, error) {
	return s.Tokens.Verify(ctx, raw)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.Store.GetUserByID(ctx, userID)
}
