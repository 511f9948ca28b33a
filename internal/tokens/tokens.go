package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/auth_gateway/internal/config"
	"github.com/Skotchmaster/auth_gateway/internal/ids"
	"github.com/Skotchmaster/auth_gateway/internal/metrics"
	"github.com/Skotchmaster/auth_gateway/internal/revocation"
)

// Claims is the verified content of a token.
type Claims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Token is an issued, signed credential. It is never mutated; refreshing
// mints a new one.
type Token struct {
	Value string
	Claims
}

type Service struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	registry revocation.Registry
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

func NewService(secret []byte, ttl time.Duration, registry revocation.Registry, opts ...Option) (*Service, error) {
	var problems []string
	if len(secret) == 0 {
		problems = append(problems, "token signing secret is empty")
	}
	if ttl <= 0 {
		problems = append(problems, "token ttl must be positive")
	}
	if registry == nil {
		problems = append(problems, "revocation registry is nil")
	}
	if len(problems) > 0 {
		return nil, &config.ConfigError{Problems: problems}
	}

	s := &Service{
		secret:   secret,
		ttl:      ttl,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Issue(ctx context.Context, userID string) (Token, error) {
	return s.issue(userID, "issue")
}

func (s *Service) issue(userID, reason string) (Token, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        ids.NewTokenID(),
		Issuer:    s.issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	metrics.TokensIssued.WithLabelValues(reason).Inc()

	return Token{
		Value: signed,
		Claims: Claims{
			UserID:    userID,
			TokenID:   claims.ID,
			IssuedAt:  claims.IssuedAt.Time,
			ExpiresAt: claims.ExpiresAt.Time,
		},
	}, nil
}

// parse checks signature, structure and expiry. Expiry is decided here,
// before the registry is consulted.
func (s *Service) parse(raw string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if rc.Subject == "" || rc.ID == "" || rc.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing sub, jti or iat", ErrMalformed)
	}

	return Claims{
		UserID:    rc.Subject,
		TokenID:   rc.ID,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

func (s *Service) Verify(ctx context.Context, raw string) (Claims, error) {
	claims, err := s.verify(ctx, raw)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues(Reason(err)).Inc()
		return Claims{}, err
	}
	metrics.TokenVerifications.WithLabelValues("ok").Inc()
	return claims, nil
}

func (s *Service) verify(ctx context.Context, raw string) (Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := s.registry.Contains(ctx, claims.TokenID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, ErrRevoked
	}
	return claims, nil
}

// Refresh revokes raw and mints a replacement for the same subject. The
// revocation is an insert-if-absent claim on the token id: of several
// concurrent refreshes (or a refresh racing a logout) exactly one wins and
// the rest see ErrRevoked. The old token stops validating before the new
// one is handed out.
func (s *Service) Refresh(ctx context.Context, raw string) (Token, error) {
	claims, err := s.Verify(ctx, raw)
	if err != nil {
		return Token{}, err
	}

	added, err := s.revoke(ctx, claims)
	if err != nil {
		return Token{}, err
	}
	if !added {
		return Token{}, ErrRevoked
	}
	return s.issue(claims.UserID, "refresh")
}

// Invalidate revokes raw. Expired and already revoked tokens are a no-op:
// they are unusable either way.
func (s *Service) Invalidate(ctx context.Context, raw string) error {
	claims, err := s.Verify(ctx, raw)
	switch {
	case errors.Is(err, ErrExpired), errors.Is(err, ErrRevoked):
		return nil
	case err != nil:
		return err
	}

	_, err = s.revoke(ctx, claims)
	return err
}

func (s *Service) revoke(ctx context.Context, claims Claims) (bool, error) {
	added, err := s.registry.Add(ctx, revocation.Entry{
		TokenID:   claims.TokenID,
		RevokedAt: s.now(),
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	if added {
		metrics.TokensRevoked.Inc()
	}
	return added, nil
}
