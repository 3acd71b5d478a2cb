// Package auth registers users and turns credentials into session cookies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"brokemate/internal/core"
	"brokemate/internal/session"
)

// UserRepository is the subset of storage the auth service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, email, hashedPassword string, budget decimal.Decimal) (*core.User, error)
	GetUserByEmail(ctx context.Context, email string) (*core.User, error)
	GetUserByID(ctx context.Context, id int64) (*core.User, error)
}

type Service struct {
	users    UserRepository
	sessions session.Store
	codec    *session.Codec
	cost     int
}

func NewService(users UserRepository, sessions session.Store, codec *session.Codec) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		codec:    codec,
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates a user with the default budget. The returned user has no
// password hash set.
func (s *Service) Register(ctx context.Context, email, password string) (*core.User, error) {
	email = core.NormalizeEmail(email)
	if err := core.ValidateCredentials(email, password); err != nil {
		return nil, core.Invalid(err)
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("register %s: %w", email, core.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// A concurrent registration can still win the race; storage maps the
	// unique violation to core.ErrConflict.
	user, err := s.users.CreateUser(ctx, email, string(hash), core.DefaultBudget)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	user.HashedPassword = ""
	return user, nil
}

// Login verifies credentials, opens a session and returns the signed cookie value.
func (s *Service) Login(ctx context.Context, email, password string) (string, *core.User, error) {
	user, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return "", nil, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, core.ErrInvalidCredentials
	}

	sid, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	value, err := s.codec.Encode(sid)
	if err != nil {
		return "", nil, err
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	user.HashedPassword = ""
	return value, user, nil
}

// Logout ends the session referenced by cookieValue. Missing or invalid
// cookies are ignored.
func (s *Service) Logout(ctx context.Context, cookieValue string) error {
	if cookieValue == "" {
		return nil
	}
	sid, err := s.codec.Decode(cookieValue)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUser resolves a cookie value to its user. It returns nil, nil whenever
// the cookie does not lead to an existing user.
func (s *Service) CurrentUser(ctx context.Context, cookieValue string) (*core.User, error) {
	if cookieValue == "" {
		return nil, nil
	}

	sid, err := s.codec.Decode(cookieValue)
	if err != nil {
		if !errors.Is(err, session.ErrInvalidToken) {
			return nil, err
		}
		slog.DebugContext(ctx, "Rejected session cookie", "error", err)
		return nil, nil
	}

	userID, found, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		user.HashedPassword = ""
	}
	return user, nil
}
