package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

// Local validation failures; no backend call is made for these.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// API is the slice of the unlock backend client the auth flows need.
type API interface {
	Login(ctx context.Context, email, password string) (backend.AuthResult, error)
	Register(ctx context.Context, name, email, phone, password string) (backend.AuthResult, error)
}

// Service binds backend authentication to the local session store: the
// backend decides who you are, the store remembers it for this browser.
type Service struct {
	api      API
	sessions session.Store
	logger   *slog.Logger
}

// NewService builds the auth service.
func NewService(api API, sessions session.Store, logger *slog.Logger) *Service {
	return &Service{api: api, sessions: sessions, logger: logger}
}

// Login exchanges credentials with the backend and mints a session.
func (s *Service) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, ErrMissingCredentials
	}

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}

	sess := session.New(result.Token, result.User)
	if err := s.sessions.Set(ctx, sess); err != nil {
		return session.Session{}, err
	}

	s.logger.Info("login", "session_id", sess.ID, "email", sess.User.Email)
	return sess, nil
}

// RegisterInput is the registration form. Name and Phone are optional.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Confirm  string
}

// Register creates an account and signs the visitor straight in. The
// password/confirm comparison stays local: mismatches never travel.
func (s *Service) Register(ctx context.Context, input RegisterInput) (session.Session, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || input.Password == "" {
		return session.Session{}, ErrMissingCredentials
	}
	if input.Password != input.Confirm {
		return session.Session{}, ErrPasswordMismatch
	}

	result, err := s.api.Register(ctx, strings.TrimSpace(input.Name), input.Email, strings.TrimSpace(input.Phone), input.Password)
	if err != nil {
		return session.Session{}, err
	}

	sess := session.New(result.Token, result.User)
	if err := s.sessions.Set(ctx, sess); err != nil {
		return session.Session{}, err
	}

	s.logger.Info("register", "session_id", sess.ID, "email", sess.User.Email)
	return sess, nil
}

// Logout clears the session; the store broadcasts the clear so the chat
// manager drops the visitor's thread.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}
