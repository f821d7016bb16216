// Package auth handles admin authentication: password hashing, database
// sessions, and the login flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvalidCredentials is returned when email/password authentication fails.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when an admin user is not found.
	ErrUserNotFound = errors.New("admin user not found")
)

// AdminUser represents an admin user from the database.
type AdminUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Service handles admin authentication flows.
type Service struct {
	pool    *pgxpool.Pool
	session *SessionManager
	logger  *slog.Logger
}

// NewService creates a new auth service.
func NewService(pool *pgxpool.Pool, session *SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		pool:    pool,
		session: session,
		logger:  logger,
	}
}

// Login authenticates an admin user and creates a session.
// Returns the session token on success.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Don't leak whether the email exists. Still do a dummy hash
			// comparison to prevent timing attacks.
			_ = VerifyPassword("$2a$12$000000000000000000000000000000000000000000000000000000", password)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("failed login attempt",
			slog.String("email", email),
		)
		return "", ErrInvalidCredentials
	}

	token, err := s.session.CreateSession(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("admin login",
		slog.String("admin_user_id", user.ID.String()),
	)

	return token, nil
}

// Logout deletes the session for a token. A missing session is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.session.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

// ValidateSession resolves a session token to its admin user ID.
func (s *Service) ValidateSession(ctx context.Context, token string) (uuid.UUID, error) {
	session, err := s.session.GetSession(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return session.AdminUserID, nil
}

// GetUserByEmail returns the admin user with the given email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (AdminUser, error) {
	var user AdminUser
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM admin_users
		WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminUser{}, ErrUserNotFound
		}
		return AdminUser{}, fmt.Errorf("querying admin user: %w", err)
	}
	return user, nil
}

// CreateUser creates an admin user with a hashed password. Used by the
// seed-admin command.
func (s *Service) CreateUser(ctx context.Context, email, password string) (AdminUser, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return AdminUser{}, err
	}

	user := AdminUser{ID: uuid.New(), Email: email, PasswordHash: hash}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO admin_users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		user.ID, user.Email, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return AdminUser{}, fmt.Errorf("creating admin user: %w", err)
	}

	s.logger.Info("admin user created", slog.String("email", email))

	return user, nil
}
