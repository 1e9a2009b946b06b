package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkravets/filevault"
)

// Service handles registration and login. Passwords are only ever persisted
// as bcrypt hashes.
type Service struct {
	users     filevault.UserRepo
	jwtSecret []byte
	tokenTTL  time.Duration
}

// Config holds configuration options for Service.
type Config struct {
	Secret   string
	TokenTTL time.Duration // Validity of issued tokens (default: 24h)
}

func NewService(users filevault.UserRepo, cfg Config) (*Service, error) {
	if users == nil {
		return nil, errors.New("new auth service: user repo is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("new auth service: jwt secret is required")
	}

	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	return &Service{
		users:     users,
		jwtSecret: []byte(cfg.Secret),
		tokenTTL:  tokenTTL,
	}, nil
}

// Register creates a new user with a bcrypt-hashed password. A taken username
// yields filevault.ErrConflict.
func (s *Service) Register(ctx context.Context, username, password string) (filevault.User, error) {
	if username == "" {
		return filevault.User{}, fmt.Errorf("register: %w: username cannot be empty", filevault.ErrInvalidInput)
	}
	if password == "" {
		return filevault.User{}, fmt.Errorf("register: %w: password cannot be empty", filevault.ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return filevault.User{}, fmt.Errorf("register: %w", err)
	}

	user, err := s.users.Create(ctx, filevault.User{Username: username, PasswordHash: hash})
	if err != nil {
		return filevault.User{}, fmt.Errorf("register: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and mints a token for the user. A missing
// user and a wrong password both yield filevault.ErrUnauthorized so the
// response does not leak which usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, filevault.ErrNotFound) {
			return "", fmt.Errorf("login: %w", filevault.ErrUnauthorized)
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("login: %w", filevault.ErrUnauthorized)
	}

	token, err := GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	return token, nil
}

// VerifyToken validates a bearer token and returns the principal it
// identifies. Used by the HTTP middleware.
func (s *Service) VerifyToken(tokenString string) (filevault.Principal, error) {
	userID, err := UserIDFromToken(tokenString, s.jwtSecret)
	if err != nil {
		return filevault.Principal{}, err
	}
	return filevault.Principal{UserID: userID}, nil
}

// HashPassword returns the bcrypt hash of a password. Exposed for the
// adduser command, which inserts users without going through Register.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
