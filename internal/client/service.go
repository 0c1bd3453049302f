package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken occurs when registration reuses an existing email address.
var ErrEmailTaken = errors.New("email already registered")

// Service manages client registration.
type Service struct {
	repo Repository
}

// NewService creates a new client service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to register a client.
type RegisterInput struct {
	Email    string
	Name     string
	Surname  string
	Password string
}

// Register creates a client, enforcing uniqueness by email and storing a
// hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Client, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Client{}, errors.New("valid email is required")
	}
	if len(input.Password) < 8 {
		return Client{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return Client{}, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if !errors.Is(err, ErrNotFound) {
		return Client{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Client{}, err
	}

	c := Client{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         input.Name,
		Surname:      input.Surname,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

// Get retrieves a client by identifier.
func (s *Service) Get(ctx context.Context, id string) (Client, error) {
	return s.repo.FindByID(ctx, id)
}
