package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainuser "valikoo/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUserInactive       = errors.New("auth: user inactive")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenCodec interface {
	Issue(userID, role string, ttl time.Duration) (string, error)
	Verify(token string) (userID, role string, err error)
}

type Service struct {
	Users       domainuser.Repository
	Passwords   PasswordHasher
	Tokens      TokenCodec
	TokenTTL    time.Duration
	RememberTTL time.Duration
	Logger      *slog.Logger
}

type RegisterParams struct {
	Email    string
	FullName string
	Password string
	Role     domainuser.Role
}

type LoginParams struct {
	Email      string
	Password   string
	RememberMe bool
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     params.FullName,
		PasswordHash: hash,
		Role:         params.Role,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	ttl := s.TokenTTL
	if params.RememberMe && s.RememberTTL > ttl {
		ttl = s.RememberTTL
	}
	token, err := s.Tokens.Issue(user.ID, string(user.Role), ttl)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ResolveToken verifies a bearer token and loads the user it references. Used
// by both the HTTP middleware and the live channel handshake.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	userID, _, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.Users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// Authenticate implements the realtime Authenticator contract.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	user, err := s.ResolveToken(ctx, token)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	if s.Users == nil || s.Passwords == nil || s.Tokens == nil {
		return errors.New("auth: service missing dependencies")
	}
	return nil
}
