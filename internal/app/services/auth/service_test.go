package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainuser "valikoo/internal/domain/user"
	"valikoo/internal/infra/security"
	"valikoo/internal/infra/storage/memory"
)

func newTestService() *Service {
	return &Service{
		Users:       memory.NewUserRepository(),
		Passwords:   security.BcryptHasher{},
		Tokens:      security.TokenManager{Secret: []byte("test-secret"), Issuer: "valikoo-test"},
		TokenTTL:    time.Hour,
		RememberTTL: 24 * time.Hour,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Email:    "  Alice@Example.COM ",
		FullName: "Alice Doe",
		Password: "correct horse",
		Role:     domainuser.RoleTraveler,
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, domainuser.RoleTraveler, user.Role)
	require.True(t, user.IsActive)
	require.NotEqual(t, "correct horse", user.PasswordHash)

	result, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, user.ID, result.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{
		Email:    "ALICE@example.com",
		FullName: "Alice Again",
		Password: "correct horse",
	})
	require.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{FullName: "Alice", Password: "correct horse"})
	require.ErrorIs(t, err, domainuser.ErrEmailRequired)

	_, err = svc.Register(ctx, RegisterParams{
		Email:    "short@example.com",
		FullName: "Alice",
		Password: "short",
	})
	require.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = svc.Register(ctx, RegisterParams{
		Email:    "bad-role@example.com",
		FullName: "Alice",
		Password: "correct horse",
		Role:     "landlord",
	})
	require.ErrorIs(t, err, domainuser.ErrInvalidRole)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginParams{Email: "nobody@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveTokenRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "correct horse",
		Role:     domainuser.RoleBuyer,
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)

	_, err = svc.ResolveToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	userID, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestResolveTokenInactiveUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Email:    "alice@example.com",
		FullName: "Alice",
		Password: "correct horse",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)

	user.IsActive = false
	require.NoError(t, svc.Users.Save(ctx, user))

	_, err = svc.ResolveToken(ctx, result.Token)
	require.ErrorIs(t, err, ErrUserInactive)

	_, err = svc.Login(ctx, LoginParams{Email: "alice@example.com", Password: "correct horse"})
	require.ErrorIs(t, err, ErrUserInactive)
}
