package service

import (
	"context"
	"testing"
	"time"

	"farmapos/internal/config"
	"farmapos/internal/domain"
	"farmapos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Map-backed repositories for auth tests
type mockUserRepository struct {
	users  map[string]*domain.User
	perms  map[int64][]string
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[string]*domain.User),
		perms:  make(map[int64][]string),
		nextID: 1,
	}
}

func (m *mockUserRepository) Create(_ context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return &domain.IntegrityError{Constraint: "users.email"}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Permissions(_ context.Context, roleID int64) ([]string, error) {
	return m.perms[roleID], nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(_ context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7}
}

func newAuthFixture(t *testing.T) (UserService, *mockUserRepository, *mockRefreshTokenRepository) {
	t.Helper()
	userRepo := newMockUserRepository()
	tokenRepo := newMockRefreshTokenRepository()
	return NewUserService(userRepo, tokenRepo, testJWTConfig()), userRepo, tokenRepo
}

func seedAccount(t *testing.T, svc UserService, userRepo *mockUserRepository, roleID int64, perms []string) *domain.User {
	t.Helper()
	userRepo.perms[roleID] = perms
	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		RoleID:    roleID,
		FirstName: "Ana",
		LastName:  "Ruiz",
		Email:     "ana@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	user.RoleName = "cashier"
	user.Active = true
	return user
}

func TestLogin_TokenCarriesPermissionSet(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	seedAccount(t, svc, userRepo, 2, []string{"sales.create", "sales.view"})

	accessToken, refreshToken, user, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, refreshToken)
	assert.Equal(t, "cashier", user.RoleName)

	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "cashier", claims.Role)
	assert.ElementsMatch(t, []string{"sales.create", "sales.view"}, claims.Permissions)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	seedAccount(t, svc, userRepo, 2, nil)

	_, _, _, err := svc.Login(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	user := seedAccount(t, svc, userRepo, 2, nil)
	user.Active = false

	_, _, _, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestRefreshToken_IssuesFreshAccessToken(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	user := seedAccount(t, svc, userRepo, 2, []string{"sales.create"})

	_, refreshToken, _, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	require.NoError(t, err)

	// Permission set changed since login; the refreshed token reflects it
	userRepo.perms[2] = []string{"sales.create", "purchases.create"}

	accessToken, err := svc.RefreshToken(context.Background(), refreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.ElementsMatch(t, []string{"sales.create", "purchases.create"}, claims.Permissions)
}

func TestLogout_RevokedTokenCannotRefresh(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	seedAccount(t, svc, userRepo, 2, nil)

	_, refreshToken, _, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), refreshToken))

	_, err = svc.RefreshToken(context.Background(), refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_UnknownTokenIsANoop(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	assert.NoError(t, svc.Logout(context.Background(), "never-issued"))
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	claims := &Claims{
		UserID: 1,
		Role:   "cashier",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 1})
	signed, err := token.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestProperty_PasswordsAreNeverStoredInPlaintext(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("created accounts hold bcrypt hashes, not the password", prop.ForAll(
		func(password string) bool {
			userRepo := newMockUserRepository()
			tokenRepo := newMockRefreshTokenRepository()
			svc := NewUserService(userRepo, tokenRepo, testJWTConfig())

			user, err := svc.CreateUser(context.Background(), CreateUserInput{
				RoleID:    1,
				FirstName: "Test",
				LastName:  "User",
				Email:     "test@example.com",
				Password:  password,
			})
			if err != nil {
				return true
			}

			if user.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) >= 8 && len(s) <= 64 }),
	))

	properties.TestingRun(t)
}
