package auth

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type RefreshTokenRepoMock struct{ mock.Mock }

func (m *RefreshTokenRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(*model.RefreshToken)
	return t, args.Error(1)
}

func (m *RefreshTokenRepoMock) Revoke(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type staticIDGen struct{}

func (g *staticIDGen) NewID() string { return "rt-1" }

type staticIssuer struct{}

func (i *staticIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	return "token", now.Add(15 * time.Minute), nil
}

// =====================
// Register
// =====================

func TestRegister_InvalidEmail(t *testing.T) {
	uc := NewRegisterUserUsecase(new(UserRepoMock), NewBcryptPasswordHasher(4), &fixedClock{t: time.Now()})

	_, err := uc.Execute(context.Background(), RegisterUserInput{Email: "not-an-email", Password: "longenoughpass"})
	assert.ErrorIs(t, err, ErrInvalidEmailFormat)
}

func TestRegister_PasswordTooShort(t *testing.T) {
	uc := NewRegisterUserUsecase(new(UserRepoMock), NewBcryptPasswordHasher(4), &fixedClock{t: time.Now()})

	_, err := uc.Execute(context.Background(), RegisterUserInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegister_WeakPassword(t *testing.T) {
	uc := NewRegisterUserUsecase(new(UserRepoMock), NewBcryptPasswordHasher(4), &fixedClock{t: time.Now()})

	_, err := uc.Execute(context.Background(), RegisterUserInput{Email: "a@example.com", Password: "123456789012"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := new(UserRepoMock)
	uc := NewRegisterUserUsecase(userRepo, NewBcryptPasswordHasher(4), &fixedClock{t: time.Now()})

	userRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 1, Email: "a@example.com"}, nil)

	_, err := uc.Execute(context.Background(), RegisterUserInput{Email: "a@example.com", Password: "longenoughpass"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_Success_DoesNotReturnHash(t *testing.T) {
	userRepo := new(UserRepoMock)
	uc := NewRegisterUserUsecase(userRepo, NewBcryptPasswordHasher(4), &fixedClock{t: time.Now()})

	userRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 平文のまま保存していないこと
		return u.Email == "a@example.com" && u.PasswordHash != "" && u.PasswordHash != "longenoughpass" &&
			u.Role == model.RoleUser && u.IsActive
	})).Return(nil)

	out, err := uc.Execute(context.Background(), RegisterUserInput{Email: "a@example.com", Password: "longenoughpass"})
	assert.NoError(t, err)
	assert.Empty(t, out.User.PasswordHash)

	userRepo.AssertExpectations(t)
}

// =====================
// Login
// =====================

func newLoginUsecaseForTest(userRepo *UserRepoMock, rtRepo *RefreshTokenRepoMock) *LoginUsecase {
	return NewLoginUsecase(
		userRepo, rtRepo,
		NewBcryptPasswordVerifier(), &staticIssuer{}, &staticIDGen{},
		&fixedClock{t: time.Now()}, 14*24*time.Hour,
	)
}

func TestLogin_WrongPassword_DoesNotCreateRefresh(t *testing.T) {
	userRepo := new(UserRepoMock)
	rtRepo := new(RefreshTokenRepoMock)
	uc := newLoginUsecaseForTest(userRepo, rtRepo)

	hasher := NewBcryptPasswordHasher(4)
	hashed, _ := hasher.Hash("correct-password")

	userRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 1, Email: "a@example.com", PasswordHash: hashed, IsActive: true}, nil)

	_, _, err := uc.Execute(context.Background(), LoginInput{Email: "a@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	rtRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmail(t *testing.T) {
	userRepo := new(UserRepoMock)
	uc := newLoginUsecaseForTest(userRepo, new(RefreshTokenRepoMock))

	userRepo.On("FindByEmail", mock.Anything, "no@example.com").
		Return(nil, repository.ErrUserNotFound)

	_, _, err := uc.Execute(context.Background(), LoginInput{Email: "no@example.com", Password: "whatever12345"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveUser(t *testing.T) {
	userRepo := new(UserRepoMock)
	uc := newLoginUsecaseForTest(userRepo, new(RefreshTokenRepoMock))

	userRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 1, IsActive: false}, nil)

	_, _, err := uc.Execute(context.Background(), LoginInput{Email: "a@example.com", Password: "whatever12345"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLogin_Success(t *testing.T) {
	userRepo := new(UserRepoMock)
	rtRepo := new(RefreshTokenRepoMock)
	uc := newLoginUsecaseForTest(userRepo, rtRepo)

	hasher := NewBcryptPasswordHasher(4)
	hashed, _ := hasher.Hash("correct-password")

	userRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 1, Email: "a@example.com", PasswordHash: hashed, Role: model.RoleUser, IsActive: true}, nil)
	rtRepo.On("Create", mock.Anything, mock.MatchedBy(func(rt *model.RefreshToken) bool {
		// 平文トークンをそのまま保存していないこと
		return rt.UserID == 1 && rt.TokenHash != "" && rt.ID == "rt-1"
	})).Return(nil)
	userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	out, side, err := uc.Execute(context.Background(), LoginInput{Email: "a@example.com", Password: "correct-password"})
	assert.NoError(t, err)
	assert.Equal(t, "token", out.Token.AccessToken)
	assert.Empty(t, out.User.PasswordHash)
	assert.NotEmpty(t, side.PlainRefreshToken)

	userRepo.AssertExpectations(t)
	rtRepo.AssertExpectations(t)
}
