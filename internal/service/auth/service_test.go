package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatlink-backend/internal/domain"
	apperrors "chatlink-backend/pkg/errors"
	"chatlink-backend/pkg/jwt"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/password"
)

func init() {
	logger.InitDefault()
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) IsLocked(ctx context.Context, identifier string) (bool, error) {
	args := m.Called(ctx, identifier)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) RecordFailure(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}

func (m *MockLocker) Clear(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}

func testJWTManager() *jwt.JWTManager {
	return jwt.NewJWTManager("test-secret-key-that-is-long-enough", 15*time.Minute, 24*time.Hour)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	var createdUser *domain.User

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "alice@example.com").Return(nil, nil)
	mockStore.On("GetUserByUsername", ctx, "alice").Return(nil, nil)
	mockStore.On("CreateUser", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			createdUser = args.Get(1).(*domain.User)
		}).Return(nil)

	service := NewService(mockStore, testJWTManager(), nil)

	resp, err := service.Register(ctx, &domain.UserCreate{
		Email:     "Alice@Example.com",
		Username:  "alice",
		Password:  "Str0ng!Passw0rd",
		FirstName: "Alice",
		LastName:  "Smith",
	})

	assert.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.NotNil(t, createdUser)
	assert.Equal(t, "alice@example.com", createdUser.Email)
	assert.Equal(t, domain.ApprovalPending, createdUser.ApprovalStatus)
	assert.NotEqual(t, "Str0ng!Passw0rd", createdUser.PasswordHash)
}

func TestRegister_EmailExists(t *testing.T) {
	ctx := context.Background()

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "alice@example.com").
		Return(&domain.User{UserID: uuid.New()}, nil)

	service := NewService(mockStore, testJWTManager(), nil)

	_, err := service.Register(ctx, &domain.UserCreate{
		Email:     "alice@example.com",
		Username:  "alice2",
		Password:  "Str0ng!Passw0rd",
		FirstName: "Alice",
		LastName:  "Smith",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmailExists, apperrors.GetAppError(err).Code)
	mockStore.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestRegister_WeakPassword(t *testing.T) {
	service := NewService(new(MockStore), testJWTManager(), nil)

	_, err := service.Register(context.Background(), &domain.UserCreate{
		Email:     "bob@example.com",
		Username:  "bob",
		Password:  "short",
		FirstName: "Bob",
		LastName:  "Jones",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetAppError(err).Code)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	hash, err := password.Hash("Str0ng!Passw0rd")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:         uuid.New(),
		Email:          "alice@example.com",
		Username:       "alice",
		PasswordHash:   hash,
		ApprovalStatus: domain.ApprovalApproved,
	}

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil)

	service := NewService(mockStore, testJWTManager(), nil)

	out, err := service.Login(ctx, &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "Str0ng!Passw0rd",
	})

	assert.NoError(t, err)
	assert.Equal(t, user.UserID, out.User.UserID)
	assert.NotEmpty(t, out.Tokens.AccessToken)
	assert.NotEmpty(t, out.Tokens.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()

	hash, err := password.Hash("Str0ng!Passw0rd")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:         uuid.New(),
		Email:          "alice@example.com",
		PasswordHash:   hash,
		ApprovalStatus: domain.ApprovalApproved,
	}

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil)

	service := NewService(mockStore, testJWTManager(), nil)

	_, err = service.Login(ctx, &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidCreds, apperrors.GetAppError(err).Code)
}

func TestLogin_LockedAccount(t *testing.T) {
	ctx := context.Background()

	mockLocker := new(MockLocker)
	mockLocker.On("IsLocked", ctx, "alice@example.com").Return(true, nil)

	mockStore := new(MockStore)

	service := NewService(mockStore, testJWTManager(), mockLocker)

	_, err := service.Login(ctx, &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "Str0ng!Passw0rd",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAccountLocked, apperrors.GetAppError(err).Code)
	mockStore.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
}

func TestLogin_FailureRecordedAndClearedOnSuccess(t *testing.T) {
	ctx := context.Background()

	hash, err := password.Hash("Str0ng!Passw0rd")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:         uuid.New(),
		Email:          "alice@example.com",
		PasswordHash:   hash,
		ApprovalStatus: domain.ApprovalApproved,
	}

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil)

	mockLocker := new(MockLocker)
	mockLocker.On("IsLocked", ctx, "alice@example.com").Return(false, nil)
	mockLocker.On("RecordFailure", ctx, "alice@example.com").Return(nil)
	mockLocker.On("Clear", ctx, "alice@example.com").Return(nil)

	service := NewService(mockStore, testJWTManager(), mockLocker)

	_, err = service.Login(ctx, &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.Error(t, err)
	mockLocker.AssertCalled(t, "RecordFailure", ctx, "alice@example.com")

	_, err = service.Login(ctx, &domain.UserLogin{
		Email:    "alice@example.com",
		Password: "Str0ng!Passw0rd",
	})
	assert.NoError(t, err)
	mockLocker.AssertCalled(t, "Clear", ctx, "alice@example.com")
}

func TestLogin_PendingApproval(t *testing.T) {
	ctx := context.Background()

	hash, err := password.Hash("Str0ng!Passw0rd")
	assert.NoError(t, err)

	user := &domain.User{
		UserID:         uuid.New(),
		Email:          "carol@example.com",
		PasswordHash:   hash,
		ApprovalStatus: domain.ApprovalPending,
	}

	mockStore := new(MockStore)
	mockStore.On("GetUserByEmail", ctx, "carol@example.com").Return(user, nil)

	service := NewService(mockStore, testJWTManager(), nil)

	_, err = service.Login(ctx, &domain.UserLogin{
		Email:    "carol@example.com",
		Password: "Str0ng!Passw0rd",
	})

	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetAppError(err).Code)
}
