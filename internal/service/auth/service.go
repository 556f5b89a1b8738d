package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatlink-backend/internal/domain"
	apperrors "chatlink-backend/pkg/errors"
	"chatlink-backend/pkg/jwt"
	"chatlink-backend/pkg/logger"
	"chatlink-backend/pkg/password"
)

// Store provides user account persistence.
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Locker tracks failed login attempts and blocks locked accounts.
type Locker interface {
	IsLocked(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Clear(ctx context.Context, identifier string) error
}

// Service handles registration and authentication. New accounts start
// in pending approval; only approved accounts can log in.
type Service struct {
	store      Store
	jwtManager *jwt.JWTManager
	locker     Locker
}

// NewService creates a new auth service. locker may be nil, in which
// case failed login attempts are not throttled.
func NewService(store Store, jwtManager *jwt.JWTManager, locker Locker) *Service {
	return &Service{
		store:      store,
		jwtManager: jwtManager,
		locker:     locker,
	}
}

// TokenPair contains access and refresh tokens issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginOutput contains the authenticated user and their tokens.
type LoginOutput struct {
	User   *domain.UserResponse `json:"user"`
	Tokens *TokenPair           `json:"tokens"`
}

// Register creates a new account in pending approval state. The user
// cannot log in until an administrator approves the account.
func (s *Service) Register(ctx context.Context, input *domain.UserCreate) (*domain.UserResponse, error) {
	if err := password.Validate(input.Password, password.DefaultRequirements()); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if existing != nil {
		return nil, apperrors.EmailExistsError()
	}

	existing, err = s.store.GetUserByUsername(ctx, input.Username)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if existing != nil {
		return nil, apperrors.ConflictError("Username already taken")
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, apperrors.InternalError("Failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		UserID:         uuid.New(),
		Email:          email,
		Username:       input.Username,
		PasswordHash:   hash,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		ApprovalStatus: domain.ApprovalPending,
		Status:         "offline",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("User registered",
		zap.String("user_id", user.UserID.String()),
		zap.String("username", user.Username))

	return user.ToResponse(), nil
}

// Login authenticates an approved account and issues a token pair.
func (s *Service) Login(ctx context.Context, input *domain.UserLogin) (*LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if s.locker != nil {
		locked, err := s.locker.IsLocked(ctx, email)
		if err != nil {
			logger.Warn("lockout check failed, allowing attempt", zap.Error(err))
		} else if locked {
			return nil, apperrors.AccountLockedError()
		}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if user == nil {
		s.recordFailedLogin(ctx, email)
		return nil, apperrors.InvalidCredentialsError()
	}

	if !password.Verify(input.Password, user.PasswordHash) {
		s.recordFailedLogin(ctx, email)
		return nil, apperrors.InvalidCredentialsError()
	}

	if !user.IsApproved() {
		return nil, apperrors.ForbiddenError("Account is pending approval")
	}

	if s.locker != nil {
		if err := s.locker.Clear(ctx, email); err != nil {
			logger.Warn("failed to clear lockout counter", zap.Error(err))
		}
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	logger.Info("User logged in",
		zap.String("user_id", user.UserID.String()))

	return &LoginOutput{
		User:   user.ToResponse(),
		Tokens: tokens,
	}, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, email string) {
	if s.locker == nil {
		return
	}
	if err := s.locker.RecordFailure(ctx, email); err != nil {
		logger.Warn("failed to record login failure", zap.Error(err))
	}
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginOutput, error) {
	userID, err := s.jwtManager.ExtractUserID(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidTokenError("Invalid refresh token")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if user == nil {
		return nil, apperrors.InvalidTokenError("Invalid refresh token")
	}
	if !user.IsApproved() {
		return nil, apperrors.ForbiddenError("Account is pending approval")
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		User:   user.ToResponse(),
		Tokens: tokens,
	}, nil
}

func (s *Service) issueTokens(user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.UserID, user.Email, user.Username)
	if err != nil {
		return nil, apperrors.InternalError("Failed to generate access token")
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.UserID)
	if err != nil {
		return nil, apperrors.InternalError("Failed to generate refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
