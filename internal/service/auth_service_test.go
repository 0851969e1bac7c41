package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"writehub/internal/auth"
	apperrors "writehub/internal/errors"
	"writehub/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		userName      string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
		expectedMsg   string
	}{
		{
			name:     "successful registration",
			userName: "Alice",
			email:    " A@X.com ",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
					Run(func(args mock.Arguments) {
						args.Get(1).(*model.User).ID = uuid.New()
					}).
					Return(nil)
			},
		},
		{
			name:     "user already exists",
			userName: "Alice",
			email:    "a@x.com",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(&model.User{Email: "a@x.com"}, nil)
			},
			expectedError: apperrors.ErrDuplicateEmail,
		},
		{
			name:     "unique index race",
			userName: "Alice",
			email:    "a@x.com",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrDuplicateEmail,
		},
		{
			name:          "short name",
			userName:      " A ",
			email:         "a@x.com",
			password:      "secret1",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
			expectedMsg:   MsgNameTooShort,
		},
		{
			name:          "invalid email",
			userName:      "Alice",
			email:         "not-an-email",
			password:      "secret1",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
			expectedMsg:   MsgInvalidEmail,
		},
		{
			name:          "short password",
			userName:      "Alice",
			email:         "a@x.com",
			password:      "12345",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
			expectedMsg:   MsgPasswordTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := auth.NewJWTService("test-secret")
			service := NewAuthService(mockRepo, jwtService, new(MockTokenStore), quietLogger())
			user, token, err := service.Register(context.Background(), tt.userName, tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				if tt.expectedMsg != "" {
					assert.EqualError(t, err, tt.expectedMsg)
				}
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", user.Email)
				assert.Equal(t, tt.userName, user.Name)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.NotEqual(t, tt.password, user.PasswordHash)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.password)))

				claims, err := jwtService.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, user.ID.String(), claims.UserID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &model.User{ID: uuid.New(), Name: "Alice", Email: "a@x.com", PasswordHash: string(hashed)}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "a@x.com",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "a@x.com",
			password: "secret2",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(stored, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@x.com",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@x.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:          "missing password",
			email:         "a@x.com",
			password:      "",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:     "store failure",
			email:    "a@x.com",
			password: "secret1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("connection refused"))
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			jwtService := auth.NewJWTService("test-secret")
			service := NewAuthService(mockRepo, jwtService, new(MockTokenStore), quietLogger())

			user, token, err := service.Login(context.Background(), tt.email, tt.password)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			case tt.name == "store failure":
				assert.Error(t, err)
				assert.NotErrorIs(t, err, apperrors.ErrInvalidCredentials)
				assert.Empty(t, token)
			default:
				require.NoError(t, err)
				assert.Equal(t, stored.ID, user.ID)
				claims, err := jwtService.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, stored.ID.String(), claims.UserID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_VerifyPassword(t *testing.T) {
	service := NewAuthService(new(MockUserRepository), auth.NewJWTService("s"), new(MockTokenStore), quietLogger())
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	user := &model.User{PasswordHash: hash}

	assert.True(t, service.VerifyPassword(user, "secret1"))
	assert.False(t, service.VerifyPassword(user, "secret2"))
	assert.False(t, service.VerifyPassword(&model.User{}, "secret1"))
	assert.False(t, service.VerifyPassword(nil, "secret1"))
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	jwtService := auth.NewJWTService("test-secret").WithClock(func() time.Time { return now })
	token, err := jwtService.Issue(uuid.New())
	require.NoError(t, err)
	claims, err := jwtService.Verify(token)
	require.NoError(t, err)

	tokens := new(MockTokenStore)
	tokens.On("Revoke", mock.Anything, claims.ID, auth.TokenExpiry).Return(nil)

	service := NewAuthService(new(MockUserRepository), jwtService, tokens, quietLogger())
	assert.NoError(t, service.Logout(context.Background(), token))
	tokens.AssertExpectations(t)
}

func TestAuthService_LogoutIgnoresBadTokens(t *testing.T) {
	tokens := new(MockTokenStore)
	service := NewAuthService(new(MockUserRepository), auth.NewJWTService("test-secret"), tokens, quietLogger())

	assert.NoError(t, service.Logout(context.Background(), ""))
	assert.NoError(t, service.Logout(context.Background(), "not.a.token"))
	tokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_LogoutRevokeFailureIsNotFatal(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	token, err := jwtService.Issue(uuid.New())
	require.NoError(t, err)

	tokens := new(MockTokenStore)
	tokens.On("Revoke", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	service := NewAuthService(new(MockUserRepository), jwtService, tokens, quietLogger())
	assert.NoError(t, service.Logout(context.Background(), token))
}
