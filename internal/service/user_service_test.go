package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "writehub/internal/errors"
	"writehub/internal/model"
)

func strPtr(s string) *string { return &s }

func TestUserService_GetUser(t *testing.T) {
	id := uuid.New()
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Alice", PasswordHash: "hash"}, nil)

	svc := NewUserService(repo, nil)
	user, err := svc.GetUser(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.PasswordHash)
	repo.AssertExpectations(t)
}

func TestUserService_GetUserNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	_, err := NewUserService(repo, nil).GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_GetUserStoreFailure(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewUserService(repo, nil).GetUser(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	id := uuid.New()
	oldHash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name          string
		update        ProfileUpdate
		setupMock     func(*MockUserRepository)
		expectedError error
		check         func(*testing.T, *model.User)
	}{
		{
			name:   "name only keeps email",
			update: ProfileUpdate{Name: strPtr("  Alice L ")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Alice", Email: "a@x.com", PasswordHash: string(oldHash)}, nil)
				m.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Name == "Alice L" && u.Email == "a@x.com" && u.PasswordHash == string(oldHash)
				})).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "Alice L", u.Name)
				assert.Empty(t, u.PasswordHash)
			},
		},
		{
			name:   "empty fields are ignored",
			update: ProfileUpdate{Name: strPtr(""), Email: strPtr(""), Password: strPtr("")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Alice", Email: "a@x.com"}, nil)
				m.On("Update", mock.Anything, mock.Anything).Return(nil)
			},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "Alice", u.Name)
				assert.Equal(t, "a@x.com", u.Email)
			},
		},
		{
			name:   "password is re-hashed",
			update: ProfileUpdate{Password: strPtr("newsecret")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Alice", Email: "a@x.com", PasswordHash: string(oldHash)}, nil)
				m.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newsecret")) == nil
				})).Return(nil)
			},
		},
		{
			name:   "email taken by another user",
			update: ProfileUpdate{Email: strPtr("b@x.com")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Email: "a@x.com"}, nil)
				m.On("FindByEmail", mock.Anything, "b@x.com").Return(&model.User{ID: uuid.New(), Email: "b@x.com"}, nil)
			},
			expectedError: apperrors.ErrDuplicateEmail,
		},
		{
			name:          "short name",
			update:        ProfileUpdate{Name: strPtr("A")},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "invalid email",
			update:        ProfileUpdate{Email: strPtr("nope")},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "short password",
			update:        ProfileUpdate{Password: strPtr("123")},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:   "unknown user",
			update: ProfileUpdate{Name: strPtr("Alice")},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo)

			user, err := NewUserService(repo, nil).UpdateProfile(context.Background(), id, tt.update)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				if tt.check != nil {
					tt.check(t, user)
				}
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_ListUsers(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("List", mock.Anything).Return([]model.User{{Name: "Alice"}, {Name: "Bob"}}, nil)

	users, err := NewUserService(repo, nil).ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
