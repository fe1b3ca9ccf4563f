package account

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/simpla/backend/pkg/api"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, u *api.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*api.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.User), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(subject string, roles []string) (string, error) {
	args := m.Called(subject, roles)
	return args.String(0), args.Error(1)
}

// countingHasher records how often Verify ran against an empty hash.
type countingHasher struct {
	PasswordHasher
	emptyHashChecks int
}

func (h *countingHasher) Verify(plain, hash string) bool {
	if hash == "" {
		h.emptyHashChecks++
	}
	return h.PasswordHasher.Verify(plain, hash)
}
