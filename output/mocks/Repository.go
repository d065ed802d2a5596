package mocks

import "github.com/stretchr/testify/mock"

// Repository is a mock of the env.Repository interface.
type Repository struct {
	mock.Mock
}

func (_m *Repository) Get(key string) string {
	args := _m.Called(key)
	return args.String(0)
}

func (_m *Repository) Set(key string, value string) error {
	args := _m.Called(key, value)
	return args.Error(0)
}

func (_m *Repository) Unset(key string) error {
	args := _m.Called(key)
	return args.Error(0)
}

func (_m *Repository) List() []string {
	args := _m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
