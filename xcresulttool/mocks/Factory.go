package mocks

import (
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/stretchr/testify/mock"
)

// Factory is a mock of the command.Factory interface.
type Factory struct {
	mock.Mock
}

func (_m *Factory) Create(name string, args []string, opts *command.Opts) command.Command {
	mockArgs := _m.Called(name, args, opts)
	return mockArgs.Get(0).(command.Command)
}
