package mocks

import "github.com/stretchr/testify/mock"

// Command is a mock of the command.Command interface.
type Command struct {
	mock.Mock
}

func (_m *Command) PrintableCommandArgs() string {
	args := _m.Called()
	return args.String(0)
}

func (_m *Command) Run() error {
	args := _m.Called()
	return args.Error(0)
}

func (_m *Command) RunAndReturnExitCode() (int, error) {
	args := _m.Called()
	return args.Int(0), args.Error(1)
}

func (_m *Command) RunAndReturnTrimmedOutput() (string, error) {
	args := _m.Called()
	return args.String(0), args.Error(1)
}

func (_m *Command) RunAndReturnTrimmedCombinedOutput() (string, error) {
	args := _m.Called()
	return args.String(0), args.Error(1)
}

func (_m *Command) Start() error {
	args := _m.Called()
	return args.Error(0)
}

func (_m *Command) Wait() error {
	args := _m.Called()
	return args.Error(0)
}
