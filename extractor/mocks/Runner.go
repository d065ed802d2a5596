package mocks

import (
	"encoding/json"

	version "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/mock"
)

// Runner is a mock of the xcresulttool.Runner interface.
type Runner struct {
	mock.Mock
}

func (_m *Runner) CheckInstall() (*version.Version, error) {
	args := _m.Called()
	var toolVersion *version.Version
	if args.Get(0) != nil {
		toolVersion = args.Get(0).(*version.Version)
	}
	return toolVersion, args.Error(1)
}

func (_m *Runner) Tests(xcresultPth string) (json.RawMessage, error) {
	args := _m.Called(xcresultPth)
	var payload json.RawMessage
	if args.Get(0) != nil {
		payload = args.Get(0).(json.RawMessage)
	}
	return payload, args.Error(1)
}

func (_m *Runner) Activities(xcresultPth string, testID string) (json.RawMessage, error) {
	args := _m.Called(xcresultPth, testID)
	var payload json.RawMessage
	if args.Get(0) != nil {
		payload = args.Get(0).(json.RawMessage)
	}
	return payload, args.Error(1)
}
