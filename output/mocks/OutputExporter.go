package mocks

import "github.com/stretchr/testify/mock"

// OutputExporter is a mock of the step output exporter used by the output package.
type OutputExporter struct {
	mock.Mock
}

func (_m *OutputExporter) ExportOutput(key string, value string) error {
	args := _m.Called(key, value)
	return args.Error(0)
}
