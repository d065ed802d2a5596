package extractor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/xcresult-latency-metrics/extractor/mocks"
	"github.com/bitrise-steplib/xcresult-latency-metrics/xcresulttool"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const xcresultPth = "/tmp/Test.xcresult"

func Test_GivenTestCasesWithActivities_WhenExtracting_ThenReportsTheirMetrics(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Suite","children":[
			{"nodeType":"Test Case","nodeIdentifier":"StartupTests/testColdStart()"}
		]}
	]}`), nil)
	tool.On("Activities", xcresultPth, "StartupTests/testColdStart()").Return(json.RawMessage(`{"testRuns":[
		{"activities":[
			{"title":"Launch app","childActivities":[
				{"title":"Latency metric startup_to_tabbar=4.821s"}
			]}
		]}
	]}`), nil)

	// When
	report, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.NoError(t, err)
	require.Equal(t, Report{
		XCResultPath: xcresultPth,
		TestsScanned: 1,
		MetricCount:  1,
		Metrics:      map[string]float64{"startup_to_tabbar": 4.821},
		Errors:       []TestError{},
	}, report)
}

func Test_GivenOneFailingActivitiesQuery_WhenExtracting_ThenTheOtherTestCasesStillContribute(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Case","nodeIdentifier":"third"},
		{"nodeType":"Test Case","nodeIdentifier":"second"},
		{"nodeType":"Test Case","nodeIdentifier":"first"}
	]}`), nil)
	// The worklist is LIFO, so the processing order is first, second, third.
	tool.On("Activities", xcresultPth, "first").Return(activitiesPayload("Latency metric a=1.5s"), nil)
	tool.On("Activities", xcresultPth, "second").Return(nil, &xcresulttool.ExitStatusError{ExitCode: 65, Args: "xcrun xcresulttool"})
	tool.On("Activities", xcresultPth, "third").Return(activitiesPayload("Latency metric b=0.25s"), nil)

	// When
	report, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.NoError(t, err)
	require.Equal(t, 3, report.TestsScanned)
	require.Equal(t, map[string]float64{"a": 1.5, "b": 0.25}, report.Metrics)
	require.Equal(t, []TestError{
		{TestID: "second", Error: "xcresulttool activities failed with exit code 65"},
	}, report.Errors)
}

func Test_GivenDuplicateMetricNamesAcrossTestCases_WhenExtracting_ThenTheLastScannedTestCaseWins(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Case","nodeIdentifier":"scanned-second"},
		{"nodeType":"Test Case","nodeIdentifier":"scanned-first"}
	]}`), nil)
	tool.On("Activities", xcresultPth, "scanned-first").Return(activitiesPayload("Latency metric x=1.0s"), nil)
	tool.On("Activities", xcresultPth, "scanned-second").Return(activitiesPayload("Latency metric x=2.0s"), nil)

	// When
	report, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"x": 2.0}, report.Metrics)
}

func Test_GivenConcurrentExtraction_WhenExtracting_ThenTheReportMatchesTheSequentialOne(t *testing.T) {
	// Given
	setupTool := func() *mocks.Runner {
		tool := newToolMock()
		tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
			{"nodeType":"Test Case","nodeIdentifier":"d"},
			{"nodeType":"Test Case","nodeIdentifier":"c"},
			{"nodeType":"Test Case","nodeIdentifier":"b"},
			{"nodeType":"Test Case","nodeIdentifier":"a"}
		]}`), nil)
		tool.On("Activities", xcresultPth, "a").Return(activitiesPayload("Latency metric shared=1.0s"), nil)
		tool.On("Activities", xcresultPth, "b").Return(activitiesPayload("Latency metric shared=2.0s"), nil)
		tool.On("Activities", xcresultPth, "c").Return(nil, &xcresulttool.ExitStatusError{ExitCode: 64})
		tool.On("Activities", xcresultPth, "d").Return(activitiesPayload("Latency metric own=0.5s"), nil)
		return tool
	}

	// When
	sequential, err := NewExtractor(log.NewLogger(), setupTool()).Extract(xcresultPth, 1)
	require.NoError(t, err)
	concurrent, err := NewExtractor(log.NewLogger(), setupTool()).Extract(xcresultPth, 4)
	require.NoError(t, err)

	// Then
	require.Equal(t, sequential, concurrent)
	require.Equal(t, map[string]float64{"shared": 2.0, "own": 0.5}, concurrent.Metrics)
}

func Test_GivenMissingTestNodes_WhenExtracting_ThenFailsWithoutAReport(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"devices":[]}`), nil)

	// When
	_, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.EqualError(t, err, "unable to parse test nodes from xcresult")
	tool.AssertNotCalled(t, "Activities", mock.Anything, mock.Anything)
}

func Test_GivenNonSequenceTestNodes_WhenExtracting_ThenFailsWithoutAReport(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":"oops"}`), nil)

	// When
	_, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.EqualError(t, err, "unable to parse test nodes from xcresult")
}

func Test_GivenEmptyTestNodes_WhenExtracting_ThenReportsZeroScannedTests(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[]}`), nil)

	// When
	report, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.NoError(t, err)
	require.Equal(t, Report{
		XCResultPath: xcresultPth,
		TestsScanned: 0,
		MetricCount:  0,
		Metrics:      map[string]float64{},
		Errors:       []TestError{},
	}, report)
}

func Test_GivenTestCaseWithoutTestRuns_WhenExtracting_ThenSkipsItSilently(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Case","nodeIdentifier":"no-runs"}
	]}`), nil)
	tool.On("Activities", xcresultPth, "no-runs").Return(json.RawMessage(`{}`), nil)

	// When
	report, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.NoError(t, err)
	require.Equal(t, 1, report.TestsScanned)
	require.Empty(t, report.Metrics)
	require.Empty(t, report.Errors)
}

func Test_GivenNonExitStatusActivitiesFailure_WhenExtracting_ThenFails(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Case","nodeIdentifier":"broken"}
	]}`), nil)
	tool.On("Activities", xcresultPth, "broken").Return(nil, errors.New("xcrun is not installed"))

	// When
	_, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.Error(t, err)
	require.Contains(t, err.Error(), "xcrun is not installed")
}

func Test_GivenUnparseableActivitiesPayload_WhenExtracting_ThenFails(t *testing.T) {
	// Given
	tool := newToolMock()
	tool.On("Tests", xcresultPth).Return(json.RawMessage(`{"testNodes":[
		{"nodeType":"Test Case","nodeIdentifier":"garbled"}
	]}`), nil)
	tool.On("Activities", xcresultPth, "garbled").Return(json.RawMessage(`not json`), nil)

	// When
	_, err := NewExtractor(log.NewLogger(), tool).Extract(xcresultPth, 1)

	// Then
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing activities of garbled")
}

func newToolMock() *mocks.Runner {
	return &mocks.Runner{}
}

func activitiesPayload(titles ...string) json.RawMessage {
	activities := make([]map[string]interface{}, len(titles))
	for i, title := range titles {
		activities[i] = map[string]interface{}{"title": title}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"testRuns": []map[string]interface{}{
			{"activities": activities},
		},
	})
	if err != nil {
		panic(err)
	}
	return payload
}
