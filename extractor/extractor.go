package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-xcode/xcodeproject/serialized"
	"github.com/bitrise-steplib/xcresult-latency-metrics/metrics"
	"github.com/bitrise-steplib/xcresult-latency-metrics/xcresulttool"
)

// Report is the final extraction output, written as JSON.
type Report struct {
	XCResultPath string             `json:"xcresult_path"`
	TestsScanned int                `json:"tests_scanned"`
	MetricCount  int                `json:"metric_count"`
	Metrics      map[string]float64 `json:"metrics"`
	Errors       []TestError        `json:"errors"`
}

// TestError pairs a test identifier with the reason its activities could not be scanned.
type TestError struct {
	TestID string `json:"test_id"`
	Error  string `json:"error"`
}

// Extractor mines latency metric markers out of an .xcresult bundle.
type Extractor struct {
	logger log.Logger
	tool   xcresulttool.Runner
}

// NewExtractor ...
func NewExtractor(logger log.Logger, tool xcresulttool.Runner) Extractor {
	return Extractor{
		logger: logger,
		tool:   tool,
	}
}

// Extract queries the bundle's test tree, collects the leaf test case identifiers and scans
// every test case's activities for latency metric markers.
//
// A test case whose activities query exits nonzero is recorded in the report's error list and
// does not abort the run. Everything else (an unusable test tree, an unparseable activities
// payload) is fatal and no report is produced.
//
// concurrency caps the number of parallel activities queries. Per-test results are merged in
// collection order after all queries finished, so the report is identical for any concurrency
// value, including the duplicate metric name case where the last scanned value wins.
func (e Extractor) Extract(xcresultPth string, concurrency int) (Report, error) {
	payload, err := e.tool.Tests(xcresultPth)
	if err != nil {
		return Report{}, fmt.Errorf("fetching the test tree: %s", err)
	}

	var testsDocument serialized.Object
	if err := json.Unmarshal(payload, &testsDocument); err != nil {
		return Report{}, fmt.Errorf("parsing the test tree: %s", err)
	}

	testNodesValue, err := testsDocument.Value("testNodes")
	if err != nil {
		return Report{}, errors.New("unable to parse test nodes from xcresult")
	}
	testNodes, ok := metrics.ObjectSlice(testNodesValue)
	if !ok {
		return Report{}, errors.New("unable to parse test nodes from xcresult")
	}

	testIDs := metrics.CollectTestIDs(testNodes)
	e.logger.Debugf("Found %d test cases", len(testIDs))

	results, err := e.scanTestCases(xcresultPth, testIDs, concurrency)
	if err != nil {
		return Report{}, err
	}

	metricMapping := map[string]float64{}
	testErrors := []TestError{}
	for _, result := range results {
		if result.testError != nil {
			testErrors = append(testErrors, *result.testError)
			continue
		}
		for name, value := range result.metrics {
			metricMapping[name] = value
		}
	}

	return Report{
		XCResultPath: xcresultPth,
		TestsScanned: len(testIDs),
		MetricCount:  len(metricMapping),
		Metrics:      metricMapping,
		Errors:       testErrors,
	}, nil
}

type testCaseResult struct {
	metrics   map[string]float64
	testError *TestError
	fatal     error
}

func (e Extractor) scanTestCases(xcresultPth string, testIDs []string, concurrency int) ([]testCaseResult, error) {
	results := make([]testCaseResult, len(testIDs))

	if concurrency < 2 {
		for i, testID := range testIDs {
			results[i] = e.scanTestCase(xcresultPth, testID)
			if results[i].fatal != nil {
				return nil, results[i].fatal
			}
		}
		return results, nil
	}

	var wg sync.WaitGroup
	guard := make(chan struct{}, concurrency)
	for i, testID := range testIDs {
		wg.Add(1)
		go func(i int, testID string) {
			defer wg.Done()

			guard <- struct{}{}
			defer func() { <-guard }()

			results[i] = e.scanTestCase(xcresultPth, testID)
		}(i, testID)
	}
	wg.Wait()

	for _, result := range results {
		if result.fatal != nil {
			return nil, result.fatal
		}
	}
	return results, nil
}

func (e Extractor) scanTestCase(xcresultPth, testID string) testCaseResult {
	e.logger.Debugf("Scanning activities of %s", testID)

	metricMapping := map[string]float64{}

	payload, err := e.tool.Activities(xcresultPth, testID)
	if err != nil {
		var exitErr *xcresulttool.ExitStatusError
		if errors.As(err, &exitErr) {
			e.logger.Debugf("Activities query failed for %s: %s", testID, err)
			return testCaseResult{testError: &TestError{
				TestID: testID,
				Error:  fmt.Sprintf("xcresulttool activities failed with exit code %d", exitErr.ExitCode),
			}}
		}
		return testCaseResult{fatal: fmt.Errorf("fetching activities of %s: %s", testID, err)}
	}

	var activitiesDocument serialized.Object
	if err := json.Unmarshal(payload, &activitiesDocument); err != nil {
		return testCaseResult{fatal: fmt.Errorf("parsing activities of %s: %s", testID, err)}
	}

	// Test cases without recorded runs are legitimate, not an error.
	testRunsValue, err := activitiesDocument.Value("testRuns")
	if err != nil {
		return testCaseResult{metrics: metricMapping}
	}
	testRuns, ok := metrics.ObjectSlice(testRunsValue)
	if !ok {
		return testCaseResult{metrics: metricMapping}
	}

	for _, testRun := range testRuns {
		activitiesValue, err := testRun.Value("activities")
		if err != nil {
			continue
		}
		if activities, ok := metrics.ObjectSlice(activitiesValue); ok {
			metrics.ScanActivities(activities, metricMapping)
		}
	}

	return testCaseResult{metrics: metricMapping}
}
