package metrics

import (
	"github.com/bitrise-io/go-xcode/xcodeproject/serialized"
)

// TestNodeType is the nodeType tag of a test tree node.
type TestNodeType string

// These are all the node types the xcresulttool test-results output (format version 3.53) uses.
const (
	TestNodeTypeTestPlan       TestNodeType = "Test Plan"
	TestNodeTypeUnitTestBundle TestNodeType = "Unit test bundle"
	TestNodeTypeUITestBundle   TestNodeType = "UI test bundle"
	TestNodeTypeTestSuite      TestNodeType = "Test Suite"
	TestNodeTypeTestCase       TestNodeType = "Test Case"
	TestNodeTypeDevice         TestNodeType = "Device"
	TestNodeTypeTestPlanConfig TestNodeType = "Test Plan Configuration"
	TestNodeTypeArguments      TestNodeType = "Arguments"
	TestNodeTypeRepetition     TestNodeType = "Repetition"
	TestNodeTypeTestCaseRun    TestNodeType = "Test Case Run"
	TestNodeTypeFailureMessage TestNodeType = "Failure Message"
	TestNodeTypeSourceCodeRef  TestNodeType = "Source Code Reference"
	TestNodeTypeAttachment     TestNodeType = "Attachment"
	TestNodeTypeExpression     TestNodeType = "Expression"
	TestNodeTypeTestValue      TestNodeType = "Test Value"
)

// ObjectSlice returns the JSON object elements of value and whether value is a sequence at all.
// Elements of any other type are dropped, so callers can treat the result as a list of nodes.
func ObjectSlice(value interface{}) ([]serialized.Object, bool) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, false
	}

	objects := make([]serialized.Object, 0, len(list))
	for _, item := range list {
		if object, ok := item.(map[string]interface{}); ok {
			objects = append(objects, serialized.Object(object))
		}
	}
	return objects, true
}
