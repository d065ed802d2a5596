package metrics

import (
	"github.com/bitrise-io/go-xcode/xcodeproject/serialized"
)

// CollectTestIDs walks the test node forest and returns the identifiers of the leaf Test Case nodes.
//
// The walk uses an explicit worklist instead of recursion, so arbitrarily deep trees cannot
// exhaust the stack. Identifiers are recorded in first-seen order and de-duplicated. Nodes
// without a usable identifier and nodes with a missing or malformed children list are
// tolerated: the former are skipped, the latter are treated as leaves.
func CollectTestIDs(testNodes []serialized.Object) []string {
	stack := make([]serialized.Object, len(testNodes))
	copy(stack, testNodes)

	seen := map[string]bool{}
	var testIDs []string

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if nodeType, err := node.String("nodeType"); err == nil && TestNodeType(nodeType) == TestNodeTypeTestCase {
			if testID := identifier(node); testID != "" && !seen[testID] {
				seen[testID] = true
				testIDs = append(testIDs, testID)
			}
		}

		childrenValue, err := node.Value("children")
		if err != nil {
			continue
		}
		if children, ok := ObjectSlice(childrenValue); ok {
			stack = append(stack, children...)
		}
	}

	return testIDs
}

// identifier prefers the URL form of a test case identifier over the plain one.
func identifier(node serialized.Object) string {
	if testID, err := node.String("nodeIdentifierURL"); err == nil && testID != "" {
		return testID
	}
	if testID, err := node.String("nodeIdentifier"); err == nil {
		return testID
	}
	return ""
}
