package metrics

import (
	"regexp"
	"strconv"

	"github.com/bitrise-io/go-xcode/xcodeproject/serialized"
)

// Latency metric startup_to_tabbar=4.821s
var metricMarkerPattern = regexp.MustCompile(`Latency metric ([A-Za-z0-9_]+)=([0-9]+(?:\.[0-9]+)?)s`)

// ScanActivities walks the activity forest and records every latency metric marker found in
// activity titles into the given accumulator.
//
// The accumulator is shared between calls on purpose: the orchestrator merges the markers of
// many test cases into a single mapping. If the same metric name appears multiple times, the
// last scanned value wins. Activities without a string title or without a children list are
// tolerated and treated as leaves.
func ScanActivities(activities []serialized.Object, accumulator map[string]float64) {
	stack := make([]serialized.Object, len(activities))
	copy(stack, activities)

	for len(stack) > 0 {
		activity := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if title, err := activity.String("title"); err == nil {
			if match := metricMarkerPattern.FindStringSubmatch(title); match != nil {
				// The pattern only captures valid decimal syntax, ParseFloat cannot fail here.
				if value, err := strconv.ParseFloat(match[2], 64); err == nil {
					accumulator[match[1]] = value
				}
			}
		}

		childrenValue, err := activity.Value("childActivities")
		if err != nil {
			continue
		}
		if children, ok := ObjectSlice(childrenValue); ok {
			stack = append(stack, children...)
		}
	}
}
