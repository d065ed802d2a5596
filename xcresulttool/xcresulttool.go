package xcresulttool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bitrise-io/go-utils/errorutil"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	version "github.com/hashicorp/go-version"
)

// Xcode 16 beta 3 shipped the first xcresulttool with the test-results subcommands.
const minSupportedToolVersion = "23021"

// Runner queries an .xcresult bundle through the xcresulttool binary.
type Runner interface {
	CheckInstall() (*version.Version, error)
	Tests(xcresultPth string) (json.RawMessage, error)
	Activities(xcresultPth, testID string) (json.RawMessage, error)
}

type runner struct {
	logger         log.Logger
	commandFactory command.Factory
	additionalArgs []string
}

// NewRunner ...
func NewRunner(logger log.Logger, commandFactory command.Factory, additionalArgs []string) Runner {
	return &runner{
		logger:         logger,
		commandFactory: commandFactory,
		additionalArgs: additionalArgs,
	}
}

// ExitStatusError is returned when xcresulttool finishes with a nonzero exit code.
type ExitStatusError struct {
	ExitCode int
	Args     string
	Stderr   string
}

func (e *ExitStatusError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed with exit code %d: %s", e.Args, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed with exit code %d", e.Args, e.ExitCode)
}

// CheckInstall verifies that xcresulttool is available and new enough for the
// test-results queries, and returns its version.
func (r *runner) CheckInstall() (*version.Version, error) {
	findCmd := r.commandFactory.Create("xcrun", []string{"--find", "xcresulttool"}, nil)
	if err := findCmd.Run(); err != nil {
		return nil, fmt.Errorf("xcresulttool is not available: %s", err)
	}

	versionCmd := r.commandFactory.Create("xcrun", []string{"xcresulttool", "version"}, nil)
	out, err := versionCmd.RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		if errorutil.IsExitStatusError(err) {
			return nil, fmt.Errorf("%s failed: %s", versionCmd.PrintableCommandArgs(), out)
		}
		return nil, fmt.Errorf("%s failed: %s", versionCmd.PrintableCommandArgs(), err)
	}

	toolVersion, err := parseVersion(out)
	if err != nil {
		return nil, err
	}
	if err := ensureSupportedVersion(toolVersion); err != nil {
		return nil, err
	}

	return toolVersion, nil
}

// Tests fetches the full test tree of the bundle.
func (r *runner) Tests(xcresultPth string) (json.RawMessage, error) {
	return r.get([]string{"get", "test-results", "tests", "--path", xcresultPth, "--compact"})
}

// Activities fetches the recorded activity tree of a single test case.
func (r *runner) Activities(xcresultPth, testID string) (json.RawMessage, error) {
	return r.get([]string{"get", "test-results", "activities", "--path", xcresultPth, "--test-id", testID, "--compact"})
}

func (r *runner) get(args []string) (json.RawMessage, error) {
	args = append([]string{"xcresulttool"}, args...)
	args = append(args, r.additionalArgs...)

	var outBuffer, errBuffer bytes.Buffer
	cmd := r.commandFactory.Create("xcrun", args, &command.Opts{
		Stdout: &outBuffer,
		Stderr: &errBuffer,
	})

	r.logger.Debugf("$ %s", cmd.PrintableCommandArgs())

	if exitCode, err := cmd.RunAndReturnExitCode(); err != nil {
		if exitCode > 0 {
			return nil, &ExitStatusError{
				ExitCode: exitCode,
				Args:     cmd.PrintableCommandArgs(),
				Stderr:   strings.TrimSpace(errBuffer.String()),
			}
		}
		return nil, fmt.Errorf("%s failed: %s", cmd.PrintableCommandArgs(), err)
	}

	return outBuffer.Bytes(), nil
}

// xcresulttool version 23025, format version 3.53 (current)
var toolVersionPattern = regexp.MustCompile(`xcresulttool version ([0-9]+)`)

func parseVersion(out string) (*version.Version, error) {
	matches := toolVersionPattern.FindStringSubmatch(out)
	if len(matches) < 2 {
		return nil, fmt.Errorf("no version matches found in output: %s", out)
	}
	return version.NewVersion(matches[1])
}

func ensureSupportedVersion(toolVersion *version.Version) error {
	minVersion := version.Must(version.NewVersion(minSupportedToolVersion))
	if toolVersion.LessThan(minVersion) {
		return fmt.Errorf("xcresulttool version %s does not support the test-results queries, version %s or newer is required", toolVersion, minVersion)
	}
	return nil
}
