package main

import (
	"fmt"
	"os"

	"github.com/bitrise-io/go-steputils/v2/export"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/errorutil"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/xcresult-latency-metrics/extractor"
	"github.com/bitrise-steplib/xcresult-latency-metrics/output"
	"github.com/bitrise-steplib/xcresult-latency-metrics/xcresulttool"
	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

// The xcode-test step exports the bundle path under this key.
const xcresultPathEnvVarKey = "BITRISE_XCRESULT_PATH"

type config struct {
	XCResultPth string
	OutputPth   string
	PrettyPrint bool
	ToolOptions string
	Concurrency int
	Verbose     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Println()
		logger.Errorf(errorutil.FormattedError(err))
		return 1
	}
	return 0
}

func newRootCmd(logger log.Logger) *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:   "xcresult-latency-metrics",
		Short: "Extract UI test latency metric markers from an .xcresult bundle",
		Long: `Extract UI test latency metric markers from an .xcresult bundle.

The tool walks the bundle's test tree, scans every test case's recorded activities for
"Latency metric <name>=<value>s" markers and prints a JSON report to the standard output.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return extractAndExport(logger, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.XCResultPth, "xcresult", "", "Path to an .xcresult bundle produced by xcodebuild test (default: $"+xcresultPathEnvVarKey+")")
	cmd.Flags().StringVar(&cfg.OutputPth, "out", "", "Optional output JSON file path, parent directories are created as needed")
	cmd.Flags().BoolVar(&cfg.PrettyPrint, "pretty", false, "Pretty-print the JSON report")
	cmd.Flags().StringVar(&cfg.ToolOptions, "tool-options", "", "Additional xcresulttool options, as a shell quoted string")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 1, "Number of parallel activity queries, the report is identical for any value")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func extractAndExport(logger log.Logger, cfg config) error {
	logger.EnableDebugLog(cfg.Verbose)

	envRepository := env.NewRepository()
	commandFactory := command.NewFactory(envRepository)
	pathChecker := pathutil.NewPathChecker()
	pathModifier := pathutil.NewPathModifier()

	xcresultPth := cfg.XCResultPth
	if xcresultPth == "" {
		xcresultPth = envRepository.Get(xcresultPathEnvVarKey)
	}
	if xcresultPth == "" {
		return fmt.Errorf("no xcresult path provided, use --xcresult or set $%s", xcresultPathEnvVarKey)
	}

	absXCResultPth, err := pathModifier.AbsPath(xcresultPth)
	if err != nil {
		return fmt.Errorf("expanding xcresult path %s: %s", xcresultPth, err)
	}
	if exist, err := pathChecker.IsPathExists(absXCResultPth); err != nil {
		return fmt.Errorf("checking xcresult path %s: %s", absXCResultPth, err)
	} else if !exist {
		return fmt.Errorf("xcresult path does not exist: %s", absXCResultPth)
	}

	toolOptions, err := shellquote.Split(cfg.ToolOptions)
	if err != nil {
		return fmt.Errorf("parsing tool options (%s): %s", cfg.ToolOptions, err)
	}

	tool := xcresulttool.NewRunner(logger, commandFactory, toolOptions)
	toolVersion, err := tool.CheckInstall()
	if err != nil {
		return err
	}
	logger.Debugf("xcresulttool version: %s", toolVersion)

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	report, err := extractor.NewExtractor(logger, tool).Extract(absXCResultPth, concurrency)
	if err != nil {
		return err
	}

	outputExporter := export.NewExporter(commandFactory, fileutil.NewFileManager())
	reportExporter := output.NewExporter(envRepository, logger, fileutil.NewFileManager(), pathModifier, &outputExporter)
	return reportExporter.ExportReport(report, cfg.OutputPth, cfg.PrettyPrint)
}
