package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/bitrise-io/bitrise/configs"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/xcresult-latency-metrics/extractor"
)

const (
	reportPathEnvVarKey = "BITRISE_UI_LATENCY_REPORT_PATH"
	addonReportFileName = "ui-latency-metrics.json"
)

// Exporter writes the extraction report to its destinations.
type Exporter interface {
	ExportReport(report extractor.Report, outputPth string, prettyPrint bool) error
}

// envExporter exposes a value for subsequent steps of the build.
type envExporter interface {
	ExportOutput(key, value string) error
}

type exporter struct {
	envRepository  env.Repository
	logger         log.Logger
	fileManager    fileutil.FileManager
	pathModifier   pathutil.PathModifier
	outputExporter envExporter
}

// NewExporter ...
func NewExporter(envRepository env.Repository, logger log.Logger, fileManager fileutil.FileManager, pathModifier pathutil.PathModifier, outputExporter envExporter) Exporter {
	return exporter{
		envRepository:  envRepository,
		logger:         logger,
		fileManager:    fileManager,
		pathModifier:   pathModifier,
		outputExporter: outputExporter,
	}
}

// ExportReport prints the report JSON to the standard output, and when an output path is set,
// also writes it there (creating parent directories) and exposes the written file's path for
// subsequent steps. On a Bitrise build the report is copied into the test addon's result
// directory as well.
func (e exporter) ExportReport(report extractor.Report, outputPth string, prettyPrint bool) error {
	data, err := renderReport(report, prettyPrint)
	if err != nil {
		return fmt.Errorf("rendering the report: %s", err)
	}

	if outputPth != "" {
		if err := e.fileManager.Write(outputPth, string(data)+"\n", 0o644); err != nil {
			return fmt.Errorf("writing the report to %s: %s", outputPth, err)
		}

		absOutputPth, err := e.pathModifier.AbsPath(outputPth)
		if err != nil {
			absOutputPth = outputPth
		}
		if err := e.outputExporter.ExportOutput(reportPathEnvVarKey, absOutputPth); err != nil {
			e.logger.Warnf("Failed to export: %s: %s", reportPathEnvVarKey, err)
		}
	}

	fmt.Println(string(data))

	if addonResultPth := e.envRepository.Get(configs.BitrisePerStepTestResultDirEnvKey); addonResultPth != "" {
		addonReportPth := filepath.Join(addonResultPth, addonReportFileName)
		if err := e.fileManager.Write(addonReportPth, string(data)+"\n", 0o644); err != nil {
			e.logger.Warnf("Failed to export the report for the test addon: %s", err)
		}
	}

	return nil
}

func renderReport(report extractor.Report, prettyPrint bool) ([]byte, error) {
	if prettyPrint {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}
