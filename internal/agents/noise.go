// Package agents implements the per-stage analysis agents of the call pipeline.
package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"callcenter-insights-go/internal/audio"
	"callcenter-insights-go/internal/callfile"
	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/logger"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// NoiseResult is returned by the audio quality stage.
type NoiseResult struct {
	Status         string        `json:"status"`
	FileIdentifier string        `json:"file_identifier,omitempty"`
	Report         *audio.Report `json:"noise_report,omitempty"`
	ReportPath     string        `json:"noise_report_path,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// noiseArtifact is the persisted JSON document: the report plus provenance.
type noiseArtifact struct {
	FileIdentifier string `json:"file_identifier"`
	Timestamp      string `json:"timestamp"`
	audio.Report
	Metadata noiseMetadata `json:"analysis_metadata"`
}

type noiseMetadata struct {
	AudioURL        string `json:"audio_url,omitempty"`
	LocalAudioPath  string `json:"local_audio_path"`
	AnalysisVersion string `json:"analysis_version"`
}

// NoiseAgent scores audio quality and noise levels in call recordings.
type NoiseAgent struct {
	cfg *config.Config
}

func NewNoiseAgent(cfg *config.Config) *NoiseAgent {
	return &NoiseAgent{cfg: cfg}
}

// AnalyzeQuality decodes the recording, derives quality metrics and persists
// the classified report. Failures come back as a structured result, never a
// panic; the caller decides whether to continue the pipeline.
func (a *NoiseAgent) AnalyzeQuality(audioPath, audioURL string) NoiseResult {
	log := logger.New().WithComponent("noise").WithField("audio_path", audioPath)

	if err := callfile.Validate(audioPath); err != nil {
		return NoiseResult{Status: StatusError, ErrorMessage: err.Error()}
	}
	fileID := callfile.Identifier(audioURL, audioPath)

	stream, err := audio.Decode(audioPath)
	if err != nil {
		return NoiseResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("noise analysis failed: %v", err),
		}
	}

	metrics, err := audio.ComputeMetrics(stream)
	if err != nil {
		return NoiseResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("noise analysis failed: %v", err),
		}
	}

	report := audio.BuildReport(metrics, stream)

	reportPath := a.cfg.ArtifactPath("NOISE_JSON", fileID)
	if err := saveNoiseArtifact(reportPath, report, fileID, audioURL, audioPath); err != nil {
		return NoiseResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("failed to save noise report: %v", err),
		}
	}

	log.WithField("quality_label", report.QualitySummary.QualityLabel).
		WithField("snr_db", report.QualitySummary.AverageSNR).
		Info("noise analysis complete")

	return NoiseResult{
		Status:         StatusSuccess,
		FileIdentifier: fileID,
		Report:         &report,
		ReportPath:     reportPath,
	}
}

func saveNoiseArtifact(path string, report audio.Report, fileID, audioURL, audioPath string) error {
	doc := noiseArtifact{
		FileIdentifier: fileID,
		Timestamp:      time.Now().Format(time.RFC3339),
		Report:         report,
		Metadata: noiseMetadata{
			AudioURL:        audioURL,
			LocalAudioPath:  filepath.Base(audioPath),
			AnalysisVersion: "1.0",
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
