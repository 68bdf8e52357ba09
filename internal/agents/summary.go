package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"callcenter-insights-go/internal/callfile"
	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/llm"
	"callcenter-insights-go/internal/logger"
)

// SummaryResult is returned by the summarization stage.
type SummaryResult struct {
	Status         string    `json:"status"`
	FileIdentifier string    `json:"file_identifier,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	SummaryLength  int       `json:"summary_length,omitempty"`
	ReportPath     string    `json:"summary_report_path,omitempty"`
	Model          string    `json:"model_used,omitempty"`
	TokenUsage     llm.Usage `json:"token_usage,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

type completer interface {
	Complete(ctx context.Context, req llm.Request) (string, llm.Usage, error)
}

// SummaryAgent turns a speaker-formatted transcript into a structured summary.
type SummaryAgent struct {
	cfg *config.Config
	llm completer
}

func NewSummaryAgent(cfg *config.Config, client completer) *SummaryAgent {
	return &SummaryAgent{cfg: cfg, llm: client}
}

// Summarize reads the transcript artifact, requests a summary from the model
// and persists the report next to the other call artifacts. instruction is an
// optional caller-supplied addition to the prompt and may be empty.
func (a *SummaryAgent) Summarize(ctx context.Context, transcriptPath, audioURL, instruction string) SummaryResult {
	log := logger.New().WithComponent("summary").WithField("transcript_path", transcriptPath)

	transcript, fileID, err := loadTranscript(transcriptPath, audioURL)
	if err != nil {
		return SummaryResult{Status: StatusError, ErrorMessage: err.Error()}
	}

	userPrompt := "Please summarize this call center conversation:\n\n" + transcript
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		userPrompt += "\n\nAdditional instructions: " + instruction
	}

	var summary string
	var usage llm.Usage
	if os.Getenv("USE_MOCK_LLM") == "true" {
		summary = "MOCK SUMMARY\n\nMain Purpose: appointment confirmation call.\nKey Points: the patient confirmed tomorrow's visit.\nOutcome: resolved."
	} else {
		summary, usage, err = a.llm.Complete(ctx, llm.Request{
			Model: a.cfg.Models.Summary,
			Messages: []llm.Message{
				{Role: "system", Content: config.SummaryPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: a.cfg.Temperatures.Summary,
			MaxTokens:   a.cfg.MaxTokens.Summary,
		})
		if err != nil {
			return SummaryResult{
				Status:         StatusError,
				FileIdentifier: fileID,
				ErrorMessage:   fmt.Sprintf("summary generation failed: %v", err),
			}
		}
	}
	summary = strings.TrimSpace(summary)

	reportPath := a.cfg.ArtifactPath("SUMMARY", fileID)
	body := reportHeader("Summary Report", fileID, audioURL) + summary + "\n"
	if err := os.WriteFile(reportPath, []byte(body), 0o644); err != nil {
		return SummaryResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("failed to save summary report: %v", err),
		}
	}

	log.WithField("summary_length", len(summary)).Info("summary generated")
	return SummaryResult{
		Status:         StatusSuccess,
		FileIdentifier: fileID,
		Summary:        summary,
		SummaryLength:  len(summary),
		ReportPath:     reportPath,
		Model:          a.cfg.Models.Summary,
		TokenUsage:     usage,
	}
}

// loadTranscript reads and normalizes the transcript artifact and derives the
// call identifier shared by all artifact files.
func loadTranscript(transcriptPath, audioURL string) (string, string, error) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", "", fmt.Errorf("transcript not available: %v", err)
	}
	transcript := callfile.CleanText(string(data))
	if transcript == "" {
		return "", "", fmt.Errorf("transcript is empty: %s", transcriptPath)
	}
	return transcript, transcriptFileID(transcriptPath, audioURL), nil
}

// transcriptFileID recovers the call identifier. Transcript artifacts are
// named {id}_formatted_transcript.txt, so an identifier embedded in the name
// wins over re-deriving one from the path.
func transcriptFileID(transcriptPath, audioURL string) string {
	base := strings.TrimSuffix(filepath.Base(transcriptPath), filepath.Ext(transcriptPath))
	if id, ok := strings.CutSuffix(base, "_formatted_transcript"); ok && id != "" {
		return id
	}
	return callfile.Identifier(audioURL, transcriptPath)
}

// reportHeader renders the shared banner at the top of text artifacts.
func reportHeader(title, fileID, audioURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for: %s\n", title, fileID)
	if audioURL != "" {
		fmt.Fprintf(&b, "Audio URL: %s\n", audioURL)
	}
	fmt.Fprintf(&b, "Generated on: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	return b.String()
}
