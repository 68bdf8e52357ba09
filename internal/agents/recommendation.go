package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/llm"
	"callcenter-insights-go/internal/logger"
)

// Recommendations groups coaching actions by urgency and theme.
type Recommendations struct {
	HighPriority     []string `json:"high_priority"`
	MediumPriority   []string `json:"medium_priority"`
	LowPriority      []string `json:"low_priority"`
	Communication    []string `json:"communication_improvements"`
	Process          []string `json:"process_improvements"`
	Training         []string `json:"training_needs"`
	System           []string `json:"system_improvements"`
	Unclassified     []string `json:"general,omitempty"`
	RawText          string   `json:"-"`
	TotalSuggestions int      `json:"total_suggestions"`
}

// RecommendationResult is returned by the coaching stage.
type RecommendationResult struct {
	Status          string           `json:"status"`
	FileIdentifier  string           `json:"file_identifier,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
	ReportPath      string           `json:"recommendations_path,omitempty"`
	Model           string           `json:"model_used,omitempty"`
	TokenUsage      llm.Usage        `json:"token_usage,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

// RecommendationAgent derives coaching and process improvements from the
// transcript, optionally grounded on the evaluation verdict.
type RecommendationAgent struct {
	cfg *config.Config
	llm completer
}

func NewRecommendationAgent(cfg *config.Config, client completer) *RecommendationAgent {
	return &RecommendationAgent{cfg: cfg, llm: client}
}

// Recommend builds improvement suggestions. eval may be nil when the
// evaluation stage failed; the prompt then relies on the transcript alone.
func (a *RecommendationAgent) Recommend(ctx context.Context, transcriptPath, audioURL string, eval *Evaluation) RecommendationResult {
	log := logger.New().WithComponent("recommendation").WithField("transcript_path", transcriptPath)

	transcript, fileID, err := loadTranscript(transcriptPath, audioURL)
	if err != nil {
		return RecommendationResult{Status: StatusError, ErrorMessage: err.Error()}
	}

	userPrompt := "Please provide improvement recommendations for this call center conversation:\n\n" + transcript
	if eval != nil {
		if evalJSON, err := json.MarshalIndent(eval, "", "  "); err == nil {
			userPrompt += "\n\nEvaluation results for context:\n" + string(evalJSON)
		}
	}

	var raw string
	var usage llm.Usage
	if os.Getenv("USE_MOCK_LLM") == "true" {
		raw = mockRecommendationText
	} else {
		raw, usage, err = a.llm.Complete(ctx, llm.Request{
			Model: a.cfg.Models.Recommendation,
			Messages: []llm.Message{
				{Role: "system", Content: config.RecommendationPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: a.cfg.Temperatures.Recommendation,
			MaxTokens:   a.cfg.MaxTokens.Recommendation,
		})
		if err != nil {
			return RecommendationResult{
				Status:         StatusError,
				FileIdentifier: fileID,
				ErrorMessage:   fmt.Sprintf("recommendation generation failed: %v", err),
			}
		}
	}

	recs := ParseRecommendations(raw)

	reportPath := a.cfg.ArtifactPath("RECOMMENDATIONS", fileID)
	body := reportHeader("Improvement Recommendations", fileID, audioURL) + renderRecommendationsText(recs)
	if err := os.WriteFile(reportPath, []byte(body), 0o644); err != nil {
		return RecommendationResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("failed to save recommendations: %v", err),
		}
	}

	log.WithField("total_suggestions", recs.TotalSuggestions).Info("recommendations generated")
	return RecommendationResult{
		Status:          StatusSuccess,
		FileIdentifier:  fileID,
		Recommendations: &recs,
		ReportPath:      reportPath,
		Model:           a.cfg.Models.Recommendation,
		TokenUsage:      usage,
	}
}

// sectionKeywords maps header substrings to the bucket they open. Checked in
// order so "high priority" wins over a bare "priority".
var sectionKeywords = []struct {
	needle string
	bucket string
}{
	{"high priority", "high"},
	{"medium priority", "medium"},
	{"low priority", "low"},
	{"communication", "communication"},
	{"process", "process"},
	{"training", "training"},
	{"system", "system"},
}

// ParseRecommendations splits the model's free text into priority and theme
// buckets. Bullet lines attach to the most recent section header; bullets
// before any header land in the general bucket.
func ParseRecommendations(raw string) Recommendations {
	recs := Recommendations{RawText: raw}
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if bucket, ok := matchSection(line); ok {
			current = bucket
			continue
		}

		item, isBullet := trimBullet(line)
		if !isBullet || item == "" {
			continue
		}
		switch current {
		case "high":
			recs.HighPriority = append(recs.HighPriority, item)
		case "medium":
			recs.MediumPriority = append(recs.MediumPriority, item)
		case "low":
			recs.LowPriority = append(recs.LowPriority, item)
		case "communication":
			recs.Communication = append(recs.Communication, item)
		case "process":
			recs.Process = append(recs.Process, item)
		case "training":
			recs.Training = append(recs.Training, item)
		case "system":
			recs.System = append(recs.System, item)
		default:
			recs.Unclassified = append(recs.Unclassified, item)
		}
		recs.TotalSuggestions++
	}
	return recs
}

// matchSection reports whether the line reads as a section header. Bullet
// lines never qualify, headers are short lines naming a known bucket.
func matchSection(line string) (string, bool) {
	if _, isBullet := trimBullet(line); isBullet {
		return "", false
	}
	lower := strings.ToLower(line)
	for _, kw := range sectionKeywords {
		if strings.Contains(lower, kw.needle) {
			return kw.bucket, true
		}
	}
	return "", false
}

func trimBullet(line string) (string, bool) {
	for _, prefix := range []string{"- ", "• ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return line, false
}

func renderRecommendationsText(recs Recommendations) string {
	var b strings.Builder
	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(title + "\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	writeSection("HIGH PRIORITY", recs.HighPriority)
	writeSection("MEDIUM PRIORITY", recs.MediumPriority)
	writeSection("LOW PRIORITY", recs.LowPriority)
	writeSection("COMMUNICATION IMPROVEMENTS", recs.Communication)
	writeSection("PROCESS IMPROVEMENTS", recs.Process)
	writeSection("TRAINING NEEDS", recs.Training)
	writeSection("SYSTEM IMPROVEMENTS", recs.System)
	writeSection("GENERAL", recs.Unclassified)

	if recs.TotalSuggestions == 0 {
		b.WriteString("MODEL OUTPUT\n")
		b.WriteString(strings.TrimSpace(recs.RawText) + "\n")
	}
	return b.String()
}

const mockRecommendationText = `High Priority:
- Confirm patient identity at the start of the call

Communication Improvements:
- Offer an SMS reminder before the appointment`
