// Package pipeline orchestrates the full per-call analysis: download,
// transcription, noise scoring, evaluation, summary and recommendations.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"callcenter-insights-go/internal/agents"
	"callcenter-insights-go/internal/callfile"
	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/llm"
	"callcenter-insights-go/internal/logger"
	"callcenter-insights-go/internal/transcribe"
)

// Pipeline statuses, in increasing order of trouble.
const (
	StatusProcessing          = "processing"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "error"
)

// Step outcomes recorded in the processing summary.
const (
	StepSuccess = "success"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Fetcher downloads a remote recording to a local temp file.
type Fetcher interface {
	Fetch(ctx context.Context, driveURL string) (string, error)
}

// Transcriber converts a recording into a speaker-formatted transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Chat matches the completion client the agents consume.
type Chat interface {
	Complete(ctx context.Context, req llm.Request) (string, llm.Usage, error)
}

// TranscriptionInfo captures the transcription stage outcome.
type TranscriptionInfo struct {
	Status         string `json:"status"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Length         int    `json:"transcript_length,omitempty"`
	SpeakerTurns   int    `json:"speaker_turns,omitempty"`
	Model          string `json:"model_used,omitempty"`
	DurationMs     int64  `json:"duration_ms,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// Result is the full per-call analysis document returned to API callers and
// persisted in history.
type Result struct {
	FileIdentifier    string                       `json:"file_identifier"`
	AudioURL          string                       `json:"audio_url,omitempty"`
	Status            string                       `json:"status"`
	StartedAt         time.Time                    `json:"started_at"`
	DurationMs        int64                        `json:"duration_ms"`
	Transcription     *TranscriptionInfo           `json:"transcription,omitempty"`
	Noise             *agents.NoiseResult          `json:"noise_analysis,omitempty"`
	Evaluation        *agents.EvaluationResult     `json:"evaluation,omitempty"`
	Summary           *agents.SummaryResult        `json:"summary,omitempty"`
	Recommendations   *agents.RecommendationResult `json:"recommendations,omitempty"`
	Errors            []string                     `json:"errors,omitempty"`
	ProcessingSummary map[string]string            `json:"processing_summary"`
}

// Pipeline wires the agents together and runs them in sequence for one call.
type Pipeline struct {
	cfg            *config.Config
	fetcher        Fetcher
	transcriber    Transcriber
	noise          *agents.NoiseAgent
	evaluation     *agents.EvaluationAgent
	summary        *agents.SummaryAgent
	recommendation *agents.RecommendationAgent
}

func New(cfg *config.Config, fetcher Fetcher, transcriber Transcriber, chat Chat) *Pipeline {
	return &Pipeline{
		cfg:            cfg,
		fetcher:        fetcher,
		transcriber:    transcriber,
		noise:          agents.NewNoiseAgent(cfg),
		evaluation:     agents.NewEvaluationAgent(cfg, chat),
		summary:        agents.NewSummaryAgent(cfg, chat),
		recommendation: agents.NewRecommendationAgent(cfg, chat),
	}
}

// ProcessCall runs the whole pipeline for one recording. audioURL may be a
// Drive share link (downloaded first) or empty when localPath is already on
// disk. Stage failures are collected, not fatal; only an unusable recording
// aborts the run.
func (p *Pipeline) ProcessCall(ctx context.Context, audioURL, localPath string) Result {
	return p.ProcessCallWithPrompt(ctx, audioURL, localPath, "")
}

// ProcessCallWithPrompt is ProcessCall with an extra caller instruction folded
// into the summary stage.
func (p *Pipeline) ProcessCallWithPrompt(ctx context.Context, audioURL, localPath, extraPrompt string) Result {
	start := time.Now()
	res := Result{
		AudioURL:          audioURL,
		Status:            StatusProcessing,
		StartedAt:         start,
		ProcessingSummary: map[string]string{},
	}
	log := logger.New().WithComponent("pipeline").WithField("audio_url", audioURL)

	// Stage 1: obtain a local recording.
	cleanup := func() {}
	if localPath == "" {
		fetched, err := p.fetcher.Fetch(ctx, audioURL)
		if err != nil {
			res.Status = StatusFailed
			res.Errors = append(res.Errors, fmt.Sprintf("download: %v", err))
			res.ProcessingSummary["download"] = StepFailed
			p.skipAll(&res, "audio not available")
			res.DurationMs = time.Since(start).Milliseconds()
			return res
		}
		localPath = fetched
		cleanup = func() { os.Remove(fetched) }
		res.ProcessingSummary["download"] = StepSuccess
	} else {
		res.ProcessingSummary["download"] = StepSkipped
	}
	defer cleanup()

	res.FileIdentifier = callfile.Identifier(audioURL, localPath)
	log = log.WithField("file_id", res.FileIdentifier)

	// Stage 2: transcription. LLM stages depend on its artifact.
	transcriptPath := p.runTranscription(ctx, &res, localPath)

	// Stage 3: noise analysis needs only the recording.
	noise := p.noise.AnalyzeQuality(localPath, audioURL)
	res.Noise = &noise
	if noise.Status == agents.StatusSuccess {
		res.ProcessingSummary["noise_analysis"] = StepSuccess
	} else {
		res.ProcessingSummary["noise_analysis"] = StepFailed
		res.Errors = append(res.Errors, "noise_analysis: "+noise.ErrorMessage)
	}

	// Stages 4-6: transcript-dependent analysis.
	if transcriptPath == "" {
		p.skipLLMStages(&res, "transcript not available")
	} else {
		p.runLLMStages(ctx, &res, transcriptPath, audioURL, extraPrompt)
	}

	res.Status = finalStatus(res)
	res.DurationMs = time.Since(start).Milliseconds()
	log.WithField("status", res.Status).
		WithField("duration_ms", res.DurationMs).
		Info("call processing finished")
	return res
}

func (p *Pipeline) runTranscription(ctx context.Context, res *Result, localPath string) string {
	start := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, localPath)
	if err != nil {
		res.Transcription = &TranscriptionInfo{Status: agents.StatusError, ErrorMessage: err.Error()}
		res.ProcessingSummary["transcription"] = StepFailed
		res.Errors = append(res.Errors, "transcription: "+err.Error())
		return ""
	}

	transcriptPath := p.cfg.ArtifactPath("TRANSCRIPT", res.FileIdentifier)
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		res.Transcription = &TranscriptionInfo{Status: agents.StatusError, ErrorMessage: "save transcript: " + err.Error()}
		res.ProcessingSummary["transcription"] = StepFailed
		res.Errors = append(res.Errors, "transcription: save transcript: "+err.Error())
		return ""
	}

	res.Transcription = &TranscriptionInfo{
		Status:         agents.StatusSuccess,
		TranscriptPath: transcriptPath,
		Length:         len(transcript),
		SpeakerTurns:   transcribe.SpeakerTurns(transcript),
		Model:          p.cfg.Models.Transcription,
		DurationMs:     time.Since(start).Milliseconds(),
	}
	res.ProcessingSummary["transcription"] = StepSuccess
	return transcriptPath
}

func (p *Pipeline) runLLMStages(ctx context.Context, res *Result, transcriptPath, audioURL, extraPrompt string) {
	eval := p.evaluation.Evaluate(ctx, transcriptPath, audioURL)
	res.Evaluation = &eval
	recordStep(res, "evaluation", eval.Status, eval.ErrorMessage)

	sum := p.summary.Summarize(ctx, transcriptPath, audioURL, extraPrompt)
	res.Summary = &sum
	recordStep(res, "summary", sum.Status, sum.ErrorMessage)

	var evalForRecs *agents.Evaluation
	if eval.Status == agents.StatusSuccess {
		evalForRecs = eval.Evaluation
	}
	recs := p.recommendation.Recommend(ctx, transcriptPath, audioURL, evalForRecs)
	res.Recommendations = &recs
	recordStep(res, "recommendations", recs.Status, recs.ErrorMessage)
}

func (p *Pipeline) skipLLMStages(res *Result, reason string) {
	for _, step := range []string{"evaluation", "summary", "recommendations"} {
		res.ProcessingSummary[step] = StepSkipped
		res.Errors = append(res.Errors, step+": skipped, "+reason)
	}
}

func (p *Pipeline) skipAll(res *Result, reason string) {
	for _, step := range []string{"transcription", "noise_analysis", "evaluation", "summary", "recommendations"} {
		res.ProcessingSummary[step] = StepSkipped
	}
	res.Errors = append(res.Errors, "pipeline: skipped remaining steps, "+reason)
}

func recordStep(res *Result, step, status, errMsg string) {
	if status == agents.StatusSuccess {
		res.ProcessingSummary[step] = StepSuccess
		return
	}
	res.ProcessingSummary[step] = StepFailed
	res.Errors = append(res.Errors, step+": "+errMsg)
}

func finalStatus(res Result) string {
	succeeded := 0
	for _, outcome := range res.ProcessingSummary {
		if outcome == StepSuccess {
			succeeded++
		}
	}
	switch {
	case succeeded == 0:
		return StatusFailed
	case len(res.Errors) > 0:
		return StatusCompletedWithErrors
	default:
		return StatusCompleted
	}
}

// ErrorSummary flattens the collected errors for log lines and API payloads.
func ErrorSummary(res Result) string {
	return strings.Join(res.Errors, "; ")
}
