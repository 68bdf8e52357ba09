package agents

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		OutputDir: t.TempDir(),
		Models: config.Models{
			Summary:        "gpt-4o-mini",
			Evaluation:     "gpt-4o-mini",
			Recommendation: "gpt-4o-mini",
		},
		Temperatures: config.Temperatures{Summary: 0.3, Evaluation: 0.1, Recommendation: 0.3},
		MaxTokens:    config.MaxTokens{Summary: 1000, Evaluation: 1500, Recommendation: 1200},
	}
}

type fakeCompleter struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, llm.Usage, error) {
	f.last = req
	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	return f.reply, llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, nil
}

func writeTranscript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "call_formatted_transcript.txt")
	content := "Callcenter: Good morning, how can I help?\nPatient: I want to confirm my appointment."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func writeWAVFixture(t *testing.T, dir string, samples []int) string {
	t.Helper()
	path := filepath.Join(dir, "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Data:           samples,
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: 8000},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()
	return path
}

func TestNoiseAgentWritesReport(t *testing.T) {
	cfg := testConfig(t)
	samples := make([]int, 16000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 5000
		} else {
			samples[i] = -5000
		}
	}
	path := writeWAVFixture(t, t.TempDir(), samples)

	res := NewNoiseAgent(cfg).AnalyzeQuality(path, "")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if res.Report == nil || res.Report.QualitySummary.QualityLabel == "" {
		t.Fatal("report missing quality label")
	}
	if !strings.HasSuffix(res.FileIdentifier, "_MPE") {
		t.Errorf("identifier %q missing suffix", res.FileIdentifier)
	}

	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	meta, ok := doc["analysis_metadata"].(map[string]any)
	if !ok {
		t.Fatal("analysis_metadata missing")
	}
	if meta["analysis_version"] != "1.0" {
		t.Errorf("analysis_version = %v", meta["analysis_version"])
	}
}

func TestNoiseAgentMissingFile(t *testing.T) {
	res := NewNoiseAgent(testConfig(t)).AnalyzeQuality("/nonexistent/audio.wav", "")
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
	if res.ErrorMessage == "" {
		t.Error("expected an error message")
	}
}

func TestSummaryAgent(t *testing.T) {
	cfg := testConfig(t)
	transcript := writeTranscript(t, t.TempDir())
	fake := &fakeCompleter{reply: "Main Purpose: appointment confirmation.\nOutcome: resolved."}

	res := NewSummaryAgent(cfg, fake).Summarize(context.Background(), transcript, "", "")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if res.SummaryLength != len(res.Summary) {
		t.Errorf("SummaryLength = %d, want %d", res.SummaryLength, len(res.Summary))
	}
	if res.TokenUsage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d, want 30", res.TokenUsage.TotalTokens)
	}
	if fake.last.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", fake.last.MaxTokens)
	}

	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	body := string(data)
	if !strings.HasPrefix(body, "Summary Report for: ") {
		t.Errorf("unexpected header: %q", body[:40])
	}
	if !strings.Contains(body, "appointment confirmation") {
		t.Error("report missing summary text")
	}
}

func TestSummaryAgentMissingTranscript(t *testing.T) {
	res := NewSummaryAgent(testConfig(t), &fakeCompleter{}).Summarize(context.Background(), "/no/such/file.txt", "", "")
	if res.Status != StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
}

func TestSummaryAgentCustomInstruction(t *testing.T) {
	cfg := testConfig(t)
	transcript := writeTranscript(t, t.TempDir())
	fake := &fakeCompleter{reply: "Focused summary."}

	res := NewSummaryAgent(cfg, fake).Summarize(context.Background(), transcript, "", "focus on the greeting")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if !strings.Contains(fake.last.Messages[1].Content, "Additional instructions: focus on the greeting") {
		t.Error("instruction missing from prompt")
	}
}

func TestEvaluationAgentParsesJSON(t *testing.T) {
	cfg := testConfig(t)
	transcript := writeTranscript(t, t.TempDir())
	fake := &fakeCompleter{reply: mockEvaluationJSON}

	res := NewEvaluationAgent(cfg, fake).Evaluate(context.Background(), transcript, "")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if !fake.last.JSONMode {
		t.Error("expected JSON mode request")
	}
	if res.Evaluation.Summary.OverallScore != 8.5 {
		t.Errorf("OverallScore = %v, want 8.5", res.Evaluation.Summary.OverallScore)
	}
	if res.Evaluation.ParsingNote != "" {
		t.Errorf("unexpected parsing note %q", res.Evaluation.ParsingNote)
	}

	if _, err := os.Stat(res.JSONReportPath); err != nil {
		t.Errorf("json report missing: %v", err)
	}
	txt, err := os.ReadFile(res.TextReportPath)
	if err != nil {
		t.Fatalf("text report missing: %v", err)
	}
	if !strings.Contains(string(txt), "Overall Score:          8.5/10") {
		t.Error("text rendition missing formatted score")
	}
}

func TestParseEvaluationFallback(t *testing.T) {
	eval := parseEvaluation("The agent did well overall, I would rate this call highly.")
	if eval.Summary.OverallScore != 7 {
		t.Errorf("OverallScore = %v, want neutral 7", eval.Summary.OverallScore)
	}
	if eval.Summary.IssueCategory != "General Inquiry" {
		t.Errorf("IssueCategory = %q", eval.Summary.IssueCategory)
	}
	if eval.ParsingNote == "" {
		t.Error("expected a parsing note")
	}
	if eval.DetailedAnalysis == "" {
		t.Error("expected raw text preserved")
	}
}

func TestParseEvaluationSalvagesEmbeddedJSON(t *testing.T) {
	chatty := "Here is my assessment:\n" + mockEvaluationJSON + "\nHope this helps!"
	eval := parseEvaluation(chatty)
	if eval.Summary.OverallScore != 8.5 {
		t.Errorf("OverallScore = %v, want 8.5 from embedded JSON", eval.Summary.OverallScore)
	}
}

func TestRecommendationAgentBuckets(t *testing.T) {
	cfg := testConfig(t)
	transcript := writeTranscript(t, t.TempDir())
	reply := `High Priority:
- Verify identity first

Medium Priority:
- Summarize the call before hanging up

Training Needs:
* Refresher on escalation policy

Communication Improvements:
• Slow down when reading numbers`
	fake := &fakeCompleter{reply: reply}

	res := NewRecommendationAgent(cfg, fake).Recommend(context.Background(), transcript, "", nil)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	recs := res.Recommendations
	if len(recs.HighPriority) != 1 || recs.HighPriority[0] != "Verify identity first" {
		t.Errorf("HighPriority = %v", recs.HighPriority)
	}
	if len(recs.MediumPriority) != 1 {
		t.Errorf("MediumPriority = %v", recs.MediumPriority)
	}
	if len(recs.Training) != 1 {
		t.Errorf("Training = %v", recs.Training)
	}
	if len(recs.Communication) != 1 {
		t.Errorf("Communication = %v", recs.Communication)
	}
	if recs.TotalSuggestions != 4 {
		t.Errorf("TotalSuggestions = %d, want 4", recs.TotalSuggestions)
	}

	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "HIGH PRIORITY") {
		t.Error("report missing priority section")
	}
}

func TestRecommendationIncludesEvaluationContext(t *testing.T) {
	cfg := testConfig(t)
	transcript := writeTranscript(t, t.TempDir())
	fake := &fakeCompleter{reply: "- Keep it up"}
	eval := &Evaluation{Summary: EvaluationSummary{OverallScore: 9, IssueCategory: "Billing"}}

	res := NewRecommendationAgent(cfg, fake).Recommend(context.Background(), transcript, "", eval)
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q (%s)", res.Status, res.ErrorMessage)
	}
	if !strings.Contains(fake.last.Messages[1].Content, "Billing") {
		t.Error("prompt missing evaluation context")
	}
}

func TestParseRecommendationsUnstructured(t *testing.T) {
	recs := ParseRecommendations("The call went fine. Nothing to improve.")
	if recs.TotalSuggestions != 0 {
		t.Errorf("TotalSuggestions = %d, want 0", recs.TotalSuggestions)
	}
	rendered := renderRecommendationsText(recs)
	if !strings.Contains(rendered, "Nothing to improve") {
		t.Error("raw text not preserved for unstructured output")
	}
}
