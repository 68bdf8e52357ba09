// Package config centralizes environment-driven settings for the service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Models used for each pipeline stage.
type Models struct {
	Transcription  string
	Summary        string
	Evaluation     string
	Recommendation string
}

// Sampling temperatures per stage.
type Temperatures struct {
	Transcription  float64
	Summary        float64
	Evaluation     float64
	Recommendation float64
}

// Completion token ceilings per stage.
type MaxTokens struct {
	Summary        int
	Evaluation     int
	Recommendation int
}

type RateLimits struct {
	FreePerHour    int
	PremiumPerHour int
}

type Config struct {
	OutputDir    string
	APIBaseURL   string
	APIKey       string
	Models       Models
	Temperatures Temperatures
	MaxTokens    MaxTokens
	RateLimits   RateLimits
	JWTSecret    string
	TokenTTL     time.Duration
	StoragePath  string
}

// AudioExtensions lists the containers the analyze endpoint accepts.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".aac"}

// File naming patterns for per-call artifacts, keyed by artifact kind.
var FilePatterns = map[string]string{
	"TRANSCRIPT":      "%s_formatted_transcript.txt",
	"SUMMARY":         "%s_summary_report.txt",
	"EVALUATION_JSON": "%s_evaluation_report.json",
	"EVALUATION_TXT":  "%s_evaluation_report.txt",
	"RECOMMENDATIONS": "%s_recommendations.txt",
	"NOISE_JSON":      "%s_noise_report.json",
}

// Load builds the config from the environment. Call after godotenv.Load.
func Load() (*Config, error) {
	cfg := &Config{
		OutputDir:  envOr("OUTPUTS_DIR", "outputs"),
		APIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Models: Models{
			Transcription:  envOr("TRANSCRIPTION_MODEL", "gpt-4o-mini-transcribe"),
			Summary:        envOr("SUMMARY_MODEL", "gpt-4o-mini"),
			Evaluation:     envOr("EVALUATION_MODEL", "gpt-4o-mini"),
			Recommendation: envOr("RECOMMENDATION_MODEL", "gpt-4o-mini"),
		},
		Temperatures: Temperatures{
			Transcription:  0.2,
			Summary:        0.3,
			Evaluation:     0.1,
			Recommendation: 0.3,
		},
		MaxTokens: MaxTokens{
			Summary:        1000,
			Evaluation:     1500,
			Recommendation: 1200,
		},
		RateLimits: RateLimits{
			FreePerHour:    10,
			PremiumPerHour: 100,
		},
		JWTSecret:   envOr("JWT_SECRET_KEY", "your-secret-key-change-this"),
		TokenTTL:    24 * time.Hour,
		StoragePath: envOr("STORAGE_PATH", "callcenter.db"),
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create outputs dir: %w", err)
	}
	return cfg, nil
}

// ArtifactPath returns the full path for a pattern key and file identifier.
func (c *Config) ArtifactPath(patternKey, fileID string) string {
	pattern, ok := FilePatterns[patternKey]
	if !ok {
		pattern = "%s_" + patternKey + ".txt"
	}
	return filepath.Join(c.OutputDir, fmt.Sprintf(pattern, fileID))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
