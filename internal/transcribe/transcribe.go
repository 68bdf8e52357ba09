// Package transcribe uploads call recordings to an OpenAI-compatible speech
// endpoint and returns speaker-formatted transcripts.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

const uploadTimeout = 120 * time.Second

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	language    string
	httpClient  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Models.Transcription,
		temperature: cfg.Temperatures.Transcription,
		language:    "ar",
		httpClient:  &http.Client{Timeout: uploadTimeout},
	}
}

// Transcribe uploads the recording and returns the transcript text. Supports
// offline demos via USE_MOCK_TRANSCRIBE=true.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if os.Getenv("USE_MOCK_TRANSCRIBE") == "true" {
		return "Callcenter: MOCK greeting from the clinic.\nPatient: MOCK confirmation of tomorrow's appointment.", nil
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("transcribe: api key not configured")
	}
	log := logger.New().WithComponent("transcribe").WithField("audio_path", audioPath)

	body, contentType, err := c.buildUpload(audioPath)
	if err != nil {
		return "", err
	}

	var transcript string
	var lastErr error
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
			c.baseURL+"/audio/transcriptions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("transcription request failed")
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("transcription server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("transcription rejected: status %d body=%s", resp.StatusCode, string(respBody))
			return backoff.Permanent(lastErr)
		}
		text := strings.TrimSpace(string(respBody))
		if text == "" {
			lastErr = fmt.Errorf("transcription returned empty body")
			return lastErr
		}
		transcript = text
		lastErr = nil
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 3 * uploadTimeout
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return "", fmt.Errorf("transcription failed: %w", lastErr)
		}
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return transcript, nil
}

// buildUpload assembles the multipart body once so retries reuse it.
func (c *Client) buildUpload(audioPath string) ([]byte, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("transcribe: copy audio: %w", err)
	}

	_ = w.WriteField("model", c.model)
	_ = w.WriteField("response_format", "text")
	_ = w.WriteField("temperature", strconv.FormatFloat(c.temperature, 'f', -1, 64))
	_ = w.WriteField("language", c.language)
	_ = w.WriteField("prompt", config.TranscriptionPrompt)
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("transcribe: close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// SpeakerTurns counts non-blank transcript lines, a rough proxy for the number
// of speaker turns in the formatted output.
func SpeakerTurns(transcript string) int {
	count := 0
	for _, line := range strings.Split(transcript, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
