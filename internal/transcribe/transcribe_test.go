package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"callcenter-insights-go/internal/config"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		APIBaseURL: baseURL,
		APIKey:     "test-key",
		Models:     config.Models{Transcription: "gpt-4o-mini-transcribe"},
		Temperatures: config.Temperatures{
			Transcription: 0.2,
		},
	}
	return NewClient(cfg)
}

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeSuccess(t *testing.T) {
	audio := writeAudioFixture(t)

	var gotModel, gotFormat, gotLanguage string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		gotLanguage = r.FormValue("language")
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotFile, _ = io.ReadAll(file)
		file.Close()
		w.Write([]byte("Callcenter: Hello.\nPatient: Hi."))
	}))
	defer srv.Close()

	transcript, err := testClient(srv.URL).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript != "Callcenter: Hello.\nPatient: Hi." {
		t.Errorf("transcript = %q", transcript)
	}
	if gotModel != "gpt-4o-mini-transcribe" {
		t.Errorf("model = %q", gotModel)
	}
	if gotFormat != "text" {
		t.Errorf("response_format = %q", gotFormat)
	}
	if gotLanguage != "ar" {
		t.Errorf("language = %q", gotLanguage)
	}
	if string(gotFile) != "RIFF fake audio bytes" {
		t.Errorf("uploaded file = %q", gotFile)
	}
}

func TestTranscribeClientErrorIsNotRetried(t *testing.T) {
	audio := writeAudioFixture(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unsupported file", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Transcribe(context.Background(), audio); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	audio := writeAudioFixture(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("Callcenter: Recovered."))
	}))
	defer srv.Close()

	transcript, err := testClient(srv.URL).Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcript != "Callcenter: Recovered." {
		t.Errorf("transcript = %q", transcript)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	if _, err := testClient("http://localhost:1").Transcribe(context.Background(), "/no/such/audio.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTranscribeMockMode(t *testing.T) {
	t.Setenv("USE_MOCK_TRANSCRIBE", "true")
	transcript, err := testClient("http://localhost:1").Transcribe(context.Background(), "/ignored.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if SpeakerTurns(transcript) != 2 {
		t.Errorf("SpeakerTurns = %d, want 2", SpeakerTurns(transcript))
	}
}

func TestSpeakerTurns(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"Callcenter: Hello.", 1},
		{"Callcenter: Hello.\n\nPatient: Hi.\n", 2},
		{"a\nb\nc", 3},
	}
	for _, tc := range tests {
		if got := SpeakerTurns(tc.in); got != tc.want {
			t.Errorf("SpeakerTurns(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
