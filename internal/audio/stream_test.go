package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV creates a PCM fixture on disk for decoder tests.
func writeWAV(t *testing.T, path string, data []int, sampleRate, channels, bitDepth int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
}

func errorKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *audio.Error, got %T: %v", err, err)
	}
	return ae.Kind
}

func TestDecodeKeepsFirstChannelOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	data := make([]int, 0, 2000)
	for i := 0; i < 1000; i++ {
		data = append(data, 100, -100) // left=100, right=-100
	}
	writeWAV(t, path, data, 8000, 2, 16)

	s, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Channels != 2 {
		t.Errorf("Channels = %d, want 2", s.Channels)
	}
	if s.Frames != 1000 || len(s.Samples) != 1000 {
		t.Fatalf("Frames = %d, len(Samples) = %d, want 1000", s.Frames, len(s.Samples))
	}
	for i, v := range s.Samples {
		if v != 100 {
			t.Fatalf("Samples[%d] = %v, want 100 (first channel)", i, v)
		}
	}
}

func TestDecodeProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	data := make([]int, 16000)
	writeWAV(t, path, data, 16000, 1, 16)

	s, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", s.SampleRate)
	}
	if s.BitsPerSample != 16 {
		t.Errorf("BitsPerSample = %d, want 16", s.BitsPerSample)
	}
	if got := s.Duration(); got != 1.0 {
		t.Errorf("Duration = %v, want 1.0", got)
	}
	if s.FileSizeMB <= 0 {
		t.Errorf("FileSizeMB = %v, want > 0", s.FileSizeMB)
	}
}

func TestDecodeFailures(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.wav")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not a riff container"), 0o644); err != nil {
		t.Fatal(err)
	}
	unsupported := filepath.Join(dir, "clip.ogg")
	if err := os.WriteFile(unsupported, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		kind ErrorKind
	}{
		{"missing file", filepath.Join(dir, "nope.wav"), ErrFileNotFound},
		{"empty file", empty, ErrEmptyFile},
		{"malformed container", garbage, ErrDecode},
		{"unsupported format", unsupported, ErrUnsupportedFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := errorKind(t, err); kind != tc.kind {
				t.Errorf("kind = %s, want %s", kind, tc.kind)
			}
		})
	}
}
