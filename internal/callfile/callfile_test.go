package callfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractDriveFileID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"file view link", "https://drive.google.com/file/d/1aB2cD3eF4/view?usp=sharing", "1aB2cD3eF4"},
		{"open with id param", "https://drive.google.com/open?id=1aB2cD3eF4", "1aB2cD3eF4"},
		{"uc export link", "https://drive.google.com/uc?export=download&id=1aB2cD3eF4", "1aB2cD3eF4"},
		{"folder link", "https://drive.google.com/drive/folders/1FolderID_-x", "1FolderID_-x"},
		{"docs link", "https://docs.google.com/document/d/1DocID/edit", "1DocID"},
		{"spreadsheet link", "https://docs.google.com/spreadsheets/d/1SheetID/edit#gid=0", "1SheetID"},
		{"id with dash and underscore", "https://drive.google.com/file/d/a-b_c123/view", "a-b_c123"},
		{"plain url", "https://example.com/audio.mp3", ""},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractDriveFileID(tc.url); got != tc.want {
				t.Errorf("ExtractDriveFileID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestIsValidDriveLink(t *testing.T) {
	valid := []string{
		"https://drive.google.com/file/d/abc123/view",
		"https://drive.google.com/open?id=abc123",
		"https://docs.google.com/document/d/abc123/edit",
	}
	for _, u := range valid {
		if !IsValidDriveLink(u) {
			t.Errorf("IsValidDriveLink(%q) = false, want true", u)
		}
	}

	invalid := []string{
		"",
		"https://example.com/file/d/abc123/view",
		"https://drive.google.com/about",
		"not a url at all",
	}
	for _, u := range invalid {
		if IsValidDriveLink(u) {
			t.Errorf("IsValidDriveLink(%q) = true, want false", u)
		}
	}
}

func TestIdentifier(t *testing.T) {
	if got := Identifier("https://drive.google.com/file/d/abc123/view", "/tmp/x.wav"); got != "abc123_MPE" {
		t.Errorf("drive id wins: got %q", got)
	}
	if got := Identifier("", "/data/calls/morning_call.wav"); got != "morning_call_MPE" {
		t.Errorf("filename fallback: got %q", got)
	}

	// Short or generic temp names fall back to a path hash.
	hashed := Identifier("", "/tmp/ab.wav")
	if !strings.HasPrefix(hashed, "local_") || !strings.HasSuffix(hashed, "_MPE") {
		t.Errorf("hash fallback: got %q", hashed)
	}
	if again := Identifier("", "/tmp/ab.wav"); again != hashed {
		t.Errorf("hash fallback not stable: %q vs %q", again, hashed)
	}

	// No inputs at all still yields a usable identifier.
	if got := Identifier("", ""); !strings.HasPrefix(got, "audio_") || !strings.HasSuffix(got, "_MPE") {
		t.Errorf("time fallback: got %q", got)
	}
}

func TestIsAudioFile(t *testing.T) {
	for _, name := range []string{"call.mp3", "CALL.WAV", "x.m4a", "y.ogg", "z.flac", "w.aac"} {
		if !IsAudioFile(name) {
			t.Errorf("IsAudioFile(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"notes.txt", "call.mp4", "archive.zip", "call"} {
		if IsAudioFile(name) {
			t.Errorf("IsAudioFile(%q) = true, want false", name)
		}
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "call.wav")
	if err := os.WriteFile(good, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Validate(good); err != nil {
		t.Errorf("Validate(good) = %v", err)
	}

	empty := filepath.Join(dir, "empty.mp3")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Validate(empty); err == nil {
		t.Error("Validate(empty) = nil, want error")
	}

	wrongExt := filepath.Join(dir, "call.txt")
	if err := os.WriteFile(wrongExt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Validate(wrongExt); err == nil {
		t.Error("Validate(wrong ext) = nil, want error")
	}

	if err := Validate(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("Validate(missing) = nil, want error")
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize(`a<b>c:d"e/f\g|h?i*j.wav`); got != "a_b_c_d_e_f_g_h_i_j.wav" {
		t.Errorf("Sanitize = %q", got)
	}

	long := strings.Repeat("x", 300) + ".wav"
	got := Sanitize(long)
	if len(got) > 200 {
		t.Errorf("len = %d, want <= 200", len(got))
	}
	if !strings.HasSuffix(got, ".wav") {
		t.Errorf("extension lost: %q", got)
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a   b\t\tc\n\nd", "a b c d"},
		{"strips control chars", "hel\x00lo \x07world", "hello world"},
		{"trims", "   padded   ", "padded"},
		{"empty", "", ""},
		{"keeps arabic", "مرحبا  بكم", "مرحبا بكم"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
