// Package callfile handles identification and validation of call recordings.
package callfile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"callcenter-insights-go/internal/config"
)

// identifierSuffix marks identifiers minted by this engine so artifacts from
// different tools never collide in a shared outputs directory.
const identifierSuffix = "_MPE"

var (
	reFileID   = regexp.MustCompile(`/file/d/([a-zA-Z0-9-_]+)`)
	reFolderID = regexp.MustCompile(`/folders/([a-zA-Z0-9-_]+)`)
	reDocID    = regexp.MustCompile(`/(?:document|spreadsheets|presentation)/d/([a-zA-Z0-9-_]+)`)
)

// ExtractDriveFileID pulls the file ID out of the Google Drive URL formats we
// see in practice: /file/d/ID, ?id=ID, /folders/ID and docs-style /d/ID links.
func ExtractDriveFileID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if m := reFileID.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if u, err := url.Parse(rawURL); err == nil {
		if id := u.Query().Get("id"); id != "" {
			return id
		}
	}
	if m := reFolderID.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := reDocID.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// IsValidDriveLink reports whether the URL is a Google Drive link we can fetch.
func IsValidDriveLink(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return (host == "drive.google.com" || host == "docs.google.com") &&
		ExtractDriveFileID(rawURL) != ""
}

// Identifier derives a stable identifier for an audio file. Drive links win;
// otherwise the local filename, falling back to a hash of the path.
func Identifier(audioURL, localPath string) string {
	if audioURL != "" {
		if id := ExtractDriveFileID(audioURL); id != "" {
			return id + identifierSuffix
		}
	}
	if localPath != "" {
		name := Sanitize(strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath)))
		if name != "" && name != "tmp" && len(name) > 3 {
			return name + identifierSuffix
		}
		sum := md5.Sum([]byte(localPath))
		return "local_" + hex.EncodeToString(sum[:])[:8] + identifierSuffix
	}
	return fmt.Sprintf("audio_%d%s", time.Now().Unix(), identifierSuffix)
}

// IsAudioFile reports whether the filename carries a recognized audio extension.
func IsAudioFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range config.AudioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SizeMB returns the file size in megabytes, or 0 when the file is missing.
func SizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}

// Validate checks that a recording exists, is non-empty and looks like audio.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if !IsAudioFile(path) {
		return fmt.Errorf("file is not a recognized audio format: %s", path)
	}
	return nil
}

// Sanitize makes a filename safe for the local filesystem.
func Sanitize(filename string) string {
	for _, ch := range `<>:"/\|?*` {
		filename = strings.ReplaceAll(filename, string(ch), "_")
	}
	if len(filename) > 200 {
		ext := filepath.Ext(filename)
		filename = filename[:200-len(ext)] + ext
	}
	return filename
}

// CleanText collapses whitespace and strips control characters before the text
// is handed to a model.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	fields := strings.Fields(text)
	joined := strings.Join(fields, " ")
	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		if r < 0x20 && r != '\t' {
			continue
		}
		if r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
