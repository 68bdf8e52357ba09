// Package download fetches call recordings shared through Google Drive links.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"callcenter-insights-go/internal/callfile"
	"callcenter-insights-go/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

const (
	driveExportURL  = "https://drive.google.com/uc?export=download"
	fetchTimeout    = 120 * time.Second
	tempFilePattern = "call_*.wav"
)

var reConfirmToken = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)

type Fetcher struct {
	httpClient *http.Client
	exportURL  string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		exportURL:  driveExportURL,
	}
}

// Fetch downloads the recording behind a Drive share link into a temp file and
// returns the local path. The caller owns cleanup of the file.
func (f *Fetcher) Fetch(ctx context.Context, driveURL string) (string, error) {
	fileID := callfile.ExtractDriveFileID(driveURL)
	if fileID == "" {
		return "", fmt.Errorf("download: could not extract file id from %q", driveURL)
	}
	log := logger.New().WithComponent("download").WithField("drive_file_id", fileID)

	tmp, err := os.CreateTemp("", tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("download: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	var lastErr error
	op := func() error {
		lastErr = f.fetchInto(ctx, fileID, tmpPath)
		return lastErr
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 3 * fetchTimeout
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		os.Remove(tmpPath)
		if lastErr != nil {
			return "", fmt.Errorf("download failed: %w", lastErr)
		}
		return "", fmt.Errorf("download failed: %w", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return "", fmt.Errorf("download: file is empty after fetch")
	}
	log.WithField("size_mb", callfile.SizeMB(tmpPath)).Info("download complete")
	return tmpPath, nil
}

func (f *Fetcher) fetchInto(ctx context.Context, fileID, dest string) error {
	directURL := f.exportURL + "&id=" + url.QueryEscape(fileID)

	resp, err := f.get(ctx, directURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Large files bounce to an interstitial page carrying a confirm token.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read interstitial: %w", err)
		}
		token := "t"
		if m := reConfirmToken.FindSubmatch(page); m != nil {
			token = string(m[1])
		}
		confirmed, err := f.get(ctx, directURL+"&confirm="+url.QueryEscape(token))
		if err != nil {
			return err
		}
		defer confirmed.Body.Close()
		if strings.HasPrefix(confirmed.Header.Get("Content-Type"), "text/html") {
			return backoff.Permanent(fmt.Errorf("drive refused direct download for %s", fileID))
		}
		return writeBody(dest, confirmed.Body)
	}

	return writeBody(dest, resp.Body)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		err := fmt.Errorf("drive responded %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return resp, nil
}

func writeBody(dest string, body io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("open dest: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("write dest: %w", err)
	}
	return nil
}
