// Package manifest loads batch call manifests from Excel workbooks.
package manifest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CallRecord is one row of a batch manifest: a call identifier and the Drive
// link (or direct URL) of its recording.
type CallRecord struct {
	CallID   string `json:"call_id,omitempty"`
	AudioURL string `json:"audio_url"`
	Agent    string `json:"agent,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Load reads the first sheet and auto-detects columns by header heuristics.
// Rows whose audio cell is not an http(s) URL are skipped quietly.
func Load(path string) ([]CallRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("manifest has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("manifest has no data rows")
	}

	audioIdx, callIDIdx, agentIdx, notesIdx := detectColumns(rows[0])
	if audioIdx == -1 {
		return nil, fmt.Errorf("manifest has no recognizable audio column")
	}

	var out []CallRecord
	for i, r := range rows {
		if i == 0 {
			continue
		}
		rec := CallRecord{}
		if callIDIdx >= 0 && callIDIdx < len(r) {
			rec.CallID = strings.TrimSpace(r[callIDIdx])
		}
		if audioIdx < len(r) {
			rec.AudioURL = strings.TrimSpace(r[audioIdx])
		}
		if agentIdx >= 0 && agentIdx < len(r) {
			rec.Agent = strings.TrimSpace(r[agentIdx])
		}
		if notesIdx >= 0 && notesIdx < len(r) {
			rec.Notes = strings.TrimSpace(r[notesIdx])
		}

		lower := strings.ToLower(rec.AudioURL)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("manifest has no rows with usable audio links")
	}
	return out, nil
}

// detectColumns scans the header row for the audio link and metadata columns.
// The audio match runs first so a header like "call recording url" never gets
// claimed by the call id rule.
func detectColumns(header []string) (audioIdx, callIDIdx, agentIdx, notesIdx int) {
	audioIdx, callIDIdx, agentIdx, notesIdx = -1, -1, -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "audio") || strings.Contains(l, "record") ||
			strings.Contains(l, "url") || strings.Contains(l, "link"):
			if audioIdx == -1 {
				audioIdx = i
			}
		case strings.Contains(l, "call id") || strings.Contains(l, "callid") || strings.Contains(l, "id"):
			if callIDIdx == -1 {
				callIDIdx = i
			}
		case strings.Contains(l, "agent") || strings.Contains(l, "employee"):
			if agentIdx == -1 {
				agentIdx = i
			}
		case strings.Contains(l, "note") || strings.Contains(l, "comment"):
			if notesIdx == -1 {
				notesIdx = i
			}
		}
	}
	return audioIdx, callIDIdx, agentIdx, notesIdx
}
