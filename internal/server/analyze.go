package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"callcenter-insights-go/internal/auth"
	"callcenter-insights-go/internal/callfile"
	"callcenter-insights-go/internal/manifest"
	"callcenter-insights-go/internal/pipeline"
	"callcenter-insights-go/internal/store"
	"callcenter-insights-go/internal/worker"
)

type analyzeRequest struct {
	DriveLink string `json:"drive_link"`
	Prompt    string `json:"prompt,omitempty"`
}

type batchRequest struct {
	ManifestPath string   `json:"manifest_path,omitempty"`
	AudioURLs    []string `json:"audio_urls,omitempty"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "analyze")

	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DriveLink == "" {
		writeError(w, http.StatusBadRequest, "drive_link is required")
		return
	}
	if !callfile.IsValidDriveLink(req.DriveLink) {
		writeError(w, http.StatusBadRequest, "drive_link is not a valid Google Drive share link")
		return
	}

	claims, err := h.bearerClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}

	if claims != nil {
		allowed, remaining := h.checkRateLimit(r, claims)
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "hourly analysis limit reached")
			return
		}
		log = log.WithField("uid", claims.UID).WithField("quota_remaining", remaining)
	}

	log.WithField("drive_link", req.DriveLink).Info("analysis started")
	result := h.analyzer.ProcessCallWithPrompt(r.Context(), req.DriveLink, "", req.Prompt)

	if claims != nil {
		h.saveHistory(r, claims, result)
	}

	code := http.StatusOK
	if result.Status == pipeline.StatusFailed {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, result)
}

// checkRateLimit enforces the per-tier hourly quota from history. Lookup
// errors fail open so a storage hiccup never blocks analysis.
func (h *Handler) checkRateLimit(r *http.Request, claims *auth.Claims) (allowed bool, remaining int) {
	limit := h.cfg.RateLimits.FreePerHour
	if user, err := h.accounts.UserByID(r.Context(), claims.UID); err == nil && user.Tier == "premium" {
		limit = h.cfg.RateLimits.PremiumPerHour
	}
	if limit <= 0 {
		return true, 0
	}

	count, err := h.accounts.RecentCount(r.Context(), claims.UID, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		requestLog(r, "analyze").WithError(err).Warn("rate limit lookup failed, allowing request")
		return true, limit
	}
	if count >= limit {
		return false, 0
	}
	return true, limit - count - 1
}

func (h *Handler) saveHistory(r *http.Request, claims *auth.Claims, result pipeline.Result) {
	log := requestLog(r, "analyze").WithField("uid", claims.UID)

	resultsJSON, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Warn("could not serialize result for history")
		return
	}
	errorsJSON, _ := json.Marshal(result.Errors)

	entry := store.HistoryEntry{
		ID:           uuid.NewString(),
		UID:          claims.UID,
		FileID:       result.FileIdentifier,
		AudioURL:     result.AudioURL,
		Status:       result.Status,
		ProcessingMs: result.DurationMs,
		ResultsJSON:  string(resultsJSON),
		ErrorsJSON:   string(errorsJSON),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.accounts.SaveResult(r.Context(), entry); err != nil {
		log.WithError(err).Warn("could not save history entry")
	}
}

func (h *Handler) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "analyze_batch")

	claims, err := h.requireClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}

	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var records []manifest.CallRecord
	switch {
	case req.ManifestPath != "":
		records, err = manifest.Load(req.ManifestPath)
		if err != nil {
			writeError(w, http.StatusBadRequest, "manifest: "+err.Error())
			return
		}
	case len(req.AudioURLs) > 0:
		for _, u := range req.AudioURLs {
			if !callfile.IsValidDriveLink(u) {
				writeError(w, http.StatusBadRequest, "audio_urls contains an invalid Drive link: "+u)
				return
			}
			records = append(records, manifest.CallRecord{AudioURL: u})
		}
	default:
		writeError(w, http.StatusBadRequest, "manifest_path or audio_urls is required")
		return
	}

	batchID := uuid.NewString()
	if !h.queue.Submit(worker.Job{BatchID: batchID, Records: records}) {
		writeError(w, http.StatusServiceUnavailable, "batch queue is full, retry later")
		return
	}

	log.WithField("uid", claims.UID).
		WithField("batch_id", batchID).
		WithField("total_calls", len(records)).
		Info("batch accepted")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"batch_id":    batchID,
		"total_calls": len(records),
	})
}

func (h *Handler) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requireClaims(r); err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}

	batchID := r.PathValue("id")
	status, ok := h.queue.BatchStatus(batchID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown batch id")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
