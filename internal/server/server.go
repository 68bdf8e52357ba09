// Package server exposes the analysis pipeline and account management over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"callcenter-insights-go/internal/auth"
	"callcenter-insights-go/internal/config"
	"callcenter-insights-go/internal/logger"
	"callcenter-insights-go/internal/pipeline"
	"callcenter-insights-go/internal/store"
	"callcenter-insights-go/internal/worker"
)

// Analyzer runs the full pipeline for one recording. prompt is an optional
// caller instruction for the summary stage.
type Analyzer interface {
	ProcessCallWithPrompt(ctx context.Context, audioURL, localPath, prompt string) pipeline.Result
}

// BatchQueue accepts batch jobs and reports their state.
type BatchQueue interface {
	Submit(job worker.Job) bool
	BatchStatus(id string) (worker.Status, bool)
}

// Accounts is the slice of the store the handlers need.
type Accounts interface {
	CreateUser(ctx context.Context, u store.User) error
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByID(ctx context.Context, id string) (store.User, error)
	SaveResult(ctx context.Context, e store.HistoryEntry) error
	History(ctx context.Context, uid string, limit int) ([]store.HistoryEntry, error)
	RecentCount(ctx context.Context, uid string, since time.Time) (int, error)
}

// Handler carries the wired dependencies for every route.
type Handler struct {
	cfg      *config.Config
	accounts Accounts
	tokens   *auth.Manager
	analyzer Analyzer
	queue    BatchQueue
}

func New(cfg *config.Config, accounts Accounts, tokens *auth.Manager, analyzer Analyzer, queue BatchQueue) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		tokens:   tokens,
		analyzer: analyzer,
		queue:    queue,
	}
}

// Routes builds the ServeMux with all API endpoints.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/auth/verify", h.handleVerify)
	mux.HandleFunc("GET /api/user/profile", h.handleProfile)
	mux.HandleFunc("GET /api/user/history", h.handleHistory)
	mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	mux.HandleFunc("POST /api/analyze/batch", h.handleAnalyzeBatch)
	mux.HandleFunc("GET /api/analyze/batch/{id}", h.handleBatchStatus)
	mux.HandleFunc("GET /api/health", h.handleHealth)

	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	logger.New().WithRequest(r).Info("health check")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "callcenter-insights",
	})
}

// requestLog builds the per-request log entry with a request id.
func requestLog(r *http.Request, handler string) *logrus.Entry {
	return logger.New().WithRequest(r).WithField("handler", handler)
}

// bearerClaims extracts and verifies the Authorization bearer token. Returns
// nil without error when no token was sent.
func (h *Handler) bearerClaims(r *http.Request) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || strings.TrimSpace(token) == "" {
		return nil, auth.ErrInvalidToken
	}
	return h.tokens.Verify(strings.TrimSpace(token))
}

// requireClaims is bearerClaims for endpoints where auth is mandatory.
func (h *Handler) requireClaims(r *http.Request) (*auth.Claims, error) {
	claims, err := h.bearerClaims(r)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
