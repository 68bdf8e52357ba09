package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"callcenter-insights-go/internal/auth"
	"callcenter-insights-go/internal/store"
)

const minPasswordLength = 6

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Tier        string `json:"tier"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "register")

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("password hashing failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := store.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Tier:         "free",
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.accounts.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.WithError(err).Error("create user failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.WithError(err).Error("token issue failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	log.WithField("uid", user.ID).Info("user registered")
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"token":  token,
		"user":   toUserPayload(user),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "login")

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.accounts.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.WithError(err).Error("user lookup failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		log.WithError(err).Error("token issue failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	log.WithField("uid", user.ID).Info("user logged in")
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"token":  token,
		"user":   toUserPayload(user),
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, err := h.requireClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"uid":    claims.UID,
		"email":  claims.Email,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "profile")

	claims, err := h.requireClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}
	user, err := h.accounts.UserByID(r.Context(), claims.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.WithError(err).Error("profile lookup failed")
		writeError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"user":   toUserPayload(user),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, "history")

	claims, err := h.requireClaims(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, authErrorMessage(err))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	entries, err := h.accounts.History(r.Context(), claims.UID, limit)
	if err != nil {
		log.WithError(err).Error("history lookup failed")
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"id":            e.ID,
			"file_id":       e.FileID,
			"audio_url":     e.AudioURL,
			"status":        e.Status,
			"processing_ms": e.ProcessingMs,
			"timestamp":     e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"count":   len(items),
		"history": items,
	})
}

func toUserPayload(u store.User) userPayload {
	return userPayload{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Tier:        u.Tier,
	}
}

func authErrorMessage(err error) string {
	if errors.Is(err, auth.ErrExpiredToken) {
		return "token expired"
	}
	return "missing or invalid token"
}
