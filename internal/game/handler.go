package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"

	"fishing-api/internal/auth"
)

const (
	defaultInventoryLimit   = 50
	defaultLeaderboardLimit = 100
	maxListLimit            = 200
)

type Handler struct {
	game *Game
	repo *Repository
}

func NewHandler(game *Game, repo *Repository) *Handler {
	return &Handler{game: game, repo: repo}
}

// Cast is the guarded game action. By the time it runs the auth, rate-limit
// and cooldown guards have all admitted the request.
func (h *Handler) Cast(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.game.Cast(r.Context(), identity.Subject)
	if err != nil {
		if errors.Is(err, ErrNoSpecies) {
			writeError(w, http.StatusInternalServerError, "no fish available")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to cast line")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message,
		"catch": map[string]any{
			"fish": map[string]any{
				"id":          result.Fish.ID,
				"name":        result.Fish.Name,
				"rarity":      result.Fish.Rarity,
				"description": result.Fish.Description,
				"image_url":   result.Fish.ImageURL,
			},
			"weight":           result.Weight,
			"points":           result.Points,
			"is_personal_best": result.PersonalBest,
		},
	})
}

func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := queryLimit(r, defaultInventoryLimit)
	catches, err := h.repo.PlayerCatches(r.Context(), identity.Subject, limit)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load inventory")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"catches": catches,
		"count":   len(catches),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.repo.PlayerStats(r.Context(), identity.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

func (h *Handler) SpeciesCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.game.SpeciesCatalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"fish_species": catalog,
		"count":        len(catalog),
	})
}

func (h *Handler) LeaderboardHeaviest(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, h.repo.LeaderboardHeaviest)
}

func (h *Handler) LeaderboardMostCatches(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, h.repo.LeaderboardMostCatches)
}

func (h *Handler) LeaderboardRareCatches(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, h.repo.LeaderboardRareCatches)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request, query func(ctx context.Context, limit int) ([]LeaderboardEntry, error)) {
	limit := queryLimit(r, defaultLeaderboardLimit)
	entries, err := query(r.Context(), limit)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"leaderboard": entries,
		"count":       len(entries),
	})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > maxListLimit {
		return maxListLimit
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
