package handlers

import (
	"encoding/json"
	"net/http"

	"chat-core/internal/auth"
	"chat-core/internal/presence"
	"chat-core/pkg/logger"
)

type PresenceHandlers struct {
	tracker     presence.Tracker
	authService *auth.Service
}

func NewPresenceHandlers(tracker presence.Tracker, authService *auth.Service) *PresenceHandlers {
	return &PresenceHandlers{
		tracker:     tracker,
		authService: authService,
	}
}

// ListOnline returns the ids of every user with an unexpired presence
// entry. Silent expiry has no push notification; clients poll this.
func (h *PresenceHandlers) ListOnline(w http.ResponseWriter, r *http.Request) {
	online, err := h.tracker.ListOnline(r.Context())
	if err != nil {
		logger.Error("List online error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"online": online,
		"count":  len(online),
	})
}

func (h *PresenceHandlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserFromToken(r.Context(), auth.BearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.tracker.Heartbeat(r.Context(), user.ID); err != nil {
		logger.Error("Heartbeat error for user %d: %v", user.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PresenceHandlers) SetOffline(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserFromToken(r.Context(), auth.BearerToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.tracker.SetOffline(r.Context(), user.ID); err != nil {
		logger.Error("Set offline error for user %d: %v", user.ID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
