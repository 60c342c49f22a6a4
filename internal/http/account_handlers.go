package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/history"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/preferences"
)

type historyResponse struct {
	History []history.View `json:"history"`
}

// GetHistory handles GET /history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	entries, err := h.history.List(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: history.Views(entries, h.now())})
}

// ClearHistory handles DELETE /history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	if err := h.history.Clear(r.Context(), user.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("clear").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// RemoveHistoryEntry handles DELETE /history/{city}. Matching ignores case.
func (h *Handler) RemoveHistoryEntry(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	entries, err := h.history.Remove(r.Context(), user.ID, mux.Vars(r)["city"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.HistoryWritesTotal.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, historyResponse{History: history.Views(entries, h.now())})
}

// GetPreferences handles GET /preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	prefs, err := h.preferences.Get(r.Context(), user.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PATCH /preferences. Only fields present in the body change.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var upd preferences.Update
	if !decodeJSON(w, r, &upd) {
		return
	}
	prefs, err := h.preferences.Update(r.Context(), user.Email, upd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type usersResponse struct {
	Users []models.PublicUser `json:"users"`
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: out})
}

// isSelf reports whether the admin is acting on their own account.
func isSelf(r *http.Request) bool {
	admin, _ := userFromContext(r.Context())
	return strings.EqualFold(strings.TrimSpace(mux.Vars(r)["email"]), admin.Email)
}

// DeleteUser handles DELETE /admin/users/{email}. The user's session and history go
// with the account.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if isSelf(r) {
		writeError(w, r, http.StatusBadRequest, "SELF_MODIFICATION", "Admins cannot delete their own account")
		return
	}
	email := mux.Vars(r)["email"]
	target, err := h.accounts.FindByEmail(r.Context(), email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), target.Email); err != nil {
		writeDomainError(w, r, err)
		return
	}
	logger := observability.LoggerFromContext(r.Context())
	if err := h.sessions.EndUserSession(r.Context(), target.Email); err != nil {
		logger.Warn("end session of deleted user", zap.Error(err))
	}
	if err := h.history.Clear(r.Context(), target.ID); err != nil {
		logger.Warn("clear history of deleted user", zap.Error(err))
	}
	logger.Info("user deleted", zap.String("user_id", target.ID))
	w.WriteHeader(http.StatusNoContent)
}

// ToggleAdmin handles POST /admin/users/{email}/admin.
func (h *Handler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	if isSelf(r) {
		writeError(w, r, http.StatusBadRequest, "SELF_MODIFICATION", "Admins cannot change their own admin flag")
		return
	}
	user, err := h.accounts.ToggleAdmin(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.LoggerFromContext(r.Context()).Info("admin flag changed",
		zap.String("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	writeJSON(w, http.StatusOK, user.Public())
}
