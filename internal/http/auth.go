package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/session"
)

type authContextKey int

const (
	userContextKey authContextKey = iota
	tokenContextKey
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func withUser(ctx context.Context, user models.User, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, token)
}

// userFromContext returns the signed-in user, if any.
func userFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userContextKey).(models.User)
	return u, ok
}

func tokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenContextKey).(string)
	return t
}

// RequireUser rejects requests without a valid bearer session.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, err := h.sessions.CurrentUser(r.Context(), token)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
	})
}

// OptionalUser resolves the bearer session when one is sent. Unknown or expired tokens
// are served anonymously.
func (h *Handler) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.sessions.CurrentUser(r.Context(), token)
		switch {
		case err == nil:
			r = r.WithContext(withUser(r.Context(), user, token))
		case errors.Is(err, session.ErrNoSession):
			observability.LoggerFromContext(r.Context()).Debug("ignoring unknown session token")
		default:
			writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after RequireUser.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok {
			writeDomainError(w, r, session.ErrNoSession)
			return
		}
		if !user.IsAdmin {
			writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var reg account.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}
	user, err := h.accounts.Register(r.Context(), reg)
	observability.RecordAuthEvent("register", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.LoggerFromContext(r.Context()).Info("user registered",
		zap.String("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	writeJSON(w, http.StatusCreated, user.Public())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Login handles POST /auth/login. A new login replaces the user's previous session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, user, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	observability.RecordAuthEvent("login", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, User: user.Public()})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Logout(r.Context(), tokenFromContext(r.Context()))
	observability.RecordAuthEvent("logout", err)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, user.Public())
}
