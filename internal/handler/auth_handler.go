package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	ratelimit "blog-admin/internal/repository/redis"
	"blog-admin/internal/service"
	"blog-admin/internal/session"
	"blog-admin/internal/util"
)

const maxBodyBytes = 1 << 20

// LoginLimiter throttles login attempts per client. *redis.RateLimitCache
// implements it.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// AuthHandler serves login, logout, session lookup and password change.
type AuthHandler struct {
	auth      *service.AuthService
	passwords *service.PasswordService
	issuer    *session.Issuer
	limiter   LoginLimiter
}

// NewAuthHandler creates the handler. limiter may be nil to disable rate limiting.
func NewAuthHandler(auth *service.AuthService, passwords *service.PasswordService, issuer *session.Issuer, limiter LoginLimiter) *AuthHandler {
	return &AuthHandler{auth: auth, passwords: passwords, issuer: issuer, limiter: limiter}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RegisterRoutes registers the auth API under the given router.
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
	})
	router.Post("/admin/change-password", h.ChangePassword)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := service.WithRequestMeta(r.Context(), service.RequestMeta{
		RemoteIP:  clientID(r),
		RequestID: middleware.GetReqID(r.Context()),
	})

	if !h.allowLogin(w, r) {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "invalid_request", "Invalid request body")
		return
	}

	outcome := h.auth.Authorize(ctx, req.Email, req.Password)
	if !outcome.OK() {
		if outcome.Reason == service.ReasonMissingCredentials {
			respondWithError(w, http.StatusBadRequest, nil, "missing_credentials", "Email and password are required")
			return
		}
		respondWithError(w, http.StatusUnauthorized, nil, "invalid_credentials", "Invalid email or password")
		return
	}

	token, expiresAt, err := h.issuer.Issue(*outcome.Claim)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err, "internal_error", "Failed to create session")
		return
	}
	h.issuer.SetCookie(w, r, token, expiresAt)
	h.resetLoginLimit(r)

	respondWithJSON(w, http.StatusOK, successResponse(session.Session{
		User:      *outcome.Claim,
		ExpiresAt: expiresAt,
	}, "Signed in"))
	util.Debug("Login handled",
		zap.String("account_id", outcome.Claim.ID),
		zap.Duration("duration", time.Since(startTime)))
}

// allowLogin applies the rate limit. Limiter errors let the request through.
func (h *AuthHandler) allowLogin(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	res, err := h.limiter.Allow(r.Context(), clientID(r))
	if err != nil {
		util.Warn("Login rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Limit-res.Count, 0)))
	if res.Allowed {
		return true
	}
	retry := int((res.RetryAfter + time.Second - 1) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
	respondWithError(w, http.StatusTooManyRequests, nil, "rate_limited", "Too many login attempts. Please try again later.")
	return false
}

// resetLoginLimit clears the client's attempt window after a successful
// sign-in.
func (h *AuthHandler) resetLoginLimit(r *http.Request) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Reset(r.Context(), clientID(r)); err != nil {
		util.Warn("Failed to reset login rate limit", zap.Error(err))
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.issuer.ClearCookie(w, r)
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Signed out"))
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := h.issuer.Resolve(r)
	if s == nil {
		respondWithError(w, http.StatusUnauthorized, nil, "unauthorized", "Unauthorized")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(s, ""))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	s := h.issuer.Resolve(r)
	if s == nil {
		respondWithError(w, http.StatusUnauthorized, nil, "unauthorized", "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "invalid_request", "Invalid request body")
		return
	}

	ctx := service.WithRequestMeta(r.Context(), service.RequestMeta{
		RemoteIP:  clientID(r),
		RequestID: middleware.GetReqID(r.Context()),
	})
	err := h.passwords.ChangePassword(ctx, s.User.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		status, code, message := passwordChangeError(err)
		respondWithError(w, status, err, code, message)
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Password updated successfully"))
}

// passwordChangeError determines the status code and user-facing message.
func passwordChangeError(err error) (int, string, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid_input", verr.Message
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound, "not_found", "User not found"
	case errors.Is(err, service.ErrCurrentPasswordIncorrect):
		return http.StatusBadRequest, "current_password_incorrect", "Current password is incorrect"
	default:
		return http.StatusInternalServerError, "internal_error", "Failed to update password"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// clientID identifies the caller for rate limiting by remote host. The
// router's RealIP middleware has already resolved proxy headers into
// RemoteAddr.
func clientID(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "anonymous"
}
