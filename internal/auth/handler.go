// AngelaMos | 2026
// handler.go

package auth

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/stockease/internal/core"
	"github.com/carterperez-dev/stockease/internal/middleware"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(
	service *Service,
	validate *validator.Validate,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		validate: validate,
		logger:   logger.With("handler", "auth"),
	}
}

// PublicRoutes mounts the unauthenticated session endpoints.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
}

// ProtectedRoutes mounts endpoints that require a valid access token.
func (h *Handler) ProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.Logout)
	r.Put("/update-email", h.UpdateEmail)
	r.Put("/change-password", h.ChangePassword)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	resp, err := h.service.Login(
		r.Context(),
		req,
		r.UserAgent(),
		ExtractIPAddress(r),
	)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(w, InvalidCredentialsError())
			return
		}
		h.logger.Error("login failed", "error", err)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	resp, err := h.service.Refresh(
		r.Context(),
		req.Refresh,
		r.UserAgent(),
		ExtractIPAddress(r),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReuse):
			h.logger.Warn("refresh token reuse detected",
				"ip", ExtractIPAddress(r))
			core.JSONError(w, core.TokenRevokedError())
		case errors.Is(err, core.ErrTokenRevoked):
			core.JSONError(w, core.TokenRevokedError())
		case errors.Is(err, core.ErrTokenExpired):
			core.JSONError(w, core.TokenExpiredError())
		case errors.Is(err, core.ErrTokenInvalid):
			core.JSONError(w, core.TokenInvalidError())
		default:
			h.logger.Error("refresh failed", "error", err)
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Refresh token is required")
		return
	}

	result, err := h.service.RevokeRefreshToken(r.Context(), req.Refresh)
	if err != nil {
		h.logger.Error("logout failed", "error", err)
		core.InternalServerError(w, err)
		return
	}

	switch result {
	case RevokeOK:
		// The access token that authenticated this request is retired
		// alongside the refresh token.
		if claims := middleware.GetClaims(r.Context()); claims != nil {
			if err := h.service.BlacklistAccessToken(
				r.Context(),
				claims.JTI,
				claims.ExpiresAt,
			); err != nil {
				h.logger.Warn("access token blacklist failed",
					"error", err)
			}
		}
		core.OK(w, MessageResponse{Message: "Logout successful"})
	case RevokeAlreadyInvalid:
		core.JSONError(w, logoutFailedError(
			"Token is invalid or already blacklisted",
		))
	default:
		core.JSONError(w, logoutFailedError("Invalid refresh token"))
	}
}

func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateEmailRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	if err := h.service.UpdateEmail(r.Context(), userID, req.Email); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Email updated successfully"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ChangePasswordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		userID,
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, MessageResponse{
		Message: "Password changed successfully. Please log in again.",
	})
}

func logoutFailedError(message string) *core.AppError {
	return core.NewAppError(
		core.ErrTokenInvalid,
		message,
		http.StatusBadRequest,
		"LOGOUT_FAILED",
	)
}

// ExtractIPAddress prefers the first X-Forwarded-For hop so audit rows
// record the client rather than the proxy.
func ExtractIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
