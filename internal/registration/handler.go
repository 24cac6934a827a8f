// AngelaMos | 2026
// handler.go

package registration

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/stockease/internal/auth"
	"github.com/carterperez-dev/stockease/internal/core"
)

type Handler struct {
	service  *Service
	sessions *auth.Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(
	service *Service,
	sessions *auth.Service,
	validate *validator.Validate,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		validate: validate,
		logger:   logger.With("handler", "registration"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/signup", h.Signup)
	r.Post("/verify-otp", h.VerifyOTP)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	token, err := h.service.Initiate(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, emailExistsError())
			return
		}
		h.logger.Error("signup failed", "error", err)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, SignupResponse{
		Token:   token,
		Message: "OTP sent to your email. Please verify to complete registration.",
	})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	userInfo, err := h.service.Verify(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			core.JSONError(w, core.NewAppError(
				err,
				"Registration session expired or invalid. Please sign up again.",
				http.StatusBadRequest,
				"SESSION_EXPIRED",
			))
		case errors.Is(err, ErrInvalidOTP):
			appErr := core.NewAppError(
				err,
				"Invalid OTP.",
				http.StatusBadRequest,
				"INVALID_OTP",
			)
			appErr.Fields = map[string]string{"otp": "Invalid OTP."}
			core.JSONError(w, appErr)
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, emailExistsError())
		default:
			h.logger.Error("otp verification failed", "error", err)
			core.InternalServerError(w, err)
		}
		return
	}

	resp, err := h.sessions.IssueTokens(
		r.Context(),
		userInfo,
		r.UserAgent(),
		auth.ExtractIPAddress(r),
	)
	if err != nil {
		h.logger.Error("token issue after registration failed", "error", err)
		core.InternalServerError(w, err)
		return
	}
	resp.Message = "Registration successful"

	core.Created(w, resp)
}

func emailExistsError() *core.AppError {
	const msg = "A user with this email already exists."
	appErr := core.NewAppError(
		core.ErrDuplicateKey,
		msg,
		http.StatusBadRequest,
		"EMAIL_EXISTS",
	)
	appErr.Fields = map[string]string{"email": msg}
	return appErr
}
