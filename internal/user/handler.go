// AngelaMos | 2026
// handler.go

package user

import (
	"log/slog"
	"net/http"
	"strconv"

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
		logger:   logger.With("handler", "user"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Patch("/me", h.UpdateMe)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.List)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	u, err := h.service.GetMe(r.Context(), userID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateProfileRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	u, err := h.service.UpdateMe(r.Context(), userID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
	}

	users, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, UserListResponse{
		Count:   total,
		Results: ToUserResponseList(users),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
