// AngelaMos | 2026
// handler.go

package inventory

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
		logger:   logger.With("handler", "inventory"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Patch("/", h.Patch)
		r.Delete("/", h.Destroy)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	params := ListParams{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
	}

	resp, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	resp, err := h.service.Get(r.Context(), userID, productID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateProductRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	resp, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, resp)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	var req UpdateProductRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	resp, err := h.service.Update(r.Context(), userID, productID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	var req PatchProductRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(err))
		return
	}

	resp, err := h.service.Patch(r.Context(), userID, productID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.service.Destroy(r.Context(), userID, productID); err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
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
