package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dkarlss/storefront/internal/cart/service"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httputil"
	"github.com/dkarlss/storefront/pkg/middleware"
	"github.com/dkarlss/storefront/pkg/validator"
)

// CartHandler serves the cart endpoints.
type CartHandler struct {
	service *service.CartService
	log     *slog.Logger
}

// NewCartHandler creates the cart HTTP handler.
func NewCartHandler(svc *service.CartService, log *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, log: log}
}

// RegisterRoutes mounts the cart endpoints on the given router. The parent
// router applies authentication.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.Clear)

		r.Post("/lines", h.AddLine)
		r.Put("/lines/{variantKey}", h.SetQuantity)
		r.Delete("/lines/{variantKey}", h.RemoveLine)
	})
}

// AddLineRequest is the body for POST /cart/lines.
type AddLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required,min=1,max=500"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	UnitPrice int64  `json:"unit_price" validate:"gt=0"`
	ImageURL  string `json:"image_url"`
}

// SetQuantityRequest is the body for PUT /cart/lines/{variantKey}.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/v1/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	snap, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// AddLine handles POST /api/v1/cart/lines.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req AddLineRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snap, err := h.service.AddLine(r.Context(), userID, service.AddLineInput{
		ProductID: req.ProductID,
		Name:      req.Name,
		Size:      req.Size,
		Color:     req.Color,
		UnitPrice: req.UnitPrice,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// SetQuantity handles PUT /api/v1/cart/lines/{variantKey}.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	variantKey := chi.URLParam(r, "variantKey")
	if variantKey == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("variantKey is required"), h.log)
		return
	}

	var req SetQuantityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}

	snap, err := h.service.SetQuantity(r.Context(), userID, variantKey, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// RemoveLine handles DELETE /api/v1/cart/lines/{variantKey}.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	variantKey := chi.URLParam(r, "variantKey")
	if variantKey == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("variantKey is required"), h.log)
		return
	}

	snap, err := h.service.RemoveLine(r.Context(), userID, variantKey)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: snap})
}

// Clear handles DELETE /api/v1/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.service.Clear(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "cleared"}})
}
