package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dkarlss/storefront/internal/order/service"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httputil"
	"github.com/dkarlss/storefront/pkg/middleware"
	"github.com/dkarlss/storefront/pkg/validator"
)

// OrderHandler serves the order and return endpoints.
type OrderHandler struct {
	service *service.OrderService
	log     *slog.Logger
}

// NewOrderHandler creates the order HTTP handler.
func NewOrderHandler(svc *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, log: log}
}

// RegisterRoutes mounts the order endpoints on the given router. The parent
// router applies authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Patch("/{orderID}/status", h.UpdateStatus)
		r.Post("/{orderID}/returns", h.RequestReturn)
	})
	r.Route("/returns", func(r chi.Router) {
		r.Get("/", h.ListReturns)
		r.Get("/{returnID}", h.GetReturn)
		r.Patch("/{returnID}/status", h.ResolveReturn)
	})
}

// UpdateStatusRequest is the body for PATCH /orders/{orderID}/status and
// PATCH /returns/{returnID}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// RequestReturnBody is the body for POST /orders/{orderID}/returns.
type RequestReturnBody struct {
	Items    []service.ReturnItemInput `json:"items"`
	Reason   string                    `json:"reason" validate:"required"`
	Comments string                    `json:"comments" validate:"max=2000"`
	Method   string                    `json:"method" validate:"required"`
}

// ListOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// GetOrder handles GET /api/v1/orders/{orderID}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: o})
}

// UpdateStatus handles PATCH /api/v1/orders/{orderID}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Owner check runs before the transition so foreign orders read as 404.
	if _, err := h.service.GetOrder(r.Context(), userID, orderID); err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	o, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: o})
}

// RequestReturn handles POST /api/v1/orders/{orderID}/returns.
func (h *OrderHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req RequestReturnBody
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ret, err := h.service.RequestReturn(r.Context(), userID, &service.RequestReturnInput{
		OrderID:  orderID,
		Items:    req.Items,
		Reason:   req.Reason,
		Comments: req.Comments,
		Method:   req.Method,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: ret})
}

// ListReturns handles GET /api/v1/returns.
func (h *OrderHandler) ListReturns(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	returns, err := h.service.ListReturns(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: returns})
}

// GetReturn handles GET /api/v1/returns/{returnID}.
func (h *OrderHandler) GetReturn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	returnID := chi.URLParam(r, "returnID")

	ret, err := h.service.GetReturn(r.Context(), userID, returnID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ret})
}

// ResolveReturn handles PATCH /api/v1/returns/{returnID}/status.
func (h *OrderHandler) ResolveReturn(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	returnID := chi.URLParam(r, "returnID")

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if _, err := h.service.GetReturn(r.Context(), userID, returnID); err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	ret, err := h.service.ResolveReturn(r.Context(), returnID, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ret})
}
