package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dkarlss/storefront/internal/checkout/domain"
	"github.com/dkarlss/storefront/internal/checkout/service"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httputil"
	"github.com/dkarlss/storefront/pkg/middleware"
	"github.com/dkarlss/storefront/pkg/validator"
)

// CheckoutHandler serves the checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	log     *slog.Logger
}

// NewCheckoutHandler creates the checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, log: log}
}

// RegisterRoutes mounts the checkout endpoints on the given router. The
// parent router applies authentication.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/{sessionID}", h.GetSession)
		r.Put("/{sessionID}/shipping", h.SetShipping)
		r.Post("/{sessionID}/payment-intent", h.CreatePaymentIntent)
		r.Post("/{sessionID}/confirm", h.Confirm)
	})
}

// SetShippingRequest is the body for PUT /checkout/{sessionID}/shipping.
type SetShippingRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
	Country   string `json:"country"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// CreateIntentRequest is the body for POST /checkout/{sessionID}/payment-intent.
// Total is the total the client displayed; it is cross-checked against the
// server quote, never charged.
type CreateIntentRequest struct {
	PaymentMethod string `json:"payment_method"`
	Total         int64  `json:"total"`
}

// Start handles POST /api/v1/checkout.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	session, err := h.service.Start(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: session})
}

// GetSession handles GET /api/v1/checkout/{sessionID}.
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.service.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// SetShipping handles PUT /api/v1/checkout/{sessionID}/shipping.
func (h *CheckoutHandler) SetShipping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req SetShippingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	addr := domain.ShippingAddress{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Country:   req.Country,
	}

	session, err := h.service.SetShippingAddress(r.Context(), userID, sessionID, addr, req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// CreatePaymentIntent handles POST /api/v1/checkout/{sessionID}/payment-intent.
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req CreateIntentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
		return
	}

	session, err := h.service.CreatePaymentIntent(r.Context(), userID, sessionID, service.CreateIntentInput{
		PaymentMethod: req.PaymentMethod,
		ClientTotal:   req.Total,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Confirm handles POST /api/v1/checkout/{sessionID}/confirm.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	order, err := h.service.Confirm(r.Context(), userID, sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
