package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	checkoutservice "github.com/dkarlss/storefront/internal/checkout/service"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httputil"
	"github.com/dkarlss/storefront/pkg/middleware"
)

// PaymentHandler serves the legacy payment endpoints kept for older clients.
// They delegate to the checkout service; the charged amount always comes from
// the server-side quote regardless of what the client sends.
type PaymentHandler struct {
	checkout *checkoutservice.CheckoutService
	log      *slog.Logger
}

// NewPaymentHandler creates the payment HTTP handler.
func NewPaymentHandler(checkout *checkoutservice.CheckoutService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, log: log}
}

// RegisterRoutes mounts the payment endpoints on the given router. The parent
// router applies authentication.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/payment", func(r chi.Router) {
		r.Post("/create", h.CreateIntent)
		r.Post("/confirm", h.Confirm)
	})
}

// CreateIntentRequest is the body for POST /payment/create. Older clients
// send total as a query parameter instead; both are accepted.
type CreateIntentRequest struct {
	SessionID     string `json:"session_id"`
	PaymentMethod string `json:"payment_method"`
	Total         int64  `json:"total"`
}

// CreateIntent handles POST /api/v1/payment/create.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req CreateIntentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
			return
		}
	}
	if v := r.URL.Query().Get("session_id"); v != "" {
		req.SessionID = v
	}
	if v := r.URL.Query().Get("total"); v != "" {
		total, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("total must be an integer amount in minor units"), h.log)
			return
		}
		req.Total = total
	}
	if req.SessionID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("session_id is required"), h.log)
		return
	}

	session, err := h.checkout.CreatePaymentIntent(r.Context(), userID, req.SessionID, checkoutservice.CreateIntentInput{
		PaymentMethod: req.PaymentMethod,
		ClientTotal:   req.Total,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"client_secret": session.ClientSecret,
		"amount":        session.Quote.Total,
		"currency":      session.Quote.Currency,
	}})
}

// ConfirmRequest is the body for POST /payment/confirm.
type ConfirmRequest struct {
	SessionID string `json:"session_id"`
}

// Confirm handles POST /api/v1/payment/confirm.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req ConfirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.log)
			return
		}
	}
	if v := r.URL.Query().Get("session_id"); v != "" {
		req.SessionID = v
	}
	if req.SessionID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("session_id is required"), h.log)
		return
	}

	order, err := h.checkout.Confirm(r.Context(), userID, req.SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.log)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
