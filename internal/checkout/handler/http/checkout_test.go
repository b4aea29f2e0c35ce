package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cartdomain "github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/checkout/domain"
	redisrepo "github.com/dkarlss/storefront/internal/checkout/repository/redis"
	"github.com/dkarlss/storefront/internal/checkout/service"
	orderdomain "github.com/dkarlss/storefront/internal/order/domain"
	mockprovider "github.com/dkarlss/storefront/internal/payment/provider/mock"
	paymentservice "github.com/dkarlss/storefront/internal/payment/service"
	"github.com/dkarlss/storefront/pkg/middleware"
)

type mockCartAccess struct {
	mock.Mock
}

func (m *mockCartAccess) GetCart(ctx context.Context, userID string) (*cartdomain.Snapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cartdomain.Snapshot), args.Error(1)
}

func (m *mockCartAccess) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockOrderRecorder struct {
	mock.Mock
}

func (m *mockOrderRecorder) CreateFromIntent(ctx context.Context, intent *domain.OrderIntent, paymentReference string) (*orderdomain.Order, error) {
	args := m.Called(ctx, intent, paymentReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderdomain.Order), args.Error(1)
}

type fixture struct {
	router http.Handler
	cart   *mockCartAccess
	orders *mockOrderRecorder
}

// newFixture wires the handler over a real session store (miniredis) and the
// development payment provider, so the decline path runs end to end.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cart := new(mockCartAccess)
	orders := new(mockOrderRecorder)
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	relay := paymentservice.NewRelay(mockprovider.NewProvider(), log)
	pricing := domain.Pricing{FreeShippingThreshold: 5000, FlatShippingFee: 999, TaxRate: 0.08}
	svc := service.NewCheckoutService(
		redisrepo.NewSessionRepository(client, 30*time.Minute),
		cart, relay, orders, pricing, 30*time.Minute, "usd", log,
	)
	h := NewCheckoutHandler(svc, log)

	verify := func(token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: token}, nil
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(verify, log))
		h.RegisterRoutes(r)
	})
	return &fixture{router: r, cart: cart, orders: orders}
}

func doRequest(t *testing.T, router http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+userID)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func cartSnapshot(userID string) *cartdomain.Snapshot {
	return &cartdomain.Snapshot{
		UserID: userID,
		Lines: []cartdomain.Line{
			{ProductID: "11", Name: "Mesh Runner", Size: "10", Color: "black", UnitPrice: 2500, Quantity: 1},
			{ProductID: "12", Name: "Trail Sock", Size: "M", Color: "grey", UnitPrice: 750, Quantity: 2},
		},
		TotalItems:  3,
		TotalAmount: 4000,
		Currency:    "usd",
	}
}

const shippingBody = `{
	"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
	"phone": "+15551234567", "address": "12 Analytical Way", "city": "London",
	"state": "LDN", "zip_code": "10001"
}`

type sessionEnvelope struct {
	Data domain.Session `json:"data"`
}

// startSession drives POST /checkout and returns the session.
func startSession(t *testing.T, f *fixture, userID string) domain.Session {
	t.Helper()

	f.cart.On("GetCart", mock.Anything, userID).Return(cartSnapshot(userID), nil).Once()

	rec := doRequest(t, f.router, "POST", "/api/v1/checkout", userID, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func TestStartCheckout_QuoteBreakdown(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	assert.Equal(t, domain.StageShipping, session.Stage)
	assert.Equal(t, int64(4000), session.Quote.Subtotal)
	assert.Equal(t, int64(999), session.Quote.Shipping)
	assert.Equal(t, int64(320), session.Quote.Tax)
	assert.Equal(t, int64(5319), session.Quote.Total)
}

func TestStartCheckout_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("POST", "/api/v1/checkout", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetShipping_AdvancesToPayment(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	rec := doRequest(t, f.router, "PUT", "/api/v1/checkout/"+session.ID+"/shipping", "u1", shippingBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, domain.StagePayment, env.Data.Stage)
	require.NotNil(t, env.Data.ShippingAddress)
	assert.Equal(t, "US", env.Data.ShippingAddress.Country)
}

func TestSetShipping_MissingField(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	rec := doRequest(t, f.router, "PUT", "/api/v1/checkout/"+session.ID+"/shipping", "u1",
		`{"first_name": "Ada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_FullFlow(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	rec := doRequest(t, f.router, "PUT", "/api/v1/checkout/"+session.ID+"/shipping", "u1", shippingBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/payment-intent", "u1",
		`{"payment_method": "pm_card_visa", "total": 5319}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.ClientSecret)

	f.orders.On("CreateFromIntent", mock.Anything, mock.AnythingOfType("*domain.OrderIntent"), mock.AnythingOfType("string")).
		Return(&orderdomain.Order{ID: "order-1", OwnerID: "u1", Status: orderdomain.StatusProcessing, Total: 5319}, nil)
	f.cart.On("Clear", mock.Anything, "u1").Return(nil)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/confirm", "u1", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var orderEnv struct {
		Data orderdomain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orderEnv))
	assert.Equal(t, "order-1", orderEnv.Data.ID)

	f.orders.AssertExpectations(t)
	f.cart.AssertExpectations(t)
}

func TestConfirm_DeclinedCard(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	rec := doRequest(t, f.router, "PUT", "/api/v1/checkout/"+session.ID+"/shipping", "u1", shippingBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/payment-intent", "u1",
		`{"payment_method": "pm_card_declined"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/confirm", "u1", "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var errEnv struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errEnv))
	assert.Equal(t, "PAYMENT_DECLINED", errEnv.Error.Code)

	// The session survives at the payment stage for another attempt.
	rec = doRequest(t, f.router, "GET", "/api/v1/checkout/"+session.ID, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, domain.StagePayment, env.Data.Stage)

	f.cart.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "CreateFromIntent", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_OrderWriteFailure(t *testing.T) {
	f := newFixture(t)
	session := startSession(t, f, "u1")

	rec := doRequest(t, f.router, "PUT", "/api/v1/checkout/"+session.ID+"/shipping", "u1", shippingBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/payment-intent", "u1",
		`{"payment_method": "pm_card_visa"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	f.orders.On("CreateFromIntent", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	rec = doRequest(t, f.router, "POST", "/api/v1/checkout/"+session.ID+"/confirm", "u1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errEnv struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errEnv))
	assert.Equal(t, "ORDER_NOT_RECORDED", errEnv.Error.Code)
	assert.Contains(t, errEnv.Error.Message, "contact support")

	f.cart.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestGetSession_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := doRequest(t, f.router, "GET", "/api/v1/checkout/nope", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
