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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkarlss/storefront/internal/cart/domain"
	"github.com/dkarlss/storefront/internal/cart/event"
	"github.com/dkarlss/storefront/internal/cart/service"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	pkgkafka "github.com/dkarlss/storefront/pkg/kafka"
	"github.com/dkarlss/storefront/pkg/middleware"
)

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestRouter(repo *mockCartRepository) http.Handler {
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	producer := event.NewProducer(pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:1"}), log), log)
	svc := service.NewCartService(repo, producer, log, "usd")
	h := NewCartHandler(svc, log)

	verify := func(token string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: token}, nil
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(verify, log))
		h.RegisterRoutes(r)
	})
	return r
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

type snapshotEnvelope struct {
	Data domain.Snapshot `json:"data"`
}

func TestGetCart_EmptyForNewUser(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	repo.On("Get", mock.Anything, "u1").Return(nil, apperrors.NotFound("cart", "u1"))

	rec := doRequest(t, router, "GET", "/api/v1/cart", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var env snapshotEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "u1", env.Data.UserID)
	assert.Empty(t, env.Data.Lines)
}

func TestGetCart_Unauthenticated(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	req := httptest.NewRequest("GET", "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddLine(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	repo.On("Get", mock.Anything, "u1").Return(nil, apperrors.NotFound("cart", "u1"))
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	body := `{"product_id":"p1","name":"Shirt","size":"M","color":"blue","unit_price":1999}`
	rec := doRequest(t, router, "POST", "/api/v1/cart/lines", "u1", body)

	assert.Equal(t, http.StatusOK, rec.Code)

	var env snapshotEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data.Lines, 1)
	assert.Equal(t, 1, env.Data.Lines[0].Quantity)
	assert.Equal(t, int64(1999), env.Data.TotalAmount)
}

func TestAddLine_ValidationError(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	rec := doRequest(t, router, "POST", "/api/v1/cart/lines", "u1", `{"size":"M"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestAddLine_MalformedBody(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	rec := doRequest(t, router, "POST", "/api/v1/cart/lines", "u1", `{broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetQuantity(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	now := time.Now().UTC()
	existing := &domain.Cart{
		UserID:    "u1",
		Lines:     []domain.Line{{ProductID: "p1", Size: "M", Color: "blue", UnitPrice: 1000, Quantity: 1}},
		Currency:  "usd",
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.On("Get", mock.Anything, "u1").Return(existing, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := doRequest(t, router, "PUT", "/api/v1/cart/lines/p1-M-blue", "u1", `{"quantity":4}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var env snapshotEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, 4, env.Data.Lines[0].Quantity)
	assert.Equal(t, int64(4000), env.Data.TotalAmount)
}

func TestRemoveLine(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	now := time.Now().UTC()
	existing := &domain.Cart{
		UserID:    "u1",
		Lines:     []domain.Line{{ProductID: "p1", UnitPrice: 1000, Quantity: 1}},
		Currency:  "usd",
		CreatedAt: now,
		UpdatedAt: now,
	}
	repo.On("Get", mock.Anything, "u1").Return(existing, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := doRequest(t, router, "DELETE", "/api/v1/cart/lines/p1--", "u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var env snapshotEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Empty(t, env.Data.Lines)
}

func TestClear(t *testing.T) {
	repo := new(mockCartRepository)
	router := newTestRouter(repo)

	repo.On("Delete", mock.Anything, "u1").Return(nil)

	rec := doRequest(t, router, "DELETE", "/api/v1/cart", "u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cleared")
}
