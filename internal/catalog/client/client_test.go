package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httpclient"
)

const productsJSON = `[
	{"id": 1, "title": "Mesh Runner", "price": 25.00, "description": "road shoe",
	 "category": "shoes", "image": "https://img/1.png", "rating": {"rate": 4.5, "count": 120}},
	{"id": 2, "title": "Trail Sock", "price": 7.50, "description": "wool blend",
	 "category": "apparel", "image": "https://img/2.png", "rating": {"rate": 4.1, "count": 56}}
]`

func newTestClient(t *testing.T, upstream http.Handler) (*Client, *int64) {
	t.Helper()

	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		upstream.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	cache := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	breaker := httpclient.NewBreakerClient("catalog", httpclient.Config{
		Timeout:      5 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, httpclient.DefaultBreakerConfig(), log)

	return New(breaker, cache, srv.URL, 5*time.Minute, log), &hits
}

func TestListProducts_CachesUpstream(t *testing.T) {
	c, hits := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		w.Write([]byte(productsJSON))
	}))
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Mesh Runner", products[0].Title)
	assert.Equal(t, int64(2500), products[0].PriceMinor())

	// Second read is served from the cache.
	products, err = c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestGetProduct(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/1", r.URL.Path)
		w.Write([]byte(`{"id": 1, "title": "Mesh Runner", "price": 25.00, "category": "shoes"}`))
	}))

	p, err := c.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, int64(2500), p.PriceMinor())
}

func TestGetProduct_UpstreamReturnsNull(t *testing.T) {
	// The upstream answers 200 with a null body for unknown IDs.
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))

	_, err := c.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListCategories(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/categories", r.URL.Path)
		w.Write([]byte(`["shoes", "apparel"]`))
	}))

	categories, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shoes", "apparel"}, categories)
}

func TestListByCategory(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/category/shoes", r.URL.Path)
		w.Write([]byte(productsJSON))
	}))

	products, err := c.ListByCategory(context.Background(), "shoes")
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestFetch_NotFoundStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.ListProducts(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBreakerOpen_MapsToUnavailable(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx := context.Background()

	// Trip the breaker with consecutive failures, then expect fail-fast.
	for i := 0; i < 6; i++ {
		c.cache.FlushAll(ctx)
		_, _ = c.ListProducts(ctx)
	}

	c.cache.FlushAll(ctx)
	_, err := c.ListProducts(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
