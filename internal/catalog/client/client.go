package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkarlss/storefront/internal/catalog/domain"
	apperrors "github.com/dkarlss/storefront/pkg/errors"
	"github.com/dkarlss/storefront/pkg/httpclient"
)

const cachePrefix = "catalog:"

// Client reads the product catalog from the upstream API through a circuit
// breaker, with a Redis read-through cache in front. Cache failures are
// logged and fall through to the upstream; a stale catalog beats no catalog.
type Client struct {
	http     *httpclient.BreakerClient
	cache    *redis.Client
	baseURL  string
	cacheTTL time.Duration
	log      *slog.Logger
}

// New creates the catalog client.
func New(http *httpclient.BreakerClient, cache *redis.Client, baseURL string, cacheTTL time.Duration, log *slog.Logger) *Client {
	return &Client{
		http:     http,
		cache:    cache,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// ListProducts returns the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.cached(ctx, cachePrefix+"products", &products, func() (any, error) {
		var fresh []domain.Product
		if err := c.fetch(ctx, "/products", &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	return products, err
}

// GetProduct returns a single product by its upstream ID.
func (c *Client) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	var product domain.Product
	err := c.cached(ctx, cachePrefix+"product:"+strconv.Itoa(id), &product, func() (any, error) {
		var fresh domain.Product
		if err := c.fetch(ctx, "/products/"+strconv.Itoa(id), &fresh); err != nil {
			return nil, err
		}
		if fresh.ID == 0 {
			return nil, apperrors.NotFound("product", strconv.Itoa(id))
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCategories returns the catalog's category names.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.cached(ctx, cachePrefix+"categories", &categories, func() (any, error) {
		var fresh []string
		if err := c.fetch(ctx, "/products/categories", &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	return categories, err
}

// ListByCategory returns the products in one category.
func (c *Client) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	err := c.cached(ctx, cachePrefix+"category:"+category, &products, func() (any, error) {
		var fresh []domain.Product
		if err := c.fetch(ctx, "/products/category/"+category, &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	return products, err
}

// cached serves dst from the cache key when possible, otherwise loads fresh
// data and writes it back with the configured TTL.
func (c *Client) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	data, err := c.cache.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(data, dst); unmarshalErr == nil {
			return nil
		}
		// Corrupt cache entry; drop it and reload.
		c.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.WarnContext(ctx, "catalog cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	fresh, err := load()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(fresh)
	if err != nil {
		return fmt.Errorf("marshal catalog cache entry: %w", err)
	}
	if err := c.cache.Set(ctx, key, encoded, c.cacheTTL).Err(); err != nil {
		c.log.WarnContext(ctx, "catalog cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	return json.Unmarshal(encoded, dst)
}

func (c *Client) fetch(ctx context.Context, path string, v any) error {
	resp, err := c.http.Get(ctx, c.baseURL+path)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if httpclient.IsBreakerOpen(err) {
			return apperrors.Unavailable("catalog is temporarily unavailable")
		}
		return fmt.Errorf("catalog request %s: %w", path, err)
	}

	if err := httpclient.DecodeJSON(resp, v); err != nil {
		var upstream *httpclient.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return apperrors.NotFound("catalog resource", path)
		}
		return fmt.Errorf("decode catalog response %s: %w", path, err)
	}

	return nil
}
