package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agenthooks/cache"
	"github.com/hupe1980/agenthooks/logging"
	"github.com/hupe1980/agenthooks/model"
)

// CacheOptions configure the response caching middleware.
type CacheOptions struct {
	// TTL bounds how long a cached response stays valid. Zero means no expiry.
	TTL time.Duration
	// KeyFn derives the cache key from a request. The default hashes the
	// serialized request.
	KeyFn  func(req *model.Request) (string, error)
	Logger logging.Logger
}

// Cache memoizes model responses in a cache.Store keyed by request content.
// Streaming requests bypass the cache, and cache failures degrade to calling
// the model.
type Cache struct {
	store cache.Store
	opts  CacheOptions
}

// NewCache creates the caching middleware over the given store.
func NewCache(store cache.Store, optFns ...func(o *CacheOptions)) *Cache {
	opts := CacheOptions{
		TTL:    15 * time.Minute,
		KeyFn:  RequestKey,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Cache{store: store, opts: opts}
}

// RequestKey is the default cache key function: a hex SHA-256 over the
// serialized request.
func RequestKey(req *model.Request) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request for cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Name implements Middleware.
func (c *Cache) Name() string { return "cache" }

// WrapModelCall implements ModelCallWrapper.
func (c *Cache) WrapModelCall(ctx context.Context, req *model.Request, next model.Handler) (*model.Response, error) {
	if req.Stream {
		return next(ctx, req)
	}

	key, err := c.opts.KeyFn(req)
	if err != nil {
		c.opts.Logger.Warn("cache key derivation failed, bypassing cache", "error", err)
		return next(ctx, req)
	}

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		c.opts.Logger.Warn("cache read failed, bypassing cache", "error", err)
	} else if ok {
		var resp model.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			c.opts.Logger.Debug("model response served from cache", "key", key)
			return &resp, nil
		}
		// Corrupt entry, drop it and fall through to the model.
		_ = c.store.Delete(ctx, key)
	}

	resp, err := next(ctx, req)
	if err != nil {
		return resp, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.store.Set(ctx, key, data, c.opts.TTL); err != nil {
			c.opts.Logger.Warn("cache write failed", "error", err)
		}
	}
	return resp, nil
}
