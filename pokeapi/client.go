// Package pokeapi fetches creature records from the PokeAPI REST service.
package pokeapi

import (
	"context"
	"fmt"
	"github.com/denismitr/pokedex/internal/lru"
	"github.com/pkg/errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://pokeapi.co/api/v2"
	DefaultTimeout = 10 * time.Second

	defaultCacheShards   = 16
	defaultCacheMaxBytes = 16 << 20
	maxBodyBytes         = 4 << 20
)

var (
	ErrInvalidID        = errors.New("invalid pokemon id")
	ErrNotFound         = errors.New("pokemon not found")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedRecord  = errors.New("malformed pokemon record")
)

// Cache keeps raw response bodies by record id.
type Cache interface {
	Add(key uint64, value []byte) bool
	Get(key uint64) ([]byte, bool)
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cache   Cache
	logger  *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds a single request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCache replaces the default lru cache. Pass lru.NullCache{} to
// disable caching.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		cache, err := lru.NewCache(defaultCacheShards, lru.Budget(64, defaultCacheMaxBytes), nil)
		if err != nil {
			c.logger.Warn("response cache disabled", "error", err)
			c.cache = lru.NullCache{}
		} else {
			c.cache = cache
		}
	}

	return c
}

func (c *Client) FetchByID(ctx context.Context, id int) (*Record, error) {
	if id <= 0 {
		return nil, errors.Wrapf(ErrInvalidID, "%d", id)
	}

	if body, ok := c.cache.Get(uint64(id)); ok {
		if r, err := decodeRecord(body); err == nil {
			return r, nil
		}
	}

	body, err := c.get(ctx, id)
	if err != nil {
		return nil, err
	}

	r, err := decodeRecord(body)
	if err != nil {
		return nil, errors.Wrapf(err, "pokemon %d", id)
	}

	c.cache.Add(uint64(id), body)

	return r, nil
}

func (c *Client) get(ctx context.Context, id int) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/pokemon/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build request for %s", url)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("pokemon request failed", "id", id, "error", err)
		return nil, errors.Wrapf(err, "could not fetch pokemon %d", id)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "%d", id)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("pokemon request rejected", "id", id, "status", resp.StatusCode)
		return nil, errors.Wrapf(ErrUnexpectedStatus, "%d for pokemon %d", resp.StatusCode, id)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "could not read pokemon %d", id)
	}

	return body, nil
}
