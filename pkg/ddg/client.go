// Package ddg provides the DuckDuckGo client used by the bot commands:
// image search and instant answers, rate limited and memoized in the
// shared cache.
package ddg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/dinkelberg/pkg/cache"
)

const (
	// DefaultBaseURL serves the search page and the image endpoint.
	DefaultBaseURL = "https://duckduckgo.com"

	// DefaultAPIURL serves instant answers.
	DefaultAPIURL = "https://api.duckduckgo.com"

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "dinkelberg/1.0 (+https://github.com/Sternrassler/dinkelberg)"

	maxBodySize = 4 << 20
)

// Prometheus metrics for upstream requests.
var (
	ddgRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dinkelberg_ddg_requests_total",
		Help: "Total DuckDuckGo requests by endpoint and status",
	}, []string{"endpoint", "status"})

	ddgRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dinkelberg_ddg_request_duration_seconds",
		Help:    "DuckDuckGo request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	ddgErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dinkelberg_ddg_errors_total",
		Help: "Total DuckDuckGo errors by class",
	}, []string{"class"})

	ddgRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dinkelberg_ddg_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	ddgCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dinkelberg_ddg_cache_results_total",
		Help: "Cache lookups made before calling DuckDuckGo",
	}, []string{"endpoint", "result"})
)

var (
	tracer = otel.Tracer("github.com/Sternrassler/dinkelberg/pkg/ddg")

	tokenPattern = regexp.MustCompile(`vqd=["']?([\d-]+)`)
)

// Config holds the client configuration.
type Config struct {
	BaseURL   string
	APIURL    string
	UserAgent string

	// RateLimit caps outbound requests per second (0 = unlimited).
	RateLimit float64
	Burst     int

	// Timeout bounds a single HTTP round-trip.
	Timeout time.Duration

	Retry RetryConfig
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIURL:    DefaultAPIURL,
		UserAgent: DefaultUserAgent,
		RateLimit: 2,
		Burst:     4,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client talks to DuckDuckGo. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	flightsMu  sync.Mutex
	flights    map[string]*flight
	cache      *cache.Store
	config     Config
	logger     zerolog.Logger
}

// New creates a client. store may be nil, in which case nothing is memoized.
func New(cfg Config, store *cache.Store, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be >= 0 (got %v)", cfg.RateLimit)
	}
	for _, raw := range []string{cfg.BaseURL, cfg.APIURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", raw, err)
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		cache:      store,
		config:     cfg,
		logger:     logger.With().Str("component", "ddg").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SearchImages returns the image results for query. Results are memoized
// under the query for the cache TTL, and concurrent searches for the same
// query share one upstream round-trip.
func (c *Client) SearchImages(ctx context.Context, query string) (ImageResponse, error) {
	ctx, span := tracer.Start(ctx, "ddg.search_images", trace.WithAttributes(attribute.String("ddg.query", query)))
	defer span.End()

	if res, ok := cache.Get[ImageResponse](ctx, c.cache, query); ok {
		ddgCacheResults.WithLabelValues("images", "hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return res, nil
	}
	ddgCacheResults.WithLabelValues("images", "miss").Inc()

	v, err, shared := c.share(ctx, "images:"+query, func(ctx context.Context) (any, error) {
		return c.fetchImages(ctx, query)
	})
	if err != nil {
		recordError(span, err)
		return ImageResponse{}, err
	}

	res := v.(ImageResponse)
	c.logger.Debug().
		Str("query", query).
		Int("results", len(res.Results)).
		Bool("shared", shared).
		Msg("Image search complete")
	return res, nil
}

func (c *Client) fetchImages(ctx context.Context, query string) (ImageResponse, error) {
	token, err := c.acquireToken(ctx, query)
	if err != nil {
		return ImageResponse{}, err
	}

	params := url.Values{
		"l":   {"us-en"},
		"o":   {"json"},
		"vqd": {token},
		"q":   {query},
	}
	body, err := c.get(ctx, "images", c.config.BaseURL+"/i.js?"+params.Encode())
	if err != nil {
		return ImageResponse{}, err
	}

	var res ImageResponse
	if err := json.Unmarshal(body, &res); err != nil {
		ddgErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return ImageResponse{}, &Error{Class: ErrorClassDecode, Endpoint: "images", Err: err}
	}

	cache.Setex(ctx, c.cache, query, res)
	return res, nil
}

// flight is the context shared by every caller waiting on one key.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// share runs fn once per key for all concurrent callers. The shared
// context outlives any single caller and is cancelled once the last
// waiting caller has gone; each caller stops waiting when its own ctx ends.
func (c *Client) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		return fn(f.ctx)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err()), false
	case r := <-ch:
		return r.Val, r.Err, r.Shared
	}
}

func (c *Client) join(ctx context.Context, key string) *flight {
	c.flightsMu.Lock()
	defer c.flightsMu.Unlock()

	if c.flights == nil {
		c.flights = make(map[string]*flight)
	}
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Client) leave(key string, f *flight) {
	c.flightsMu.Lock()
	defer c.flightsMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

// acquireToken fetches the search page and extracts the vqd token the
// image endpoint requires. Tokens are per query and short lived.
func (c *Client) acquireToken(ctx context.Context, query string) (string, error) {
	body, err := c.get(ctx, "token", c.config.BaseURL+"/?"+url.Values{"q": {query}}.Encode())
	if err != nil {
		return "", err
	}

	token, ok := findToken(string(body))
	if !ok {
		ddgErrorsTotal.WithLabelValues("token").Inc()
		c.logger.Error().Str("query", query).Msg("Token not found in DDG response")
		return "", ErrTokenNotFound
	}
	return token, nil
}

// findToken returns the vqd token embedded in a search page.
func findToken(haystack string) (string, bool) {
	m := tokenPattern.FindStringSubmatch(haystack)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// WikiLookup returns the instant answer abstract for query, or
// ErrEmptyResponse when DuckDuckGo has none. Answers are memoized.
func (c *Client) WikiLookup(ctx context.Context, query string) (string, error) {
	ctx, span := tracer.Start(ctx, "ddg.wiki_lookup", trace.WithAttributes(attribute.String("ddg.query", query)))
	defer span.End()

	if ans, ok := cache.Get[Answer](ctx, c.cache, query); ok {
		ddgCacheResults.WithLabelValues("answer", "hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return ans.Text, nil
	}
	ddgCacheResults.WithLabelValues("answer", "miss").Inc()

	v, err, _ := c.share(ctx, "answer:"+query, func(ctx context.Context) (any, error) {
		return c.fetchAnswer(ctx, query)
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyResponse) {
			recordError(span, err)
		}
		return "", err
	}
	return v.(Answer).Text, nil
}

func (c *Client) fetchAnswer(ctx context.Context, query string) (Answer, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}
	body, err := c.get(ctx, "answer", c.config.APIURL+"/?"+params.Encode())
	if err != nil {
		return Answer{}, err
	}

	var ia instantAnswer
	if err := json.Unmarshal(body, &ia); err != nil {
		ddgErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return Answer{}, &Error{Class: ErrorClassDecode, Endpoint: "answer", Err: err}
	}

	text := strings.TrimSpace(ia.AbstractText)
	if text == "" {
		ddgErrorsTotal.WithLabelValues("empty").Inc()
		return Answer{}, ErrEmptyResponse
	}

	ans := Answer{Query: query, Text: text, URL: ia.AbstractURL}
	cache.Setex(ctx, c.cache, query, ans)
	return ans, nil
}

// get performs a rate limited GET with retries and returns the body.
func (c *Client) get(ctx context.Context, endpoint, rawURL string) ([]byte, error) {
	start := time.Now()
	defer func() {
		ddgRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			ddgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			ddgRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &Error{Class: ErrorClassNetwork, Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		ddgRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			class := classifyStatus(resp.StatusCode)
			ddgErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("DDG request error")
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
			return &Error{
				StatusCode: resp.StatusCode,
				Class:      class,
				Endpoint:   endpoint,
				Err:        errors.New(resp.Status),
			}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			ddgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &Error{Class: ErrorClassNetwork, Endpoint: endpoint, Err: err}
		}
		return nil
	})
	return body, err
}

func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
