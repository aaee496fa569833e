// Package catalog is a client for the AniList GraphQL catalog.
//
// Every request is rate limited and goes through a circuit breaker. Records are fetched
// fresh on every call; nothing is cached.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/osusumeapp/osusume-server/internal/metrics"
	"github.com/osusumeapp/osusume-server/internal/ratelimit"
)

const (
	// DefaultEndpoint is the public AniList GraphQL endpoint.
	DefaultEndpoint = "https://graphql.anilist.co"

	// AniList allows 90 requests per minute.
	defaultRequestsPerMinute = 90
	defaultBurst             = 5

	defaultTimeout         = 10 * time.Second
	defaultBreakerCooldown = 30 * time.Second

	breakerName  = "anilist"
	userAgent    = "osusume/1.0"
	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	BreakerCooldown   time.Duration
}

// Client is a rate-limited AniList client.
type Client struct {
	endpoint   string
	http       *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	limiterKey string
	breaker    *gobreaker.CircuitBreaker[*rawData]
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a new catalog client. m may be nil.
func New(opts Options, logger *slog.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = defaultRequestsPerMinute
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = defaultBreakerCooldown
	}

	key := opts.Endpoint
	if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
		key = u.Host
	}

	c := &Client{
		endpoint: opts.Endpoint,
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:    ratelimit.PerMinute(opts.RequestsPerMinute, opts.Burst),
		limiterKey: key,
		logger:     logger,
		metrics:    m,
	}
	c.breaker = newBreaker(opts.BreakerCooldown, logger, m)
	m.SetBreakerState(breakerName, stateValue(gobreaker.StateClosed))

	return c
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// BreakerState returns "closed", "half-open" or "open".
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// newBreaker opens after 5 consecutive failures, or when at least 60% of 10 or more
// requests in a one-minute window failed. Only transient errors count as failures.
func newBreaker(cooldown time.Duration, logger *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[*rawData] {
	return gobreaker.NewCircuitBreaker[*rawData](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.SetBreakerState(name, stateValue(to))
			m.BreakerTransition(name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			return !IsRetryable(err)
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// do executes one GraphQL request and records its outcome.
func (c *Client) do(ctx context.Context, op string, vars map[string]any) (*rawData, error) {
	start := time.Now()
	data, err := c.execute(ctx, op, vars)
	c.metrics.ObserveCatalog(op, outcome(err), time.Since(start))
	return data, err
}

func (c *Client) execute(ctx context.Context, op string, vars map[string]any) (*rawData, error) {
	// Fail fast instead of spending a rate limit token on a request the breaker rejects.
	if c.breaker.State() == gobreaker.StateOpen {
		return nil, ErrCircuitOpen
	}

	if err := c.limiter.Wait(ctx, c.limiterKey); err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, err)
		}
		return nil, fmt.Errorf("%w: local limit: %v", ErrRateLimited, err)
	}

	body, err := json.Marshal(graphQLRequest{Query: pageQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	c.logger.Debug("catalog request", "op", op, "variables", vars)

	data, err := c.breaker.Execute(func() (*rawData, error) {
		return c.post(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return data, err
}

// post sends the request and maps the response onto the package sentinels.
func (c *Client) post(ctx context.Context, body []byte) (*rawData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("catalog rate limited us", "retry_after", resp.Header.Get("Retry-After"))
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, graphQLMessages(payload))
	}

	var env rawEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(env.Errors) > 0 {
		if allNotFound(env.Errors) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, joinMessages(env.Errors))
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: response has no data", ErrBadResponse)
	}
	return env.Data, nil
}

// transportError classifies a failed round trip. The caller's own cancellation is passed
// through untouched; deadlines and network timeouts become ErrTimeout.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return contextError(ctx, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return ctx.Err()
}

func allNotFound(errs []rawGraphQLError) bool {
	for _, e := range errs {
		if e.Status != http.StatusNotFound {
			return false
		}
	}
	return true
}

func joinMessages(errs []rawGraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// graphQLMessages extracts error messages from a non-200 body, falling back to a prefix
// of the raw body.
func graphQLMessages(payload []byte) string {
	var env rawEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && len(env.Errors) > 0 {
		return joinMessages(env.Errors)
	}
	s := strings.TrimSpace(string(payload))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
