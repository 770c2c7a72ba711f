package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/creditgraph/internal/metrics"
)

// defaultMaxBody caps response bodies read from any provider.
const defaultMaxBody = 2 << 20

// Fetcher performs throttled GET requests against one provider. Every
// attempt, including the rate-limit retry, passes through the shared
// RateLimiterMap.
type Fetcher struct {
	Name      ProviderName
	Client    *http.Client
	Limiter   *RateLimiterMap
	Backoff   time.Duration
	Logger    *slog.Logger
	UserAgent string
	Header    http.Header
	MaxBody   int64
	// ThrottleOn503 treats 503 as a rate-limit answer, for services that
	// signal throttling that way. Otherwise 503 is a transient failure.
	ThrottleOn503 bool
}

// NewFetcher returns a Fetcher with a 10s client timeout.
func NewFetcher(name ProviderName, limiter *RateLimiterMap, backoff time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		Name:      name,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Limiter:   limiter,
		Backoff:   backoff,
		Logger:    logger,
		UserAgent: UserAgent(),
		Header:    http.Header{},
		MaxBody:   defaultMaxBody,
	}
}

// UserAgent identifies creditgraph to upstream services.
func UserAgent() string {
	return "creditgraph/1.0 (https://github.com/sydlexius/creditgraph)"
}

// Get fetches reqURL and returns the body. id names the requested record in
// ErrNotFound. A 429 (or 503 with ThrottleOn503) is retried once after the
// backoff.
func (f *Fetcher) Get(ctx context.Context, reqURL, id string) ([]byte, error) {
	var body []byte
	err := RetryRateLimited(ctx, f.Backoff, func(ctx context.Context) error {
		b, err := f.do(ctx, reqURL, id)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (f *Fetcher) do(ctx context.Context, reqURL, id string) ([]byte, error) {
	if err := f.Limiter.Wait(ctx, f.Name); err != nil {
		return nil, &ErrProviderUnavailable{
			Provider: f.Name,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range f.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "application/json")

	f.Logger.Debug("requesting", slog.String("url", scrubURL(reqURL)))

	start := time.Now()
	resp, err := f.Client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped params
	metrics.UpstreamDuration.WithLabelValues(string(f.Name)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "error").Inc()
		return nil, &ErrProviderUnavailable{Provider: f.Name, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "ok").Inc()
	case http.StatusNotFound:
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "not_found").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrNotFound{Provider: f.Name, ID: id}
	case http.StatusUnauthorized, http.StatusForbidden:
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "auth").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrAuthRequired{Provider: f.Name}
	case http.StatusTooManyRequests:
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "rate_limited").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrRateLimited{Provider: f.Name, RetryAfter: retryAfter(resp.Header.Get("Retry-After"), f.Backoff)}
	case http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		if f.ThrottleOn503 {
			metrics.UpstreamRequests.WithLabelValues(string(f.Name), "rate_limited").Inc()
			return nil, &ErrRateLimited{Provider: f.Name, RetryAfter: retryAfter(resp.Header.Get("Retry-After"), f.Backoff)}
		}
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "error").Inc()
		return nil, &ErrProviderUnavailable{Provider: f.Name, Cause: errors.New("HTTP 503")}
	default:
		metrics.UpstreamRequests.WithLabelValues(string(f.Name), "error").Inc()
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrProviderUnavailable{
			Provider: f.Name,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	maxBody := f.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &ErrProviderUnavailable{Provider: f.Name, Cause: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

// retryAfter parses a Retry-After header in seconds, defaulting to def.
func retryAfter(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// secretParams are query parameters redacted from request logs.
var secretParams = []string{"api_key", "apikey", "token", "secret", "key"}

// scrubURL redacts credential query parameters for logging.
func scrubURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for k := range q {
		lower := strings.ToLower(k)
		for _, s := range secretParams {
			if lower == s {
				q.Set(k, "REDACTED")
				break
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
