package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	errx "github.com/finsight-router/server/internal/core/error"
	"github.com/finsight-router/server/internal/metrics"
	logx "github.com/finsight-router/server/pkg/logger"
)

// ErrNoData is returned when the provider has nothing for the requested symbol.
var ErrNoData = errors.New("no data available")

// Config holds settings for the Yahoo Finance style quote API.
type Config struct {
	BaseURL           string  `envconfig:"MARKETDATA_BASE_URL" default:"https://query2.finance.yahoo.com"`
	Timeout           string  `envconfig:"MARKETDATA_TIMEOUT" default:"15s"`
	RequestsPerSecond float64 `envconfig:"MARKETDATA_RPS" default:"2"`
	UserAgent         string  `envconfig:"MARKETDATA_USER_AGENT" default:"Mozilla/5.0 (compatible; finsight-router/1.0)"`
	// Crumb and Cookie are forwarded when the upstream requires a session.
	Crumb  string `envconfig:"MARKETDATA_CRUMB"`
	Cookie string `envconfig:"MARKETDATA_COOKIE"`
}

// Client fetches fundamentals and corporate actions. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	crumb     string
	cookie    string
}

var _ Provider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("marketdata base url is empty")
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid MARKETDATA_TIMEOUT %q: %w", cfg.Timeout, err)
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
		crumb:     cfg.Crumb,
		cookie:    cfg.Cookie,
	}, nil
}

// getJSON performs a throttled GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (err error) {
	defer func() {
		if !errors.Is(err, ErrNoData) {
			metrics.RecordMarketDataCall(endpointName(path), err)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.crumb != "" {
		query.Set("crumb", c.crumb)
	}
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errx.WrapUpstream("marketdata", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errx.WrapUpstream("marketdata", fmt.Errorf("read body: %w", err))
	}

	logx.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("marketdata request")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return errx.WrapUpstream("marketdata", fmt.Errorf("status %d: %s", resp.StatusCode, snippet(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errx.WrapUpstream("marketdata", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// endpointName reduces "/v10/finance/quoteSummary/TCS.NS" to "quoteSummary".
func endpointName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 {
		return parts[2]
	}
	return path
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
