package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"portfoliobackend/utils/constants"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxPageSize caps how much of a company page is read into memory
const maxPageSize = 8 << 20

// PageClient fetches raw company pages. Every request is rate limited and
// bounded by a fixed timeout so one slow page cannot hang a whole refresh.
type PageClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

type PageClientOption func(*PageClient)

func WithHTTPClient(httpClient *http.Client) PageClientOption {
	return func(c *PageClient) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit; zero or less disables limiting.
// burst lets a whole portfolio refresh go out at once while the sustained
// rate stays at requestsPerSecond.
func WithRateLimit(requestsPerSecond float64, burst int) PageClientOption {
	return func(c *PageClient) {
		if burst < 1 {
			burst = 1
		}
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, burst)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func NewPageClient(timeout time.Duration, opts ...PageClientOption) *PageClient {
	if timeout <= 0 {
		timeout = constants.DefaultFetchTimeout
	}
	c := &PageClient{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(constants.DefaultScreenerRPS), constants.DefaultScreenerBurst),
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCompanyPage returns the raw markup at url. Time spent waiting for the
// rate limiter counts against the timeout.
func (c *PageClient) GetCompanyPage(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.BrowserUserAgent)
	req.Header.Set("Accept", constants.BrowserAccept)
	req.Header.Set("Accept-Language", "en-GB,en-US;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("Received non-200 response code", zap.String("url", url), zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("failed to retrieve the content, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read the content: %w", err)
	}
	return body, nil
}
