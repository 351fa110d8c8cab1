// Package mediawiki implements a MediaWiki Action API client: paged
// listing, batched content fetch, optimistic-lock edits, deletes, and
// the CSRF token lifecycle, all behind a cooperative rate limiter.
// Grounded on the VRCWiki connector's MediaWikiClient (apiRequest,
// getToken/withCSRFWriteRetry, Login, EditPage, getAllPages).
package mediawiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
	"github.com/remiliacorporation/wikitool/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wikimediaHosts get a stricter default rate limit; see New.
var wikimediaHosts = []string{"wikipedia.org", "wikimedia.org", "wiktionary.org", "wikidata.org"}

// Config configures one Client instance.
type Config struct {
	APIURL    string
	Username  string
	Password  string
	UserAgent string

	RateLimitPerSecond          float64
	RateLimitBurst              int
	WikimediaRateLimitPerSecond float64

	MaxRetries       int
	RetryBaseDelay   time.Duration
}

// Client talks to a single MediaWiki Action API endpoint.
type Client struct {
	apiURL     string
	httpClient *http.Client
	userAgent  string

	username string
	password string

	tokens map[string]string
	mu     sync.RWMutex

	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration

	logger *slog.Logger
}

// New constructs a Client. It does not log in; call Login explicitly
// (or let Edit/Delete trigger it lazily via withCSRFWriteRetry).
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	limitPerSecond := cfg.RateLimitPerSecond
	if isWikimediaHost(cfg.APIURL) && cfg.WikimediaRateLimitPerSecond > 0 {
		limitPerSecond = cfg.WikimediaRateLimitPerSecond
	}
	if limitPerSecond <= 0 {
		limitPerSecond = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	jar, _ := cookiejar.New(nil)
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Jar = jar
	httpClient.Timeout = 30 * time.Second

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}

	return &Client{
		apiURL:     cfg.APIURL,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		username:   strings.TrimSpace(cfg.Username),
		password:   strings.TrimSpace(cfg.Password),
		tokens:     make(map[string]string),
		limiter:    rate.NewLimiter(rate.Limit(limitPerSecond), burst),
		maxRetries: maxRetries,
		retryBase:  retryBase,
		logger:     logger,
	}
}

func isWikimediaHost(apiURL string) bool {
	u, err := url.Parse(apiURL)
	if err != nil {
		return false
	}
	for _, host := range wikimediaHosts {
		if strings.HasSuffix(u.Host, host) {
			return true
		}
	}
	return false
}

// apiError mirrors the MediaWiki Action API's formatversion=2 error shape.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiEnvelope struct {
	Error    *apiError       `json:"error"`
	Continue map[string]any  `json:"continue"`
}

// call issues one API request, respecting the rate limiter and
// retrying transport failures with exponential backoff. Each retry
// attempt bypasses the limiter per spec: double-throttling a request
// that's already being retried only compounds the delay.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt == 0 {
			waitStart := time.Now()
			if err := c.limiter.Wait(ctx); err != nil {
				return engine.Newf(engine.KindNetwork, "", err)
			}
			metrics.RateLimiterWaitSeconds.Observe(time.Since(waitStart).Seconds())
		} else {
			metrics.APIRetries.WithLabelValues(params.Get("action")).Inc()
			delay := c.retryBase * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return engine.Newf(engine.KindNetwork, "", ctx.Err())
			}
		}

		err := c.doRequest(ctx, method, params, out)
		if err == nil {
			metrics.APIRequests.WithLabelValues(params.Get("action"), "ok").Inc()
			return nil
		}
		lastErr = err

		var engErr *engine.Error
		if asEngineError(err, &engErr) && engErr.Kind != engine.KindNetwork {
			metrics.APIRequests.WithLabelValues(params.Get("action"), engErr.Kind.String()).Inc()
			return err
		}
	}
	metrics.APIRequests.WithLabelValues(params.Get("action"), "network_error").Inc()
	return lastErr
}

func asEngineError(err error, target **engine.Error) bool {
	e, ok := err.(*engine.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

func (c *Client) doRequest(ctx context.Context, method string, params url.Values, out any) error {
	var req *http.Request
	var err error

	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return engine.Newf(engine.KindNetwork, "", fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return engine.Newf(engine.KindNetwork, "", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return engine.Newf(engine.KindRateLimited, "", fmt.Errorf("HTTP 429"))
	}
	if resp.StatusCode >= 500 {
		return engine.Newf(engine.KindNetwork, "", fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return engine.Newf(engine.KindPermissionDenied, "", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return engine.Newf(engine.KindNetwork, "", fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func classifyAPIError(apiErr *apiError) *engine.Error {
	if apiErr == nil {
		return nil
	}
	code := strings.ToLower(apiErr.Code)
	switch {
	case strings.Contains(code, "badtoken"):
		return engine.Newf(engine.KindAuthRequired, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	case strings.Contains(code, "ratelimited"):
		return engine.Newf(engine.KindRateLimited, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	case strings.Contains(code, "permissiondenied"), strings.Contains(code, "protectedpage"),
		strings.Contains(code, "readonly"), strings.Contains(code, "blocked"):
		return engine.Newf(engine.KindPermissionDenied, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	case strings.Contains(code, "editconflict"):
		return engine.Newf(engine.KindEditConflict, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	case strings.Contains(code, "missingtitle"), strings.Contains(code, "notfound"):
		return engine.Newf(engine.KindMissingPage, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	default:
		return engine.Newf(engine.KindNetwork, "", fmt.Errorf("%s: %s", apiErr.Code, apiErr.Info))
	}
}

func isBadToken(err error) bool {
	var e *engine.Error
	return asEngineError(err, &e) && e.Kind == engine.KindAuthRequired
}
