package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when Config fields are zero.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultCacheTTL    = 30 * time.Minute
	DefaultRateLimit   = 60
	DefaultResultLimit = 10
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// Config holds configuration for the metadata client.
type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
	RateLimit     int           `mapstructure:"rate_limit"`
	ResultLimit   int           `mapstructure:"result_limit"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// Validate checks that the client can be built from this configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: metadata.base_url", common.ErrMissingConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: metadata.base_url %q must be an http(s) URL", common.ErrInvalidConfig, c.BaseURL)
	}
	if c.RateLimit < 0 || c.ResultLimit < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("%w: metadata limits cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Client searches the comic metadata API.
type Client struct {
	httpClient  *http.Client
	cache       *searchCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
	group       singleflight.Group
	baseURL     string
	apiKey      string
	retryOpts   common.RetryOptions
	resultLimit int

	// flightTimeout bounds a shared search, which no single caller can cancel.
	flightTimeout time.Duration
}

// NewClient creates a metadata client. Close must be called to release
// its background goroutines.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	resultLimit := cfg.ResultLimit
	if resultLimit == 0 {
		resultLimit = DefaultResultLimit
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     cfg.MaxRetryDelay,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = DefaultMaxRetries
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = DefaultRetryDelay
	}
	if retryOpts.MaxDelay == 0 {
		retryOpts.MaxDelay = DefaultMaxDelay
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		resultLimit: resultLimit,
		retryOpts:   retryOpts,
		logger:      logger,
		cache:       newSearchCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		flightTimeout: time.Duration(retryOpts.MaxAttempts) * (timeout + retryOpts.MaxDelay),
	}, nil
}

// searchResponse is the wire format of GET /search.
type searchResponse struct {
	Results []struct {
		ID          resultID `json:"id"`
		Title       string   `json:"title"`
		IssueNumber string   `json:"issue_number"`
		Publisher   string   `json:"publisher"`
		CoverURL    string   `json:"cover_url"`
		Year        int      `json:"year"`
		Score       float64  `json:"score"`
	} `json:"results"`
}

// resultID accepts the upstream id as either a JSON string or number.
type resultID string

func (id *resultID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = resultID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = resultID(n.String())
	return nil
}

// Search returns candidate issues for query, best first.
func (c *Client) Search(ctx context.Context, query string) ([]model.ComicMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := matching.Normalize(query)
	if matches, ok := c.cache.get(key); ok {
		c.logger.Debug("metadata cache hit", "query", query)
		return matches, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Concurrent callers share one search. It runs detached from the caller
	// that started it, so one caller giving up does not fail the others.
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()

		var matches []model.ComicMatch
		err := common.WithRetry(fctx, func() error {
			var searchErr error
			matches, searchErr = c.search(fctx, query)
			return searchErr
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}
		c.cache.set(key, matches)
		return matches, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("metadata search shared with concurrent caller", "query", query)
		}
		matches, _ := res.Val.([]model.ComicMatch)
		return append([]model.ComicMatch(nil), matches...), nil
	}
}

// search performs one request. Errors that should not be retried are
// wrapped with common.Permanent.
func (c *Client) search(ctx context.Context, query string) ([]model.ComicMatch, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, common.Permanent(err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(c.resultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, common.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: metadata API returned 429", common.ErrRateLimit)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w (status %d): %s", common.ErrMetadataServer, resp.StatusCode, truncate(body))
	case resp.StatusCode != http.StatusOK:
		return nil, common.Permanent(fmt.Errorf("%w (status %d): %s", common.ErrMetadataServer, resp.StatusCode, truncate(body)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	matches := make([]model.ComicMatch, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.ID == "" || strings.TrimSpace(r.Title) == "" {
			c.logger.Warn("skipping incomplete metadata result", "query", query, "id", string(r.ID))
			continue
		}
		matches = append(matches, model.ComicMatch{
			ExternalID:  string(r.ID),
			Title:       r.Title,
			IssueNumber: r.IssueNumber,
			Publisher:   r.Publisher,
			CoverURL:    r.CoverURL,
			Year:        r.Year,
			Confidence:  clampScore(r.Score),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	c.logger.Debug("metadata search complete", "query", query, "results", len(matches))
	return matches, nil
}

// Close releases the client's background goroutines and idle connections.
func (c *Client) Close() error {
	c.cache.Close()
	c.rateLimiter.Close()
	c.httpClient.CloseIdleConnections()
	return nil
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func truncate(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// IsServerError reports whether err came from the metadata service rather
// than the caller.
func IsServerError(err error) bool {
	return errors.Is(err, common.ErrMetadataServer) || errors.Is(err, common.ErrRateLimit)
}
