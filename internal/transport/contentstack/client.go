// Package contentstack is a read-only client for the Contentstack Content Delivery API.
package contentstack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ctxsearch/internal/domain"
	"github.com/kailas-cloud/ctxsearch/internal/domain/entry"
	"github.com/kailas-cloud/ctxsearch/internal/domain/source"
	"github.com/kailas-cloud/ctxsearch/internal/metrics"
)

// Regional delivery endpoints.
const (
	BaseURLUS = "https://cdn.contentstack.io"
	BaseURLEU = "https://eu-cdn.contentstack.com"

	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
	maxErrorBody       = 4096
)

// Config holds the delivery API settings.
type Config struct {
	APIKey        string
	DeliveryToken string
	Environment   string
	Region        string
	// BaseURL overrides the regional endpoint.
	BaseURL     string
	Timeout     time.Duration
	Concurrency int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client fetches entries and content types.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	token       string
	environment string
	timeout     time.Duration
	concurrency int
	logger      *zap.Logger
}

// NewClient creates a delivery API client.
func NewClient(cfg *Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = BaseURLUS
		if strings.EqualFold(cfg.Region, "eu") {
			base = BaseURLEU
		}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	conc := cfg.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:        hc,
		baseURL:     strings.TrimRight(base, "/"),
		apiKey:      cfg.APIKey,
		token:       cfg.DeliveryToken,
		environment: env,
		timeout:     timeout,
		concurrency: conc,
		logger:      log,
	}
}

// Ready reports whether credentials are configured.
func (c *Client) Ready() bool {
	return c.apiKey != "" && c.token != ""
}

type contentTypesResponse struct {
	ContentTypes []struct {
		UID string `json:"uid"`
	} `json:"content_types"`
}

type entriesResponse struct {
	Entries []map[string]any `json:"entries"`
	Count   int              `json:"count"`
}

type errorResponse struct {
	Message string `json:"error_message"`
	Code    int    `json:"error_code"`
}

// ListContentTypes returns the uids of all content types in the stack.
func (c *Client) ListContentTypes(ctx context.Context) ([]string, error) {
	if !c.Ready() {
		return nil, domain.ErrSourceNotConfigured
	}
	var resp contentTypesResponse
	if err := c.get(ctx, "content_types", "/v3/content_types", nil, &resp); err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(resp.ContentTypes))
	for _, ct := range resp.ContentTypes {
		if ct.UID != "" {
			uids = append(uids, ct.UID)
		}
	}
	return uids, nil
}

// FetchEntries loads up to q.Limit entries of the requested content types
// (all types when none are given). Types are fetched concurrently and the
// result keeps content-type order, then CMS order.
func (c *Client) FetchEntries(ctx context.Context, q source.Query) (source.Page, error) {
	if !c.Ready() {
		return source.Page{}, domain.ErrSourceNotConfigured
	}

	types := q.ContentTypes
	if len(types) == 0 {
		all, err := c.ListContentTypes(ctx)
		if err != nil {
			return source.Page{}, fmt.Errorf("list content types: %w", err)
		}
		types = all
	}

	pages := make([]source.Page, len(types))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ct := range types {
		g.Go(func() error {
			p, err := c.fetchType(gctx, ct, q.Limit, q.Locale)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", ct, err)
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return source.Page{}, err //nolint:wrapcheck // wrapped per content type
	}

	var out source.Page
	for _, p := range pages {
		out.Entries = append(out.Entries, p.Entries...)
		out.TotalCount += p.TotalCount
	}
	if q.Limit > 0 && len(out.Entries) > q.Limit {
		out.Entries = out.Entries[:q.Limit]
	}
	return out, nil
}

// HealthCheck verifies credentials by listing content types.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ListContentTypes(ctx)
	return err
}

func (c *Client) fetchType(ctx context.Context, contentType string, limit int, locale string) (source.Page, error) {
	params := url.Values{}
	params.Set("include_count", "true")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if locale != "" {
		params.Set("locale", locale)
	}

	var resp entriesResponse
	path := "/v3/content_types/" + url.PathEscape(contentType) + "/entries"
	if err := c.get(ctx, "entries", path, params, &resp); err != nil {
		return source.Page{}, err
	}

	page := source.Page{Entries: make([]entry.Entry, 0, len(resp.Entries)), TotalCount: resp.Count}
	for _, raw := range resp.Entries {
		e, err := entry.FromMap(raw, contentType)
		if err != nil {
			c.logger.Warn("Skipping malformed entry",
				zap.String("content_type", contentType),
				zap.Error(err),
			)
			continue
		}
		page.Entries = append(page.Entries, e)
	}
	if page.TotalCount == 0 {
		page.TotalCount = len(page.Entries)
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if params == nil {
		params = url.Values{}
	}
	params.Set("environment", c.environment)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("access_token", c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(op, "error").Inc()
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("request %s: %w", op, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("Contentstack request",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SourceRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr errorResponse
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return domain.NewSourceError(resp.StatusCode, msg)
	}

	metrics.SourceRequestsTotal.WithLabelValues(op, "ok").Inc()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrSourceUnavailable, op, err)
	}
	return nil
}
