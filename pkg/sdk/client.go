package omnisearch

import (
	"bytes"
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
)

const apiPrefix = "/api/v1"

// Admin index actions.
const (
	actionIndexAll          = "index-all"
	actionReindexEmbeddings = "reindex-embeddings"
)

// Client is the omnisearch API entry point. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	obs       *observer
}

// New creates a Client for the server at baseURL (scheme and host, optional
// path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout, userAgent: "omnisearch-go"}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("omnisearch: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("omnisearch: base url %q must include scheme and host", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   u,
		http:      hc,
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		obs:       obs,
	}, nil
}

// Search runs a search. An empty Type searches hybrid.
func (c *Client) Search(ctx context.Context, req SearchRequest) (resp SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	err = c.do(ctx, http.MethodPost, apiPrefix+"/search", nil, req, &resp)
	return resp, err
}

// Suggestions returns query completions for a prefix. limit <= 0 uses the
// server default.
func (c *Client) Suggestions(ctx context.Context, q string, limit int) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggestions", start, err) }()

	query := url.Values{"q": {q}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp suggestionsResponse
	if err = c.do(ctx, http.MethodGet, apiPrefix+"/search/suggestions", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Analytics summarizes the last days of search traffic. days <= 0 uses the
// server default.
func (c *Client) Analytics(ctx context.Context, days int) (resp Analytics, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analytics", start, err) }()

	var query url.Values
	if days > 0 {
		query = url.Values{"days": {strconv.Itoa(days)}}
	}
	err = c.do(ctx, http.MethodGet, apiPrefix+"/search/analytics", query, nil, &resp)
	return resp, err
}

// IndexAll indexes every source content type.
func (c *Client) IndexAll(ctx context.Context) (_ IndexReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_all", start, err) }()

	resp, err := c.indexAction(ctx, actionIndexAll)
	if err != nil {
		return IndexReport{}, err
	}
	report := IndexReport{Counts: resp.Counts, Errors: resp.Errors}
	if resp.Total != nil {
		report.Total = *resp.Total
	}
	return report, nil
}

// IndexType indexes a single content type: user, file, stream or post.
func (c *Client) IndexType(ctx context.Context, contentType string) (_ TypeReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_type", start, err) }()

	resp, err := c.indexAction(ctx, "index-"+contentType+"s")
	if err != nil {
		return TypeReport{}, err
	}
	return TypeReport{
		ContentType: contentType,
		Indexed:     deref(resp.Count),
		Embedded:    deref(resp.Embedded),
		Errors:      resp.Errors[contentType],
	}, nil
}

// ReindexEmbeddings embeds stored documents that have no embedding and
// returns how many were updated.
func (c *Client) ReindexEmbeddings(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex_embeddings", start, err) }()

	resp, err := c.indexAction(ctx, actionReindexEmbeddings)
	if err != nil {
		return 0, err
	}
	return deref(resp.Count), nil
}

// IndexStatus returns document statistics and provider availability.
func (c *Client) IndexStatus(ctx context.Context) (resp IndexStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("index_status", start, err) }()

	err = c.do(ctx, http.MethodGet, apiPrefix+"/admin/index", nil, nil, &resp)
	return resp, err
}

// DeleteDocument removes a document from the index.
// Returns an error matching ErrNotFound when the id is unknown.
func (c *Client) DeleteDocument(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_document", start, err) }()

	return c.do(ctx, http.MethodDelete, apiPrefix+"/admin/documents/"+url.PathEscape(id), nil, nil, nil)
}

// Health returns the server health report. An unhealthy server answers 503
// with a report, which is returned without error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	err = c.do(ctx, http.MethodGet, "/health", nil, nil, &hs)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && hs.Status != "" {
		return hs, nil
	}
	return hs, err
}

func (c *Client) indexAction(ctx context.Context, action string) (indexActionResponse, error) {
	var resp indexActionResponse
	err := c.do(ctx, http.MethodPost, apiPrefix+"/admin/index", nil, indexActionRequest{Action: action}, &resp)
	return resp, err
}

// do sends a request and decodes a JSON response into out. path must be
// escaped. Error bodies without an error code are decoded into out as well.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("omnisearch: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("omnisearch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("omnisearch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("omnisearch: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw, out)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("omnisearch: decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte, out any) error {
	apiErr := &APIError{StatusCode: status}
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		return apiErr
	}
	if out != nil {
		_ = json.Unmarshal(raw, out)
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
