package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/domain"
)

// Ensure Client implements Backend at compile time.
var _ Backend[domain.Article] = (*Client[domain.Article])(nil)

const (
	defaultBaseURL   = "http://127.0.0.1:9090"
	defaultUserAgent = "moderation-console/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10
)

// ClientOptions tunes a Client. Zero values select defaults.
type ClientOptions struct {
	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration
	// UserAgent is sent on every request.
	UserAgent string
	// RPS caps outbound requests per second; <= 0 disables the limiter.
	RPS   float64
	Burst int
	// Retries is the number of extra attempts for reads that fail with a
	// transport error or a 5xx. Mutations are never retried.
	Retries uint
	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client talks to a remote admin API for one entity kind.
type Client[T domain.Entity] struct {
	kind      domain.Kind
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	retries   uint
}

// NewClient builds a Client for kind rooted at baseURL (host:port or URL).
func NewClient[T domain.Entity](kind domain.Kind, baseURL string, opts ClientOptions) (*Client[T], error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	c := &Client[T]{
		kind:      kind,
		baseURL:   base,
		http:      hc,
		userAgent: ua,
		retries:   opts.Retries,
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c, nil
}

// List retrieves one page: GET /{plural}?page=&limit=&search=&{field}=a,b
func (c *Client[T]) List(ctx context.Context, q domain.Query) (domain.Page[T], error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(max(q.Page, 1)))
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	f := q.Filters.Normalize()
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	fields := make([]string, 0, len(f.Sets))
	for k := range f.Sets {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		values.Set(k, strings.Join(f.Sets[k], ","))
	}
	rel := &url.URL{Path: c.collection(), RawQuery: values.Encode()}

	var payload domain.Page[T]
	if err := c.read(ctx, rel, &payload); err != nil {
		return domain.Page[T]{}, err
	}
	if payload.Items == nil {
		payload.Items = []T{}
	}
	return payload, nil
}

// Detail retrieves GET /{plural}/{id}.
func (c *Client[T]) Detail(ctx context.Context, id string) (T, error) {
	var v T
	if strings.TrimSpace(id) == "" {
		return v, fmt.Errorf("id required")
	}
	err := c.read(ctx, &url.URL{Path: c.member(id)}, &v)
	return v, err
}

type updateRequest map[string]any

type updateResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Entity  *T     `json:"entity,omitempty"`
}

// Update sends PATCH /{plural}/{id} with the id and the changed fields.
func (c *Client[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	body := make(updateRequest, len(patch)+1)
	for k, v := range patch {
		body[k] = v
	}
	body["id"] = id
	var resp updateResponse[T]
	if err := c.do(ctx, http.MethodPatch, &url.URL{Path: c.member(id)}, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return resp.Entity, nil
}

type actionRequest struct {
	Action domain.ActionKind `json:"action"`
	Reason string            `json:"reason,omitempty"`
}

type actionResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AdminAction sends POST /{plural}/{id}/actions.
func (c *Client[T]) AdminAction(ctx context.Context, id string, action domain.ActionKind, reason string) error {
	return c.command(ctx, c.member(id)+"/actions", actionRequest{Action: action, Reason: reason})
}

// SoftDelete sends POST /{plural}/{id}/delete.
func (c *Client[T]) SoftDelete(ctx context.Context, id string) error {
	return c.command(ctx, c.member(id)+"/delete", nil)
}

// Restore sends POST /{plural}/{id}/restore.
func (c *Client[T]) Restore(ctx context.Context, id string) error {
	return c.command(ctx, c.member(id)+"/restore", nil)
}

func (c *Client[T]) command(ctx context.Context, path string, body any) error {
	var resp actionResponse
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: path}, body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	return nil
}

func (c *Client[T]) collection() string { return "/" + c.kind.Plural() }

func (c *Client[T]) member(id string) string {
	return c.collection() + "/" + id
}

// read performs a GET, retrying transport errors and 5xx responses.
func (c *Client[T]) read(ctx context.Context, rel *url.URL, dest any) error {
	if c.retries == 0 {
		return c.do(ctx, http.MethodGet, rel, nil, dest)
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.do(ctx, http.MethodGet, rel, nil, dest)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.retries+1),
	)
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

func (c *Client[T]) do(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + rel.Path
	reqURL.RawPath = ""
	reqURL.RawQuery = rel.RawQuery
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts a human message from an error body. JSON bodies with
// a "message" or "error" field are preferred; anything else is returned
// trimmed.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	// A path prefix (e.g. /api/v1) is kept; request paths are appended.
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
