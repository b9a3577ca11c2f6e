package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"levelup/internal/engine"
)

const (
	apiPrefix      = "/api/arise"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPClient talks to a remote tree generation service. It implements
// engine.Generator and engine.GoalRegistrar.
type HTTPClient struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

type HTTPOption func(*HTTPClient)

// WithTimeout bounds every request; zero keeps the default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRateLimit caps outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) HTTPOption {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// NewHTTPClient parses baseURL, adding http:// when no scheme is given.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend url %q has no host", baseURL)
	}

	c := &HTTPClient{
		base:    u,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised service address.
func (c *HTTPClient) BaseURL() string { return c.base.String() }

type goalRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Timeframe   string     `json:"timeframe"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
}

type goalResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Timeframe   string     `json:"timeframe"`
	TargetDate  *time.Time `json:"targetDate"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type generateRequest struct {
	GoalID           string   `json:"goalId"`
	ContextSourceIDs []string `json:"contextSourceIds,omitempty"`
}

type refreshRequest struct {
	ContextSourceIDs []string            `json:"contextSourceIds,omitempty"`
	Tree             *engine.TreePayload `json:"tree,omitempty"`
}

type refreshResponse struct {
	Tree          *engine.TreePayload `json:"tree"`
	NodesAdded    int                 `json:"nodesAdded"`
	NodesModified int                 `json:"nodesModified"`
	NodesRemoved  int                 `json:"nodesRemoved"`
}

// StatusError is a non-2xx reply from the service.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (c *HTTPClient) CreateGoal(ctx context.Context, in engine.GoalInput) (*engine.Goal, error) {
	body := goalRequest{
		Title:       in.Title,
		Description: in.Description,
		Timeframe:   string(in.Timeframe),
		TargetDate:  in.TargetDate,
	}
	var resp goalResponse
	if err := c.do(ctx, http.MethodPost, "/goals", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("create goal: response has no id")
	}
	tf, err := engine.ParseTimeframe(resp.Timeframe)
	if err != nil {
		tf = in.Timeframe
	}
	return &engine.Goal{
		ID:          resp.ID,
		Title:       resp.Title,
		Description: resp.Description,
		Timeframe:   tf,
		TargetDate:  resp.TargetDate,
		Status:      engine.GoalActive,
		CreatedAt:   resp.CreatedAt,
	}, nil
}

func (c *HTTPClient) GenerateTree(ctx context.Context, req engine.GenerateRequest) (*engine.TreePayload, error) {
	body := generateRequest{GoalID: req.Goal.ID, ContextSourceIDs: req.ContextSourceIDs}
	var tree engine.TreePayload
	if err := c.do(ctx, http.MethodPost, "/trees/generate", body, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// RefreshTree asks the service to regenerate a tree. Only the tree of the
// reply is used; the engine computes its own merge counts.
func (c *HTTPClient) RefreshTree(ctx context.Context, req engine.RefreshRequest) (*engine.TreePayload, error) {
	body := refreshRequest{ContextSourceIDs: req.ContextSourceIDs, Tree: req.Current}
	var resp refreshResponse
	path := "/trees/" + url.PathEscape(req.TreeID) + "/refresh"
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Tree == nil {
		return nil, fmt.Errorf("refresh tree %s: response has no tree", req.TreeID)
	}
	c.log.Debug("remote refresh",
		zap.String("tree_id", req.TreeID),
		zap.Int("added", resp.NodesAdded),
		zap.Int("modified", resp.NodesModified),
		zap.Int("removed", resp.NodesRemoved))
	return resp.Tree, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
