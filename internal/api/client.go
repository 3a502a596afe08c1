package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipdeck/internal/model"
)

const (
	clipsPath = "/api/gallery/clips"
	hookPath  = "/api/hook"
	userAgent = "clipdeck"
)

// StatusError is returned for any non-2xx answer from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, body)
}

// Temporary reports server-side failures that are worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the clip gallery backend.
type Client struct {
	baseURL *url.URL
	api     *http.Client
	media   *http.Client
	logger  *slog.Logger
}

// NewClient builds a client for baseURL. API calls are bounded by timeout;
// media transfers are bounded only by their context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: u,
		api:     &http.Client{Timeout: timeout},
		media:   &http.Client{},
		logger:  logger,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListClips fetches one page of the gallery.
func (c *Client) ListClips(ctx context.Context, limit, offset int) (model.ClipPage, error) {
	if limit <= 0 {
		return model.ClipPage{}, fmt.Errorf("list clips: limit must be > 0")
	}
	if offset < 0 {
		return model.ClipPage{}, fmt.Errorf("list clips: offset must be >= 0")
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	endpoint := c.endpoint(clipsPath) + "?" + q.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.ClipPage{}, err
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return model.ClipPage{}, fmt.Errorf("list clips: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ClipPage{}, statusError("list clips", resp)
	}

	var page model.ClipPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return model.ClipPage{}, fmt.Errorf("list clips: decode response: %w", err)
	}
	if page.Clips == nil {
		page.Clips = []model.Clip{}
	}
	for i := range page.Clips {
		page.Clips[i].URL = c.ResolveURL(page.Clips[i].URL)
	}
	c.logger.Debug("clips page fetched", "limit", limit, "offset", offset, "count", len(page.Clips))
	return page, nil
}

// Ping checks that the clip listing answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListClips(ctx, 1, 0)
	return err
}

// SubmitHook asks the backend to render a hook overlay on a clip.
func (c *Client) SubmitHook(ctx context.Context, hr model.HookRequest) (model.HookResult, error) {
	if err := hr.Validate(); err != nil {
		return model.HookResult{}, err
	}
	body, err := json.Marshal(hr)
	if err != nil {
		return model.HookResult{}, fmt.Errorf("marshal hook request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(hookPath), bytes.NewReader(body))
	if err != nil {
		return model.HookResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return model.HookResult{}, fmt.Errorf("submit hook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.HookResult{}, statusError("submit hook", resp)
	}
	var out model.HookResult
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return model.HookResult{}, fmt.Errorf("submit hook: decode response: %w", err)
		}
	}
	out.URL = c.ResolveURL(out.URL)
	c.logger.Info("hook submitted", "job_id", hr.JobID, "clip_index", hr.Index, "position", hr.Position, "size", hr.Size)
	return out, nil
}

// ResolveURL makes relative media locators absolute against the API host.
func (c *Client) ResolveURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + path
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}
