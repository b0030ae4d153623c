// Package client is a typed Go client for the sessiond HTTP API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/inspect"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/providers/windows"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response. Report is set when a restore was
// aborted part way.
type APIError struct {
	Status  int
	Message string
	Report  *report.Report
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sessiond: %d %s", e.Status, e.Message)
}

// Is lets errors.Is match ErrNotFound on 404s.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Options tune the client.
type Options struct {
	Timeout    time.Duration
	RetryMax   int
	RetryWait  time.Duration
	UserAgent  string
	HTTPClient *http.Client // overrides the retrying transport, for tests
}

// DefaultOptions returns the CLI's defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		RetryMax:  3,
		RetryWait: 500 * time.Millisecond,
		UserAgent: "sessionctl/1.0",
	}
}

// Client calls one sessiond instance.
type Client struct {
	base    string
	resty   *resty.Client
	breaker *resilience.Breaker
}

// New creates a client for baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts Options) *Client {
	base := strings.TrimRight(baseURL, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		retry := retryablehttp.NewClient()
		retry.RetryMax = opts.RetryMax
		retry.RetryWaitMin = opts.RetryWait
		retry.RetryWaitMax = 10 * opts.RetryWait
		retry.Logger = nil
		retry.CheckRetry = retryPolicy
		httpClient = retry.StandardClient()
	}

	r := resty.NewWithClient(httpClient).
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	breaker := resilience.New("sessiond", resilience.Settings{
		Cooldown: 10 * time.Second,
		// only server-side trouble counts; 4xx means the server is healthy
		IsFailure: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status >= http.StatusInternalServerError
			}
			return true
		},
	})

	return &Client{base: base, resty: r, breaker: breaker}
}

// retryPolicy retries transport errors and gateway or throttling
// statuses. A 500 from capture or restore is final.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// BreakerState reports the circuit state for diagnostics.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// do sends req through the breaker, decoding a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, prepare func(*resty.Request), out interface{}) (*resty.Response, error) {
	var resp *resty.Response
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		req := c.resty.R().SetContext(ctx).SetError(&errorBody{})
		tracing.Inject(ctx, req.Header)
		if out != nil {
			req.SetResult(out)
		}
		if prepare != nil {
			prepare(req)
		}

		var err error
		resp, err = req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			return apiError(resp)
		}
		return nil
	})
	return resp, err
}

type errorBody struct {
	Error  string         `json:"error"`
	Report *report.Report `json:"report,omitempty"`
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if body, ok := resp.Error().(*errorBody); ok {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Report = body.Report
	}
	return apiErr
}

// RestoreResult is the body of capture and restore calls.
type RestoreResult struct {
	Success   bool           `json:"success"`
	SessionID string         `json:"sessionId"`
	Report    *report.Report `json:"report"`
	Error     string         `json:"error,omitempty"`
}

// Import uploads a manifest and returns its new id.
func (c *Client) Import(ctx context.Context, m *manifest.Manifest) (string, error) {
	data, err := manifest.Encode(m)
	if err != nil {
		return "", err
	}
	var out RestoreResult
	_, err = c.do(ctx, http.MethodPost, "/api/session/import", func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(data)
	}, &out)
	return out.SessionID, err
}

// ExportRaw fetches a stored session rendered as format.
func (c *Client) ExportRaw(ctx context.Context, id string, format manifest.Format) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/session/export/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id).SetQueryParam("format", string(format))
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Export fetches and decodes a stored session. The server makes it active.
func (c *Client) Export(ctx context.Context, id string) (*manifest.Manifest, error) {
	data, err := c.ExportRaw(ctx, id, manifest.FormatJSON)
	if err != nil {
		return nil, err
	}
	return manifest.Decode(data)
}

// List summarizes stored sessions.
func (c *Client) List(ctx context.Context) ([]session.Summary, error) {
	var out struct {
		Sessions []session.Summary `json:"sessions"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/list", nil, &out)
	return out.Sessions, err
}

// Delete removes a stored session.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/session/delete/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	}, nil)
	return err
}

// Inspect summarizes the active session.
func (c *Client) Inspect(ctx context.Context) (*inspect.Overview, error) {
	var out inspect.Overview
	if _, err := c.do(ctx, http.MethodGet, "/api/session/inspect", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VFS lists the active session's files without content.
func (c *Client) VFS(ctx context.Context) ([]inspect.VFSEntry, error) {
	var out struct {
		VFS []inspect.VFSEntry `json:"vfs"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/vfs", nil, &out)
	return out.VFS, err
}

// VFSNode fetches one node, content included.
func (c *Client) VFSNode(ctx context.Context, path string) (*manifest.VFSNode, error) {
	var out struct {
		VFS manifest.VFSNode `json:"vfs"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/vfs", func(r *resty.Request) {
		r.SetQueryParam("path", path)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.VFS, nil
}

// VFSTree nests the active session's files under root.
func (c *Client) VFSTree(ctx context.Context, root string) (map[string]interface{}, error) {
	var out struct {
		Tree map[string]interface{} `json:"tree"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/vfs/tree", func(r *resty.Request) {
		if root != "" {
			r.SetQueryParam("root", root)
		}
	}, &out)
	return out.Tree, err
}

// Processes summarizes the active session's processes.
func (c *Client) Processes(ctx context.Context) ([]inspect.ProcessSummary, error) {
	var out struct {
		Processes []inspect.ProcessSummary `json:"processes"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/processes", nil, &out)
	return out.Processes, err
}

// ProcessesOfType returns full descriptors for one app type.
func (c *Client) ProcessesOfType(ctx context.Context, appType string) ([]manifest.ProcessDescriptor, error) {
	var out struct {
		Processes []manifest.ProcessDescriptor `json:"processes"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/processes", func(r *resty.Request) {
		r.SetQueryParam("type", appType)
	}, &out)
	return out.Processes, err
}

// Process returns the descriptor at index.
func (c *Client) Process(ctx context.Context, index int) (*manifest.ProcessDescriptor, error) {
	var out struct {
		Process manifest.ProcessDescriptor `json:"process"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/session/processes/{index}", func(r *resty.Request) {
		r.SetPathParam("index", strconv.Itoa(index))
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Process, nil
}

// Capture snapshots the live desktop on the server.
func (c *Client) Capture(ctx context.Context) (*RestoreResult, error) {
	var out RestoreResult
	if _, err := c.do(ctx, http.MethodPost, "/api/session/capture", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Restore recreates a stored session on the server's live desktop.
func (c *Client) Restore(ctx context.Context, id string, replace bool) (*RestoreResult, error) {
	var out RestoreResult
	_, err := c.do(ctx, http.MethodPost, "/api/session/restore/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
		if replace {
			r.SetQueryParam("replace", "true")
		}
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Windows lists the server's live windows.
func (c *Client) Windows(ctx context.Context) ([]windows.View, windows.Stats, error) {
	var out struct {
		Windows []windows.View `json:"windows"`
		Stats   windows.Stats  `json:"stats"`
	}
	_, err := c.do(ctx, http.MethodGet, "/api/windows", nil, &out)
	return out.Windows, out.Stats, err
}

// Watch streams session events until ctx ends or the server hangs up.
func (c *Client) Watch(ctx context.Context, fn func(ws.Event) error) error {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/api/session/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
