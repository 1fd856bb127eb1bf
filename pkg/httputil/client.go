package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ozxin/nx-admin/pkg/contextkeys"
	"github.com/ozxin/nx-admin/pkg/observability"
)

// TokenSource provides the persisted session token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ExpiryHandler is told when the server rejects the session with 401
type ExpiryHandler interface {
	Expire(ctx context.Context)
}

// Notifier shows an API error to the user
type Notifier interface {
	Notify(ctx context.Context, err *APIError)
}

// Options configure a Client
type Options struct {
	BaseURL string
	// Timeout applies when a call sets none. Defaults to DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *observability.Logger
	Metrics    *observability.ClientMetrics
	// Notifier defaults to logging the report message at warn level
	Notifier Notifier
	// Tracing wraps the transport with OpenTelemetry spans
	Tracing bool
}

// Client sends API requests and normalizes every response into a payload or an *APIError
type Client struct {
	opts   Options
	http   *http.Client
	expiry ExpiryHandler
}

// NewClient creates a client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = Chain(transport, RequestIDTransport, LoggingTransport(opts.Logger))
	if opts.Tracing {
		transport = otelhttp.NewTransport(transport)
	}
	wrapped := *hc
	wrapped.Transport = transport

	return &Client{opts: opts, http: &wrapped}
}

// SetExpiryHandler registers the handler called on 401 responses
func (c *Client) SetExpiryHandler(h ExpiryHandler) {
	c.expiry = h
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// Response is a successful API call
type Response struct {
	Status int
	Header http.Header
	// Body is the raw response body
	Body []byte
	// Raw is set when the body was passed through without envelope handling
	Raw bool
	// Code, Message and Data come from the envelope when Raw is false
	Code    int
	Message string
	Data    json.RawMessage
}

// NoContent reports a 204 response
func (r *Response) NoContent() bool {
	return r.Status == http.StatusNoContent
}

type serverError struct {
	Errno   int    `json:"errno"`
	Message string `json:"message"`
}

// Do sends the request described by cfg.
// Every failure is returned as *APIError and, unless silenced, passed to the Notifier.
func (c *Client) Do(ctx context.Context, cfg RequestConfig) (*Response, error) {
	merged, err := c.merge(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, apiErr := c.do(ctx, merged)
	if apiErr != nil {
		c.opts.Metrics.ObserveRequest(merged.Method, string(apiErr.Kind), time.Since(start))
		c.fail(ctx, merged, apiErr)
		return nil, apiErr
	}
	c.opts.Metrics.ObserveRequest(merged.Method, observability.OutcomeOK, time.Since(start))
	return resp, nil
}

func (c *Client) do(ctx context.Context, cfg RequestConfig) (*Response, *APIError) {
	target, err := resolveURL(cfg.BaseURL, cfg.URL, cfg.Params)
	if err != nil {
		return nil, &APIError{Kind: KindFault, Code: -1, Message: "fault: " + err.Error(), Path: cfg.URL, Cause: err}
	}
	path := settlePath(target)

	body, err := encodeBody(cfg)
	if err != nil {
		return nil, &APIError{Kind: KindFault, Code: -1, Message: "fault: " + err.Error(), Path: path, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, cfg.Method, target, body)
	if err != nil {
		return nil, &APIError{Kind: KindFault, Code: -1, Message: "fault: " + err.Error(), Path: path, Cause: err}
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if isTrue(cfg.Authorization) && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", c.authorization(ctx))
	}
	if id := contextkeys.GetRequestID(ctx); id != "" && req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", id)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err, path)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(err, path)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, statusError(httpResp.StatusCode, data, path)
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if cfg.ResponseType.Binary() || (cfg.ExtractData != nil && !*cfg.ExtractData) {
		resp.Raw = true
		return resp, nil
	}
	if httpResp.StatusCode == http.StatusNoContent {
		return resp, nil
	}

	// The envelope is recognized by the presence of its code key, whatever the value
	var env map[string]json.RawMessage
	err = json.Unmarshal(data, &env)
	code, ok := env["code"]
	if err != nil || !ok {
		return nil, &APIError{
			Kind:    KindForeign,
			Code:    -1,
			Message: MessageForeign,
			Status:  httpResp.StatusCode,
			Path:    path,
			Cause:   err,
		}
	}
	_ = json.Unmarshal(code, &resp.Code)
	if message, ok := env["message"]; ok {
		_ = json.Unmarshal(message, &resp.Message)
	}
	resp.Data = env["data"]
	return resp, nil
}

func (c *Client) authorization(ctx context.Context) string {
	var token string
	if c.opts.Tokens != nil {
		t, err := c.opts.Tokens.Token(ctx)
		if err != nil {
			observability.FromContext(ctx).WithError(err).Warn("failed to read session token")
		}
		token = t
	}
	return fmt.Sprintf(`Bearer TK="%s"`, token)
}

// fail runs the side effects of a failed call: session expiry then notification
func (c *Client) fail(ctx context.Context, cfg RequestConfig, apiErr *APIError) {
	c.opts.Logger.WithFields(observability.Fields{
		"kind":   string(apiErr.Kind),
		"code":   apiErr.Code,
		"status": apiErr.Status,
		"path":   apiErr.Path,
	}).Warn(apiErr.Message)

	if apiErr.IsSessionExpired() && c.expiry != nil && !contextkeys.IsSkipExpiry(ctx) {
		c.expiry.Expire(context.WithoutCancel(ctx))
	}

	if isTrue(cfg.SilentErrorNotify) || contextkeys.IsSilentNotify(ctx) {
		return
	}
	c.opts.Notifier.Notify(ctx, apiErr)
}

func encodeBody(cfg RequestConfig) (io.Reader, error) {
	if cfg.Method == http.MethodGet || cfg.Method == http.MethodHead {
		return nil, nil
	}
	switch data := cfg.Data.(type) {
	case nil:
		return bytes.NewReader([]byte("{}")), nil
	case []byte:
		return bytes.NewReader(data), nil
	case json.RawMessage:
		return bytes.NewReader(data), nil
	default:
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(encoded), nil
	}
}

func transportError(err error, path string) *APIError {
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: KindCanceled, Code: -1, Message: "request canceled: " + err.Error(), Path: path, Cause: err}
	}
	return &APIError{Kind: KindFault, Code: -1, Message: "fault: " + err.Error(), Path: path, Cause: err}
}

func statusError(status int, body []byte, path string) *APIError {
	apiErr := &APIError{Kind: KindServer, Code: -1, Message: "unknown", Status: status, Path: path}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		var se serverError
		_ = json.Unmarshal(body, &se)
		if se.Errno != 0 {
			apiErr.Code = se.Errno
		}
		if se.Message != "" {
			apiErr.Message = se.Message
		}
		return apiErr
	}

	if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
		apiErr.Message = Truncate(string(body), maxBodyMessage, "[omit...]")
	}
	return apiErr
}

// settlePath keeps the path, query and fragment of target
func settlePath(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		path += "#" + u.EscapedFragment()
	}
	return path
}

// NewRequestID returns a fresh request id
func NewRequestID() string {
	return uuid.NewString()
}
