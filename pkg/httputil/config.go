package httputil

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"dario.cat/mergo"
)

// DefaultTimeout bounds every request that does not set its own timeout
const DefaultTimeout = 5 * time.Second

// ResponseType tells the client how to treat a response body
type ResponseType string

const (
	ResponseJSON        ResponseType = "json"
	ResponseBlob        ResponseType = "blob"
	ResponseArrayBuffer ResponseType = "arraybuffer"
)

// Binary reports whether the body is returned untouched
func (t ResponseType) Binary() bool {
	return t == ResponseBlob || t == ResponseArrayBuffer
}

// RequestConfig describes one API call. Unset fields take the client defaults.
type RequestConfig struct {
	Method  string
	URL     string
	BaseURL string
	Params  url.Values
	// Data is encoded as JSON unless it is already []byte
	Data    interface{}
	Headers map[string]string
	Timeout time.Duration

	ResponseType ResponseType
	// ExtractData=false returns the raw response instead of unwrapping the envelope
	ExtractData *bool
	// SilentErrorNotify=true suppresses the user notification for this call
	SilentErrorNotify *bool
	// Authorization=false omits the bearer token
	Authorization *bool
}

// Bool returns a pointer to b for the optional RequestConfig flags
func Bool(b bool) *bool {
	return &b
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// defaults returns a fresh default config so merged maps never alias between calls
func (c *Client) defaults() RequestConfig {
	return RequestConfig{
		Method:  "GET",
		BaseURL: c.opts.BaseURL,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Requested-With": "XMLHttpRequest",
		},
		Timeout:           c.opts.Timeout,
		ResponseType:      ResponseJSON,
		ExtractData:       Bool(true),
		SilentErrorNotify: Bool(false),
		Authorization:     Bool(true),
	}
}

// merge fills the unset fields of cfg from the client defaults.
// Pointer flags are not dereferenced so an explicit false survives.
func (c *Client) merge(cfg RequestConfig) (RequestConfig, error) {
	merged := cfg
	if cfg.Headers != nil {
		merged.Headers = make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			merged.Headers[k] = v
		}
	}
	if err := mergo.Merge(&merged, c.defaults(), mergo.WithoutDereference); err != nil {
		return RequestConfig{}, fmt.Errorf("failed to merge request config: %w", err)
	}
	merged.Method = strings.ToUpper(merged.Method)
	return merged, nil
}

// resolveURL joins base and path and appends params
func resolveURL(base, path string, params url.Values) (string, error) {
	target, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", path, err)
	}
	if !target.IsAbs() && base != "" {
		joined := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
		if target, err = url.Parse(joined); err != nil {
			return "", fmt.Errorf("invalid request URL %q: %w", joined, err)
		}
	}
	if len(params) > 0 {
		query := target.Query()
		for k, vs := range params {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}
