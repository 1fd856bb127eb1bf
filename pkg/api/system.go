package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

const systemPath = "v2/system"

// SystemAPI reads and maintains the server configuration
type SystemAPI struct {
	doer Doer
}

// Config returns the public system settings
func (a *SystemAPI) Config(ctx context.Context) (*SystemSettings, error) {
	settings, err := Request[SystemSettings](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    systemPath + "/config",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	return &settings, nil
}

// ResetCache clears the server caches
func (a *SystemAPI) ResetCache(ctx context.Context) (json.RawMessage, error) {
	return a.raw(ctx, "POST", "resetCache", "failed to reset cache")
}

// SystemInfo returns host and runtime information
func (a *SystemAPI) SystemInfo(ctx context.Context) (json.RawMessage, error) {
	return a.raw(ctx, "GET", "sysinfo", "failed to load system info")
}

// Database returns database introspection data
func (a *SystemAPI) Database(ctx context.Context) (json.RawMessage, error) {
	return a.raw(ctx, "GET", "database", "failed to load database info")
}

func (a *SystemAPI) raw(ctx context.Context, method, name, failure string) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, httputil.RequestConfig{
		Method: method,
		URL:    systemPath + "/" + name,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", failure, err)
	}
	return result, nil
}
