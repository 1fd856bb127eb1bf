package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

// Doer sends one API request. *httputil.Client implements it.
type Doer interface {
	Do(ctx context.Context, cfg httputil.RequestConfig) (*httputil.Response, error)
}

// Request sends cfg and decodes the envelope payload into T.
// An empty payload or a 204 yields the zero value.
func Request[T any](ctx context.Context, doer Doer, cfg httputil.RequestConfig) (T, error) {
	var out T
	resp, err := doer.Do(ctx, cfg)
	if err != nil {
		return out, err
	}
	if resp.NoContent() || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s response: %w", cfg.URL, err)
	}
	return out, nil
}

// RequestPage sends cfg and decodes a paged listing
func RequestPage[T any](ctx context.Context, doer Doer, cfg httputil.RequestConfig) (*Page[T], error) {
	resp, err := doer.Do(ctx, cfg)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{}
	if resp.NoContent() {
		return page, nil
	}
	if err := json.Unmarshal(resp.Body, page); err != nil {
		return nil, fmt.Errorf("failed to decode %s page: %w", cfg.URL, err)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page, nil
}

func pageParams(page, limit int) url.Values {
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

func resourcePath(base string, id ObjectID) string {
	return base + "/" + url.PathEscape(id.String())
}

// Client groups the resource clients
type Client struct {
	Login       *LoginAPI
	Users       *UsersAPI
	Roles       *RolesAPI
	Permissions *PermissionsAPI
	System      *SystemAPI
}

// New creates all resource clients over doer
func New(doer Doer) *Client {
	return &Client{
		Login:       &LoginAPI{doer: doer},
		Users:       &UsersAPI{doer: doer},
		Roles:       &RolesAPI{doer: doer},
		Permissions: &PermissionsAPI{doer: doer},
		System:      &SystemAPI{doer: doer},
	}
}
