package api

import (
	"context"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

// LoginAPI covers the sign-in endpoints
type LoginAPI struct {
	doer Doer
}

// Captcha is a login captcha image
type Captcha struct {
	ContentType string
	Image       []byte
}

// Captcha fetches the login captcha image
func (a *LoginAPI) Captcha(ctx context.Context) (*Captcha, error) {
	resp, err := a.doer.Do(ctx, httputil.RequestConfig{
		Method:       "GET",
		URL:          "login/captcha",
		ResponseType: httputil.ResponseBlob,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captcha: %w", err)
	}
	return &Captcha{ContentType: resp.Header.Get("Content-Type"), Image: resp.Body}, nil
}

// Login exchanges credentials for a session id and token
func (a *LoginAPI) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	result, err := Request[LoginResult](ctx, a.doer, httputil.RequestConfig{
		Method: "POST",
		URL:    "users/login",
		Data:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &result, nil
}

// UserInfo fetches the signed-in identity and its permission grants
func (a *LoginAPI) UserInfo(ctx context.Context) (*LoginUserInfo, error) {
	info, err := Request[LoginUserInfo](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    "users/info",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user info: %w", err)
	}
	return &info, nil
}

// Logout ends the session on the server. Failures are not notified.
func (a *LoginAPI) Logout(ctx context.Context) error {
	_, err := a.doer.Do(ctx, httputil.RequestConfig{
		Method:            "POST",
		URL:               "users/logout",
		SilentErrorNotify: httputil.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}
