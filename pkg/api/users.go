package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

const usersPath = "v2/admin/users"

// UsersAPI manages admin accounts
type UsersAPI struct {
	doer Doer
}

// List returns one page of accounts
func (a *UsersAPI) List(ctx context.Context, page, limit int) (*Page[UserItem], error) {
	result, err := RequestPage[UserItem](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    usersPath,
		Params: pageParams(page, limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return result, nil
}

// Read returns one account
func (a *UsersAPI) Read(ctx context.Context, id ObjectID) (*UserItem, error) {
	user, err := Request[UserItem](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    resourcePath(usersPath, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}
	return &user, nil
}

// Save creates an account when id is empty and updates it otherwise
func (a *UsersAPI) Save(ctx context.Context, id ObjectID, data interface{}) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, saveConfig(usersPath, id, data))
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return result, nil
}

// ResetPassword sets a new password for the account
func (a *UsersAPI) ResetPassword(ctx context.Context, id ObjectID, password string) error {
	_, err := a.doer.Do(ctx, httputil.RequestConfig{
		Method: "POST",
		URL:    resourcePath(usersPath, id) + "/reset-password",
		Data:   map[string]string{"password": password},
	})
	if err != nil {
		return fmt.Errorf("failed to reset password of user %s: %w", id, err)
	}
	return nil
}

// Delete removes the account
func (a *UsersAPI) Delete(ctx context.Context, id ObjectID) error {
	if _, err := a.doer.Do(ctx, deleteConfig(usersPath, id)); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

func saveConfig(base string, id ObjectID, data interface{}) httputil.RequestConfig {
	if id == "" {
		return httputil.RequestConfig{Method: "POST", URL: base, Data: data}
	}
	return httputil.RequestConfig{Method: "PUT", URL: resourcePath(base, id), Data: data}
}

func deleteConfig(base string, id ObjectID) httputil.RequestConfig {
	return httputil.RequestConfig{Method: "DELETE", URL: resourcePath(base, id)}
}
