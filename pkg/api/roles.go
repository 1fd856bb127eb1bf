package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

const rolesPath = "v2/admin/roles"

// RolesAPI manages roles
type RolesAPI struct {
	doer Doer
}

// List returns one page of roles
func (a *RolesAPI) List(ctx context.Context, page, limit int) (*Page[RoleItem], error) {
	result, err := RequestPage[RoleItem](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    rolesPath,
		Params: pageParams(page, limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return result, nil
}

// Select returns the options of the role picker
func (a *RolesAPI) Select(ctx context.Context) ([]RoleOption, error) {
	options, err := Request[[]RoleOption](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    rolesPath + "/select",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load role options: %w", err)
	}
	return options, nil
}

// Read returns one role
func (a *RolesAPI) Read(ctx context.Context, id ObjectID) (*RoleItem, error) {
	role, err := Request[RoleItem](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    resourcePath(rolesPath, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read role %s: %w", id, err)
	}
	return &role, nil
}

// Save creates a role when id is empty and updates it otherwise
func (a *RolesAPI) Save(ctx context.Context, id ObjectID, data interface{}) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, saveConfig(rolesPath, id, data))
	if err != nil {
		return nil, fmt.Errorf("failed to save role: %w", err)
	}
	return result, nil
}

// Delete removes the role
func (a *RolesAPI) Delete(ctx context.Context, id ObjectID) error {
	if _, err := a.doer.Do(ctx, deleteConfig(rolesPath, id)); err != nil {
		return fmt.Errorf("failed to delete role %s: %w", id, err)
	}
	return nil
}
