package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/httputil"
)

const permissionPath = "v2/admin/permission"

// PermissionsAPI manages the permission catalogue
type PermissionsAPI struct {
	doer Doer
}

// Tree returns the full permission tree
func (a *PermissionsAPI) Tree(ctx context.Context) ([]PermissionNode, error) {
	tree, err := Request[[]PermissionNode](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    permissionPath + "/tree",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load permission tree: %w", err)
	}
	return tree, nil
}

// List returns one page of permissions
func (a *PermissionsAPI) List(ctx context.Context, page, limit int) (*Page[PermissionNode], error) {
	result, err := RequestPage[PermissionNode](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    permissionPath,
		Params: pageParams(page, limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return result, nil
}

// Read returns one permission
func (a *PermissionsAPI) Read(ctx context.Context, id ObjectID) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, httputil.RequestConfig{
		Method: "GET",
		URL:    resourcePath(permissionPath, id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read permission %s: %w", id, err)
	}
	return result, nil
}

// Save creates a permission when id is empty and updates it otherwise
func (a *PermissionsAPI) Save(ctx context.Context, id ObjectID, data interface{}) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, saveConfig(permissionPath, id, data))
	if err != nil {
		return nil, fmt.Errorf("failed to save permission: %w", err)
	}
	return result, nil
}

// Delete removes a permission
func (a *PermissionsAPI) Delete(ctx context.Context, id ObjectID) error {
	if _, err := a.doer.Do(ctx, deleteConfig(permissionPath, id)); err != nil {
		return fmt.Errorf("failed to delete permission %s: %w", id, err)
	}
	return nil
}

// Scan asks the server to rescan its routes for permissions
func (a *PermissionsAPI) Scan(ctx context.Context) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, httputil.RequestConfig{
		Method: "POST",
		URL:    permissionPath + "/scan",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan permissions: %w", err)
	}
	return result, nil
}

// SaveItems updates the sort and description of many permissions at once
func (a *PermissionsAPI) SaveItems(ctx context.Context, rows PermissionChanges) (json.RawMessage, error) {
	result, err := Request[json.RawMessage](ctx, a.doer, httputil.RequestConfig{
		Method: "PUT",
		URL:    permissionPath + "/root",
		Data: map[string]interface{}{
			"batch": true,
			"list":  rows,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save permissions: %w", err)
	}
	return result, nil
}
