// Package api provides typed clients for the admin REST API.
//
// # Overview
//
// Each resource has a thin client that maps a method, path and payload onto an httputil
// request. Envelopes are unwrapped by the HTTP layer, so methods return the payload directly.
//
//	client := api.New(httpClient)
//	users, err := client.Users.List(ctx, 1, 20)
//	info, err := client.Login.UserInfo(ctx)
//
// # Endpoints
//
//	Login        GET login/captcha, POST users/login, GET users/info, POST users/logout
//	Users        v2/admin/users (list, read, save, reset-password, delete)
//	Roles        v2/admin/roles (list, select, read, save, delete)
//	Permissions  v2/admin/permission (tree, list, read, save, delete, scan, root)
//	System       v2/system (config, resetCache, sysinfo, database)
//
// Save methods create the resource with POST when the id is empty and update it with PUT
// otherwise.
//
// # Errors
//
// Failures wrap *httputil.APIError; use httputil.AsAPIError to inspect them.
//
// # Related Packages
//
//   - pkg/httputil: Request building and response classification
//   - pkg/session: Uses LoginAPI
//   - pkg/admin: Loaders built on RolesAPI, PermissionsAPI and SystemAPI
package api
