// Package admin provides loaders shared by the administration screens.
//
// RoleOptions coalesces concurrent loads of the role picker into one request and reuses the
// result for a short TTL. PermissionTree indexes the permission tree by name so a role's grant
// list can be reduced to leaf permissions with FilterLeafNodes. SystemSettings holds the public
// system switches such as the login captcha flag.
package admin
