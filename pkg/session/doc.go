// Package session manages the console session: login, identity, permissions and expiry.
//
// # Overview
//
// A Store moves through three states:
//
//	anonymous       no token persisted
//	authenticating  login in flight, or token persisted and identity not loaded yet
//	authenticated   token, identity and permission set loaded
//
// Logout and forced expiry return it to anonymous.
//
// # Usage
//
//	store, err := session.New(ctx, session.Options{
//		Secrets:     secrets,
//		Login:       apiClient.Login,
//		Permissions: rbacStore,
//		Routes:      registry,
//	})
//	err = store.Login(ctx, session.LoginForm{Username: "admin", Password: "secret", Code: "1234"})
//	info, err := store.GetInfo(ctx)
//
// Passwords are sent as hex SHA-256 digests.
//
// # Expiry
//
// Store implements httputil.ExpiryHandler. A 401 from any call clears the secrets, the identity,
// the permission set, the view history and the installed routes, then calls the Reloader once.
//
// Tokens that are JWTs are also checked locally: HasToken treats a token past its exp claim as
// absent and resets it.
//
// # Related Packages
//
//   - pkg/secret: Token and session id persistence
//   - pkg/rbac: Permission set
//   - pkg/router: Calls GetInfo before installing dynamic routes
package session
