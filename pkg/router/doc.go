// Package router installs navigation routes and guards navigation.
//
// # Overview
//
// A Registry matches paths against installed routes using gorilla/mux. Navigation paths use
// the :param and :param(regex) syntax of the route table and are converted to mux templates:
//
//	/users/:id          /users/{id}
//	/:pathMatch(.*)*    /{pathMatch:.*}
//
// Child paths are joined to their parent unless absolute. Constant routes are installed at
// construction; dynamic routes are added after the session loads and removed by Reset.
//
// A Guard decides each navigation:
//
//   - with a token, /login redirects home
//   - with a token and no permission set, the session is loaded, the permitted dynamic routes
//     are installed and the same path is retried as a replace redirect
//   - with a token and a loaded permission set, the path resolves or redirects to /404
//   - without a token, whitelisted paths are allowed and the rest redirect to /login
//
// A failed session load resets the token and redirects to /login.
//
// # Related Packages
//
//   - pkg/rbac: Route table and filtering
//   - pkg/session: Session loading and view history
package router
