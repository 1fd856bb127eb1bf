// Package rbac provides permission evaluation and route filtering for the admin console.
//
// # Overview
//
// A session is granted a flat set of permission strings by the server. Every route of the
// navigation table and every console command declares an auth requirement, and this package
// decides whether the session may see it. Membership is checked by exact string match only.
//
// # Permission Sets
//
// The server sends grants as a map; only keys mapped to true are members:
//
//	set := rbac.SetFromGrants(map[string]bool{"admin.user": true, "admin.role": false})
//	set.Has("admin.user") // true
//	set.Has("admin.role") // false
//
// # Requirements
//
// A requirement has one of these shapes:
//
//	None()            absent, null, false or ""     always admits
//	Authenticated()   true                          admits a non-empty set
//	One(p)            "admin.user"                  admits when p is granted
//	AnyOf(p...)       [a, b] or {some: [a, b]}      admits when any entry is granted
//	AllOf(p...)       {every: [a, b]}               admits when all entries are granted
//	Invalid()         anything else                 always denies
//
// Requirements decode from YAML and JSON. A malformed requirement never fails decoding; it
// becomes Invalid so that the route it guards stays hidden.
//
// An empty AnyOf list denies and an empty AllOf list admits.
//
// # Route Filtering
//
// FilterRoutes prunes a route tree. A denied node removes its whole subtree, siblings keep their
// order and the input tree is never modified:
//
//	visible := rbac.FilterRoutes(table.Async, set)
//
// Store.GenerateRoutes assembles the navigable set from a RouteTable:
//
//	DynamicRoutes = filter(Async) + Tail
//	Routes        = Constant + DynamicRoutes
//
// Setting filter_async: false in the table installs the async routes unfiltered.
//
// # Route Tables
//
// Route tables are YAML documents:
//
//	constant:
//	  - path: /login
//	    meta: {hidden: true}
//	async:
//	  - path: /system
//	    meta: {title: System, auth: true}
//	    children:
//	      - path: users
//	        meta: {title: Users, auth: admin.user}
//	      - path: monitor
//	        meta: {title: Monitor, auth: {every: [system.info, system.database]}}
//	tail:
//	  - path: /:pathMatch(.*)*
//	    redirect: /404
//
// # Element Visibility
//
// Visible filters any slice by a requirement accessor, and CheckPermission answers imperative
// checks:
//
//	commands = rbac.Visible(store, commands, func(c *Command) rbac.Requirement { return c.Auth })
//	ok, err := store.CheckPermission([]string{"admin.user"})
//
// # Related Packages
//
//   - pkg/session: Loads the permission set on login and resets it on logout
//   - pkg/router: Installs the generated dynamic routes
//   - pkg/cli: Hides commands the session may not run
package rbac
