// Package cli implements the nxadmin console.
//
// # Overview
//
// App wires the configuration into the secret store, HTTP client, API clients, session store,
// permission store, route registry and route guard. Commands form a tree; each carries the
// permission requirement that both gates running it and hides it from usage:
//
//	nxadmin login -username admin -password secret -code 1234
//	nxadmin menu
//	nxadmin open /system/users
//	nxadmin users list -page 2
//	nxadmin users delete 7 8 9
//	nxadmin roles show -leaves 3
//	nxadmin system overview
//	nxadmin logout
//
// Commands that need a session load it through the guard on first use, which also installs
// the permitted dynamic routes. API errors are reported through logrus on stderr; a 401 signs
// the console out.
//
// # Related Packages
//
//   - pkg/config: Configuration
//   - pkg/session: Session lifecycle
//   - pkg/router: Route guard
//   - pkg/api: Admin API clients
package cli
