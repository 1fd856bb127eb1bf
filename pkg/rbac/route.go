package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Meta carries the navigation attributes of a route
type Meta struct {
	Title      string      `yaml:"title,omitempty" json:"title,omitempty"`
	Icon       string      `yaml:"icon,omitempty" json:"icon,omitempty"`
	Hidden     bool        `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	AlwaysShow bool        `yaml:"alwaysShow,omitempty" json:"alwaysShow,omitempty"`
	Auth       Requirement `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Route is a node of the navigation tree
type Route struct {
	Name     string  `yaml:"name,omitempty" json:"name,omitempty"`
	Path     string  `yaml:"path" json:"path"`
	Redirect string  `yaml:"redirect,omitempty" json:"redirect,omitempty"`
	Meta     Meta    `yaml:"meta,omitempty" json:"meta,omitempty"`
	Children []Route `yaml:"children,omitempty" json:"children,omitempty"`
}

// Clone returns a deep copy of the route
func (r Route) Clone() Route {
	out := r
	if r.Children != nil {
		out.Children = make([]Route, len(r.Children))
		for i, child := range r.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// FilterRoutes returns a pruned copy of routes holding only the nodes admitted by set.
// A denied node drops its whole subtree. Sibling order is kept and routes is not modified.
func FilterRoutes(routes []Route, set Set) []Route {
	if routes == nil {
		return nil
	}
	filtered := make([]Route, 0, len(routes))
	for _, route := range routes {
		if !Allow(set, route.Meta.Auth) {
			continue
		}
		out := route
		if route.Children != nil {
			out.Children = FilterRoutes(route.Children, set)
		}
		filtered = append(filtered, out)
	}
	return filtered
}

func cloneRoutes(routes []Route) []Route {
	if routes == nil {
		return nil
	}
	out := make([]Route, len(routes))
	for i, r := range routes {
		out[i] = r.Clone()
	}
	return out
}

// RouteTable is the static navigation table of the console
type RouteTable struct {
	// Constant routes are always installed and never filtered
	Constant []Route `yaml:"constant"`
	// Async routes are filtered by the session permission set
	Async []Route `yaml:"async"`
	// Tail routes are appended after the async routes, usually the catch-all
	Tail []Route `yaml:"tail"`
	// FilterAsync turns async filtering off when false. Defaults to true.
	FilterAsync *bool `yaml:"filter_async,omitempty"`
}

// FilterAsyncEnabled reports whether async routes are filtered
func (t *RouteTable) FilterAsyncEnabled() bool {
	return t.FilterAsync == nil || *t.FilterAsync
}

// ParseRouteTable decodes a YAML route table
func ParseRouteTable(data []byte) (*RouteTable, error) {
	var table RouteTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// LoadRouteTable reads and decodes a YAML route table file
func LoadRouteTable(path string) (*RouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	return ParseRouteTable(data)
}

// Validate checks that every route has a path
func (t *RouteTable) Validate() error {
	for _, group := range [][]Route{t.Constant, t.Async, t.Tail} {
		if err := validateRoutes(group, ""); err != nil {
			return err
		}
	}
	return nil
}

func validateRoutes(routes []Route, parent string) error {
	for _, r := range routes {
		if r.Path == "" {
			return fmt.Errorf("route %q under %q has no path", r.Name, parent)
		}
		if err := validateRoutes(r.Children, r.Path); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRouteTable is the built-in navigation table of the admin console
func DefaultRouteTable() *RouteTable {
	return &RouteTable{
		Constant: []Route{
			{Path: "/redirect", Meta: Meta{Hidden: true}, Children: []Route{
				{Path: ":path(.*)"},
			}},
			{Path: "/403", Meta: Meta{Hidden: true}},
			{Path: "/404", Meta: Meta{Hidden: true}},
			{Path: "/login", Meta: Meta{Hidden: true}},
			{Path: "/", Redirect: "/dashboard", Children: []Route{
				{Path: "dashboard", Name: "Dashboard", Meta: Meta{Title: "Dashboard", Icon: "dashboard"}},
			}},
		},
		Async: []Route{
			{Path: "/system", Name: "System", Redirect: "/system/users", Meta: Meta{
				Title: "System", Icon: "lock", AlwaysShow: true, Auth: Authenticated(),
			}, Children: []Route{
				{Path: "users", Name: "Users", Meta: Meta{Title: "Users", Auth: One("admin.user")}},
				{Path: "roles", Name: "Roles", Meta: Meta{Title: "Roles", Auth: One("admin.role")}},
				{Path: "permissions", Name: "Permissions", Meta: Meta{Title: "Permissions", Auth: One("admin.permission")}},
				{Path: "config", Name: "SystemConfig", Meta: Meta{Title: "Config", Auth: AnyOf("system.config", "system.cache")}},
				{Path: "monitor", Name: "Monitor", Meta: Meta{Title: "Monitor", Auth: AnyOf("system.info", "system.database")}},
			}},
		},
		Tail: []Route{
			{Path: "/:pathMatch(.*)*", Redirect: "/404", Name: "ErrorPage", Meta: Meta{Hidden: true}},
		},
	}
}
