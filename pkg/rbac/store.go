package rbac

import (
	"errors"
	"sync"
)

// ErrEmptyRequirement is returned by CheckPermission when no permission is named
var ErrEmptyRequirement = errors.New("need permission list, e.g. [\"admin.user\",\"admin.role\"]")

// RouteInfo is the result of route generation
type RouteInfo struct {
	// Routes is the full navigable set: constant routes followed by DynamicRoutes
	Routes []Route
	// DynamicRoutes are the routes to install after login
	DynamicRoutes []Route
}

// Store holds the permission set of the current session and filters the route table by it.
// It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	table  *RouteTable
	perms  Set
	loaded bool
}

// NewStore creates a store over table. A nil table is treated as empty.
func NewStore(table *RouteTable) *Store {
	if table == nil {
		table = &RouteTable{}
	}
	return &Store{table: table, perms: NewSet()}
}

// Table returns the route table
func (s *Store) Table() *RouteTable {
	return s.table
}

// SetPermissions replaces the permission set with the true entries of grants
func (s *Store) SetPermissions(grants map[string]bool) {
	set := SetFromGrants(grants)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms = set
	s.loaded = true
}

// Reset empties the permission set
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms = NewSet()
	s.loaded = false
}

// IsLoaded reports whether permissions were set since the last reset
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Permissions returns the current permission set
func (s *Store) Permissions() Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.perms
}

// AllowAccess evaluates req against the current permission set
func (s *Store) AllowAccess(req Requirement) bool {
	return Allow(s.Permissions(), req)
}

// CheckPermission reports whether any of perms is granted. An empty list is an error.
func (s *Store) CheckPermission(perms []string) (bool, error) {
	if len(perms) == 0 {
		return false, ErrEmptyRequirement
	}
	return s.AllowAccess(AnyOf(perms...)), nil
}

// GenerateRoutes filters the async routes and assembles the navigable route set
func (s *Store) GenerateRoutes() RouteInfo {
	perms := s.Permissions()

	var accessed []Route
	if s.table.FilterAsyncEnabled() {
		accessed = FilterRoutes(s.table.Async, perms)
	} else {
		accessed = cloneRoutes(s.table.Async)
	}

	dynamic := make([]Route, 0, len(accessed)+len(s.table.Tail))
	dynamic = append(dynamic, accessed...)
	dynamic = append(dynamic, cloneRoutes(s.table.Tail)...)

	routes := make([]Route, 0, len(s.table.Constant)+len(dynamic))
	routes = append(routes, cloneRoutes(s.table.Constant)...)
	routes = append(routes, dynamic...)

	return RouteInfo{Routes: routes, DynamicRoutes: dynamic}
}
