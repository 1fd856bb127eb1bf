package router

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
)

// maxRedirects bounds redirect chains followed by Resolve
const maxRedirects = 10

// Match is a route matched against a navigation path
type Match struct {
	// Route is the matched node without its children
	Route rbac.Route
	// Template is the full route path, e.g. /system/users
	Template string
	// Path is the navigated path
	Path string
	Vars map[string]string
}

type entry struct {
	template string
	route    rbac.Route
}

// Registry holds the installed navigation routes.
// Constant routes are installed once; dynamic routes are added after login and removed by Reset.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	constant []entry
	dynamic  []entry
	router   *mux.Router
	entries  map[*mux.Route]entry
	logger   *observability.Logger
	metrics  *observability.ClientMetrics
}

// NewRegistry creates a registry with the constant routes installed
func NewRegistry(constant []rbac.Route, logger *observability.Logger, metrics *observability.ClientMetrics) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}
	r := &Registry{logger: logger, metrics: metrics}
	r.constant = flatten(constant, "")
	r.rebuild()
	return r
}

// AddRoutes installs routes and their children in place of any dynamic routes already installed
func (r *Registry) AddRoutes(routes []rbac.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dynamic = flatten(routes, "")
	r.rebuild()
	r.metrics.ObserveRouteInstall(len(r.dynamic))
	r.logger.WithField("routes", len(r.dynamic)).Debug("dynamic routes installed")
}

// Reset removes every dynamic route
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dynamic) == 0 {
		return
	}
	r.dynamic = nil
	r.rebuild()
	r.metrics.ObserveRouteInstall(-1)
	r.logger.Debug("dynamic routes removed")
}

// Installed reports whether dynamic routes are installed
func (r *Registry) Installed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dynamic) > 0
}

// Paths returns the full paths of all installed routes in match order
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.constant)+len(r.dynamic))
	for _, e := range r.constant {
		paths = append(paths, e.template)
	}
	for _, e := range r.dynamic {
		paths = append(paths, e.template)
	}
	return paths
}

// Match returns the first installed route matching p
func (r *Registry) Match(p string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: p}}
	var rm mux.RouteMatch
	if !r.router.Match(req, &rm) || rm.Route == nil {
		return nil, false
	}
	e, ok := r.entries[rm.Route]
	if !ok {
		return nil, false
	}
	return &Match{Route: e.route, Template: e.template, Path: p, Vars: rm.Vars}, true
}

// Resolve matches p and follows route redirects
func (r *Registry) Resolve(p string) (*Match, error) {
	current := p
	for i := 0; i < maxRedirects; i++ {
		m, ok := r.Match(current)
		if !ok {
			return nil, fmt.Errorf("no route matches %q", current)
		}
		if m.Route.Redirect == "" {
			return m, nil
		}
		current = m.Route.Redirect
	}
	return nil, fmt.Errorf("too many redirects resolving %q", p)
}

// rebuild must be called with mu held
func (r *Registry) rebuild() {
	router := mux.NewRouter()
	entries := make(map[*mux.Route]entry, len(r.constant)+len(r.dynamic))

	for _, group := range [][]entry{r.constant, r.dynamic} {
		for _, e := range group {
			route := router.Path(MuxTemplate(e.template))
			if err := route.GetError(); err != nil {
				r.logger.WithField("path", e.template).WithError(err).Warn("skipping route")
				continue
			}
			entries[route] = e
		}
	}

	r.router = router
	r.entries = entries
}

func flatten(routes []rbac.Route, parent string) []entry {
	var out []entry
	for _, route := range routes {
		full := JoinPath(parent, route.Path)
		node := route
		node.Children = nil
		out = append(out, entry{template: full, route: node})
		out = append(out, flatten(route.Children, full)...)
	}
	return out
}

// JoinPath resolves a child route path against its parent. Absolute child paths are kept.
func JoinPath(parent, child string) string {
	switch {
	case strings.HasPrefix(child, "/"):
		return child
	case child == "":
		if parent == "" {
			return "/"
		}
		return parent
	case parent == "":
		return "/" + child
	default:
		return path.Join(parent, child)
	}
}

// MuxTemplate converts a navigation path such as /users/:id(\d+) into a mux template
// such as /users/{id:\d+}. Repeat and optional modifiers are dropped.
func MuxTemplate(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		segments[i] = muxParam(seg[1:])
	}
	return strings.Join(segments, "/")
}

func muxParam(seg string) string {
	end := 0
	for end < len(seg) && isNameChar(seg[end]) {
		end++
	}
	name, rest := seg[:end], seg[end:]

	pattern := ""
	if strings.HasPrefix(rest, "(") {
		depth := 0
		for i := 0; i < len(rest); i++ {
			switch rest[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				pattern = rest[1:i]
				break
			}
		}
	}

	if pattern == "" {
		return "{" + name + "}"
	}
	return "{" + name + ":" + pattern + "}"
}

func isNameChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
