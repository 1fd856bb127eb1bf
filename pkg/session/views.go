package session

import "sync"

// View is a visited navigation entry
type View struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// Views tracks visited views and the names of cached views
type Views struct {
	mu      sync.Mutex
	visited []View
	cached  []string
}

// NewViews creates an empty history
func NewViews() *Views {
	return &Views{}
}

// Visit records v once per path and caches its name
func (v *Views) Visit(view View) {
	v.mu.Lock()
	defer v.mu.Unlock()

	seen := false
	for _, existing := range v.visited {
		if existing.Path == view.Path {
			seen = true
			break
		}
	}
	if !seen {
		v.visited = append(v.visited, view)
	}

	if view.Name == "" {
		return
	}
	for _, name := range v.cached {
		if name == view.Name {
			return
		}
	}
	v.cached = append(v.cached, view.Name)
}

// Visited returns the visited views in order
func (v *Views) Visited() []View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]View(nil), v.visited...)
}

// Cached returns the cached view names in order
func (v *Views) Cached() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.cached...)
}

// DelAllVisited clears the visited views
func (v *Views) DelAllVisited() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visited = nil
}

// DelAllCached clears the cached view names
func (v *Views) DelAllCached() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cached = nil
}
