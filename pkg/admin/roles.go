package admin

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/ozxin/nx-admin/pkg/api"
)

// DefaultRoleOptionsTTL is how long a loaded role option list is reused
const DefaultRoleOptionsTTL = 300 * time.Millisecond

const roleSelectKey = "roles/select"

// RoleSelector lists the role picker options
type RoleSelector interface {
	Select(ctx context.Context) ([]api.RoleOption, error)
}

// RoleOptions loads the role picker options.
// Concurrent loads share one request and a loaded list is reused until its TTL passes.
type RoleOptions struct {
	roles   RoleSelector
	group   singleflight.Group
	cache   *lru.LRU[string, []api.RoleOption]
	loading atomic.Int32

	mu      sync.RWMutex
	options []api.RoleOption
}

// NewRoleOptions creates a loader. A non-positive ttl uses DefaultRoleOptionsTTL.
func NewRoleOptions(roles RoleSelector, ttl time.Duration) *RoleOptions {
	if ttl <= 0 {
		ttl = DefaultRoleOptionsTTL
	}
	return &RoleOptions{
		roles: roles,
		cache: lru.NewLRU[string, []api.RoleOption](1, nil, ttl),
	}
}

// Load returns a copy of the role options, requesting them when the cached list expired
func (r *RoleOptions) Load(ctx context.Context) ([]api.RoleOption, error) {
	if options, ok := r.cache.Get(roleSelectKey); ok {
		return cloneOptions(options), nil
	}

	v, err, _ := r.group.Do(roleSelectKey, func() (interface{}, error) {
		r.loading.Add(1)
		defer r.loading.Add(-1)

		options, err := r.roles.Select(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.Add(roleSelectKey, options)

		r.mu.Lock()
		r.options = options
		r.mu.Unlock()
		return options, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneOptions(v.([]api.RoleOption)), nil
}

// Options returns the last loaded options
func (r *RoleOptions) Options() []api.RoleOption {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneOptions(r.options)
}

func cloneOptions(options []api.RoleOption) []api.RoleOption {
	return append([]api.RoleOption(nil), options...)
}

// Loading reports whether a load is in flight
func (r *RoleOptions) Loading() bool {
	return r.loading.Load() > 0
}

// Invalidate drops the cached list so the next Load requests it again
func (r *RoleOptions) Invalidate() {
	r.cache.Purge()
}

// Label returns the label of the role with the given id
func (r *RoleOptions) Label(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.options {
		if o.Value == id {
			return o.Label, true
		}
	}
	return "", false
}
