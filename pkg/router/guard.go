package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
	"github.com/ozxin/nx-admin/pkg/session"
)

// Default navigation paths
const (
	DefaultLoginPath    = "/login"
	DefaultHomePath     = "/"
	DefaultNotFoundPath = "/404"
)

// ErrRedirectLoop is returned by Navigate when guard redirects do not settle
var ErrRedirectLoop = errors.New("navigation redirected too many times")

// Session is the part of the session store the guard needs
type Session interface {
	HasToken(ctx context.Context) bool
	GetInfo(ctx context.Context) (*api.LoginUserInfo, error)
	ResetToken(ctx context.Context) error
	Views() *session.Views
}

// Decision is the outcome of a guarded navigation
type Decision struct {
	// Allow lets the navigation proceed to Match
	Allow bool
	// Redirect names the path to navigate to instead
	Redirect string
	// Replace marks a redirect that must not leave a history entry
	Replace bool
	// Match is the resolved route of an allowed navigation, nil for whitelisted paths without a route
	Match *Match
}

// GuardOptions configure a Guard
type GuardOptions struct {
	Session     Session
	Permissions *rbac.Store
	Registry    *Registry
	// LoginPath, HomePath and NotFoundPath default to /login, / and /404
	LoginPath    string
	HomePath     string
	NotFoundPath string
	// Whitelist paths are reachable without a token. Defaults to the login path.
	Whitelist []string
	// OnError is called with the error that aborted a session load
	OnError func(ctx context.Context, err error)
	Logger  *observability.Logger
}

// Guard decides every navigation: it loads the session on first use,
// installs the permitted dynamic routes and sends anonymous users to login
type Guard struct {
	opts      GuardOptions
	whitelist map[string]struct{}
}

// NewGuard creates a guard
func NewGuard(opts GuardOptions) *Guard {
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.HomePath == "" {
		opts.HomePath = DefaultHomePath
	}
	if opts.NotFoundPath == "" {
		opts.NotFoundPath = DefaultNotFoundPath
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if len(opts.Whitelist) == 0 {
		opts.Whitelist = []string{opts.LoginPath}
	}

	whitelist := make(map[string]struct{}, len(opts.Whitelist))
	for _, p := range opts.Whitelist {
		whitelist[p] = struct{}{}
	}
	return &Guard{opts: opts, whitelist: whitelist}
}

// BeforeEach decides a navigation to path
func (g *Guard) BeforeEach(ctx context.Context, path string) Decision {
	logger := g.opts.Logger.WithField("path", path)

	if !g.opts.Session.HasToken(ctx) {
		if _, ok := g.whitelist[path]; ok {
			m, _ := g.opts.Registry.Resolve(path)
			return Decision{Allow: true, Match: m}
		}
		logger.Debug("no token, redirecting to login")
		return Decision{Redirect: g.opts.LoginPath}
	}

	if path == g.opts.LoginPath {
		return Decision{Redirect: g.opts.HomePath}
	}

	if !g.opts.Permissions.IsLoaded() {
		if _, err := g.opts.Session.GetInfo(ctx); err != nil {
			logger.WithError(err).Warn("failed to load session")
			if resetErr := g.opts.Session.ResetToken(ctx); resetErr != nil {
				logger.WithError(resetErr).Warn("failed to reset token")
			}
			if g.opts.OnError != nil {
				g.opts.OnError(ctx, err)
			}
			return Decision{Redirect: g.opts.LoginPath}
		}

		info := g.opts.Permissions.GenerateRoutes()
		g.opts.Registry.AddRoutes(info.DynamicRoutes)
		return Decision{Redirect: path, Replace: true}
	}

	m, err := g.opts.Registry.Resolve(path)
	if err != nil {
		logger.WithError(err).Debug("no route")
		if path == g.opts.NotFoundPath {
			return Decision{Allow: true}
		}
		return Decision{Redirect: g.opts.NotFoundPath}
	}

	g.opts.Session.Views().Visit(session.View{
		Name:  m.Route.Name,
		Path:  m.Path,
		Title: m.Route.Meta.Title,
	})
	return Decision{Allow: true, Match: m}
}

// Navigate runs the guard and follows its redirects until a navigation is allowed
func (g *Guard) Navigate(ctx context.Context, path string) (Decision, error) {
	current := path
	for i := 0; i < maxRedirects; i++ {
		d := g.BeforeEach(ctx, current)
		if d.Allow {
			return d, nil
		}
		current = d.Redirect
	}
	return Decision{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
}
