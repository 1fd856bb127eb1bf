package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ozxin/nx-admin/pkg/admin"
	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/config"
	"github.com/ozxin/nx-admin/pkg/httputil"
	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
	"github.com/ozxin/nx-admin/pkg/router"
	"github.com/ozxin/nx-admin/pkg/secret"
	"github.com/ozxin/nx-admin/pkg/session"
)

// Version is reported in exported traces; set with -ldflags "-X github.com/ozxin/nx-admin/pkg/cli.Version=..."
var Version = "dev"

// ErrForbidden is returned when the session lacks the permission a command requires
var ErrForbidden = errors.New("permission denied")

// Options configure an App
type Options struct {
	Out io.Writer
	Err io.Writer
	// Log receives user-facing notifications. Defaults to a text logger on Err.
	Log *logrus.Logger
	// Store overrides the secret store selected by the configuration
	Store      secret.Store
	HTTPClient *http.Client
}

// App wires the console components together
type App struct {
	Config *config.Config
	Out    io.Writer
	Err    io.Writer
	Log    *logrus.Logger
	Logger *observability.Logger

	Registry *prometheus.Registry
	Metrics  *observability.ClientMetrics

	Secrets     *secret.Secrets
	HTTP        *httputil.Client
	API         *api.Client
	Permissions *rbac.Store
	Routes      *router.Registry
	Session     *session.Store
	Guard       *router.Guard

	Roles    *admin.RoleOptions
	Tree     *admin.PermissionTree
	Settings *admin.SystemSettings

	closers []func() error
}

// NewApp builds the console from cfg
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Log == nil {
		opts.Log = NewLogrus(opts.Err, cfg.Observability.LogLevel)
	}

	a := &App{
		Config: cfg,
		Out:    opts.Out,
		Err:    opts.Err,
		Log:    opts.Log,
		Logger: observability.NewLogger(cfg.Observability.Level(), opts.Err),
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.TracingEnabled,
		Endpoint:       cfg.Observability.OTLPEndpoint,
		ServiceName:    "nxadmin",
		ServiceVersion: Version,
		Insecure:       cfg.Observability.OTLPInsecure,
	}, a.Logger)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return observability.ShutdownTracing(ctx, tp, a.Logger)
		})
	}

	if cfg.Observability.MetricsEnabled {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = observability.NewClientMetrics(a.Registry)
	}

	store := opts.Store
	if store == nil {
		if store, err = a.openStore(); err != nil {
			return nil, err
		}
	}
	a.Secrets = secret.New(store, secret.NewKeys(cfg.Session.SystemName))

	table, err := loadRouteTable(cfg.Routes)
	if err != nil {
		return nil, err
	}
	a.Permissions = rbac.NewStore(table)
	a.Routes = router.NewRegistry(table.Constant, a.Logger.Component("router"), a.Metrics)

	a.HTTP = httputil.NewClient(httputil.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		HTTPClient: opts.HTTPClient,
		Tokens:     a.Secrets,
		Logger:     a.Logger.Component("http"),
		Metrics:    a.Metrics,
		Notifier:   LogrusNotifier{Log: a.Log},
		Tracing:    cfg.Observability.TracingEnabled,
	})
	a.API = api.New(a.HTTP)

	a.Session, err = session.New(ctx, session.Options{
		Secrets:     a.Secrets,
		Login:       a.API.Login,
		Permissions: a.Permissions,
		Routes:      a.Routes,
		Reloader:    session.ReloaderFunc(a.reload),
		Logger:      a.Logger.Component("session"),
		Metrics:     a.Metrics,
	})
	if err != nil {
		return nil, err
	}
	a.HTTP.SetExpiryHandler(a.Session)

	a.Guard = router.NewGuard(router.GuardOptions{
		Session:     a.Session,
		Permissions: a.Permissions,
		Registry:    a.Routes,
		LoginPath:   cfg.Routes.LoginPath,
		Whitelist:   cfg.Routes.Whitelist,
		OnError: func(_ context.Context, err error) {
			a.Log.WithError(err).Warn("navigation aborted, signed out")
		},
		Logger: a.Logger.Component("guard"),
	})

	a.Roles = admin.NewRoleOptions(a.API.Roles, 0)
	a.Tree = admin.NewPermissionTree(a.API.Permissions)
	a.Settings = admin.NewSystemSettings(a.API.System)
	return a, nil
}

func (a *App) openStore() (secret.Store, error) {
	s := a.Config.Session
	switch s.Store {
	case config.StoreMemory:
		return secret.NewMemoryStore(), nil
	case config.StoreFile:
		return secret.NewFileStore(s.File), nil
	case config.StoreRedis:
		store, err := secret.NewRedisStoreFromURL(s.RedisURL, s.RedisPassword, s.RedisDB, "nxadmin:", s.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("invalid session store: %s", s.Store)
	}
}

func loadRouteTable(cfg config.RoutesConfig) (*rbac.RouteTable, error) {
	table := rbac.DefaultRouteTable()
	if cfg.Table != "" {
		var err error
		if table, err = rbac.LoadRouteTable(cfg.Table); err != nil {
			return nil, err
		}
	}
	if cfg.Filter != nil {
		filter := *cfg.Filter
		table.FilterAsync = &filter
	}
	return table, nil
}

// reload runs after a 401 cleared the session
func (a *App) reload(context.Context) {
	a.Log.Warn("session expired, run `nxadmin login` to sign in again")
}

// ensureSession loads the identity and permission set of a persisted session
func (a *App) ensureSession(ctx context.Context) error {
	if err := a.Session.RequireToken(ctx); err != nil {
		return fmt.Errorf("%w: run `nxadmin login` first", err)
	}
	if a.Permissions.IsLoaded() {
		return nil
	}
	if _, err := a.Guard.Navigate(ctx, router.DefaultHomePath); err != nil {
		return err
	}
	if !a.Permissions.IsLoaded() {
		return fmt.Errorf("%w: session could not be loaded, run `nxadmin login`", session.ErrNotAuthenticated)
	}
	return nil
}

func (a *App) authorize(ctx context.Context, req rbac.Requirement) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	if !a.Session.AllowAccess(req) {
		return fmt.Errorf("%w: requires %s", ErrForbidden, req)
	}
	return nil
}

// Close writes the metrics textfile when configured and releases the secret store
func (a *App) Close() error {
	var errs []error
	if path := a.Config.Observability.MetricsFile; path != "" && a.Registry != nil {
		if err := observability.WriteTextfile(path, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
