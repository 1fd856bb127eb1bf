package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/contextkeys"
	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
	"github.com/ozxin/nx-admin/pkg/secret"
)

// ErrNotAuthenticated is returned when an operation needs a session token
var ErrNotAuthenticated = errors.New("not authenticated")

// State is the lifecycle state of a session
type State int

const (
	// StateAnonymous has no token
	StateAnonymous State = iota
	// StateAuthenticating has a login in flight or a token whose identity is not loaded yet
	StateAuthenticating
	// StateAuthenticated has a token, an identity and a permission set
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// LoginClient is the part of the API the session needs
type LoginClient interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResult, error)
	UserInfo(ctx context.Context) (*api.LoginUserInfo, error)
	Logout(ctx context.Context) error
}

// RouteResetter removes the installed dynamic routes
type RouteResetter interface {
	Reset()
}

// Reloader restarts the console after a forced expiry so no stale state survives
type Reloader interface {
	Reload(ctx context.Context)
}

// ReloaderFunc adapts a function to Reloader
type ReloaderFunc func(ctx context.Context)

// Reload implements Reloader
func (f ReloaderFunc) Reload(ctx context.Context) { f(ctx) }

// LoginForm is the credentials typed by the user
type LoginForm struct {
	Username string
	Password string
	Code     string
}

// Options configure a Store
type Options struct {
	Secrets     *secret.Secrets
	Login       LoginClient
	Permissions *rbac.Store
	// Views is optional; a fresh history is used when nil
	Views *Views
	// Routes and Reloader are optional
	Routes   RouteResetter
	Reloader Reloader
	Logger   *observability.Logger
	Metrics  *observability.ClientMetrics
}

// Store holds the session identity and orchestrates login, logout and expiry.
// It is safe for concurrent use.
type Store struct {
	opts Options

	mu             sync.RWMutex
	token          string
	uuid           string
	user           *api.UserInfo
	authenticating bool
}

// New creates a store and reads the persisted token and session id
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Secrets == nil || opts.Login == nil || opts.Permissions == nil {
		return nil, errors.New("session: secrets, login client and permission store are required")
	}
	if opts.Views == nil {
		opts.Views = NewViews()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}

	token, err := opts.Secrets.Token(ctx)
	if err != nil {
		return nil, err
	}
	uuid, err := opts.Secrets.UUID(ctx)
	if err != nil {
		return nil, err
	}

	return &Store{opts: opts, token: token, uuid: uuid}, nil
}

// HashPassword returns the hex SHA-256 digest sent in place of the password
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login signs in and persists the issued session id and token.
// On failure the store stays anonymous and the error is returned.
func (s *Store) Login(ctx context.Context, form LoginForm) error {
	s.mu.Lock()
	s.authenticating = true
	s.mu.Unlock()

	result, err := s.opts.Login.Login(ctx, api.LoginRequest{
		Username: form.Username,
		Password: HashPassword(form.Password),
		Code:     form.Code,
		Token:    nil,
		Lasting:  true,
	})
	s.opts.Metrics.ObserveLogin(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticating = false

	if err != nil {
		s.opts.Logger.WithField("username", form.Username).WithError(err).Warn("login failed")
		return err
	}

	if err := s.opts.Secrets.InitSecret(ctx, result.UUID, result.Token); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.token = result.Token
	s.uuid = result.UUID
	s.opts.Logger.WithField("username", form.Username).Info("logged in")
	return nil
}

// GetInfo loads the identity and permission set of the session
func (s *Store) GetInfo(ctx context.Context) (*api.LoginUserInfo, error) {
	info, err := s.opts.Login.UserInfo(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	user := info.User
	s.user = &user
	s.mu.Unlock()

	s.opts.Permissions.SetPermissions(info.Permission)
	return info, nil
}

// Logout ends the session on the server, ignoring failures, then clears all local state
func (s *Store) Logout(ctx context.Context) error {
	if s.Token() != "" {
		// Local state is cleared below, so a 401 here is not a session expiry
		quiet := contextkeys.WithSkipExpiry(contextkeys.WithSilentNotify(ctx))
		if err := s.opts.Login.Logout(quiet); err != nil {
			s.opts.Logger.WithError(err).Debug("server logout failed")
		}
	}
	return s.logout(ctx)
}

// ResetToken clears the persisted secrets, the in-memory session and the installed routes.
// View history is kept.
func (s *Store) ResetToken(ctx context.Context) error {
	err := s.opts.Secrets.Clear(ctx)
	s.clearState()
	return err
}

// Expire handles a 401: local logout followed by a single reload
func (s *Store) Expire(ctx context.Context) {
	s.opts.Metrics.ObserveExpiry()
	if err := s.logout(ctx); err != nil {
		s.opts.Logger.WithError(err).Warn("failed to clear expired session")
	}
	s.opts.Logger.Info("session expired")
	if s.opts.Reloader != nil {
		s.opts.Reloader.Reload(ctx)
	}
}

func (s *Store) logout(ctx context.Context) error {
	err := s.opts.Secrets.Clear(ctx)
	s.clearState()
	s.opts.Views.DelAllVisited()
	s.opts.Views.DelAllCached()
	return err
}

func (s *Store) clearState() {
	s.mu.Lock()
	s.token = ""
	s.uuid = ""
	s.user = nil
	s.mu.Unlock()
	s.opts.Permissions.Reset()
	// Routes follow the permission set; the next GetInfo installs them again.
	if s.opts.Routes != nil {
		s.opts.Routes.Reset()
	}
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.authenticating:
		return StateAuthenticating
	case s.token == "":
		return StateAnonymous
	case s.user == nil:
		return StateAuthenticating
	default:
		return StateAuthenticated
	}
}

// Token returns the in-memory token
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UUID returns the in-memory session id
func (s *Store) UUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uuid
}

// Views returns the view history
func (s *Store) Views() *Views {
	return s.opts.Views
}

// User returns a copy of the loaded identity, or nil
func (s *Store) User() *api.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// Username returns the login name, or "" before GetInfo
func (s *Store) Username() string {
	if u := s.User(); u != nil {
		return u.Username
	}
	return ""
}

// Nickname returns the display name, or "" before GetInfo
func (s *Store) Nickname() string {
	if u := s.User(); u != nil {
		return u.Nickname
	}
	return ""
}

func (s *Store) genreIs(t api.UserType) bool {
	u := s.User()
	return u != nil && u.Genre == t
}

// IsSuperAdmin reports a super administrator
func (s *Store) IsSuperAdmin() bool { return s.genreIs(api.UserTypeSuperAdmin) }

// IsUserAdmin reports a user administrator
func (s *Store) IsUserAdmin() bool { return s.genreIs(api.UserTypeUserAdmin) }

// IsAnyAdmin reports either kind of administrator
func (s *Store) IsAnyAdmin() bool { return s.IsSuperAdmin() || s.IsUserAdmin() }

// IsOperator reports an operator account
func (s *Store) IsOperator() bool { return s.genreIs(api.UserTypeOperator) }

// AllowAccess evaluates req against the session permission set
func (s *Store) AllowAccess(req rbac.Requirement) bool {
	return s.opts.Permissions.AllowAccess(req)
}

// RequireToken returns ErrNotAuthenticated when no usable token is persisted
func (s *Store) RequireToken(ctx context.Context) error {
	if !s.HasToken(ctx) {
		return ErrNotAuthenticated
	}
	return nil
}
