package session

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/api/apitest"
	"github.com/ozxin/nx-admin/pkg/httputil"
	"github.com/ozxin/nx-admin/pkg/observability"
	"github.com/ozxin/nx-admin/pkg/rbac"
	"github.com/ozxin/nx-admin/pkg/secret"
)

type countingResetter struct {
	resets atomic.Int32
}

func (c *countingResetter) Reset() { c.resets.Add(1) }

type fixture struct {
	server   *apitest.Server
	secrets  *secret.Secrets
	perms    *rbac.Store
	routes   *countingResetter
	reloads  *atomic.Int32
	store    *Store
	client   *httputil.Client
	metrics  *observability.ClientMetrics
	registry *prometheus.Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		server:   apitest.NewServer(t),
		secrets:  secret.New(secret.NewMemoryStore(), secret.NewKeys("test")),
		perms:    rbac.NewStore(rbac.DefaultRouteTable()),
		routes:   &countingResetter{},
		reloads:  &atomic.Int32{},
		registry: prometheus.NewRegistry(),
	}
	f.metrics = observability.NewClientMetrics(f.registry)
	f.client = httputil.NewClient(httputil.Options{
		BaseURL:  f.server.BaseURL(),
		Tokens:   f.secrets,
		Notifier: &httputil.RecordingNotifier{},
	})

	store, err := New(context.Background(), Options{
		Secrets:     f.secrets,
		Login:       api.New(f.client).Login,
		Permissions: f.perms,
		Routes:      f.routes,
		Reloader:    ReloaderFunc(func(context.Context) { f.reloads.Add(1) }),
		Metrics:     f.metrics,
	})
	require.NoError(t, err)
	f.client.SetExpiryHandler(store)
	f.store = store
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Login(context.Background(), LoginForm{
		Username: apitest.Username,
		Password: apitest.Password,
		Code:     apitest.Captcha,
	}))
}

func TestStore_Login(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	assert.Equal(t, StateAnonymous, f.store.State())

	f.login(t)

	token, err := f.secrets.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.server.Token(), token)
	assert.Equal(t, f.server.Token(), f.store.Token())
	assert.Equal(t, f.server.UUID(), f.store.UUID())
	assert.Equal(t, StateAuthenticating, f.store.State())
	assert.Equal(t, apitest.HashPassword(apitest.Password), f.server.LastBody()["password"])

	_, err = f.store.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, f.store.State())
	assert.Equal(t, `Bearer TK="`+f.server.Token()+`"`, f.server.LastAuthorization())

	assert.Equal(t, apitest.Username, f.store.Username())
	assert.Equal(t, "Administrator", f.store.Nickname())
	assert.True(t, f.store.IsSuperAdmin())
	assert.True(t, f.store.IsAnyAdmin())
	assert.False(t, f.store.IsOperator())
	assert.True(t, f.store.AllowAccess(rbac.One("admin.user")))
	assert.False(t, f.store.AllowAccess(rbac.One("admin.permission")))
	assert.True(t, f.perms.IsLoaded())

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("success")))
}

func TestStore_LoginFailure(t *testing.T) {
	f := setup(t)

	err := f.store.Login(context.Background(), LoginForm{Username: apitest.Username, Password: "wrong"})
	require.Error(t, err)

	assert.Equal(t, StateAnonymous, f.store.State())
	assert.False(t, f.secrets.HasToken(context.Background()))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues("failure")))
}

func TestStore_Logout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.login(t)
	_, err := f.store.GetInfo(ctx)
	require.NoError(t, err)
	f.store.Views().Visit(View{Name: "Users", Path: "/system/users"})

	require.NoError(t, f.store.Logout(ctx))

	assert.Equal(t, 1, f.server.Hits("POST /api/users/logout"))
	assert.Equal(t, StateAnonymous, f.store.State())
	assert.False(t, f.secrets.HasToken(ctx))
	assert.Nil(t, f.store.User())
	assert.False(t, f.perms.IsLoaded())
	assert.Empty(t, f.store.Views().Visited())
	assert.Empty(t, f.store.Views().Cached())
	assert.Equal(t, int32(1), f.routes.resets.Load())
	assert.Equal(t, int32(0), f.reloads.Load())
}

func TestStore_LogoutIgnoresServerFailure(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.server.ExpireSession()

	require.NoError(t, f.store.Logout(context.Background()))
	assert.Equal(t, StateAnonymous, f.store.State())
	assert.Equal(t, 1, f.server.Hits("POST /api/users/logout"))
	assert.Equal(t, int32(0), f.reloads.Load())
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.SessionExpiriesTotal))
	assert.Equal(t, int32(1), f.routes.resets.Load())
}

func TestStore_ExpireOn401(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.login(t)
	_, err := f.store.GetInfo(ctx)
	require.NoError(t, err)

	f.server.ExpireSession()
	_, err = api.New(f.client).Users.List(ctx, 1, 10)
	require.Error(t, err)

	assert.Equal(t, int32(1), f.reloads.Load())
	assert.Equal(t, StateAnonymous, f.store.State())
	assert.False(t, f.secrets.HasToken(ctx))
	assert.False(t, f.perms.IsLoaded())
	assert.Equal(t, int32(1), f.routes.resets.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SessionExpiriesTotal))
}

func TestStore_ResetToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.login(t)

	require.NoError(t, f.store.ResetToken(ctx))
	assert.False(t, f.secrets.HasToken(ctx))
	assert.False(t, f.perms.IsLoaded())
	assert.Equal(t, int32(1), f.routes.resets.Load())
	assert.Equal(t, StateAnonymous, f.store.State())
}

func TestNew_ReadsPersistedSecrets(t *testing.T) {
	ctx := context.Background()
	secrets := secret.New(secret.NewMemoryStore(), secret.NewKeys("test"))
	require.NoError(t, secrets.InitSecret(ctx, "u-1", "t-1"))

	store, err := New(ctx, Options{Secrets: secrets, Login: &api.LoginAPI{}, Permissions: rbac.NewStore(nil)})
	require.NoError(t, err)
	assert.Equal(t, "t-1", store.Token())
	assert.Equal(t, "u-1", store.UUID())
	assert.True(t, store.HasToken(ctx))
	assert.NoError(t, store.RequireToken(ctx))

	_, err = New(ctx, Options{Secrets: secrets})
	assert.Error(t, err)
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": exp.Unix()})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signed(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestStore_HasTokenExpiredJWT(t *testing.T) {
	ctx := context.Background()
	secrets := secret.New(secret.NewMemoryStore(), secret.NewKeys("test"))
	require.NoError(t, secrets.InitSecret(ctx, "u-1", signed(t, time.Now().Add(-time.Minute))))

	routes := &countingResetter{}
	store, err := New(ctx, Options{Secrets: secrets, Login: &api.LoginAPI{}, Permissions: rbac.NewStore(nil), Routes: routes})
	require.NoError(t, err)

	assert.False(t, store.HasToken(ctx))
	assert.False(t, secrets.HasToken(ctx))
	assert.Equal(t, int32(1), routes.resets.Load())
	assert.ErrorIs(t, store.RequireToken(ctx), ErrNotAuthenticated)
}

func TestStore_WatchSecrets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "session.yaml")
	secrets := secret.New(secret.NewFileStore(path), secret.NewKeys("test"))
	require.NoError(t, secrets.InitSecret(ctx, "u-1", "t-1"))

	routes := &countingResetter{}
	store, err := New(ctx, Options{Secrets: secrets, Login: &api.LoginAPI{}, Permissions: rbac.NewStore(nil), Routes: routes})
	require.NoError(t, err)
	require.NoError(t, store.WatchSecrets(ctx))

	other := secret.New(secret.NewFileStore(path), secret.NewKeys("test"))
	require.NoError(t, other.Clear(ctx))

	require.Eventually(t, func() bool { return store.Token() == "" }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return routes.resets.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStore_WatchSecretsUnsupported(t *testing.T) {
	f := setup(t)
	assert.ErrorIs(t, f.store.WatchSecrets(context.Background()), secret.ErrWatchUnsupported)
}

func TestViews(t *testing.T) {
	views := NewViews()
	views.Visit(View{Name: "Users", Path: "/system/users"})
	views.Visit(View{Name: "Users", Path: "/system/users"})
	views.Visit(View{Path: "/404"})

	assert.Len(t, views.Visited(), 2)
	assert.Equal(t, []string{"Users"}, views.Cached())

	views.DelAllVisited()
	assert.Empty(t, views.Visited())
	assert.Len(t, views.Cached(), 1)
	views.DelAllCached()
	assert.Empty(t, views.Cached())
}

func TestHashPassword(t *testing.T) {
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", HashPassword("secret"))
}
