package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozxin/nx-admin/pkg/api/apitest"
	"github.com/ozxin/nx-admin/pkg/config"
	"github.com/ozxin/nx-admin/pkg/secret"
	"github.com/ozxin/nx-admin/pkg/session"
)

type testApp struct {
	*App
	server *apitest.Server
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	server := apitest.NewServer(t)

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.BaseURL()
	cfg.Session.Store = config.StoreMemory
	cfg.Observability.MetricsEnabled = true
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, cfg.Validate())

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	app, err := NewApp(context.Background(), cfg, Options{Out: out, Err: errOut})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &testApp{App: app, server: server, out: out, errOut: errOut}
}

func (a *testApp) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a.out.Reset()
	err := a.Execute(context.Background(), args)
	return a.out.String(), err
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	_, err := a.run(t, "login", "-username", apitest.Username, "-password", apitest.Password, "-code", apitest.Captcha)
	require.NoError(t, err)
}

func TestNewRootCommand(t *testing.T) {
	app := newTestApp(t)
	root := NewRootCommand(app.App)

	assert.Equal(t, "nxadmin", root.Name)
	expected := []string{
		"login", "captcha", "logout", "whoami", "status", "menu", "open",
		"users", "roles", "permissions", "system",
	}
	for _, name := range expected {
		assert.Contains(t, root.Subcommands, name)
	}
	assert.Len(t, root.Subcommands, len(expected))
}

func TestUsage_HidesProtectedCommands(t *testing.T) {
	app := newTestApp(t)

	out, err := app.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: nxadmin <command> [args]")
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "open <path>")
	assert.NotContains(t, out, "users")
	assert.NotContains(t, out, "system")

	app.login(t)
	out, err = app.run(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "roles")
	assert.NotContains(t, out, "permissions")
	assert.NotContains(t, out, "system")

	out, err = app.run(t, "users")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: nxadmin users <command> [args]")
	assert.Contains(t, out, "reset-password <id>")
}

func TestLoginAndWhoami(t *testing.T) {
	app := newTestApp(t)

	out, err := app.run(t, "login", "-username", apitest.Username, "-password", apitest.Password, "-code", apitest.Captcha)
	require.NoError(t, err)
	assert.Equal(t, "Logged in as Administrator (admin)\n", out)
	assert.True(t, app.Routes.Installed())

	out, err = app.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Super administrator")
	assert.Contains(t, out, "admin.role,admin.user")

	out, err = app.run(t, "status")
	require.NoError(t, err)
	assert.Equal(t, "state: authenticated\n", out)
}

func TestLogin_Failure(t *testing.T) {
	app := newTestApp(t)

	_, err := app.run(t, "login", "-username", apitest.Username, "-password", "wrong", "-code", apitest.Captcha)
	assert.ErrorContains(t, err, "login failed")
	assert.Contains(t, app.errOut.String(), "invalid username or password")

	_, err = app.run(t, "login", "-username", apitest.Username)
	assert.ErrorContains(t, err, "username and password are required")
}

func TestCommandsRequireSession(t *testing.T) {
	app := newTestApp(t)

	_, err := app.run(t, "whoami")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = app.run(t, "users", "list")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestMenu(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	out, err := app.run(t, "menu")
	require.NoError(t, err)
	assert.Equal(t, "Dashboard  /dashboard\nSystem  /system\n  Users  /system/users\n  Roles  /system/roles\n", out)
}

func TestOpen(t *testing.T) {
	app := newTestApp(t)

	out, err := app.run(t, "open", "/system/users")
	require.NoError(t, err)
	assert.Equal(t, "/system/users -> /login \n", out)

	app.login(t)
	out, err = app.run(t, "open", "/system/users")
	require.NoError(t, err)
	assert.Equal(t, "/system/users -> /system/users Users\n", out)

	out, err = app.run(t, "open", "/system/permissions")
	require.NoError(t, err)
	assert.Equal(t, "/system/permissions -> /404 \n", out)

	visited := app.Session.Views().Visited()
	assert.Len(t, visited, 3)
	assert.Equal(t, "/dashboard", visited[0].Path)
}

func TestUsersCommands(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	out, err := app.run(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "Operator")
	assert.Contains(t, out, "total 2, page 1")

	out, err = app.run(t, "users", "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "op"`)

	out, err = app.run(t, "users", "delete", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted account 1")
	assert.Contains(t, out, "Deleted account 2")
	assert.Equal(t, 1, app.server.Hits("DELETE /api/v2/admin/users/2"))

	_, err = app.run(t, "users", "delete", "99")
	assert.ErrorContains(t, err, "1 of 1 deletes failed")

	_, err = app.run(t, "users", "save", "{not json")
	assert.ErrorContains(t, err, "invalid JSON")

	out, err = app.run(t, "users", "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Super administrator")

	_, err = app.run(t, "users", "nope")
	assert.ErrorContains(t, err, "unknown command: nope")
}

func TestRolesSelect(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	out, err := app.run(t, "roles", "select")
	require.NoError(t, err)
	assert.Contains(t, out, "Operations")

	_, err = app.run(t, "roles", "select")
	require.NoError(t, err)
	assert.Equal(t, 1, app.server.Hits("GET /api/v2/admin/roles/select"))
}

func TestForbidden(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	_, err := app.run(t, "permissions", "tree")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorContains(t, err, "requires admin.permission")
	assert.Equal(t, 0, app.server.Hits("GET /api/v2/admin/permission/tree"))
}

func TestPermissionsCommands(t *testing.T) {
	app := newTestApp(t)
	app.server.SetGrants(map[string]bool{"admin.permission": true})
	app.login(t)

	out, err := app.run(t, "permissions", "tree")
	require.NoError(t, err)
	assert.Equal(t, "admin  Admin\n  admin.user  Users\n  admin.role  Roles\nsystem  System\n", out)

	out, err = app.run(t, "permissions", "leaves", "admin", "admin.user", "unknown")
	require.NoError(t, err)
	assert.Equal(t, "admin.user\n", out)

	_, err = app.run(t, "permissions", "save-items", `{"admin.user":{"sort":"1","desc":"Users"}}`)
	require.NoError(t, err)
	assert.Equal(t, true, app.server.LastBody()["batch"])
}

func TestSystemOverview(t *testing.T) {
	app := newTestApp(t)
	app.server.SetGrants(map[string]bool{"system.info": true, "system.database": true})
	app.login(t)

	out, err := app.run(t, "system", "overview")
	require.NoError(t, err)
	assert.Contains(t, out, `"os": "linux"`)
	assert.Contains(t, out, `"driver": "mysql"`)

	_, err = app.run(t, "system", "config")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	out, err := app.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.False(t, app.Routes.Installed())

	_, err = app.run(t, "users", "list")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSessionExpiry(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	app.server.ExpireSession()

	_, err := app.run(t, "users", "list")
	require.Error(t, err)
	assert.Contains(t, app.errOut.String(), "session expired")

	_, err = app.run(t, "whoami")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestCaptcha(t *testing.T) {
	app := newTestApp(t)
	path := filepath.Join(t.TempDir(), "captcha.png")

	out, err := app.run(t, "captcha", "-out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, apitest.CaptchaImage, data)
}

func TestSessionPersistsAcrossApps(t *testing.T) {
	server := apitest.NewServer(t)
	store := secret.NewMemoryStore()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.BaseURL()

	first, err := NewApp(context.Background(), cfg, Options{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}, Store: store})
	require.NoError(t, err)
	require.NoError(t, first.Execute(context.Background(),
		[]string{"login", "-username", apitest.Username, "-password", apitest.Password, "-code", apitest.Captcha}))

	out := &bytes.Buffer{}
	second, err := NewApp(context.Background(), cfg, Options{Out: out, Err: &bytes.Buffer{}, Store: store})
	require.NoError(t, err)
	require.NoError(t, second.Execute(context.Background(), []string{"whoami"}))
	assert.Contains(t, out.String(), "Administrator")
}

func TestClose_WritesMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nxadmin.prom")
	app := newTestApp(t, func(c *config.Config) { c.Observability.MetricsFile = path })
	app.login(t)

	require.NoError(t, app.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "nxadmin_api_requests_total")
	assert.Contains(t, string(data), `nxadmin_logins_total{result="success"} 1`)
}
