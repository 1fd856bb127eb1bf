package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozxin/nx-admin/pkg/api"
	"github.com/ozxin/nx-admin/pkg/api/apitest"
	"github.com/ozxin/nx-admin/pkg/httputil"
)

type tokenFunc func() string

func (f tokenFunc) Token(context.Context) (string, error) { return f(), nil }

func setup(t *testing.T) (*api.Client, *apitest.Server, *httputil.RecordingNotifier) {
	t.Helper()

	server := apitest.NewServer(t)
	notifier := &httputil.RecordingNotifier{}
	client := httputil.NewClient(httputil.Options{
		BaseURL:  server.BaseURL(),
		Tokens:   tokenFunc(server.Token),
		Notifier: notifier,
	})
	return api.New(client), server, notifier
}

func TestLoginAPI(t *testing.T) {
	client, server, _ := setup(t)
	ctx := context.Background()

	captcha, err := client.Login.Captcha(ctx)
	require.NoError(t, err)
	assert.Equal(t, apitest.CaptchaImage, captcha.Image)
	assert.Equal(t, "image/png", captcha.ContentType)

	result, err := client.Login.Login(ctx, api.LoginRequest{
		Username: apitest.Username,
		Password: apitest.HashPassword(apitest.Password),
		Code:     apitest.Captcha,
		Lasting:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, server.Token(), result.Token)
	assert.Equal(t, server.UUID(), result.UUID)

	body := server.LastBody()
	assert.Equal(t, apitest.Username, body["account"])
	assert.Nil(t, body["token"])
	assert.Equal(t, true, body["lasting"])

	info, err := client.Login.UserInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, apitest.Username, info.User.Username)
	assert.True(t, info.Permission["admin.user"])

	require.NoError(t, client.Login.Logout(ctx))
}

func TestLoginAPI_BadCredentials(t *testing.T) {
	client, _, notifier := setup(t)

	_, err := client.Login.Login(context.Background(), api.LoginRequest{Username: "admin", Password: "wrong"})
	require.Error(t, err)

	apiErr, ok := httputil.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, httputil.KindServer, apiErr.Kind)
	assert.Equal(t, 1001, apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Len(t, notifier.Errors(), 1)
}

func TestLoginAPI_LogoutIsSilent(t *testing.T) {
	client, server, notifier := setup(t)
	server.ExpireSession()

	err := client.Login.Logout(context.Background())
	require.Error(t, err)
	assert.Empty(t, notifier.Errors())
}

func TestUsersAPI(t *testing.T) {
	client, server, _ := setup(t)
	ctx := context.Background()

	page, err := client.Users.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.Page.HasMore)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "admin", page.Data[0].Username)

	user, err := client.Users.Read(ctx, api.IntID(2))
	require.NoError(t, err)
	assert.Equal(t, api.UserTypeOperator, user.Genre)

	created, err := client.Users.Save(ctx, "", api.UserItem{Username: "new", Nickname: "New"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3}`, string(created))
	assert.Equal(t, 1, server.Hits("POST /api/v2/admin/users"))

	_, err = client.Users.Save(ctx, api.IntID(3), api.UserItem{Username: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, 1, server.Hits("PUT /api/v2/admin/users/3"))

	require.NoError(t, client.Users.ResetPassword(ctx, api.IntID(3), "pw"))
	assert.Equal(t, "pw", server.LastBody()["password"])

	require.NoError(t, client.Users.Delete(ctx, api.IntID(3)))

	_, err = client.Users.Read(ctx, api.IntID(3))
	apiErr, ok := httputil.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestRolesAPI(t *testing.T) {
	client, server, _ := setup(t)
	ctx := context.Background()

	page, err := client.Roles.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.False(t, page.Page.HasMore)

	options, err := client.Roles.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, []api.RoleOption{{Label: "Root", Value: 1, Type: 1}, {Label: "Operations", Value: 2, Type: 1}}, options)

	role, err := client.Roles.Read(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "root", role.Name)

	_, err = client.Roles.Save(ctx, "", map[string]string{"name": "qa"})
	require.NoError(t, err)
	_, err = client.Roles.Save(ctx, "2", map[string]string{"name": "ops2"})
	require.NoError(t, err)
	assert.Equal(t, 1, server.Hits("PUT /api/v2/admin/roles/2"))

	require.NoError(t, client.Roles.Delete(ctx, "2"))
}

func TestPermissionNode_LeafSurvivesEncoding(t *testing.T) {
	nodes := []api.PermissionNode{
		{Name: "admin", Children: []api.PermissionNode{{Name: "admin.user", Children: []api.PermissionNode{}}}},
		{Name: "system"},
	}

	data, err := json.Marshal(nodes)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"children":[]`)
	assert.Contains(t, string(data), `"children":null`)

	var decoded []api.PermissionNode
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded[0].Children[0].IsLeaf())
	assert.False(t, decoded[0].IsLeaf())
	assert.False(t, decoded[1].IsLeaf())
}

func TestPermissionsAPI(t *testing.T) {
	client, server, _ := setup(t)
	ctx := context.Background()

	tree, err := client.Permissions.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.True(t, tree[0].Children[0].IsLeaf())
	assert.False(t, tree[1].IsLeaf())

	page, err := client.Permissions.List(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)

	read, err := client.Permissions.Read(ctx, "admin.user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"admin.user"}`, string(read))

	_, err = client.Permissions.Scan(ctx)
	require.NoError(t, err)

	_, err = client.Permissions.SaveItems(ctx, api.PermissionChanges{"admin.user": {Sort: "1", Desc: "Users"}})
	require.NoError(t, err)
	body := server.LastBody()
	assert.Equal(t, true, body["batch"])
	assert.Contains(t, body["list"], "admin.user")

	_, err = client.Permissions.Save(ctx, "", map[string]string{"name": "x"})
	require.NoError(t, err)

	// DELETE answers 204
	require.NoError(t, client.Permissions.Delete(ctx, "x"))
}

func TestSystemAPI(t *testing.T) {
	client, server, _ := setup(t)
	ctx := context.Background()

	settings, err := client.System.Config(ctx)
	require.NoError(t, err)
	assert.True(t, settings.LoginCaptcha)

	_, err = client.System.ResetCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, server.Hits("POST /api/v2/system/resetCache"))

	info, err := client.System.SystemInfo(ctx)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(info, &parsed))
	assert.Equal(t, "linux", parsed["os"])

	db, err := client.System.Database(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(db), "mysql")
}

func TestAPI_SessionExpiredWrapsAPIError(t *testing.T) {
	client, server, _ := setup(t)
	server.ExpireSession()

	_, err := client.Users.List(context.Background(), 1, 10)
	require.Error(t, err)
	assert.True(t, httputil.IsSessionExpired(err))
	assert.Contains(t, err.Error(), "failed to list users")
}

func TestUserTypes(t *testing.T) {
	types := api.UserTypes()
	require.Len(t, types, 3)
	assert.Equal(t, api.UserTypeSuperAdmin, types[0].Value)
	assert.Equal(t, api.UserTypeOperator, types[2].Value)
	assert.Equal(t, "System administrator", api.UserTypeUserAdmin.String())
	assert.Equal(t, "Unknown(9)", api.UserType(9).String())
}

func TestLoginRequest_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(api.LoginRequest{Username: "u", Password: "p", Lasting: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"u","account":"u","password":"p","code":"","token":null,"lasting":true}`, string(data))
}
