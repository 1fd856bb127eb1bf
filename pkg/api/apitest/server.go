// Package apitest provides an in-memory admin API server for tests.
package apitest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/ozxin/nx-admin/pkg/api"
)

// Default credentials accepted by the server
const (
	Username = "admin"
	Password = "secret"
	Captcha  = "1234"
)

// CaptchaImage is returned by GET login/captcha
var CaptchaImage = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Server is a fake admin API
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	token       string
	uuid        string
	expired     bool
	user        api.UserInfo
	grants      map[string]bool
	users       map[int64]api.UserItem
	roles       map[int64]api.RoleItem
	tree        []api.PermissionNode
	settings    api.SystemSettings
	selectDelay time.Duration
	nextID      int64
	hits        map[string]int
	lastAuth    string
	lastBody    map[string]interface{}
}

// NewServer starts a server that is closed with the test
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		token: "tk-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		uuid:  "sid-1",
		user: api.UserInfo{
			ID: 1, Genre: api.UserTypeSuperAdmin, Status: 1,
			Username: Username, Nickname: "Administrator", RoleID: 1,
		},
		grants: map[string]bool{"admin.user": true, "admin.role": true, "admin.permission": false},
		users: map[int64]api.UserItem{
			1: {ID: 1, Genre: api.UserTypeSuperAdmin, Username: Username, Nickname: "Administrator", RoleID: 1},
			2: {ID: 2, Genre: api.UserTypeOperator, Username: "op", Nickname: "Operator", RoleID: 2},
		},
		roles: map[int64]api.RoleItem{
			1: {ID: 1, Name: "root", Title: "Root"},
			2: {ID: 2, Name: "ops", Title: "Operations"},
		},
		tree: []api.PermissionNode{
			{Name: "admin", Title: "Admin", Children: []api.PermissionNode{
				{Name: "admin.user", Title: "Users", PID: "admin", Children: []api.PermissionNode{}},
				{Name: "admin.role", Title: "Roles", PID: "admin", Children: []api.PermissionNode{}},
			}},
			{Name: "system", Title: "System"},
		},
		settings: api.SystemSettings{LoginCaptcha: true},
		nextID:   3,
		hits:     make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.count)
	base := r.PathPrefix("/api").Subrouter()

	base.HandleFunc("/login/captcha", s.captcha).Methods("GET")
	base.HandleFunc("/users/login", s.login).Methods("POST")

	authed := base.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/users/info", s.info).Methods("GET")
	authed.HandleFunc("/users/logout", s.logout).Methods("POST")

	authed.HandleFunc("/v2/admin/users", s.listUsers).Methods("GET")
	authed.HandleFunc("/v2/admin/users", s.saveUser).Methods("POST")
	authed.HandleFunc("/v2/admin/users/{id}", s.readUser).Methods("GET")
	authed.HandleFunc("/v2/admin/users/{id}", s.saveUser).Methods("PUT")
	authed.HandleFunc("/v2/admin/users/{id}", s.deleteUser).Methods("DELETE")
	authed.HandleFunc("/v2/admin/users/{id}/reset-password", s.echo).Methods("POST")

	authed.HandleFunc("/v2/admin/roles", s.listRoles).Methods("GET")
	authed.HandleFunc("/v2/admin/roles", s.echo).Methods("POST")
	authed.HandleFunc("/v2/admin/roles/select", s.selectRoles).Methods("GET")
	authed.HandleFunc("/v2/admin/roles/{id}", s.readRole).Methods("GET")
	authed.HandleFunc("/v2/admin/roles/{id}", s.echo).Methods("PUT")
	authed.HandleFunc("/v2/admin/roles/{id}", s.deleteRole).Methods("DELETE")

	authed.HandleFunc("/v2/admin/permission/tree", s.permissionTree).Methods("GET")
	authed.HandleFunc("/v2/admin/permission/scan", s.echo).Methods("POST")
	authed.HandleFunc("/v2/admin/permission/root", s.echo).Methods("PUT")
	authed.HandleFunc("/v2/admin/permission", s.listPermissions).Methods("GET")
	authed.HandleFunc("/v2/admin/permission", s.echo).Methods("POST")
	authed.HandleFunc("/v2/admin/permission/{id}", s.readPermission).Methods("GET")
	authed.HandleFunc("/v2/admin/permission/{id}", s.echo).Methods("PUT")
	authed.HandleFunc("/v2/admin/permission/{id}", s.noContent).Methods("DELETE")

	authed.HandleFunc("/v2/system/config", s.systemConfig).Methods("GET")
	authed.HandleFunc("/v2/system/resetCache", s.echo).Methods("POST")
	authed.HandleFunc("/v2/system/sysinfo", s.sysinfo).Methods("GET")
	authed.HandleFunc("/v2/system/database", s.database).Methods("GET")

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API base URL to configure clients with
func (s *Server) BaseURL() string {
	return s.URL + "/api/"
}

// Token returns the token issued on login
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UUID returns the session id issued on login
func (s *Server) UUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uuid
}

// ExpireSession makes every authenticated call answer 401
func (s *Server) ExpireSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// SetGrants replaces the permission grants returned by users/info
func (s *Server) SetGrants(grants map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = grants
}

// SetUser replaces the identity returned by users/info
func (s *Server) SetUser(user api.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SetSettings replaces the system settings
func (s *Server) SetSettings(settings api.SystemSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// SetSelectDelay slows down the role select endpoint
func (s *Server) SetSelectDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectDelay = d
}

// Hits returns how often "METHOD /path" was requested
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// LastAuthorization returns the Authorization header of the latest request
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// LastBody returns the decoded JSON body of the latest echo request
func (s *Server) LastBody() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody
}

// HashPassword hashes a password the way the console sends it
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.lastAuth = r.Header.Get("Authorization")
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		ok := !s.expired && r.Header.Get("Authorization") == fmt.Sprintf(`Bearer TK="%s"`, s.token)
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, 401, "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, api.Envelope[interface{}]{Code: 0, Data: data, Message: "ok"})
}

func writeError(w http.ResponseWriter, status, errno int, message string) {
	writeJSON(w, status, map[string]interface{}{"errno": errno, "message": message})
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	writeJSON(w, http.StatusOK, api.Page[T]{
		Data:  items[start:end],
		Total: len(items),
		Page:  api.PageInfo{Current: page, Size: limit, HasMore: end < len(items)},
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func (s *Server) captcha(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(CaptchaImage)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var form map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, 400, "invalid body")
		return
	}

	s.mu.Lock()
	s.lastBody = form
	captchaRequired := s.settings.LoginCaptcha
	s.mu.Unlock()

	if form["account"] != Username || form["username"] != Username || form["password"] != HashPassword(Password) {
		writeError(w, http.StatusBadRequest, 1001, "invalid username or password")
		return
	}
	if captchaRequired && form["code"] != Captcha {
		writeError(w, http.StatusBadRequest, 1002, "invalid captcha")
		return
	}

	s.mu.Lock()
	s.expired = false
	result := api.LoginResult{UUID: s.uuid, Token: s.token}
	s.mu.Unlock()
	writeData(w, result)
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	info := api.LoginUserInfo{User: s.user, Permission: s.grants}
	s.mu.Unlock()
	writeData(w, info)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	writeData(w, nil)
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.lastBody = body
	s.mu.Unlock()
	writeData(w, map[string]interface{}{"path": r.URL.Path, "body": body})
}

func (s *Server) noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]api.UserItem, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writePage(w, r, users)
}

func (s *Server) readUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	user, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 404, "user not found")
		return
	}
	writeData(w, user)
}

func (s *Server) saveUser(w http.ResponseWriter, r *http.Request) {
	var user api.UserItem
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, http.StatusBadRequest, 400, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := pathID(r); ok {
		if _, exists := s.users[id]; !exists {
			writeError(w, http.StatusNotFound, 404, "user not found")
			return
		}
		user.ID = id
	} else {
		user.ID = s.nextID
		s.nextID++
	}
	s.users[user.ID] = user
	writeData(w, map[string]int64{"id": user.ID})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	_, ok := s.users[id]
	delete(s.users, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 404, "user not found")
		return
	}
	writeData(w, nil)
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	roles := make([]api.RoleItem, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	s.mu.Unlock()
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	writePage(w, r, roles)
}

func (s *Server) selectRoles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.selectDelay
	options := make([]api.RoleOption, 0, len(s.roles))
	for _, role := range s.roles {
		options = append(options, api.RoleOption{Label: role.Title, Value: role.ID, Type: 1})
	}
	s.mu.Unlock()
	sort.Slice(options, func(i, j int) bool { return options[i].Value < options[j].Value })

	if delay > 0 {
		time.Sleep(delay)
	}
	writeData(w, options)
}

func (s *Server) readRole(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	role, ok := s.roles[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 404, "role not found")
		return
	}
	writeData(w, role)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	delete(s.roles, id)
	s.mu.Unlock()
	writeData(w, nil)
}

func (s *Server) permissionTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	writeData(w, tree)
}

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var flat []api.PermissionNode
	var walk func(nodes []api.PermissionNode)
	walk = func(nodes []api.PermissionNode) {
		for _, n := range nodes {
			children := n.Children
			n.Children = nil
			flat = append(flat, n)
			walk(children)
		}
	}
	walk(s.tree)
	s.mu.Unlock()
	writePage(w, r, flat)
}

func (s *Server) readPermission(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"name": mux.Vars(r)["id"]})
}

func (s *Server) systemConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()
	writeData(w, settings)
}

func (s *Server) sysinfo(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]interface{}{"os": "linux", "cpus": 4})
}

func (s *Server) database(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]interface{}{"driver": "mysql", "tables": 12})
}
