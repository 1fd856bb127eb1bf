package api

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Envelope is the response shape of every admin API call
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// PageInfo describes the position of a page in a listing
type PageInfo struct {
	Current int  `json:"current"`
	Size    int  `json:"size"`
	HasMore bool `json:"hasMore"`
}

// Page is the response shape of paged listings
type Page[T any] struct {
	Code    int      `json:"code"`
	Message string   `json:"message,omitempty"`
	Data    []T      `json:"data"`
	Total   int      `json:"total"`
	Page    PageInfo `json:"page"`
}

// ObjectID identifies a resource in URLs. Numeric and string ids are both accepted by the server.
type ObjectID string

// IntID converts a numeric id
func IntID(id int64) ObjectID {
	return ObjectID(strconv.FormatInt(id, 10))
}

func (id ObjectID) String() string {
	return string(id)
}

// UserType is the role class of an admin account
type UserType int

const (
	UserTypeSuperAdmin UserType = 1
	UserTypeUserAdmin  UserType = 2
	UserTypeOperator   UserType = 5
)

var userTypeLabels = map[UserType]string{
	UserTypeOperator:   "Operator",
	UserTypeSuperAdmin: "Super administrator",
	UserTypeUserAdmin:  "System administrator",
}

// String returns the display label of the user type
func (t UserType) String() string {
	if label, ok := userTypeLabels[t]; ok {
		return label
	}
	return "Unknown(" + strconv.Itoa(int(t)) + ")"
}

// UserTypeOption is a selectable user type
type UserTypeOption struct {
	Label string   `json:"label"`
	Value UserType `json:"value"`
}

// UserTypes lists the known user types ordered by value
func UserTypes() []UserTypeOption {
	options := make([]UserTypeOption, 0, len(userTypeLabels))
	for t, label := range userTypeLabels {
		options = append(options, UserTypeOption{Label: label, Value: t})
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Value < options[j].Value })
	return options
}

// UserInfo is the identity of the signed-in account
type UserInfo struct {
	ID            int64    `json:"id"`
	Genre         UserType `json:"genre"`
	Status        int      `json:"status"`
	Username      string   `json:"username"`
	Nickname      string   `json:"nickname"`
	Email         string   `json:"email"`
	Avatar        string   `json:"avatar"`
	RoleID        int64    `json:"role_id"`
	CreateTime    int64    `json:"create_time"`
	UpdateTime    int64    `json:"update_time"`
	LastLoginTime int64    `json:"last_login_time"`
}

// LoginUserInfo is returned by users/info
type LoginUserInfo struct {
	User       UserInfo        `json:"user"`
	Permission map[string]bool `json:"permission"`
}

// LoginRequest is the login form. Password must already be hashed.
type LoginRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Code     string  `json:"code"`
	Token    *string `json:"token"`
	Lasting  bool    `json:"lasting"`
}

// MarshalJSON adds the account alias the server also accepts for the username
func (r LoginRequest) MarshalJSON() ([]byte, error) {
	type plain LoginRequest
	return json.Marshal(struct {
		plain
		Account string `json:"account"`
	}{plain: plain(r), Account: r.Username})
}

// LoginResult carries the freshly issued session id and token
type LoginResult struct {
	UUID  string `json:"uuid"`
	Token string `json:"token"`
}

// UserItem is an account as listed by the user admin API
type UserItem struct {
	ID            int64    `json:"id"`
	Genre         UserType `json:"genre"`
	Status        int      `json:"status"`
	RoleID        int64    `json:"role_id"`
	Nickname      string   `json:"nickname"`
	Username      string   `json:"username"`
	Email         string   `json:"email,omitempty"`
	GroupID       int64    `json:"group_id,omitempty"`
	Avatar        string   `json:"avatar,omitempty"`
	SignupIP      string   `json:"signup_ip,omitempty"`
	CreateTime    int64    `json:"create_time,omitempty"`
	UpdateTime    int64    `json:"update_time,omitempty"`
	LastLoginTime int64    `json:"last_login_time,omitempty"`
	LastLoginIP   string   `json:"last_login_ip,omitempty"`
	LockVersion   int64    `json:"lock_version,omitempty"`
	StatusDesc    string   `json:"status_desc,omitempty"`
	GenreDesc     string   `json:"genre_desc,omitempty"`
	RoleName      string   `json:"role_name,omitempty"`
}

// RoleItem is a role as listed by the role admin API
type RoleItem struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Desc        string   `json:"desc,omitempty"`
	Permission  []string `json:"permission,omitempty"`
	CreateTime  int64    `json:"create_time"`
	UpdateTime  int64    `json:"update_time"`
	LockVersion int64    `json:"lock_version"`
}

// RoleOption is an entry of the role picker
type RoleOption struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
	Type  int    `json:"type"`
}

// PermissionNode is a node of the permission tree
type PermissionNode struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Desc     string           `json:"desc"`
	PID      string           `json:"pid"`
	Sort     int              `json:"sort"`
	Spread   bool             `json:"spread"`
	Valid    bool             `json:"valid"`
	Children []PermissionNode `json:"children"`
}

// IsLeaf reports whether the node has an empty children list.
// A node without a children field is not a leaf.
func (n PermissionNode) IsLeaf() bool {
	return n.Children != nil && len(n.Children) == 0
}

// PermissionChange edits the sort and description of one permission
type PermissionChange struct {
	Sort string `json:"sort"`
	Desc string `json:"desc"`
}

// PermissionChanges maps permission names to their edits
type PermissionChanges map[string]PermissionChange

// SystemSettings are the public system switches
type SystemSettings struct {
	LoginCaptcha bool `json:"loginCaptcha"`
}
