package rbac

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode decides how a list requirement is matched against a permission set
type Mode int

const (
	// ModeSome admits when at least one listed permission is granted
	ModeSome Mode = iota
	// ModeEvery admits when all listed permissions are granted
	ModeEvery
)

// String returns the YAML key for the mode
func (m Mode) String() string {
	if m == ModeEvery {
		return "every"
	}
	return "some"
}

// Kind identifies the shape of a requirement
type Kind int

const (
	KindNone Kind = iota
	KindAuthenticated
	KindOne
	KindList
	KindInvalid
)

// String returns a readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAuthenticated:
		return "authenticated"
	case KindOne:
		return "one"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Requirement is the access policy attached to a route or command.
// The zero value requires nothing.
type Requirement struct {
	kind  Kind
	perms []string
	mode  Mode
}

// None returns a requirement that always admits
func None() Requirement { return Requirement{} }

// Authenticated admits any session holding at least one permission
func Authenticated() Requirement { return Requirement{kind: KindAuthenticated} }

// One admits sessions granted perm
func One(perm string) Requirement {
	if perm == "" {
		return Requirement{}
	}
	return Requirement{kind: KindOne, perms: []string{perm}}
}

// AnyOf admits sessions granted at least one of perms
func AnyOf(perms ...string) Requirement {
	return Requirement{kind: KindList, perms: append([]string(nil), perms...), mode: ModeSome}
}

// AllOf admits sessions granted every one of perms
func AllOf(perms ...string) Requirement {
	return Requirement{kind: KindList, perms: append([]string(nil), perms...), mode: ModeEvery}
}

// Invalid returns a requirement that always denies
func Invalid() Requirement { return Requirement{kind: KindInvalid} }

// Kind returns the requirement shape
func (r Requirement) Kind() Kind { return r.kind }

// Mode returns the list mode. It is only meaningful for KindList.
func (r Requirement) Mode() Mode { return r.mode }

// Permissions returns a copy of the permissions named by the requirement
func (r Requirement) Permissions() []string {
	return append([]string(nil), r.perms...)
}

// IsNone reports whether the requirement always admits
func (r Requirement) IsNone() bool { return r.kind == KindNone }

// IsZero lets yaml omitempty drop requirements that admit everything
func (r Requirement) IsZero() bool { return r.kind == KindNone }

// String renders the requirement for listings
func (r Requirement) String() string {
	switch r.kind {
	case KindNone:
		return "-"
	case KindAuthenticated:
		return "authenticated"
	case KindOne:
		return r.perms[0]
	case KindList:
		return r.mode.String() + "(" + strings.Join(r.perms, ",") + ")"
	default:
		return "invalid"
	}
}

// UnmarshalJSON decodes any JSON value. Unsupported shapes become Invalid instead of failing.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = requirementFromValue(v)
	return nil
}

// MarshalJSON encodes the requirement in the same shapes UnmarshalJSON accepts
func (r Requirement) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.value())
}

// UnmarshalYAML decodes any YAML node. Unsupported shapes become Invalid instead of failing.
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*r = requirementFromValue(v)
	return nil
}

// MarshalYAML encodes the requirement in the same shapes UnmarshalYAML accepts
func (r Requirement) MarshalYAML() (interface{}, error) {
	return r.value(), nil
}

func (r Requirement) value() interface{} {
	switch r.kind {
	case KindAuthenticated:
		return true
	case KindOne:
		return r.perms[0]
	case KindList:
		perms := r.Permissions()
		if perms == nil {
			perms = []string{}
		}
		if r.mode == ModeEvery {
			return map[string][]string{"every": perms}
		}
		return perms
	case KindInvalid:
		return map[string]bool{"invalid": true}
	default:
		return nil
	}
}

func requirementFromValue(v interface{}) Requirement {
	switch val := v.(type) {
	case nil:
		return None()
	case bool:
		if val {
			return Authenticated()
		}
		return None()
	case string:
		return One(val)
	case []interface{}:
		perms, ok := stringList(val)
		if !ok {
			return Invalid()
		}
		return AnyOf(perms...)
	case map[string]interface{}:
		if len(val) != 1 {
			return Invalid()
		}
		for key, inner := range val {
			list, ok := inner.([]interface{})
			if !ok {
				return Invalid()
			}
			perms, ok := stringList(list)
			if !ok {
				return Invalid()
			}
			switch key {
			case "some":
				return AnyOf(perms...)
			case "every":
				return AllOf(perms...)
			}
		}
		return Invalid()
	default:
		return Invalid()
	}
}

func stringList(values []interface{}) ([]string, bool) {
	perms := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		perms = append(perms, s)
	}
	return perms, true
}

// Set is an immutable set of granted permission strings
type Set struct {
	members map[string]struct{}
}

// NewSet builds a set from perms. Empty strings are ignored.
func NewSet(perms ...string) Set {
	members := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if p != "" {
			members[p] = struct{}{}
		}
	}
	return Set{members: members}
}

// SetFromGrants builds a set from a server grant map. Only keys mapped to true are members.
func SetFromGrants(grants map[string]bool) Set {
	members := make(map[string]struct{}, len(grants))
	for p, granted := range grants {
		if granted && p != "" {
			members[p] = struct{}{}
		}
	}
	return Set{members: members}
}

// Has reports exact membership
func (s Set) Has(perm string) bool {
	_, ok := s.members[perm]
	return ok
}

// Len returns the number of members
func (s Set) Len() int {
	return len(s.members)
}

// IsEmpty reports whether the set has no members
func (s Set) IsEmpty() bool {
	return len(s.members) == 0
}

// Slice returns the members in sorted order
func (s Set) Slice() []string {
	perms := make([]string, 0, len(s.members))
	for p := range s.members {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// GoString implements fmt.GoStringer for test failure output
func (s Set) GoString() string {
	return fmt.Sprintf("rbac.NewSet(%q)", s.Slice())
}
