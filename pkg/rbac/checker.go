package rbac

// Allow decides whether a session holding set satisfies req.
//
//	none          always
//	authenticated set is non-empty
//	one           the permission is a member
//	list/some     at least one entry is a member (an empty list denies)
//	list/every    every entry is a member (an empty list admits)
//	invalid       never
func Allow(set Set, req Requirement) bool {
	switch req.kind {
	case KindNone:
		return true
	case KindAuthenticated:
		return !set.IsEmpty()
	case KindOne:
		return set.Has(req.perms[0])
	case KindList:
		if req.mode == ModeEvery {
			for _, p := range req.perms {
				if !set.Has(p) {
					return false
				}
			}
			return true
		}
		for _, p := range req.perms {
			if set.Has(p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Checker answers access queries for the current session
type Checker interface {
	AllowAccess(req Requirement) bool
}

// Visible keeps the items whose requirement is admitted by checker, preserving order.
func Visible[T any](checker Checker, items []T, authOf func(T) Requirement) []T {
	visible := make([]T, 0, len(items))
	for _, item := range items {
		if checker.AllowAccess(authOf(item)) {
			visible = append(visible, item)
		}
	}
	return visible
}
