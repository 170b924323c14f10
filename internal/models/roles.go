package models

// Role names seeded at startup. The hierarchy below is the single
// source of truth for privilege ordering; role ids are static anchors
// and must not be compared numerically.
const (
	RoleAdmin     = "Admin"
	RoleEditor    = "Editor"
	RoleAuthor    = "Author"
	RoleCommenter = "Commenter"
)

// RoleHierarchy orders role names from the highest privilege to the
// lowest. A user holds at least role R when their role name appears in
// the prefix of this list ending at R.
func RoleHierarchy() []string {
	return []string{RoleAdmin, RoleEditor, RoleAuthor, RoleCommenter}
}

// DefaultRoleName is the lowest-privilege role, assigned on registration.
func DefaultRoleName() string {
	h := RoleHierarchy()
	return h[len(h)-1]
}
