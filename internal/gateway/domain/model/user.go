package model

// User is the public identity held in a session. It is readable on both
// sides of the gateway; anything the browser must never see lives in the
// session's sealed token, not here.
type User struct {
	ID          int64    `json:"id" bson:"id"`
	Name        string   `json:"name" bson:"name"`
	Email       string   `json:"email" bson:"email"`
	Permissions []string `json:"permissions,omitempty" bson:"permissions,omitempty"`
	Roles       []string `json:"roles,omitempty" bson:"roles,omitempty"`
}

// HasPermission reports whether the user holds the given permission.
func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
