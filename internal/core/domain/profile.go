package domain

import "time"

// Profile is the application-level identity record, 1:1 with a backend auth
// identity. It is the only source of truth for the identity's role.
type Profile struct {
	ID        string    `json:"id"`
	RUT       string    `json:"rut"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName falls back to the RUT when the profile has no name.
func (p Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.RUT
}

// ProfilePatch carries the profile columns a supervisor may change. Nil
// fields are left untouched.
type ProfilePatch struct {
	Role   *Role
	Active *bool
}

// Fields returns the patch as a column → value map.
func (p ProfilePatch) Fields() map[string]any {
	f := make(map[string]any, 2)
	if p.Role != nil {
		f["role"] = string(*p.Role)
	}
	if p.Active != nil {
		f["active"] = *p.Active
	}
	return f
}
