package domain

// Role governs route access and screen-level feature visibility. The values
// are the ones stored in the backend's profiles table.
type Role string

const (
	RoleSupervisor Role = "supervisor"
	RoleWorker     Role = "trabajador"
	RoleClient     Role = "cliente"
)

// Roles lists every assignable role in display order.
var Roles = []Role{RoleSupervisor, RoleWorker, RoleClient}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSupervisor, RoleWorker, RoleClient:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to the contractor's own team.
func (r Role) IsStaff() bool {
	return r == RoleSupervisor || r == RoleWorker
}

// Label is the human readable, localized role name.
func (r Role) Label() string {
	switch r {
	case RoleSupervisor:
		return "Supervisor"
	case RoleWorker:
		return "Trabajador"
	case RoleClient:
		return "Cliente"
	default:
		return "Empresa"
	}
}
