package auth

// Role is the caller's privilege level. Patients own their records,
// physicians may read any patient's, admins additionally reach the
// maintenance surfaces.
type Role string

const (
	RolePatient   Role = "patient"
	RolePhysician Role = "physician"
	RoleAdmin     Role = "admin"
)

// NormalizeRole validates a role string from an external token.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RolePatient, RolePhysician, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// Satisfies reports whether the role meets the required privilege.
// Unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RolePatient:
		return r == RolePatient || r == RolePhysician || r == RoleAdmin
	case RolePhysician:
		return r == RolePhysician || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}
