package auth

import "net/http"

// ResolveTargetUser decides whose data a read request addresses.
// Patients always read their own records; physicians and admins may name
// another user with the user_id query parameter. Returns false when the
// request tries to cross that boundary.
func ResolveTargetUser(r *http.Request, identity UserIdentity) (string, bool) {
	requested := r.URL.Query().Get("user_id")
	if requested == "" || requested == identity.UserID {
		return identity.UserID, true
	}
	if identity.Role.Satisfies(RolePhysician) {
		return requested, true
	}
	return "", false
}
