package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Per-resource
// ownership (a patient reading only their own data) is enforced by the
// handlers via ResolveTargetUser; this table gates by role alone.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/measurements":
		return RolePatient, true
	case path == "/api/v1/measurements/day":
		return RolePatient, true
	case path == "/api/v1/measurements/summary/weekly":
		return RolePatient, true
	case path == "/api/v1/measurements/summary/daily":
		return RolePatient, true
	case path == "/api/v1/measurements/stats":
		return RolePatient, true
	case path == "/api/v1/exports/measurements.csv":
		return RolePatient, true
	case path == "/api/v1/reports/weekly.pdf":
		return RolePatient, true
	case path == "/api/v1/reports/weekly.xlsx":
		return RolePatient, true
	case path == "/api/v1/devices":
		return RolePatient, true
	case strings.HasPrefix(path, "/api/v1/devices/"):
		return RolePatient, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RolePatient, true
		}
		return RolePhysician, true
	}
	return "", false
}
