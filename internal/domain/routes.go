package domain

import (
	"fmt"
	"slices"
	"strings"
)

// EntryRoute is the public login page.
const EntryRoute = "/"

const (
	RouteDashboard       = "/dashboard"
	RouteWorkers         = "/workers"
	RouteLeaves          = "/leaves"
	RouteHolidays        = "/holidays"
	RouteCalendar        = "/calendar"
	RouteDocuments       = "/documents"
	RouteReferenceChecks = "/reference-checks"
	RouteReports         = "/reports"
	RouteUsers           = "/users"
	RouteSettings        = "/settings"
	RouteAudit           = "/audit"
	RoutePortal          = "/portal"
)

var homeRoutes = map[Role]string{
	RoleSuperAdmin:        RouteDashboard,
	RoleComplianceManager: RouteDashboard,
	RoleHROfficer:         RouteWorkers,
	RolePayrollOfficer:    RouteWorkers,
	RoleInspector:         RouteDashboard,
	RoleEmployee:          RoutePortal,
}

// Routes missing here are open to any signed-in identity.
var routePermissions = map[string][]Role{
	RouteDashboard:       {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer, RoleInspector},
	RouteWorkers:         {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer, RolePayrollOfficer, RoleInspector},
	RouteLeaves:          {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer, RolePayrollOfficer},
	RouteHolidays:        {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer},
	RouteDocuments:       {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer, RoleInspector},
	RouteReferenceChecks: {RoleSuperAdmin, RoleComplianceManager, RoleHROfficer},
	RouteReports:         {RoleSuperAdmin, RoleComplianceManager, RoleInspector},
	RouteUsers:           {RoleSuperAdmin},
	RouteSettings:        {RoleSuperAdmin, RoleComplianceManager},
	RouteAudit:           {RoleSuperAdmin, RoleComplianceManager, RoleInspector},
	RoutePortal:          {RoleEmployee},
}

// sessionlessRoutes are served without binding a browser session.
var sessionlessRoutes = []string{"/health", "/metrics", "/static", "/assets", "/favicon.ico"}

// internalRoutes bypass the route guard. Every sessionless route is internal.
var internalRoutes = append(slices.Clone(sessionlessRoutes), "/api", "/login", "/logout")

func HomeRoute(r Role) string {
	if home, ok := homeRoutes[r]; ok {
		return home
	}
	return EntryRoute
}

// AllowedRoles returns a copy of the roles listed for a route, and false when
// the route is not listed at all.
func AllowedRoles(route string) ([]Role, bool) {
	roles, ok := routePermissions[route]
	if !ok {
		return nil, false
	}
	return slices.Clone(roles), true
}

func ListedRoutes() []string {
	out := make([]string, 0, len(routePermissions))
	for route := range routePermissions {
		out = append(out, route)
	}
	slices.Sort(out)
	return out
}

func RouteAllows(route string, role Role) bool {
	roles, ok := routePermissions[route]
	if !ok {
		return true
	}
	return slices.Contains(roles, role)
}

// NormalizePath reduces a request path to its first segment: "/workers/42" is
// "/workers" and "" is "/".
func NormalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return EntryRoute
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return "/" + path
}

func IsInternalPath(route string) bool {
	return strings.HasPrefix(route, "/_") || slices.Contains(internalRoutes, route)
}

// IsSessionless reports whether a normalized route needs no browser session.
func IsSessionless(route string) bool {
	return slices.Contains(sessionlessRoutes, route)
}

// ValidateRouteTables checks that the two route tables agree with each other.
func ValidateRouteTables() error {
	if _, ok := routePermissions[EntryRoute]; ok {
		return fmt.Errorf("%w: entry route must not be permission listed", ErrInvalidInput)
	}
	for _, role := range AllRoles {
		home, ok := homeRoutes[role]
		if !ok || home == EntryRoute {
			return fmt.Errorf("%w: role %s has no home route", ErrInvalidInput, role)
		}
		if !RouteAllows(home, role) {
			return fmt.Errorf("%w: role %s excluded from its home route %s", ErrInvalidInput, role, home)
		}
	}
	return nil
}

type Action int

const (
	ActionRender Action = iota
	ActionRedirect
	ActionWait
)

func (a Action) String() string {
	switch a {
	case ActionRedirect:
		return "redirect"
	case ActionWait:
		return "wait"
	default:
		return "render"
	}
}

type RedirectReason string

const (
	ReasonNone            RedirectReason = ""
	ReasonUnauthenticated RedirectReason = "unauthenticated"
	ReasonSignedIn        RedirectReason = "signed_in"
	ReasonForbidden       RedirectReason = "forbidden"
	ReasonSignedOut       RedirectReason = "signed_out"
)

// Decision is the navigation command produced for one (identity, path) pair.
type Decision struct {
	Action   Action
	Location string
	Reason   RedirectReason
}

func Render() Decision { return Decision{Action: ActionRender} }

func RedirectTo(location string, reason RedirectReason) Decision {
	return Decision{Action: ActionRedirect, Location: location, Reason: reason}
}

// Guard decides what a navigation to path should do. While the session is
// still loading it never redirects.
func Guard(loading bool, identity *Identity, path string) Decision {
	if loading {
		return Decision{Action: ActionWait}
	}
	route := NormalizePath(path)
	if IsInternalPath(route) {
		return Render()
	}
	if identity == nil {
		if route == EntryRoute {
			return Render()
		}
		return RedirectTo(EntryRoute, ReasonUnauthenticated)
	}
	home := HomeRoute(identity.Role)
	if route == EntryRoute {
		return RedirectTo(home, ReasonSignedIn)
	}
	if !RouteAllows(route, identity.Role) {
		return RedirectTo(home, ReasonForbidden)
	}
	return Render()
}
