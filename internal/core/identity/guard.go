package identity

import "strings"

// Application routes.
const (
	RouteIndex      = "/"
	RouteLogin      = "/login"
	RouteLogout     = "/logout"
	RouteRegister   = "/register"
	RouteClientView = "/client-view"
	RouteWorkflow   = "/workflow"
	RouteCashFlow   = "/cashflow"
	RouteTeam       = "/team"
)

// Outcome is what the guard wants done with a navigation.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	// Placeholder renders a blocking page without deciding access.
	Placeholder
)

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Outcome Outcome
	// Location is set when Outcome is Redirect.
	Location string
}

// IsPublic reports whether path can be visited without a session.
func IsPublic(path string) bool {
	return path == RouteLogin
}

// IsPortal reports whether path belongs to the client portal.
func IsPortal(path string) bool {
	return path == RouteClientView || strings.HasPrefix(path, RouteClientView+"/")
}

// Home is where the index route sends an authenticated viewer.
func Home(id Identity) string {
	if id.IsClient() {
		return RouteClientView
	}
	return RouteWorkflow
}

// Decide is the route guard. It is a pure function of the viewer and the
// requested path.
func Decide(id Identity, path string) Decision {
	if IsPublic(path) {
		if id.State == Authenticated {
			return Decision{Outcome: Redirect, Location: Home(id)}
		}
		return Decision{Outcome: Allow}
	}

	switch id.State {
	case Unauthenticated:
		return Decision{Outcome: Redirect, Location: RouteLogin}
	case Loading:
		// Signing out needs no profile.
		if path == RouteLogout {
			return Decision{Outcome: Allow}
		}
		return Decision{Outcome: Placeholder}
	}

	if path == RouteIndex {
		return Decision{Outcome: Redirect, Location: Home(id)}
	}
	if path == RouteLogout || IsPortal(path) {
		return Decision{Outcome: Allow}
	}
	if id.IsClient() {
		return Decision{Outcome: Redirect, Location: RouteClientView}
	}
	return Decision{Outcome: Allow}
}
