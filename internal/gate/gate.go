// Package gate decides what happens when the current user asks for a route.
// Decide is pure: same state and destination, same answer, no side effects.
package gate

import (
	"strings"

	"hostelcare/internal/model"
)

type Decision string

const (
	Allow             Decision = "allow"
	ShowLoading       Decision = "show-loading"
	RedirectHome      Decision = "redirect-to-home"
	RedirectProfile   Decision = "redirect-to-profile"
	RedirectDashboard Decision = "redirect-to-dashboard"
)

type Destination struct {
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
	ProfilePage   bool
}

var routes = map[string]Destination{
	"/":                {Path: "/"},
	"/dashboard":       {Path: "/dashboard", RequiresAuth: true},
	"/profile":         {Path: "/profile", RequiresAuth: true, ProfilePage: true},
	"/status":          {Path: "/status", RequiresAuth: true},
	"/admin/profile":   {Path: "/admin/profile", RequiresAuth: true, RequiresAdmin: true, ProfilePage: true},
	"/admin/dashboard": {Path: "/admin/dashboard", RequiresAuth: true, RequiresAdmin: true},
}

// Lookup maps a path to its destination. Request-detail pages live under
// /request/; anything unknown defaults to authenticated, non-admin.
func Lookup(path string) Destination {
	if dest, ok := routes[path]; ok {
		return dest
	}
	if strings.HasPrefix(path, "/request/") {
		return Destination{Path: path, RequiresAuth: true}
	}
	if strings.HasPrefix(path, "/admin/") {
		return Destination{Path: path, RequiresAuth: true, RequiresAdmin: true}
	}
	return Destination{Path: path, RequiresAuth: true}
}

// Decide applies the gating rules in order.
func Decide(state model.ReconciledState, dest Destination) Decision {
	if state.Status == model.StatusLoading {
		return ShowLoading
	}

	if state.Status == model.StatusSignedOut {
		if dest.RequiresAuth {
			return RedirectHome
		}
		return Allow
	}

	// Signed in from here on.
	if dest.ProfilePage && state.IsComplete {
		// A completed user does not re-enter onboarding.
		return RedirectDashboard
	}
	if dest.RequiresAuth && !dest.ProfilePage && !state.IsComplete {
		return RedirectProfile
	}
	if dest.RequiresAdmin && state.Role != model.RoleAdmin {
		if !dest.RequiresAuth {
			return RedirectHome
		}
		return RedirectDashboard
	}
	return Allow
}

// ProfilePath is where RedirectProfile should land for the given state;
// admins onboard on their own page.
func ProfilePath(state model.ReconciledState) string {
	if state.Role == model.RoleAdmin {
		return "/admin/profile"
	}
	return "/profile"
}

// DashboardPath is the role's dashboard.
func DashboardPath(state model.ReconciledState) string {
	if state.Role == model.RoleAdmin {
		return "/admin/dashboard"
	}
	return "/dashboard"
}
