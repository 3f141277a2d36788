package gate

import (
	"testing"

	"hostelcare/internal/model"
)

func signedIn(role model.Role, complete bool) model.ReconciledState {
	profile := model.ProfileRecord{SubjectID: "s1", Role: role}
	return model.ReconciledState{
		Status:     model.StatusSignedIn,
		Principal:  &model.Principal{SubjectID: "s1", Email: "a@vitstudent.ac.in"},
		Profile:    &profile,
		IsComplete: complete,
		Role:       role,
	}
}

func TestDecide(t *testing.T) {
	loading := model.ReconciledState{Status: model.StatusLoading}
	signedOut := model.ReconciledState{Status: model.StatusSignedOut}

	cases := []struct {
		name  string
		state model.ReconciledState
		dest  string
		want  Decision
	}{
		{"loading wins over everything", loading, "/dashboard", ShowLoading},
		{"loading on public route", loading, "/", ShowLoading},

		{"signed out on public route", signedOut, "/", Allow},
		{"signed out on protected route", signedOut, "/dashboard", RedirectHome},
		{"signed out on admin route", signedOut, "/admin/dashboard", RedirectHome},

		{"complete student on dashboard", signedIn(model.RoleStudent, true), "/dashboard", Allow},
		{"complete student re-entering onboarding", signedIn(model.RoleStudent, true), "/profile", RedirectDashboard},
		{"incomplete student on onboarding", signedIn(model.RoleStudent, false), "/profile", Allow},
		{"incomplete student on dashboard", signedIn(model.RoleStudent, false), "/dashboard", RedirectProfile},
		{"incomplete student on request page", signedIn(model.RoleStudent, false), "/request/42", RedirectProfile},
		{"complete student on request page", signedIn(model.RoleStudent, true), "/request/42", Allow},

		{"student on admin dashboard", signedIn(model.RoleStudent, true), "/admin/dashboard", RedirectDashboard},
		{"complete admin on admin dashboard", signedIn(model.RoleAdmin, true), "/admin/dashboard", Allow},
		{"incomplete admin on admin dashboard", signedIn(model.RoleAdmin, false), "/admin/dashboard", RedirectProfile},
		{"incomplete admin on admin onboarding", signedIn(model.RoleAdmin, false), "/admin/profile", Allow},
		{"complete admin re-entering onboarding", signedIn(model.RoleAdmin, true), "/admin/profile", RedirectDashboard},

		{"unknown route defaults to protected", signedOut, "/settings", RedirectHome},
	}

	for _, tc := range cases {
		if got := Decide(tc.state, Lookup(tc.dest)); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	state := signedIn(model.RoleStudent, true)
	dest := Lookup("/dashboard")
	for i := 0; i < 5; i++ {
		if got := Decide(state, dest); got != Allow {
			t.Fatalf("call %d: got %s want %s", i, got, Allow)
		}
	}
}

func TestRedirectTargets(t *testing.T) {
	admin := signedIn(model.RoleAdmin, false)
	if got := ProfilePath(admin); got != "/admin/profile" {
		t.Fatalf("admin profile path: got %s", got)
	}
	student := signedIn(model.RoleStudent, false)
	if got := ProfilePath(student); got != "/profile" {
		t.Fatalf("student profile path: got %s", got)
	}
	if got := DashboardPath(admin); got != "/admin/dashboard" {
		t.Fatalf("admin dashboard path: got %s", got)
	}
	if got := DashboardPath(student); got != "/dashboard" {
		t.Fatalf("student dashboard path: got %s", got)
	}
}
