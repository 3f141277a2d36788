package identity

import (
	"errors"
	"testing"
	"time"

	"hostelcare/internal/model"
)

const (
	testSecret = "test-secret"
	testIssuer = "test-issuer"
)

func TestIDTokenRoundTrip(t *testing.T) {
	want := model.Principal{
		SubjectID:   "subject-1",
		Email:       "a@vitstudent.ac.in",
		DisplayName: "A Student",
		AvatarURL:   "https://avatars.test/a.png",
	}
	token, err := NewIDToken(testSecret, testIssuer, want, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	got, err := ParseIDToken(testSecret, testIssuer, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("principal mismatch: got %+v want %+v", got, want)
	}
}

func TestIDTokenRejections(t *testing.T) {
	principal := model.Principal{SubjectID: "subject-1", Email: "a@vitstudent.ac.in"}

	valid, err := NewIDToken(testSecret, testIssuer, principal, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	expired, err := NewIDToken(testSecret, testIssuer, principal, -time.Minute)
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		issuer string
		token  string
	}{
		{"bad signature", "other-secret", testIssuer, valid},
		{"wrong issuer", testSecret, "other-issuer", valid},
		{"expired", testSecret, testIssuer, expired},
		{"garbage", testSecret, testIssuer, "not-a-token"},
	}
	for _, tc := range cases {
		if _, err := ParseIDToken(tc.secret, tc.issuer, tc.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", tc.name, err)
		}
	}
}

func TestPolicyCheck(t *testing.T) {
	policy := Policy{
		StudentDomains: []string{"vit.ac.in", "vitstudent.ac.in"},
		AdminDomain:    "vit.ac.in",
	}

	if err := policy.Check("a@vitstudent.ac.in", model.RoleStudent); err != nil {
		t.Fatalf("expected student domain to pass: %v", err)
	}
	if err := policy.Check("warden@vit.ac.in", model.RoleAdmin); err != nil {
		t.Fatalf("expected admin domain to pass: %v", err)
	}

	err := policy.Check("a@gmail.com", model.RoleStudent)
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PolicyError, got %v", err)
	}

	if err := policy.Check("warden@vitstudent.ac.in", model.RoleAdmin); err == nil {
		t.Fatalf("student domain must not pass the admin rule")
	}
}

func TestHubDeliversCurrentOnSubscribe(t *testing.T) {
	hub := NewHub()
	hub.SignIn(model.Principal{SubjectID: "subject-1", Email: "a@vitstudent.ac.in"})

	var got []*model.Principal
	unsubscribe := hub.Subscribe(func(p *model.Principal) {
		got = append(got, p)
	})
	defer unsubscribe()

	if len(got) != 1 || got[0] == nil || got[0].SubjectID != "subject-1" {
		t.Fatalf("expected immediate delivery of current session, got %+v", got)
	}

	hub.SignOut()
	if len(got) != 2 || got[1] != nil {
		t.Fatalf("expected nil delivery on sign-out, got %+v", got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	count := 0
	unsubscribe := hub.Subscribe(func(*model.Principal) { count++ })
	unsubscribe()

	hub.SignIn(model.Principal{SubjectID: "subject-1"})
	if count != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", count)
	}
}
