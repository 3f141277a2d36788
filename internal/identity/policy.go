package identity

import (
	"fmt"
	"strings"

	"hostelcare/internal/model"
)

// PolicyError means sign-in succeeded at the provider but the account does
// not satisfy the role's domain rule. Always fatal to the session.
type PolicyError struct {
	Email string
	Role  model.Role
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("email %q not permitted for role %s", e.Email, e.Role)
}

// Policy is the per-role email domain rule. Students must use one of the
// institute domains; admins must use the staff domain.
type Policy struct {
	StudentDomains []string
	AdminDomain    string
}

func (p Policy) Check(email string, role model.Role) error {
	email = strings.ToLower(strings.TrimSpace(email))
	switch role {
	case model.RoleAdmin:
		if p.AdminDomain == "" || hasDomain(email, p.AdminDomain) {
			return nil
		}
	case model.RoleStudent:
		if len(p.StudentDomains) == 0 {
			return nil
		}
		for _, domain := range p.StudentDomains {
			if hasDomain(email, domain) {
				return nil
			}
		}
	}
	return &PolicyError{Email: email, Role: role}
}

func hasDomain(email, domain string) bool {
	return strings.HasSuffix(email, "@"+strings.ToLower(domain))
}
