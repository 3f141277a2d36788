package model

import "strings"

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusLoading   Status = "loading"
	StatusSignedOut Status = "signedOut"
	StatusSignedIn  Status = "signedIn"
)

// Principal holds the identity provider's claims for the live session.
// Immutable while the session lasts.
type Principal struct {
	SubjectID   string `json:"subjectId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// ProfileRecord is the application-owned record for a person. The backend is
// authoritative for Role; clients never get to assert it.
type ProfileRecord struct {
	SubjectID          string `json:"subjectId"`
	Role               Role   `json:"role"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	AvatarURL          string `json:"avatarUrl,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	HostelType         string `json:"hostelType,omitempty"`
	Block              string `json:"block,omitempty"`
	RoomNumber         string `json:"roomNumber,omitempty"`
}

// Complete reports whether every required field for the record's role is
// populated. Students need registration number, phone, hostel type, block and
// room; admins need hostel type and block.
func (p ProfileRecord) Complete() bool {
	switch p.Role {
	case RoleStudent:
		return p.RegistrationNumber != "" &&
			p.PhoneNumber != "" &&
			p.HostelType != "" &&
			p.Block != "" &&
			p.RoomNumber != ""
	case RoleAdmin:
		return p.HostelType != "" && p.Block != ""
	default:
		return false
	}
}

// CachedSnapshot is the locally persisted copy of a profile. A snapshot whose
// subject does not match the current principal must be discarded unread.
type CachedSnapshot struct {
	Profile   ProfileRecord `json:"profile"`
	Completed bool          `json:"completed"`
}

// ReconciledState is the single value the rest of the application observes.
// IsComplete and Role are always derived from Profile, never set on their own.
type ReconciledState struct {
	Status     Status         `json:"status"`
	Principal  *Principal     `json:"principal,omitempty"`
	Profile    *ProfileRecord `json:"profile,omitempty"`
	IsComplete bool           `json:"isComplete"`
	Role       Role           `json:"role,omitempty"`
}
