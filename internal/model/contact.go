package model

import "strings"

// RoleKind is the closed vocabulary of contact roles
type RoleKind int

const (
	RoleOther RoleKind = iota // Free text, see Role.Other
	RoleExecutor
	RoleAlternateExecutor
	RoleGuardian
	RoleBeneficiary
	RoleWitness
	RoleAttorney
	RoleDigitalExecutor
	RoleFinancialAdvisor
	RoleMedicalRepresentative
	RoleTrustee
)

var roleNames = map[RoleKind]string{
	RoleExecutor:              "Executor",
	RoleAlternateExecutor:     "Alternate Executor",
	RoleGuardian:              "Guardian",
	RoleBeneficiary:           "Beneficiary",
	RoleWitness:               "Witness",
	RoleAttorney:              "Attorney",
	RoleDigitalExecutor:       "Digital Executor",
	RoleFinancialAdvisor:      "Financial Advisor",
	RoleMedicalRepresentative: "Medical Representative",
	RoleTrustee:               "Trustee",
}

// Role is a known role kind, or free text when Kind is RoleOther
type Role struct {
	Kind  RoleKind
	Other string
}

// ParseRole maps a role label onto the closed vocabulary (case-insensitive).
// Unknown labels are kept verbatim as an Other role.
func ParseRole(s string) Role {
	trimmed := strings.Join(strings.Fields(s), " ")
	for kind, name := range roleNames {
		if strings.EqualFold(trimmed, name) {
			return Role{Kind: kind}
		}
	}
	return Role{Kind: RoleOther, Other: trimmed}
}

// String returns the display label of the role
func (r Role) String() string {
	if r.Kind == RoleOther {
		return r.Other
	}
	return roleNames[r.Kind]
}

// Key is the comparison key used for required-role membership
func (r Role) Key() string {
	if r.Kind == RoleOther {
		return "other:" + strings.ToLower(r.Other)
	}
	return strings.ToLower(roleNames[r.Kind])
}

// IsZero reports whether no role was given
func (r Role) IsZero() bool {
	return r.Kind == RoleOther && r.Other == ""
}

// MarshalText encodes the role as its display label
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role label
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// Contact is one person relevant to the will
type Contact struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name" validate:"required,max=200"`
	Role    Role   `json:"role" yaml:"role"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty" validate:"omitempty,min=7,max=25"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Reachable reports whether the contact has an email or a phone number
func (c Contact) Reachable() bool {
	return strings.TrimSpace(c.Email) != "" || strings.TrimSpace(c.Phone) != ""
}
