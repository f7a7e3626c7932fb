package roster

import (
	"fmt"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// ProblemKind classifies why a roster is incomplete
type ProblemKind int

const (
	ProblemMissingRole ProblemKind = iota // No contact holds a required role
	ProblemUnreachable                    // A required-role contact has no email or phone
)

// Problem is one reason a roster is incomplete
type Problem struct {
	Kind    ProblemKind
	Role    model.Role
	Contact model.Contact // Set for ProblemUnreachable
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemMissingRole:
		return fmt.Sprintf("missing required role: %s", p.Role)
	case ProblemUnreachable:
		return fmt.Sprintf("%s (%s) needs an email or phone number", p.Contact.Name, p.Role)
	default:
		return "unknown problem"
	}
}

// IncompleteError reports every problem blocking the contacts stage
type IncompleteError struct {
	Problems []Problem
}

func (e *IncompleteError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "contacts incomplete: " + strings.Join(parts, "; ")
}

// ParseRoles maps role labels onto roles, skipping blanks
func ParseRoles(labels []string) []model.Role {
	roles := make([]model.Role, 0, len(labels))
	for _, label := range labels {
		role := model.ParseRole(label)
		if role.IsZero() {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// Problems lists what keeps contacts from satisfying the required roles,
// in required-role order. An empty result means the roster is complete.
func Problems(contacts []model.Contact, required []model.Role) []Problem {
	var problems []Problem
	checked := make(map[string]bool)

	for _, role := range required {
		key := role.Key()
		if checked[key] {
			continue
		}
		checked[key] = true

		found := false
		for _, c := range contacts {
			if c.Role.Key() != key {
				continue
			}
			found = true
			if !c.Reachable() {
				problems = append(problems, Problem{Kind: ProblemUnreachable, Role: role, Contact: c})
			}
		}
		if !found {
			problems = append(problems, Problem{Kind: ProblemMissingRole, Role: role})
		}
	}
	return problems
}

// IsComplete reports whether every required role is held by at least one
// contact and every contact holding a required role is reachable.
// Role comparison is case-insensitive.
func IsComplete(contacts []model.Contact, required []model.Role) bool {
	return len(Problems(contacts, required)) == 0
}

// Check is IsComplete as an error, nil when complete
func Check(contacts []model.Contact, required []model.Role) error {
	if problems := Problems(contacts, required); len(problems) > 0 {
		return &IncompleteError{Problems: problems}
	}
	return nil
}

// CanRemove reports whether contact may be removed without leaving a
// required role empty
func CanRemove(contact model.Contact, all []model.Contact, required []model.Role) bool {
	key := contact.Role.Key()
	if !isRequired(key, required) {
		return true
	}

	skippedSelf := false
	for _, c := range all {
		if c.Role.Key() != key {
			continue
		}
		if !skippedSelf && sameContact(c, contact) {
			skippedSelf = true
			continue
		}
		return true
	}
	return false
}

func isRequired(key string, required []model.Role) bool {
	for _, r := range required {
		if r.Key() == key {
			return true
		}
	}
	return false
}

func sameContact(a, b model.Contact) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a == b
}
