package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ppiankov/testament/internal/model"
)

var (
	// ErrNotFound is returned when no contact has the given ID
	ErrNotFound = errors.New("contact not found")

	// ErrRoleRequired is returned when a contact has no role
	ErrRoleRequired = errors.New("contact role is required")

	// ErrLastOfRequiredRole is returned when removing or re-roling the
	// only contact of a required role
	ErrLastOfRequiredRole = errors.New("cannot remove the only contact for a required role")
)

// Roster is the editable contact list of one will. It is not safe for
// concurrent use; the session serializes access.
type Roster struct {
	required []model.Role
	contacts []model.Contact
	validate *validator.Validate
}

// New creates an empty roster with the given required roles
func New(required []model.Role) *Roster {
	return &Roster{
		required: append([]model.Role(nil), required...),
		validate: validator.New(),
	}
}

// Load replaces the roster contents, e.g. after restoring a saved will.
// Contacts without an ID are assigned one.
func (r *Roster) Load(contacts []model.Contact) {
	r.contacts = make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		r.contacts = append(r.contacts, c)
	}
}

// Add validates and appends a contact, assigning it an ID
func (r *Roster) Add(c model.Contact) (model.Contact, error) {
	c = normalize(c)
	if err := r.check(c); err != nil {
		return model.Contact{}, err
	}
	c.ID = uuid.NewString()
	r.contacts = append(r.contacts, c)
	return c, nil
}

// Update replaces the contact with the same ID. Changing the role of the
// only contact of a required role is refused like a removal.
func (r *Roster) Update(c model.Contact) error {
	c = normalize(c)
	if err := r.check(c); err != nil {
		return err
	}
	idx := r.index(c.ID)
	if idx < 0 {
		return ErrNotFound
	}
	existing := r.contacts[idx]
	if existing.Role.Key() != c.Role.Key() && !CanRemove(existing, r.contacts, r.required) {
		return ErrLastOfRequiredRole
	}
	r.contacts[idx] = c
	return nil
}

// Remove deletes a contact unless it is the last holder of a required role
func (r *Roster) Remove(id string) error {
	idx := r.index(id)
	if idx < 0 {
		return ErrNotFound
	}
	if !CanRemove(r.contacts[idx], r.contacts, r.required) {
		return ErrLastOfRequiredRole
	}
	r.contacts = append(r.contacts[:idx], r.contacts[idx+1:]...)
	return nil
}

// Contacts returns a copy of the contacts
func (r *Roster) Contacts() []model.Contact {
	return append([]model.Contact(nil), r.contacts...)
}

// Required returns the required roles
func (r *Roster) Required() []model.Role {
	return append([]model.Role(nil), r.required...)
}

// Complete reports whether the roster satisfies its required roles
func (r *Roster) Complete() bool {
	return IsComplete(r.contacts, r.required)
}

// Check returns an *IncompleteError when the roster is not complete
func (r *Roster) Check() error {
	return Check(r.contacts, r.required)
}

func (r *Roster) check(c model.Contact) error {
	if c.Role.IsZero() {
		return ErrRoleRequired
	}
	if err := r.validate.Struct(c); err != nil {
		return fmt.Errorf("invalid contact: %w", err)
	}
	return nil
}

func (r *Roster) index(id string) int {
	for i, c := range r.contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func normalize(c model.Contact) model.Contact {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	return c
}
