package roster

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/testament/internal/model"
)

var executorOnly = []model.Role{{Kind: model.RoleExecutor}}

func TestIsComplete_MissingRequiredRole(t *testing.T) {
	contacts := []model.Contact{
		{Name: "Ann Lee", Role: model.ParseRole("Beneficiary"), Email: "a@x.com"},
	}

	if IsComplete(contacts, executorOnly) {
		t.Error("Expected incomplete roster when executor is missing")
	}

	problems := Problems(contacts, executorOnly)
	if len(problems) != 1 || problems[0].Kind != ProblemMissingRole {
		t.Errorf("Expected one missing-role problem, got %v", problems)
	}
}

func TestIsComplete_UnreachableRequiredContact(t *testing.T) {
	contacts := []model.Contact{
		{Name: "Mary Jones", Role: model.ParseRole("Executor")},
	}

	if IsComplete(contacts, executorOnly) {
		t.Error("Expected incomplete roster when executor has no email or phone")
	}

	problems := Problems(contacts, executorOnly)
	if len(problems) != 1 || problems[0].Kind != ProblemUnreachable {
		t.Errorf("Expected one unreachable problem, got %v", problems)
	}
}

func TestIsComplete_Satisfied(t *testing.T) {
	contacts := []model.Contact{
		{Name: "Mary Jones", Role: model.ParseRole("executor"), Phone: "555-0100"},
		{Name: "Ann Lee", Role: model.ParseRole("Beneficiary")},
	}

	if !IsComplete(contacts, executorOnly) {
		t.Errorf("Expected complete roster, got problems %v", Problems(contacts, executorOnly))
	}
	if err := Check(contacts, executorOnly); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestIsComplete_EveryRequiredContactMustBeReachable(t *testing.T) {
	contacts := []model.Contact{
		{Name: "Mary Jones", Role: model.ParseRole("Executor"), Email: "m@x.com"},
		{Name: "Tom Brown", Role: model.ParseRole("Executor")},
	}

	if IsComplete(contacts, executorOnly) {
		t.Error("Expected incomplete roster when any executor is unreachable")
	}
}

func TestIsComplete_FreeTextRoles(t *testing.T) {
	required := ParseRoles([]string{"Executor", "Pet Caretaker", ""})
	if len(required) != 2 {
		t.Fatalf("Expected blank labels to be skipped, got %d roles", len(required))
	}

	contacts := []model.Contact{
		{Name: "Mary Jones", Role: model.ParseRole("Executor"), Email: "m@x.com"},
		{Name: "Sam Park", Role: model.ParseRole("pet caretaker"), Phone: "555-0101"},
	}
	if !IsComplete(contacts, required) {
		t.Errorf("Expected free-text role match to be case-insensitive, got %v", Problems(contacts, required))
	}
}

func TestCheck_IncompleteError(t *testing.T) {
	err := Check(nil, executorOnly)

	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Expected *IncompleteError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Executor") {
		t.Errorf("Expected error to name the missing role, got '%s'", err.Error())
	}
}

func TestCanRemove(t *testing.T) {
	executor := model.Contact{ID: "1", Name: "Mary Jones", Role: model.ParseRole("Executor"), Email: "m@x.com"}
	witness := model.Contact{ID: "2", Name: "Ann Lee", Role: model.ParseRole("Witness")}
	second := model.Contact{ID: "3", Name: "Tom Brown", Role: model.ParseRole("Executor"), Phone: "555-0100"}

	if CanRemove(executor, []model.Contact{executor, witness}, executorOnly) {
		t.Error("Expected sole executor not to be removable")
	}
	if !CanRemove(witness, []model.Contact{executor, witness}, executorOnly) {
		t.Error("Expected non-required contact to be removable")
	}
	if !CanRemove(executor, []model.Contact{executor, second}, executorOnly) {
		t.Error("Expected executor to be removable when another executor exists")
	}
}

func TestRoster_AddValidatesAndAssignsID(t *testing.T) {
	r := New(executorOnly)

	c, err := r.Add(model.Contact{Name: " Mary Jones ", Role: model.ParseRole("Executor"), Email: "m@x.com"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if c.ID == "" {
		t.Error("Expected an ID to be assigned")
	}
	if c.Name != "Mary Jones" {
		t.Errorf("Expected trimmed name, got '%s'", c.Name)
	}
	if !r.Complete() {
		t.Error("Expected roster to be complete")
	}

	if _, err := r.Add(model.Contact{Name: "Bad Email", Role: model.ParseRole("Witness"), Email: "not-an-email"}); err == nil {
		t.Error("Expected invalid email to be rejected")
	}
	if _, err := r.Add(model.Contact{Role: model.ParseRole("Witness"), Phone: "555-0100"}); err == nil {
		t.Error("Expected missing name to be rejected")
	}
	if _, err := r.Add(model.Contact{Name: "No Role"}); !errors.Is(err, ErrRoleRequired) {
		t.Errorf("Expected ErrRoleRequired, got %v", err)
	}
}

func TestRoster_RemoveGuard(t *testing.T) {
	r := New(executorOnly)
	executor, _ := r.Add(model.Contact{Name: "Mary Jones", Role: model.ParseRole("Executor"), Email: "m@x.com"})

	if err := r.Remove(executor.ID); !errors.Is(err, ErrLastOfRequiredRole) {
		t.Errorf("Expected ErrLastOfRequiredRole, got %v", err)
	}
	if err := r.Remove("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	backup, _ := r.Add(model.Contact{Name: "Tom Brown", Role: model.ParseRole("Executor"), Phone: "555-0100"})
	if err := r.Remove(executor.ID); err != nil {
		t.Errorf("Expected removal with a second executor, got %v", err)
	}
	if len(r.Contacts()) != 1 || r.Contacts()[0].ID != backup.ID {
		t.Errorf("Expected only the backup executor to remain, got %v", r.Contacts())
	}
}

func TestRoster_UpdateCannotOrphanRequiredRole(t *testing.T) {
	r := New(executorOnly)
	executor, _ := r.Add(model.Contact{Name: "Mary Jones", Role: model.ParseRole("Executor"), Email: "m@x.com"})

	executor.Role = model.ParseRole("Witness")
	if err := r.Update(executor); !errors.Is(err, ErrLastOfRequiredRole) {
		t.Errorf("Expected ErrLastOfRequiredRole, got %v", err)
	}

	executor.Role = model.ParseRole("Executor")
	executor.Email = ""
	executor.Phone = "555-0199"
	if err := r.Update(executor); err != nil {
		t.Errorf("Expected update to succeed, got %v", err)
	}
	if r.Contacts()[0].Phone != "555-0199" {
		t.Error("Expected phone to be updated")
	}
}
