package model

import "testing"

func TestMerge_ScalarsNeverBlank(t *testing.T) {
	current := Facts{FullName: "Jane Smith", Executor: "Mary Jones"}

	next, changed, label := Merge(current, Delta{})
	if changed {
		t.Error("Expected empty delta to report no change")
	}
	if label != "" {
		t.Errorf("Expected empty label, got '%s'", label)
	}
	if next.FullName != "Jane Smith" || next.Executor != "Mary Jones" {
		t.Errorf("Expected known fields to survive, got %+v", next)
	}
}

func TestMerge_ScalarReplacedByNonEmpty(t *testing.T) {
	current := Facts{Executor: "Mary Jones"}

	next, changed, label := Merge(current, Delta{Executor: "Tom Brown"})
	if !changed {
		t.Fatal("Expected change")
	}
	if next.Executor != "Tom Brown" {
		t.Errorf("Expected executor 'Tom Brown', got '%s'", next.Executor)
	}
	if label != SectionExecutor {
		t.Errorf("Expected label '%s', got '%s'", SectionExecutor, label)
	}
	if next.LastUpdatedField != SectionExecutor {
		t.Errorf("Expected last updated field '%s', got '%s'", SectionExecutor, next.LastUpdatedField)
	}
	if current.Executor != "Mary Jones" {
		t.Error("Expected merge not to mutate its input")
	}
}

func TestMerge_ListsAppendAndDedup(t *testing.T) {
	current := Facts{Children: []string{"Amy"}}
	delta := Delta{Children: []string{"amy", "Ben", "Ben"}}

	next, changed, _ := Merge(current, delta)
	if !changed {
		t.Fatal("Expected change")
	}
	if len(next.Children) != 2 {
		t.Fatalf("Expected 2 children, got %v", next.Children)
	}
	if next.Children[0] != "Amy" || next.Children[1] != "Ben" {
		t.Errorf("Expected [Amy Ben], got %v", next.Children)
	}
	if len(current.Children) != 1 {
		t.Error("Expected input list to be untouched")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	delta := Delta{
		FullName:      "Jane Smith",
		MaritalStatus: MaritalMarried,
		SpouseName:    "John Smith",
		Children:      []string{"Amy"},
		Assets:        []AssetEntry{{Category: AssetVehicle, Description: "a truck"}},
		DigitalAssets: []DigitalAssetEntry{{AssetType: "Cryptocurrency", Details: "bitcoin"}},
	}

	once, _, _ := Merge(Facts{}, delta)
	twice, changed, _ := Merge(once, delta)
	if changed {
		t.Error("Expected second merge to report no change")
	}
	if len(twice.Children) != 1 || len(twice.Assets) != 1 || len(twice.DigitalAssets) != 1 {
		t.Errorf("Expected no duplicate entries, got %+v", twice)
	}
}

func TestMerge_AssetCategoryDedup(t *testing.T) {
	current := Facts{Assets: []AssetEntry{{Category: AssetRealEstate, Description: "our house"}}}

	next, changed, _ := Merge(current, Delta{Assets: []AssetEntry{{Category: AssetRealEstate, Description: "a cabin"}}})
	if changed {
		t.Error("Expected existing category not to be appended")
	}
	if len(next.Assets) != 1 {
		t.Errorf("Expected 1 asset, got %d", len(next.Assets))
	}
}

func TestMerge_LabelFollowsDocumentOrder(t *testing.T) {
	_, _, label := Merge(Facts{}, Delta{Executor: "Mary Jones", FullName: "Jane Smith"})
	if label != SectionPersonal {
		t.Errorf("Expected label '%s', got '%s'", SectionPersonal, label)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		kind  RoleKind
		label string
	}{
		{"Executor", RoleExecutor, "Executor"},
		{"executor", RoleExecutor, "Executor"},
		{"  alternate   executor ", RoleAlternateExecutor, "Alternate Executor"},
		{"GUARDIAN", RoleGuardian, "Guardian"},
		{"Neighbor", RoleOther, "Neighbor"},
	}

	for _, tt := range tests {
		role := ParseRole(tt.input)
		if role.Kind != tt.kind {
			t.Errorf("ParseRole(%q): expected kind %d, got %d", tt.input, tt.kind, role.Kind)
		}
		if role.String() != tt.label {
			t.Errorf("ParseRole(%q): expected label '%s', got '%s'", tt.input, tt.label, role.String())
		}
	}

	if ParseRole("neighbor").Key() != ParseRole("Neighbor").Key() {
		t.Error("Expected free-text role keys to be case-insensitive")
	}
	if ParseRole("Executor").Key() == ParseRole("Other").Key() {
		t.Error("Expected distinct keys for distinct roles")
	}
}

func TestParseTemplateKind(t *testing.T) {
	if ParseTemplateKind("digital_assets") != TemplateDigitalAssets {
		t.Error("Expected digital_assets alias")
	}
	if ParseTemplateKind("nonsense") != TemplateTraditional {
		t.Error("Expected unknown template to fall back to traditional")
	}
}
