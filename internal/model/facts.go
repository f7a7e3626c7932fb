package model

import "strings"

// MaritalStatus is the testator's current marital status
type MaritalStatus string

const (
	MaritalUnknown  MaritalStatus = ""
	MaritalSingle   MaritalStatus = "single"
	MaritalMarried  MaritalStatus = "married"
	MaritalDivorced MaritalStatus = "divorced"
	MaritalWidowed  MaritalStatus = "widowed"
)

// ParseMaritalStatus maps free text onto a known status (empty if unrecognized)
func ParseMaritalStatus(s string) MaritalStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return MaritalSingle
	case "married":
		return MaritalMarried
	case "divorced":
		return MaritalDivorced
	case "widowed":
		return MaritalWidowed
	default:
		return MaritalUnknown
	}
}

// AssetCategory classifies a tangible or financial asset
type AssetCategory string

const (
	AssetRealEstate       AssetCategory = "realEstate"
	AssetVehicle          AssetCategory = "vehicle"
	AssetFinancial        AssetCategory = "financial"
	AssetPersonalProperty AssetCategory = "personalProperty"
	AssetOther            AssetCategory = "other"
)

// Label returns the heading used when the category is rendered
func (c AssetCategory) Label() string {
	switch c {
	case AssetRealEstate:
		return "Real Estate"
	case AssetVehicle:
		return "Vehicles"
	case AssetFinancial:
		return "Financial Accounts"
	case AssetPersonalProperty:
		return "Personal Property"
	default:
		return "Other Property"
	}
}

// AssetEntry is one recognized asset mention
type AssetEntry struct {
	Category    AssetCategory `json:"category" yaml:"category"`
	Description string        `json:"description" yaml:"description"`
}

// DigitalAssetEntry is one recognized digital asset mention
type DigitalAssetEntry struct {
	AssetType string `json:"asset_type" yaml:"asset_type"` // e.g. "Cryptocurrency", "Social Media"
	Details   string `json:"details" yaml:"details"`
}

// Facts is everything learned about one will-in-progress.
// Scalars keep their last non-empty value; lists only grow.
type Facts struct {
	FullName      string        `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	MaritalStatus MaritalStatus `json:"marital_status,omitempty" yaml:"marital_status,omitempty"`
	SpouseName    string        `json:"spouse_name,omitempty" yaml:"spouse_name,omitempty"`

	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	City       string `json:"city,omitempty" yaml:"city,omitempty"`
	State      string `json:"state,omitempty" yaml:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`

	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	Executor          string `json:"executor,omitempty" yaml:"executor,omitempty"`
	AlternateExecutor string `json:"alternate_executor,omitempty" yaml:"alternate_executor,omitempty"`
	Guardian          string `json:"guardian,omitempty" yaml:"guardian,omitempty"`
	AlternateGuardian string `json:"alternate_guardian,omitempty" yaml:"alternate_guardian,omitempty"`

	Beneficiaries []string            `json:"beneficiaries,omitempty" yaml:"beneficiaries,omitempty"`
	Assets        []AssetEntry        `json:"assets,omitempty" yaml:"assets,omitempty"`
	DigitalAssets []DigitalAssetEntry `json:"digital_assets,omitempty" yaml:"digital_assets,omitempty"`

	FuneralWishes string `json:"funeral_wishes,omitempty" yaml:"funeral_wishes,omitempty"`
	BusinessName  string `json:"business_name,omitempty" yaml:"business_name,omitempty"`

	// LastUpdatedField is a display label only; no logic reads it
	LastUpdatedField string `json:"last_updated_field,omitempty" yaml:"last_updated_field,omitempty"`
}

// Delta is a partial update produced by analyzing one utterance.
// Empty fields carry no information.
type Delta struct {
	FullName      string        `json:"full_name,omitempty"`
	MaritalStatus MaritalStatus `json:"marital_status,omitempty"`
	SpouseName    string        `json:"spouse_name,omitempty"`

	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	Children []string `json:"children,omitempty"`

	Executor          string `json:"executor,omitempty"`
	AlternateExecutor string `json:"alternate_executor,omitempty"`
	Guardian          string `json:"guardian,omitempty"`
	AlternateGuardian string `json:"alternate_guardian,omitempty"`

	Beneficiaries []string            `json:"beneficiaries,omitempty"`
	Assets        []AssetEntry        `json:"assets,omitempty"`
	DigitalAssets []DigitalAssetEntry `json:"digital_assets,omitempty"`

	FuneralWishes string `json:"funeral_wishes,omitempty"`
	BusinessName  string `json:"business_name,omitempty"`
}

// IsEmpty reports whether the delta carries no information
func (d Delta) IsEmpty() bool {
	return d.FullName == "" && d.MaritalStatus == MaritalUnknown && d.SpouseName == "" &&
		d.Address == "" && d.City == "" && d.State == "" && d.PostalCode == "" &&
		len(d.Children) == 0 &&
		d.Executor == "" && d.AlternateExecutor == "" &&
		d.Guardian == "" && d.AlternateGuardian == "" &&
		len(d.Beneficiaries) == 0 && len(d.Assets) == 0 && len(d.DigitalAssets) == 0 &&
		d.FuneralWishes == "" && d.BusinessName == ""
}

// Clone returns a deep copy so callers can mutate lists freely
func (f Facts) Clone() Facts {
	out := f
	out.Children = append([]string(nil), f.Children...)
	out.Beneficiaries = append([]string(nil), f.Beneficiaries...)
	out.Assets = append([]AssetEntry(nil), f.Assets...)
	out.DigitalAssets = append([]DigitalAssetEntry(nil), f.DigitalAssets...)
	return out
}

// HasChild reports whether a child with this name is already known
func (f Facts) HasChild(name string) bool {
	return containsKey(f.Children, name)
}

// HasBeneficiary reports whether a beneficiary with this name is already known
func (f Facts) HasBeneficiary(name string) bool {
	return containsKey(f.Beneficiaries, name)
}

// HasAssetCategory reports whether an entry of this category exists
func (f Facts) HasAssetCategory(c AssetCategory) bool {
	for _, a := range f.Assets {
		if a.Category == c {
			return true
		}
	}
	return false
}

// HasDigitalAssetType reports whether an entry of this type exists
func (f Facts) HasDigitalAssetType(assetType string) bool {
	key := DedupKey(assetType)
	for _, a := range f.DigitalAssets {
		if DedupKey(a.AssetType) == key {
			return true
		}
	}
	return false
}

// DedupKey is the stable key used to de-duplicate list entries
func DedupKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func containsKey(list []string, item string) bool {
	key := DedupKey(item)
	for _, existing := range list {
		if DedupKey(existing) == key {
			return true
		}
	}
	return false
}
