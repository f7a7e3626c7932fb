package model

// Section labels reported by Merge for "what changed" highlighting
const (
	SectionPersonal      = "Personal Information"
	SectionFamily        = "Family"
	SectionExecutor      = "Executor"
	SectionGuardian      = "Guardian"
	SectionBeneficiaries = "Beneficiaries"
	SectionAssets        = "Assets"
	SectionDigitalAssets = "Digital Assets"
	SectionFinalWishes   = "Final Wishes"
	SectionBusiness      = "Business Interests"
)

// Merge folds a delta into the current facts.
// Scalars are only replaced by a different non-empty value; list items are
// appended unless already present by dedup key. The label names the first
// section touched in document order and is for display only.
func Merge(current Facts, delta Delta) (Facts, bool, string) {
	next := current.Clone()
	label := ""
	touch := func(section string) {
		if label == "" {
			label = section
		}
	}

	setScalar := func(dst *string, v string, section string) {
		if v != "" && v != *dst {
			*dst = v
			touch(section)
		}
	}

	setScalar(&next.FullName, delta.FullName, SectionPersonal)
	setScalar(&next.Address, delta.Address, SectionPersonal)
	setScalar(&next.City, delta.City, SectionPersonal)
	setScalar(&next.State, delta.State, SectionPersonal)
	setScalar(&next.PostalCode, delta.PostalCode, SectionPersonal)

	if delta.MaritalStatus != MaritalUnknown && delta.MaritalStatus != next.MaritalStatus {
		next.MaritalStatus = delta.MaritalStatus
		touch(SectionFamily)
	}
	setScalar(&next.SpouseName, delta.SpouseName, SectionFamily)
	for _, child := range delta.Children {
		if child != "" && !next.HasChild(child) {
			next.Children = append(next.Children, child)
			touch(SectionFamily)
		}
	}

	setScalar(&next.Executor, delta.Executor, SectionExecutor)
	setScalar(&next.AlternateExecutor, delta.AlternateExecutor, SectionExecutor)
	setScalar(&next.Guardian, delta.Guardian, SectionGuardian)
	setScalar(&next.AlternateGuardian, delta.AlternateGuardian, SectionGuardian)

	for _, b := range delta.Beneficiaries {
		if b != "" && !next.HasBeneficiary(b) {
			next.Beneficiaries = append(next.Beneficiaries, b)
			touch(SectionBeneficiaries)
		}
	}
	for _, a := range delta.Assets {
		if a.Description != "" && !next.HasAssetCategory(a.Category) {
			next.Assets = append(next.Assets, a)
			touch(SectionAssets)
		}
	}
	for _, d := range delta.DigitalAssets {
		if d.AssetType != "" && !next.HasDigitalAssetType(d.AssetType) {
			next.DigitalAssets = append(next.DigitalAssets, d)
			touch(SectionDigitalAssets)
		}
	}

	setScalar(&next.FuneralWishes, delta.FuneralWishes, SectionFinalWishes)
	setScalar(&next.BusinessName, delta.BusinessName, SectionBusiness)

	if label == "" {
		return current, false, ""
	}
	next.LastUpdatedField = label
	return next, true, label
}
