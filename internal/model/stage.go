package model

import (
	"fmt"
	"strings"
)

// Stage is one phase of the guided collection pipeline
type Stage int

const (
	StageInformation Stage = iota
	StageContacts
	StageDocuments
	StageVideo
	StageReview
)

// Stages lists every stage in pipeline order
var Stages = []Stage{StageInformation, StageContacts, StageDocuments, StageVideo, StageReview}

func (s Stage) String() string {
	switch s {
	case StageInformation:
		return "information"
	case StageContacts:
		return "contacts"
	case StageDocuments:
		return "documents"
	case StageVideo:
		return "video"
	case StageReview:
		return "review"
	default:
		return "unknown"
	}
}

// ParseStage maps a stage name onto a Stage
func ParseStage(s string) (Stage, bool) {
	for _, st := range Stages {
		if strings.EqualFold(strings.TrimSpace(s), st.String()) {
			return st, true
		}
	}
	return StageInformation, false
}

// MarshalText encodes the stage name
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name
func (s *Stage) UnmarshalText(text []byte) error {
	st, ok := ParseStage(string(text))
	if !ok {
		return fmt.Errorf("unknown stage %q", text)
	}
	*s = st
	return nil
}

// TemplateKind selects the article layout of the rendered will
type TemplateKind string

const (
	TemplateTraditional   TemplateKind = "traditional"
	TemplateDigitalAssets TemplateKind = "digital-assets"
	TemplateBusiness      TemplateKind = "business"
	TemplateFamily        TemplateKind = "family"
)

// TemplateKinds lists the supported templates
var TemplateKinds = []TemplateKind{TemplateTraditional, TemplateDigitalAssets, TemplateBusiness, TemplateFamily}

// ParseTemplateKind normalizes a template name, falling back to traditional
func ParseTemplateKind(s string) TemplateKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "digital-assets", "digital_assets", "digital":
		return TemplateDigitalAssets
	case "business":
		return TemplateBusiness
	case "family":
		return TemplateFamily
	default:
		return TemplateTraditional
	}
}
