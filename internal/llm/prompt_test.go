package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/testament/internal/model"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantReply string
		wantHints bool
	}{
		{
			name:      "plain",
			raw:       "  What is your name?  ",
			wantReply: "What is your name?",
		},
		{
			name:      "hint block",
			raw:       "Got it.\n```json\n{\"executor\": \"Bob Smith\"}\n```",
			wantReply: "Got it.",
			wantHints: true,
		},
		{
			name:      "malformed block is dropped",
			raw:       "Got it.\n```json\n{executor: Bob}\n```",
			wantReply: "Got it.",
		},
		{
			name:      "empty block",
			raw:       "Okay.\n```json\n{}\n```",
			wantReply: "Okay.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, hints := ParseReply(tt.raw)
			if reply != tt.wantReply {
				t.Errorf("Expected reply %q, got %q", tt.wantReply, reply)
			}
			if (hints != nil) != tt.wantHints {
				t.Errorf("Expected hints=%v, got %+v", tt.wantHints, hints)
			}
		})
	}
}

func TestParseReply_UnknownMaritalStatusIsDropped(t *testing.T) {
	_, hints := ParseReply("```json\n{\"marital_status\": \"it's complicated\", \"full_name\": \"Jane Doe\"}\n```")
	if hints == nil {
		t.Fatal("Expected hints")
	}
	if hints.MaritalStatus != model.MaritalUnknown {
		t.Errorf("Expected unknown marital status, got %q", hints.MaritalStatus)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(model.TemplateDigitalAssets, model.StageInformation, model.Facts{FullName: "Jane Doe"})

	for _, want := range []string{"digital assets will", "Full name: Jane Doe", "digital assets\n", "I have all the information"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "- full legal name") {
		t.Error("Expected collected name to be left out of the still-needed list")
	}
}

func TestNextQuestion(t *testing.T) {
	facts := model.Facts{}
	if q := NextQuestion(model.TemplateTraditional, model.StageInformation, facts); !strings.Contains(q, "full legal name") {
		t.Errorf("Expected name question first, got %q", q)
	}

	facts = model.Facts{FullName: "Jane Doe", City: "Springfield", MaritalStatus: model.MaritalMarried}
	if q := NextQuestion(model.TemplateTraditional, model.StageInformation, facts); !strings.Contains(q, "spouse") {
		t.Errorf("Expected spouse question for a married testator, got %q", q)
	}

	facts.MaritalStatus = model.MaritalSingle
	if q := NextQuestion(model.TemplateTraditional, model.StageInformation, facts); strings.Contains(q, "spouse") {
		t.Errorf("Expected no spouse question for a single testator, got %q", q)
	}

	complete := model.Facts{
		FullName:          "Jane Doe",
		City:              "Springfield",
		MaritalStatus:     model.MaritalSingle,
		Children:          []string{"Amy"},
		Executor:          "Bob",
		AlternateExecutor: "Carol",
		Guardian:          "Dan",
		Beneficiaries:     []string{"Amy"},
		Assets:            []model.AssetEntry{{Category: model.AssetRealEstate, Description: "house"}},
		FuneralWishes:     "cremation",
	}
	if q := NextQuestion(model.TemplateTraditional, model.StageInformation, complete); q != InformationComplete {
		t.Errorf("Expected completion reply, got %q", q)
	}
	if q := NextQuestion(model.TemplateBusiness, model.StageInformation, complete); !strings.Contains(q, "business") {
		t.Errorf("Expected business question for the business template, got %q", q)
	}
	if q := NextQuestion(model.TemplateTraditional, model.StageContacts, complete); !strings.Contains(q, "executor") {
		t.Errorf("Expected contacts prompt, got %q", q)
	}
}

func TestInformationCompleteMatchesDefaultPhrase(t *testing.T) {
	lower := strings.ToLower(InformationComplete)
	for _, phrase := range model.DefaultCompletionPhrases {
		if strings.Contains(lower, phrase) {
			return
		}
	}
	t.Error("Expected offline completion reply to contain a default completion phrase")
}

// factProgression walks the information topics in order, one answer at a time
func factProgression() []model.Facts {
	steps := []func(*model.Facts){
		func(f *model.Facts) { f.FullName = "Jane Doe" },
		func(f *model.Facts) { f.City, f.State = "Austin", "TX" },
		func(f *model.Facts) { f.MaritalStatus = model.MaritalMarried },
		func(f *model.Facts) { f.SpouseName = "John Doe" },
		func(f *model.Facts) { f.Children = []string{"Amy"} },
		func(f *model.Facts) { f.Executor = "Bob Stone" },
		func(f *model.Facts) { f.AlternateExecutor = "Carol Stone" },
		func(f *model.Facts) { f.Guardian = "Dan Stone" },
		func(f *model.Facts) { f.BusinessName = "Doe Bakery" },
		func(f *model.Facts) { f.Beneficiaries = []string{"Amy"} },
		func(f *model.Facts) {
			f.Assets = []model.AssetEntry{{Category: model.AssetRealEstate, Description: "a house"}}
		},
		func(f *model.Facts) {
			f.DigitalAssets = []model.DigitalAssetEntry{{AssetType: "Cryptocurrency", Details: "bitcoin"}}
		},
		func(f *model.Facts) { f.FuneralWishes = "cremation" },
	}

	var f model.Facts
	out := []model.Facts{f}
	for _, step := range steps {
		step(&f)
		out = append(out, f.Clone())
	}
	return out
}

func TestNextQuestion_EveryPromptIsAQuestion(t *testing.T) {
	kinds := []model.TemplateKind{model.TemplateTraditional, model.TemplateFamily, model.TemplateBusiness, model.TemplateDigitalAssets}
	stages := []model.Stage{model.StageInformation, model.StageContacts, model.StageDocuments, model.StageVideo, model.StageReview}

	for _, kind := range kinds {
		for _, stage := range stages {
			for i, facts := range factProgression() {
				q := NextQuestion(kind, stage, facts)
				if !strings.HasSuffix(q, "?") {
					t.Errorf("Expected %s/%s step %d to end as a question, got %q", kind, stage, i, q)
				}
			}
		}
	}
}
