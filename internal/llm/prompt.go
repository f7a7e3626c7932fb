package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// BuildSystemPrompt constructs the system prompt for the current stage
func BuildSystemPrompt(kind model.TemplateKind, stage model.Stage, facts model.Facts) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a patient estate-planning assistant helping someone draft a %s will through conversation.

RULES:
1. Ask one short question at a time, in plain language.
2. Never give legal advice and never claim the document is legally binding.
3. Do not ask again for anything listed under "Already collected".
4. Only record facts the person actually stated. Never guess names or places.
5. When the information stage has nothing left to ask, say exactly: "I have all the information I need for your will."

Current stage: %s
`, templateLabel(kind), stage)

	b.WriteString("\nAlready collected:\n")
	collected := collectedLines(facts)
	if len(collected) == 0 {
		b.WriteString("- (nothing yet)\n")
	}
	for _, line := range collected {
		b.WriteString("- " + line + "\n")
	}

	if stage == model.StageInformation {
		if missing := missingTopics(kind, facts); len(missing) > 0 {
			b.WriteString("\nStill needed, in this order:\n")
			for _, topic := range missing {
				b.WriteString("- " + topic.label + "\n")
			}
		}
	}

	b.WriteString(`
After your reply you MAY append one fenced block with facts from the person's latest message:
` + "```json" + `
{"full_name": "", "marital_status": "", "spouse_name": "", "city": "", "state": "", "children": [], "executor": "", "alternate_executor": "", "guardian": "", "beneficiaries": []}
` + "```" + `
Omit keys you did not hear. The block is removed before the person sees your reply.`)

	return b.String()
}

var hintBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseReply splits a raw model reply into the visible text and optional
// structured hints. A malformed hint block is dropped, never surfaced.
func ParseReply(raw string) (string, *model.Delta) {
	loc := hintBlock.FindStringSubmatchIndex(raw)
	if loc == nil {
		return strings.TrimSpace(raw), nil
	}

	visible := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])

	var hints model.Delta
	if err := json.Unmarshal([]byte(raw[loc[2]:loc[3]]), &hints); err != nil {
		return visible, nil
	}
	hints.MaritalStatus = model.ParseMaritalStatus(string(hints.MaritalStatus))
	if hints.IsEmpty() {
		return visible, nil
	}
	return visible, &hints
}

func templateLabel(kind model.TemplateKind) string {
	switch kind {
	case model.TemplateDigitalAssets:
		return "digital assets"
	case model.TemplateBusiness:
		return "business owner"
	case model.TemplateFamily:
		return "family"
	default:
		return "traditional"
	}
}

func collectedLines(f model.Facts) []string {
	var out []string
	add := func(label, v string) {
		if v != "" {
			out = append(out, label+": "+v)
		}
	}
	add("Full name", f.FullName)
	add("Marital status", string(f.MaritalStatus))
	add("Spouse", f.SpouseName)
	add("City", f.City)
	add("State", f.State)
	if len(f.Children) > 0 {
		add("Children", strings.Join(f.Children, ", "))
	}
	add("Executor", f.Executor)
	add("Alternate executor", f.AlternateExecutor)
	add("Guardian", f.Guardian)
	if len(f.Beneficiaries) > 0 {
		add("Beneficiaries", strings.Join(f.Beneficiaries, ", "))
	}
	for _, a := range f.Assets {
		add(a.Category.Label(), a.Description)
	}
	for _, d := range f.DigitalAssets {
		add(d.AssetType, d.Details)
	}
	add("Business", f.BusinessName)
	add("Funeral wishes", f.FuneralWishes)
	return out
}
