package llm

import "github.com/ppiankov/testament/internal/model"

// InformationComplete is the offline reply once nothing is left to ask.
// It contains a default completion phrase so the stage heuristic fires.
const InformationComplete = "I have all the information I need for your will. Shall we move on to the contacts?"

type topic struct {
	label    string
	question string
	missing  func(model.Facts) bool
	applies  func(model.TemplateKind, model.Facts) bool
}

var always = func(model.TemplateKind, model.Facts) bool { return true }

var topics = []topic{
	{
		label:    "full legal name",
		question: "Let's start with the basics. What is your full legal name?",
		missing:  func(f model.Facts) bool { return f.FullName == "" },
		applies:  always,
	},
	{
		label:    "city and state of residence",
		question: "Where do you live? Could you give your street address with city and state?",
		missing:  func(f model.Facts) bool { return f.City == "" && f.State == "" && f.Address == "" },
		applies:  always,
	},
	{
		label:    "marital status",
		question: "Are you currently single, married, divorced, or widowed?",
		missing:  func(f model.Facts) bool { return f.MaritalStatus == model.MaritalUnknown },
		applies:  always,
	},
	{
		label:    "spouse's name",
		question: "What is your spouse's full name?",
		missing:  func(f model.Facts) bool { return f.SpouseName == "" },
		applies: func(_ model.TemplateKind, f model.Facts) bool {
			return f.MaritalStatus == model.MaritalMarried
		},
	},
	{
		label:    "children",
		question: "Do you have any children? If so, what are their names?",
		missing:  func(f model.Facts) bool { return len(f.Children) == 0 },
		applies:  always,
	},
	{
		label:    "executor",
		question: "Who would you like to name as the executor of your will?",
		missing:  func(f model.Facts) bool { return f.Executor == "" },
		applies:  always,
	},
	{
		label:    "alternate executor",
		question: "If your executor can't serve, who should act as the alternate executor?",
		missing:  func(f model.Facts) bool { return f.AlternateExecutor == "" },
		applies:  always,
	},
	{
		label:    "guardian for minor children",
		question: "Who should be guardian of your minor children?",
		missing:  func(f model.Facts) bool { return f.Guardian == "" },
		applies: func(kind model.TemplateKind, f model.Facts) bool {
			return len(f.Children) > 0 || kind == model.TemplateFamily
		},
	},
	{
		label:    "name of the business",
		question: "What is the name of your business?",
		missing:  func(f model.Facts) bool { return f.BusinessName == "" },
		applies: func(kind model.TemplateKind, _ model.Facts) bool {
			return kind == model.TemplateBusiness
		},
	},
	{
		label:    "beneficiaries",
		question: "Who should inherit your estate?",
		missing:  func(f model.Facts) bool { return len(f.Beneficiaries) == 0 },
		applies:  always,
	},
	{
		label:    "significant assets",
		question: "Do you have any significant assets you want to mention, such as a home, vehicles, bank or investment accounts, or valuables?",
		missing:  func(f model.Facts) bool { return len(f.Assets) == 0 },
		applies:  always,
	},
	{
		label:    "digital assets",
		question: "Do you have digital assets such as cryptocurrency, online accounts, social media, or cloud storage?",
		missing:  func(f model.Facts) bool { return len(f.DigitalAssets) == 0 },
		applies: func(kind model.TemplateKind, _ model.Facts) bool {
			return kind == model.TemplateDigitalAssets
		},
	},
	{
		label:    "funeral wishes",
		question: "Finally, do you have any wishes for your funeral, burial, or cremation?",
		missing:  func(f model.Facts) bool { return f.FuneralWishes == "" },
		applies:  always,
	},
}

func missingTopics(kind model.TemplateKind, facts model.Facts) []topic {
	var out []topic
	for _, t := range topics {
		if t.applies(kind, facts) && t.missing(facts) {
			out = append(out, t)
		}
	}
	return out
}

// NextQuestion returns a deterministic assistant turn for the given state.
// It is used when no model provider is configured or the provider fails.
// Every prompt ends as a question so the extractor never reads it as a fact.
func NextQuestion(kind model.TemplateKind, stage model.Stage, facts model.Facts) string {
	switch stage {
	case model.StageInformation:
		if missing := missingTopics(kind, facts); len(missing) > 0 {
			return missing[0].question
		}
		return InformationComplete
	case model.StageContacts:
		return "Who should we add as a contact first? Your executor needs an email address or phone number so they can be reached, so could you add those details?"
	case model.StageDocuments:
		return "Would you like to attach supporting documents such as deeds, account statements, or insurance policies, or skip this step?"
	case model.StageVideo:
		return "Would you like to record a short video statement to accompany your will, or skip this step?"
	default:
		return "Does everything in your will look right, or is there anything you would like me to change?"
	}
}
