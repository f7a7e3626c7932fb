package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// Placeholders stand in for unknown facts
const (
	PlaceholderName              = "[YOUR NAME]"
	PlaceholderCityState         = "[CITY, STATE]"
	PlaceholderMaritalStatus     = "[MARITAL STATUS]"
	PlaceholderSpouse            = "[SPOUSE NAME]"
	PlaceholderChildren          = "[CHILDREN, IF ANY]"
	PlaceholderExecutor          = "[EXECUTOR NAME]"
	PlaceholderAlternateExecutor = "[ALTERNATE EXECUTOR NAME]"
	PlaceholderBeneficiaries     = "[BENEFICIARY NAMES]"
	PlaceholderBusiness          = "[BUSINESS NAME]"
)

// articleSpec is one row of a template table: a condition and a builder.
// A nil condition means the article is always present.
type articleSpec struct {
	key   string
	title string
	when  func(model.Facts) bool
	build func(model.Facts) (body string, items []string)
}

// template is the ordered article table of one template kind
type template struct {
	kind     model.TemplateKind
	title    string
	articles []articleSpec
}

// Conditions
func hasGuardian(f model.Facts) bool      { return f.Guardian != "" }
func hasAssets(f model.Facts) bool        { return len(f.Assets) > 0 }
func hasDigitalAssets(f model.Facts) bool { return len(f.DigitalAssets) > 0 }
func hasFuneralWishes(f model.Facts) bool { return f.FuneralWishes != "" }
func hasChildren(f model.Facts) bool      { return len(f.Children) > 0 }

var (
	revocationArticle = articleSpec{
		key:   "revocation",
		title: "Revocation of Prior Wills",
		build: func(f model.Facts) (string, []string) {
			return "I hereby revoke all wills and codicils previously made by me.", nil
		},
	}

	familyArticle = articleSpec{
		key:   "family",
		title: "Family Information",
		build: func(f model.Facts) (string, []string) {
			return maritalClause(f) + " " + childrenClause(f), nil
		},
	}

	executorArticle = articleSpec{
		key:   "executor",
		title: "Executor",
		build: func(f model.Facts) (string, []string) {
			executor := orPlaceholder(f.Executor, PlaceholderExecutor)
			body := fmt.Sprintf("I appoint %s as Executor of this Will.", executor)
			alternate := orPlaceholder(f.AlternateExecutor, PlaceholderAlternateExecutor)
			body += fmt.Sprintf(" If %s is unable or unwilling to serve, I appoint %s as alternate Executor.", executor, alternate)
			return body + " My Executor shall have full power to administer my estate without court supervision to the extent permitted by law.", nil
		},
	}

	guardianArticle = articleSpec{
		key:   "guardian",
		title: "Guardian",
		when:  hasGuardian,
		build: func(f model.Facts) (string, []string) {
			body := fmt.Sprintf("If any child of mine is a minor at my death, I appoint %s as guardian of the person and property of that child.", f.Guardian)
			if f.AlternateGuardian != "" {
				body += fmt.Sprintf(" If %s cannot serve, I appoint %s as alternate guardian.", f.Guardian, f.AlternateGuardian)
			}
			return body, nil
		},
	}

	bequestsArticle = articleSpec{
		key:   "bequests",
		title: "Specific Bequests",
		when:  hasAssets,
		build: func(f model.Facts) (string, []string) {
			items := make([]string, 0, len(f.Assets))
			for _, a := range f.Assets {
				items = append(items, a.Category.Label()+": "+a.Description)
			}
			return "I direct that the following property be distributed as I have described:", items
		},
	}

	digitalArticle = articleSpec{
		key:   "digital-assets",
		title: "Digital Assets",
		when:  hasDigitalAssets,
		build: func(f model.Facts) (string, []string) {
			items := make([]string, 0, len(f.DigitalAssets))
			for _, d := range f.DigitalAssets {
				items = append(items, d.AssetType+": "+d.Details)
			}
			return "I direct my Executor to handle my digital assets as follows:", items
		},
	}

	digitalAccessArticle = articleSpec{
		key:   "digital-access",
		title: "Access to Digital Accounts",
		build: func(f model.Facts) (string, []string) {
			return "I authorize my Executor to access my electronic communications, online accounts and stored digital content " +
				"to the extent permitted by law, and to retain, transfer or close them as my Executor sees fit.", nil
		},
	}

	businessArticle = articleSpec{
		key:   "business",
		title: "Business Interests",
		build: func(f model.Facts) (string, []string) {
			business := orPlaceholder(f.BusinessName, PlaceholderBusiness)
			return fmt.Sprintf("I direct my Executor to manage my ownership interest in %s until it is sold or transferred, "+
				"and authorize my Executor to continue its operation in the ordinary course in the meantime.", business), nil
		},
	}

	childrenArticle = articleSpec{
		key:   "children",
		title: "Provisions for Children",
		when:  hasChildren,
		build: func(f model.Facts) (string, []string) {
			return fmt.Sprintf("Any share of my estate passing to %s while under the age of twenty-five shall be held in trust "+
				"and used for their health, education and support.", inlineList(f.Children)), nil
		},
	}

	distributionArticle = articleSpec{
		key:   "distribution",
		title: "Distribution of Property",
		build: func(f model.Facts) (string, []string) {
			return distributionClause(f), nil
		},
	}

	finalWishesArticle = articleSpec{
		key:   "final-wishes",
		title: "Final Wishes",
		when:  hasFuneralWishes,
		build: func(f model.Facts) (string, []string) {
			return "I express the following wishes regarding my funeral and remains: " + f.FuneralWishes, nil
		},
	}

	generalArticle = articleSpec{
		key:   "general",
		title: "General Provisions",
		build: func(f model.Facts) (string, []string) {
			return "If any provision of this Will is held invalid, the remaining provisions shall continue in full force and effect.", nil
		},
	}
)

var templates = map[model.TemplateKind]template{
	model.TemplateTraditional: {
		kind:  model.TemplateTraditional,
		title: "LAST WILL AND TESTAMENT",
		articles: []articleSpec{
			revocationArticle,
			familyArticle,
			executorArticle,
			guardianArticle,
			bequestsArticle,
			digitalArticle,
			distributionArticle,
			finalWishesArticle,
			generalArticle,
		},
	},
	model.TemplateDigitalAssets: {
		kind:  model.TemplateDigitalAssets,
		title: "LAST WILL AND TESTAMENT",
		articles: []articleSpec{
			revocationArticle,
			familyArticle,
			executorArticle,
			guardianArticle,
			bequestsArticle,
			digitalArticle,
			digitalAccessArticle,
			distributionArticle,
			finalWishesArticle,
			generalArticle,
		},
	},
	model.TemplateBusiness: {
		kind:  model.TemplateBusiness,
		title: "LAST WILL AND TESTAMENT",
		articles: []articleSpec{
			revocationArticle,
			familyArticle,
			executorArticle,
			businessArticle,
			guardianArticle,
			bequestsArticle,
			digitalArticle,
			distributionArticle,
			finalWishesArticle,
			generalArticle,
		},
	},
	model.TemplateFamily: {
		kind:  model.TemplateFamily,
		title: "LAST WILL AND TESTAMENT",
		articles: []articleSpec{
			revocationArticle,
			familyArticle,
			guardianArticle,
			executorArticle,
			childrenArticle,
			bequestsArticle,
			digitalArticle,
			distributionArticle,
			finalWishesArticle,
			generalArticle,
		},
	},
}

func lookupTemplate(kind model.TemplateKind) template {
	if t, ok := templates[kind]; ok {
		return t
	}
	return templates[model.TemplateTraditional]
}

func orPlaceholder(v, placeholder string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

func maritalClause(f model.Facts) string {
	switch f.MaritalStatus {
	case model.MaritalMarried:
		return fmt.Sprintf("I am married to %s.", orPlaceholder(f.SpouseName, PlaceholderSpouse))
	case model.MaritalSingle:
		return "I am not married."
	case model.MaritalDivorced:
		return "I am divorced."
	case model.MaritalWidowed:
		return "I am widowed."
	default:
		return "My marital status is " + PlaceholderMaritalStatus + "."
	}
}

func childrenClause(f model.Facts) string {
	switch len(f.Children) {
	case 0:
		return "My children are " + PlaceholderChildren + "."
	case 1:
		return "I have one child: " + f.Children[0] + "."
	default:
		return "I have the following children: " + inlineList(f.Children) + "."
	}
}

func distributionClause(f model.Facts) string {
	const prefix = "I give the residue of my estate, being all property not otherwise disposed of by this Will, to "
	switch {
	case len(f.Beneficiaries) > 0:
		return prefix + inlineList(f.Beneficiaries) + ", in equal shares."
	case f.MaritalStatus == model.MaritalMarried && f.SpouseName != "":
		clause := prefix + "my spouse, " + f.SpouseName + "."
		if len(f.Children) > 0 {
			clause += " If my spouse does not survive me, I give it to my children, " + inlineList(f.Children) + ", in equal shares."
		}
		return clause
	case len(f.Children) > 0:
		return prefix + "my children, " + inlineList(f.Children) + ", in equal shares."
	default:
		return prefix + PlaceholderBeneficiaries + "."
	}
}

// inlineList joins names as "A", "A and B", or "A, B, and C"
func inlineList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
