package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// Field identifies which logical fact a finding populates
type Field int

const (
	FieldFullName Field = iota
	FieldMaritalStatus
	FieldSpouseName
	FieldAddress
	FieldChildren
	FieldExecutor
	FieldAlternateExecutor
	FieldGuardian
	FieldAlternateGuardian
	FieldBeneficiaries
	FieldAsset
	FieldDigitalAsset
	FieldFuneralWishes
	FieldBusinessName
)

// Place is the parsed tail of an address ("Austin, TX 78701")
type Place struct {
	City       string
	State      string
	PostalCode string
}

// Finding is the tagged result of one rule firing
type Finding struct {
	Field     Field
	Value     string
	Values    []string
	Place     *Place
	Asset     model.AssetEntry
	Digital   model.DigitalAssetEntry
	Heuristic string // Which pattern matched (e.g., "name:self-intro")
}

// State is what a rule may consult besides the utterance itself
type State struct {
	Current model.Facts
	Fired   []Finding         // Findings from earlier rules in this call
	Speaker model.MessageRole // Who said the utterance; empty means the user
}

// assistant reports whether the utterance is the assistant's own turn.
// Descriptive rules that copy whole sentences must not fire on it, or a
// prompt that mentions "a home" would be stored as the user's asset.
func (st State) assistant() bool {
	return st.Speaker == model.MessageAssistant
}

// Rule recognizes one logical field. It fires at most once per call.
type Rule interface {
	Name() string
	Match(u Utterance, st State) (Finding, bool)
}

// Utterance is a normalized utterance with its statement sentences.
// Questions are dropped so prompts like "Are you married or single?"
// never produce facts.
type Utterance struct {
	Raw       string
	Text      string   // Statement sentences joined by single spaces
	Sentences []string // Statement sentences only
}

// NewUtterance normalizes raw text and drops question sentences
func NewUtterance(raw string) Utterance {
	plain := PlainText(raw)
	var statements []string
	for _, s := range splitSentences(plain) {
		if !isQuestion(s) {
			statements = append(statements, s)
		}
	}
	return Utterance{
		Raw:       raw,
		Text:      strings.Join(statements, " "),
		Sentences: statements,
	}
}

// patternRule captures a value with the first matching pattern
type patternRule struct {
	name     string
	field    Field
	patterns []*regexp.Regexp
	clean    func(string) string
	userOnly bool // First-person phrasing from the assistant describes the assistant
}

func (r *patternRule) Name() string { return r.name }

func (r *patternRule) Match(u Utterance, st State) (Finding, bool) {
	if r.userOnly && st.assistant() {
		return Finding{}, false
	}
	for _, sentence := range u.Sentences {
		for _, p := range r.patterns {
			m := p.FindStringSubmatch(sentence)
			if m == nil {
				continue
			}
			value := r.clean(m[1])
			if value == "" {
				continue
			}
			return Finding{Field: r.field, Value: value, Heuristic: r.name}, true
		}
	}
	return Finding{}, false
}

const nameLead = `(?i:\b(?:my (?:full |legal )?name is|my name's|call me|i am called|i'm called|they call me|i go by))\s+`

// NewSelfIntroRule recognizes explicit self-introduction phrasing
func NewSelfIntroRule() Rule {
	return &patternRule{
		name:  "name:self-intro",
		field: FieldFullName,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(nameLead + anyNameExpr),
			regexp.MustCompile(`\bI(?:'m|’m| am)\s+` + capNameExpr),
		},
		clean:    cleanName,
		userOnly: true,
	}
}

var personLead = `\s*(?:is named|is called|named|called|will be|should be|would be|is|:|=)\s*`

// NewSpouseRule recognizes "my spouse is X" and "married to X"
func NewSpouseRule() Rule {
	return &patternRule{
		name:  "spouse:phrase",
		field: FieldSpouseName,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i:\b(?:spouse|wife|husband|partner)(?:'s name)?` + personLead + `)` + capNameExpr),
			regexp.MustCompile(`(?i:\bmarried to\s+)` + capNameExpr),
		},
		clean: cleanName,
	}
}

// roleRule recognizes "<role> is X" and "appoint X as my <role>",
// ignoring spans that belong to a qualified variant ("alternate executor")
type roleRule struct {
	name     string
	field    Field
	direct   *regexp.Regexp
	appoint  *regexp.Regexp
	excluded *regexp.Regexp
}

const alternateQualifier = `(?:alternate|backup|back-up|successor|contingent|secondary|second)`

func newRoleRule(role string, field Field, alternate bool) *roleRule {
	qualified := role
	if alternate {
		qualified = alternateQualifier + `\s+` + role
	}
	r := &roleRule{
		name:    role,
		field:   field,
		direct:  regexp.MustCompile(`(?i:\b` + qualified + `(?:\s+(?:of|for) (?:my|the) (?:estate|will|children|kids))?` + personLead + `)` + capNameExpr),
		appoint: regexp.MustCompile(`(?i:\b(?:appoint|name|nominate|choose|want|pick|select)\s+)` + capNameExpr + `(?i:\s+(?:as|to be)\s+(?:my\s+|the\s+)?` + qualified + `)\b`),
	}
	if alternate {
		r.name = "alternate-" + role
	} else {
		r.excluded = regexp.MustCompile(`(?i)\b` + alternateQualifier + `\s+` + role + `\b`)
	}
	return r
}

// NewExecutorRule recognizes the primary executor
func NewExecutorRule() Rule { return newRoleRule("executor", FieldExecutor, false) }

// NewAlternateExecutorRule recognizes the alternate executor
func NewAlternateExecutorRule() Rule {
	return newRoleRule("executor", FieldAlternateExecutor, true)
}

// NewGuardianRule recognizes the guardian of minor children
func NewGuardianRule() Rule { return newRoleRule("guardian", FieldGuardian, false) }

// NewAlternateGuardianRule recognizes the alternate guardian
func NewAlternateGuardianRule() Rule {
	return newRoleRule("guardian", FieldAlternateGuardian, true)
}

func (r *roleRule) Name() string { return r.name }

func (r *roleRule) Match(u Utterance, st State) (Finding, bool) {
	for _, sentence := range u.Sentences {
		if r.excluded != nil {
			// Blank out qualified mentions so "alternate executor is X"
			// never reads as the primary executor.
			sentence = r.excluded.ReplaceAllStringFunc(sentence, func(s string) string {
				return strings.Repeat("_", len(s))
			})
		}
		for _, p := range []*regexp.Regexp{r.direct, r.appoint} {
			m := p.FindStringSubmatch(sentence)
			if m == nil {
				continue
			}
			if name := cleanName(m[1]); name != "" {
				return Finding{Field: r.field, Value: name, Heuristic: "role:" + r.name}, true
			}
		}
	}
	return Finding{}, false
}

// maritalRule is keyword based; the first status in priority order wins
type maritalRule struct {
	statuses []model.MaritalStatus
	patterns []*regexp.Regexp
}

// NewMaritalRule recognizes marital status keywords
func NewMaritalRule() Rule {
	return &maritalRule{
		// "not married" must win over "married", "divorced" over an
		// earlier marriage mention
		statuses: []model.MaritalStatus{
			model.MaritalWidowed,
			model.MaritalDivorced,
			model.MaritalSingle,
			model.MaritalMarried,
		},
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:widowed|a widow|a widower|my late (?:wife|husband|spouse|partner))\b`),
			regexp.MustCompile(`(?i)\b(?:divorced|my ex[- ]?(?:wife|husband|spouse))\b`),
			regexp.MustCompile(`(?i)\b(?:single|not married|never (?:been )?married|unmarried|not currently married)\b`),
			regexp.MustCompile(`(?i)\b(?:married|my (?:wife|husband|spouse)\b)`),
		},
	}
}

func (r *maritalRule) Name() string { return "marital:keyword" }

func (r *maritalRule) Match(u Utterance, st State) (Finding, bool) {
	for i, p := range r.patterns {
		if kw := p.FindString(u.Text); kw != "" {
			return Finding{
				Field:     FieldMaritalStatus,
				Value:     string(r.statuses[i]),
				Heuristic: "marital:" + strings.ToLower(kw),
			}, true
		}
	}
	return Finding{}, false
}

var (
	addressTrigger = regexp.MustCompile(`(?i)\b(?:i (?:currently )?live (?:at|in|on)|i(?:'m| am) living (?:at|in)|i reside (?:at|in)|my (?:home |mailing |current |street |residential )?address is|my home is (?:at|in)|residing at|i(?:'m| am) located at)\s*:?\s*`)
	placePattern   = regexp.MustCompile(`(?:^|,\s*)([A-Za-z][A-Za-z .'-]*?),?\s+([A-Z]{2})\.?\s+(\d{5}(?:-\d{4})?)\b`)
	addressTail    = regexp.MustCompile(`(?i)\s+(?:and|but)\s+(?:i|my|we)\b.*$`)
)

type addressRule struct{}

// NewAddressRule captures the remainder after a residence trigger
func NewAddressRule() Rule { return addressRule{} }

func (addressRule) Name() string { return "address:residence" }

func (addressRule) Match(u Utterance, st State) (Finding, bool) {
	loc := addressTrigger.FindStringIndex(u.Text)
	if loc == nil {
		return Finding{}, false
	}
	address := firstSentence(u.Text[loc[1]:])
	address = addressTail.ReplaceAllString(address, "")
	address = strings.TrimRight(strings.TrimSpace(address), ".!,;")
	if address == "" {
		return Finding{}, false
	}

	f := Finding{Field: FieldAddress, Value: address, Heuristic: "address:residence"}
	if m := placePattern.FindStringSubmatch(address); m != nil {
		f.Place = &Place{
			City:       strings.TrimSpace(m[1]),
			State:      m[2],
			PostalCode: m[3],
		}
	}
	return f, true
}

// listRule captures an enumerated list of names after a trigger
type listRule struct {
	name    string
	field   Field
	trigger *regexp.Regexp
	skip    *regexp.Regexp // Sentences matching this belong to another rule
}

var childrenSkip = regexp.MustCompile(`(?i)\b(?:guardian|executor|beneficiar|leave|inherit|bequeath)`)

// NewChildrenRule appends child names listed after a child keyword
func NewChildrenRule() Rule {
	return &listRule{
		name:    "children:list",
		field:   FieldChildren,
		trigger: regexp.MustCompile(`(?i)\b(?:children|kids|sons|daughters|son|daughter|child|stepchildren|grandchildren)\b(?:\s+(?:are|is|named|called))?[\s:,-]*`),
		skip:    childrenSkip,
	}
}

// NewBeneficiaryRule appends names after bequest phrasing
func NewBeneficiaryRule() Rule {
	return &listRule{
		name:    "beneficiaries:list",
		field:   FieldBeneficiaries,
		trigger: regexp.MustCompile(`(?i)\b(?:(?:leave|give|bequeath|leaving|giving)\s+(?:everything|all(?: of)? my (?:estate|property|assets)|my (?:entire |whole )?estate|the (?:rest|remainder|residue) of my estate)\s+to|beneficiar(?:y|ies)\s*(?:is|are|will be|should be|:))\s*`),
	}
}

func (r *listRule) Name() string { return r.name }

func (r *listRule) Match(u Utterance, st State) (Finding, bool) {
	for _, sentence := range u.Sentences {
		if r.skip != nil && r.skip.MatchString(sentence) {
			continue
		}
		loc := r.trigger.FindStringIndex(sentence)
		if loc == nil {
			continue
		}
		rest := strings.TrimRight(sentence[loc[1]:], ".!")
		names := splitNames(rest)
		if len(names) == 0 {
			continue
		}
		return Finding{Field: r.field, Values: names, Heuristic: r.name}, true
	}
	return Finding{}, false
}

// keywordRule fires when a sentence contains one of its keywords and
// records the sentence as descriptive text
type keywordRule struct {
	name     string
	keywords *regexp.Regexp
	masked   *regexp.Regexp // Phrases removed before keyword matching
	build    func(sentence string) Finding
}

func (r *keywordRule) Name() string { return r.name }

func (r *keywordRule) Match(u Utterance, st State) (Finding, bool) {
	if st.assistant() {
		return Finding{}, false
	}
	for _, sentence := range u.Sentences {
		scanned := sentence
		if r.masked != nil {
			scanned = r.masked.ReplaceAllString(scanned, " ")
		}
		if kw := r.keywords.FindString(scanned); kw != "" {
			f := r.build(truncate(sentence, 240))
			f.Heuristic = r.name + ":" + strings.ToLower(kw)
			return f, true
		}
	}
	return Finding{}, false
}

func keywordPattern(keywords ...string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// NewAssetRule recognizes one asset category by keyword
func NewAssetRule(category model.AssetCategory, keywords ...string) Rule {
	r := &keywordRule{
		name:     "asset:" + string(category),
		keywords: keywordPattern(keywords...),
		build: func(sentence string) Finding {
			return Finding{
				Field: FieldAsset,
				Asset: model.AssetEntry{Category: category, Description: sentence},
			}
		},
	}
	if category == model.AssetRealEstate {
		r.masked = regexp.MustCompile(`(?i)\b(?:personal|intellectual|digital)\s+propert(?:y|ies)\b`)
	}
	return r
}

// NewDigitalAssetRule recognizes one digital asset type by keyword
func NewDigitalAssetRule(assetType string, keywords ...string) Rule {
	return &keywordRule{
		name:     "digital:" + strings.ToLower(strings.ReplaceAll(assetType, " ", "-")),
		keywords: keywordPattern(keywords...),
		build: func(sentence string) Finding {
			return Finding{
				Field:   FieldDigitalAsset,
				Digital: model.DigitalAssetEntry{AssetType: assetType, Details: sentence},
			}
		},
	}
}

// NewFuneralRule records funeral or burial instructions
func NewFuneralRule() Rule {
	return &keywordRule{
		name:     "wishes:funeral",
		keywords: keywordPattern("cremated", "cremation", "buried", "burial", "funeral", "memorial service", "scatter my ashes", "ashes scattered", "celebration of life"),
		build: func(sentence string) Finding {
			return Finding{Field: FieldFuneralWishes, Value: sentence}
		},
	}
}

// NewBusinessRule recognizes the name of an owned business
func NewBusinessRule() Rule {
	return &patternRule{
		name:  "business:name",
		field: FieldBusinessName,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i:\bmy (?:business|company|firm|practice|llc)\s*(?:is called|is named|called|named|is|:)\s*)` + capNameExpr),
			regexp.MustCompile(`(?i:\bi own (?:a (?:business|company) called |a (?:business|company) named )?)` + capNameExpr + `(?:\s+(?:LLC|Inc\.?|Ltd\.?|Corp\.?|Co\.))`),
		},
		clean: cleanBusinessName,
	}
}

func cleanBusinessName(raw string) string {
	name := strings.TrimSpace(strings.TrimRight(raw, ".,;!"))
	if name == "" || stopwords[strings.ToLower(strings.Fields(name)[0])] {
		return ""
	}
	return name
}

var bareName = regexp.MustCompile(`^([A-Z][\p{L}'’-]+)\s+([A-Z][\p{L}'’-]+)$`)

type fallbackNameRule struct{}

// NewFallbackNameRule accepts a bare "First Last" utterance as the
// testator's name, but only when no name is known and nothing else fired.
func NewFallbackNameRule() Rule { return fallbackNameRule{} }

func (fallbackNameRule) Name() string { return "name:bare" }

func (fallbackNameRule) Match(u Utterance, st State) (Finding, bool) {
	if st.assistant() || st.Current.FullName != "" || len(st.Fired) > 0 {
		return Finding{}, false
	}
	candidate := strings.TrimRight(strings.TrimSpace(u.Text), ".!")
	m := bareName.FindStringSubmatch(candidate)
	if m == nil {
		return Finding{}, false
	}
	if stopwords[strings.ToLower(m[1])] || stopwords[strings.ToLower(m[2])] {
		return Finding{}, false
	}
	return Finding{Field: FieldFullName, Value: m[1] + " " + m[2], Heuristic: "name:bare"}, true
}
