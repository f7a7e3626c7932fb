package extract

import (
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// Ruleset is the ordered rule battery for one template kind
type Ruleset struct {
	Template model.TemplateKind
	Rules    []Rule
}

// Registry maps template kinds to rulesets, falling back to the
// traditional battery for kinds without a dedicated one
type Registry struct {
	rulesets map[model.TemplateKind]*Ruleset
	generic  *Ruleset
}

// NewRegistry creates a registry with the built-in rulesets
func NewRegistry() *Registry {
	registry := &Registry{
		rulesets: make(map[model.TemplateKind]*Ruleset),
	}

	registry.Register(&Ruleset{Template: model.TemplateDigitalAssets, Rules: withFallback(baseRules(), digitalRules()...)})
	registry.Register(&Ruleset{Template: model.TemplateBusiness, Rules: withFallback(baseRules(), NewBusinessRule())})
	registry.Register(&Ruleset{Template: model.TemplateFamily, Rules: withFallback(baseRules())})

	registry.generic = &Ruleset{Template: model.TemplateTraditional, Rules: withFallback(baseRules())}
	return registry
}

// Register adds or replaces the ruleset for its template kind
func (r *Registry) Register(rs *Ruleset) {
	r.rulesets[rs.Template] = rs
}

// Find returns the ruleset for a template kind
func (r *Registry) Find(kind model.TemplateKind) *Ruleset {
	if rs, ok := r.rulesets[kind]; ok {
		return rs
	}
	return r.generic
}

func baseRules() []Rule {
	return []Rule{
		NewSelfIntroRule(),
		NewMaritalRule(),
		NewSpouseRule(),
		NewAddressRule(),
		NewChildrenRule(),
		NewAlternateExecutorRule(),
		NewExecutorRule(),
		NewAlternateGuardianRule(),
		NewGuardianRule(),
		NewBeneficiaryRule(),
		NewAssetRule(model.AssetRealEstate, "house", "home", "condo", "apartment", "property", "real estate", "land", "cabin", "farm"),
		NewAssetRule(model.AssetVehicle, "car", "truck", "vehicle", "motorcycle", "boat", "rv"),
		NewAssetRule(model.AssetFinancial, "bank account", "savings", "checking", "investments", "stocks", "bonds", "401k", "401(k)", "ira", "retirement account", "pension", "brokerage", "life insurance"),
		NewAssetRule(model.AssetPersonalProperty, "jewelry", "furniture", "artwork", "art collection", "heirloom", "heirlooms", "personal property", "collection", "antiques"),
		NewFuneralRule(),
	}
}

func digitalRules() []Rule {
	return []Rule{
		NewDigitalAssetRule("Cryptocurrency", "crypto", "cryptocurrency", "bitcoin", "ethereum", "wallet", "nft", "nfts", "coinbase"),
		NewDigitalAssetRule("Social Media", "social media", "facebook", "instagram", "twitter", "linkedin", "tiktok", "youtube channel"),
		NewDigitalAssetRule("Email Accounts", "email", "e-mail", "gmail", "outlook", "inbox"),
		NewDigitalAssetRule("Online Accounts", "online account", "online accounts", "paypal", "amazon account", "subscriptions", "password manager", "passwords"),
		NewDigitalAssetRule("Cloud Storage & Media", "cloud storage", "icloud", "dropbox", "google drive", "photos", "domain names", "website"),
	}
}

// withFallback appends extra rules and keeps the bare-name rule last,
// since it only fires when nothing else did
func withFallback(rules []Rule, extra ...Rule) []Rule {
	rules = append(rules, extra...)
	return append(rules, NewFallbackNameRule())
}

// Extractor turns one utterance into a fact delta
type Extractor struct {
	registry *Registry
}

// NewExtractor creates an extractor over the built-in rulesets
func NewExtractor() *Extractor {
	return &Extractor{registry: NewRegistry()}
}

// Extract applies the template's rule battery to text and returns only
// the information that is new relative to current. It never fails;
// unrecognized text yields an empty delta.
func (e *Extractor) Extract(text string, kind model.TemplateKind, current model.Facts) model.Delta {
	delta, _ := e.ExtractWithFindings(text, kind, current)
	return delta
}

// ExtractFrom is Extract for a turn spoken by role. Assistant turns only
// yield facts the assistant restates about the user, never sentences it
// uses to prompt for them.
func (e *Extractor) ExtractFrom(role model.MessageRole, text string, kind model.TemplateKind, current model.Facts) model.Delta {
	delta, _ := e.run(role, text, kind, current)
	return delta
}

// ExtractWithFindings is Extract plus the raw findings, for diagnostics
func (e *Extractor) ExtractWithFindings(text string, kind model.TemplateKind, current model.Facts) (model.Delta, []Finding) {
	return e.run(model.MessageUser, text, kind, current)
}

func (e *Extractor) run(role model.MessageRole, text string, kind model.TemplateKind, current model.Facts) (model.Delta, []Finding) {
	u := NewUtterance(text)
	if u.Text == "" {
		return model.Delta{}, nil
	}

	st := State{Current: current, Speaker: role}
	for _, rule := range e.registry.Find(kind).Rules {
		if f, ok := rule.Match(u, st); ok {
			st.Fired = append(st.Fired, f)
		}
	}

	return Sanitize(combine(st.Fired), current), st.Fired
}

// combine folds findings into a single delta
func combine(findings []Finding) model.Delta {
	var d model.Delta
	for _, f := range findings {
		switch f.Field {
		case FieldFullName:
			d.FullName = f.Value
		case FieldMaritalStatus:
			d.MaritalStatus = model.ParseMaritalStatus(f.Value)
		case FieldSpouseName:
			d.SpouseName = f.Value
		case FieldAddress:
			d.Address = f.Value
			if f.Place != nil {
				d.City = f.Place.City
				d.State = f.Place.State
				d.PostalCode = f.Place.PostalCode
			}
		case FieldChildren:
			d.Children = append(d.Children, f.Values...)
		case FieldExecutor:
			d.Executor = f.Value
		case FieldAlternateExecutor:
			d.AlternateExecutor = f.Value
		case FieldGuardian:
			d.Guardian = f.Value
		case FieldAlternateGuardian:
			d.AlternateGuardian = f.Value
		case FieldBeneficiaries:
			d.Beneficiaries = append(d.Beneficiaries, f.Values...)
		case FieldAsset:
			d.Assets = append(d.Assets, f.Asset)
		case FieldDigitalAsset:
			d.DigitalAssets = append(d.DigitalAssets, f.Digital)
		case FieldFuneralWishes:
			d.FuneralWishes = f.Value
		case FieldBusinessName:
			d.BusinessName = f.Value
		}
	}
	return d
}

// Sanitize strips everything from d that would not change current:
// values equal to the known ones, list items already present, assets
// of a category already recorded, and a spouse name while the effective
// marital status is not married. Model-supplied hints pass through here
// as well, so they obey the same rules as extracted text.
func Sanitize(d model.Delta, current model.Facts) model.Delta {
	var out model.Delta

	scalar := func(v, known string) string {
		v = strings.TrimSpace(v)
		if v == "" || v == known {
			return ""
		}
		if isPlaceholder(v) {
			return ""
		}
		return v
	}

	out.FullName = scalar(d.FullName, current.FullName)
	out.Address = scalar(d.Address, current.Address)
	out.City = scalar(d.City, current.City)
	out.State = scalar(d.State, current.State)
	out.PostalCode = scalar(d.PostalCode, current.PostalCode)

	if status := model.ParseMaritalStatus(string(d.MaritalStatus)); status != current.MaritalStatus {
		out.MaritalStatus = status
	}
	effective := current.MaritalStatus
	if out.MaritalStatus != model.MaritalUnknown {
		effective = out.MaritalStatus
	}
	if effective == model.MaritalMarried {
		out.SpouseName = scalar(d.SpouseName, current.SpouseName)
	}

	out.Executor = scalar(d.Executor, current.Executor)
	out.AlternateExecutor = scalar(d.AlternateExecutor, current.AlternateExecutor)
	out.Guardian = scalar(d.Guardian, current.Guardian)
	out.AlternateGuardian = scalar(d.AlternateGuardian, current.AlternateGuardian)
	out.FuneralWishes = scalar(d.FuneralWishes, current.FuneralWishes)
	out.BusinessName = scalar(d.BusinessName, current.BusinessName)

	out.Children = newNames(d.Children, current.Children)
	out.Beneficiaries = newNames(d.Beneficiaries, current.Beneficiaries)

	seenCategory := make(map[model.AssetCategory]bool)
	for _, a := range d.Assets {
		if a.Description == "" || current.HasAssetCategory(a.Category) || seenCategory[a.Category] {
			continue
		}
		seenCategory[a.Category] = true
		out.Assets = append(out.Assets, a)
	}

	seenType := make(map[string]bool)
	for _, a := range d.DigitalAssets {
		key := model.DedupKey(a.AssetType)
		if key == "" || current.HasDigitalAssetType(a.AssetType) || seenType[key] {
			continue
		}
		seenType[key] = true
		out.DigitalAssets = append(out.DigitalAssets, a)
	}

	return out
}

func newNames(candidates, known []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range known {
		seen[model.DedupKey(k)] = true
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := model.DedupKey(c)
		if key == "" || seen[key] || isPlaceholder(c) {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// isPlaceholder reports bracketed template placeholders such as
// "[YOUR NAME]", which must never be stored as facts
func isPlaceholder(s string) bool {
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}
