package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// capNameExpr matches up to five capitalized name tokens, allowing common
// lowercase surname particles in between ("Ludwig van Beethoven").
const capNameExpr = `([A-Z][\p{L}'’.-]*(?:[ \t]+(?:[A-Z][\p{L}'’.-]*|van|von|de|da|del|der|la|le|bin|ibn)){0,4})`

// anyNameExpr is the case-insensitive variant used after explicit
// self-introduction phrases, where intent is unambiguous.
const anyNameExpr = `([\p{L}][\p{L}'’.-]*(?:[ \t]+[\p{L}][\p{L}'’.-]*){0,4})`

// stopwords end a name capture and can never start a name
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "or": true, "but": true, "the": true,
	"i": true, "i'm": true, "im": true, "my": true, "me": true, "we": true, "you": true,
	"he": true, "she": true, "they": true, "it": true, "this": true, "that": true,
	"from": true, "in": true, "at": true, "on": true, "of": true, "for": true, "to": true,
	"with": true, "who": true, "which": true, "as": true, "so": true, "also": true,
	"is": true, "am": true, "are": true, "was": true, "were": true, "will": true, "be": true,
	"because": true, "since": true, "if": true, "then": true, "when": true, "where": true,
	"living": true, "live": true, "currently": true, "here": true, "there": true, "now": true,
	"not": true, "very": true, "just": true, "please": true, "thanks": true, "thank": true,
	"married": true, "single": true, "divorced": true, "widowed": true, "engaged": true,
	"okay": true, "ok": true, "yes": true, "no": true, "sure": true, "hi": true, "hello": true,
	"ready": true, "happy": true, "sorry": true, "glad": true, "fine": true, "good": true, "great": true,
	"going": true, "trying": true, "looking": true, "interested": true, "planning": true,
	"writing": true, "creating": true, "making": true, "done": true, "both": true, "all": true,
	"none": true, "nobody": true, "everything": true, "everyone": true, "someone": true,
	"executor": true, "guardian": true, "beneficiary": true, "spouse": true, "wife": true,
	"husband": true, "partner": true, "son": true, "daughter": true, "children": true, "kids": true,
}

// nameParticles may appear inside a name but never end one
var nameParticles = map[string]bool{
	"van": true, "von": true, "de": true, "da": true, "del": true, "der": true,
	"la": true, "le": true, "bin": true, "ibn": true,
}

// cleanName trims a raw capture down to a plausible personal name.
// It stops at the first stopword, drops trailing particles and
// punctuation, title-cases all-lowercase tokens, and returns "" when
// nothing name-like remains.
func cleanName(raw string) string {
	var tokens []string
	for _, tok := range strings.Fields(raw) {
		tok = strings.Trim(tok, ",;:!?\"()[]")
		if len([]rune(tok)) > 2 {
			tok = strings.TrimRight(tok, ".")
		}
		if tok == "" {
			break
		}
		if stopwords[strings.ToLower(tok)] {
			break
		}
		tokens = append(tokens, tok)
		if len(tokens) == 4 {
			break
		}
	}
	for len(tokens) > 0 && nameParticles[strings.ToLower(tokens[len(tokens)-1])] {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return ""
	}
	for i, tok := range tokens {
		if i > 0 && nameParticles[tok] {
			continue
		}
		if tok == strings.ToLower(tok) {
			tokens[i] = titleCase(tok)
		}
	}
	first := []rune(tokens[0])
	if !unicode.IsLetter(first[0]) {
		return ""
	}
	return strings.Join(tokens, " ")
}

// leadingCapitalized skips leading lowercase words and returns the first
// run of capitalized tokens, cleaned as a name ("my daughter Sue" -> "Sue").
func leadingCapitalized(s string) string {
	fields := strings.Fields(s)
	start := -1
	for i, f := range fields {
		r := []rune(strings.Trim(f, "\"'(["))
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	var run []string
	for _, f := range fields[start:] {
		r := []rune(strings.Trim(f, "\"'(["))
		if len(r) == 0 || !(unicode.IsUpper(r[0]) || nameParticles[strings.ToLower(f)]) {
			break
		}
		run = append(run, f)
	}
	return cleanName(strings.Join(run, " "))
}

func titleCase(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var listSplitter = regexp.MustCompile(`(?i)\s*(?:,|;|&|\band\b|\bplus\b)\s*`)

// splitNames splits an enumerated list ("Amy, Ben, and Cara") into names
func splitNames(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, part := range listSplitter.Split(s, -1) {
		name := leadingCapitalized(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// addressAbbreviations do not end a sentence when followed by a period
var addressAbbreviations = map[string]bool{
	"st": true, "ave": true, "rd": true, "blvd": true, "dr": true, "ln": true,
	"apt": true, "ct": true, "ste": true, "mt": true, "ft": true, "hwy": true,
	"n": true, "s": true, "e": true, "w": true, "mr": true, "mrs": true, "ms": true,
	"jr": true, "sr": true, "p.o": true, "po": true,
}

// splitSentences splits text on terminators, keeping abbreviations such as
// "St." inside the sentence. Newlines always end a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, r := range runes {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i+1 >= len(runes)
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(current.String()) {
			continue
		}
		flush()
	}
	flush()
	return sentences
}

func endsWithAbbreviation(s string) bool {
	s = strings.TrimSuffix(s, ".")
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	word := strings.ToLower(s[idx+1:])
	return addressAbbreviations[word]
}

// firstSentence returns the remainder up to the first sentence boundary
func firstSentence(s string) string {
	sentences := splitSentences(s)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

func isQuestion(sentence string) bool {
	return strings.HasSuffix(strings.TrimSpace(sentence), "?")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
