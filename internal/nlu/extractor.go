// Package nlu holds the natural-language understanding heuristics: field
// extraction and intent classification. Both are pure, side-effect-free
// keyword/regexp rules, replaceable by any component honoring the same
// contracts.
package nlu

import (
	"regexp"
	"strings"
	"unicode"
)

// RegexExtractor pulls checklist field values out of free text with
// per-field rules.
type RegexExtractor struct{}

// NewRegexExtractor creates the rule-based extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

var (
	dniPattern   = regexp.MustCompile(`\b(\d{7,8}\s*[A-Za-z])\b`)
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`)
	phonePattern = regexp.MustCompile(`[^\d+]`)
	datePattern  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	namePattern  = regexp.MustCompile(`(?i)(?:me llamo|soy|mi nombre es)\s+(.+)`)
)

// nameStopwords blocks the lenient whole-message name fallback from firing
// on common conversational phrases. Extraction runs on every turn, so the
// fallback has to be conservative.
var nameStopwords = map[string]struct{}{
	"hola": {}, "buenos": {}, "buenas": {}, "días": {}, "tardes": {},
	"noches": {}, "quiero": {}, "necesito": {}, "cita": {}, "reservar": {},
	"gracias": {}, "adiós": {}, "vale": {}, "perfecto": {}, "dni": {},
	"correo": {}, "teléfono": {}, "email": {}, "mi": {}, "es": {}, "el": {},
	"la": {}, "un": {}, "una": {}, "sí": {}, "no": {},
}

// Extract returns the value for a field found in text, if any.
func (e *RegexExtractor) Extract(field, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	switch field {
	case "dni":
		if m := dniPattern.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(strings.ReplaceAll(m[1], " ", "")), true
		}
	case "email":
		if m := emailPattern.FindString(text); m != "" {
			return strings.ToLower(m), true
		}
	case "phone":
		return extractPhone(text)
	case "name":
		return extractName(text)
	}
	return "", false
}

func extractPhone(text string) (string, bool) {
	// An appointment date strips down to 9+ digits; never read one as a
	// phone number.
	if datePattern.MatchString(text) {
		return "", false
	}
	digits := phonePattern.ReplaceAllString(text, "")
	if len(strings.TrimPrefix(digits, "+")) >= 9 {
		return digits, true
	}
	return "", false
}

func extractName(text string) (string, bool) {
	if m := namePattern.FindStringSubmatch(text); m != nil {
		part := strings.TrimRight(strings.TrimSpace(m[1]), ".")
		words := alphaWords(part)
		if len(words) > 0 {
			return titleCase(words), true
		}
	}

	// Fallback: accept the whole message when it reads like a bare name.
	// Any punctuation or digit anywhere disqualifies the message.
	words := strings.Fields(text)
	if len(words) < 1 || len(words) > 4 {
		return "", false
	}
	for _, w := range words {
		if !isAlpha(w) {
			return "", false
		}
		if _, stop := nameStopwords[strings.ToLower(w)]; stop {
			return "", false
		}
	}
	if len(words) == 1 && len([]rune(words[0])) < 2 {
		return "", false
	}
	return titleCase(words), true
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(word) > 0
}

func alphaWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(text) {
		if isAlpha(w) {
			words = append(words, w)
		}
	}
	return words
}

func titleCase(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		out[i] = string(r)
	}
	return strings.Join(out, " ")
}
