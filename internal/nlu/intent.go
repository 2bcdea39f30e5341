package nlu

import (
	"regexp"
	"strings"
)

// Intent labels produced by the classifier.
const (
	LabelGreeting    = "greeting"
	LabelFAQ         = "faq"
	LabelCollectData = "collect_data"
	LabelBooking     = "booking"
	LabelEndCall     = "end_call"
)

// KeywordClassifier labels an utterance with a coarse intent from keyword
// lists. Order matters: greeting, faq, booking, end_call, then
// collect_data as the default while data may still be incoming.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	greetingSignals = []string{"hola", "buenos días", "buenas tardes", "buenas noches", "hey", "hello"}

	faqSignals = []string{
		"dónde", "donde", "ubicación", "dirección", "horario", "hora",
		"precio", "costo", "cancelar", "seguro", "parking", "location",
		"where", "address", "hours", "price", "cancel", "insurance",
	}

	bookingSignals = []string{"cita", "reservar", "agendar", "appointment", "book", "turno"}

	byeSignals = []string{"adiós", "chao", "bye", "hasta luego", "nada más", "eso es todo"}

	// A bare slot is a booking reply even without booking keywords.
	slotSignal = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}`)
)

// Classify returns the intent label for an utterance.
func (c *KeywordClassifier) Classify(text string) string {
	t := strings.ToLower(text)

	if containsAny(t, greetingSignals) && len(strings.Fields(t)) <= 4 {
		return LabelGreeting
	}
	if containsAny(t, faqSignals) {
		return LabelFAQ
	}
	if containsAny(t, bookingSignals) || slotSignal.MatchString(t) {
		return LabelBooking
	}
	if containsAny(t, byeSignals) {
		return LabelEndCall
	}
	return LabelCollectData
}

func containsAny(text string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
