// Package knowledge answers free-text questions from a small FAQ base.
// Matching is keyword/regexp based; a vector index can replace KeywordBase
// behind the same interface.
package knowledge

import (
	"context"
	"regexp"
	"strings"
)

// Base is the lookup contract. ok is false when nothing matches.
type Base interface {
	Search(ctx context.Context, query string) (answer string, ok bool, err error)
}

// Entry is one FAQ answer with its triggers. Pattern takes precedence over
// Keywords when set.
type Entry struct {
	Pattern  *regexp.Regexp
	Keywords []string
	Answer   string
}

// KeywordBase is the in-process FAQ implementation.
type KeywordBase struct {
	entries []Entry
}

// NewKeywordBase builds a base from entries, first match wins.
func NewKeywordBase(entries []Entry) *KeywordBase {
	return &KeywordBase{entries: entries}
}

// NewDefaultBase returns the receptionist's stock FAQ set.
func NewDefaultBase() *KeywordBase {
	return NewKeywordBase(defaultEntries)
}

// Search returns the first entry whose pattern or keywords match the query.
func (b *KeywordBase) Search(ctx context.Context, query string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	q := strings.ToLower(query)
	for _, entry := range b.entries {
		if entry.Pattern != nil && entry.Pattern.MatchString(q) {
			return entry.Answer, true, nil
		}
		for _, kw := range entry.Keywords {
			if strings.Contains(q, kw) {
				return entry.Answer, true, nil
			}
		}
	}
	return "", false, nil
}

var defaultEntries = []Entry{
	{
		Keywords: []string{"ubicación", "dirección", "dónde", "donde", "location", "where", "address"},
		Answer: "Estamos ubicados en Calle Gran Vía 28, Madrid. " +
			"El horario de atención es de lunes a viernes, de 9:00 a 17:00.",
	},
	{
		Keywords: []string{"horario", "hora", "hours", "schedule", "abierto", "open"},
		Answer: "Nuestro horario de atención es de lunes a viernes, " +
			"de 9:00 a 17:00. Los fines de semana permanecemos cerrados.",
	},
	{
		Keywords: []string{"precio", "costo", "tarifa", "price", "cost", "rate"},
		Answer: "La consulta inicial tiene un costo de 50 €. " +
			"Los precios de servicios adicionales dependen del tratamiento. " +
			"¿Le gustaría agendar una cita para recibir un presupuesto personalizado?",
	},
	{
		Keywords: []string{"cancelar", "cancel", "anular"},
		Answer: "Puede cancelar o reprogramar su cita con al menos 24 horas de antelación " +
			"sin cargo alguno. Para cancelaciones con menos de 24 horas, " +
			"se aplica un cargo del 50 %.",
	},
	{
		Keywords: []string{"seguro", "insurance", "cobertura", "coverage"},
		Answer: "Aceptamos los principales seguros médicos: Sanitas, Adeslas, Mapfre y DKV. " +
			"Le recomendamos verificar su cobertura específica con su aseguradora.",
	},
	{
		Keywords: []string{"parking", "estacionamiento", "aparcar"},
		Answer: "Disponemos de parking gratuito para pacientes en el sótano del edificio. " +
			"La entrada se encuentra en la calle lateral.",
	},
}
