package engine

import (
	"fmt"
	"strings"
)

// openingDirective is injected into the transcript exactly once per call.
// It defines the receptionist persona for any downstream consumer of the
// transcript (analytics, hand-off to a human, future NLG backends).
const openingDirective = `Eres Omvyx, una recepcionista virtual profesional y amable.
Hablas en español de España de forma natural y cercana.

REGLAS:
- Sé concisa: las respuestas van por voz, así que máximo 2-3 frases.
- Nunca inventes datos. Si no sabes algo, dilo.
- Si estás recogiendo datos del usuario y te interrumpen con una pregunta,
  responde la pregunta y VUELVE INMEDIATAMENTE a pedir el dato que faltaba.
- Cuando ofrezcas citas alternativas, di las opciones de forma clara.`

// fieldPrompts maps each checklist field to the question that requests it.
var fieldPrompts = map[string]string{
	FieldName:  "Para poder ayudarle, necesito su nombre completo, ¿me lo puede indicar?",
	FieldDNI:   "Perfecto. ¿Me puede facilitar su DNI o documento de identidad?",
	FieldEmail: "Genial. ¿Cuál es su dirección de correo electrónico?",
	FieldPhone: "Y por último, ¿un número de teléfono de contacto?",
}

// PromptFor returns the question for a checklist field.
func PromptFor(field string) string {
	if p, ok := fieldPrompts[field]; ok {
		return p
	}
	return fmt.Sprintf("¿Me puede indicar su %s?", field)
}

const (
	fallbackAnswer   = "Lo siento, no tengo información sobre eso. ¿Puedo ayudarle con algo más?"
	serviceDownReply = "Disculpe, ahora mismo no dispongo de esa información. ¿Puedo ayudarle con algo más?"
	askForSlotReply  = "¿Para qué fecha y hora le gustaría la cita? Por ejemplo: 2026-02-11 10:00"
)

func greetingFor(name string, lastVisit string) string {
	switch {
	case name != "" && lastVisit != "":
		return fmt.Sprintf("¡Hola, %s! Bienvenido/a de nuevo a Omvyx. La última vez: %s. ¿En qué puedo ayudarle hoy?", name, lastVisit)
	case name != "":
		return fmt.Sprintf("¡Hola, %s! Bienvenido/a a Omvyx. ¿En qué puedo ayudarle hoy?", name)
	default:
		return "¡Hola! Bienvenido/a a Omvyx. ¿En qué puedo ayudarle hoy?"
	}
}

func checklistCompleteFor(name string, verified bool, lastVisit string) string {
	if verified {
		if lastVisit != "" {
			return fmt.Sprintf("Perfecto, %s, le tenemos registrado/a. La última vez: %s. ¿Le gustaría reservar una cita?", name, lastVisit)
		}
		return fmt.Sprintf("Perfecto, %s, le tenemos registrado/a. ¿Le gustaría reservar una cita?", name)
	}
	return fmt.Sprintf("Perfecto, %s. Ya tengo todos sus datos registrados. ¿Le gustaría reservar una cita?", name)
}

func bookingPreamble() string {
	return "Con gusto le ayudo a reservar una cita. Pero primero necesito algunos datos."
}

func bookingConfirmedFor(slot string) string {
	return fmt.Sprintf("¡Listo! Su cita ha quedado confirmada para el %s. ¿Necesita algo más?", slot)
}

func bookingAlternativesFor(requested string, alternatives []string) string {
	options := strings.Join(alternatives, " o ")
	return fmt.Sprintf("Lo siento, el %s no está disponible. Tengo disponibilidad el %s. ¿Le viene bien alguna de estas opciones?", requested, options)
}

func bookingUnavailableFor(reason string) string {
	if reason == "" {
		reason = "No hay disponibilidad."
	}
	return fmt.Sprintf("Lo siento, %s ¿Desea intentar otra fecha?", reason)
}

const bookingAlternativeRejected = "Ese horario tampoco está disponible. ¿Quiere probar otra fecha?"

const bookingDeclined = "Entendido. ¿Para qué fecha y hora le gustaría la cita?"

const bookingRestart = "¿Le gustaría reservar una cita? Dígame la fecha y hora deseada."

func farewellFor(name string) string {
	if name != "" {
		return fmt.Sprintf("Ha sido un placer atenderle, %s. ¡Hasta pronto!", name)
	}
	return "Gracias por llamar a Omvyx. ¡Hasta pronto!"
}
