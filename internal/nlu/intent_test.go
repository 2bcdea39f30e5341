package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewKeywordClassifier()

	tests := []struct {
		text string
		want string
	}{
		{"Hola", LabelGreeting},
		{"buenos días", LabelGreeting},
		// Greetings only count for short utterances.
		{"hola quisiera saber el horario de la clínica por favor", LabelFAQ},
		{"¿Dónde está la clínica?", LabelFAQ},
		{"¿Cuál es el precio de la consulta?", LabelFAQ},
		{"¿Aceptan mi seguro médico?", LabelFAQ},
		{"Quiero reservar una cita", LabelBooking},
		{"necesito un turno para la semana que viene", LabelBooking},
		// A bare slot is a booking reply even without booking keywords.
		{"el 2026-02-09 10:00 me viene bien", LabelBooking},
		{"adiós, gracias por todo", LabelEndCall},
		{"eso es todo", LabelEndCall},
		{"Me llamo Ana Torres", LabelCollectData},
		{"mi correo no te lo puedo dar", LabelCollectData},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.text), "text %q", tt.text)
	}
}
