package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "accents stripped",
			input:    "Ubicación",
			expected: "ubicacion",
		},
		{
			name:     "punctuation and case collapse",
			input:    "PROVINCIA A LA CUAL PERTENECE.",
			expected: "provinciaalacualpertenece",
		},
		{
			name:     "inverted question marks",
			input:    "¿CUÁL ES SU CARGO O ROL?",
			expected: "cualessucargoorol",
		},
		{
			name:     "digits preserved",
			input:    "Pregunta 2 - parte B",
			expected: "pregunta2parteb",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeTextVariantsCollapse(t *testing.T) {
	// Retyped variants of the same prompt must produce the same key
	assert.Equal(t,
		NormalizeText("Provincia a la cual pertenece"),
		NormalizeText("PROVINCIA A LA CUAL PERTENECE."))
	assert.Equal(t,
		NormalizeText("NÚMERO DE DOCUMENTO"),
		NormalizeText("Numero de documento"))
}

func TestNormalizeTextIdempotence(t *testing.T) {
	inputs := []string{
		"Provincia a la cual pertenece",
		"¿CUÁL ES SU CARGO O ROL?",
		"Identificación",
		"plain",
		"",
	}
	for _, s := range inputs {
		once := NormalizeText(s)
		assert.Equal(t, once, NormalizeText(once))
	}
}
