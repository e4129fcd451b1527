package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Revolución", "revolucion"},
		{"¡REVOLUCIÓN!", "revolucion"},
		{"  Año   nuevo,  vida nueva ", "ano nuevo vida nueva"},
		{"Über-Straße 12", "uber straße 12"},
		{"mañana---pago.adelantado", "manana pago adelantado"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestContainsTerm_WholeWords(t *testing.T) {
	text := Normalize("Vendo arma de fuego antigua")
	assert.True(t, containsTerm(text, "arma de fuego"))
	assert.True(t, containsTerm(text, "ARMA  de FUEGO"))
	assert.False(t, containsTerm(text, "arma de fuegos"))
	assert.False(t, containsTerm(text, "rma"))
	assert.False(t, containsTerm(text, ""))
}

func TestContainsTerm_Stem(t *testing.T) {
	text := Normalize("Diseño revolucionario, vendo cocainas y armas de fuego")

	assert.False(t, containsTerm(text, "revolucion"))
	assert.True(t, containsTerm(text, "revolucion*"))
	assert.True(t, containsTerm(text, "Revolución*"))
	assert.True(t, containsTerm(text, "cocaina*"))
	assert.True(t, containsTerm(text, "armas de fue*"))
	assert.False(t, containsTerm(text, "arma* de fuego"), "only the last word is a stem")
	assert.False(t, containsTerm(text, "volucion*"), "stems anchor at the start of a word")
	assert.False(t, containsTerm(text, "*"))
}
