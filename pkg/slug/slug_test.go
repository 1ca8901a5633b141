package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_BasicASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"foo bar baz", "foo-bar-baz"},
		{"ALL UPPER CASE", "all-upper-case"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_BalticCharacters(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Šiaulių apskritis", "siauliu-apskritis"},
		{"Kėdainiai", "kedainiai"},
		{"Žalia suknelė", "zalia-suknele"},
		{"Rīga", "riga"},
		{"Pärnu maakond", "parnu-maakond"},
		{"Łódź", "lodz"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_TurkishCharacters(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"İstanbul", "istanbul"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_SpecialCharacters(t *testing.T) {
	assert.Equal(t, "hello-world", Generate("Hello!!! World???"))
	assert.Equal(t, "one-two", Generate("one & two"))
	assert.Equal(t, "strasse", Generate("Straße"))
}

func TestGenerate_EdgeCases(t *testing.T) {
	assert.Equal(t, "", Generate(""))
	assert.Equal(t, "", Generate("   "))
	assert.Equal(t, "", Generate("!!!"))
	assert.Equal(t, "a-b", Generate("a - - b"))
	assert.Equal(t, "hello", Generate("-hello-"))
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "red-dress-k3x9", WithSuffix("Red Dress", "k3x9"))
	assert.Equal(t, "k3x9", WithSuffix("!!!", "k3x9"))
	assert.Equal(t, "red-dress", WithSuffix("Red Dress", ""))
}
