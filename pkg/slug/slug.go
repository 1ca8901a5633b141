package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that carry no combining mark in NFD and need an explicit ASCII form.
var letterReplacer = strings.NewReplacer(
	"ı", "i",
	"ł", "l",
	"ø", "o",
	"đ", "d",
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
)

// Generate creates a URL-friendly slug from the given name.
// Diacritics are folded to ASCII for any Latin script (Lithuanian, Latvian,
// Estonian, Polish, Turkish, German, ...).
//
// Examples:
//   - "Šiaulių apskritis" → "siauliu-apskritis"
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = letterReplacer.Replace(s)

	folded, _, err := transform.String(foldChain(), s)
	if err == nil {
		s = folded
	}

	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix joins a slug and a disambiguating suffix, e.g. ("red-dress", "k3x9") → "red-dress-k3x9".
// An empty base yields the suffix alone.
func WithSuffix(base, suffix string) string {
	base = Generate(base)
	suffix = Generate(suffix)
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	default:
		return base + "-" + suffix
	}
}

// transform.Chain holds state, so each call builds its own.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
