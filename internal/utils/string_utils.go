package utils

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripTags = bluemonday.StrictPolicy()

// SanitizeText strips HTML tags and decodes entities, leaving plain text
// with collapsed whitespace.
func SanitizeText(s string) string {
	s = stripTags.Sanitize(html.UnescapeString(s))
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldAccents removes combining marks, so "Café Élan" becomes "Cafe Elan".
// Letters without a decomposition, such as đ, are mapped explicitly.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D", "ø", "o", "Ø", "O", "ł", "l", "Ł", "L").Replace(out)
}

// SearchKey is the normalised form used for fuzzy matching.
func SearchKey(s string) string {
	return strings.ToLower(FoldAccents(SanitizeText(s)))
}

// HashSecret hashes a client secret with bcrypt.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret reports whether secret matches a bcrypt hash.
func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
