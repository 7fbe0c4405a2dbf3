package utilities

import (
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// SanitizeName collapses inner whitespace, strips surrounding ASCII
// punctuation and lower-cases the result. Usernames, author names and book
// titles are all stored in this form.
func SanitizeName(value string) string {
	s := strings.Join(strings.Fields(value), " ")
	s = strings.TrimSpace(strings.Trim(s, asciiPunctuation))
	return cases.Lower(language.Und).String(s)
}

// NormalizeEmail trims and lower-cases an address and reports whether it is a
// bare, well-formed address (no display name).
func NormalizeEmail(value string) (string, bool) {
	e := strings.ToLower(strings.TrimSpace(value))
	if e == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || addr.Name != "" {
		return e, false
	}
	at := strings.LastIndex(e, "@")
	if at <= 0 || !strings.Contains(e[at+1:], ".") {
		return e, false
	}
	return e, true
}
