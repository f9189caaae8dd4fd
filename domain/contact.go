package domain

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// Contact is a person that can be assigned to tasks.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Color string `json:"color"`
}

// ContactPalette holds the badge colours picked by ColorForName.
var ContactPalette = []string{"#FF7A00", "#9327FF", "#6E52FF", "#FC71FF", "#FFBB2B", "#1FD7C1", "#0038FF", "#C3FF2B"}

const fallbackContactColor = "#29abe2"

// ColorForName picks a stable palette colour for a contact name.
func ColorForName(name string) string {
	if len(ContactPalette) == 0 {
		return fallbackContactColor
	}
	var hash uint32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash = hash*31 + uint32(unit)
	}
	return ContactPalette[hash%uint32(len(ContactPalette))]
}

// Initials returns the upper-cased first letters of the first two words.
func Initials(name string) string {
	parts := strings.Fields(name)
	var b strings.Builder
	for i := 0; i < len(parts) && i < 2; i++ {
		r := []rune(parts[i])
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	return b.String()
}

// NormalizeName is the comparison key used to match contacts by name.
func NormalizeName(name string) string {
	return normalizeText(name)
}

func cloneContacts(contacts []Contact) []Contact {
	return append([]Contact{}, contacts...)
}
