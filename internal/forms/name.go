package forms

import (
	"fmt"
	"strings"
)

// PlaceholderName labels inquiries with no usable name data
const PlaceholderName = "New Inquiry"

// Combined name fields, tried first, in order.
var combinedNameKeys = []string{"name", "fullName"}

// First/last pairs under the field names older form versions used.
var nameAliasPairs = [][2]string{
	{"firstName", "lastName"},
	{"first_name", "last_name"},
	{"clientFirstName", "clientLastName"},
	{"contactFirstName", "contactLastName"},
}

// Name is a person's name as submitted
type Name struct {
	First string
	Last  string
	Full  string
}

// IsZero reports whether no name was found
func (n Name) IsZero() bool {
	return n.Full == ""
}

// ResolveName finds the submitter's name in form data. A combined field
// wins over first/last pairs. It never fails; missing data yields a zero Name.
func ResolveName(data map[string]any) Name {
	for _, key := range combinedNameKeys {
		if full := stringField(data, key); full != "" {
			first, last := SplitName(full)
			return Name{First: first, Last: last, Full: strings.Join(strings.Fields(full), " ")}
		}
	}
	for _, pair := range nameAliasPairs {
		first, last := stringField(data, pair[0]), stringField(data, pair[1])
		if first == "" && last == "" {
			continue
		}
		return Name{First: first, Last: last, Full: strings.TrimSpace(first + " " + last)}
	}
	return Name{}
}

// DisplayName returns the label used on tasks and activity items
func DisplayName(data map[string]any) string {
	if n := ResolveName(data); !n.IsZero() {
		return n.Full
	}
	return PlaceholderName
}

// SplitName splits a combined name into a first token and the remainder
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// stringField reads a trimmed string value. Non-string scalars are formatted;
// maps, slices and nil read as empty.
func stringField(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
