package importer

import "strings"

// RawRecord is one upstream record as decoded JSON. Upstream pools mix
// field-name conventions depending on which integration originally wrote
// the contact, so extraction is fallback-chain based.
type RawRecord = map[string]any

// Record is the canonical normalized shape forwarded downstream.
type Record struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Field-name spellings tried in fixed priority order.
var (
	firstNameKeys = []string{"first_name", "firstName", "firstname"}
	lastNameKeys  = []string{"last_name", "lastName", "lastname"}
)

// emailExtractors is the prioritized accessor chain for the email field:
// direct spellings first, then one level of nesting, then the first
// element of an emails array.
var emailExtractors = []func(RawRecord) string{
	directField("email"),
	directField("email_address"),
	directField("emailAddress"),
	nestedField("contact", "email"),
	nestedField("person", "email"),
	firstOfEmailsArray,
}

// Normalize maps a heterogeneous upstream record into the canonical
// shape. Unresolved fields become empty strings, never nulls. Pure:
// no I/O, deterministic, and idempotent on already-canonical input.
func Normalize(raw RawRecord) Record {
	rec := Record{
		FirstName: firstMatch(raw, firstNameKeys),
		LastName:  firstMatch(raw, lastNameKeys),
	}

	// Free-text name fallback: first token → first name, rest → last name.
	if rec.FirstName == "" && rec.LastName == "" {
		if name := stringField(raw, "name"); name != "" {
			parts := strings.Fields(name)
			rec.FirstName = parts[0]
			rec.LastName = strings.Join(parts[1:], " ")
		}
	}

	for _, extract := range emailExtractors {
		if email := extract(raw); email != "" {
			rec.Email = email
			break
		}
	}

	return rec
}

func firstMatch(raw RawRecord, keys []string) string {
	for _, key := range keys {
		if v := stringField(raw, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(raw RawRecord, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func directField(key string) func(RawRecord) string {
	return func(raw RawRecord) string {
		return stringField(raw, key)
	}
}

func nestedField(outer, inner string) func(RawRecord) string {
	return func(raw RawRecord) string {
		obj, ok := raw[outer].(map[string]any)
		if !ok {
			return ""
		}
		return stringField(obj, inner)
	}
}

// firstOfEmailsArray handles pools that carry a list of addresses; only
// the first entry is used. Elements may be plain strings or objects with
// an "email" key.
func firstOfEmailsArray(raw RawRecord) string {
	arr, ok := raw["emails"].([]any)
	if !ok || len(arr) == 0 {
		return ""
	}
	switch first := arr[0].(type) {
	case string:
		return strings.TrimSpace(first)
	case map[string]any:
		return stringField(first, "email")
	}
	return ""
}
