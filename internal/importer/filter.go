package importer

import (
	"regexp"
	"strings"
)

// Outcome classifies one record against the dedup/validation filter.
type Outcome string

const (
	OutcomeValid     Outcome = "valid"
	OutcomeNoEmail   Outcome = "skipped_no_email"
	OutcomeDuplicate Outcome = "duplicate"
)

// emailShape is intentionally loose: anything of the form text@text.text
// counts. Downstream does its own verification; this filter only drops
// records that could never deliver.
var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Accept classifies rec against the job-lifetime seen set. Dedup is
// case-insensitive on email; the first occurrence in page order wins and
// is recorded in seen.
func Accept(rec Record, seen map[string]struct{}) Outcome {
	if rec.Email == "" || !emailShape.MatchString(rec.Email) {
		return OutcomeNoEmail
	}
	key := strings.ToLower(rec.Email)
	if _, dup := seen[key]; dup {
		return OutcomeDuplicate
	}
	seen[key] = struct{}{}
	return OutcomeValid
}
