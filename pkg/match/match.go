// Package match decides which child, if any, a bank transaction belongs to.
// The decision is pure: it looks at one transaction and the active roster and
// returns a tagged outcome. Ledger mutation happens elsewhere.
package match

import (
	"log"
	"strings"

	"github.com/mofokengkatleho/katlehouniversity/models"
	"github.com/mofokengkatleho/katlehouniversity/pkg/reference"
)

type Outcome string

const (
	Matched   Outcome = "MATCHED"
	Ambiguous Outcome = "AMBIGUOUS"
	NoMatch   Outcome = "NO_MATCH"
)

// Decision is the result of running the policy over one transaction.
// Candidates is populated on Ambiguous so a reviewer can see who collided.
type Decision struct {
	Outcome    Outcome
	Child      *models.Child
	Note       string
	Candidates []models.Child
}

// Decide applies the matching policy in order: student-number reference
// first, then a name or payment-reference token match. Two or more name
// hits means nobody wins; the engine never guesses.
func Decide(txn models.Transaction, roster []models.Child) Decision {
	text := txn.Description + " " + txn.SenderName

	if ref, ok := reference.Extract(text); ok {
		if child := byStudentNumber(roster, ref); child != nil {
			return Decision{
				Outcome: Matched,
				Child:   child,
				Note:    "matched on reference " + ref,
			}
		}
		log.Printf("match: reference %s in %q maps to no active child", ref, txn.BankReference)
	}

	words := tokenSet(text)
	var hits []models.Child
	for _, c := range roster {
		if !c.IsActive() {
			continue
		}
		if hasAllTokens(words, c.FullName()) || hasAllTokens(words, c.PaymentReference) {
			hits = append(hits, c)
		}
	}

	switch len(hits) {
	case 0:
		return Decision{Outcome: NoMatch}
	case 1:
		child := hits[0]
		return Decision{
			Outcome: Matched,
			Child:   &child,
			Note:    "matched on name " + child.FullName(),
		}
	default:
		return Decision{
			Outcome:    Ambiguous,
			Candidates: hits,
			Note:       "multiple candidate children",
		}
	}
}

func byStudentNumber(roster []models.Child, ref string) *models.Child {
	for i, c := range roster {
		if c.IsActive() && strings.EqualFold(c.StudentNumber, ref) {
			return &roster[i]
		}
	}
	return nil
}

// tokenSet normalizes text and splits it into a word set. Matching works on
// tokens, not ordered substrings, because statements list names in either
// order ("JANE DOE" and "DOE, JANE" are the same sender).
func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(Normalize(text)) {
		set[tok] = true
	}
	return set
}

// hasAllTokens reports whether every word of the normalized needle appears
// in the set. An empty needle never matches.
func hasAllTokens(set map[string]bool, needle string) bool {
	toks := strings.Fields(Normalize(needle))
	if len(toks) == 0 {
		return false
	}
	for _, tok := range toks {
		if !set[tok] {
			return false
		}
	}
	return true
}

// Normalize lowercases and strips punctuation so "DOE, JANE" and "jane doe"
// reduce to the same words.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Suggestions is the manual-review helper: children whose full name or
// student number appears in the transaction text. Looser than Decide on
// purpose, so a reviewer sees near-misses too.
func Suggestions(txn models.Transaction, roster []models.Child) []models.Child {
	words := tokenSet(txn.Description + " " + txn.PaymentReference + " " + txn.SenderName)
	var out []models.Child
	for _, c := range roster {
		if !c.IsActive() {
			continue
		}
		if hasAllTokens(words, c.FullName()) || hasAllTokens(words, c.StudentNumber) {
			out = append(out, c)
		}
	}
	return out
}
