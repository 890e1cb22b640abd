// Package reference extracts student-number tokens from free-text payment
// descriptions and generates new numbers for registration.
package reference

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// Student numbers follow STU-<4 digit year>-<zero padded sequence>.
var studentNumberRE = regexp.MustCompile(`STU-\d{4}-\d{3,}`)

// Extract returns the first student-number token found in text. When several
// candidates appear the first one wins and the rest are logged for context;
// the caller falls back to name matching when ok is false.
func Extract(text string) (token string, ok bool) {
	all := studentNumberRE.FindAllString(text, -1)
	if len(all) == 0 {
		return "", false
	}
	if len(all) > 1 {
		log.Printf("reference: %d candidate tokens in %q, using first %s", len(all), snippet(text, 80), all[0])
	}
	return all[0], true
}

// ExtractAll returns every token in order of appearance.
func ExtractAll(text string) []string {
	return studentNumberRE.FindAllString(text, -1)
}

// Next generates the next student number for an academic year given the
// numbers already issued, e.g. STU-2025-001, STU-2025-002.
func Next(academicYear string, existing []string) string {
	prefix := "STU-" + academicYear + "-"
	max := 0
	for _, num := range existing {
		if !strings.HasPrefix(num, prefix) {
			continue
		}
		if seq, err := strconv.Atoi(num[len(prefix):]); err == nil && seq > max {
			max = seq
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
