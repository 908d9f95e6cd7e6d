// Package contact extracts, validates and normalizes emails and phone numbers
// from free text and page markup.
package contact

import (
	"regexp"
	"strings"
)

// MaxCandidates is the number of emails and phones kept per bundle.
const MaxCandidates = 3

const minEmailLength = 6

// Bundle is the ordered result of one parse. Order is first-seen order.
type Bundle struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// Empty reports whether the bundle holds no candidates.
func (b Bundle) Empty() bool {
	return len(b.Emails) == 0 && len(b.Phones) == 0
}

var (
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		regexp.MustCompile(`mailto:([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`),
		regexp.MustCompile(`(?i)email[:\s]*([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`),
	}

	phonePatterns = []*regexp.Regexp{
		// Bounded by non-digits so longer numbers are not split into fragments.
		regexp.MustCompile(`(?:^|\D)(\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4})\b`),
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10}\b`),
		regexp.MustCompile(`(?i)tel:\s*(\+?[\d\s().-]{10,20})`),
	}

	excludedEmailFragments = []string{"noreply", "no-reply", "donotreply"}

	phoneLabels = strings.NewReplacer("tel:", "", "Phone: ", "", "Call ", "")
)

// Parse extracts up to MaxCandidates unique, valid emails and phones from text.
func Parse(text string) Bundle {
	return Bundle{
		Emails: Merge(MaxCandidates, extractEmails(text)),
		Phones: Merge(MaxCandidates, extractPhones(text)),
	}
}

func extractEmails(text string) []string {
	var out []string
	for _, re := range emailPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if email, ok := NormalizeEmail(lastGroup(m)); ok {
				out = append(out, email)
			}
		}
	}
	return out
}

func extractPhones(text string) []string {
	var out []string
	for _, re := range phonePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if phone, ok := NormalizePhone(lastGroup(m)); ok {
				out = append(out, phone)
			}
		}
	}
	return out
}

// lastGroup returns the capture group when the pattern has one, otherwise the whole match.
func lastGroup(m []string) string {
	if len(m) > 1 && m[len(m)-1] != "" {
		return m[len(m)-1]
	}
	return m[0]
}

// NormalizeEmail lower-cases and trims raw and reports whether it is a usable
// business address.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if len(email) < minEmailLength || !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", false
	}
	for _, frag := range excludedEmailFragments {
		if strings.Contains(email, frag) {
			return "", false
		}
	}
	return email, true
}

// NormalizePhone strips raw to digits and formats it. Ten digits, or eleven
// with a leading country code 1, become "(AAA) PPP-NNNN"; other lengths in
// 10..15 are returned as bare digits.
func NormalizePhone(raw string) (string, bool) {
	digits := Digits(raw)
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) == 10 {
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:], true
	}
	return digits, true
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindPhone returns the first phone-looking substring of text with at least
// ten digits, in its original format.
func FindPhone(text string) (string, bool) {
	text = strings.TrimSpace(phoneLabels.Replace(text))
	if text == "" {
		return "", false
	}
	for _, re := range phonePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(lastGroup(m))
			if len(Digits(candidate)) >= 10 {
				return candidate, true
			}
		}
	}
	return "", false
}

// Merge concatenates lists in order, drops duplicates and empty values, and
// keeps at most limit entries.
func Merge(limit int, lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, list := range lists {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			if len(out) == limit {
				return out
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// MergeBundles merges bundles in order and re-caps both lists.
func MergeBundles(bundles ...Bundle) Bundle {
	emails := make([][]string, 0, len(bundles))
	phones := make([][]string, 0, len(bundles))
	for _, b := range bundles {
		emails = append(emails, b.Emails)
		phones = append(phones, b.Phones)
	}
	return Bundle{
		Emails: Merge(MaxCandidates, emails...),
		Phones: Merge(MaxCandidates, phones...),
	}
}
