package forecast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// fillerTokens are stripped from descriptions during normalization
// (spec.md §4.1).
var fillerTokens = map[string]bool{
	"payment":     true,
	"purchase":    true,
	"transaction": true,
	"pos":         true,
	"debit":       true,
	"credit":      true,
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// cleanedKeepingFillers lowercases and collapses whitespace without
// dropping filler tokens. The categorizer's "payment to"/"transfer to"
// sign-override check (spec.md §4.2) needs "payment"/"transfer" still
// present, which NormalizeDescription's filler-stripping would remove.
func cleanedKeepingFillers(description string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(strings.ToLower(description), " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
}

// NormalizeDescription lowercases, strips filler tokens, replaces
// non-alphanumerics with spaces, and collapses whitespace.
func NormalizeDescription(description string) string {
	cleaned := nonAlphanumeric.ReplaceAllString(strings.ToLower(description), " ")
	fields := strings.Fields(cleaned)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if fillerTokens[f] {
			continue
		}
		kept = append(kept, f)
	}
	return whitespaceRun.ReplaceAllString(strings.Join(kept, " "), " ")
}

// transferBlacklist phrases unconditionally mark a transaction an internal
// transfer.
var transferBlacklist = []string{
	"account transfer",
	"loan payment",
	"payment thank you",
}

// transferRegexes additionally mark a transaction a transfer unless a
// whitelist phrase is present.
var transferRegexes = []*regexp.Regexp{
	regexp.MustCompile(`\btransfer\b`),
	regexp.MustCompile(`\bxfer\b`),
	regexp.MustCompile(`\bach\b`),
	regexp.MustCompile(`\bautopay\b`),
	regexp.MustCompile(`\bonline (transfer|payment)\b`),
	regexp.MustCompile(`\b(deposit|payment) (to|from)\b`),
}

var transferWhitelist = []string{
	"payroll",
	"salary",
	"refund",
	"direct deposit",
	"interest",
	"dividend",
}

// IsInternalTransfer reports whether a normalized description identifies
// an internal transfer that should be dropped from the ledger (spec.md
// §4.1).
func IsInternalTransfer(normalizedDescription string) bool {
	for _, phrase := range transferBlacklist {
		if strings.Contains(normalizedDescription, phrase) {
			return true
		}
	}

	matchesTransferShape := false
	for _, re := range transferRegexes {
		if re.MatchString(normalizedDescription) {
			matchesTransferShape = true
			break
		}
	}
	if !matchesTransferShape {
		return false
	}

	for _, phrase := range transferWhitelist {
		if strings.Contains(normalizedDescription, phrase) {
			return false
		}
	}
	return true
}

// dedupKey is the deduplication key of spec.md §4.1: (date, rounded
// amount, normalized description).
func dedupKey(date string, amount decimal.Decimal, normalizedDescription string) string {
	return fmt.Sprintf("%s|%s|%s", date, amount.Round(2).String(), normalizedDescription)
}

// Normalize canonicalizes descriptions, drops internal transfers, and
// deduplicates a raw transaction slice, returning normalized events still
// missing their final category (categorization happens in a separate
// pass so the categorizer can consult the alias cache).
func Normalize(transactions []Transaction) []Event {
	seen := make(map[string]bool, len(transactions))
	out := make([]Event, 0, len(transactions))

	for _, tx := range transactions {
		date := truncateDay(tx.Date)
		normalized := NormalizeDescription(tx.Description)

		if IsInternalTransfer(normalized) {
			continue
		}

		key := dedupKey(date.Format("2006-01-02"), tx.Amount, normalized)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, Event{
			Date:                  date,
			Description:           tx.Description,
			NormalizedDescription: normalized,
			Amount:                tx.Amount,
			Type:                  EventTypeHistorical,
		})
	}

	return out
}
