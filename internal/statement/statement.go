// Package statement implements spec.md §6's statement-import format: a
// best-effort CSV-like parser that turns heterogeneous bank/credit-card
// export files into normalized forecast.Transaction records. It is the
// boundary that produces the forecast engine's only input shape; nothing
// downstream of Parse needs to know about delimiters, encodings, or bank
// column-naming conventions.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dafibh/fortuna/fortuna-backend/internal/forecast"
	"github.com/shopspring/decimal"
)

// Type distinguishes the two statement conventions spec.md §6 names. It
// only affects the unsigned-amount sign default.
type Type string

const (
	TypeBankAccount Type = "bank_account"
	TypeCreditCard  Type = "credit_card"
)

var candidateDelimiters = []rune{',', '\t', ';', '|', '~'}

// ColumnMap overrides auto-detection of logical columns with explicit
// header names (spec.md §6 "optional column_map"). Any field left empty
// falls back to keyword auto-detection.
type ColumnMap struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Type        string `json:"type"`
}

// Options configures a single Parse call.
type Options struct {
	ColumnMap     *ColumnMap
	Delimiter     rune // 0 means auto-detect
	StatementType Type
}

// Summary reports what happened parsing one file, echoed back to the
// caller per spec.md §6's "per-file summaries".
type Summary struct {
	Filename     string   `json:"filename"`
	RowCount     int      `json:"row_count"`
	ParsedCount  int      `json:"parsed_count"`
	SkippedCount int      `json:"skipped_count"`
	Delimiter    string   `json:"delimiter"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Result is Parse's return value: the normalized transactions plus the
// bookkeeping needed to explain skipped rows to the caller.
type Result struct {
	Transactions []forecast.Transaction
	Summary      Summary
}

// dateLayouts is the fallback ladder spec.md §6 describes, most specific
// first, ending at 8-digit compact forms.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"Jan-02-2006",
	"20060102",
}

var dateHeaderKeywords = []string{"date", "posted", "trans date", "transaction date"}
var descriptionHeaderKeywords = []string{"description", "memo", "payee", "merchant", "details", "narrative"}
var amountHeaderKeywords = []string{"amount", "amt"}
var debitHeaderKeywords = []string{"debit", "withdrawal", "withdrawals"}
var creditHeaderKeywords = []string{"credit", "deposit", "deposits"}
var typeHeaderKeywords = []string{"type", "transaction type"}

var negativeTypeKeywords = []string{"debit", "charge", "purchase", "withdraw"}
var positiveTypeKeywords = []string{"credit", "payment", "refund", "deposit"}

// ErrEmptyFile is returned when a statement file has no parseable header row.
var ErrEmptyFile = fmt.Errorf("statement: empty file")

// ErrNoColumns is returned when neither an explicit column_map nor
// keyword auto-detection can locate date/description/amount columns.
var ErrNoColumns = fmt.Errorf("statement: could not identify date/description/amount columns")

// ErrNoParsedRows is returned when every data row failed date or amount
// coercion, per spec.md §7's "parse failure" error kind.
type ErrNoParsedRows struct {
	RowCount      int
	DateFailures  int
	AmountFailures int
}

func (e *ErrNoParsedRows) Error() string {
	return fmt.Sprintf("statement: no valid rows out of %d (date failures: %d, amount failures: %d)",
		e.RowCount, e.DateFailures, e.AmountFailures)
}

// Parse converts one statement file's raw bytes into normalized
// transactions. It never returns a partial Result without an error: a
// file either yields at least one transaction or Parse fails with
// ErrNoParsedRows / ErrNoColumns / ErrEmptyFile.
func Parse(filename string, raw []byte, opts Options) (Result, error) {
	text := decodeToUTF8(raw)

	delim := opts.Delimiter
	if delim == 0 {
		delim = detectDelimiter(text)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("statement: csv parse failed: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, ErrEmptyFile
	}

	header := rows[0]
	cols, err := resolveColumns(header, opts.ColumnMap)
	if err != nil {
		return Result{}, err
	}

	var (
		transactions   []forecast.Transaction
		warnings       []string
		dateFailures   int
		amountFailures int
		negativeSeen   bool
	)

	type pending struct {
		date        time.Time
		description string
		amount      decimal.Decimal
		typeOverride string
	}
	var parsedRows []pending

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		txDate, ok := parseDate(field(row, cols.date))
		if !ok {
			dateFailures++
			continue
		}

		amount, ok := resolveAmount(row, cols)
		if !ok {
			amountFailures++
			continue
		}

		if amount.IsNegative() {
			negativeSeen = true
		}

		parsedRows = append(parsedRows, pending{
			date:         txDate,
			description:  strings.TrimSpace(field(row, cols.description)),
			amount:       amount,
			typeOverride: strings.ToLower(strings.TrimSpace(field(row, cols.typeCol))),
		})
	}

	if len(parsedRows) == 0 {
		return Result{}, &ErrNoParsedRows{RowCount: len(rows) - 1, DateFailures: dateFailures, AmountFailures: amountFailures}
	}

	// Credit-card default: if unsigned amounts dominate (the file never
	// used a minus sign) treat them as expenses, per spec.md §6.
	flipUnsigned := opts.StatementType == TypeCreditCard && !negativeSeen && cols.amount != -1

	for _, p := range parsedRows {
		amount := p.amount
		switch {
		case matchesAnyKeyword(p.typeOverride, negativeTypeKeywords):
			amount = negateMagnitude(amount)
		case matchesAnyKeyword(p.typeOverride, positiveTypeKeywords):
			amount = amount.Abs()
		case flipUnsigned:
			amount = negateMagnitude(amount)
		}

		transactions = append(transactions, forecast.Transaction{
			Date:        date(p.date),
			Description: p.description,
			Amount:      amount,
		})
	}

	if flipUnsigned {
		warnings = append(warnings, "credit_card statement: unsigned amounts treated as expenses")
	}

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.Before(transactions[j].Date)
	})

	return Result{
		Transactions: transactions,
		Summary: Summary{
			Filename:     filename,
			RowCount:     len(rows) - 1,
			ParsedCount:  len(transactions),
			SkippedCount: dateFailures + amountFailures,
			Delimiter:    string(delim),
			Warnings:     warnings,
		},
	}, nil
}

func date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func negateMagnitude(d decimal.Decimal) decimal.Decimal {
	return d.Abs().Neg()
}

func matchesAnyKeyword(value string, keywords []string) bool {
	if value == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(value, k) {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// columnIndices is the resolved position of each logical column within a
// single header row; -1 means absent.
type columnIndices struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
	typeCol     int
}

func resolveColumns(header []string, override *ColumnMap) (columnIndices, error) {
	normalizedHeader := make([]string, len(header))
	for i, h := range header {
		normalizedHeader[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(explicit string, keywords []string) int {
		if explicit != "" {
			target := strings.ToLower(strings.TrimSpace(explicit))
			for i, h := range normalizedHeader {
				if h == target {
					return i
				}
			}
			return -1
		}
		for i, h := range normalizedHeader {
			for _, kw := range keywords {
				if strings.Contains(h, kw) {
					return i
				}
			}
		}
		return -1
	}

	var cols columnIndices
	if override != nil {
		cols.date = find(override.Date, dateHeaderKeywords)
		cols.description = find(override.Description, descriptionHeaderKeywords)
		cols.amount = find(override.Amount, amountHeaderKeywords)
		cols.debit = find(override.Debit, debitHeaderKeywords)
		cols.credit = find(override.Credit, creditHeaderKeywords)
		cols.typeCol = find(override.Type, typeHeaderKeywords)
	} else {
		cols.date = find("", dateHeaderKeywords)
		cols.description = find("", descriptionHeaderKeywords)
		cols.amount = find("", amountHeaderKeywords)
		cols.debit = find("", debitHeaderKeywords)
		cols.credit = find("", creditHeaderKeywords)
		cols.typeCol = find("", typeHeaderKeywords)
	}

	if cols.date == -1 || cols.description == -1 {
		return cols, ErrNoColumns
	}
	if cols.amount == -1 && cols.debit == -1 && cols.credit == -1 {
		return cols, ErrNoColumns
	}
	return cols, nil
}

func resolveAmount(row []string, cols columnIndices) (decimal.Decimal, bool) {
	if cols.amount != -1 {
		raw := strings.TrimSpace(field(row, cols.amount))
		return parseSignedMoney(raw)
	}

	debitRaw := strings.TrimSpace(field(row, cols.debit))
	creditRaw := strings.TrimSpace(field(row, cols.credit))

	if debitRaw != "" {
		v, ok := parseUnsignedMoney(debitRaw)
		if !ok {
			return decimal.Zero, false
		}
		if !v.IsZero() {
			return v.Neg(), true
		}
	}
	if creditRaw != "" {
		v, ok := parseUnsignedMoney(creditRaw)
		if !ok {
			return decimal.Zero, false
		}
		return v, true
	}
	if debitRaw == "" && creditRaw == "" {
		return decimal.Zero, false
	}
	return decimal.Zero, true
}

func parseSignedMoney(raw string) (decimal.Decimal, bool) {
	cleaned, negative := cleanMoney(raw)
	if cleaned == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		v = v.Abs().Neg()
	}
	return v, true
}

func parseUnsignedMoney(raw string) (decimal.Decimal, bool) {
	v, ok := parseSignedMoney(raw)
	if !ok {
		return decimal.Zero, false
	}
	return v.Abs(), true
}

// cleanMoney strips currency symbols, thousands separators, and
// parenthesized-negative notation (common in credit-card exports),
// returning the numeric text and whether the value is negative.
func cleanMoney(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String(), negative
}

func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// detectDelimiter picks the candidate delimiter that splits the header
// row into the most fields, matching spec.md §6's auto-detection set.
func detectDelimiter(text string) rune {
	firstLine := text
	if idx := strings.IndexAny(text, "\r\n"); idx != -1 {
		firstLine = text[:idx]
	}

	best := ','
	bestCount := -1
	for _, d := range candidateDelimiters {
		count := strings.Count(firstLine, string(d))
		if count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best
}

// decodeToUTF8 strips a UTF-8 BOM if present, and falls back to a
// byte-for-byte ISO-8859-1 (Latin-1) decode when the input isn't valid
// UTF-8 — Latin-1's code points map 1:1 onto the first 256 Unicode
// code points, so no external charset library is needed for this.
func decodeToUTF8(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// ParseFile is a convenience wrapper for callers holding an io.Reader
// (e.g. a multipart.File) rather than a byte slice.
func ParseFile(filename string, r io.Reader, opts Options) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("statement: read failed: %w", err)
	}
	return Parse(filename, raw, opts)
}

// Aggregated is the `POST /import/statement` response shape: transactions
// merged and re-sorted across every uploaded file, plus one Summary each.
type Aggregated struct {
	Transactions []forecast.Transaction `json:"transactions"`
	Summaries    []Summary              `json:"files"`
}

// Aggregate merges multiple per-file Results into one sorted transaction
// ledger, for the import endpoint's multi-file upload (the `file` form
// field may repeat).
func Aggregate(results []Result) Aggregated {
	out := Aggregated{Summaries: make([]Summary, 0, len(results))}
	for _, r := range results {
		out.Transactions = append(out.Transactions, r.Transactions...)
		out.Summaries = append(out.Summaries, r.Summary)
	}
	sort.SliceStable(out.Transactions, func(i, j int) bool {
		return out.Transactions[i].Date.Before(out.Transactions[j].Date)
	})
	return out
}
