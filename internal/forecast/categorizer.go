package forecast

import (
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// keywordFamily is one category's keyword list: single tokens match a
// whole word of the cleaned description, multi-word keywords match as a
// contiguous substring.
type keywordFamily struct {
	category Category
	keywords []string
}

// categoryPriority is the fixed keyword-family evaluation order of
// spec.md §4.2. The spec's priority list omits credit_card_fee; it is
// inserted next to bank_fee since both are fee-family categories and
// nothing in spec.md suggests a different slot.
var categoryPriority = []keywordFamily{
	{CategoryIncome, []string{"payroll", "salary", "direct deposit", "dividend", "interest earned", "deposit"}},
	{CategoryRent, []string{"rent", "landlord", "property management"}},
	{CategoryMortgage, []string{"mortgage", "home loan"}},
	{CategoryUtilities, []string{"electric", "water", "gas bill", "utility", "utilities", "power company", "sewer", "trash"}},
	{CategoryInternet, []string{"internet", "broadband", "cable", "isp", "wifi"}},
	{CategoryPhone, []string{"phone", "wireless", "cellular", "mobile carrier", "verizon", "att", "tmobile"}},
	{CategoryInsurance, []string{"insurance", "premium"}},
	{CategoryCarPayment, []string{"auto loan", "car payment", "car loan", "vehicle finance"}},
	{CategorySubscriptions, []string{"netflix", "spotify", "hulu", "subscription", "prime video", "disney plus", "youtube premium"}},
	{CategoryGas, []string{"gas station", "fuel", "shell", "chevron", "exxon", "bp gas"}},
	{CategoryGroceries, []string{"grocery", "groceries", "supermarket", "safeway", "kroger", "trader joe", "whole foods"}},
	{CategoryDining, []string{"restaurant", "cafe", "coffee", "starbucks", "dining", "doordash", "grubhub", "uber eats"}},
	{CategoryEntertainment, []string{"movie", "cinema", "concert", "theater", "ticketmaster", "game"}},
	{CategoryGifts, []string{"gift", "present"}},
	{CategoryTravel, []string{"airline", "hotel", "flight", "airbnb", "travel", "rental car"}},
	{CategoryShopping, []string{"amazon", "walmart", "target", "retail", "store", "shopping"}},
	{CategoryCreditCardFee, []string{"annual fee", "card fee", "finance charge", "interest charge", "late fee"}},
	{CategoryBankFee, []string{"overdraft", "maintenance fee", "service charge", "atm fee", "nsf fee", "bank fee"}},
	{CategoryHealthcare, []string{"pharmacy", "clinic", "doctor", "hospital", "medical", "dental", "healthcare"}},
}

// paymentToPattern guards the sign-override rule in spec.md §4.2: a
// positive-amount "payment to"/"transfer to" description is not forced to
// income.
var paymentToPattern = regexp.MustCompile(`\b(payment|transfer) to\b`)

// Categorizer assigns a closed-taxonomy Category to each event, backed by
// a process-wide alias cache (spec.md §3, §9: normalized description ->
// category, populated only for non-"other" matches, consulted before
// keyword matching except that positive amounts always re-route to
// income).
type Categorizer struct {
	mu    sync.RWMutex
	alias map[string]Category
}

// NewCategorizer creates a Categorizer with an empty alias cache.
func NewCategorizer() *Categorizer {
	return &Categorizer{alias: make(map[string]Category)}
}

// Categorize returns the category for a normalized description and signed
// amount, consulting and updating the alias cache. It derives its own
// sign-override phrase check from normalizedDescription; use
// CategorizeDescription when the raw (pre-filler-stripped) description is
// available, since the "payment to"/"transfer to" exception depends on
// tokens NormalizeDescription strips as filler.
func (c *Categorizer) Categorize(normalizedDescription string, amount decimal.Decimal) Category {
	return c.categorize(normalizedDescription, normalizedDescription, amount)
}

// CategorizeDescription is Categorize's full form: rawDescription is used
// only for the "payment to"/"transfer to" sign-override exception
// (spec.md §4.2), normalizedDescription is the alias-cache/keyword key.
func (c *Categorizer) CategorizeDescription(rawDescription, normalizedDescription string, amount decimal.Decimal) Category {
	return c.categorize(cleanedKeepingFillers(rawDescription), normalizedDescription, amount)
}

func (c *Categorizer) categorize(signCheckDescription, normalizedDescription string, amount decimal.Decimal) Category {
	isPositive := amount.IsPositive()
	isBankFeeReroute := false

	c.mu.RLock()
	cached, ok := c.alias[normalizedDescription]
	c.mu.RUnlock()

	if ok {
		if isPositive {
			if cached == CategoryBankFee {
				return CategoryIncome
			}
			if !paymentToPattern.MatchString(signCheckDescription) {
				return CategoryIncome
			}
		}
		return cached
	}

	category := classifyByKeyword(normalizedDescription)

	if isPositive {
		if category == CategoryBankFee {
			isBankFeeReroute = true
		}
		if isBankFeeReroute || !paymentToPattern.MatchString(signCheckDescription) {
			c.learn(normalizedDescription, category)
			return CategoryIncome
		}
	}

	c.learn(normalizedDescription, category)
	return category
}

// learn writes an alias cache entry, skipping "other" per spec.md §4.2.
func (c *Categorizer) learn(normalizedDescription string, category Category) {
	if category == CategoryOther {
		return
	}
	c.mu.Lock()
	c.alias[normalizedDescription] = category
	c.mu.Unlock()
}

// classifyByKeyword applies the fixed-priority keyword families, falling
// back to "other" if nothing matches.
func classifyByKeyword(normalizedDescription string) Category {
	tokens := strings.Fields(normalizedDescription)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	for _, family := range categoryPriority {
		for _, keyword := range family.keywords {
			if strings.Contains(keyword, " ") {
				if strings.Contains(normalizedDescription, keyword) {
					return family.category
				}
				continue
			}
			if tokenSet[keyword] {
				return family.category
			}
		}
	}
	return CategoryOther
}

// CategorizeEvents assigns categories to a slice of normalized events in
// place, honoring any caller-supplied category override.
func (c *Categorizer) CategorizeEvents(events []Event, overrides map[int]Category) {
	for i := range events {
		if override, ok := overrides[i]; ok && isValidCategory(override) {
			events[i].Category = override
			continue
		}
		events[i].Category = c.CategorizeDescription(events[i].Description, events[i].NormalizedDescription, events[i].Amount)
	}
}
