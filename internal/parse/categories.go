package parse

import (
	"strings"
	"unicode"
)

// Canonical category display names.
const (
	CatFood          = "Food & Dining"
	CatShopping      = "Shopping"
	CatTransport     = "Transportation"
	CatBills         = "Bills & Utilities"
	CatEntertainment = "Entertainment"
	CatHealthcare    = "Healthcare"
	CatEducation     = "Education"
	CatSalary        = "Salary"
	CatFreelance     = "Freelance"
	CatInvestment    = "Investment"
	CatBusiness      = "Business"
	CatOther         = "Other"
)

// Vocabulary maps raw category tokens to canonical display names. It is
// immutable after construction so lookups are safe from any goroutine.
type Vocabulary struct {
	canon  map[string]string // lowercased keyword -> canonical name
	income map[string]bool   // canonical name -> classifies as income
}

// NewVocabulary builds a vocabulary from an explicit keyword table plus the
// set of canonical names that imply income. Canonical names are always
// recognized as their own keyword, so normalizing an already-canonical name
// returns it unchanged.
func NewVocabulary(keywords map[string]string, incomeCategories []string) Vocabulary {
	v := Vocabulary{
		canon:  make(map[string]string, len(keywords)*2),
		income: make(map[string]bool, len(incomeCategories)),
	}
	for raw, canonical := range keywords {
		v.canon[strings.ToLower(strings.TrimSpace(raw))] = canonical
		v.canon[strings.ToLower(canonical)] = canonical
	}
	for _, name := range incomeCategories {
		v.income[name] = true
	}
	return v
}

// DefaultVocabulary returns the stock keyword table used by the bot.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(map[string]string{
		"food":          CatFood,
		"lunch":         CatFood,
		"dinner":        CatFood,
		"breakfast":     CatFood,
		"coffee":        CatFood,
		"snack":         CatFood,
		"groceries":     CatFood,
		"restaurant":    CatFood,
		"shopping":      CatShopping,
		"clothes":       CatShopping,
		"electronics":   CatShopping,
		"furniture":     CatShopping,
		"transport":     CatTransport,
		"gas":           CatTransport,
		"fuel":          CatTransport,
		"taxi":          CatTransport,
		"uber":          CatTransport,
		"parking":       CatTransport,
		"transit":       CatTransport,
		"bills":         CatBills,
		"bill":          CatBills,
		"utilities":     CatBills,
		"electricity":   CatBills,
		"water":         CatBills,
		"internet":      CatBills,
		"phone":         CatBills,
		"rent":          CatBills,
		"entertainment": CatEntertainment,
		"movie":         CatEntertainment,
		"movies":        CatEntertainment,
		"concert":       CatEntertainment,
		"games":         CatEntertainment,
		"streaming":     CatEntertainment,
		"health":        CatHealthcare,
		"doctor":        CatHealthcare,
		"medicine":      CatHealthcare,
		"hospital":      CatHealthcare,
		"insurance":     CatHealthcare,
		"education":     CatEducation,
		"course":        CatEducation,
		"tuition":       CatEducation,
		"books":         CatEducation,
		"salary":        CatSalary,
		"income":        CatSalary,
		"paycheck":      CatSalary,
		"wage":          CatSalary,
		"bonus":         CatSalary,
		"freelance":     CatFreelance,
		"consultation":  CatFreelance,
		"investment":    CatInvestment,
		"dividend":      CatInvestment,
		"dividends":     CatInvestment,
		"stocks":        CatInvestment,
		"business":      CatBusiness,
		"revenue":       CatBusiness,
		"commission":    CatBusiness,
	}, []string{CatSalary, CatFreelance, CatInvestment, CatBusiness})
}

// Normalize maps a raw category token to its canonical display name. Unknown
// tokens are title-cased and returned as-is so user-invented categories stay
// usable; an empty token falls back to Other. Normalize never rejects input.
func (v Vocabulary) Normalize(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return CatOther
	}
	if canonical, ok := v.canon[key]; ok {
		return canonical
	}
	return titleCase(key)
}

// IsIncome reports whether a canonical category classifies as income.
func (v Vocabulary) IsIncome(canonical string) bool {
	return v.income[canonical]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
