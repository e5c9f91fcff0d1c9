package search

import (
	"regexp"
	"strconv"
	"strings"

	"tasfiat-brain/internal/textnorm"
)

// Audience is a bit set of customer groups an item or a query refers to.
type Audience uint8

const (
	AudienceMale Audience = 1 << iota
	AudienceFemale
	AudienceKids
)

var (
	sizeRe  = regexp.MustCompile(`(?:^|\s)(\d{2}(?:\.\d)?)(?:\s|$)`)
	urlRe   = regexp.MustCompile(`/product/([a-z0-9\-]+)`)
	moneyRe = regexp.MustCompile(`(\d{1,5}(?:\.\d{1,2})?)\s*(?:شيكل|شيقل|شواكل|₪|ils|nis)|₪\s*(\d{1,5}(?:\.\d{1,2})?)`)
)

var currencyWords = []string{"شيكل", "شيقل", "شواكل", "₪", "ils", "nis"}

var audienceWords = map[Audience]map[string]struct{}{
	AudienceMale: normalizedSet(
		"رجالي", "رجال", "للرجال", "رجالية", "شبابي", "شباب", "ولادي",
		"men", "mens", "man", "male",
	),
	AudienceFemale: normalizedSet(
		"نسائي", "نساء", "نسواني", "للنساء", "ستاتي", "بناتي", "صبايا",
		"women", "womens", "woman", "ladies", "female",
	),
	AudienceKids: normalizedSet(
		"اطفال", "للاطفال", "طفل", "ولاد", "للولاد", "بيبي", "اطفالي",
		"kids", "kid", "children", "junior", "baby",
	),
}

var discountWords = normalizedSet(
	"خصم", "خصومات", "تخفيض", "تخفيضات", "تنزيلات", "عرض", "عروض", "اوكازيون",
	"sale", "discount", "offer", "offers",
)

// Signals are the optional hints a query carries besides its words.
type Signals struct {
	Size     string
	URLSlug  string
	Amount   float64
	Audience Audience
	Discount bool
}

// Any reports whether the query carries a price, audience or discount hint.
func (s Signals) Any() bool {
	return s.Amount > 0 || s.Audience != 0 || s.Discount
}

// DetectSignals extracts size, product URL, price, audience and discount
// hints from raw query text.
func DetectSignals(raw string) Signals {
	simple := textnorm.Simplify(raw)
	sig := Signals{
		Size:   DetectSize(simple),
		Amount: detectAmount(simple),
	}
	if m := urlRe.FindStringSubmatch(simple); m != nil {
		sig.URLSlug = m[1]
	}

	tokens := textnorm.Tokenize(textnorm.Normalize(raw))
	for _, t := range tokens {
		if _, ok := discountWords[t]; ok {
			sig.Discount = true
		}
	}
	sig.Audience = audienceOfTokens(tokens)
	return sig
}

// DetectSize returns the first two-digit size token in simplified text.
// Numbers followed by a currency are prices, not sizes.
func DetectSize(simple string) string {
	for _, loc := range sizeRe.FindAllStringSubmatchIndex(simple, -1) {
		size := simple[loc[2]:loc[3]]
		rest := strings.TrimSpace(simple[loc[3]:])
		if hasCurrencyPrefix(rest) {
			continue
		}
		return size
	}
	return ""
}

// IsOnlySize reports whether the whole message is a single size token.
func IsOnlySize(raw string) bool {
	simple := strings.TrimSpace(textnorm.Simplify(raw))
	return simple != "" && DetectSize(simple) == simple
}

// HasMoney reports whether raw text mentions an amount with a currency.
func HasMoney(raw string) bool {
	return detectAmount(textnorm.Simplify(raw)) > 0
}

func detectAmount(simple string) float64 {
	m := moneyRe.FindStringSubmatch(simple)
	if m == nil {
		return 0
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func hasCurrencyPrefix(s string) bool {
	for _, c := range currencyWords {
		if strings.HasPrefix(s, c) {
			return true
		}
	}
	return false
}

// audienceOf classifies normalized free text such as an item's gender and
// age fields.
func audienceOf(normalized string) Audience {
	return audienceOfTokens(strings.Fields(normalized))
}

func audienceOfTokens(tokens []string) Audience {
	var a Audience
	for _, t := range tokens {
		for group, words := range audienceWords {
			if _, ok := words[t]; ok {
				a |= group
			}
		}
	}
	return a
}

func normalizedSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[textnorm.Normalize(w)] = struct{}{}
	}
	return set
}
