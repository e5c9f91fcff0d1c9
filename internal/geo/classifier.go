package geo

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"tasfiat-brain/internal/textnorm"
)

// maxBareCityRunes bounds how long a message without a preposition may be
// and still be taken as a city name on its own.
const maxBareCityRunes = 22

// Filler words that surround a city in a shipping question, in normalized form.
var shippingFillers = toSet(
	"توصيل", "التوصيل", "للتوصيل", "بتوصلو", "بتوصلوا", "توصلو", "شحن", "الشحن",
	"كم", "قديش", "قديه", "بكم", "سعر", "رسوم", "اجره", "تكلفه", "المده", "مده",
	"delivery", "deliver", "shipping", "ship", "price", "cost", "fee", "how", "much",
)

var prepositions = toSet("علي", "الي", "لعند", "عند", "to", "at")

// Normalized tokens naming places outside the delivery region.
var outsideHints = toSet(
	"الاردن", "اردن", "عمان", "مصر", "القاهره", "السعوديه", "الرياض", "جده",
	"الامارات", "دبي", "ابوظبي", "تركيا", "اسطنبول", "لبنان", "بيروت", "سوريا",
	"دمشق", "العراق", "قطر", "الكويت", "امريكا", "المانيا", "بريطانيا",
	"jordan", "amman", "egypt", "cairo", "saudi", "uae", "dubai", "turkey",
	"istanbul", "lebanon", "beirut", "syria", "iraq", "qatar", "kuwait", "usa",
	"america", "germany", "uk", "london",
)

// FeeTable holds the shipping fee per tier in shekels. West Bank and the
// Jerusalem suburbs share the lowest tier.
type FeeTable struct {
	WestBank   int `yaml:"west_bank"`
	Jerusalem  int `yaml:"jerusalem"`
	Inside1948 int `yaml:"inside_1948"`
}

func (f FeeTable) Fee(z Zone) (int, bool) {
	switch z {
	case ZoneWestBank, ZoneJerusalemSuburbs:
		return f.WestBank, true
	case ZoneJerusalem:
		return f.Jerusalem, true
	case ZoneInside1948:
		return f.Inside1948, true
	}
	return 0, false
}

// Quote is the classifier's answer. Fee is only meaningful when Priced
// reports true; City is the normalized candidate, empty when none was found.
// Display is the same candidate as the customer spelled it.
type Quote struct {
	City    string
	Display string
	Zone    Zone
	Fee     int
}

func (q Quote) Priced() bool {
	return q.Zone.IsPlaceZone()
}

type Classifier struct {
	index *PlaceIndex
	fees  FeeTable
}

func NewClassifier(index *PlaceIndex, fees FeeTable) *Classifier {
	return &Classifier{index: index, fees: fees}
}

// Classify extracts a city from free text and prices it.
func (c *Classifier) Classify(text string) Quote {
	city, display, ok := extractCity(text)
	if !ok {
		return Quote{Zone: ZoneUnknown}
	}
	q := Quote{City: city, Display: display, Zone: ZoneUnknown}

	for _, tok := range strings.Fields(city) {
		if _, out := outsideHints[tok]; out {
			q.Zone = ZoneOutside
			return q
		}
	}

	zone, ok := c.resolve(city)
	if !ok {
		return q
	}
	q.Zone = zone
	q.Fee, _ = c.fees.Fee(zone)
	return q
}

// resolve tries the candidate as is, then without a leading definite article.
func (c *Classifier) resolve(city string) (Zone, bool) {
	if z, ok := c.index.Lookup(city); ok {
		return z, true
	}
	if strings.HasPrefix(city, "ال") {
		if z, ok := c.index.Lookup(strings.TrimSpace(strings.TrimPrefix(city, "ال"))); ok {
			return z, true
		}
	}
	return "", false
}

// ExtractCity returns the normalized city candidate contained in text.
// Shipping filler words are dropped first; the words after the last
// preposition are preferred, otherwise a short remainder is taken whole.
func ExtractCity(text string) (string, bool) {
	city, _, ok := extractCity(text)
	return city, ok
}

// cityToken is a normalized token and the raw word it came from.
type cityToken struct {
	norm  string
	field int
}

// extractCity also returns the candidate as the customer wrote it, trimmed
// of surrounding punctuation. The display form falls back to the normalized
// one when the raw words carry more than the candidate.
func extractCity(text string) (city, display string, ok bool) {
	fields := strings.Fields(textnorm.StripHTML(text))
	var tokens []cityToken
	for i, f := range fields {
		for _, tok := range strings.Fields(textnorm.Normalize(f)) {
			if _, filler := shippingFillers[tok]; filler {
				continue
			}
			tokens = append(tokens, cityToken{norm: tok, field: i})
		}
	}
	if len(tokens) == 0 {
		return "", "", false
	}

	span := tokens
	for i := len(tokens) - 2; i >= 0; i-- {
		if _, ok := prepositions[tokens[i].norm]; ok {
			span = tokens[i+1:]
			break
		}
	}
	words := make([]string, len(span))
	for i, t := range span {
		words[i] = t.norm
	}
	city = strings.Join(words, " ")
	if len(span) == len(tokens) && utf8.RuneCountInString(city) > maxBareCityRunes {
		return "", "", false
	}
	if _, prep := prepositions[city]; prep {
		return "", "", false
	}

	display = strings.Join(fields[span[0].field:span[len(span)-1].field+1], " ")
	display = strings.TrimFunc(display, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if textnorm.Normalize(display) != city {
		display = city
	}
	return city, display, true
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
