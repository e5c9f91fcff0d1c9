package reply

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"tasfiat-brain/internal/search"
	"tasfiat-brain/internal/textnorm"
)

const (
	maxClosingTokens = 6
	maxVagueRunes    = 30
)

var choiceRe = regexp.MustCompile(`^[1-4]$`)

// Word lists are stored normalized.
var (
	closingWords = wordSet(
		"شكرا", "شكرًا", "مشكور", "مشكوره", "يعطيك", "العافيه", "تسلم", "تسلمي", "تسلمو",
		"يسلمو", "يسلموا", "ممنون", "thanks", "thank", "thx", "bye",
	)
	// Words that may accompany thanks without turning the message into a
	// request.
	closingFillers = wordSet(
		"كتير", "كثير", "جزيلا", "الله", "يا", "حبيبي", "حبيبتي", "اخي", "اختي", "و",
		"على", "كل", "شي", "اشي", "ما", "قصرت", "قصرتو", "قصرتوا", "خلص", "تمام", "اوك", "مع", "السلامه",
		"you", "so", "much", "very", "a", "lot", "for", "everything", "ok", "okay", "and", "good",
	)
	humanWords = wordSet(
		"موظف", "موظفه", "الموظف", "انسان", "بشري", "مندوب", "المسؤول",
		"agent", "human", "representative", "operator",
	)
	humanPhrases = []string{
		textnorm.Normalize("خدمة العملاء"),
		textnorm.Normalize("بدي احكي مع حدا"),
		textnorm.Normalize("حدا يرد علي"),
		"customer service",
	}
	returnStems   = []string{"ارجاع", "ترجيع", "استرجاع", "استبدال", "تبديل", "refund", "return", "exchange"}
	shippingStems = []string{"توصيل", "شحن", "بتوصلو", "توصلو", "delivery", "shipping"}
	productWords  = wordSet(
		"بدي", "بدّي", "عايز", "حذاء", "حذا", "كوتشي", "جزمه", "بوط", "صندل", "شوز", "shoes",
	)
	branchWords = wordSet(
		"فرع", "فروع", "الفرع", "الفروع", "فروعكم", "موقع", "موقعكم", "عنوانكم", "محلكم",
		"وينكم", "branch", "branches", "location", "address",
	)
	// Question words that only frame a location request.
	whereWords = wordSet("وين", "فين", "where")
	priceWords = wordSet("سعر", "السعر", "سعره", "بكم", "قديش", "كم", "ثمن", "price", "cost")
)

// Message is an inbound customer message prepared for the intent rules.
type Message struct {
	Raw            string
	Normalized     string
	Tokens         []string
	ConversationID string
}

func NewMessage(raw, conversationID string) Message {
	n := textnorm.Normalize(raw)
	return Message{
		Raw:            raw,
		Normalized:     n,
		Tokens:         strings.Fields(n),
		ConversationID: conversationID,
	}
}

// ChoiceDigit returns the number picked when the whole message is a single
// digit from 1 to 4.
func ChoiceDigit(m Message) (int, bool) {
	if !choiceRe.MatchString(m.Normalized) {
		return 0, false
	}
	return int(m.Normalized[0] - '0'), true
}

// IsClosing reports a pure thanks or goodbye: at least one closing word and
// nothing but closing or filler words around it.
func IsClosing(m Message) bool {
	if len(m.Tokens) == 0 || len(m.Tokens) > maxClosingTokens {
		return false
	}
	thanked := false
	for _, t := range m.Tokens {
		if _, ok := closingWords[t]; ok {
			thanked = true
			continue
		}
		if _, ok := closingFillers[t]; !ok {
			return false
		}
	}
	return thanked
}

func WantsHuman(m Message) bool {
	return hasAnyToken(m, humanWords) || containsAny(m.Normalized, humanPhrases)
}

func IsReturnOrExchange(m Message) bool {
	return containsAny(m.Normalized, returnStems)
}

func IsShipping(m Message) bool {
	return containsAny(m.Normalized, shippingStems)
}

// AsksForProduct reports a generic "I want shoes" phrasing.
func AsksForProduct(m Message) bool {
	return hasAnyToken(m, productWords)
}

// IsVagueProduct reports a short product request with no size, price or
// brand to search on.
func IsVagueProduct(m Message, brandHints []string) bool {
	if !AsksForProduct(m) || utf8.RuneCountInString(m.Normalized) > maxVagueRunes {
		return false
	}
	simple := textnorm.Simplify(m.Raw)
	if search.DetectSize(simple) != "" || search.HasMoney(m.Raw) {
		return false
	}
	return !MentionsBrand(m, brandHints)
}

func MentionsBrand(m Message, brandHints []string) bool {
	for _, b := range brandHints {
		if b = textnorm.Normalize(b); b != "" && strings.Contains(m.Normalized, b) {
			return true
		}
	}
	return false
}

func IsBareSize(m Message) bool {
	return search.IsOnlySize(m.Raw)
}

func IsBranches(m Message) bool {
	return hasAnyToken(m, branchWords)
}

// without returns m with every raw word whose normalized form falls in one of
// sets removed. m is returned unchanged when nothing or everything would go.
func (m Message) without(sets ...map[string]struct{}) Message {
	fields := strings.Fields(m.Raw)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if !inAnySet(textnorm.Normalize(f), sets) {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(fields) || len(kept) == 0 {
		return m
	}
	return NewMessage(strings.Join(kept, " "), m.ConversationID)
}

func inAnySet(word string, sets []map[string]struct{}) bool {
	for _, set := range sets {
		if _, ok := set[word]; ok {
			return true
		}
	}
	return false
}

func AsksPrice(m Message) bool {
	return hasAnyToken(m, priceWords) || strings.Contains(m.Normalized, "سعر")
}

func hasAnyToken(m Message, set map[string]struct{}) bool {
	for _, t := range m.Tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[textnorm.Normalize(w)] = struct{}{}
	}
	return set
}
