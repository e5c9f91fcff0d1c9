// Package reply turns a customer message into an answer. A fixed, ordered
// list of intent rules runs first; messages none of them claim go to the
// search engine.
package reply

import (
	"strconv"
	"strings"

	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/memory"
	"tasfiat-brain/internal/search"
	"tasfiat-brain/internal/textnorm"
)

// Tags attached to results. Arabic tags double as conversation labels.
const (
	TagClarify        = "توضيح"
	TagShipping       = "توصيل"
	TagPolicy         = "سياسة"
	TagExchange       = "تبديل"
	TagProducts       = "منتجات"
	TagBranches       = "فروع"
	TagResult         = "نتيجة"
	TagEscalation     = "تصعيد"
	TagOutOfKnowledge = "خارج_المعرفة"
	TagClosing        = "closing"
	TagOutside        = "outside"
	TagLeadShipping   = "lead_shipping"
	TagLeadProduct    = "lead_product"
	TagSelection      = "selection_made"
	TagPriceInquiry   = "price_inquiry"
	TagNeedsClarify   = "needs_clarification"
)

// Result is the answer returned to callers.
type Result struct {
	OK    bool     `json:"ok"`
	Found bool     `json:"found"`
	Reply string   `json:"reply"`
	Tags  []string `json:"tags"`
}

type rule struct {
	name   string
	match  func(c *Composer, m Message) bool
	decide func(c *Composer, m Message, snap *search.Snapshot) Decision
}

type Composer struct {
	engine     *search.Engine
	classifier *geo.Classifier
	memory     *memory.Memory
	profile    Profile
	rules      []rule
}

func NewComposer(engine *search.Engine, classifier *geo.Classifier, mem *memory.Memory, profile Profile) *Composer {
	c := &Composer{
		engine:     engine,
		classifier: classifier,
		memory:     mem,
		profile:    profile,
	}
	c.rules = []rule{
		{"choice", matchChoice, decideChoice},
		{"closing", always(IsClosing), fixed(Closing{})},
		{"human", always(WantsHuman), fixed(Escalation{})},
		{"return_exchange", always(IsReturnOrExchange), fixed(PolicyAnswer{Topic: TopicReturnExchange})},
		{"shipping", always(IsShipping), decideShipping},
		{"vague_product", matchVague, fixed(NeedsClarification{Reason: ReasonVagueProduct})},
		{"bare_size", always(IsBareSize), decideBareSize},
		{"branches", matchBranches, decideBranches},
	}
	return c
}

// Answer decides and renders in one step.
func (c *Composer) Answer(text, conversationID string) Result {
	d, _ := c.Decide(NewMessage(text, conversationID))
	return c.Compose(d)
}

// Decide runs the intent rules in order and falls back to search. It also
// reports the name of the rule that answered. The whole decision is taken
// against one snapshot.
//
// Thanks words are dropped from a message that asks for more than a
// goodbye, and location words from a product question, so the remaining
// rules and search see only the request.
func (c *Composer) Decide(m Message) (Decision, string) {
	snap := c.engine.Snapshot()
	if !IsClosing(m) {
		m = m.without(closingWords)
	}
	for _, r := range c.rules {
		if r.match(c, m) {
			return r.decide(c, m, snap), r.name
		}
	}
	if IsBranches(m) {
		m = m.without(branchWords, whereWords)
	}
	return c.decideSearch(m, snap), "search"
}

func always(pred func(Message) bool) func(*Composer, Message) bool {
	return func(_ *Composer, m Message) bool { return pred(m) }
}

func fixed(d Decision) func(*Composer, Message, *search.Snapshot) Decision {
	return func(*Composer, Message, *search.Snapshot) Decision { return d }
}

func matchChoice(_ *Composer, m Message) bool {
	_, ok := ChoiceDigit(m)
	return ok
}

func matchVague(c *Composer, m Message) bool {
	return IsVagueProduct(m, c.profile.BrandHints)
}

// matchBranches leaves messages naming a product or brand to search.
func matchBranches(c *Composer, m Message) bool {
	return IsBranches(m) && !AsksForProduct(m) && !MentionsBrand(m, c.profile.BrandHints)
}

func decideChoice(c *Composer, m Message, snap *search.Snapshot) Decision {
	retry := NeedsClarification{Reason: ReasonChoiceRetry}
	n, _ := ChoiceDigit(m)
	if c.memory == nil {
		return retry
	}
	slug, ok := c.memory.Resolve(m.ConversationID, n)
	if !ok {
		return retry
	}
	out := c.engine.SearchIn(snap, slug)
	if out.Kind != search.Hit {
		return retry
	}
	return Hit{Item: out.Item, Selected: true}
}

func decideShipping(c *Composer, m Message, _ *search.Snapshot) Decision {
	return ShippingAnswer{Quote: c.classifier.Classify(m.Raw)}
}

func decideBareSize(_ *Composer, m Message, _ *search.Snapshot) Decision {
	return NeedsClarification{Reason: ReasonBareSize, Size: search.DetectSize(textnorm.Simplify(m.Raw))}
}

func decideBranches(_ *Composer, _ Message, snap *search.Snapshot) Decision {
	if branches := snap.BranchItems(); len(branches) > 0 {
		return PolicyAnswer{Topic: TopicBranches, Branches: branches}
	}
	return NeedsClarification{Reason: ReasonWhichLocation}
}

func (c *Composer) decideSearch(m Message, snap *search.Snapshot) Decision {
	out := c.engine.SearchIn(snap, m.Raw)
	switch out.Kind {
	case search.Hit:
		if search.IsPolicyLike(out.Item) && AsksForProduct(m) {
			return NeedsClarification{Reason: ReasonVagueProduct}
		}
		return Hit{Item: out.Item, PriceInquiry: AsksPrice(m)}
	case search.Clarify:
		if c.memory != nil {
			c.memory.Remember(m.ConversationID, out.Options)
		}
		choices := make([]Choice, 0, len(out.Options))
		for _, o := range out.Options {
			item, _ := snap.Item(o.Slug)
			choices = append(choices, Choice{Option: o, Item: item})
		}
		return ClarifyChoices{Choices: choices}
	}
	return NoMatch{}
}

// Compose renders d with the profile's wording.
func (c *Composer) Compose(d Decision) Result {
	t := c.profile.Replies
	switch d := d.(type) {
	case Hit:
		tags := []string{TagResult}
		if d.Selected {
			tags = []string{TagLeadProduct, TagSelection}
		} else if d.PriceInquiry {
			tags = append(tags, TagPriceInquiry)
		}
		return found(ItemReply(d.Item), tags...)

	case ClarifyChoices:
		lines := []string{withOpening(t.Openings, t.ClarifyHeader)}
		for i, ch := range d.Choices {
			lines = append(lines, choiceLine(i+1, ch))
		}
		lines = append(lines, t.ClarifyFooter)
		return notFound(strings.Join(lines, "\n"), TagNeedsClarify, TagLeadProduct)

	case NoMatch:
		return notFound(t.NoMatch, TagClarify, TagOutOfKnowledge)

	case PolicyAnswer:
		if d.Topic == TopicBranches {
			lines := []string{t.BranchesHeader}
			for _, b := range d.Branches {
				lines = append(lines, ItemReply(b))
			}
			return found(strings.Join(lines, "\n\n"), TagBranches)
		}
		return found(t.ReturnExchange, TagPolicy, TagExchange)

	case ShippingAnswer:
		return c.composeShipping(d.Quote)

	case NeedsClarification:
		switch d.Reason {
		case ReasonVagueProduct:
			return notFound(t.AskMoreForProducts, TagClarify, TagProducts)
		case ReasonBareSize:
			body := strings.ReplaceAll(t.AskGenderAndBudget, "{size}", d.Size)
			return notFound(withOpening(t.Openings, body), TagClarify)
		case ReasonWhichLocation:
			return notFound(t.AskWhichLocation, TagClarify, TagBranches)
		}
		return notFound(t.ChoiceRetry, TagClarify)

	case Escalation:
		return found(t.Escalation, TagEscalation)

	case Closing:
		return found(t.Closing, TagClosing)
	}
	return notFound(t.NoMatch, TagClarify)
}

func (c *Composer) composeShipping(q geo.Quote) Result {
	t := c.profile.Replies
	switch {
	case q.City == "":
		return notFound(t.ShippingIntro, TagClarify, TagShipping)
	case q.Zone == geo.ZoneOutside:
		return found(t.ShippingOutside, TagShipping, TagOutside)
	case !q.Priced():
		return notFound(t.ShippingUnknownCity, TagClarify, TagShipping)
	}
	city := q.Display
	if city == "" {
		city = q.City
	}
	s := c.profile.Shipping
	body := strings.NewReplacer(
		"{city}", city,
		"{fee}", strconv.Itoa(q.Fee),
		"{days_min}", strconv.Itoa(s.DaysMin),
		"{days_max}", strconv.Itoa(s.DaysMax),
	).Replace(t.ShippingQuote)
	return found(withOpening(t.Openings, body), TagLeadShipping, string(q.Zone))
}

func found(reply string, tags ...string) Result {
	return Result{OK: true, Found: true, Reply: reply, Tags: tags}
}

func notFound(reply string, tags ...string) Result {
	return Result{OK: true, Found: false, Reply: reply, Tags: tags}
}
