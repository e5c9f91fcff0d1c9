package reply

import (
	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/models"
	"tasfiat-brain/internal/search"
)

// Decision is what the composer decided to answer. The set of variants is
// closed; Compose renders every one of them.
type Decision interface {
	decision()
}

// Hit answers with a single item. Selected is set when the item was picked
// from a numbered list.
type Hit struct {
	Item         *models.KnowledgeItem
	Selected     bool
	PriceInquiry bool
}

// Choice is one numbered line of a clarification list. Item is nil when
// the option's slug is no longer in the snapshot.
type Choice struct {
	Option search.Option
	Item   *models.KnowledgeItem
}

type ClarifyChoices struct {
	Choices []Choice
}

type NoMatch struct{}

type PolicyTopic int

const (
	TopicReturnExchange PolicyTopic = iota
	TopicBranches
)

// PolicyAnswer is a fixed policy reply. Branches carries the branch
// documents for TopicBranches.
type PolicyAnswer struct {
	Topic    PolicyTopic
	Branches []*models.KnowledgeItem
}

// ShippingAnswer carries the classifier's quote; a quote with no city
// means the customer asked about shipping in general.
type ShippingAnswer struct {
	Quote geo.Quote
}

type ClarifyReason int

const (
	ReasonChoiceRetry ClarifyReason = iota
	ReasonVagueProduct
	ReasonBareSize
	ReasonWhichLocation
)

type NeedsClarification struct {
	Reason ClarifyReason
	Size   string
}

type Escalation struct{}

type Closing struct{}

func (Hit) decision()                {}
func (ClarifyChoices) decision()     {}
func (NoMatch) decision()            {}
func (PolicyAnswer) decision()       {}
func (ShippingAnswer) decision()     {}
func (NeedsClarification) decision() {}
func (Escalation) decision()         {}
func (Closing) decision()            {}
