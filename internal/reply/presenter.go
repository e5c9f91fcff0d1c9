package reply

import (
	"fmt"
	"hash/fnv"
	"strings"

	"tasfiat-brain/internal/models"
	"tasfiat-brain/internal/search"
)

const currency = "شيكل"

// ItemReply renders a product or policy item as a short message.
func ItemReply(item *models.KnowledgeItem) string {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		name = "—"
	}

	if search.IsPolicyLike(item) {
		lines := []string{name}
		if kw := item.Keywords.List(); len(kw) > 0 {
			lines = append(lines, strings.Join(kw, "، "))
		}
		if item.PageURL != "" {
			lines = append(lines, "الرابط: "+item.PageURL)
		}
		return strings.Join(lines, "\n")
	}

	lines := []string{"المنتج: " + name}
	if item.Price > 0 {
		price := fmt.Sprintf("السعر: %s %s", item.Price, currency)
		if item.OldPrice > item.Price {
			price += fmt.Sprintf(" (كان %s)", item.OldPrice)
		}
		lines = append(lines, price)
	}
	if item.HasDiscount && item.DiscountPercent > 0 {
		lines = append(lines, fmt.Sprintf("الخصم: %s%%", item.DiscountPercent))
	}
	availability := strings.TrimSpace(item.Availability)
	if availability == "" {
		availability = "—"
	}
	lines = append(lines, "التوفر: "+availability)
	if sizes := item.SizeList(); len(sizes) > 0 {
		lines = append(lines, "المقاسات: "+strings.Join(sizes, "، "))
	}
	if item.PageURL != "" {
		lines = append(lines, "الرابط: "+item.PageURL)
	}
	return strings.Join(lines, "\n")
}

// choiceLine renders one numbered option with its price and availability.
func choiceLine(n int, c Choice) string {
	parts := []string{fmt.Sprintf("%d) %s", n, c.Option.Name)}
	if c.Item != nil {
		if c.Item.Price > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", c.Item.Price, currency))
		}
		if a := strings.TrimSpace(c.Item.Availability); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " — ")
}

// opening picks a greeting for body. The choice is stable for a given body
// so replies stay reproducible.
func opening(openings []string, body string) string {
	if len(openings) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(body))
	return openings[h.Sum32()%uint32(len(openings))]
}

func withOpening(openings []string, body string) string {
	if o := opening(openings, body); o != "" {
		return o + " " + body
	}
	return body
}
