package reply

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tasfiat-brain/internal/geo"
	"tasfiat-brain/internal/memory"
	"tasfiat-brain/internal/search"
)

// Templates hold the shop's wording. Placeholders in braces are filled at
// render time: {city}, {fee}, {days_min}, {days_max}, {size}.
type Templates struct {
	Openings            []string `yaml:"openings"`
	ReturnExchange      string   `yaml:"policy_return_exchange"`
	ShippingIntro       string   `yaml:"policy_shipping_intro"`
	ShippingQuote       string   `yaml:"shipping_quote"`
	ShippingOutside     string   `yaml:"shipping_outside"`
	ShippingUnknownCity string   `yaml:"shipping_unknown_city"`
	AskMoreForProducts  string   `yaml:"ask_more_for_products"`
	AskGenderAndBudget  string   `yaml:"ask_gender_and_budget"`
	AskWhichLocation    string   `yaml:"ask_which_location"`
	BranchesHeader      string   `yaml:"branches_header"`
	ClarifyHeader       string   `yaml:"clarify_header"`
	ClarifyFooter       string   `yaml:"clarify_footer"`
	ChoiceRetry         string   `yaml:"choice_retry"`
	NoMatch             string   `yaml:"no_match"`
	Closing             string   `yaml:"closing"`
	Escalation          string   `yaml:"escalation"`
}

type Shipping struct {
	Fees    geo.FeeTable `yaml:"fees_ils"`
	DaysMin int          `yaml:"days_min"`
	DaysMax int          `yaml:"days_max"`
}

// Profile is the per-shop business configuration.
type Profile struct {
	Replies    Templates      `yaml:"replies"`
	Shipping   Shipping       `yaml:"shipping"`
	BrandHints []string       `yaml:"brand_hints"`
	Weights    search.Weights `yaml:"weights"`
}

func DefaultProfile() Profile {
	return Profile{
		Replies: Templates{
			Openings:            []string{"تمام 😊", "أكيد 🌟", "ولا يهمك 😊", "حاضر 👌", "يسعدني 😊"},
			ReturnExchange:      "بتقدر تبدل أو ترجع المنتج خلال 7 أيام من الاستلام، بشرط يكون بحالته الأصلية ومع الفاتورة. التبديل على المقاس أو الموديل حسب التوفر 👌",
			ShippingIntro:       "منوصل لكل مناطق الضفة والقدس والداخل 🚚 احكيلي اسم مدينتك أو قريتك وبحكيلك رسوم التوصيل والمدة.",
			ShippingQuote:       "توصيل **{city}** رسومه **{fee} شيكل**. ومدة التوصيل عادة بين **{days_min} إلى {days_max} أيام عمل**.",
			ShippingOutside:     "للأسف حاليًا ما منوصل لبرا الضفة والقدس والداخل 🙏",
			ShippingUnknownCity: "ما قدرت أحدد المنطقة 🙏 احكيلي اسم أقرب مدينة إلك حتى أحكيلك رسوم التوصيل.",
			AskMoreForProducts:  "أكيد 😊 احكيلي شو بتدور عليه بالزبط: رجالي ولا نسائي ولا أطفال؟ وشو المقاس والماركة اللي بتحبها؟",
			AskGenderAndBudget:  "المقاس **{size}** بدك **رجالي ولا نسائي**؟ وكمان بتحب السعر يكون ضمن أي مدى تقريبًا؟",
			AskWhichLocation:    "أكيد 😊 بتقصد **موقع الفروع** ولا **موقع المقر**؟ احكيلي شو بدك بالزبط.",
			BranchesHeader:      "فروعنا:",
			ClarifyHeader:       "حتى أعطيك جواب دقيق، اختر رقم:",
			ClarifyFooter:       "اكتب رقم الخيار فقط (مثال: 1).",
			ChoiceRetry:         "تمام 😊 بس ما قدرت أحدد اختيارك. اختار رقم من القائمة اللي قبل لو سمحت.",
			NoMatch:             "أكيد 😊 بس وضّحلي شوي: سؤالك عن **التوصيل** ولا **التبديل** ولا بدك **اقتراح منتجات**؟",
			Closing:             "العفو 🌷 إذا احتجت إشي ثاني إحنا موجودين.",
			Escalation:          "تمام، رح أحولك لموظف من الفريق وبرد عليك بأقرب وقت 🙏",
		},
		Shipping: Shipping{
			Fees:    geo.FeeTable{WestBank: 20, Jerusalem: 30, Inside1948: 70},
			DaysMin: 2,
			DaysMax: 4,
		},
		BrandHints: []string{
			"joma", "جوما", "skechers", "سكيتشرز", "nike", "نايك", "adidas", "اديداس",
			"puma", "بوما", "crocs", "كروكس", "mizuno", "ميزونو", "brooks", "asics", "اسيكس",
		},
		Weights: search.DefaultWeights(),
	}
}

// LoadProfile reads a YAML profile over the defaults. A missing file yields
// the defaults unchanged.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DefaultProfile(), fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	// Only choices 1..memory.MaxOptions can be answered back.
	if p.Weights.MaxOptions <= 0 || p.Weights.MaxOptions > memory.MaxOptions {
		p.Weights.MaxOptions = memory.MaxOptions
	}
	return p, nil
}
