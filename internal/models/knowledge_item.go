package models

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// KnowledgeItem is one catalog product or policy document.
type KnowledgeItem struct {
	Slug            string    `json:"product_slug" db:"product_slug"`
	Name            string    `json:"name" db:"name"`
	Keywords        Delimited `json:"keywords" db:"keywords"`
	BrandTags       Delimited `json:"brand_tags" db:"brand_tags"`
	BrandStd        string    `json:"brand_std" db:"brand_std"`
	Gender          string    `json:"gender" db:"gender"`
	GenderSecondary string    `json:"gender_secondary" db:"gender_secondary"`
	AgeGroup        string    `json:"age_group" db:"age_group"`
	Sizes           Delimited `json:"sizes" db:"sizes"`
	Price           Amount    `json:"price" db:"price"`
	OldPrice        Amount    `json:"old_price" db:"old_price"`
	HasDiscount     Flag      `json:"has_discount" db:"has_discount"`
	DiscountPercent Amount    `json:"discount_percent" db:"discount_percent"`
	Availability    string    `json:"availability" db:"availability"`
	PageURL         string    `json:"page_url" db:"page_url"`
	ImageURL        string    `json:"image_url" db:"image_url"`
}

// UnmarshalJSON accepts the legacy "url" field when "page_url" is missing,
// and numbers or booleans where text is expected.
func (k *KnowledgeItem) UnmarshalJSON(data []byte) error {
	type plain KnowledgeItem
	var aux struct {
		plain
		Slug            text `json:"product_slug"`
		Name            text `json:"name"`
		BrandStd        text `json:"brand_std"`
		Gender          text `json:"gender"`
		GenderSecondary text `json:"gender_secondary"`
		AgeGroup        text `json:"age_group"`
		Availability    text `json:"availability"`
		PageURL         text `json:"page_url"`
		ImageURL        text `json:"image_url"`
		URL             text `json:"url"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*k = KnowledgeItem(aux.plain)
	k.Slug = string(aux.Slug)
	k.Name = string(aux.Name)
	k.BrandStd = string(aux.BrandStd)
	k.Gender = string(aux.Gender)
	k.GenderSecondary = string(aux.GenderSecondary)
	k.AgeGroup = string(aux.AgeGroup)
	k.Availability = string(aux.Availability)
	k.PageURL = string(aux.PageURL)
	k.ImageURL = string(aux.ImageURL)
	if k.PageURL == "" {
		k.PageURL = string(aux.URL)
	}
	return nil
}

// text decodes any JSON scalar as a string. Arrays are joined with spaces;
// null and objects yield "".
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = text(scalarString(v, " "))
	return nil
}

func scalarString(v any, sep string) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			if s := strings.TrimSpace(scalarString(p, sep)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	}
	return ""
}

// SizeList returns the item's size tokens.
func (k *KnowledgeItem) SizeList() []string {
	return k.Sizes.List()
}

// Amount is a non-negative number that feeds may send as a number, a
// numeric string with currency or separators, or null. Zero means absent,
// and so does anything that holds no number.
type Amount float64

var amountRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

var amountDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", "٬", "", ",", "",
)

func (a *Amount) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		f = parseAmount(x)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	*a = Amount(f)
	return nil
}

// parseAmount reads the first number in s, e.g. "₪150" or "1,250.5 شيكل".
func parseAmount(s string) float64 {
	m := amountRe.FindString(amountDigits.Replace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// String renders whole amounts without decimals.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// Flag is a boolean that feeds may send as a bool, a number or a string.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "y", "نعم":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}

// Delimited is a comma separated list stored as a single string. Feeds may
// send either the string or a JSON array.
type Delimited string

func (d *Delimited) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Delimited(scalarString(v, ","))
	return nil
}

// List splits the value on commas and drops empty entries.
func (d Delimited) List() []string {
	var out []string
	for _, p := range strings.Split(string(d), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
