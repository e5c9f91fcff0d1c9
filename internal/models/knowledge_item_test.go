package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeItem_UnmarshalTolerant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, k KnowledgeItem)
	}{
		{
			name:  "legacy url field",
			input: `{"product_slug": "a", "url": "https://shop.test/product/a"}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Equal(t, "https://shop.test/product/a", k.PageURL)
			},
		},
		{
			name:  "page_url wins over url",
			input: `{"page_url": "https://shop.test/p", "url": "https://old.test/p"}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Equal(t, "https://shop.test/p", k.PageURL)
			},
		},
		{
			name:  "amounts as strings and nulls",
			input: `{"price": "1,250.5", "old_price": null, "discount_percent": ""}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Equal(t, Amount(1250.5), k.Price)
				assert.Zero(t, k.OldPrice)
				assert.Zero(t, k.DiscountPercent)
			},
		},
		{
			name:  "negative amount clamps to zero",
			input: `{"price": -10}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Zero(t, k.Price)
			},
		},
		{
			name:  "flag variants",
			input: `{"has_discount": "نعم"}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.True(t, bool(k.HasDiscount))
			},
		},
		{
			name:  "numeric flag",
			input: `{"has_discount": 0}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.False(t, bool(k.HasDiscount))
			},
		},
		{
			name:  "delimited as array",
			input: `{"sizes": [40, "41", 42.5], "keywords": ["رياضي", " جري "]}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Equal(t, []string{"40", "41", "42.5"}, k.SizeList())
				assert.Equal(t, []string{"رياضي", "جري"}, k.Keywords.List())
			},
		},
		{
			name:  "delimited as string",
			input: `{"sizes": "36, ,37,"}`,
			check: func(t *testing.T, k KnowledgeItem) {
				assert.Equal(t, []string{"36", "37"}, k.SizeList())
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var k KnowledgeItem
			require.NoError(t, json.Unmarshal([]byte(tc.input), &k))
			tc.check(t, k)
		})
	}
}

func TestAmount_Tolerant(t *testing.T) {
	tests := []struct {
		input string
		want  Amount
	}{
		{`"₪150"`, 150},
		{`"150 شيكل"`, 150},
		{`"١٥٠٫٥"`, 150.5},
		{`"cheap"`, 0},
		{`"-20"`, 0},
		{`true`, 0},
		{`{"value": 3}`, 0},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tc.input), &a))
			assert.Equal(t, tc.want, a)
		})
	}
}

func TestKnowledgeItem_ScalarsAsText(t *testing.T) {
	var k KnowledgeItem
	require.NoError(t, json.Unmarshal([]byte(`{
		"product_slug": 1042, "name": "صندل", "age_group": 3,
		"gender": ["رجالي", "نسائي"], "availability": true, "brand_std": null
	}`), &k))
	assert.Equal(t, "1042", k.Slug)
	assert.Equal(t, "صندل", k.Name)
	assert.Equal(t, "3", k.AgeGroup)
	assert.Equal(t, "رجالي نسائي", k.Gender)
	assert.Equal(t, "true", k.Availability)
	assert.Empty(t, k.BrandStd)
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "199", Amount(199).String())
	assert.Equal(t, "49.9", Amount(49.9).String())
}
