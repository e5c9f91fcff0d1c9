package repository

import (
	"strings"
	"unicode/utf8"

	"tasfiat-brain/internal/models"
)

// sanitizeUTF8 drops invalid UTF-8 sequences, which Postgres rejects in
// TEXT columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			s = s[1:]
			continue
		}
		result.WriteRune(r)
		s = s[size:]
	}
	return result.String()
}

func sanitizeItem(it models.KnowledgeItem) models.KnowledgeItem {
	it.Slug = sanitizeUTF8(it.Slug)
	it.Name = sanitizeUTF8(it.Name)
	it.Keywords = models.Delimited(sanitizeUTF8(string(it.Keywords)))
	it.BrandTags = models.Delimited(sanitizeUTF8(string(it.BrandTags)))
	it.BrandStd = sanitizeUTF8(it.BrandStd)
	it.Gender = sanitizeUTF8(it.Gender)
	it.GenderSecondary = sanitizeUTF8(it.GenderSecondary)
	it.AgeGroup = sanitizeUTF8(it.AgeGroup)
	it.Sizes = models.Delimited(sanitizeUTF8(string(it.Sizes)))
	it.Availability = sanitizeUTF8(it.Availability)
	it.PageURL = sanitizeUTF8(it.PageURL)
	it.ImageURL = sanitizeUTF8(it.ImageURL)
	return it
}
