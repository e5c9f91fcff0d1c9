// Package textnorm canonicalizes customer text so that catalog matching and
// place lookups compare like with like regardless of HTML wrapping, Arabic
// spelling variants, diacritics, elongation or punctuation.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>|<style\b[^>]*>.*?</style\s*>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)

	// &amp; is decoded last so "&amp;lt;" yields "&lt;" rather than "<".
	entityReplacer = strings.NewReplacer("&nbsp;", " ", "&lt;", "<", "&gt;", ">")

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize returns the canonical form of raw. It never fails: empty or
// malformed input yields a possibly empty string.
func Normalize(raw string) string {
	s := Simplify(raw)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r), r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Simplify applies the HTML, letter-unification and elongation steps of
// Normalize but keeps punctuation, so patterns such as "41.5", "150₪" or
// "/product/slug" can still be detected. Whitespace is collapsed.
func Simplify(raw string) string {
	s := StripHTML(raw)
	s = strings.Map(unifyRune, s)
	s, _, _ = transform.String(stripMarks, s)
	s = strings.Map(func(r rune) rune {
		if r == tatweel {
			return -1
		}
		return r
	}, s)
	s = collapseRuns(s)
	return strings.Join(strings.Fields(s), " ")
}

// StripHTML removes script/style blocks and tags and decodes the basic
// entities.
func StripHTML(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	s := scriptStyleRe.ReplaceAllString(raw, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return strings.ReplaceAll(s, "&amp;", "&")
}

// Tokenize splits normalized text on whitespace and drops tokens shorter
// than two runes.
func Tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func unifyRune(r rune) rune {
	switch r {
	case 'إ', 'أ', 'آ', 'ٱ', 'ٲ', 'ٳ':
		return 'ا'
	case 'ى', 'ئ', 'ی':
		return 'ي'
	case 'ة':
		return 'ه'
	case 'ؤ':
		return 'و'
	}
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return unicode.ToLower(r)
}

// collapseRuns folds any run of three or more identical runes into one.
// Digits are left alone so amounts like 1000 survive.
func collapseRuns(s string) string {
	rs := []rune(s)
	if len(rs) < 3 {
		return s
	}
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		j := i
		for j < len(rs) && rs[j] == rs[i] {
			j++
		}
		if j-i >= 3 && !unicode.IsDigit(rs[i]) {
			out = append(out, rs[i])
		} else {
			out = append(out, rs[i:j]...)
		}
		i = j
	}
	return string(out)
}
