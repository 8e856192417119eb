package offer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Text normalization helpers shared by every pipeline stage. All limits are
// measured in runes so truncation never splits a multi-byte character.

var (
	brTagRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	interWSRe    = regexp.MustCompile(`[ \t]+`)
	allWSRe      = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	allowedCaps  = map[string]struct{}{}
	allowedWords = []string{"NEW", "SALE", "FREE", "NOW", "TODAY", "URGENT", "EXCLUSIVE", "LIMITED"}
)

func init() {
	for _, w := range allowedWords {
		allowedCaps[w] = struct{}{}
	}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// normalizeNewlines converts HTML breaks and escaped newline sequences into
// real newlines, collapses runs of spaces and tabs inside lines, and drops
// blank lines. With multiline false the surviving lines are joined with a
// single space instead.
func normalizeNewlines(text string, multiline bool) string {
	if text == "" {
		return text
	}
	t := brTagRe.ReplaceAllString(text, "\n")
	t = strings.ReplaceAll(t, "\\r\\n", "\n")
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\\n", "\n")
	t = strings.ReplaceAll(t, "/n", "\n")

	var lines []string
	for _, line := range strings.Split(t, "\n") {
		line = strings.TrimSpace(interWSRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if multiline {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines, " ")
}

// capLength enforces a hard rune limit, truncating with an ellipsis and
// backing off to the last word boundary when one exists.
func capLength(text string, max int) string {
	if runeLen(text) <= max {
		return text
	}
	r := []rune(text)
	cut := string(r[:max-3])
	if idx := strings.LastIndex(cut, " "); idx >= 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// fixAllCaps rewrites shouty all-caps words to leading-capital form, keeping a
// short allow-list of marketing emphasis words untouched.
func fixAllCaps(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		words := strings.Split(line, " ")
		for j, w := range words {
			clean := nonWordRe.ReplaceAllString(w, "")
			if runeLen(clean) <= 1 || !isAllUpper(clean) {
				continue
			}
			if _, ok := allowedCaps[clean]; ok {
				continue
			}
			words[j] = capitalizeWord(w)
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// capitalizeWord lowercases the word and uppercases position 0 only, so a
// word led by punctuation like "(URGENT)" stays fully lowered.
func capitalizeWord(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}

// ensureFirstNameOnce guarantees the personalization token appears at most
// once. Extra occurrences after the first are removed; a missing token is
// prefixed only when the result still fits the channel limit.
func ensureFirstNameOnce(body string, limit int) string {
	count := strings.Count(body, FirstNameToken)
	switch {
	case count == 1:
		return body
	case count > 1:
		first := strings.Index(body, FirstNameToken)
		keep := body[:first+len(FirstNameToken)]
		rest := strings.ReplaceAll(body[first+len(FirstNameToken):], FirstNameToken, "")
		return strings.TrimSpace(keep + rest)
	}
	cand := FirstNameToken + ", " + body
	if runeLen(cand) <= limit {
		return cand
	}
	return body
}

// smartTruncateWithCTA shortens text to max runes while trying to keep the
// final sentence intact, on the assumption that the call to action sits last.
// Falls back to capLength when the lead-in would lose too much substance.
func smartTruncateWithCTA(text string, max int, multiline bool) string {
	if runeLen(text) <= max {
		return text
	}
	var sentences []string
	if multiline {
		sentences = splitSentences(text)
	} else {
		sentences = strings.Split(text, ". ")
	}
	if len(sentences) > 1 {
		last := sentences[len(sentences)-1]
		spaceLeft := max - runeLen(last) - 2
		if spaceLeft > 40 {
			start := string([]rune(text)[:spaceLeft])
			if idx := strings.LastIndex(start, " "); idx >= 0 {
				start = start[:idx]
			}
			joiner := ". "
			if multiline {
				joiner = "\n\n"
			}
			if cand := start + joiner + last; runeLen(cand) <= max {
				return cand
			}
		}
	}
	return capLength(text, max)
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	r := []rune(text)
	for i := 0; i < len(r)-1; i++ {
		if (r[i] == '.' || r[i] == '!' || r[i] == '?') && unicode.IsSpace(r[i+1]) {
			out = append(out, strings.TrimSpace(string(r[start:i+1])))
			for i+1 < len(r) && unicode.IsSpace(r[i+1]) {
				i++
			}
			start = i + 1
		}
	}
	if start < len(r) {
		out = append(out, strings.TrimSpace(string(r[start:])))
	}
	return out
}

// tidySubject collapses whitespace and caps the subject at the email limit.
func tidySubject(subject string) string {
	s := allWSRe.ReplaceAllString(strings.TrimSpace(subject), " ")
	return capLength(s, EmailSubjectLimit)
}
