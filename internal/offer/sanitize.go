package offer

import (
	"regexp"
	"strings"
)

// Sanitization removes instruction text the generator occasionally echoes
// back from its own prompt. Two passes exist: a line filter applied to the
// raw completion before parsing, and a regex pass applied to the assembled
// body before finalization.

// leakPhrases flags short lines that are mostly echoed instructions.
var leakPhrases = []string{
	"add time limit",
	"include call-to-action",
	"call-to-action today",
	"time limit",
	"include",
	"add",
	"today",
	"instruction",
	"requirement",
	"constraint",
}

// inlinePhrases are removed in place inside email bodies before signature
// composition.
var inlinePhrases = []string{
	"add time limit",
	"include call-to-action",
	"call-to-action today",
	"time limit",
	"include call-to-action today",
	"add time limit, include call-to-action today",
}

var instructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\badd time limit\b[.!?]*`),
	regexp.MustCompile(`(?i)\binclude call[- ]?to[- ]?action\b[.!?]*`),
	regexp.MustCompile(`(?i)\bcall[- ]?to[- ]?action today\b[.!?]*`),
	regexp.MustCompile(`(?i)\btime limit\b[.!?]*`),
	regexp.MustCompile(`(?i)\binclude\b.*?\btoday\b[.!?]*`),
	regexp.MustCompile(`(?i)\badd\b.*?\btoday\b[.!?]*`),
	regexp.MustCompile(`(?i)\bIMPORTANT:\s*`),
	regexp.MustCompile(`(?i)\bCALL[- ]?TO[- ]?ACTION:\s*`),
}

// RE2 has no backreferences, so collapsing runs of identical punctuation is
// spelled out per mark.
var repeatedPunctRes = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\.(\s*\.)+`), "."},
	{regexp.MustCompile(`!(\s*!)+`), "!"},
	{regexp.MustCompile(`\?(\s*\?)+`), "?"},
	{regexp.MustCompile(`,(\s*,)+`), ","},
}

var adjacentPunctRe = regexp.MustCompile(`\s*[.!?]+\s*[.!?]+`)

// cleanInstructionLines drops lines that are short enough to be pure leaked
// instructions rather than content. If the filter would shrink the text below
// 20 characters the original is returned instead.
func cleanInstructionLines(text string) string {
	if text == "" {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if containsAny(lower, leakPhrases) && runeLen(lower) < 50 {
			continue
		}
		if runeLen(lower) < 3 {
			continue
		}
		kept = append(kept, line)
	}
	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	if runeLen(cleaned) < 20 {
		return text
	}
	return cleaned
}

// removeInstructionText removes known leak phrases from a body in place,
// flattening whitespace afterwards. Used on email bodies right before the
// signature block is composed.
func removeInstructionText(text string) string {
	if text == "" {
		return text
	}
	cleaned := text
	for _, phrase := range inlinePhrases {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = allWSRe.ReplaceAllString(cleaned, " ")
	cleaned = adjacentPunctRe.ReplaceAllString(cleaned, ".")
	return strings.TrimSpace(cleaned)
}

// finalCleanup strips instruction patterns, normalizes intra-line whitespace,
// caps consecutive blank lines at two, collapses repeated punctuation, and
// re-paragraphs flat text over 80 characters.
func finalCleanup(text string) string {
	if text == "" {
		return text
	}
	cleaned := text
	for _, re := range instructionPatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	var normalized []string
	for _, ln := range strings.Split(cleaned, "\n") {
		normalized = append(normalized, interWSRe.ReplaceAllString(strings.TrimSpace(ln), " "))
	}
	var out []string
	blanks := 0
	for _, ln := range normalized {
		if ln == "" {
			blanks++
			if blanks <= 2 {
				out = append(out, "")
			}
			continue
		}
		blanks = 0
		out = append(out, ln)
	}
	cleaned = strings.TrimSpace(strings.Join(out, "\n"))

	for _, p := range repeatedPunctRes {
		cleaned = p.re.ReplaceAllString(cleaned, p.repl)
	}

	if strings.Count(cleaned, "\n") < 1 && runeLen(cleaned) > 80 {
		cleaned = reParagraph(cleaned)
	}
	return cleaned
}
