package offer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		multiline bool
		want      string
	}{
		{"html breaks", "Hello<br>World<br/>Again", true, "Hello\nWorld\nAgain"},
		{"escaped newlines", "Hello\\nWorld", true, "Hello\nWorld"},
		{"slash n", "Hello/nWorld", true, "Hello\nWorld"},
		{"crlf", "Hello\r\nWorld", true, "Hello\nWorld"},
		{"collapse spaces", "Hello    World\t!", true, "Hello World !"},
		{"drop empty lines", "a\n\n\nb", true, "a\nb"},
		{"flatten for sms", "line one\nline two", false, "line one line two"},
		{"empty", "", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeNewlines(tt.in, tt.multiline))
		})
	}
}

func TestNormalizeNewlinesIdempotent(t *testing.T) {
	inputs := []string{
		"Hello<br>World",
		"a\\nb\\nc",
		"plain  text   with spaces",
		"multi\n\n\nline\ninput",
	}
	for _, in := range inputs {
		once := normalizeNewlines(in, true)
		assert.Equal(t, once, normalizeNewlines(once, true), "input %q", in)
	}
}

func TestCapLength(t *testing.T) {
	assert.Equal(t, "short", capLength("short", 10))

	long := strings.Repeat("word ", 40)
	capped := capLength(long, 50)
	assert.LessOrEqual(t, runeLen(capped), 50)
	assert.True(t, strings.HasSuffix(capped, "..."))
}

func TestFixAllCaps(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HELLO there", "Hello there"},
		{"come TODAY for deals", "come TODAY for deals"},
		{"FREE FOOD at OUR place", "FREE Food at Our place"},
		{"A single letter I stays", "A single letter I stays"},
		{"SHOUT!", "Shout!"},
		{"(AMAZING) deals inside", "(amazing) deals inside"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fixAllCaps(tt.in))
	}
}

func TestFixAllCapsIdempotent(t *testing.T) {
	inputs := []string{"HELLO WORLD", "come TODAY", "Mixed CASE text HERE"}
	for _, in := range inputs {
		once := fixAllCaps(in)
		assert.Equal(t, once, fixAllCaps(once))
	}
}

func TestFixAllCapsPreservesLines(t *testing.T) {
	in := "FIRST line\nSECOND line"
	assert.Equal(t, "First line\nSecond line", fixAllCaps(in))
}

func TestEnsureFirstNameOnce(t *testing.T) {
	t.Run("exactly one is untouched", func(t *testing.T) {
		body := "Hi {FirstName}, welcome!"
		assert.Equal(t, body, ensureFirstNameOnce(body, SMSLimit))
	})

	t.Run("absent token prefixed when it fits", func(t *testing.T) {
		got := ensureFirstNameOnce("welcome back!", SMSLimit)
		assert.Equal(t, "{FirstName}, welcome back!", got)
	})

	t.Run("absent token left out when over limit", func(t *testing.T) {
		body := strings.Repeat("x", SMSLimit)
		assert.Equal(t, body, ensureFirstNameOnce(body, SMSLimit))
	})

	t.Run("extra occurrences removed keeping the first", func(t *testing.T) {
		body := "Hi {FirstName}, {FirstName} come back {FirstName}!"
		got := ensureFirstNameOnce(body, EmailBodyLimit)
		assert.Equal(t, 1, strings.Count(got, FirstNameToken))
		assert.True(t, strings.HasPrefix(got, "Hi {FirstName}"))
	})
}

func TestSmartTruncateWithCTA(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "fits", smartTruncateWithCTA("fits", 160, false))
	})

	t.Run("keeps final sentence", func(t *testing.T) {
		lead := strings.Repeat("Great dishes await you here. ", 20)
		cta := "Reserve your table today!"
		got := smartTruncateWithCTA(lead+cta, EmailBodyLimit, true)
		assert.LessOrEqual(t, runeLen(got), EmailBodyLimit)
		assert.True(t, strings.HasSuffix(got, cta))
	})

	t.Run("falls back to plain cap for one long sentence", func(t *testing.T) {
		long := strings.Repeat("word ", 100)
		got := smartTruncateWithCTA(long, SMSLimit, false)
		assert.LessOrEqual(t, runeLen(got), SMSLimit)
	})
}

func TestTidySubject(t *testing.T) {
	assert.Equal(t, "Big Sale", tidySubject("  Big   Sale \n"))

	long := strings.Repeat("Subject ", 20)
	assert.LessOrEqual(t, runeLen(tidySubject(long)), EmailSubjectLimit)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? Last")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Last"}, got)
}
