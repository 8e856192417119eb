package offer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanInstructionLines(t *testing.T) {
	in := "Here is a wonderful offer from our kitchen team.\nadd time limit\nCome and taste the difference tonight."
	got := cleanInstructionLines(in)
	assert.NotContains(t, got, "add time limit")
	assert.Contains(t, got, "wonderful offer")
	assert.Contains(t, got, "taste the difference")
}

func TestCleanInstructionLinesKeepsLongLines(t *testing.T) {
	// A line mentioning a leak phrase but long enough to be real content
	// must survive the filter.
	long := "Visit us today and enjoy a full tasting menu with our chef's latest seasonal creations."
	got := cleanInstructionLines(long)
	assert.Equal(t, long, got)
}

func TestCleanInstructionLinesSafetyValve(t *testing.T) {
	// Filtering everything would leave nothing, so the original comes back.
	in := "include\nadd\ntoday"
	assert.Equal(t, in, cleanInstructionLines(in))
}

func TestSanitizerNonDestructive(t *testing.T) {
	inputs := []string{
		"",
		"x",
		"add time limit",
		"constraint constraint constraint",
		"A real message about dinner specials tonight.",
	}
	for _, in := range inputs {
		got := cleanInstructionLines(in)
		assert.True(t, runeLen(got) >= 20 || got == in, "input %q shrank to %q", in, got)
	}
}

func TestRemoveInstructionText(t *testing.T) {
	got := removeInstructionText("Enjoy our pasta. add time limit Come by soon.")
	assert.NotContains(t, strings.ToLower(got), "add time limit")
	assert.Contains(t, got, "Enjoy our pasta")
}

func TestFinalCleanupRepeatedPunctuation(t *testing.T) {
	assert.Equal(t, "Wow! Great deals. Come now.", finalCleanup("Wow!!! Great deals.. Come now."))
}

func TestFinalCleanupInstructionPatterns(t *testing.T) {
	got := finalCleanup("Taste our new menu and reserve a seat for the weekend rush. IMPORTANT: CALL-TO-ACTION: Book now before tables run out this season.")
	assert.NotContains(t, got, "IMPORTANT:")
	assert.NotContains(t, got, "CALL-TO-ACTION:")
	assert.Contains(t, got, "Book now")
}

func TestFinalCleanupCapsBlankLines(t *testing.T) {
	got := finalCleanup("para one is here\n\n\n\n\npara two is here\nand this line makes it long enough to stay flat")
	assert.NotContains(t, got, "\n\n\n\n")
}

func TestFinalCleanupReparagraphs(t *testing.T) {
	flat := "Welcome back to our bistro. The autumn menu just landed with six new dishes. Book a table before Friday!"
	got := finalCleanup(flat)
	assert.Equal(t, 2, strings.Count(got, "\n\n"))
}
