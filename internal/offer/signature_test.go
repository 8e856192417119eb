package offer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendSignatureNoDetails(t *testing.T) {
	body := "Hello {FirstName}, come visit us."
	assert.Equal(t, body, appendSignature(body, RestaurantDetails{}, ChannelEmail))
	assert.Equal(t, body, appendSignature(body, RestaurantDetails{}, ChannelSMS))
}

func TestAppendSignatureSMS(t *testing.T) {
	d := RestaurantDetails{Name: "Luigi's", Phone: "555-0101"}

	got := appendSignature("Hi {FirstName}! Pasta night Friday.", d, ChannelSMS)
	assert.Equal(t, "Hi {FirstName}! Pasta night Friday. — Luigi's • 555-0101", got)
}

func TestAppendSignatureSMSNeverTruncates(t *testing.T) {
	d := RestaurantDetails{Name: "A Very Long Restaurant Name Indeed", Phone: "555-0101-0101"}
	body := strings.Repeat("x", 150)

	got := appendSignature(body, d, ChannelSMS)
	assert.Equal(t, body, got, "signature must be dropped, not squeezed in")
}

func TestAppendSignatureEmail(t *testing.T) {
	d := RestaurantDetails{
		Name:       "Luigi's",
		Phone:      "555-0101",
		Email:      "info@luigis.example",
		WebsiteURL: "https://luigis.example",
	}

	got := appendSignature("Hello {FirstName}, our new menu is here. Come try the truffle pasta this weekend.", d, ChannelEmail)

	assert.Contains(t, got, "Best regards,")
	assert.Contains(t, got, "The Luigi's Team")
	assert.Contains(t, got, "Phone: 555-0101")
	assert.Contains(t, got, "Email: info@luigis.example")
	assert.Contains(t, got, "Website: https://luigis.example")
}

func TestAppendSignatureEmailWebsiteDedup(t *testing.T) {
	d := RestaurantDetails{Name: "Luigi's", WebsiteURL: "https://luigis.example"}
	body := "Hello {FirstName}, reserve now at https://luigis.example and join us."

	got := appendSignature(body, d, ChannelEmail)

	assert.Equal(t, 1, strings.Count(got, "https://luigis.example"))
	assert.NotContains(t, got, "Website:")
}

func TestAppendSignatureEmailNoName(t *testing.T) {
	got := appendSignature("Hello {FirstName}, dinner awaits you tonight.", RestaurantDetails{Phone: "555-0101"}, ChannelEmail)
	assert.Contains(t, got, "Best regards,")
	assert.NotContains(t, got, "Team")
}

func TestEnsureLineBreaks(t *testing.T) {
	t.Run("existing breaks normalized", func(t *testing.T) {
		got := ensureLineBreaks("one\ntwo\nthree")
		assert.Equal(t, "one\n\ntwo\n\nthree", got)
	})

	t.Run("four sentences become three paragraphs", func(t *testing.T) {
		got := ensureLineBreaks("Hello there. We have news. The menu changed. Come see us!")
		assert.Equal(t, "Hello there.\n\nWe have news. The menu changed.\n\nCome see us!", got)
	})

	t.Run("two sentences become two paragraphs", func(t *testing.T) {
		got := ensureLineBreaks("Hello there. Come see us!")
		assert.Equal(t, "Hello there.\n\nCome see us!", got)
	})

	t.Run("single sentence untouched", func(t *testing.T) {
		assert.Equal(t, "Just one.", ensureLineBreaks("Just one."))
	})
}
