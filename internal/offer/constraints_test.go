package offer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func emailReq(constraints string, d *RestaurantDetails) Request {
	return Request{
		Cuisine:     "Italian",
		Tone:        "friendly",
		Channel:     ChannelEmail,
		Goal:        "drive reservations",
		Constraints: constraints,
		Restaurant:  d,
	}
}

func TestEnforceConstraintsNoConstraints(t *testing.T) {
	body := "Hello {FirstName}, welcome."
	got, fixes := enforceConstraints(body, emailReq("", nil))
	assert.Equal(t, body, got)
	assert.Empty(t, fixes)
}

func TestEnforceConstraintsAlreadyFulfilled(t *testing.T) {
	body := "Hello {FirstName}, reserve today for our special menu."
	got, fixes := enforceConstraints(body, emailReq("today, reserve, special", nil))
	assert.Equal(t, body, got)
	assert.Empty(t, fixes)
}

func TestEnforceConstraintsInsertsBeforeSignature(t *testing.T) {
	body := "Hello {FirstName}, enjoy the pasta.\n\nBest regards,\nThe Luigi's Team"

	got, fixes := enforceConstraints(body, emailReq("time limit", nil))

	assert.Len(t, fixes, 1)
	idx := strings.Index(got, "limited-time offer")
	sigIdx := strings.Index(got, "Best regards,")
	assert.True(t, idx >= 0 && sigIdx > idx, "fix must land before the signature in %q", got)
}

func TestEnforceConstraintsAppendsWithoutSignature(t *testing.T) {
	got, fixes := enforceConstraints("Hello {FirstName}, enjoy the pasta.", emailReq("cta", nil))
	assert.Equal(t, []string{"Reserve your table today!"}, fixes)
	assert.True(t, strings.HasSuffix(got, "Reserve your table today!"))
}

func TestEnforceConstraintsUsesWebsiteForCTA(t *testing.T) {
	d := &RestaurantDetails{WebsiteURL: "https://luigis.example"}
	_, fixes := enforceConstraints("Hello {FirstName}, enjoy the pasta.", emailReq("cta", d))
	assert.Equal(t, []string{"Reserve your table: https://luigis.example"}, fixes)
}

func TestEnforceConstraintsSMSRespectsLimit(t *testing.T) {
	req := Request{Cuisine: "Thai", Tone: "warm", Channel: ChannelSMS, Goal: "promo", Constraints: "time limit"}

	short := "Hi {FirstName}! Green curry is back."
	got, fixes := enforceConstraints(short, req)
	assert.Len(t, fixes, 1)
	assert.LessOrEqual(t, runeLen(got), SMSLimit)
	assert.Contains(t, got, "limited-time")

	long := strings.Repeat("x", 150)
	got, fixes = enforceConstraints(long, req)
	assert.Equal(t, long, got, "fragment must be dropped when over the limit")
	assert.Empty(t, fixes)
}
