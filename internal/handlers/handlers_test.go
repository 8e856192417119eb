package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/api/internal/offer"
)

func TestRenderMessage(t *testing.T) {
	assert.Equal(t, "Hi Maria, come by!", renderMessage("Hi {FirstName}, come by!", "Maria"))
	assert.Equal(t, "hi maria", renderMessage("hi {firstname}", "maria"))
	assert.Equal(t, "HELLO MARIA", renderMessage("HELLO {FIRSTNAME}", "Maria"))
	assert.Equal(t, "no token here", renderMessage("no token here", "Maria"))
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"pizza", "pasta"}, splitCSV("pizza,pasta"))
	assert.Equal(t, []string{"pizza", "pasta"}, splitCSV(" pizza , pasta "))
	assert.Equal(t, []string{"pizza"}, splitCSV("pizza,,"))
}

func TestPaginationDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/restaurants", nil)
	page, pageSize := pagination(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, pageSize)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/restaurants?page=3&pageSize=50", nil)
	page, pageSize = pagination(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, pageSize)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/restaurants?page=-1&pageSize=5000", nil)
	page, pageSize = pagination(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1000, pageSize)
}

func TestToneAndDaypartAliases(t *testing.T) {
	assert.Equal(t, "playful", toneAliases["fun"])
	assert.Equal(t, "professional", toneAliases["serious"])
	assert.Equal(t, "professional", toneAliases["business"])
	assert.Equal(t, "casual", toneAliases["relaxed"])

	assert.Equal(t, "breakfast", daypartAliases["morning"])
	assert.Equal(t, "lunch", daypartAliases["noon"])
	assert.Equal(t, "lunch", daypartAliases["afternoon"])
	assert.Equal(t, "dinner", daypartAliases["evening"])
	assert.Equal(t, "late_night", daypartAliases["night"])
}

func TestBuildPreviewEmail(t *testing.T) {
	content := &offer.Content{
		Subject: "{FirstName}, dinner on us",
		Body:    "Hi {FirstName},\n\nJoin us tonight.\n\nReserve your table now.",
		Channel: offer.ChannelEmail,
		Metadata: offer.Metadata{
			Processed:         true,
			SubjectLength:     24,
			BodyLength:        55,
			HasFirstNameToken: true,
		},
	}

	preview := buildPreview(content)

	quality, ok := preview["quality_checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, quality["has_firstname_token"])
	assert.Equal(t, true, quality["has_call_to_action"])

	formatting, ok := preview["formatting"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3, formatting["paragraph_count"])

	assert.Equal(t, true, preview["subject_within_limit"])
	assert.Equal(t, true, preview["body_within_limit"])
	assert.Contains(t, preview["body_personalized"], "Hi Alex,")
	assert.Contains(t, preview["subject_personalized"], "Alex, dinner on us")
}

func TestBuildPreviewSMS(t *testing.T) {
	content := &offer.Content{
		Body:    "Hi {FirstName}, 20% off pasta tonight. Show this text.",
		Channel: offer.ChannelSMS,
		Metadata: offer.Metadata{
			Processed:         true,
			BodyLength:        54,
			HasFirstNameToken: true,
		},
	}

	preview := buildPreview(content)

	assert.Equal(t, "sms", preview["channel"])
	assert.Equal(t, true, preview["body_within_limit"])
	assert.NotContains(t, preview, "subject")

	quality := preview["quality_checks"].(map[string]interface{})
	assert.Equal(t, false, quality["has_call_to_action"])

	formatting := preview["formatting"].(map[string]interface{})
	assert.Equal(t, 1, formatting["paragraph_count"])
	assert.Equal(t, 0, formatting["line_break_count"])
}
