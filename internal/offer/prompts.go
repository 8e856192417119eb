package offer

import (
	"fmt"
	"strings"
)

// Prompt construction for the generator call. The system prompt fixes the
// output contract per channel and format; the user prompt carries the
// campaign parameters and restaurant context.

func systemPrompt(channel Channel, format OutputFormat) string {
	if channel == ChannelEmail {
		if format == FormatJSON {
			return "You are a professional restaurant marketing copywriter.\n" +
				"Create compelling EMAIL campaigns that drive orders and bookings.\n\n" +
				"OUTPUT RULES (MANDATORY):\n" +
				"- Subject: 40-60 characters, engaging and clear\n" +
				"- Body: Array of paragraphs with proper structure\n" +
				"- Each paragraph should be 1-2 sentences maximum\n" +
				"- Include exactly ONE clear call-to-action in the final paragraph\n" +
				"- Use warm, appetizing language that creates urgency\n" +
				"- Include {FirstName} token exactly once in the greeting\n" +
				"- DO NOT include signature elements (Best regards, contact info) in paragraphs\n" +
				"- Keep paragraphs focused on content, not contact information\n\n" +
				"STRICT JSON FORMAT (NO DEVIATIONS):\n" +
				"{\n" +
				"  \"subject\": \"<subject text>\",\n" +
				"  \"paragraphs\": [\n" +
				"    \"<greeting paragraph with {FirstName}>\",\n" +
				"    \"<main content paragraph>\",\n" +
				"    \"<call-to-action paragraph>\"\n" +
				"  ],\n" +
				"  \"tone\": \"<detected emotional tone>\",\n" +
				"  \"call_to_action\": \"<main CTA verb/action>\"\n" +
				"}\n\n" +
				"CRITICAL: Each paragraph should be clean content only. No signatures, contact info, or 'Best regards' in the paragraphs array."
		}
		return "You are a professional restaurant marketing copywriter.\n" +
			"Create compelling EMAIL campaigns that drive orders and bookings.\n\n" +
			"OUTPUT RULES (MANDATORY):\n" +
			"- Subject: 40-60 characters, engaging and clear\n" +
			"- Body: 2-3 short paragraphs with REAL line breaks between them\n" +
			"- Each paragraph should be 1-2 sentences maximum\n" +
			"- Include exactly ONE clear call-to-action in the final paragraph\n" +
			"- Use warm, appetizing language that creates urgency\n" +
			"- Include {FirstName} token exactly once in the greeting\n" +
			"- NEVER include instruction text in your output\n\n" +
			"STRICT FORMAT (NO DEVIATIONS):\n" +
			"SUBJECT: <subject text>\n" +
			"BODY: <paragraph 1>\n\n<paragraph 2>\n\n<call-to-action paragraph>\n"
	}
	if format == FormatJSON {
		return "Create a restaurant SMS. Max 160 chars TOTAL.\n" +
			"Include ONE clear call-to-action and {FirstName} token.\n" +
			"Use warm, urgent language. Be concise and compelling.\n\n" +
			"STRICT JSON FORMAT:\n" +
			"{\n" +
			"  \"message\": \"<SMS text with {FirstName}>\",\n" +
			"  \"character_count\": <number>,\n" +
			"  \"call_to_action\": \"<main CTA verb>\"\n" +
			"}"
	}
	return "Create a restaurant SMS. Max 160 chars TOTAL.\n" +
		"Include ONE clear call-to-action and {FirstName} token.\n" +
		"Use warm, urgent language. Be concise and compelling.\n" +
		"Output ONLY the SMS text - no labels or formatting.\n"
}

func userPrompt(req Request, format OutputFormat) string {
	d := req.details()

	var constraintsText strings.Builder
	if req.Constraints != "" {
		constraints := strings.ToLower(req.Constraints)
		if containsAny(constraints, []string{"time limit", "today", "urgent", "limited time", "this week", "ends soon", "hurry"}) {
			constraintsText.WriteString("\nUrgency: Use time-sensitive language (today only, limited-time, ends soon).")
		}
		if containsAny(constraints, []string{"call-to-action", "cta", "reserve", "book", "visit", "order"}) {
			if d.WebsiteURL != "" {
				constraintsText.WriteString("\nCall-to-Action: Use strong action verbs and include the reservation/order link: " + d.WebsiteURL)
			} else {
				constraintsText.WriteString("\nCall-to-Action: Use strong action verbs (Reserve, Book, Visit, Call, Order) with clear next steps.")
			}
		}
		if containsAny(constraints, []string{"promote", "new", "special", "offer", "discount", "deal", "seasonal"}) {
			constraintsText.WriteString("\nPromotion: Highlight special offers, new items, or exclusive deals prominently.")
		}
		if containsAny(constraints, []string{"holiday", "celebration", "event", "special occasion", "anniversary", "brunch", "happy hour"}) {
			constraintsText.WriteString("\nEvent: Incorporate celebratory language and specific occasion messaging.")
		}
	}

	var bits []string
	for _, b := range []string{d.Name, d.City, d.Phone} {
		if b != "" {
			bits = append(bits, b)
		}
	}
	ctx := ""
	if len(bits) > 0 {
		ctx = "\nRestaurant context: " + strings.Join(bits, ", ")
	}
	if d.WebsiteURL != "" {
		ctx += "\nReservation/Order URL: " + d.WebsiteURL
	}

	restaurantName := d.Name
	if restaurantName == "" {
		restaurantName = "Restaurant"
	}
	constraintsLabel := req.Constraints
	if constraintsLabel == "" {
		constraintsLabel = "None specified"
	}
	context := fmt.Sprintf(`

COMPREHENSIVE CONTEXT:
• CUISINE TYPE: %s — Use authentic %s dishes and language
• TONE: %s — Maintain this tone consistently
• CHANNEL: %s — Optimize for this channel
• GOAL: %s — Focus copy to achieve this goal
• CONSTRAINTS: %s — Follow the requirements
• RESTAURANT: %s — Personalize for this establishment`,
		req.Cuisine, strings.ToLower(req.Cuisine), req.Tone,
		strings.ToUpper(string(req.Channel)), req.Goal, constraintsLabel, restaurantName)

	head := fmt.Sprintf("Create a %s for a %s restaurant.\nGoal: %s\nTone: %s%s%s%s",
		strings.ToUpper(string(req.Channel)), req.Cuisine, req.Goal, req.Tone,
		constraintsText.String(), context, ctx)

	if req.Channel != ChannelEmail {
		return head
	}

	websiteExample := ""
	if d.WebsiteURL != "" {
		websiteExample = "\n\nReserve at " + d.WebsiteURL
	}
	if format == FormatJSON {
		return head + fmt.Sprintf("\n\nOUTPUT FORMAT (STRICT JSON):\n"+
			"{\n"+
			"  \"subject\": \"<engaging subject 40-60 chars>\",\n"+
			"  \"paragraphs\": [\n"+
			"    \"<greeting with {FirstName}>\",\n"+
			"    \"<main content about %s and %s>\",\n"+
			"    \"<call-to-action paragraph>%s\"\n"+
			"  ],\n"+
			"  \"tone\": \"<detected tone>\",\n"+
			"  \"call_to_action\": \"<main action verb>\"\n"+
			"}\n\n"+
			"Rules: No signatures in paragraphs; use real newlines inside paragraphs only if needed.",
			req.Cuisine, req.Goal, websiteExample)
	}
	return head + fmt.Sprintf("\n\nOUTPUT FORMAT (STRICT TEXT):\n"+
		"SUBJECT: <subject text>\n"+
		"BODY: <greeting with {FirstName}>\n\n"+
		"<main content about %s and %s>\n\n"+
		"<call-to-action paragraph>%s\n",
		req.Cuisine, req.Goal, websiteExample)
}

// fallbackPrompt is the simplified retry prompt used when the primary
// generation attempt fails.
func fallbackPrompt(req Request) string {
	constraints := req.Constraints
	if constraints == "" {
		constraints = "None"
	}
	formatHint := "Keep under 160 characters"
	if req.Channel == ChannelEmail {
		formatHint = "Format as JSON with subject and paragraphs array"
	}
	return fmt.Sprintf("Create a %s for a %s restaurant.\nGoal: %s\nTone: %s\nConstraints: %s\n\n"+
		"Make it engaging and authentic. Include {FirstName} token.\n\n%s",
		req.Channel, req.Cuisine, req.Goal, req.Tone, constraints, formatHint)
}
