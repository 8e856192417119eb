package offer

import "strings"

// Signature composition. Emails get a multi-line closing block built from
// whatever contact details are known; SMS gets a compact one-line suffix only
// when it still fits the hard limit. Existing content is never truncated to
// make room for a signature.

func appendSignature(message string, d RestaurantDetails, channel Channel) string {
	if d == (RestaurantDetails{}) {
		return message
	}
	if channel == ChannelSMS {
		var parts []string
		if d.Name != "" {
			parts = append(parts, d.Name)
		}
		if d.Phone != "" {
			parts = append(parts, d.Phone)
		}
		if len(parts) == 0 {
			return message
		}
		compact := message + " — " + strings.Join(parts, " • ")
		if runeLen(compact) <= SMSLimit {
			return compact
		}
		return message
	}

	formatted := ensureLineBreaks(removeInstructionText(message))

	sig := []string{"Best regards,"}
	if d.Name != "" {
		sig = append(sig, "The "+d.Name+" Team")
	}
	if d.Phone != "" {
		sig = append(sig, "Phone: "+d.Phone)
	}
	if d.Email != "" {
		sig = append(sig, "Email: "+d.Email)
	}
	// Skip the website line when the body already links it.
	if d.WebsiteURL != "" && !strings.Contains(formatted, d.WebsiteURL) {
		sig = append(sig, "Website: "+d.WebsiteURL)
	}

	return strings.TrimRight(strings.TrimSpace(formatted)+"\n\n"+strings.Join(sig, "\n"), " \n")
}

// ensureLineBreaks gives an email body paragraph structure: existing breaks
// are normalized to blank-line separation, flat text is split by sentence
// count into two or three paragraphs.
func ensureLineBreaks(message string) string {
	if message == "" {
		return message
	}
	if strings.Count(message, "\n") >= 2 {
		var lines []string
		for _, ln := range strings.Split(message, "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				lines = append(lines, ln)
			}
		}
		return strings.Join(lines, "\n\n")
	}
	sentences := splitSentences(message)
	switch {
	case len(sentences) >= 4:
		return sentences[0] + "\n\n" + strings.Join(sentences[1:len(sentences)-1], " ") + "\n\n" + sentences[len(sentences)-1]
	case len(sentences) >= 2:
		return sentences[0] + "\n\n" + strings.Join(sentences[1:], " ")
	}
	return message
}
