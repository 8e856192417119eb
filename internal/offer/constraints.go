package offer

import "strings"

// Constraint fulfillment. The request's free-text constraints are matched
// against three intent categories; when the produced body does not reflect a
// requested intent, a minimal corrective fragment is injected.

var (
	urgencyAsk     = []string{"today", "urgent", "time limit", "limited time"}
	urgencyHave    = []string{"today", "urgent", "limited", "hurry", "now", "quick"}
	ctaAsk         = []string{"call-to-action", "cta", "reserve", "book"}
	ctaHave        = []string{"reserve", "book", "visit", "call", "order", "try"}
	promotionAsk   = []string{"new", "special", "promotion", "discount", "offer"}
	promotionHave  = []string{"new", "special", "exclusive", "discount", "offer", "deal"}
	signatureWords = []string{"regards", "sincerely", "best"}
)

// enforceConstraints returns the possibly amended body plus the fragments it
// injected. For email the fragments go on a new line just before the
// signature block; for SMS they are appended only when the result still fits
// the limit, and dropped silently otherwise.
func enforceConstraints(body string, req Request) (string, []string) {
	if req.Constraints == "" {
		return body, nil
	}
	constraints := strings.ToLower(req.Constraints)
	bodyLower := strings.ToLower(body)
	var fixes []string

	if containsAny(constraints, urgencyAsk) && !containsAny(bodyLower, urgencyHave) {
		fixes = append(fixes, "Please note this is a limited-time offer!")
	}
	if containsAny(constraints, ctaAsk) && !containsAny(bodyLower, ctaHave) {
		if d := req.details(); d.WebsiteURL != "" {
			fixes = append(fixes, "Reserve your table: "+d.WebsiteURL)
		} else {
			fixes = append(fixes, "Reserve your table today!")
		}
	}
	if containsAny(constraints, promotionAsk) && !containsAny(bodyLower, promotionHave) {
		fixes = append(fixes, "Don't miss this special offer!")
	}

	if len(fixes) == 0 {
		return body, nil
	}

	if req.Channel == ChannelEmail {
		lines := strings.Split(body, "\n")
		sigStart := -1
		for i, line := range lines {
			if containsAny(strings.ToLower(line), signatureWords) {
				sigStart = i
				break
			}
		}
		if sigStart > 0 {
			amended := make([]string, 0, len(lines)+2)
			amended = append(amended, lines[:sigStart]...)
			amended = append(amended, "", strings.Join(fixes, " "))
			amended = append(amended, lines[sigStart:]...)
			return strings.Join(amended, "\n"), fixes
		}
		return body + "\n\n" + strings.Join(fixes, " "), fixes
	}

	addition := " " + fixes[0]
	if runeLen(body+addition) <= SMSLimit {
		return body + addition, fixes
	}
	return body, nil
}
