package offer

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Response parsing. Two strategies: the SUBJECT/BODY marker format and a
// structured JSON object. Both degrade to raw-text treatment rather than
// failing, so a confused completion still yields a usable body.

var (
	subjectMarkerRe = regexp.MustCompile(`(?im)^\s*SUBJECT:\s*(.+?)\s*$`)
	bodyMarkerRe    = regexp.MustCompile(`(?ims)^\s*BODY:\s*(.+)\z`)
	codeFenceRe     = regexp.MustCompile("```json\\s*|\\s*```")
)

// signatureKeywords marks paragraphs that belong in a closing block rather
// than the main body.
var signatureKeywords = []string{
	"best regards", "sincerely", "contact", "phone", "email", "website", "reserve online",
}

// parseEmail extracts subject and body from marker-formatted output. When the
// markers are missing the whole input becomes the body with no subject.
func parseEmail(generated string) (subject, body string) {
	if generated == "" {
		return "", ""
	}
	raw := strings.TrimSpace(strings.ReplaceAll(generated, "\r\n", "\n"))
	if m := subjectMarkerRe.FindStringSubmatch(raw); m != nil {
		subject = tidySubject(m[1])
	}
	if m := bodyMarkerRe.FindStringSubmatch(raw); m != nil {
		body = strings.TrimSpace(m[1])
	} else {
		body = raw
	}
	body = normalizeNewlines(body, true)
	if strings.Count(body, "\n") < 1 && runeLen(body) > 80 {
		body = reParagraph(body)
	}
	return subject, body
}

// reParagraph splits flat text into a greeting/details/CTA structure when
// enough sentences exist, otherwise into two paragraphs.
func reParagraph(body string) string {
	sentences := splitSentences(body)
	switch {
	case len(sentences) >= 3:
		first := sentences[0]
		middle := strings.Join(sentences[1:len(sentences)-1], " ")
		last := sentences[len(sentences)-1]
		return first + "\n\n" + middle + "\n\n" + last
	case len(sentences) >= 2:
		return sentences[0] + "\n\n" + strings.Join(sentences[1:], " ")
	}
	return body
}

// jsonMeta carries the extra fields a structured completion may report.
type jsonMeta struct {
	DetectedTone string
	CallToAction string
	HasSignature bool
}

// parseJSONEmail parses a JSON-structured email completion. Paragraphs with
// signature keywords are segregated into a trailing block so a generator that
// ignores the no-signature rule does not leak contact text into the body
// twice. Falls back to marker parsing when there is no JSON object, the JSON
// is malformed, or the extracted body is under 10 characters; structured is
// false in that case.
func parseJSONEmail(generated string) (subject, body string, meta jsonMeta, structured bool) {
	if generated == "" {
		return "", "", jsonMeta{}, false
	}
	cleaned := codeFenceRe.ReplaceAllString(strings.TrimSpace(generated), "")
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		subject, body = parseEmail(generated)
		return subject, body, jsonMeta{}, false
	}

	var data struct {
		Subject      string   `json:"subject"`
		Paragraphs   []string `json:"paragraphs"`
		Body         string   `json:"body"`
		Tone         string   `json:"tone"`
		CallToAction string   `json:"call_to_action"`
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &data); err != nil {
		subject, body = parseEmail(generated)
		return subject, body, jsonMeta{}, false
	}

	if len(data.Paragraphs) > 0 {
		var main, sig []string
		for _, para := range data.Paragraphs {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if containsAny(strings.ToLower(para), signatureKeywords) {
				sig = append(sig, para)
			} else {
				main = append(main, para)
			}
		}
		body = strings.Join(main, "\n\n")
		if len(sig) > 0 {
			body += "\n\n" + strings.Join(sig, "\n")
		}
	} else {
		body = data.Body
	}

	if runeLen(strings.TrimSpace(body)) < 10 {
		subject, body = parseEmail(generated)
		return subject, body, jsonMeta{}, false
	}

	meta = jsonMeta{
		DetectedTone: data.Tone,
		CallToAction: data.CallToAction,
		HasSignature: containsAny(strings.ToLower(body), []string{"best regards", "sincerely", "contact"}),
	}
	return data.Subject, body, meta, true
}

// parseJSONSMS parses a JSON-structured SMS completion. On any parse failure
// the raw input is returned verbatim as the message.
func parseJSONSMS(generated string) (message string, meta jsonMeta, structured bool) {
	if generated == "" {
		return "", jsonMeta{}, false
	}
	cleaned := codeFenceRe.ReplaceAllString(strings.TrimSpace(generated), "")
	var data struct {
		Message      string `json:"message"`
		CallToAction string `json:"call_to_action"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return generated, jsonMeta{}, false
	}
	return data.Message, jsonMeta{CallToAction: data.CallToAction}, true
}

// looksLikeRawJSON reports whether a parsed body still carries JSON structure
// from a completion that nested or duplicated the requested object.
func looksLikeRawJSON(body string) bool {
	if body == "" {
		return false
	}
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") && (strings.Contains(body, "paragraphs") || strings.Contains(body, "message")) {
		return true
	}
	return strings.Contains(body, `{"`) || strings.Contains(body, `"paragraphs"`) || strings.Contains(body, `"subject"`)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
