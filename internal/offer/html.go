package offer

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// HTMLFormatter renders a finished email as inline-styled HTML. With a
// generator it asks for an AI rendering; without one, or on any failure, it
// falls back to the deterministic template. It satisfies HTMLRenderer.
type HTMLFormatter struct {
	gen    Generator
	logger *zap.Logger
}

func NewHTMLFormatter(gen Generator, logger *zap.Logger) *HTMLFormatter {
	return &HTMLFormatter{gen: gen, logger: logger}
}

const htmlSystemPrompt = "You are an expert HTML email formatter. Convert plain text email content " +
	"into well-structured, responsive HTML email format.\n\n" +
	"REQUIREMENTS:\n" +
	"- Use semantic HTML structure with proper paragraphs\n" +
	"- Apply inline CSS styles for email compatibility\n" +
	"- Preserve {FirstName} tokens exactly\n" +
	"- Make call-to-action buttons prominent\n" +
	"- Ensure mobile-responsive design\n" +
	"- Use restaurant-appropriate color scheme\n\n" +
	"Output only clean HTML code without explanations."

// Render never returns an error in practice: AI failures degrade to the
// template renderer, which cannot fail.
func (f *HTMLFormatter) Render(ctx context.Context, content *Content) (string, error) {
	if f.gen != nil && content.Channel == ChannelEmail {
		html, err := f.renderWithAI(ctx, content)
		if err == nil {
			return html, nil
		}
		f.logger.Error("ai html formatting failed, using template", zap.Error(err))
	}
	return f.renderTemplate(content), nil
}

func (f *HTMLFormatter) renderWithAI(ctx context.Context, content *Content) (string, error) {
	subject := content.Subject
	if subject == "" {
		subject = "Special Offer"
	}
	user := "Convert this email content to HTML:\n\n" +
		"Subject: " + subject + "\n\n" +
		"Body:\n" + content.Body + "\n\n" +
		"Create a professional email template with:\n" +
		"- Proper paragraph spacing\n" +
		"- Emphasized call-to-action\n" +
		"- Restaurant-friendly styling\n" +
		"- Mobile compatibility"

	out, err := f.gen.Complete(ctx, htmlSystemPrompt, user, 800, 0.3)
	if err != nil {
		return "", err
	}
	out = strings.ReplaceAll(out, "```html", "")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out), nil
}

var ctaWords = []string{"reserve", "book", "visit", "order", "call"}

func (f *HTMLFormatter) renderTemplate(content *Content) string {
	if content.Channel != ChannelEmail {
		return `<div style="font-family: Arial, sans-serif; font-size: 14px; color: #333; padding: 12px; background-color: #f8f9fa; border-radius: 8px; max-width: 300px;">` + content.Body + `</div>`
	}

	var paragraphs []string
	for _, p := range strings.Split(content.Body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var b strings.Builder
	for i, para := range paragraphs {
		switch {
		case i == 0:
			b.WriteString(`<p style="margin: 0 0 16px 0; font-size: 16px; line-height: 1.5; color: #333;">` + para + `</p>`)
		case i == len(paragraphs)-1 && containsAny(strings.ToLower(para), ctaWords):
			b.WriteString(`<p style="margin: 16px 0; font-size: 16px; line-height: 1.5; font-weight: bold; color: #d4482b;">` + para + `</p>`)
		case i == len(paragraphs)-1:
			b.WriteString(`<p style="margin: 16px 0 0 0; font-size: 16px; line-height: 1.5; color: #333;">` + para + `</p>`)
		default:
			b.WriteString(`<p style="margin: 16px 0; font-size: 16px; line-height: 1.5; color: #333;">` + para + `</p>`)
		}
	}

	return "\n" + `<div style="max-width: 600px; margin: 0 auto; font-family: Arial, sans-serif; background-color: #ffffff; padding: 20px;">` + "\n" +
		`    <div style="background-color: #f8f9fa; padding: 24px; border-radius: 8px; border-left: 4px solid #d4482b;">` + "\n" +
		`        ` + b.String() + "\n" +
		`    </div>` + "\n" +
		`</div>` + "\n"
}
