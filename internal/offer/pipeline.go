package offer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Generator is the one external capability the pipeline consumes: a bounded
// text-completion call. Any error it returns (timeout, network, provider) is
// treated uniformly as "generator unavailable" and demotes to the next tier.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// HTMLRenderer optionally renders a finished message as email HTML. It is a
// companion capability: failures are logged and the plain body stands alone.
type HTMLRenderer interface {
	Render(ctx context.Context, content *Content) (string, error)
}

const (
	defaultModel   = "gpt-4o"
	upstreamBudget = 30 * time.Second
	maxTokens      = 200
	primaryTemp    = 0.7
	fallbackTemp   = 0.8
)

// Writer drives the three-tier generation strategy and the post-processing
// chain. A nil Generator is valid and jumps straight to the emergency tier.
// Writers are safe for concurrent use; each run keeps its state on the stack.
type Writer struct {
	gen    Generator
	html   HTMLRenderer
	model  string
	logger *zap.Logger
}

type WriterOption func(*Writer)

// WithHTMLRenderer enables the email HTML companion rendering.
func WithHTMLRenderer(r HTMLRenderer) WriterOption {
	return func(w *Writer) { w.html = r }
}

// WithModel overrides the model name recorded in metadata.
func WithModel(model string) WriterOption {
	return func(w *Writer) { w.model = model }
}

func NewWriter(gen Generator, logger *zap.Logger, opts ...WriterOption) *Writer {
	w := &Writer{gen: gen, model: defaultModel, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	if w.gen == nil {
		w.logger.Warn("no generator configured, serving template content only")
	}
	return w
}

// GenerateOffer runs the full pipeline for one request. It returns an error
// only for an invalid request; every downstream failure demotes tiers until
// the deterministic emergency template, which cannot fail.
func (w *Writer) GenerateOffer(ctx context.Context, req Request, format OutputFormat) (*Content, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatText
	}

	var content *Content
	if w.gen != nil {
		c, err := w.generatePrimary(ctx, req, format)
		if err != nil {
			w.logger.Error("primary generation failed, trying fallback",
				zap.String("channel", string(req.Channel)), zap.Error(err))
			content = w.generateFallback(ctx, req)
		} else {
			content = c
		}
	} else {
		content = w.generateFallback(ctx, req)
	}

	w.renderHTML(ctx, content)
	w.finalize(content, req)
	return content, nil
}

// GenerateEmergency serves the deterministic template directly, bypassing the
// upstream tiers. Demo deployments use it to answer instantly.
func (w *Writer) GenerateEmergency(req Request) *Content {
	content := w.generateEmergency(req)
	w.finalize(content, req)
	return content
}

// HasGenerator reports whether an upstream completion client is configured.
func (w *Writer) HasGenerator() bool {
	return w.gen != nil
}

func (w *Writer) generatePrimary(ctx context.Context, req Request, format OutputFormat) (*Content, error) {
	cctx, cancel := context.WithTimeout(ctx, upstreamBudget)
	defer cancel()

	out, err := w.gen.Complete(cctx, systemPrompt(req.Channel, format), userPrompt(req, format), maxTokens, primaryTemp)
	if err != nil {
		return nil, err
	}
	out = cleanInstructionLines(strings.TrimSpace(out))

	var (
		subject, body string
		meta          jsonMeta
		structured    bool
	)
	if format == FormatJSON {
		if req.Channel == ChannelEmail {
			subject, body, meta, structured = parseJSONEmail(out)
		} else {
			body, meta, structured = parseJSONSMS(out)
		}
	} else if req.Channel == ChannelEmail {
		subject, body = parseEmail(out)
	} else {
		body = normalizeNewlines(out, false)
	}

	// A confused generator sometimes nests the JSON object inside prose or
	// echoes it around the parsed fields. Force marker parsing when the body
	// still looks like raw JSON.
	if looksLikeRawJSON(body) {
		w.logger.Warn("raw JSON detected in parsed body, reparsing as text")
		if req.Channel == ChannelEmail {
			subject, body = parseEmail(out)
		} else {
			subject = ""
			body = normalizeNewlines(out, false)
		}
		meta = jsonMeta{}
		structured = false
	}

	// Structured completions carry their own signature block; everything else
	// gets one composed here.
	if format != FormatJSON || !structured {
		body = appendSignature(body, req.details(), req.Channel)
	}
	body = finalCleanup(body)
	body, fixes := enforceConstraints(body, req)

	return &Content{
		Subject: subject,
		Body:    body,
		Channel: req.Channel,
		Metadata: Metadata{
			AIGenerated:     true,
			Tier:            TierPrimary,
			Model:           w.model,
			OutputFormat:    format,
			Tone:            req.Tone,
			Goal:            req.Goal,
			DetectedTone:    meta.DetectedTone,
			CallToAction:    meta.CallToAction,
			JSONStructured:  structured,
			HasSignature:    meta.HasSignature,
			ConstraintFixes: fixes,
		},
	}, nil
}

// generateFallback retries with a simplified prompt, demoting to the
// emergency template when the generator is absent or fails again. Unlike the
// primary tier it always composes a signature.
func (w *Writer) generateFallback(ctx context.Context, req Request) *Content {
	if w.gen == nil {
		return w.generateEmergency(req)
	}
	cctx, cancel := context.WithTimeout(ctx, upstreamBudget)
	defer cancel()

	out, err := w.gen.Complete(cctx, "You are a restaurant marketing expert. Create compelling content.",
		fallbackPrompt(req), maxTokens, fallbackTemp)
	if err != nil {
		w.logger.Error("fallback generation failed, using emergency template", zap.Error(err))
		return w.generateEmergency(req)
	}

	var subject, body string
	if req.Channel == ChannelEmail {
		if strings.Contains(out, "{") && strings.Contains(out, "}") {
			subject, body, _, _ = parseJSONEmail(out)
		} else {
			subject, body = parseEmail(out)
		}
	} else {
		body = normalizeNewlines(out, false)
	}

	body = appendSignature(body, req.details(), req.Channel)
	body = finalCleanup(body)
	body, fixes := enforceConstraints(body, req)

	return &Content{
		Subject: subject,
		Body:    body,
		Channel: req.Channel,
		Metadata: Metadata{
			AIGenerated:     true,
			Tier:            TierFallback,
			Model:           w.model,
			Tone:            req.Tone,
			Goal:            req.Goal,
			ConstraintFixes: fixes,
		},
	}
}

// generateEmergency builds a deterministic canned message. No I/O, no
// parsing; this tier cannot fail.
func (w *Writer) generateEmergency(req Request) *Content {
	w.logger.Warn("using emergency template", zap.String("channel", string(req.Channel)))
	if req.Channel == ChannelSMS {
		return &Content{
			Body:     "Hi " + FirstNameToken + "! Try our " + req.Cuisine + " today!",
			Channel:  req.Channel,
			Metadata: Metadata{Tier: TierEmergency},
		}
	}
	body := "Hello " + FirstNameToken + "! Enjoy our " + req.Cuisine + " cuisine today. Visit us soon!"
	if d := req.details(); d.WebsiteURL != "" {
		body += "\n\nReserve your table: " + d.WebsiteURL
	}
	body = appendSignature(body, req.details(), req.Channel)
	body = finalCleanup(body)
	return &Content{
		Subject:  "Special " + req.Cuisine + " Offer",
		Body:     body,
		Channel:  req.Channel,
		Metadata: Metadata{Tier: TierEmergency},
	}
}

func (w *Writer) renderHTML(ctx context.Context, content *Content) {
	if w.html == nil || content.Channel != ChannelEmail {
		return
	}
	html, err := w.html.Render(ctx, content)
	if err != nil {
		w.logger.Error("html rendering failed", zap.Error(err))
		return
	}
	content.HTML = html
}

// finalize is the terminal stage applied regardless of tier: subject tidied,
// caps fixed, body truncated to the channel limit with the call to action
// preserved, personalization token enforced, metadata stamped.
func (w *Writer) finalize(content *Content, req Request) {
	if req.Channel == ChannelEmail {
		if content.Subject != "" {
			content.Subject = tidySubject(content.Subject)
		}
		content.Body = fixAllCaps(content.Body)
		content.Body = smartTruncateWithCTA(content.Body, EmailBodyLimit, true)
		content.Body = ensureFirstNameOnce(content.Body, EmailBodyLimit)
	} else {
		content.Subject = ""
		content.Body = normalizeNewlines(content.Body, false)
		content.Body = fixAllCaps(content.Body)
		content.Body = smartTruncateWithCTA(content.Body, SMSLimit, false)
		content.Body = ensureFirstNameOnce(content.Body, SMSLimit)
	}
	md := &content.Metadata
	md.AIGenerated = md.Tier != TierEmergency
	md.Processed = true
	md.SubjectLength = runeLen(content.Subject)
	md.BodyLength = runeLen(content.Body)
	md.HasFirstNameToken = strings.Contains(content.Subject, FirstNameToken) ||
		strings.Contains(content.Body, FirstNameToken)
	md.HasHTML = content.HTML != ""
}
