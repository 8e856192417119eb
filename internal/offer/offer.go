// Package offer implements the marketing-copy generation pipeline: prompt
// construction, three-tier generation (AI, simplified AI retry, deterministic
// template), and the post-processing chain that turns a raw model completion
// into a channel-compliant message.
package offer

import (
	"errors"
	"fmt"
)

// Channel is the delivery channel a message is generated for.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether c is a recognized channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// OutputFormat selects how the model is asked to structure its completion.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Hard channel limits, in characters. The API boundary validator in the
// original service used a stricter 400-char email body; the pipeline cap of
// 500 is authoritative here (see DESIGN.md).
const (
	EmailSubjectLimit = 60
	EmailBodyLimit    = 500
	SMSLimit          = 160
)

// FirstNameToken is the personalization placeholder substituted with the
// recipient's first name at send time. It must appear at most once in any
// finalized body.
const FirstNameToken = "{FirstName}"

// RestaurantDetails carries the optional contact fields used for prompt
// context and signature composition. Zero values mean "unknown".
type RestaurantDetails struct {
	Name       string `json:"name,omitempty"`
	City       string `json:"city,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	WebsiteURL string `json:"website_url,omitempty"`
}

// Request is the immutable input to a single generation run.
type Request struct {
	Cuisine     string
	Tone        string
	Channel     Channel
	Goal        string
	Constraints string
	Restaurant  *RestaurantDetails
}

// ErrInvalidRequest wraps all request validation failures. It is the only
// error GenerateOffer ever returns.
var ErrInvalidRequest = errors.New("invalid offer request")

// Validate checks the request before any generator call is attempted.
func (r Request) Validate() error {
	if !r.Channel.Valid() {
		return fmt.Errorf("%w: channel must be %q or %q", ErrInvalidRequest, ChannelEmail, ChannelSMS)
	}
	if r.Cuisine == "" {
		return fmt.Errorf("%w: cuisine is required", ErrInvalidRequest)
	}
	if r.Tone == "" {
		return fmt.Errorf("%w: tone is required", ErrInvalidRequest)
	}
	if r.Goal == "" {
		return fmt.Errorf("%w: goal is required", ErrInvalidRequest)
	}
	return nil
}

// details returns the restaurant details, never nil.
func (r Request) details() RestaurantDetails {
	if r.Restaurant == nil {
		return RestaurantDetails{}
	}
	return *r.Restaurant
}

// Tier identifies which generation strategy produced the content.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierFallback  Tier = "fallback"
	TierEmergency Tier = "emergency"
)

// Metadata accumulates provenance across pipeline stages. Each stage sets the
// fields it owns; Finalize stamps the length and token fields last.
type Metadata struct {
	AIGenerated    bool
	Tier           Tier
	Model          string
	OutputFormat   OutputFormat
	Tone           string
	Goal           string
	DetectedTone   string
	CallToAction   string
	JSONStructured bool
	HasSignature   bool

	// Set by Finalize.
	Processed         bool
	SubjectLength     int
	BodyLength        int
	HasFirstNameToken bool
	HasHTML           bool

	// Corrective fragments injected by the constraint validator, if any.
	ConstraintFixes []string
}

// ToMap flattens the metadata into the open key-value shape the API exposes.
func (m Metadata) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"ai_generated":        m.AIGenerated,
		"tier":                string(m.Tier),
		"output_format":       string(m.OutputFormat),
		"processed":           m.Processed,
		"subject_length":      m.SubjectLength,
		"body_length":         m.BodyLength,
		"has_firstname_token": m.HasFirstNameToken,
		"has_html_formatting": m.HasHTML,
	}
	if m.Model != "" {
		out["model"] = m.Model
	}
	if m.Tone != "" {
		out["tone"] = m.Tone
	}
	if m.Goal != "" {
		out["goal"] = m.Goal
	}
	if m.DetectedTone != "" {
		out["detected_tone"] = m.DetectedTone
	}
	if m.CallToAction != "" {
		out["call_to_action"] = m.CallToAction
	}
	if m.JSONStructured {
		out["json_structured"] = true
	}
	if m.HasSignature {
		out["has_signature"] = true
	}
	if m.Tier == TierFallback {
		out["fallback_used"] = true
	}
	if m.Tier == TierEmergency {
		out["emergency_fallback"] = true
	}
	if len(m.ConstraintFixes) > 0 {
		out["constraint_fixes"] = m.ConstraintFixes
	}
	return out
}

// Content is the finalized pipeline output. Ownership passes to the caller;
// the pipeline keeps no reference after returning it.
type Content struct {
	Subject  string // empty for SMS
	Body     string
	Channel  Channel
	Metadata Metadata
	HTML     string // optional rendering, empty when formatting was skipped or failed
}
