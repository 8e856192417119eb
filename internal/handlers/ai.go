package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/cache"
	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/eventbus"
	"github.com/plateful/api/internal/metrics"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/offer"
)

var tracer = otel.Tracer("github.com/plateful/api/internal/handlers")

// AIHandler serves the offer generation and audience advice endpoints.
type AIHandler struct {
	db       *database.Postgres
	writer   *offer.Writer
	advisor  *offer.AudienceAdvisor
	cache    *cache.OfferCache
	bus      *eventbus.Bus
	demoMode bool
	budget   time.Duration
	logger   *zap.Logger
}

func NewAIHandler(db *database.Postgres, writer *offer.Writer, advisor *offer.AudienceAdvisor,
	offerCache *cache.OfferCache, bus *eventbus.Bus, demoMode bool, budget time.Duration, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		db:       db,
		writer:   writer,
		advisor:  advisor,
		cache:    offerCache,
		bus:      bus,
		demoMode: demoMode,
		budget:   budget,
		logger:   logger,
	}
}

// OfferAPIRequest is the body for POST /ai/offer.
type OfferAPIRequest struct {
	Cuisine      string `json:"cuisine" binding:"required,min=1,max=100"`
	Tone         string `json:"tone" binding:"required"`
	Channel      string `json:"channel" binding:"required,oneof=email sms"`
	Goal         string `json:"goal" binding:"required,min=1,max=200"`
	Constraints  string `json:"constraints" binding:"max=500"`
	OutputFormat string `json:"output_format" binding:"omitempty,oneof=text json"`
	IncludeHTML  bool   `json:"include_html"`
}

// OfferAPIResponse is the unified offer payload.
type OfferAPIResponse struct {
	Channel     string                 `json:"channel"`
	Content     map[string]string      `json:"content"`
	HTMLContent string                 `json:"html_content,omitempty"`
	Preview     map[string]interface{} `json:"preview"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// AudienceAdviceAPIRequest is the body for POST /ai/audience-advice.
type AudienceAdviceAPIRequest struct {
	City    string `json:"city" binding:"required,min=1,max=100"`
	State   string `json:"state" binding:"required,min=2,max=50"`
	Cuisine string `json:"cuisine" binding:"required,min=1,max=100"`
	Daypart string `json:"daypart"`
}

// toneAliases maps common tone synonyms onto the supported set.
var toneAliases = map[string]string{
	"fun":      "playful",
	"serious":  "professional",
	"business": "professional",
	"relaxed":  "casual",
}

// daypartAliases normalizes time-of-day variants.
var daypartAliases = map[string]string{
	"morning":   "breakfast",
	"noon":      "lunch",
	"afternoon": "lunch",
	"evening":   "dinner",
	"night":     "late_night",
}

// GenerateOffer runs the three-tier generation pipeline for the caller's
// restaurant and returns the finished content with a rendering preview.
func (h *AIHandler) GenerateOffer(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GenerateOffer")
	defer span.End()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req OfferAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	tone := strings.ToLower(req.Tone)
	if alias, ok := toneAliases[tone]; ok {
		tone = alias
	}
	format := offer.OutputFormat(req.OutputFormat)
	if format == "" {
		format = offer.FormatText
	}

	details := h.restaurantDetails(ctx, userID)
	genReq := offer.Request{
		Cuisine:     req.Cuisine,
		Tone:        tone,
		Channel:     offer.Channel(req.Channel),
		Goal:        req.Goal,
		Constraints: req.Constraints,
		Restaurant:  details,
	}

	if err := genReq.Validate(); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	if h.cache != nil {
		key := cache.Key(genReq, format)
		if content, err := h.cache.Get(ctx, key); err == nil {
			metrics.OfferCacheHits.WithLabelValues("hit").Inc()
			c.JSON(http.StatusOK, h.buildResponse(req, content, userID, true))
			return
		}
		metrics.OfferCacheHits.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	var content *offer.Content
	if h.demoMode {
		// Demo mode skips the upstream entirely and serves the
		// deterministic emergency template.
		content = h.writer.GenerateEmergency(genReq)
	} else {
		genCtx, cancel := context.WithTimeout(ctx, h.budget)
		defer cancel()

		var err error
		content, err = h.writer.GenerateOffer(genCtx, genReq, format)
		if err != nil {
			if errors.Is(err, offer.ErrInvalidRequest) {
				middleware.BadRequest(c, err.Error())
				return
			}
			// The pipeline only errors on validation; anything else is
			// unexpected.
			h.logger.Error("offer generation failed", zap.Error(err))
			middleware.AIServiceUnavailable(c)
			return
		}
	}
	metrics.OfferGenerationDuration.WithLabelValues(req.Channel).Observe(time.Since(start).Seconds())
	metrics.OffersGenerated.WithLabelValues(req.Channel, string(content.Metadata.Tier)).Inc()

	if h.cache != nil {
		h.cache.Set(ctx, cache.Key(genReq, format), content)
	}
	h.bus.Publish(eventbus.SubjectOfferGenerated, gin.H{
		"user_id": userID.String(),
		"channel": req.Channel,
		"tier":    string(content.Metadata.Tier),
	})

	c.JSON(http.StatusOK, h.buildResponse(req, content, userID, false))
}

// AudienceAdvice suggests diner interests to target.
func (h *AIHandler) AudienceAdvice(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "AudienceAdvice")
	defer span.End()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req AudienceAdviceAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	daypart := strings.ToLower(req.Daypart)
	if alias, ok := daypartAliases[daypart]; ok {
		daypart = alias
	}

	advice := h.advisor.SuggestInterests(ctx, req.City, req.State, req.Cuisine, daypart)

	c.JSON(http.StatusOK, gin.H{
		"suggested_interests": advice.SuggestedInterests,
		"rationale":           advice.Rationale,
		"confidence_score":    advice.ConfidenceScore,
		"metadata": gin.H{
			"user_id":          userID.String(),
			"request_location": req.City + ", " + req.State,
			"request_cuisine":  req.Cuisine,
			"request_daypart":  daypart,
			"agent_used":       "audience_advisor",
		},
	})
}

// Health reports the availability of the generation subsystem.
func (h *AIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"offer_writer_available":     true,
		"audience_advisor_available": true,
		"upstream_configured":        h.writer.HasGenerator(),
		"demo_mode":                  h.demoMode,
	})
}

func (h *AIHandler) restaurantDetails(ctx context.Context, userID uuid.UUID) *offer.RestaurantDetails {
	var d offer.RestaurantDetails
	err := h.db.Pool().QueryRow(ctx, `
		SELECT name, city, contact_phone, contact_email, website_url
		FROM restaurants
		WHERE owner_user_id = $1
		LIMIT 1
	`, userID).Scan(&d.Name, &d.City, &d.Phone, &d.Email, &d.WebsiteURL)
	if err == pgx.ErrNoRows {
		return &offer.RestaurantDetails{Name: "Our Restaurant"}
	}
	if err != nil {
		h.logger.Warn("failed to load restaurant details", zap.Error(err))
		return &offer.RestaurantDetails{Name: "Our Restaurant"}
	}
	return &d
}

func (h *AIHandler) buildResponse(req OfferAPIRequest, content *offer.Content, userID uuid.UUID, cached bool) OfferAPIResponse {
	body := content.Body
	var contentMap map[string]string
	if content.Channel == offer.ChannelEmail {
		contentMap = map[string]string{"subject": content.Subject, "body": body}
	} else {
		contentMap = map[string]string{"body": body}
	}

	metadata := content.Metadata.ToMap()
	metadata["user_id"] = userID.String()
	metadata["request_cuisine"] = req.Cuisine
	metadata["request_tone"] = req.Tone
	metadata["request_goal"] = req.Goal
	metadata["cached"] = cached

	html := content.HTML
	if !req.IncludeHTML {
		html = ""
	}

	return OfferAPIResponse{
		Channel:     string(content.Channel),
		Content:     contentMap,
		HTMLContent: html,
		Preview:     buildPreview(content),
		Metadata:    metadata,
	}
}

// buildPreview summarizes length compliance, quality checks and a sample
// rendering for the UI.
func buildPreview(content *offer.Content) map[string]interface{} {
	body := content.Body
	lower := strings.ToLower(body)

	hasCTA := false
	for _, word := range []string{"reserve", "book", "visit", "order", "call", "try"} {
		if strings.Contains(lower, word) {
			hasCTA = true
			break
		}
	}

	paragraphs := 1
	if content.Channel == offer.ChannelEmail {
		paragraphs = 0
		for _, p := range strings.Split(body, "\n\n") {
			if strings.TrimSpace(p) != "" {
				paragraphs++
			}
		}
	}

	preview := map[string]interface{}{
		"channel": string(content.Channel),
		"length_validation": map[string]int{
			"email_subject_limit": offer.EmailSubjectLimit,
			"email_body_limit":    offer.EmailBodyLimit,
			"sms_limit":           offer.SMSLimit,
		},
		"quality_checks": map[string]interface{}{
			"has_firstname_token": content.Metadata.HasFirstNameToken,
			"processed":           content.Metadata.Processed,
			"has_call_to_action":  hasCTA,
		},
		"formatting": map[string]interface{}{
			"paragraph_count":  paragraphs,
			"line_break_count": strings.Count(body, "\n"),
		},
		"body":        body,
		"body_length": content.Metadata.BodyLength,
	}

	if content.Channel == offer.ChannelEmail {
		preview["subject"] = content.Subject
		preview["subject_length"] = content.Metadata.SubjectLength
		preview["subject_within_limit"] = content.Metadata.SubjectLength <= offer.EmailSubjectLimit
		preview["body_within_limit"] = content.Metadata.BodyLength <= offer.EmailBodyLimit
	} else {
		preview["body_within_limit"] = content.Metadata.BodyLength <= offer.SMSLimit
	}

	if strings.Contains(body, offer.FirstNameToken) {
		preview["body_personalized"] = strings.ReplaceAll(body, offer.FirstNameToken, "Alex")
	}
	if strings.Contains(content.Subject, offer.FirstNameToken) {
		preview["subject_personalized"] = strings.ReplaceAll(content.Subject, offer.FirstNameToken, "Alex")
	}

	return preview
}
