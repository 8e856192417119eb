package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/delivery"
	"github.com/plateful/api/internal/eventbus"
	"github.com/plateful/api/internal/metrics"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
	"github.com/plateful/api/internal/unsubscribe"
)

// CampaignHandler handles campaign creation, listing and delivery.
type CampaignHandler struct {
	db      *database.Postgres
	sender  delivery.Sender
	bus     *eventbus.Bus
	tokens  *unsubscribe.TokenService
	baseURL string
	logger  *zap.Logger
}

func NewCampaignHandler(db *database.Postgres, sender delivery.Sender, bus *eventbus.Bus,
	tokens *unsubscribe.TokenService, baseURL string, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{db: db, sender: sender, bus: bus, tokens: tokens, baseURL: baseURL, logger: logger}
}

// CampaignCreateRequest is the body for POST /campaigns.
type CampaignCreateRequest struct {
	Channel string                `json:"channel" binding:"required,oneof=email sms"`
	Name    string                `json:"name" binding:"required,min=1,max=255"`
	Subject string                `json:"subject"`
	Body    string                `json:"body" binding:"required,min=1"`
	Filters models.AudienceFilter `json:"filters"`
}

// CampaignPreview shows how one recipient will see the message.
type CampaignPreview struct {
	DinerID         string `json:"diner_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	RenderedMessage string `json:"rendered_message"`
}

// CampaignCreateResponse is the payload for campaign creation.
type CampaignCreateResponse struct {
	CampaignID   string            `json:"campaignId"`
	AudienceSize int               `json:"audienceSize"`
	Previews     []CampaignPreview `json:"previews"`
}

// CampaignListItem is one row in the campaign list.
type CampaignListItem struct {
	ID           string  `json:"id"`
	CreatedAt    string  `json:"created_at"`
	Channel      string  `json:"channel"`
	Name         string  `json:"name"`
	Subject      string  `json:"subject,omitempty"`
	Body         string  `json:"body"`
	Status       string  `json:"status"`
	AudienceSize int     `json:"audience_size"`
	SentCount    int     `json:"sent_count"`
	FailedCount  int     `json:"failed_count"`
	ClickRate    float64 `json:"click_rate"`
}

// CampaignDetail is the single-campaign payload with recipients.
type CampaignDetail struct {
	ID         string                   `json:"id"`
	CreatedAt  string                   `json:"created_at"`
	Channel    string                   `json:"channel"`
	Name       string                   `json:"name"`
	Status     string                   `json:"status"`
	Subject    string                   `json:"subject,omitempty"`
	Body       string                   `json:"body"`
	Filters    models.AudienceFilter    `json:"filters"`
	Recipients []map[string]interface{} `json:"recipients"`
}

type audienceMember struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Create builds the audience, inserts the campaign and its recipients with
// simulated delivery, and returns the first five previews.
func (h *CampaignHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req CampaignCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if req.Channel == "email" && strings.TrimSpace(req.Subject) == "" {
		middleware.BadRequest(c, "Email campaigns must have a subject")
		return
	}
	if req.Filters.Match == "" {
		req.Filters.Match = "any"
	}

	ctx := c.Request.Context()

	var restaurantID uuid.UUID
	err := h.db.Pool().QueryRow(ctx,
		`SELECT id FROM restaurants WHERE owner_user_id = $1 LIMIT 1`, userID).Scan(&restaurantID)
	if err != nil {
		middleware.BadRequest(c, "You must create a restaurant before creating campaigns")
		return
	}

	audience, err := h.queryAudience(c, req.Channel, req.Filters)
	if err != nil {
		h.logger.Error("failed to query audience", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if len(audience) == 0 {
		middleware.BadRequest(c, "No audience members match the specified filters")
		return
	}

	filtersJSON, _ := json.Marshal(req.Filters)

	tx, err := h.db.Pool().Begin(ctx)
	if err != nil {
		h.logger.Error("failed to begin transaction", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer tx.Rollback(ctx)

	campaignID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO campaigns (id, restaurant_id, channel, name, subject, body, audience_filter_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, campaignID, restaurantID, req.Channel, req.Name, req.Subject, req.Body, filtersJSON)
	if err != nil {
		h.logger.Error("failed to insert campaign", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	previews := make([]CampaignPreview, 0, 5)
	for i, diner := range audience {
		firstName := diner.FirstName
		if firstName == "" {
			firstName = "Friend"
		}
		rendered := renderMessage(req.Body, firstName)

		payload := map[string]interface{}{
			"channel":        req.Channel,
			"subject":        req.Subject,
			"body":           rendered,
			"recipient_name": strings.TrimSpace(diner.FirstName + " " + diner.LastName),
			"sent_at":        time.Now().UTC().Format(time.RFC3339),
		}
		payloadJSON, _ := json.Marshal(payload)

		_, err = tx.Exec(ctx, `
			INSERT INTO campaign_recipients (id, campaign_id, diner_id, delivery_status, preview_payload_json)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), campaignID, diner.ID, delivery.StatusSimulatedSent, payloadJSON)
		if err != nil {
			h.logger.Error("failed to insert recipient", zap.Error(err))
			middleware.InternalError(c)
			return
		}

		if i < 5 {
			previews = append(previews, CampaignPreview{
				DinerID:         diner.ID.String(),
				FirstName:       diner.FirstName,
				LastName:        diner.LastName,
				Email:           diner.Email,
				Phone:           diner.Phone,
				RenderedMessage: rendered,
			})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("failed to commit campaign", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	h.bus.Publish(eventbus.SubjectCampaignCreated, gin.H{
		"campaign_id":   campaignID.String(),
		"restaurant_id": restaurantID.String(),
		"channel":       req.Channel,
		"audience_size": len(audience),
	})

	c.JSON(http.StatusOK, CampaignCreateResponse{
		CampaignID:   campaignID.String(),
		AudienceSize: len(audience),
		Previews:     previews,
	})
}

// List returns the user's campaigns with delivery aggregates and a simulated
// click-through rate.
func (h *CampaignHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	rows, err := h.db.Pool().Query(c.Request.Context(), `
		SELECT
			c.id,
			c.created_at,
			c.channel,
			c.name,
			c.subject,
			c.body,
			c.status,
			COUNT(cr.id) AS audience_size,
			COUNT(CASE WHEN cr.delivery_status IN ('simulated_sent', 'sent') THEN 1 END) AS sent_count,
			COUNT(CASE WHEN cr.delivery_status IN ('simulated_failed', 'failed') THEN 1 END) AS failed_count
		FROM campaigns c
		JOIN restaurants r ON r.id = c.restaurant_id
		LEFT JOIN campaign_recipients cr ON cr.campaign_id = c.id
		WHERE r.owner_user_id = $1
		GROUP BY c.id, c.created_at, c.channel, c.name, c.subject, c.body, c.status
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		h.logger.Error("failed to list campaigns", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer rows.Close()

	items := make([]CampaignListItem, 0)
	for rows.Next() {
		var (
			id        uuid.UUID
			createdAt time.Time
			item      CampaignListItem
		)
		if err := rows.Scan(&id, &createdAt, &item.Channel, &item.Name, &item.Subject,
			&item.Body, &item.Status, &item.AudienceSize, &item.SentCount, &item.FailedCount); err != nil {
			h.logger.Error("failed to scan campaign", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		item.ID = id.String()
		item.CreatedAt = createdAt.Format(time.RFC3339)
		if item.Name == "" {
			item.Name = item.Subject
		}
		// Simulated 15% CTR for the demo dashboard.
		item.ClickRate = float64(item.SentCount) * 0.15
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

// Get returns campaign details with the first 25 recipients.
func (h *CampaignHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid campaign id")
		return
	}
	ctx := c.Request.Context()

	var (
		detail      CampaignDetail
		id          uuid.UUID
		createdAt   time.Time
		filtersJSON []byte
	)
	err = h.db.Pool().QueryRow(ctx, `
		SELECT c.id, c.created_at, c.channel, c.name, c.status, c.subject, c.body, c.audience_filter_json
		FROM campaigns c
		JOIN restaurants r ON r.id = c.restaurant_id
		WHERE c.id = $1 AND r.owner_user_id = $2
	`, campaignID, userID).Scan(&id, &createdAt, &detail.Channel, &detail.Name,
		&detail.Status, &detail.Subject, &detail.Body, &filtersJSON)
	if err == pgx.ErrNoRows {
		middleware.NotFound(c, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load campaign", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	detail.ID = id.String()
	detail.CreatedAt = createdAt.Format(time.RFC3339)
	if len(filtersJSON) > 0 {
		_ = json.Unmarshal(filtersJSON, &detail.Filters)
	}

	rows, err := h.db.Pool().Query(ctx, `
		SELECT cr.diner_id, cr.delivery_status, cr.preview_payload_json,
		       d.first_name, d.last_name, d.email, d.phone
		FROM campaign_recipients cr
		JOIN diners d ON d.id = cr.diner_id
		WHERE cr.campaign_id = $1
		ORDER BY cr.id
		LIMIT 25
	`, campaignID)
	if err != nil {
		h.logger.Error("failed to load recipients", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer rows.Close()

	detail.Recipients = make([]map[string]interface{}, 0)
	for rows.Next() {
		var (
			dinerID                           uuid.UUID
			status, first, last, email, phone string
			payloadJSON                       []byte
		)
		if err := rows.Scan(&dinerID, &status, &payloadJSON, &first, &last, &email, &phone); err != nil {
			h.logger.Error("failed to scan recipient", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		payload := map[string]interface{}{}
		if len(payloadJSON) > 0 {
			_ = json.Unmarshal(payloadJSON, &payload)
		}
		detail.Recipients = append(detail.Recipients, map[string]interface{}{
			"diner_id":        dinerID.String(),
			"first_name":      first,
			"last_name":       last,
			"email":           email,
			"phone":           phone,
			"delivery_status": status,
			"preview_payload": payload,
		})
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateStatus switches a campaign between active, paused and stopped.
func (h *CampaignHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid campaign id")
		return
	}

	var body struct {
		Status models.CampaignStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Status.Valid() {
		middleware.BadRequest(c, "Status must be 'active', 'paused', or 'stopped'")
		return
	}

	tag, err := h.db.Pool().Exec(c.Request.Context(), `
		UPDATE campaigns c
		SET status = $3, updated_at = now()
		FROM restaurants r
		WHERE c.id = $1 AND r.id = c.restaurant_id AND r.owner_user_id = $2
	`, campaignID, userID, body.Status)
	if err != nil {
		h.logger.Error("failed to update campaign status", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if tag.RowsAffected() == 0 {
		middleware.NotFound(c, "campaign not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign status updated to " + string(body.Status)})
}

// Delete removes a campaign and its recipients.
func (h *CampaignHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid campaign id")
		return
	}
	ctx := c.Request.Context()

	var owned uuid.UUID
	err = h.db.Pool().QueryRow(ctx, `
		SELECT c.id FROM campaigns c
		JOIN restaurants r ON r.id = c.restaurant_id
		WHERE c.id = $1 AND r.owner_user_id = $2
	`, campaignID, userID).Scan(&owned)
	if err != nil {
		middleware.NotFound(c, "campaign not found")
		return
	}

	tx, err := h.db.Pool().Begin(ctx)
	if err != nil {
		h.logger.Error("failed to begin transaction", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer tx.Rollback(ctx)

	// Recipients first (foreign key constraint).
	if _, err := tx.Exec(ctx, `DELETE FROM campaign_recipients WHERE campaign_id = $1`, campaignID); err != nil {
		h.logger.Error("failed to delete recipients", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if _, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, campaignID); err != nil {
		h.logger.Error("failed to delete campaign", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("failed to commit deletion", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// Send delivers the campaign to its recipients through the configured sender
// and records per-recipient outcomes.
func (h *CampaignHandler) Send(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid campaign id")
		return
	}
	ctx := c.Request.Context()

	var (
		channel, subject, body, status string
	)
	err = h.db.Pool().QueryRow(ctx, `
		SELECT c.channel, c.subject, c.body, c.status
		FROM campaigns c
		JOIN restaurants r ON r.id = c.restaurant_id
		WHERE c.id = $1 AND r.owner_user_id = $2
	`, campaignID, userID).Scan(&channel, &subject, &body, &status)
	if err == pgx.ErrNoRows {
		middleware.NotFound(c, "campaign not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load campaign", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if status != string(models.CampaignStatusActive) {
		middleware.BadRequest(c, "only active campaigns can be sent")
		return
	}

	rows, err := h.db.Pool().Query(ctx, `
		SELECT cr.id, d.id, d.first_name, d.last_name, d.email, d.phone,
		       d.consent_email, d.consent_sms
		FROM campaign_recipients cr
		JOIN diners d ON d.id = cr.diner_id
		WHERE cr.campaign_id = $1
	`, campaignID)
	if err != nil {
		h.logger.Error("failed to load recipients", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	type target struct {
		recipientID uuid.UUID
		diner       models.Diner
	}
	targets := make([]target, 0)
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.recipientID, &t.diner.ID, &t.diner.FirstName, &t.diner.LastName,
			&t.diner.Email, &t.diner.Phone, &t.diner.ConsentEmail, &t.diner.ConsentSMS); err != nil {
			rows.Close()
			h.logger.Error("failed to scan recipient", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		targets = append(targets, t)
	}
	rows.Close()

	ch := models.Channel(channel)
	counts := map[string]int{}
	for _, t := range targets {
		firstName := t.diner.FirstName
		if firstName == "" {
			firstName = "Friend"
		}
		renderedBody := renderMessage(body, firstName)
		if ch == models.ChannelEmail && h.tokens != nil {
			link := h.baseURL + "/api/v1/unsubscribe?token=" + h.tokens.Generate(t.diner.ID, ch)
			renderedBody += "\n\nUnsubscribe: " + link
		}
		res := h.sender.Send(ctx, t.diner, ch, renderMessage(subject, firstName), renderedBody)
		counts[res.Status]++
		metrics.DeliveriesRecorded.WithLabelValues(channel, res.Status).Inc()

		if _, err := h.db.Pool().Exec(ctx,
			`UPDATE campaign_recipients SET delivery_status = $2 WHERE id = $1`,
			t.recipientID, res.Status); err != nil {
			h.logger.Error("failed to record delivery", zap.Error(err))
		}
	}

	result := "sent"
	if counts[delivery.StatusFailed] > 0 && counts[delivery.StatusSent]+counts[delivery.StatusSimulatedSent] == 0 {
		result = "failed"
	}
	metrics.CampaignSends.WithLabelValues(channel, result).Inc()

	// Send outcomes go through the JetStream store so they survive restarts
	// and show up in the events listing.
	if err := h.bus.Append(eventbus.SubjectCampaignSent, gin.H{
		"campaign_id": campaignID.String(),
		"channel":     channel,
		"counts":      counts,
	}); err != nil {
		h.logger.Warn("campaign send event not persisted", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"campaignId": campaignID.String(),
		"recipients": len(targets),
		"counts":     counts,
	})
}

// Events lists the durable campaign events retained in the JetStream store.
func (h *CampaignHandler) Events(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	events, err := h.bus.History("campaigns.>")
	if err != nil {
		h.logger.Warn("event history unavailable", zap.Error(err))
		middleware.RespondError(c, http.StatusServiceUnavailable,
			"EVENT_STORE_UNAVAILABLE", "Campaign event history is unavailable")
		return
	}
	if events == nil {
		events = []eventbus.Event{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func (h *CampaignHandler) queryAudience(c *gin.Context, channel string, f models.AudienceFilter) ([]audienceMember, error) {
	conditions := []string{}
	args := []interface{}{}

	if channel == "email" {
		conditions = append(conditions, "consent_email = true AND email <> ''")
	} else {
		conditions = append(conditions, "consent_sms = true AND phone <> ''")
	}
	if f.City != "" {
		args = append(args, "%"+f.City+"%")
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", len(args)))
	}
	if f.State != "" {
		args = append(args, strings.ToUpper(f.State))
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}
	if len(f.Interests) > 0 {
		args = append(args, f.Interests)
		op := "&&"
		if f.Match == "all" {
			op = "@>"
		}
		conditions = append(conditions, fmt.Sprintf("interests %s $%d", op, len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, email, phone
		FROM diners
		WHERE %s
		ORDER BY phone
	`, strings.Join(conditions, " AND "))

	rows, err := h.db.Pool().Query(c.Request.Context(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]audienceMember, 0)
	for rows.Next() {
		var m audienceMember
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.Phone); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// renderMessage substitutes the personalization token in all its casings.
func renderMessage(message, firstName string) string {
	message = strings.ReplaceAll(message, "{FirstName}", firstName)
	message = strings.ReplaceAll(message, "{firstname}", firstName)
	message = strings.ReplaceAll(message, "{FIRSTNAME}", strings.ToUpper(firstName))
	return message
}
