package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
	"github.com/plateful/api/internal/unsubscribe"
)

// UnsubscribeHandler processes opt-out links from campaign messages
type UnsubscribeHandler struct {
	db     *database.Postgres
	tokens *unsubscribe.TokenService
	logger *zap.Logger
}

// NewUnsubscribeHandler creates a new unsubscribe handler
func NewUnsubscribeHandler(db *database.Postgres, tokens *unsubscribe.TokenService, logger *zap.Logger) *UnsubscribeHandler {
	return &UnsubscribeHandler{db: db, tokens: tokens, logger: logger}
}

// Unsubscribe handles GET /unsubscribe?token=...
// The link is public; the signed token is the authorization.
func (h *UnsubscribeHandler) Unsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		middleware.BadRequest(c, "token is required")
		return
	}

	dinerID, channel, err := h.tokens.Verify(token)
	if err != nil {
		middleware.BadRequest(c, "invalid or expired unsubscribe link")
		return
	}

	column := "consent_email"
	if channel == models.ChannelSMS {
		column = "consent_sms"
	}

	tag, err := h.db.Pool().Exec(c.Request.Context(),
		"UPDATE diners SET "+column+" = false WHERE id = $1", dinerID)
	if err != nil {
		h.logger.Error("failed to record opt-out", zap.Error(err), zap.String("diner_id", dinerID.String()))
		middleware.InternalError(c)
		return
	}
	if tag.RowsAffected() == 0 {
		middleware.NotFound(c, "diner not found")
		return
	}

	h.logger.Info("diner opted out",
		zap.String("diner_id", dinerID.String()),
		zap.String("channel", string(channel)),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "You have been unsubscribed and will not receive further " + string(channel) + " offers.",
	})
}
