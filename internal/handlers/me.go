package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
)

// MeHandler serves the authenticated user's own resources.
type MeHandler struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewMeHandler(db *database.Postgres, logger *zap.Logger) *MeHandler {
	return &MeHandler{db: db, logger: logger}
}

// RestaurantUpsertRequest is the body for PUT /me/restaurant.
type RestaurantUpsertRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=255"`
	Cuisine      string `json:"cuisine" binding:"max=100"`
	City         string `json:"city" binding:"max=100"`
	State        string `json:"state" binding:"max=50"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	WebsiteURL   string `json:"website_url"`
	LogoURL      string `json:"logo_url"`
	Caption      string `json:"caption" binding:"max=500"`
}

// GetRestaurant returns the user's restaurant, or null when none exists yet.
func (h *MeHandler) GetRestaurant(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	query := `
		SELECT id, owner_user_id, name, cuisine, city, state,
		       contact_email, contact_phone, website_url, logo_url, caption,
		       created_at, updated_at
		FROM restaurants
		WHERE owner_user_id = $1
		LIMIT 1
	`

	var r models.Restaurant
	err := h.db.Pool().QueryRow(c.Request.Context(), query, userID).Scan(
		&r.ID, &r.OwnerUserID, &r.Name, &r.Cuisine, &r.City, &r.State,
		&r.ContactEmail, &r.ContactPhone, &r.WebsiteURL, &r.LogoURL, &r.Caption,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load restaurant", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, r)
}

// UpsertRestaurant creates or replaces the user's single restaurant.
func (h *MeHandler) UpsertRestaurant(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req RestaurantUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	query := `
		INSERT INTO restaurants (
			owner_user_id, name, cuisine, city, state,
			contact_email, contact_phone, website_url, logo_url, caption
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (owner_user_id) DO UPDATE SET
			name = EXCLUDED.name,
			cuisine = EXCLUDED.cuisine,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			website_url = EXCLUDED.website_url,
			logo_url = EXCLUDED.logo_url,
			caption = EXCLUDED.caption,
			updated_at = now()
		RETURNING id, owner_user_id, name, cuisine, city, state,
		          contact_email, contact_phone, website_url, logo_url, caption,
		          created_at, updated_at
	`

	var r models.Restaurant
	err := h.db.Pool().QueryRow(c.Request.Context(), query,
		userID, req.Name, req.Cuisine, req.City, req.State,
		req.ContactEmail, req.ContactPhone, req.WebsiteURL, req.LogoURL, req.Caption,
	).Scan(
		&r.ID, &r.OwnerUserID, &r.Name, &r.Cuisine, &r.City, &r.State,
		&r.ContactEmail, &r.ContactPhone, &r.WebsiteURL, &r.LogoURL, &r.Caption,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		h.logger.Error("failed to upsert restaurant", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, r)
}

// DeleteAccount removes all of the user's data and marks the account as
// deleted so the credentials cannot be used again.
func (h *MeHandler) DeleteAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}
	ctx := c.Request.Context()

	tx, err := h.db.Pool().Begin(ctx)
	if err != nil {
		h.logger.Error("failed to begin transaction", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer tx.Rollback(ctx)

	// Recipients first, then campaigns, then the restaurant.
	if _, err := tx.Exec(ctx, `
		DELETE FROM campaign_recipients
		WHERE campaign_id IN (
			SELECT c.id FROM campaigns c
			JOIN restaurants r ON c.restaurant_id = r.id
			WHERE r.owner_user_id = $1
		)
	`, userID); err != nil {
		h.logger.Error("failed to delete campaign recipients", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM campaigns
		WHERE restaurant_id IN (SELECT id FROM restaurants WHERE owner_user_id = $1)
	`, userID); err != nil {
		h.logger.Error("failed to delete campaigns", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	if _, err := tx.Exec(ctx, `DELETE FROM restaurants WHERE owner_user_id = $1`, userID); err != nil {
		h.logger.Error("failed to delete restaurants", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO deleted_users (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET deleted_at = now()
	`, userID); err != nil {
		h.logger.Error("failed to mark user deleted", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("failed to commit account deletion", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	h.logger.Info("account deleted", zap.String("user_id", userID.String()))
	c.JSON(http.StatusOK, gin.H{
		"message": "Account and all associated data deleted successfully. You will not be able to sign in again with this account.",
	})
}
