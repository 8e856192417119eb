package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
)

const restaurantColumns = `id, owner_user_id, name, cuisine, city, state,
       contact_email, contact_phone, website_url, logo_url, caption,
       created_at, updated_at`

// RestaurantHandler handles restaurant CRUD. Every operation is scoped to
// the authenticated owner.
type RestaurantHandler struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewRestaurantHandler(db *database.Postgres, logger *zap.Logger) *RestaurantHandler {
	return &RestaurantHandler{db: db, logger: logger}
}

// RestaurantListResponse is the paginated list payload.
type RestaurantListResponse struct {
	Total int                 `json:"total"`
	Items []models.Restaurant `json:"items"`
}

func scanRestaurant(row pgx.Row, r *models.Restaurant) error {
	return row.Scan(
		&r.ID, &r.OwnerUserID, &r.Name, &r.Cuisine, &r.City, &r.State,
		&r.ContactEmail, &r.ContactPhone, &r.WebsiteURL, &r.LogoURL, &r.Caption,
		&r.CreatedAt, &r.UpdatedAt,
	)
}

// Create inserts a restaurant for the authenticated user. One per owner.
func (h *RestaurantHandler) Create(c *gin.Context) {
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
		RETURNING ` + restaurantColumns

	var r models.Restaurant
	err := scanRestaurant(h.db.Pool().QueryRow(c.Request.Context(), query,
		userID, req.Name, req.Cuisine, req.City, req.State,
		req.ContactEmail, req.ContactPhone, req.WebsiteURL, req.LogoURL, req.Caption,
	), &r)
	if err != nil {
		h.logger.Error("failed to create restaurant", zap.Error(err))
		middleware.Conflict(c, "you already have a restaurant")
		return
	}

	c.JSON(http.StatusCreated, r)
}

// List returns the authenticated user's restaurants, paginated.
func (h *RestaurantHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	page, pageSize := pagination(c)
	ctx := c.Request.Context()

	var total int
	if err := h.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE owner_user_id = $1`, userID).Scan(&total); err != nil {
		h.logger.Error("failed to count restaurants", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	rows, err := h.db.Pool().Query(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("failed to list restaurants", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer rows.Close()

	items := make([]models.Restaurant, 0)
	for rows.Next() {
		var r models.Restaurant
		if err := scanRestaurant(rows, &r); err != nil {
			h.logger.Error("failed to scan restaurant", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		items = append(items, r)
	}

	c.JSON(http.StatusOK, RestaurantListResponse{Total: total, Items: items})
}

// Get returns one restaurant owned by the user.
func (h *RestaurantHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid restaurant id")
		return
	}

	var r models.Restaurant
	err = scanRestaurant(h.db.Pool().QueryRow(c.Request.Context(), `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE id = $1 AND owner_user_id = $2
	`, restaurantID, userID), &r)
	if err == pgx.ErrNoRows {
		middleware.NotFound(c, "restaurant not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load restaurant", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, r)
}

// Update replaces an owned restaurant's profile fields.
func (h *RestaurantHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid restaurant id")
		return
	}

	var req RestaurantUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	var r models.Restaurant
	err = scanRestaurant(h.db.Pool().QueryRow(c.Request.Context(), `
		UPDATE restaurants
		SET name = $3, cuisine = $4, city = $5, state = $6,
		    contact_email = $7, contact_phone = $8, website_url = $9,
		    logo_url = $10, caption = $11, updated_at = now()
		WHERE id = $1 AND owner_user_id = $2
		RETURNING `+restaurantColumns+`
	`, restaurantID, userID,
		req.Name, req.Cuisine, req.City, req.State,
		req.ContactEmail, req.ContactPhone, req.WebsiteURL, req.LogoURL, req.Caption,
	), &r)
	if err == pgx.ErrNoRows {
		middleware.NotFound(c, "restaurant not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update restaurant", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, r)
}

// Delete removes an owned restaurant. Campaigns cascade via foreign keys.
func (h *RestaurantHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	restaurantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		middleware.BadRequest(c, "invalid restaurant id")
		return
	}

	tag, err := h.db.Pool().Exec(c.Request.Context(),
		`DELETE FROM restaurants WHERE id = $1 AND owner_user_id = $2`, restaurantID, userID)
	if err != nil {
		h.logger.Error("failed to delete restaurant", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	if tag.RowsAffected() == 0 {
		middleware.NotFound(c, "restaurant not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "restaurant deleted"})
}

// pagination reads page/pageSize query params with the original defaults.
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}
