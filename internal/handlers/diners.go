package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
)

// DinerHandler serves the read-only diner directory used for audience
// targeting.
type DinerHandler struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewDinerHandler(db *database.Postgres, logger *zap.Logger) *DinerHandler {
	return &DinerHandler{db: db, logger: logger}
}

// DinerListResponse is the paginated diner payload.
type DinerListResponse struct {
	Total int            `json:"total"`
	Items []models.Diner `json:"items"`
}

// FilterOptionsResponse lists the distinct values available for filtering.
type FilterOptionsResponse struct {
	Interests       []string `json:"interests"`
	SeniorityLevels []string `json:"seniority_levels"`
	States          []string `json:"states"`
	Cities          []string `json:"cities"`
}

// List returns diners matching the query filters. Only diners who consented
// to at least one channel are visible; a channel filter narrows to diners
// reachable on that channel.
func (h *DinerHandler) List(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	page, pageSize := pagination(c)

	conditions := []string{}
	args := []interface{}{}

	switch c.Query("channel") {
	case "email":
		conditions = append(conditions, "consent_email = true AND email <> ''")
	case "sms":
		conditions = append(conditions, "consent_sms = true AND phone <> ''")
	default:
		conditions = append(conditions, "(consent_email = true OR consent_sms = true)")
	}

	if city := c.Query("city"); city != "" {
		args = append(args, "%"+city+"%")
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", len(args)))
	}
	if state := c.Query("state"); state != "" {
		args = append(args, "%"+state+"%")
		conditions = append(conditions, fmt.Sprintf("state ILIKE $%d", len(args)))
	}
	if interests := splitCSV(c.Query("interests")); len(interests) > 0 {
		args = append(args, interests)
		op := "&&"
		if c.DefaultQuery("match", "any") == "all" {
			op = "@>"
		}
		conditions = append(conditions, fmt.Sprintf("interests %s $%d", op, len(args)))
	}
	if seniorities := splitCSV(c.Query("seniority")); len(seniorities) > 0 {
		ors := make([]string, 0, len(seniorities))
		for _, s := range seniorities {
			args = append(args, "%"+s+"%")
			ors = append(ors, fmt.Sprintf("seniority ILIKE $%d", len(args)))
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	where := "WHERE " + strings.Join(conditions, " AND ")
	ctx := c.Request.Context()

	var total int
	if err := h.db.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM diners "+where, args...).Scan(&total); err != nil {
		h.logger.Error("failed to count diners", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, seniority, city, state, address_text,
		       interests, email, phone, consent_email, consent_sms, created_at
		FROM diners
		%s
		ORDER BY first_name, last_name, phone
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := h.db.Pool().Query(ctx, query, args...)
	if err != nil {
		h.logger.Error("failed to list diners", zap.Error(err))
		middleware.InternalError(c)
		return
	}
	defer rows.Close()

	items := make([]models.Diner, 0)
	for rows.Next() {
		var d models.Diner
		if err := rows.Scan(
			&d.ID, &d.FirstName, &d.LastName, &d.Seniority, &d.City, &d.State, &d.AddressText,
			&d.Interests, &d.Email, &d.Phone, &d.ConsentEmail, &d.ConsentSMS, &d.CreatedAt,
		); err != nil {
			h.logger.Error("failed to scan diner", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		items = append(items, d)
	}

	c.JSON(http.StatusOK, DinerListResponse{Total: total, Items: items})
}

// FilterOptions returns the distinct interests, seniority levels, states and
// cities present in the diner directory.
func (h *DinerHandler) FilterOptions(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}
	ctx := c.Request.Context()

	resp := FilterOptionsResponse{
		Interests:       []string{},
		SeniorityLevels: []string{},
		States:          []string{},
		Cities:          []string{},
	}

	queries := []struct {
		sql  string
		dest *[]string
	}{
		{`SELECT DISTINCT unnest(interests) AS v FROM diners
		  WHERE array_length(interests, 1) > 0 ORDER BY v`, &resp.Interests},
		{`SELECT DISTINCT seniority FROM diners WHERE seniority <> '' ORDER BY seniority`, &resp.SeniorityLevels},
		{`SELECT DISTINCT state FROM diners WHERE state <> '' ORDER BY state`, &resp.States},
		{`SELECT DISTINCT city FROM diners WHERE city <> '' ORDER BY city`, &resp.Cities},
	}

	for _, q := range queries {
		rows, err := h.db.Pool().Query(ctx, q.sql)
		if err != nil {
			h.logger.Error("failed to load filter options", zap.Error(err))
			middleware.InternalError(c)
			return
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				h.logger.Error("failed to scan filter option", zap.Error(err))
				middleware.InternalError(c)
				return
			}
			*q.dest = append(*q.dest, v)
		}
		rows.Close()
	}

	c.JSON(http.StatusOK, resp)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
