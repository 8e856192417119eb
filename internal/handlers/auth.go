package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/plateful/api/internal/database"
	"github.com/plateful/api/internal/middleware"
	"github.com/plateful/api/internal/models"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	db          *database.Postgres
	jwtSecret   string
	jwtAudience string
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *database.Postgres, jwtSecret, jwtAudience string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret, jwtAudience: jwtAudience, logger: logger}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response for auth endpoints
type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *models.User `json:"user"`
}

// Register creates a new user account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	userID := uuid.New()
	query := `
		INSERT INTO users (id, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	var user models.User
	user.ID = userID
	user.Email = req.Email
	user.FullName = req.FullName

	err = h.db.Pool().QueryRow(c.Request.Context(), query, userID, req.Email, req.FullName, string(hashedPassword)).
		Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		middleware.Conflict(c, "email already exists")
		return
	}

	token, refreshToken, expiresAt, err := h.generateTokens(&user)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         &user,
	})
}

// Login authenticates a user
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	query := `
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`

	var user models.User
	var passwordHash string
	err := h.db.Pool().QueryRow(c.Request.Context(), query, req.Email).
		Scan(&user.ID, &user.Email, &user.FullName, &passwordHash, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		middleware.Unauthorized(c, "invalid credentials")
		return
	}

	// Deleted accounts may not sign back in.
	var deleted bool
	_ = h.db.Pool().QueryRow(c.Request.Context(),
		`SELECT EXISTS (SELECT 1 FROM deleted_users WHERE user_id = $1)`, user.ID).Scan(&deleted)
	if deleted {
		middleware.Unauthorized(c, "account has been deleted")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		middleware.Unauthorized(c, "invalid credentials")
		return
	}

	token, refreshToken, expiresAt, err := h.generateTokens(&user)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.Error(err))
		middleware.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         &user,
	})
}

// GetCurrentUser returns the current authenticated user
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	query := `
		SELECT id, email, full_name, created_at, updated_at
		FROM users WHERE id = $1
	`

	var user models.User
	err := h.db.Pool().QueryRow(c.Request.Context(), query, userID).
		Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		middleware.NotFound(c, "user not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

// Status reports authentication state without requiring a token.
func (h *AuthHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"user_id":       nil,
			"email":         nil,
		})
		return
	}
	email, _ := middleware.GetEmail(c)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user_id":       userID.String(),
		"email":         email,
	})
}

func (h *AuthHandler) generateTokens(user *models.User) (string, string, time.Time, error) {
	expiresAt := time.Now().Add(24 * time.Hour)

	claims := middleware.Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID.String(),
		},
	}
	if h.jwtAudience != "" {
		claims.Audience = jwt.ClaimStrings{h.jwtAudience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	// Simple refresh token (in production, store in database)
	refreshToken := uuid.New().String()

	return tokenString, refreshToken, expiresAt, nil
}
