package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthcare-admin-server/internal/config"
	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Log: log}
}

// RegisterRequest represents the request body for user registration.
// Self-registration always creates a regular user.
type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	taken, err := emailTaken(db, req.Email, "")
	if err != nil {
		internalError(c, h.Log, err, "Failed to check email")
		return
	}
	if taken {
		utils.BadRequest(c, "User with this email already exists")
		return
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Role:        models.RoleUser,
	}
	if err := user.SetPassword(req.Password); err != nil {
		internalError(c, h.Log, err, "Failed to hash password")
		return
	}
	if err := db.Create(&user).Error; err != nil {
		internalError(c, h.Log, err, "Failed to create user")
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	err := h.DB.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.CheckPassword(req.Password)) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}
	if err != nil {
		internalError(c, h.Log, err, "Failed to load user")
		return
	}

	pair, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Sanitize(),
	})
}

// issueTokens signs a token pair, records the refresh token and sets the
// refresh cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (*utils.TokenPair, bool) {
	pair, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		internalError(c, h.Log, err, "Failed to generate tokens")
		return nil, false
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&record).Error; err != nil {
		internalError(c, h.Log, err, "Failed to store refresh token")
		return nil, false
	}

	h.setRefreshCookie(c, pair.RefreshToken, h.Cfg.JWTRefreshExpirationHours*60*60)
	return pair, true
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.Cfg.IsProduction(), true)
}

// RefreshTokenRequest carries the refresh token when the cookie is absent.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token for a new pair. The presented token
// is revoked, so each refresh token works once.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	claims, err := utils.ValidateToken(token, h.Cfg.JWTRefreshSecret, utils.RefreshToken)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	now := time.Now()

	// Revoke first with a guarded update so two concurrent refreshes with the
	// same token cannot both succeed.
	result := db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", utils.HashToken(token), claims.UserID, now).
		Update("revoked_at", now)
	if result.Error != nil {
		internalError(c, h.Log, result.Error, "Failed to revoke refresh token")
		return
	}
	if result.RowsAffected == 0 {
		utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		return
	}

	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "User no longer exists")
			return
		}
		internalError(c, h.Log, err, "Failed to load user")
		return
	}

	pair, ok := h.issueTokens(c, &user)
	if !ok {
		return
	}
	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// LogoutRequest optionally carries the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the refresh token and clears the cookie. Unknown or already
// revoked tokens are not an error.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindOptionalJSON(c, &req) {
		return
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookie)
	}

	if token != "" {
		err := h.DB.WithContext(c.Request.Context()).Model(&models.RefreshToken{}).
			Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(token)).
			Update("revoked_at", time.Now()).Error
		if err != nil {
			internalError(c, h.Log, err, "Failed to revoke refresh token")
			return
		}
	}

	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile returns the authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating the caller's
// profile. A password change requires the current password.
type UpdateProfileRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PhoneNumber     string `json:"phoneNumber"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=8"`
}

// UpdateProfile updates the authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.NewPassword != "" {
		if !user.CheckPassword(req.CurrentPassword) {
			utils.BadRequest(c, "Current password is incorrect")
			return
		}
		if err := user.SetPassword(req.NewPassword); err != nil {
			internalError(c, h.Log, err, "Failed to hash password")
			return
		}
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		internalError(c, h.Log, err, "Failed to update profile")
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}
	var user models.User
	err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "User profile not found")
		return nil, false
	}
	if err != nil {
		internalError(c, h.Log, err, "Failed to load user")
		return nil, false
	}
	return &user, true
}
