package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/utils"
)

// UserHandler handles admin management of user accounts.
type UserHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, log *logrus.Logger) *UserHandler {
	return &UserHandler{DB: db, Log: log}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=user admin"`
	PhoneNumber string `json:"phoneNumber"`
}

// CreateUser handles POST /users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	taken, err := emailTaken(h.DB.WithContext(c.Request.Context()), req.Email, "")
	if err != nil {
		internalError(c, h.Log, err, "Failed to check email")
		return
	}
	if taken {
		utils.BadRequest(c, "User with this email already exists")
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		utils.BadRequest(c, "Invalid role")
		return
	}
	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Role:        role,
		PhoneNumber: req.PhoneNumber,
	}
	if err := user.SetPassword(req.Password); err != nil {
		internalError(c, h.Log, err, "Failed to hash password")
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		internalError(c, h.Log, err, "Failed to create user")
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles GET /users, optionally filtered by ?role=.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context()).Order("created_at DESC")
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			utils.BadRequest(c, "Invalid role")
			return
		}
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		internalError(c, h.Log, err, "Failed to fetch users")
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i := range users {
		sanitized[i] = users[i].Sanitize()
	}
	utils.Success(c, "Users fetched successfully", sanitized)
}

// GetUserByID handles GET /users/:id.
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for updating a user by an admin.
type UpdateUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email" binding:"omitempty,email"`
	Role        string `json:"role" binding:"omitempty,oneof=user admin"`
	PhoneNumber string `json:"phoneNumber"`
}

// UpdateUser handles PUT /users/:id. Empty fields are left unchanged.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.loadUser(c)
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
	if req.Email != "" && req.Email != user.Email {
		taken, err := emailTaken(h.DB.WithContext(c.Request.Context()), req.Email, user.ID)
		if err != nil {
			internalError(c, h.Log, err, "Failed to check email")
			return
		}
		if taken {
			utils.BadRequest(c, "New email is already in use")
			return
		}
		user.Email = req.Email
	}
	if req.Role != "" {
		role, ok := models.ParseRole(req.Role)
		if !ok {
			utils.BadRequest(c, "Invalid role")
			return
		}
		if callerID, _ := middleware.GetUserIDFromContext(c); callerID == user.ID && role != models.RoleAdmin {
			utils.BadRequest(c, "Admins cannot remove their own admin role")
			return
		}
		user.Role = role
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		internalError(c, h.Log, err, "Failed to update user")
		return
	}
	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles DELETE /users/:id. Users with appointments are kept so
// the appointment history stays resolvable. Deleting a user revokes every
// session they hold.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	callerID, _ := middleware.GetUserIDFromContext(c)
	if callerID == user.ID {
		utils.BadRequest(c, "Admins cannot delete their own account")
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var refs int64
	if err := db.Model(&models.Appointment{}).Where("user_id = ?", user.ID).Count(&refs).Error; err != nil {
		internalError(c, h.Log, err, "Failed to check user appointments")
		return
	}
	if refs > 0 {
		utils.BadRequest(c, "User has appointments and cannot be deleted")
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		internalError(c, h.Log, err, "Failed to delete user")
		return
	}

	h.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"admin_id": callerID,
	}).Info("User deleted")
	utils.Success(c, "User deleted successfully", nil)
}

func (h *UserHandler) loadUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "User not found")
		return nil, false
	}
	if err != nil {
		internalError(c, h.Log, err, "Failed to load user")
		return nil, false
	}
	return &user, true
}

// emailTaken reports whether another user (not excludeID) uses email.
func emailTaken(db *gorm.DB, email, excludeID string) (bool, error) {
	query := db.Model(&models.User{}).Where("email = ?", email)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
