package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/utils"
)

const publicFeedbackLimit = 50

// FeedbackHandler handles service feedback and its moderation.
type FeedbackHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(db *gorm.DB, log *logrus.Logger) *FeedbackHandler {
	return &FeedbackHandler{DB: db, Log: log}
}

// SubmitFeedbackRequest is the body of POST /feedback.
type SubmitFeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// SubmitFeedback stores a pending feedback entry for the caller.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	feedback := models.Feedback{
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
		Status:  models.FeedbackPending,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&feedback).Error; err != nil {
		internalError(c, h.Log, err, "Failed to store feedback")
		return
	}
	utils.Created(c, "Feedback submitted for review", feedback)
}

// GetMyFeedback lists the caller's own feedback in every status.
func (h *FeedbackHandler) GetMyFeedback(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	var entries []models.Feedback
	err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		internalError(c, h.Log, err, "Failed to fetch feedback")
		return
	}
	utils.Success(c, "Feedback fetched successfully", entries)
}

// PublicFeedback is an approved entry as shown to visitors.
type PublicFeedback struct {
	ID         string    `json:"id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PublicFeedbackResponse is the body of GET /feedback/public.
type PublicFeedbackResponse struct {
	Feedback      []PublicFeedback `json:"feedback"`
	AverageRating float64          `json:"averageRating"`
	Count         int64            `json:"count"`
}

// GetPublicFeedback returns recent approved feedback and rating statistics.
func (h *FeedbackHandler) GetPublicFeedback(c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())

	var stats struct {
		Average float64
		Count   int64
	}
	err := db.Model(&models.Feedback{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("status = ?", models.FeedbackApproved).
		Scan(&stats).Error
	if err != nil {
		internalError(c, h.Log, err, "Failed to compute rating")
		return
	}

	var entries []models.Feedback
	err = db.Preload("User").
		Where("status = ?", models.FeedbackApproved).
		Order("created_at DESC").
		Limit(publicFeedbackLimit).
		Find(&entries).Error
	if err != nil {
		internalError(c, h.Log, err, "Failed to fetch feedback")
		return
	}

	public := make([]PublicFeedback, len(entries))
	for i, f := range entries {
		// Visitors see first names only.
		public[i] = PublicFeedback{
			ID:         f.ID,
			Rating:     f.Rating,
			Comment:    f.Comment,
			AuthorName: f.User.FirstName,
			CreatedAt:  f.CreatedAt,
		}
	}
	utils.Success(c, "Feedback fetched successfully", PublicFeedbackResponse{
		Feedback:      public,
		AverageRating: stats.Average,
		Count:         stats.Count,
	})
}

// ListFeedback lists all feedback for moderation, optionally by ?status=.
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context()).Order("created_at DESC")
	if status := c.Query("status"); status != "" && status != "all" {
		parsed, ok := parseFeedbackStatus(status)
		if !ok {
			utils.BadRequest(c, "Invalid feedback status")
			return
		}
		query = query.Where("status = ?", parsed)
	}

	var entries []models.Feedback
	if err := query.Find(&entries).Error; err != nil {
		internalError(c, h.Log, err, "Failed to fetch feedback")
		return
	}
	utils.Success(c, "Feedback fetched successfully", entries)
}

// ModerateFeedbackRequest is the body of PATCH /feedback/:id/moderate.
type ModerateFeedbackRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
	Note   string `json:"note"`
}

// ModerateFeedback approves or rejects a feedback entry.
func (h *FeedbackHandler) ModerateFeedback(c *gin.Context) {
	var req ModerateFeedbackRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	status, ok := parseFeedbackStatus(req.Status)
	if !ok || status == models.FeedbackPending {
		utils.BadRequest(c, "Invalid feedback status")
		return
	}
	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var feedback models.Feedback
	err := db.First(&feedback, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Feedback not found")
		return
	}
	if err != nil {
		internalError(c, h.Log, err, "Failed to load feedback")
		return
	}

	now := time.Now().UTC()
	feedback.Status = status
	feedback.ModerationNote = req.Note
	feedback.ModeratedBy = &adminID
	feedback.ModeratedAt = &now

	err = db.Model(&feedback).Select("status", "moderation_note", "moderated_by", "moderated_at").Updates(&feedback).Error
	if err != nil {
		internalError(c, h.Log, err, "Failed to moderate feedback")
		return
	}

	h.Log.WithFields(logrus.Fields{
		"feedback_id": feedback.ID,
		"status":      feedback.Status,
		"admin_id":    adminID,
	}).Info("Feedback moderated")
	utils.Success(c, "Feedback moderated successfully", feedback)
}

func parseFeedbackStatus(s string) (models.FeedbackStatus, bool) {
	switch status := models.FeedbackStatus(s); status {
	case models.FeedbackPending, models.FeedbackApproved, models.FeedbackRejected:
		return status, true
	}
	return "", false
}
