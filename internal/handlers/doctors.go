package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/utils"
)

// DoctorHandler manages the doctors that appointments are booked with.
type DoctorHandler struct {
	DB  *gorm.DB
	Log *logrus.Logger
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, log *logrus.Logger) *DoctorHandler {
	return &DoctorHandler{DB: db, Log: log}
}

// DoctorRequest is the body of the doctor create and update endpoints.
type DoctorRequest struct {
	Name            string `json:"name" binding:"required,max=150"`
	Specialization  string `json:"specialization" binding:"required,max=100"`
	Email           string `json:"email" binding:"omitempty,email"`
	PhoneNumber     string `json:"phoneNumber" binding:"max=30"`
	ExperienceYears int    `json:"experienceYears" binding:"min=0"`
	Active          *bool  `json:"active"`
}

func (r DoctorRequest) apply(doctor *models.Doctor) {
	doctor.Name = r.Name
	doctor.Specialization = r.Specialization
	doctor.Email = r.Email
	doctor.PhoneNumber = r.PhoneNumber
	doctor.ExperienceYears = r.ExperienceYears
	if r.Active != nil {
		doctor.Active = *r.Active
	}
}

// ListDoctors handles GET /doctors. Admins may pass ?all=true to include
// inactive doctors; ?specialization= filters.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context()).Order("name ASC")
	if c.Query("all") != "true" {
		query = query.Where("active = ?", true)
	}
	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("specialization = ?", spec)
	}

	var doctors []models.Doctor
	if err := query.Find(&doctors).Error; err != nil {
		internalError(c, h.Log, err, "Failed to fetch doctors")
		return
	}
	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetDoctor handles GET /doctors/:id.
func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctor, ok := h.loadDoctor(c)
	if !ok {
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor)
}

// CreateDoctor handles POST /doctors. New doctors are active unless the
// request says otherwise.
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req DoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor := models.Doctor{Active: true}
	req.apply(&doctor)

	if err := h.DB.WithContext(c.Request.Context()).Create(&doctor).Error; err != nil {
		internalError(c, h.Log, err, "Failed to create doctor")
		return
	}
	utils.Created(c, "Doctor created successfully", doctor)
}

// UpdateDoctor handles PUT /doctors/:id.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	var req DoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	doctor, ok := h.loadDoctor(c)
	if !ok {
		return
	}
	req.apply(doctor)

	if err := h.DB.WithContext(c.Request.Context()).Save(doctor).Error; err != nil {
		internalError(c, h.Log, err, "Failed to update doctor")
		return
	}
	utils.Success(c, "Doctor updated successfully", doctor)
}

// DeleteDoctor handles DELETE /doctors/:id. Doctors referenced by
// appointments are deactivated instead of removed.
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	doctor, ok := h.loadDoctor(c)
	if !ok {
		return
	}
	db := h.DB.WithContext(c.Request.Context())

	var refs int64
	if err := db.Model(&models.Appointment{}).Where("doctor_id = ?", doctor.ID).Count(&refs).Error; err != nil {
		internalError(c, h.Log, err, "Failed to check doctor appointments")
		return
	}
	if refs > 0 {
		if err := db.Model(doctor).Update("active", false).Error; err != nil {
			internalError(c, h.Log, err, "Failed to deactivate doctor")
			return
		}
		utils.Success(c, "Doctor has appointments and was deactivated", nil)
		return
	}

	if err := db.Delete(&models.Doctor{}, "id = ?", doctor.ID).Error; err != nil {
		internalError(c, h.Log, err, "Failed to delete doctor")
		return
	}
	utils.Success(c, "Doctor deleted successfully", nil)
}

func (h *DoctorHandler) loadDoctor(c *gin.Context) (*models.Doctor, bool) {
	var doctor models.Doctor
	err := h.DB.WithContext(c.Request.Context()).First(&doctor, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.NotFound(c, "Doctor not found")
		return nil, false
	}
	if err != nil {
		internalError(c, h.Log, err, "Failed to load doctor")
		return nil, false
	}
	return &doctor, true
}
