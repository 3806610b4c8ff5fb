package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/scheduling"
	"healthcare-admin-server/internal/utils"
)

// AppointmentService is the scheduling core as seen by the HTTP layer.
type AppointmentService interface {
	Book(ctx context.Context, caller scheduling.Identity, req scheduling.BookRequest) (*scheduling.AppointmentView, error)
	ListMine(ctx context.Context, caller scheduling.Identity) ([]scheduling.AppointmentView, error)
	Cancel(ctx context.Context, caller scheduling.Identity, id, reason string) (*scheduling.AppointmentView, error)
	Get(ctx context.Context, caller scheduling.Identity, id string) (*scheduling.AppointmentView, error)
	List(ctx context.Context, caller scheduling.Identity, params scheduling.ListParams) (*scheduling.AppointmentPage, error)
	Approve(ctx context.Context, caller scheduling.Identity, id, adminNote string) (*scheduling.AppointmentView, error)
	Reject(ctx context.Context, caller scheduling.Identity, id, adminNote string) (*scheduling.AppointmentView, error)
	UpdateStatus(ctx context.Context, caller scheduling.Identity, id, status, adminNote string) (*scheduling.AppointmentView, error)
}

// AppointmentHandler exposes the scheduling core over HTTP. Authorization is
// decided by the core, not by route middleware.
type AppointmentHandler struct {
	Service AppointmentService
	Log     *logrus.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service AppointmentService, log *logrus.Logger) *AppointmentHandler {
	return &AppointmentHandler{Service: service, Log: log}
}

// BookAppointmentRequest is the body of POST /appointments.
type BookAppointmentRequest struct {
	DoctorID        string `json:"doctors_id"`
	Date            string `json:"date"`
	Reason          string `json:"reason"`
	AppointmentType string `json:"appointmentType"`
}

// CancelAppointmentRequest is the optional body of PATCH /appointments/:id/cancel.
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// DecisionRequest is the optional body of the approve and reject endpoints.
type DecisionRequest struct {
	AdminNote string `json:"adminNote"`
}

// UpdateStatusRequest is the body of PUT /appointments/:id.
type UpdateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"adminNote"`
}

// ListAppointmentsQuery holds the admin listing query parameters.
type ListAppointmentsQuery struct {
	Status    string `form:"status"`
	DoctorID  string `form:"doctorId"`
	UserID    string `form:"userId"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

func (h *AppointmentHandler) caller(c *gin.Context) (scheduling.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
	}
	return identity, ok
}

// Book handles POST /appointments.
func (h *AppointmentHandler) Book(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req BookAppointmentRequest
	if !utils.BindOptionalJSON(c, &req) {
		return
	}

	booking := scheduling.BookRequest{
		DoctorID:        req.DoctorID,
		Reason:          req.Reason,
		AppointmentType: req.AppointmentType,
	}
	if req.Date != "" {
		date, err := utils.ParseDate(req.Date)
		if err != nil {
			utils.BadRequest(c, "Invalid appointment date")
			return
		}
		booking.Date = date
	}

	view, err := h.Service.Book(c.Request.Context(), caller, booking)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", view)
}

// ListMine handles GET /appointments/my-appointments.
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	views, err := h.Service.ListMine(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", views)
}

// Cancel handles PATCH /appointments/:id/cancel.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if !utils.BindOptionalJSON(c, &req) {
		return
	}
	view, err := h.Service.Cancel(c.Request.Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", view)
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	view, err := h.Service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", view)
}

// List handles GET /appointments.
func (h *AppointmentHandler) List(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var query ListAppointmentsQuery
	if !utils.BindQuery(c, &query) {
		return
	}
	page, err := h.Service.List(c.Request.Context(), caller, scheduling.ListParams{
		Status:    query.Status,
		DoctorID:  query.DoctorID,
		UserID:    query.UserID,
		Page:      query.Page,
		Limit:     query.Limit,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", page)
}

// Approve handles PATCH /appointments/:id/approve.
func (h *AppointmentHandler) Approve(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if !utils.BindOptionalJSON(c, &req) {
		return
	}
	view, err := h.Service.Approve(c.Request.Context(), caller, c.Param("id"), req.AdminNote)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment approved successfully", view)
}

// Reject handles PATCH /appointments/:id/reject.
func (h *AppointmentHandler) Reject(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if !utils.BindOptionalJSON(c, &req) {
		return
	}
	view, err := h.Service.Reject(c.Request.Context(), caller, c.Param("id"), req.AdminNote)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment rejected successfully", view)
}

// UpdateStatus handles PUT /appointments/:id.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	view, err := h.Service.UpdateStatus(c.Request.Context(), caller, c.Param("id"), req.Status, req.AdminNote)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", view)
}
