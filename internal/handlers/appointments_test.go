package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"healthcare-admin-server/internal/logger"
	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
	"healthcare-admin-server/internal/scheduling"
)

type mockAppointmentService struct {
	mock.Mock
}

func (m *mockAppointmentService) Book(ctx context.Context, caller scheduling.Identity, req scheduling.BookRequest) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, req)
	return viewArg(args, 0), args.Error(1)
}

func (m *mockAppointmentService) ListMine(ctx context.Context, caller scheduling.Identity) ([]scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller)
	views, _ := args.Get(0).([]scheduling.AppointmentView)
	return views, args.Error(1)
}

func (m *mockAppointmentService) Cancel(ctx context.Context, caller scheduling.Identity, id, reason string) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, id, reason)
	return viewArg(args, 0), args.Error(1)
}

func (m *mockAppointmentService) Get(ctx context.Context, caller scheduling.Identity, id string) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, id)
	return viewArg(args, 0), args.Error(1)
}

func (m *mockAppointmentService) List(ctx context.Context, caller scheduling.Identity, params scheduling.ListParams) (*scheduling.AppointmentPage, error) {
	args := m.Called(ctx, caller, params)
	page, _ := args.Get(0).(*scheduling.AppointmentPage)
	return page, args.Error(1)
}

func (m *mockAppointmentService) Approve(ctx context.Context, caller scheduling.Identity, id, adminNote string) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, id, adminNote)
	return viewArg(args, 0), args.Error(1)
}

func (m *mockAppointmentService) Reject(ctx context.Context, caller scheduling.Identity, id, adminNote string) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, id, adminNote)
	return viewArg(args, 0), args.Error(1)
}

func (m *mockAppointmentService) UpdateStatus(ctx context.Context, caller scheduling.Identity, id, status, adminNote string) (*scheduling.AppointmentView, error) {
	args := m.Called(ctx, caller, id, status, adminNote)
	return viewArg(args, 0), args.Error(1)
}

func viewArg(args mock.Arguments, i int) *scheduling.AppointmentView {
	view, _ := args.Get(i).(*scheduling.AppointmentView)
	return view
}

var (
	patient = scheduling.Identity{SubjectID: "user-1", Role: models.RoleUser}
	admin   = scheduling.Identity{SubjectID: "admin-1", Role: models.RoleAdmin}
)

// setupAppointmentRouter mounts the handler behind a stub that injects the
// given identity in place of JWT verification.
func setupAppointmentRouter(svc AppointmentService, caller scheduling.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAppointmentHandler(svc, logger.Discard())

	g := r.Group("/appointments", func(c *gin.Context) {
		if caller.SubjectID != "" {
			middleware.SetIdentity(c, caller.SubjectID, caller.Role)
		}
	})
	g.POST("", h.Book)
	g.GET("/my-appointments", h.ListMine)
	g.PATCH("/:id/cancel", h.Cancel)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/approve", h.Approve)
	g.PATCH("/:id/reject", h.Reject)
	g.PUT("/:id", h.UpdateStatus)
	return r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func sampleView(status models.AppointmentStatus) *scheduling.AppointmentView {
	apt := models.Appointment{
		DoctorID: "doc-1",
		UserID:   patient.SubjectID,
		Date:     time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:   status,
	}
	apt.ID = "apt-1"
	return &scheduling.AppointmentView{
		Appointment: apt,
		Doctor:      &scheduling.DoctorSummary{ID: "doc-1", Name: "Dr. Grey"},
	}
}

func TestBook_Created(t *testing.T) {
	svc := new(mockAppointmentService)
	want := scheduling.BookRequest{
		DoctorID:        "doc-1",
		Date:            time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
		Reason:          "Checkup",
		AppointmentType: "follow-up",
	}
	svc.On("Book", mock.Anything, patient, want).Return(sampleView(models.StatusPending), nil)

	w := perform(setupAppointmentRouter(svc, patient), http.MethodPost, "/appointments",
		`{"doctors_id":"doc-1","date":"2030-01-01T10:00:00Z","reason":"Checkup","appointmentType":"follow-up"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.Contains(t, string(env.Data), `"status":"pending"`)
	assert.Contains(t, string(env.Data), `"name":"Dr. Grey"`)
	svc.AssertExpectations(t)
}

func TestBook_InvalidDate(t *testing.T) {
	svc := new(mockAppointmentService)

	w := perform(setupAppointmentRouter(svc, patient), http.MethodPost, "/appointments",
		`{"doctors_id":"doc-1","date":"soon"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Book", mock.Anything, mock.Anything, mock.Anything)
}

func TestBook_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: date must be in the future", scheduling.ErrValidation), http.StatusBadRequest},
		{"conflict", fmt.Errorf("%w: slot taken", scheduling.ErrConflict), http.StatusBadRequest},
		{"doctor missing", fmt.Errorf("%w: doctor not found", scheduling.ErrNotFound), http.StatusNotFound},
		{"wrong role", fmt.Errorf("%w: book is only available to users", scheduling.ErrForbidden), http.StatusForbidden},
		{"store down", errors.New("dial tcp 10.0.0.5:3306: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAppointmentService)
			svc.On("Book", mock.Anything, patient, mock.Anything).Return(nil, tt.err)

			w := perform(setupAppointmentRouter(svc, patient), http.MethodPost, "/appointments",
				`{"doctors_id":"doc-1","date":"2030-01-01T10:00:00Z"}`)

			assert.Equal(t, tt.want, w.Code)
			env := decode(t, w)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, env.Error, "10.0.0.5", "internal details stay in the logs")
			} else {
				assert.Equal(t, tt.err.Error(), env.Error)
			}
		})
	}
}

func TestUnauthenticatedCaller(t *testing.T) {
	svc := new(mockAppointmentService)

	w := perform(setupAppointmentRouter(svc, scheduling.Identity{}), http.MethodGet, "/appointments/my-appointments", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "ListMine", mock.Anything, mock.Anything)
}

func TestListMine(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("ListMine", mock.Anything, patient).Return([]scheduling.AppointmentView{*sampleView(models.StatusApproved)}, nil)

	w := perform(setupAppointmentRouter(svc, patient), http.MethodGet, "/appointments/my-appointments", "")

	require.Equal(t, http.StatusOK, w.Code)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "approved", views[0]["status"])
}

func TestCancel_BodyOptional(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("Cancel", mock.Anything, patient, "apt-1", "").Return(sampleView(models.StatusCancelled), nil).Once()
	svc.On("Cancel", mock.Anything, patient, "apt-1", "Feeling better").Return(sampleView(models.StatusCancelled), nil).Once()
	r := setupAppointmentRouter(svc, patient)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPatch, "/appointments/apt-1/cancel", "").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPatch, "/appointments/apt-1/cancel", `{"reason":"Feeling better"}`).Code)
	svc.AssertExpectations(t)
}

func TestCancel_NotOwner(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("Cancel", mock.Anything, patient, "apt-9", "").
		Return(nil, fmt.Errorf("%w: appointment not found", scheduling.ErrNotFound))

	w := perform(setupAppointmentRouter(svc, patient), http.MethodPatch, "/appointments/apt-9/cancel", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList_QueryBinding(t *testing.T) {
	svc := new(mockAppointmentService)
	params := scheduling.ListParams{Status: "pending", DoctorID: "doc-1", Page: 2, Limit: 5, SortBy: "date", SortOrder: "asc"}
	page := &scheduling.AppointmentPage{
		Appointments: []scheduling.AppointmentView{*sampleView(models.StatusPending)},
		Pagination:   scheduling.Pagination{Total: 6, Page: 2, Pages: 2, Limit: 5},
	}
	svc.On("List", mock.Anything, admin, params).Return(page, nil)

	w := perform(setupAppointmentRouter(svc, admin), http.MethodGet,
		"/appointments?status=pending&doctorId=doc-1&page=2&limit=5&sortBy=date&sortOrder=asc", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Appointments []map[string]any      `json:"appointments"`
		Pagination   scheduling.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Len(t, body.Appointments, 1)
	assert.Equal(t, scheduling.Pagination{Total: 6, Page: 2, Pages: 2, Limit: 5}, body.Pagination)
}

func TestList_BadPage(t *testing.T) {
	svc := new(mockAppointmentService)

	w := perform(setupAppointmentRouter(svc, admin), http.MethodGet, "/appointments?page=two", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet_ForbiddenForUser(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("Get", mock.Anything, patient, "apt-1").
		Return(nil, fmt.Errorf("%w: get requires the admin role", scheduling.ErrForbidden))

	w := perform(setupAppointmentRouter(svc, patient), http.MethodGet, "/appointments/apt-1", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApproveAndReject(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("Approve", mock.Anything, admin, "apt-1", "See you then").Return(sampleView(models.StatusApproved), nil)
	svc.On("Reject", mock.Anything, admin, "apt-2", "").
		Return(nil, fmt.Errorf("%w: only pending appointments can be rejected", scheduling.ErrInvalidTransition))
	r := setupAppointmentRouter(svc, admin)

	w := perform(r, http.MethodPatch, "/appointments/apt-1/approve", `{"adminNote":"See you then"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPatch, "/appointments/apt-2/reject", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "only pending")
}

func TestUpdateStatus(t *testing.T) {
	svc := new(mockAppointmentService)
	svc.On("UpdateStatus", mock.Anything, admin, "apt-1", "completed", "").Return(sampleView(models.StatusCompleted), nil)
	r := setupAppointmentRouter(svc, admin)

	w := perform(r, http.MethodPut, "/appointments/apt-1", `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPut, "/appointments/apt-1", `{"adminNote":"no status"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "Status is required")
}
