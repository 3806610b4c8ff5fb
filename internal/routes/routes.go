package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"healthcare-admin-server/internal/config"
	"healthcare-admin-server/internal/handlers"
	"healthcare-admin-server/internal/metrics"
	"healthcare-admin-server/internal/middleware"
	"healthcare-admin-server/internal/models"
)

// Dependencies are the collaborators the route table wires into handlers.
type Dependencies struct {
	DB           *gorm.DB
	Config       *config.Config
	Log          *logrus.Logger
	Metrics      *metrics.Metrics
	Appointments handlers.AppointmentService
	HealthChecks map[string]handlers.HealthCheck
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Config, deps.Log)
	userHandler := handlers.NewUserHandler(deps.DB, deps.Log)
	doctorHandler := handlers.NewDoctorHandler(deps.DB, deps.Log)
	feedbackHandler := handlers.NewFeedbackHandler(deps.DB, deps.Log)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Appointments, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks, deps.Log)

	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)

	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
		public.GET("/feedback/public", feedbackHandler.GetPublicFeedback)
	}

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config))
	{
		authRoutes := private.Group("/auth")
		{
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/profile", authHandler.GetProfile)
			authRoutes.PUT("/profile", authHandler.UpdateProfile)
		}

		// Role rules for appointments are evaluated per operation by the
		// scheduling core, so this group only requires authentication.
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.Book)
			appointmentRoutes.GET("/my-appointments", appointmentHandler.ListMine)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.Cancel)
			appointmentRoutes.GET("", appointmentHandler.List)
			appointmentRoutes.GET("/:id", appointmentHandler.Get)
			appointmentRoutes.PATCH("/:id/approve", appointmentHandler.Approve)
			appointmentRoutes.PATCH("/:id/reject", appointmentHandler.Reject)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateStatus)
		}

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", doctorHandler.ListDoctors)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctor)
			doctorRoutes.POST("", adminOnly, doctorHandler.CreateDoctor)
			doctorRoutes.PUT("/:id", adminOnly, doctorHandler.UpdateDoctor)
			doctorRoutes.DELETE("/:id", adminOnly, doctorHandler.DeleteDoctor)
		}

		userRoutes := private.Group("/users", adminOnly)
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}

		feedbackRoutes := private.Group("/feedback")
		{
			feedbackRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleUser), feedbackHandler.SubmitFeedback)
			feedbackRoutes.GET("/mine", feedbackHandler.GetMyFeedback)
			feedbackRoutes.GET("", adminOnly, feedbackHandler.ListFeedback)
			feedbackRoutes.PATCH("/:id/moderate", adminOnly, feedbackHandler.ModerateFeedback)
		}
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
}
