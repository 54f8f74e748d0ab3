package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/controllers"
	"github.com/utleieskade/backend/internal/db"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/realtime"
	"github.com/utleieskade/backend/internal/services"
	"github.com/utleieskade/backend/internal/validation"
)

// Deps are the handles the router needs.
type Deps struct {
	Config   *config.Config
	Database *db.Database
	Services *services.Services
	Tokens   *auth.TokenManager
	Hub      *realtime.Hub
}

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter(d Deps) *gin.Engine {
	validation.Register()
	controllers.SetProduction(d.Config.IsProduction())

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(d.Config.CORSOrigins))
	r.Use(middleware.Recovery(d.Config.CORSOrigins, d.Config.IsDevelopment()))

	SetupRoutes(r, d)
	return r
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, d Deps) {
	svc := d.Services

	// Initialize controllers
	healthController := controllers.NewHealthController(d.Database)
	authController := controllers.NewAuthController(svc.Users)
	otpController := controllers.NewOTPController(svc.OTP)
	userController := controllers.NewUserController(svc.Users, svc.Actions)
	settingsController := controllers.NewSettingsController(svc.Settings)
	caseController := controllers.NewCaseController(svc.Cases, svc.Reports, svc.Settings)
	tenantController := controllers.NewTenantController(svc.Users)
	inspectorController := controllers.NewInspectorController(svc.Users, svc.Payouts)
	paymentController := controllers.NewPaymentController(svc.Payments, svc.Payouts)
	refundController := controllers.NewRefundController(svc.Refunds)
	chatController := controllers.NewChatController(svc.Chat)
	notificationController := controllers.NewNotificationController(svc.Notifications)
	expertiseController := controllers.NewExpertiseController(svc.Expertises)
	fileController := controllers.NewFileController(svc.Files)
	socketController := controllers.NewSocketController(d.Hub, d.Tokens, svc.Chat, d.Config.CORSOrigins)

	r.GET("/health", healthController.Health)

	api := r.Group("/")
	api.Use(middleware.RequireDatabase(d.Database))

	staff := middleware.RequireStaff()
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	tenantOnly := middleware.RequireRoles(models.RoleTenant)
	inspectorOnly := middleware.RequireRoles(models.RoleInspector)

	// Public
	users := api.Group("/users")
	{
		users.POST("/register", authController.Register)
		users.POST("/login", authController.Login)
		users.POST("/set-password", authController.SetPassword)
		users.POST("/forgot-password", authController.ForgotPassword)
	}
	api.GET("/files/*path", fileController.Serve)

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.Authenticate(d.Tokens))
	{
		me := protected.Group("/users/me")
		{
			me.GET("", authController.Me)
			me.PUT("", authController.UpdateMe)
			me.PUT("/password", authController.ChangePassword)
			me.DELETE("", middleware.RequireElevated(), authController.DeleteMe)
		}

		otp := protected.Group("/otp")
		{
			otp.POST("/send", otpController.Send)
			otp.POST("/verify", otpController.Verify)
		}

		cases := protected.Group("/cases")
		{
			cases.POST("", tenantOnly, caseController.Create)
			cases.GET("", caseController.List)
			cases.GET("/:id", caseController.Get)
			cases.PUT("/:id/assign", staff, caseController.Assign)
			cases.PUT("/:id/cancel", caseController.Cancel)
			cases.PUT("/:id/status", adminOnly, caseController.ChangeStatus)
			cases.GET("/:id/timeline", caseController.Timeline)
			cases.POST("/:id/report", inspectorOnly, caseController.SubmitReport)
			cases.GET("/:id/report", caseController.GetReport)
			cases.GET("/:id/report/pdf", caseController.ReportPDF)
		}

		tenants := protected.Group("/tenants")
		{
			tenants.GET("/me/cases", tenantOnly, caseController.ListMine)
			tenants.GET("", staff, tenantController.List)
			tenants.GET("/export/csv", staff, tenantController.ExportCSV)
			tenants.GET("/export/pdf", staff, tenantController.ExportPDF)
			tenants.GET("/:id", staff, tenantController.Get)
		}

		inspectors := protected.Group("/inspectors")
		{
			mine := inspectors.Group("/me", inspectorOnly)
			{
				mine.GET("/cases", caseController.ListMine)
				mine.PUT("/expertises", inspectorController.SetExpertises)
				mine.GET("/earnings", inspectorController.Earnings)
				mine.GET("/earnings/pdf", inspectorController.EarningsPDF)
				mine.GET("/payouts", inspectorController.Payouts)
				mine.POST("/payouts", inspectorController.RequestPayout)
			}

			work := inspectors.Group("/cases/:id", inspectorOnly)
			{
				work.PUT("/claim", caseController.Claim)
				work.PUT("/release", caseController.Release)
				work.PUT("/hold", caseController.Hold)
				work.PUT("/resume", caseController.Resume)
				work.PUT("/complete", caseController.Complete)
			}

			inspectors.GET("", staff, inspectorController.List)
			inspectors.GET("/export/csv", staff, inspectorController.ExportCSV)
			inspectors.GET("/export/pdf", staff, inspectorController.ExportPDF)
			inspectors.GET("/:id", staff, inspectorController.Get)
		}

		payments := protected.Group("/payments")
		{
			payments.POST("/intent", tenantOnly, paymentController.CreateIntent)
			payments.POST("/confirm", tenantOnly, paymentController.Confirm)
			payments.GET("", paymentController.List)

			payouts := payments.Group("/payouts", staff)
			{
				payouts.GET("", paymentController.ListPayouts)
				payouts.PUT("/:id/approve", adminOnly, paymentController.ApprovePayout)
				payouts.PUT("/:id/reject", adminOnly, paymentController.RejectPayout)
			}

			payments.GET("/:id", paymentController.Get)
			payments.GET("/:id/receipt", paymentController.Receipt)
			payments.PUT("/:id/approve", adminOnly, paymentController.Approve)
			payments.PUT("/:id/reject", adminOnly, paymentController.Reject)
		}

		refunds := protected.Group("/refunds")
		{
			refunds.POST("", tenantOnly, refundController.Create)
			refunds.GET("", refundController.List)
			refunds.PUT("/:id/approve", adminOnly, refundController.Approve)
			refunds.PUT("/:id/reject", adminOnly, refundController.Reject)
		}

		chats := protected.Group("/chats")
		{
			chats.GET("/conversations", chatController.Conversations)
			chats.POST("/conversations", chatController.StartConversation)
			chats.GET("/conversations/:id/messages", chatController.Messages)
			chats.PUT("/conversations/:id/read", chatController.MarkRead)
			chats.POST("/messages", chatController.Send)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationController.List)
			notifications.GET("/unread-count", notificationController.UnreadCount)
			notifications.PUT("/read-all", notificationController.MarkAllRead)
			notifications.PUT("/:id/read", notificationController.MarkRead)
			notifications.DELETE("/:id", notificationController.Delete)
		}

		expertises := protected.Group("/expertises")
		{
			expertises.GET("", expertiseController.List)
			expertises.POST("", adminOnly, expertiseController.Create)
			expertises.DELETE("/:id", adminOnly, expertiseController.Delete)
		}

		protected.POST("/files/upload", fileController.Upload)

		// Admin routes
		admins := protected.Group("/admins", staff)
		{
			admins.POST("", adminOnly, userController.CreateStaff)
			admins.GET("/dashboard", userController.Dashboard)
			admins.GET("/users", userController.List)
			admins.GET("/users/:id", userController.Get)
			admins.PUT("/users/:id/status", adminOnly, userController.SetStatus)
			admins.DELETE("/users/:id", adminOnly, userController.Delete)
			admins.POST("/inspectors", userController.InviteInspector)
			admins.GET("/action-logs", userController.ActionLogs)
			admins.GET("/settings", settingsController.Get)
			admins.PUT("/settings", adminOnly, settingsController.Update)
		}
	}

	// The socket authenticates itself so browsers can pass the token as a query parameter.
	api.GET("/ws", socketController.Connect)
}
