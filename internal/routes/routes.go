package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func perIP(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	userService *services.UserService,
	studentService *services.StudentService,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	fileHandler *handlers.FileHandler,
	accountHandler *handlers.AccountHandler,
	reportHandler *handlers.ReportHandler,
	streamHandler *handlers.StreamHandler,
	adminHandler *handlers.AdminHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Identity provider webhook (svix signature, no session). Both paths are
	// registered because existing dashboards point at the short one.
	app.Post("/clerk-webhook", webhookHandler.HandleClerk)

	// Share-link page
	app.Get("/report/:token", perIP(60), reportHandler.PublicPage)

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(perIP(120))

	api.Get("/health", healthHandler.Check)
	api.Post("/webhooks/clerk", webhookHandler.HandleClerk)
	api.Get("/files/*", fileHandler.Serve)

	// Share-link holders (public token, no session)
	public := api.Group("/public/reports")
	public.Get("/:token", reportHandler.PublicGet)
	public.Get("/:token/location", reportHandler.PublicLocation)
	public.Get("/:token/stream", streamHandler.Public)

	// Session verification builds a JWKS client, so it is created once and
	// shared by every protected route.
	session := middleware.SessionRequired(cfg)
	account := middleware.ResolveAccount(userService, cfg)

	api.Get("/me", session, account, accountHandler.Me)
	api.Post("/me/profile", session, account, middleware.RequireRole(models.RoleStudent), accountHandler.CompleteProfile)
	api.Get("/departments", session, account, accountHandler.Departments)
	api.Post("/upload", session, account, perIP(30), fileHandler.Upload)

	// Student reporting (verified students only)
	student := api.Group("/student", session, account, middleware.RequireVerifiedStudent(studentService))
	student.Post("/reports", perIP(10), reportHandler.Submit)
	student.Get("/reports", reportHandler.ListMine)
	student.Get("/reports/:id", reportHandler.GetMine)
	student.Post("/reports/:id/locations", reportHandler.AppendMyLocation)
	student.Get("/reports/:id/location", reportHandler.MyLatestLocation)
	student.Put("/reports/:id/audio", reportHandler.AttachAudio)
	student.Get("/reports/:id/share.png", reportHandler.MyShareQR)

	// Staff case handling
	staff := api.Group("/reports", session, account, middleware.RequireRole(models.RoleAdmin, models.RoleCorrespondent))
	staff.Get("/", reportHandler.List)
	staff.Get("/dashboard", reportHandler.Dashboard)
	staff.Get("/:id", reportHandler.Get)
	staff.Get("/:id/location", reportHandler.LatestLocation)
	staff.Get("/:id/locations", reportHandler.History)
	staff.Get("/:id/stream", streamHandler.Staff)
	staff.Put("/:id/status", reportHandler.UpdateStatus)
	staff.Get("/:id/share.png", reportHandler.ShareQR)

	// Admin panel
	admin := api.Group("/admin", session, account, middleware.RequireRole(models.RoleAdmin))
	admin.Post("/departments", adminHandler.CreateDepartment)
	admin.Put("/departments/:id", adminHandler.UpdateDepartment)
	admin.Delete("/departments/:id", adminHandler.DeleteDepartment)

	admin.Get("/proctors", adminHandler.ListProctors)
	admin.Post("/proctors", adminHandler.CreateProctor)
	admin.Put("/proctors/:id", adminHandler.UpdateProctor)
	admin.Delete("/proctors/:id", adminHandler.DeleteProctor)

	admin.Get("/students", adminHandler.ListStudents)
	admin.Get("/students/pending", adminHandler.PendingStudents)
	admin.Put("/students/:id", adminHandler.UpdateStudent)
	admin.Put("/students/:id/verify", adminHandler.VerifyStudent)

	admin.Get("/correspondents", adminHandler.ListCorrespondents)
	admin.Post("/correspondents", adminHandler.InviteCorrespondent)
	admin.Put("/correspondents/:id", adminHandler.UpdateCorrespondent)

	admin.Put("/users/:id/verify", adminHandler.VerifyUser)
}
