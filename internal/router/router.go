package router

import (
	"time"

	"github.com/thenithin342/Attendance-ios/internal/attendance"
	"github.com/thenithin342/Attendance-ios/internal/config"
	"github.com/thenithin342/Attendance-ios/internal/handler"
	"github.com/thenithin342/Attendance-ios/internal/middleware"
	"github.com/thenithin342/Attendance-ios/internal/models"
	"github.com/thenithin342/Attendance-ios/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived services the routes share.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Hub      *attendance.Hub
	Sessions *session.Store
	Service  *attendance.Service
	Location *time.Location
}

// SetupRouter configures the gin engine and every API route.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(d.Log), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	r.GET("/healthz", handler.Health(d.DB))

	// ====== API ======
	api := r.Group("/api")
	api.GET("/", handler.Root)

	// login / register need no token
	authHandler := handler.NewAuthHandler(d.DB, d.Sessions, cfg.JWT, cfg.Security, d.Log)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret, d.DB, d.Sessions, d.Log),
		middleware.AuditMiddleware(d.DB, cfg.Security.EncryptionKey, d.Log),
	)

	protected.GET("/auth/me", handler.GetMe)
	protected.POST("/auth/logout", authHandler.Logout)

	protected.POST("/profile", handler.UpdateProfile(d.DB))
	protected.POST("/profile/password", handler.ChangePassword(d.DB, d.Sessions, cfg.Security))

	protected.POST("/status", handler.CreateStatus(d.DB))
	protected.GET("/status", handler.ListStatus(d.DB))

	attendanceHandler := handler.NewAttendanceHandler(d.DB, d.Service, d.Location, cfg.Attendance.SyncBatchLimit, d.Log)

	// faculty
	admin := protected.Group("/admin", middleware.RequireRole(models.RoleFaculty))

	adminHandler := handler.NewAdminHandler(d.DB, d.Log)
	admin.GET("/batches", adminHandler.ListBatches)
	admin.POST("/batches", adminHandler.CreateBatch)
	admin.GET("/halls", adminHandler.ListHalls)
	admin.POST("/halls", adminHandler.CreateHall)
	admin.GET("/students", adminHandler.ListStudents)

	windowHandler := handler.NewWindowHandler(d.DB, d.Log)
	admin.POST("/attendance-window", windowHandler.Create)
	admin.GET("/attendance-windows", windowHandler.List)
	admin.POST("/attendance-window/:id/close", windowHandler.Close)

	admin.GET("/attendance/today", attendanceHandler.Today)
	admin.POST("/attendance/manual", attendanceHandler.MarkManual)

	exportHandler := handler.NewExportHandler(d.DB, d.Location, d.Log)
	admin.GET("/attendance/export/csv", exportHandler.ExportCSV)
	admin.GET("/attendance/export/xlsx", exportHandler.ExportXLSX)

	liveHandler := handler.NewLiveHandler(d.Hub, cfg.Server.AllowedOrigins, d.Log)
	admin.GET("/attendance/live", liveHandler.Stream)

	logHandler := handler.NewLogHandler(d.DB, cfg.Security.EncryptionKey, cfg.App.PageSize, d.Log)
	admin.GET("/logs", logHandler.ListLogs)

	// students
	student := protected.Group("", middleware.RequireRole(models.RoleStudent))
	student.GET("/student/attendance-windows", attendanceHandler.StudentWindows)
	student.GET("/student/beacons", attendanceHandler.Beacons)
	student.POST("/student/mark-attendance", attendanceHandler.Mark)
	student.GET("/student/attendance", attendanceHandler.History)
	student.POST("/attendance/sync", attendanceHandler.Sync)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.ExposeHeaders = []string{"Content-Disposition"}
	c.MaxAge = 12 * time.Hour

	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
