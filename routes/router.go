package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/config"
	"github.com/rafael-frs-a/gomemes/controllers"
	"github.com/rafael-frs-a/gomemes/middleware"
	"github.com/rafael-frs-a/gomemes/moderation"
	"github.com/rafael-frs-a/gomemes/utils"
)

// SetupRouter wires the HTTP surface: public feed, account endpoints, the
// moderator lease protocol and the staff-only membership operations.
func SetupRouter(db *gorm.DB, manager *moderation.Manager, catalog *moderation.Catalog) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	r := gin.New()

	ginLogger, err := utils.NewRollingFileLogger(cfg.GinLogPath, cfg.LogLevel,
		cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Fatalf("failed to init gin logger: %v", err)
	}
	r.Use(utils.Ginzap(ginLogger, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(ginLogger, true))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	// Wrong verb on a known path must answer 405, not 404
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})
	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	moderationController := controllers.NewModerationController(db, manager)
	reasonController := controllers.NewReasonController(catalog)
	adminController := controllers.NewAdminController(db, manager)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", middleware.AuthRequired(), authController.Logout)
		auth.GET("/me", middleware.AuthRequired(), authController.Me)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", postController.ListApproved)
		posts.GET("/:identifier", postController.GetApproved)
	}
	api.GET("/users/me/posts", middleware.AuthRequired(), postController.ListMine)

	mod := api.Group("/moderation")
	mod.Use(middleware.AuthRequired(), middleware.ModeratorRequired(db), middleware.RateLimitMiddleware())
	{
		mod.POST("/fetch", moderationController.Fetch)
		mod.GET("/posts/:identifier", moderationController.Show)
		mod.POST("/release", moderationController.Release)
		mod.POST("/posts/:identifier/approve", moderationController.Approve)
		mod.POST("/posts/:identifier/deny", moderationController.Deny)

		mod.GET("/denial-reasons", reasonController.List)
		mod.POST("/denial-reasons", reasonController.Create)
		mod.PUT("/denial-reasons/:id", reasonController.Update)
		mod.DELETE("/denial-reasons/:id", reasonController.Delete)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.StaffRequired(db))
	{
		admin.PATCH("/users/:id/moderator", adminController.SetModerator)
		admin.DELETE("/users/:id", adminController.DeleteUser)
		admin.DELETE("/moderation-status/:id", adminController.DeleteStatus)
	}

	return r
}
