package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

type routerDeps struct {
	logger    *zap.Logger
	metrics   *service.MetricsService
	auth      *service.AuthService
	timetable *handler.TimetableHandler
	health    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/stats", deps.health.Stats)

	read, edit, admin := api.Group(""), api.Group(""), api.Group("")
	if cfg.Auth.Enabled {
		authn := internalmiddleware.JWT(deps.auth)
		read.Use(authn)
		edit.Use(authn, internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleEditor))
		admin.Use(authn, internalmiddleware.RequireRoles(models.RoleAdmin))
	}

	h := deps.timetable
	read.GET("/roster", h.Roster)
	read.GET("/timetable/sessions", h.Sessions)
	read.GET("/timetable/conflicts", h.Conflicts)
	read.POST("/timetable/sessions/:id/validate", h.ValidateMove)
	read.GET("/timetable/export", h.Export)
	read.GET("/timetable/published", h.ListPublished)
	read.GET("/timetable/published/:id/sessions", h.PublishedSessions)

	edit.POST("/timetable/generate", h.Generate)
	edit.POST("/timetable/reset", h.Reset)
	edit.POST("/timetable/sessions/:id/relocate", h.Relocate)

	admin.POST("/timetable/publish", h.Publish)

	return r
}
