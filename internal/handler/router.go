package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sevaproject/booking-api/internal/middleware"
	"github.com/sevaproject/booking-api/internal/models"
	"github.com/sevaproject/booking-api/internal/service"
	"github.com/sevaproject/booking-api/pkg/config"
	"github.com/sevaproject/booking-api/pkg/logger"
	corsmiddleware "github.com/sevaproject/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sevaproject/booking-api/pkg/middleware/requestid"
)

// Services bundles everything the router needs to wire routes.
type Services struct {
	Auth         *service.AuthService
	Schedule     *service.ScheduleService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	BookingView  *service.BookingViewService
	Ratings      *service.RatingService
	Exports      *service.ExportService
	Metrics      *service.MetricsService
}

// NewRouter assembles the gin engine with middleware and all route groups.
func NewRouter(cfg *config.Config, logr *zap.Logger, svcs Services) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svcs.Metrics))

	authHandler := NewAuthHandler(svcs.Auth)
	scheduleHandler := NewScheduleHandler(svcs.Schedule)
	availabilityHandler := NewAvailabilityHandler(svcs.Availability)
	bookingHandler := NewBookingHandler(svcs.Bookings, svcs.BookingView, svcs.Ratings)
	exportHandler := NewExportHandler(svcs.Exports)
	metricsHandler := NewMetricsHandler(svcs.Metrics)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(svcs.Auth), authHandler.Logout)
		auth.GET("/me", middleware.JWT(svcs.Auth), authHandler.Me)
	}

	schedule := api.Group("/schedule", middleware.JWT(svcs.Auth), middleware.RequireRoles(models.RoleProvider))
	{
		schedule.GET("/entries", scheduleHandler.ListEntries)
		schedule.POST("/entries", scheduleHandler.CreateEntry)
		schedule.PUT("/entries/:id", scheduleHandler.UpdateEntry)
		schedule.DELETE("/entries/:id", scheduleHandler.DeleteEntry)
		schedule.GET("/exceptions", scheduleHandler.ListExceptions)
		schedule.POST("/exceptions", scheduleHandler.CreateException)
		schedule.DELETE("/exceptions/:id", scheduleHandler.DeleteException)
	}

	providers := api.Group("/providers", middleware.JWT(svcs.Auth))
	{
		providers.GET("/:id/availability", availabilityHandler.Resolve)
	}

	bookings := api.Group("/bookings", middleware.JWT(svcs.Auth))
	{
		bookings.GET("", bookingHandler.List)
		bookings.POST("", middleware.RequireRoles(models.RoleClient), bookingHandler.Create)
		bookings.POST("/export", exportHandler.Export)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("/:id/transition", bookingHandler.Transition)
		bookings.POST("/:id/rating", bookingHandler.Rate)
	}

	// Download auth rides on the signed token so browsers can follow the link.
	api.GET("/exports/download", exportHandler.Download)

	return r
}
