package server

import (
	"context"
	"net/http"

	"wildenergy/internal/auth"
	"wildenergy/internal/catalog"
	"wildenergy/internal/checkin"
	"wildenergy/internal/config"
	"wildenergy/internal/course"
	"wildenergy/internal/member"
	"wildenergy/internal/notify"
	"wildenergy/internal/registration"
	"wildenergy/internal/schedule"
	"wildenergy/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	notify *notify.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	memberHandler := member.NewHandler(db, cfg.JWTSecret)
	catalogHandler := catalog.NewHandler(db)
	scheduleHandler := schedule.NewHandler(db)
	courseHandler := course.NewHandler(db, notifier)
	subscriptionHandler := subscription.NewHandler(db)
	registrationHandler := registration.NewHandler(db, cfg.RefundCutoff, notifier)
	checkinHandler := checkin.NewHandler(db)

	public := router.Group("/auth")
	{
		public.POST("/register", memberHandler.Register)
		public.POST("/login", memberHandler.Login)
		public.POST("/refresh", memberHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", memberHandler.GetMe)
		protected.GET("/classes", catalogHandler.ListClasses)
		protected.GET("/classes/:classID", catalogHandler.GetClass)
		protected.GET("/categories", catalogHandler.ListCategories)
		protected.GET("/groups", catalogHandler.ListGroups)
		protected.GET("/courses", courseHandler.ListCourses)
		protected.GET("/courses/:courseID", courseHandler.GetCourse)
		protected.GET("/subscriptions", subscriptionHandler.ListMySubscriptions)
		protected.POST("/courses/:courseID/register", registrationHandler.Register)
		protected.GET("/courses/:courseID/conflicts", registrationHandler.Conflicts)
		protected.GET("/registrations", registrationHandler.ListMine)
		protected.POST("/registrations/:registrationID/cancel", registrationHandler.Cancel)
	}

	staff := router.Group("/staff")
	staff.Use(authMiddleware, auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))
	{
		staff.POST("/checkins", checkinHandler.Validate)
		staff.DELETE("/checkins/:registrationID", checkinHandler.Unvalidate)
		staff.GET("/courses/:courseID/checkins", checkinHandler.ListByCourse)
		staff.POST("/registrations/:registrationID/absent", registrationHandler.MarkAbsent)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/classes", catalogHandler.CreateClass)
		admin.POST("/schedules", scheduleHandler.CreateSchedule)
		admin.GET("/schedules", scheduleHandler.ListSchedules)
		admin.PUT("/schedules/:scheduleID", scheduleHandler.UpdateSchedule)
		admin.POST("/schedules/:scheduleID/regenerate", scheduleHandler.RegenerateSchedule)
		admin.PATCH("/schedules/:scheduleID/active", scheduleHandler.SetScheduleActive)
		admin.GET("/schedules/:scheduleID/courses", scheduleHandler.ListScheduleInstances)
		admin.DELETE("/courses/:courseID", courseHandler.DeleteCourse)
		admin.POST("/courses/:courseID/cancel", courseHandler.CancelCourse)
		admin.POST("/courses/:courseID/registrations", registrationHandler.BulkRegister)
		admin.POST("/subscriptions", subscriptionHandler.CreateSubscription)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-notification", TestNotification(notifier))

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		notify: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
