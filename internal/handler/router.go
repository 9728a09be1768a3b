package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/afterschool-match-api/internal/middleware"
	"github.com/noah-isme/afterschool-match-api/internal/models"
)

// Handlers groups every HTTP handler mounted by the API.
type Handlers struct {
	Enrollment *EnrollmentHandler
	Matching   *MatchingHandler
	Parameter  *ParameterHandler
	Recompute  *RecomputeHandler
	Export     *ExportHandler
	Metrics    *MetricsHandler
}

// RouteConfig carries the shared route dependencies.
type RouteConfig struct {
	Prefix   string
	Tokens   middleware.TokenValidator
	AuditLog *zap.Logger
}

// Register mounts every route on the engine.
func Register(r *gin.Engine, h Handlers, cfg RouteConfig) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(cfg.Prefix)
	api.Use(middleware.JWT(cfg.Tokens))

	children := api.Group("/children/:childId")
	children.Use(middleware.RequireRoles(models.RoleParent, models.RoleAdmin))
	children.POST("/enrollments", h.Enrollment.Enroll)
	children.POST("/enrollments/:courseId/drop", h.Enrollment.Drop)
	children.GET("/enrollments", h.Enrollment.ListForChild)
	children.GET("/ranked-teachers", h.Matching.RankedTeachers)
	children.GET("/ranked-courses", h.Matching.RankedCourses)
	children.GET("/match-records", h.Matching.MatchHistory)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/parameters", h.Parameter.List)
	admin.GET("/parameters/weights", h.Parameter.Weights)
	admin.PUT("/parameters/weights", middleware.Audit(cfg.AuditLog, "UPDATE_WEIGHTS", "parameter"), h.Parameter.SetWeights)
	admin.GET("/parameters/:name", h.Parameter.Get)
	admin.PUT("/parameters/:name", middleware.Audit(cfg.AuditLog, "UPDATE", "parameter"), h.Parameter.Set)
	admin.GET("/courses/:courseId/enrollments", h.Enrollment.ListForCourse)
	admin.GET("/courses/:courseId/roster.:format", h.Export.Roster)

	internal := api.Group("/internal")
	internal.Use(middleware.RequireRoles(models.RoleSystem, models.RoleAdmin))
	internal.POST("/teachers/:teacherId/rating-changed", middleware.Audit(cfg.AuditLog, "RATING_CHANGED", "teacher"), h.Recompute.RatingChanged)
}
