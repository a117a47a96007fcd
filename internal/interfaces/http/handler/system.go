package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/daftar/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	db        *gorm.DB
	redis     *redis.Client
	startTime time.Time
}

// SystemHandlerOption is a functional option for configuring SystemHandler
type SystemHandlerOption func(*SystemHandler)

// WithRedis adds a redis ping to the readiness probe
func WithRedis(client *redis.Client) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.redis = client
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *gorm.DB, opts ...SystemHandlerOption) *SystemHandler {
	h := &SystemHandler{
		db:        db,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers all system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/health", h.Health)
		system.GET("/ready", h.Ready)
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Daftar Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health is a liveness probe; it succeeds as long as the process serves requests
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Redis       string `json:"redis,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Ready is a readiness probe. It verifies the database is reachable and the
// schema is migrated by probing the payments table, which is created by the
// last migration. Redis is pinged when configured but never fails the probe;
// the server works without change notifications.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(ReadyResponse{
			Status:   "unavailable",
			Database: "unreachable",
		}))
		return
	}

	if !h.db.WithContext(ctx).Migrator().HasTable("payments") {
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(ReadyResponse{
			Status:      "unavailable",
			Database:    "schema missing",
			Remediation: "run migrations: daftar-migrate up",
		}))
		return
	}

	resp := ReadyResponse{
		Status:   "ready",
		Database: "ok",
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Redis = "unreachable"
		} else {
			resp.Redis = "ok"
		}
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
