package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	"github.com/starshippsychics/trust-engine/internal/domain/service"
	"github.com/starshippsychics/trust-engine/internal/handler/http/middleware"
)

// SetupRouter wires the HTTP surface.
func SetupRouter(
	loginFlow *service.LoginFlowService,
	deviceTrust *service.DeviceTrustService,
	adminTrust *service.AdminIPTrustService,
	settings *service.TwoFactorSettingsService,
	tokens *service.TokenService,
	audit *service.AuditLogService,
	db *pgxpool.Pool,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware())
	router.Use(middleware.MetricsMiddleware())

	authHandler := NewAuthHandler(loginFlow, logger)
	deviceHandler := NewDeviceTrustHandler(deviceTrust, adminTrust, audit, logger)
	settingsHandler := NewSettingsHandler(settings, audit, logger)
	healthHandler := NewHealthHandler(db)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler.Health)
	router.GET("/readiness", healthHandler.Readiness)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify-2fa", authHandler.VerifyTwoFactor)
		}

		// Per-identity routes: bearer token required and its subject must
		// match the :identity path segment.
		protected := api.Group("/auth")
		protected.Use(middleware.AuthMiddleware(tokens, logger))
		{
			check := protected.Group("/check-2fa")
			check.Use(middleware.RequireIdentityParam("identity"))
			{
				check.POST("/:identity", authHandler.CheckTwoFactor)
			}

			devices := protected.Group("/devices/:identity")
			devices.Use(middleware.RequireIdentityParam("identity"))
			{
				devices.GET("", deviceHandler.ListDevices)
				devices.POST("/trust", deviceHandler.TrustCurrentDevice)
				devices.POST("/revoke-current", deviceHandler.RevokeCurrentDevice)
				devices.DELETE("", deviceHandler.RevokeAllDevices)
				devices.DELETE("/:deviceId", deviceHandler.RevokeDevice)
			}

			origins := protected.Group("/origins/:identity")
			origins.Use(middleware.RequireIdentityParam("identity"))
			{
				origins.GET("", deviceHandler.ListOrigins)
				origins.DELETE("/:originId", deviceHandler.RevokeOrigin)
			}

			twoFA := protected.Group("/2fa-settings/:identity")
			twoFA.Use(middleware.RequireIdentityParam("identity"))
			{
				twoFA.GET("", settingsHandler.GetTwoFactorSettings)
				twoFA.PUT("", settingsHandler.UpdateTwoFactorSettings)
			}

			auditLogs := protected.Group("/audit-logs/:identity")
			auditLogs.Use(middleware.RequireIdentityParam("identity"))
			{
				auditLogs.GET("", settingsHandler.ListAuditLogs)
			}
		}
	}

	return router
}
