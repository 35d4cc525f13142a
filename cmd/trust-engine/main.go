package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	"github.com/starshippsychics/trust-engine/internal/domain/service"
	"github.com/starshippsychics/trust-engine/internal/events/kafka"
	httpHandler "github.com/starshippsychics/trust-engine/internal/handler/http"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/database"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/database/postgres"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/notification"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
	"github.com/starshippsychics/trust-engine/internal/utils/logger"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations")
		migrationURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		m, err := migrate.New("file://migrations", migrationURL)
		if err != nil {
			log.Fatal("failed to create migration instance", zap.Error(err))
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("failed to apply migrations", zap.Error(err))
		}
		log.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	encryptor, err := security.NewAESGCMEncryptionService(cfg.Security.EncryptionKeyHex)
	if err != nil {
		log.Fatal("failed to initialize encryption service", zap.Error(err))
	}
	passwordService, err := security.NewArgon2idPasswordService(security.Argon2idParams{
		Memory:      cfg.Security.PasswordHash.Memory,
		Iterations:  cfg.Security.PasswordHash.Iterations,
		Parallelism: cfg.Security.PasswordHash.Parallelism,
		SaltLength:  cfg.Security.PasswordHash.SaltLength,
		KeyLength:   cfg.Security.PasswordHash.KeyLength,
	})
	if err != nil {
		log.Fatal("failed to initialize password service", zap.Error(err))
	}

	var publisher service.SecurityEventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log, "/trust-engine")
		if err != nil {
			log.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
	}

	credentialRepo := database.NewPgxCredentialRepository(dbPool)
	codeRepo := database.NewPgxVerificationCodeRepository(dbPool)
	deviceRepo := database.NewPgxTrustedDeviceRepository(dbPool)
	adminIPRepo := database.NewPgxAdminTrustedIPRepository(dbPool)
	adminAttemptRepo := database.NewPgxAdminLoginAttemptRepository(dbPool)
	auditRepo := database.NewPgxAuditLogRepository(dbPool)
	settingsRepo := database.NewPgxTwoFactorSettingsRepository(dbPool)
	attemptRepo := database.NewPgxLoginAttemptRepository(dbPool)
	lockoutRepo := database.NewPgxLockoutRepository(dbPool)

	emailSender := notification.NewEmailAPIClient(cfg.Notification.Email)
	smsVerifier := notification.NewSMSVerifyClient(cfg.Notification.SMS)

	auditService := service.NewAuditLogService(auditRepo, encryptor, publisher, log)
	verificationService := service.NewVerificationService(codeRepo, emailSender, smsVerifier, encryptor, cfg.Verification, log)
	deviceTrustService := service.NewDeviceTrustService(deviceRepo, encryptor, cfg.Security.DeviceTrustDuration, log)
	adminTrustService := service.NewAdminIPTrustService(adminIPRepo, adminAttemptRepo, encryptor, log)
	lockoutService := service.NewLockoutService(attemptRepo, lockoutRepo, auditService, cfg.Security.Lockout, log)
	settingsService := service.NewTwoFactorSettingsService(settingsRepo, encryptor, auditService, log)
	tokenService := service.NewTokenService(cfg.JWT)
	loginFlowService := service.NewLoginFlowService(
		credentialRepo, passwordService, tokenService,
		verificationService, deviceTrustService, adminTrustService,
		lockoutService, settingsService, auditService,
		encryptor, cfg.Security, log,
	)

	// Expired verification codes are kept for a day after expiry, then purged.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := verificationService.PurgeExpired(ctx, time.Now().UTC().Add(-24*time.Hour))
				if err != nil {
					log.Warn("verification code purge failed", zap.Error(err))
				} else if purged > 0 {
					log.Info("purged expired verification codes", zap.Int64("count", purged))
				}
			}
		}
	}()

	router := httpHandler.SetupRouter(
		loginFlowService, deviceTrustService, adminTrustService,
		settingsService, tokenService, auditService,
		dbPool, cfg, log,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
