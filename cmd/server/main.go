package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/service"
	"github.com/siades/backend/internal/config"
	"github.com/siades/backend/internal/infrastructure/persistence/repository"
	"github.com/siades/backend/internal/infrastructure/persistence/sqlite"
	httpif "github.com/siades/backend/internal/interfaces/http"
	"github.com/siades/backend/pkg/database"
	"github.com/siades/backend/pkg/utils"
)

func main() {
	// Local overrides from .env, ignored when absent
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting village administration service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	requestRepo := repository.NewLetterRequestRepository(db.DB, logger)
	typeRepo := repository.NewLetterTypeRepository(db.DB, logger)
	signatureRepo := repository.NewSignatureRepository(db.DB, logger)
	auditRepo := repository.NewAuditLogRepository(db.DB, logger)
	residentRepo := repository.NewResidentRepository(db.DB, logger)
	familyRepo := repository.NewFamilyRepository(db.DB, logger)
	eventRepo := repository.NewPopulationEventRepository(db.DB, logger)

	issuer := service.NewSignatureIssuer(signatureRepo, cfg.Signature.ImageDir, cfg.Signature.QRDir, logger)

	letterService := service.NewLetterService(
		requestRepo, typeRepo, residentRepo, auditRepo, issuer, txManager, logger)
	residentService := service.NewResidentService(
		residentRepo, familyRepo, eventRepo, auditRepo, txManager, logger)
	statisticsService := service.NewStatisticsService(eventRepo, logger)

	server := httpif.NewServer(httpif.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, letterService, residentService, statisticsService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server shut down cleanly")
}
