package main

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"timetrack/docs"

	"timetrack/internal/auth"
	"timetrack/internal/cache"
	"timetrack/internal/config"
	"timetrack/internal/db"
	"timetrack/internal/handler"
	"timetrack/internal/model"
	"timetrack/internal/repository"
	"timetrack/internal/router"
	"timetrack/internal/service"
	"timetrack/pkg/logger"
)

// @title Timetrack API
// @version 1.0
// @description Multi-tenant work-time-tracking API with task timers, client directory, visibility grants, and reporting.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Warn().Err(err).Msg("database close")
		}
	}()

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.Organization{},
		&model.User{},
		&model.Client{},
		&model.UserClient{},
		&model.Task{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	clientRepo := repository.NewClientRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	grantRepo := repository.NewGrantRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	taskService := service.NewTaskService(taskRepo, grantRepo, userRepo)
	clientService := service.NewClientService(clientRepo, grantRepo, cacheClient)
	userService := service.NewUserService(userRepo, clientRepo, grantRepo)
	reportService := service.NewReportService(taskService)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)
	clientHandler := handler.NewClientHandler(clientService)
	userHandler := handler.NewUserHandler(userService)
	reportHandler := handler.NewReportHandler(reportService)

	// Register routes
	e := echo.New()
	router.Register(
		e,
		cfg,
		gormDB,
		cacheClient,
		authHandler,
		taskHandler,
		clientHandler,
		userHandler,
		reportHandler,
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}
	log.Info().Str("port", cfg.ServerPort).Msg("starting server")

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server start")
	}
}
