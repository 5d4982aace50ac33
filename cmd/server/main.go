package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloc-editor/auth"
	"bloc-editor/internal/bloc"
	"bloc-editor/internal/config"
	"bloc-editor/internal/db"
	"bloc-editor/internal/logging"
	"bloc-editor/internal/middleware"
	"bloc-editor/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.LoadConfig()
	log := logging.New(config.AppConfig.Environment, config.AppConfig.LogLevel)

	// Connect to database
	if err := db.ConnectDb(log); err != nil {
		log.Fatal().Err(err).Msg("error connecting to db")
	}
	defer db.CloseDb(log)

	// Migrate database schema
	if err := db.Migrate(log); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Seed the welcome page (for development)
	if config.AppConfig.Environment == "development" {
		if err := db.SeedData(context.Background(), log); err != nil {
			log.Error().Err(err).Msg("error seeding data")
		}
	}

	// Initialize Redis
	redis.InitRedis(log)

	// Initialize repository, service and handler
	blocRepo := bloc.NewRepository(db.AppDb)
	blocService := bloc.NewService(blocRepo, redis.NewCache(redis.RedisClient), config.AppConfig.PageCacheTTL, log)
	blocHandler := bloc.NewHandler(blocService)
	bloc.RegisterValidators()

	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.ErrorHandler(log))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{config.AppConfig.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	blocHandler.Register(router.Group("/", auth.AuthMiddleWare()))

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Info().Str("port", serverPort).Msg("server listening")
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server shutdown complete")
}
