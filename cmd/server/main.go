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

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/internal/database"
	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/router"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		utils.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", "console")
		return err
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	utils.InitJWT(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.DBHost, "name": cfg.DBName})

	if cfg.DBAutoMigrate {
		if err := database.ApplySchema(ctx, db, cfg.DBSchemaPath); err != nil {
			return err
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		publisher = rabbit
		utils.LogInfo("Event publishing enabled", map[string]interface{}{"exchange": cfg.EventsExchange})
	}
	defer publisher.Close()

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", utils.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{utils.RequestIDHeader}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if err := router.Setup(engine, db, cfg, publisher); err != nil {
		return fmt.Errorf("setting up routes: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		utils.LogInfo("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
