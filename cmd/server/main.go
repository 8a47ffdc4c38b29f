package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/telepresence-hub/backend/api/handlers"
	"github.com/telepresence-hub/backend/internal/db"
	"github.com/telepresence-hub/backend/internal/directory"
	"github.com/telepresence-hub/backend/internal/dispatch"
	"github.com/telepresence-hub/backend/internal/registry"
	"github.com/telepresence-hub/backend/internal/relay"
	"github.com/telepresence-hub/backend/internal/repository"
	"github.com/telepresence-hub/backend/internal/room"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/hub.db")
	assetDir := getEnv("ASSET_DIR", "data/assets")
	directoryURL := getEnv("DIRECTORY_BASE_URL", "https://graph.microsoft.com/v1.0")
	directoryToken := getEnv("DIRECTORY_TOKEN", "")

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		log.Fatalf("Failed to create asset directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repositories
	robotRepo := repository.NewRobotRepository(database)
	actionRepo := repository.NewActionRepository(database)
	inviteRepo := repository.NewInviteRepository(database)
	driverRepo := repository.NewDriverRepository(database)

	// Initialize the session coordination layer
	identityRegistry := registry.New()
	roomManager := room.NewManager()
	actionBridge := dispatch.NewBridge(actionRepo)
	directoryAdapter := directory.NewAdapter(directoryURL, directoryToken)

	relayService := relay.NewService(identityRegistry, roomManager, actionBridge, directoryAdapter)
	defer relayService.Close()

	// Initialize handlers
	robotHandler := handlers.NewRobotHandler(robotRepo, identityRegistry)
	actionHandler := handlers.NewActionHandler(actionRepo, assetDir)
	inviteHandler := handlers.NewInviteHandler(inviteRepo)
	driverHandler := handlers.NewDriverHandler(driverRepo, inviteRepo)
	socketHandler := handlers.NewSocketHandler(relayService.Handler())

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Static AR assets (fiducial markers, action icons)
	r.Static("/assets", assetDir)

	// API routes
	api := r.Group("/api")
	{
		robotHandler.RegisterRoutes(api)
		actionHandler.RegisterRoutes(api)
		inviteHandler.RegisterRoutes(api)
		driverHandler.RegisterRoutes(api)
		socketHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		relayService.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
