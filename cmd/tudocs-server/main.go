package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/tudocs/tudocs/pkg/tudocs/auth"
	"github.com/tudocs/tudocs/pkg/tudocs/database"
	"github.com/tudocs/tudocs/pkg/tudocs/documents"
	"github.com/tudocs/tudocs/pkg/tudocs/models"
	"github.com/tudocs/tudocs/pkg/tudocs/organizations"
)

// @title tudocs API
// @version 1.0
// @description Multi-tenant documentation platform: organizations own trees of documents, members hold per-organization roles.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	// Get database path from environment or use default
	dbPath := os.Getenv("TUDOCS_DB_PATH")
	if dbPath == "" {
		dbPath = "tudocs.db"
	}

	// Connect to database
	db, err := database.Connect(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "tudocs",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Everything below requires a verified user
		protected := api.Group("", auth.AuthMiddleware())

		// Organization routes, plus member and invitation management
		orgsHandler := organizations.NewHandler(db)
		orgsGroup := protected.Group("/organizations")
		orgsHandler.RegisterRoutes(orgsGroup)
		orgsHandler.RegisterMemberRoutes(orgsGroup)
		orgsHandler.RegisterInvitationRoutes(orgsGroup)
		orgsHandler.RegisterAcceptRoute(protected)

		// Document routes: org-scoped listing/creation plus direct access
		docsHandler := documents.NewHandler(db)
		docsHandler.RegisterOrgRoutes(orgsGroup)
		docsHandler.RegisterRoutes(protected.Group("/documents"))
	}

	// Get listen address from environment or use default
	addr := os.Getenv("TUDOCS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Printf("Starting tudocs server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
