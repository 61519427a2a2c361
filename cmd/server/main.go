package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shastraw-ai/clue-story/internal/config"
	"github.com/shastraw-ai/clue-story/internal/database"
	"github.com/shastraw-ai/clue-story/internal/generator"
	"github.com/shastraw-ai/clue-story/internal/handlers"
	"github.com/shastraw-ai/clue-story/internal/repository"
	"github.com/shastraw-ai/clue-story/internal/security"
	"github.com/shastraw-ai/clue-story/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	kidRepo := repository.NewKidRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	storyRepo := repository.NewStoryRepository(db)

	// Initialize the text generator
	gen := generator.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.RequestTimeout)

	// Initialize services
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenDuration)
	authService := service.NewAuthService(userRepo, tokens)
	kidService := service.NewKidService(kidRepo)
	templateService := service.NewTemplateService(templateRepo, gen)
	problemService := service.NewProblemService(problemRepo, gen, rand.New(rand.NewSource(time.Now().UnixNano())))

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	storyService := service.NewStoryService(storyRepo, kidRepo, templateService, problemService, emailService, cfg.DefaultModel)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService)
	kidHandler := handlers.NewKidHandler(kidService)

	// Generation is the expensive path: cap it per user
	generationLimiter := security.NewRateLimiter(5, time.Minute)
	storyHandler := handlers.NewStoryHandler(storyService, generationLimiter)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Account routes
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("PUT /api/auth/settings", middleware.RequireAuth(authHandler.UpdateSettings))

	// Kid profile routes
	mux.HandleFunc("GET /api/kids", middleware.RequireAuth(kidHandler.List))
	mux.HandleFunc("POST /api/kids", middleware.RequireAuth(kidHandler.Create))
	mux.HandleFunc("PUT /api/kids/{id}", middleware.RequireAuth(kidHandler.Update))
	mux.HandleFunc("DELETE /api/kids/{id}", middleware.RequireAuth(kidHandler.Delete))

	// Story routes
	mux.HandleFunc("POST /api/stories", middleware.RequireAuth(storyHandler.Generate))
	mux.HandleFunc("GET /api/stories", middleware.RequireAuth(storyHandler.List))
	mux.HandleFunc("GET /api/stories/{id}", middleware.RequireAuth(storyHandler.Get))
	mux.HandleFunc("DELETE /api/stories/{id}", middleware.RequireAuth(storyHandler.Delete))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // generation requests wait on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
