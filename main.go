package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"flip-finder/internal/api"
	"flip-finder/internal/config"
	"flip-finder/internal/database"
	"flip-finder/internal/identify"
	"flip-finder/internal/pacing"
	"flip-finder/internal/pipeline"
	"flip-finder/internal/pricehistory"
	"flip-finder/internal/sellability"
	"flip-finder/internal/services/ebay"
	"flip-finder/internal/services/llm"
	"flip-finder/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.LLMAPIKey != "" {
		log.Println("LLM analysis enabled")
	} else {
		log.Println("LLM credential not configured, running heuristics only")
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	store := storage.New(db)

	clock := pacing.RealClock{}
	provider := llm.NewProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	scraper := ebay.NewScraper(cfg.ChromeBin, nil, clock,
		time.Duration(cfg.MarketPaceMs)*time.Millisecond)
	defer scraper.Close()

	identifier := identify.NewIdentifier(provider, clock, nil,
		time.Duration(cfg.BatchPauseMs)*time.Millisecond)
	analyzer := pipeline.NewAnalyzer(identifier, sellability.NewAnalyzer(provider, nil),
		scraper, nil, cfg.LLMMode && provider.Configured(), cfg.ScanConcurrency)
	history := pricehistory.NewService(store, scraper, clock,
		time.Duration(cfg.MarketPaceMs)*time.Millisecond, nil)

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.SetupRoutes(r.Group("/api/v1"), store, analyzer, history)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
