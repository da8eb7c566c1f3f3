package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"flip-finder/internal/config"
	"flip-finder/internal/database"
	"flip-finder/internal/identify"
	"flip-finder/internal/models"
	"flip-finder/internal/pacing"
	"flip-finder/internal/pipeline"
	"flip-finder/internal/report"
	"flip-finder/internal/sellability"
	"flip-finder/internal/services/ebay"
	"flip-finder/internal/services/llm"
	"flip-finder/internal/services/mercari"
	"flip-finder/internal/storage"
)

var (
	inputFile   = flag.String("input", "", "path to a JSON file of raw listings")
	platform    = flag.String("platform", "manual", "platform the listings came from")
	keywords    = flag.String("keywords", "", "search Mercari for listings instead of reading a file")
	maxPrice    = flag.Float64("max-price", 0, "maximum asking price for Mercari search")
	llmMode     = flag.Bool("llm", true, "run the LLM identification and sellability stages")
	exportPath  = flag.String("export", "", "write opportunities to an xlsx report at this path")
	concurrency = flag.Int("concurrency", 3, "parallel listing analyses")
	dryRun      = flag.Bool("dry-run", false, "analyze without writing to the database")
	timeoutMin  = flag.Int("timeout", 30, "overall scan timeout in minutes")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	logger := log.New(os.Stdout, "[Scan] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutMin)*time.Minute)
	defer cancel()

	raws, err := loadListings(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Load listings: %v", err)
	}
	if len(raws) == 0 {
		logger.Println("No listings to analyze")
		return
	}
	logger.Printf("Analyzing %d listings from %s", len(raws), *platform)

	var store storage.Store = storage.NotImplemented()
	if !*dryRun {
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Database: %v", err)
		}
		store = storage.New(db)
	}

	clock := pacing.RealClock{}
	provider := llm.NewProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	scraper := ebay.NewScraper(cfg.ChromeBin, logger, clock,
		time.Duration(cfg.MarketPaceMs)*time.Millisecond)
	defer scraper.Close()

	identifier := identify.NewIdentifier(provider, clock, logger,
		time.Duration(cfg.BatchPauseMs)*time.Millisecond)
	analyzer := pipeline.NewAnalyzer(identifier,
		sellability.NewAnalyzer(provider, logger), scraper, logger,
		*llmMode && provider.Configured(), *concurrency)

	analyzed := analyzer.AnalyzeAll(ctx, *platform, raws)
	pipeline.SortListings(analyzed)

	stored := make([]models.Listing, 0, len(analyzed))
	for _, al := range analyzed {
		row := pipeline.FormatForStorage(al)
		if !*dryRun {
			if err := store.UpsertListing(ctx, &row); err != nil {
				logger.Printf("Store %s/%s: %v", row.Platform, row.ExternalID, err)
				continue
			}
		}
		stored = append(stored, row)
	}

	printSummary(logger, pipeline.Summarize(analyzed))

	if *exportPath != "" {
		opportunities := make([]models.Listing, 0, len(stored))
		for _, l := range stored {
			if l.IsOpportunity {
				opportunities = append(opportunities, l)
			}
		}
		if err := report.WriteOpportunities(*exportPath, opportunities); err != nil {
			logger.Fatalf("Export report: %v", err)
		}
		logger.Printf("Report written to %s (%d opportunities)", *exportPath, len(opportunities))
	}
}

func loadListings(ctx context.Context, cfg *config.Config, logger *log.Logger) ([]models.RawListing, error) {
	if *keywords != "" {
		client := mercari.NewClient(cfg.MercariAPIKey, logger)
		items := client.Search(ctx, mercari.SearchParams{
			Keywords: *keywords,
			MaxPrice: *maxPrice,
		})
		raws := make([]models.RawListing, 0, len(items))
		for _, it := range items {
			raws = append(raws, mercari.NormalizeListing(it))
		}
		*platform = "mercari"
		return raws, nil
	}

	if *inputFile == "" {
		return nil, fmt.Errorf("either -input or -keywords is required")
	}
	data, err := os.ReadFile(*inputFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", *inputFile, err)
	}
	var raws []models.RawListing
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse %s: %w", *inputFile, err)
	}
	return raws, nil
}

func printSummary(logger *log.Logger, s models.ScanSummary) {
	logger.Printf("Scan complete: %d listings, %d opportunities, avg score %.1f, potential profit $%.2f",
		s.TotalListings, s.TotalOpportunities, s.AverageScore, s.TotalPotentialProfit)
	for cat, n := range s.CategoryCounts {
		logger.Printf("  %s: %d", cat, n)
	}
	if s.BestOpportunity != nil {
		logger.Printf("Best: %q at $%.2f (score %d, est. value $%.2f)",
			s.BestOpportunity.Raw.Title, s.BestOpportunity.Raw.AskingPrice,
			s.BestOpportunity.Estimate.ValueScore, s.BestOpportunity.Estimate.EstimatedValue)
	}
}
