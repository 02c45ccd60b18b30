// Backfills the embedding column for catalog offerings that do not have one
// yet. Run whenever offerings are imported without vectors.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	database "github.com/FACorreiaa/go-travel-rag/app/db"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/api/embedding"
	"github.com/FACorreiaa/go-travel-rag/internal/api/offering"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, dbConfig.ConnectionURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Connected to database successfully")

	openaiClient := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	embedder := embedding.NewServiceImpl(openaiClient, cfg.Embedding, logger)
	repo := offering.NewRepositoryImpl(dbpool, logger)

	logger.Info("Starting embedding backfill for catalog offerings...")
	if err := generateOfferingEmbeddings(ctx, embedder, repo, logger); err != nil {
		logger.Error("Embedding backfill finished with errors", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Embedding backfill completed!")
}

func generateOfferingEmbeddings(ctx context.Context, embedder embedding.Embedder, repo *offering.RepositoryImpl, logger *slog.Logger) error {
	batchSize := 20
	totalProcessed := 0
	totalErrors := 0

	for {
		offerings, err := repo.GetOfferingsWithoutEmbeddings(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("failed to get offerings without embeddings: %w", err)
		}

		if len(offerings) == 0 {
			break
		}

		logger.Info("Processing batch of offerings", slog.Int("batch_size", len(offerings)))

		for _, o := range offerings {
			vec, err := embedder.Embed(ctx, embeddingText(o))
			if err != nil {
				logger.Error("Failed to generate embedding for offering",
					slog.Any("error", err),
					slog.String("offering_id", o.ID.String()),
					slog.String("offering_name", o.Name))
				totalErrors++
				continue
			}

			if err := repo.UpdateOfferingEmbedding(ctx, o.ID, vec); err != nil {
				logger.Error("Failed to update offering embedding",
					slog.Any("error", err),
					slog.String("offering_id", o.ID.String()),
					slog.String("offering_name", o.Name))
				totalErrors++
				continue
			}

			totalProcessed++
			logger.Debug("Offering embedding generated successfully",
				slog.String("offering_id", o.ID.String()),
				slog.String("offering_name", o.Name))
		}

		if len(offerings) < batchSize {
			break
		}
	}

	logger.Info("Batch embedding generation completed",
		slog.Int("total_processed", totalProcessed),
		slog.Int("total_errors", totalErrors))

	if totalErrors > 0 {
		return fmt.Errorf("embedding backfill completed with %d errors out of %d offerings", totalErrors, totalProcessed+totalErrors)
	}
	return nil
}

// embeddingText renders an offering the same way for indexing as queries are
// embedded for search.
func embeddingText(o types.Offering) string {
	parts := []string{o.Name, string(o.Category)}
	if o.Location != "" {
		parts = append(parts, o.Location)
	}
	if o.Description != "" {
		parts = append(parts, o.Description)
	}
	if len(o.Features) > 0 {
		parts = append(parts, strings.Join(o.Features, ", "))
	}
	return strings.Join(parts, ". ")
}
