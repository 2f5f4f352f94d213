// Command loaddata imports the ingredient and tag catalogues from JSON
// files. Rows that already exist are skipped.
//
//	loaddata -ingredients data/ingredients.json -tags data/tags.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.json", "ingredients JSON file, empty to skip")
	tagsPath := flag.String("tags", "data/tags.json", "tags JSON file, empty to skip")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx := context.Background()
	reference := service.NewReferenceService(db)

	if *ingredientsPath != "" {
		ingredients, err := readList[models.Ingredient](*ingredientsPath)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to read ingredients")
		}
		added, err := reference.ImportIngredients(ctx, ingredients)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to import ingredients")
		}
		logging.Info().Int("read", len(ingredients)).Int64("inserted", added).Msg("ingredients imported")
	}

	if *tagsPath != "" {
		tags, err := readList[models.Tag](*tagsPath)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to read tags")
		}
		added, err := reference.ImportTags(ctx, tags)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to import tags")
		}
		logging.Info().Int("read", len(tags)).Int64("inserted", added).Msg("tags imported")
	}
}

// readList decodes a JSON array of items from path
func readList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file not readable %s: %w", path, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON list in %s: %w", path, err)
	}
	return items, nil
}
