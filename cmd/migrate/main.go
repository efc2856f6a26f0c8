package main

import (
	"context"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-optimizer/internal/models"
	"github.com/stitts-dev/fpl-optimizer/internal/services"
	"github.com/stitts-dev/fpl-optimizer/pkg/config"
	"github.com/stitts-dev/fpl-optimizer/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command := os.Args[1]; command {
	case "up":
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		// Children first so foreign keys do not block the drop.
		if err := db.Migrator().DropTable(&models.SquadPlayer{}, &models.Squad{}, &models.GameweekResult{}); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		squad, err := services.NewSquadStore(db).CreateTemplate(context.Background(), cfg.DefaultSquadID)
		if err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.WithField("squad_id", squad.ID).Info("Template squad seeded")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
