package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"cardhub/internal/catalog"
	"cardhub/internal/scraper"
	"cardhub/pkg/database"
	"cardhub/pkg/models"
	"cardhub/pkg/utils"
)

// One-shot scrape: runs the pipeline against the configured wiki and
// prints the run report as JSON.
func main() {
	typesFlag := flag.String("types", "", "comma-separated entity types to scrape (faction,set,base,card); empty runs all")
	flag.Parse()

	utils.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	cfg := utils.LoadScrapeConfig()
	client := scraper.NewClient(cfg, log)
	repo := catalog.NewRepo(db)

	orch := scraper.NewOrchestrator(
		repo,
		nil,
		cfg.RunTimeout,
		log,
		scraper.NewFactionExtractor(client, log),
		scraper.NewSetExtractor(client, log),
		scraper.NewBaseExtractor(client, log),
		scraper.NewCardExtractor(client, repo, cfg.Workers, log),
	)

	var types []models.EntityType
	if *typesFlag != "" {
		for _, s := range strings.Split(*typesFlag, ",") {
			t, ok := models.ParseEntityType(strings.TrimSpace(s))
			if !ok {
				log.Fatalf("unknown entity type %q", s)
			}
			types = append(types, t)
		}
	}

	report, err := orch.Run(context.Background(), types...)
	if err != nil {
		log.Fatalf("scrape run failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}

	if !report.Succeeded() {
		os.Exit(1)
	}
}
