// Command sweep_orphans reports asset files under the storage root that no
// application or icon record references. With -delete it removes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/huangang/appcatalog/backend/internal/config"
	"github.com/huangang/appcatalog/backend/internal/models"
	"github.com/huangang/appcatalog/backend/internal/services"
	"github.com/huangang/appcatalog/backend/internal/storage"
	"github.com/huangang/appcatalog/backend/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	remove := flag.Bool("delete", false, "delete orphaned files instead of only listing them")
	grace := flag.Duration("grace", time.Hour, "skip files modified more recently than this")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	db, err := models.Open(&cfg.Database, gormlogger.Warn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	sweeper := services.NewOrphanSweeper(db, storage.New(cfg.Storage.Root))
	report, err := sweeper.Sweep(context.Background(), *grace, *remove)
	if err != nil {
		logger.Fatalf("Sweep failed: %v", err)
	}

	fmt.Printf("Scanned %d files under %s\n", report.Scanned, cfg.Storage.Root)
	if len(report.Orphans) == 0 {
		fmt.Println("No orphaned files found.")
		return
	}

	fmt.Printf("%d orphaned files:\n", len(report.Orphans))
	for _, p := range report.Orphans {
		fmt.Println("  " + p)
	}
	if *remove {
		fmt.Printf("Removed %d files.\n", report.Removed)
	} else {
		fmt.Println("Dry run; pass -delete to remove them.")
	}
}
