package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stemsi/exstem-prep/internal/config"
)

func main() {
	var driver, migrationDir string
	flag.StringVar(&driver, "driver", "", "Storage driver: sqlite or postgres (default STORAGE_DRIVER)")
	flag.StringVar(&migrationDir, "path", "", "Path to migration files (default migrations/<driver>)")
	flag.Parse()

	// Load config; the marking file is irrelevant here.
	cfg, _ := config.Load()
	if driver == "" {
		driver = cfg.StorageKind
	}
	if migrationDir == "" {
		migrationDir = "migrations/" + driver
	}

	dbURL, err := databaseURL(cfg, driver)
	if err != nil {
		log.Fatal(err)
	}

	sourceURL := fmt.Sprintf("file://%s", migrationDir)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		log.Fatalf("Migration failed to initialize: %v", err)
	}
	defer m.Close()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Up failed: %v", err)
		}
		fmt.Println("Migrated up successfully")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Down failed: %v", err)
		}
		fmt.Println("Migrated down successfully")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Version failed: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
	case "force":
		if len(args) < 2 {
			log.Fatal("force requires version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version: %v", err)
		}
		if err := m.Force(v); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		fmt.Printf("Forced version to %d\n", v)
	default:
		printUsage()
	}
}

func databaseURL(cfg *config.Config, driver string) (string, error) {
	switch driver {
	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return "", errors.New("DATABASE_URL is not set")
		}
		return cfg.DatabaseURL, nil
	case config.StorageSQLite:
		return "sqlite://" + cfg.SQLitePath, nil
	default:
		return "", fmt.Errorf("unknown driver %q", driver)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
