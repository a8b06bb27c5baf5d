package main

import (
	"fmt"
	"os"

	"ecochain/config"
	"ecochain/database"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run tools/migrate.go migrate - Create or update tables and indexes")
		fmt.Println("  go run tools/migrate.go dsn     - Print the connection string (password masked)")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("⚠️  No .env file loaded: %v\n", err)
	}

	switch os.Args[1] {
	case "migrate":
		if cfg.StoreDriver != config.DriverPostgres {
			fmt.Printf("Nothing to migrate for STORE_DRIVER=%s\n", cfg.StoreDriver)
			return
		}
		fmt.Println("🚀 Running database migrations...")
		// InitDB migrates on connect.
		db, err := database.InitDB(cfg.Postgres, false)
		if err != nil {
			fmt.Printf("❌ Migration failed: %v\n", err)
			os.Exit(1)
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		fmt.Println("✅ Migration completed successfully!")

	case "dsn":
		masked := cfg.Postgres
		if masked.Password != "" {
			masked.Password = "****"
		}
		fmt.Println(database.DSN(masked))

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Available commands: migrate, dsn")
	}
}
