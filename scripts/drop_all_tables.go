package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"fileflow/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	// TABLE_PREFIX wins, otherwise the prefix follows ENVIRONMENT
	prefix := os.Getenv("TABLE_PREFIX")
	if prefix == "" {
		env := os.Getenv("ENVIRONMENT")
		if env == "" {
			env = "dev"
		}
		prefix = env + "_"
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := postgres.DropSchema(ctx, pool, postgres.NewTableNames(prefix)); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}

	fmt.Printf("All tables dropped successfully (prefix: %s)\n", prefix)
}
