// Package main provides the operator CLI for deployment and operations tasks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/serenia/internal/cache"
	"github.com/easeaico/serenia/internal/config"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/storage"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		migrateCmd(os.Args[2:])
	case "schema":
		schemaCmd(os.Args[2:])
	case "validate":
		validateCmd()
	case "score":
		scoreCmd(os.Args[2:])
	case "version":
		fmt.Printf("serenia operator v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`serenia operator - Deployment and operations CLI

Usage:
  operator <command> [flags]

Commands:
  migrate     Create the vector extension and application tables
  schema      Execute SQL migration files from migrations/ directory
  validate    Validate environment configuration and connectivity
  score       Score a text for anxiety and crisis signals
  version     Show version information
  help        Show this help message

Examples:
  operator migrate                     # Run all migrations
  operator migrate --dry-run           # Show what would be migrated
  operator schema                      # Execute all SQL files in migrations/
  operator schema --file 001_init.sql  # Execute a specific migration file
  operator validate                    # Check env vars, Postgres and Redis
  operator score --text "I can't sleep" --classifier-score 0.7`)
}

// migrateCmd handles the migrate command.
func migrateCmd(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Show what would be migrated without executing")
	_ = fs.Parse(args)

	cfg := loadConfigForOperator()

	if *dryRun {
		fmt.Println("Dry run mode - no changes will be made")
		fmt.Println("  - Would create extension vector")
		fmt.Println("  - Would migrate application tables (users, conversations, messages)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	fmt.Println("Migrating application tables...")
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate app tables: %v", err)
	}
	fmt.Println("  ✓ Application tables migrated")

	fmt.Println("\nMigration completed successfully!")
}

// schemaCmd handles the schema command for executing SQL files.
func schemaCmd(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	file := fs.String("file", "", "Specific migration file to execute")
	migrationsDir := fs.String("dir", "migrations", "Directory containing migration files")
	dryRun := fs.Bool("dry-run", false, "Show what would be executed without running")
	_ = fs.Parse(args)

	cfg := loadConfigForOperator()

	files, err := findMigrationFiles(*migrationsDir, *file)
	if err != nil {
		log.Fatalf("failed to find migration files: %v", err)
	}

	if len(files) == 0 {
		fmt.Println("No migration files found")
		return
	}

	fmt.Printf("Found %d migration file(s):\n", len(files))
	for _, f := range files {
		fmt.Printf("  - %s\n", filepath.Base(f))
	}

	if *dryRun {
		fmt.Println("\nDry run mode - no SQL will be executed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	fmt.Println("\nExecuting migrations...")
	for _, f := range files {
		fmt.Printf("  Running %s... ", filepath.Base(f))
		if err := executeSQLFile(store.DB().WithContext(ctx), f); err != nil {
			fmt.Println("✗")
			log.Fatalf("failed to execute %s: %v", f, err)
		}
		fmt.Println("✓")
	}

	fmt.Println("\nSchema migration completed successfully!")
}

// validateCmd validates the configuration and the backing services.
func validateCmd() {
	fmt.Println("Validating configuration...")

	cfg, err := config.Parse()
	for _, s := range cfg.Settings() {
		value := s.Value
		if s.Secret {
			value = config.Mask(value)
		}
		if value == "" {
			value = "(unset)"
		}
		fmt.Printf("  - %s: %s\n", s.Name, value)
	}
	if err != nil {
		fmt.Printf("\n  ✗ %v\n", err)
		fmt.Println("\nConfiguration validation failed!")
		os.Exit(1)
	}
	if cfg.LLMAPIKey == "" {
		fmt.Println("  ! No LLM API key: the server will use template replies and skip emotion classification")
	}
	if cfg.RecallEnabled && cfg.GoogleAPIKey == "" {
		fmt.Println("  ! GOOGLE_API_KEY not set: message recall will be disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\nTesting database connection...")
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("  ✗ Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	fmt.Println("  ✓ Database connection successful")

	hasVector, err := store.HasVectorExtension(ctx)
	switch {
	case err != nil:
		fmt.Printf("  ! Failed to check extensions: %v\n", err)
	case hasVector:
		fmt.Println("  ✓ pgvector extension installed")
	default:
		fmt.Println("  ! pgvector extension not installed (run `operator migrate`)")
	}

	if cfg.RedisURL != "" {
		fmt.Println("\nTesting redis connection...")
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			fmt.Printf("  ✗ %v\n", err)
			os.Exit(1)
		}
		_ = client.Close()
		fmt.Println("  ✓ Redis connection successful")
	}

	fmt.Println("\nConfiguration validation completed!")
}

// scoreCmd prints the anxiety and crisis signals of a text as JSON.
func scoreCmd(args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	text := fs.String("text", "", "Text to score")
	classifierScore := fs.Float64("classifier-score", 0, "External anxiety probability in [0,1]")
	_ = fs.Parse(args)

	if strings.TrimSpace(*text) == "" {
		log.Fatal("--text is required")
	}

	anxiety := severity.NewAnxietyScorer().Score(*text, *classifierScore)
	out := struct {
		Anxiety         severity.AnxietySignal `json:"anxiety"`
		Crisis          severity.CrisisSignal  `json:"crisis"`
		Recommendations []string               `json:"recommendations"`
	}{
		Anxiety:         anxiety,
		Crisis:          severity.NewCrisisScorer(severity.DefaultResources()).Score(*text),
		Recommendations: severity.AnxietyRecommendations(anxiety.Severity),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
}

// loadConfigForOperator loads config with relaxed validation for operator commands.
func loadConfigForOperator() config.Config {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	return config.Config{
		DatabaseURL: dbURL,
	}
}

func findMigrationFiles(dir, specificFile string) ([]string, error) {
	if specificFile != "" {
		fullPath := filepath.Join(dir, specificFile)
		if _, err := os.Stat(fullPath); err != nil {
			return nil, fmt.Errorf("migration file not found: %s", fullPath)
		}
		return []string{fullPath}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}

func executeSQLFile(db *gorm.DB, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := db.Exec(string(content)).Error; err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	return nil
}
