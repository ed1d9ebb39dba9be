package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fadedpez/kolovegas/pkg/db/migrations"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	migrationsDir := createCmd.String("dir", "migrations", "Directory to store migrations")

	dbPath := migrateCmd.String("db", "data/kolovegas.db", "Path to SQLite database")
	migrateDir := migrateCmd.String("dir", "migrations", "Directory containing extra migrations")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create":
		createCmd.Parse(os.Args[2:])
		if createCmd.NArg() < 1 {
			fmt.Println("Error: Missing migration description")
			createCmd.Usage()
			os.Exit(1)
		}
		createNewMigration(*migrationsDir, createCmd.Arg(0))

	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		applyMigrations(*dbPath, *migrateDir)

	case "help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func createNewMigration(dir, description string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create migrations directory: %v", err)
	}

	version := time.Now().Format("20060102150405")
	name := fmt.Sprintf("%s_%s.sql", version, sanitize(description))
	path := filepath.Join(dir, name)

	content := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n", description, time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("Failed to write migration file: %v", err)
	}

	fmt.Printf("Created migration %s\n", path)
}

func applyMigrations(dbPath, dir string) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := migrations.NewMigrator(db, dir).MigrateUp(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Println("Migrations applied successfully")
}

func sanitize(description string) string {
	out := make([]rune, 0, len(description))
	for _, r := range description {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ', r == '-', r == '_':
			out = append(out, '_')
		}
	}
	return string(out)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migration create [-dir DIR] \"description\"   Create a new migration file")
	fmt.Println("  migration migrate [-db PATH] [-dir DIR]      Apply pending migrations")
	fmt.Println("  migration help                               Show this help")
}
