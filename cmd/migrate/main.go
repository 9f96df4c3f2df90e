// Command migrate applies the schema to a report database and imports report
// JSON files (as written by `pairstat-cli export`) found under a directory.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pairstat/adapters/postgres"
	"pairstat/domain/core"
	"pairstat/domain/study"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [report_dir]")
	}

	databaseURL := os.Args[1]
	ctx := context.Background()

	db, err := postgres.Open(ctx, "postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("Schema is up to date")

	if len(os.Args) < 3 {
		return
	}
	reportDir := os.Args[2]
	repo := postgres.NewReportRepository(db)

	files, err := findReportFiles(reportDir)
	if err != nil {
		log.Fatalf("Failed to find report files: %v", err)
	}
	log.Printf("Found %d report files to import", len(files))

	imported, skipped := 0, 0
	for _, file := range files {
		report, err := loadReportFromFile(file)
		if err != nil {
			log.Printf("Failed to load report from %s: %v", file, err)
			skipped++
			continue
		}
		if err := repo.Save(ctx, report); err != nil {
			log.Printf("Failed to save report %s: %v", report.ID, err)
			skipped++
			continue
		}
		imported++
		log.Printf("Imported report %s from %s", report.ID, filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findReportFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func loadReportFromFile(path string) (*study.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var report study.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if _, err := core.ParseReportID(string(report.ID)); err != nil {
		return nil, err
	}
	return &report, nil
}
