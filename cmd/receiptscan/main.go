// Command receiptscan parses one German grocery receipt (as extracted text),
// links its items to the product catalog and prints the structured result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kassenblick/kassenblick/internal/domain/catalog"
	"github.com/kassenblick/kassenblick/internal/domain/match"
	"github.com/kassenblick/kassenblick/internal/domain/purchase"
	"github.com/kassenblick/kassenblick/internal/domain/receipt"
	"github.com/kassenblick/kassenblick/pkg/config"
	"github.com/kassenblick/kassenblick/pkg/db"
	"github.com/kassenblick/kassenblick/pkg/storage"
)

func main() {
	var (
		inputPath   = flag.String("input", "", "path to the receipt text file (required)")
		usePostgres = flag.Bool("db", false, "use PostgreSQL instead of the in-memory catalog")
		xlsxPath    = flag.String("xlsx", "", "write the linked purchases to this XLSX file")
		userIDFlag  = flag.String("user", "", "user ID to record purchases under (default: random)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*inputPath, *usePostgres, *xlsxPath, *userIDFlag, logger); err != nil {
		logger.Error("receiptscan failed", "error", err)
		os.Exit(1)
	}
}

func run(inputPath string, usePostgres bool, xlsxPath, userIDFlag string, logger *slog.Logger) error {
	if inputPath == "" {
		return fmt.Errorf("-input is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userID := uuid.New()
	if userIDFlag != "" {
		userID, err = uuid.Parse(userIDFlag)
		if err != nil {
			return fmt.Errorf("parse user ID: %w", err)
		}
	}

	rawText, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read receipt text: %w", err)
	}

	ctx := context.Background()

	catalogStore, purchaseStore, cleanup, err := openStores(cfg, usePostgres, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Processing.SeedPath != "" {
		if err := seedCatalog(ctx, cfg.Processing.SeedPath, catalogStore, logger); err != nil {
			return err
		}
	}

	if cfg.Processing.ArchiveDir != "" {
		archive, err := storage.NewLocalArchive(cfg.Processing.ArchiveDir)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		info, err := archive.Store(ctx, userID, filepath.Base(inputPath), "text/plain", bytes.NewReader(rawText))
		if err != nil {
			return fmt.Errorf("archive receipt: %w", err)
		}
		logger.Info("receipt archived", "document_id", info.ID, "path", info.Path)
	}

	parser := receipt.NewParser(logger)
	rec := parser.Parse(string(rawText))

	matcher := match.NewMatcher(catalogStore, logger)
	linker := purchase.NewLinker(matcher, catalogStore, purchaseStore, logger).
		WithThreshold(cfg.Matching.Threshold)

	batch, err := linker.ProcessReceiptItems(ctx, rec, uuid.New(), userID, cfg.Matching.AutoCreate)
	if err != nil {
		return fmt.Errorf("link items: %w", err)
	}

	if xlsxPath != "" {
		data, err := purchase.ExportBatchXLSX(batch)
		if err != nil {
			return fmt.Errorf("export batch: %w", err)
		}
		if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		logger.Info("batch exported", "path", xlsxPath)
	}

	return printResult(rec, batch)
}

func openStores(cfg *config.Config, usePostgres bool, logger *slog.Logger) (catalog.Store, purchase.Store, func(), error) {
	if !usePostgres {
		return catalog.NewMemoryStore(), purchase.NewMemoryStore(), func() {}, nil
	}

	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return catalog.NewPostgresStore(database.Pool), purchase.NewPostgresStore(database.Pool), database.Close, nil
}

func seedCatalog(ctx context.Context, path string, store catalog.Store, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	created, err := catalog.LoadSeed(ctx, f, store, logger)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info("catalog seeded", "created", created)
	return nil
}

func printResult(rec *receipt.ExtractedReceipt, batch *purchase.BatchResult) error {
	out := struct {
		Receipt *receipt.ExtractedReceipt `json:"receipt"`
		Linking *purchase.BatchResult     `json:"linking"`
	}{rec, batch}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
