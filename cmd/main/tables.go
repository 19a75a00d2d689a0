package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CTAG07/ngramgen/pkg/corpus"
	"github.com/CTAG07/ngramgen/pkg/ngram"
	"github.com/google/uuid"
)

// sqliteTables returns a TableFactory that gives every pipeline its own
// private SQLite database. dsnTemplate must contain "{id}".
func sqliteTables(dsnTemplate string, logger *slog.Logger) corpus.TableFactory {
	return func(ctx context.Context) (ngram.Table, func(), error) {
		dsn := strings.ReplaceAll(dsnTemplate, "{id}", uuid.NewString())

		db, err := initDB(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		// A private in-memory database only lives as long as a connection to it.
		db.SetMaxOpenConns(1)

		if err = ngram.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		table, err := ngram.NewSQLTable(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		table.SetLogger(logger)

		logger.DebugContext(ctx, "Opened private database", slog.String("driver", sqliteDriver), slog.String("dsn", dsn))
		release := func() {
			table.Close()
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", slog.String("dsn", dsn), slog.Any("error", err))
			}
		}
		return table, release, nil
	}
}

// tableFactory maps a backend name to its TableFactory.
func tableFactory(cfg *GeneratorConfig, logger *slog.Logger) (corpus.TableFactory, error) {
	switch cfg.Backend {
	case backendMemory:
		return corpus.MemoryTables, nil
	case backendSQLite:
		return sqliteTables(cfg.SQLiteDSNTemplate, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
