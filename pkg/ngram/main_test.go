package ngram

import (
	"context"
	"database/sql"
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates a new SQLite database file with the ngram schema and an
// SQLTable over it. It uses t.Cleanup to ensure resources are released.
func setupTestDB(t testing.TB) (*sql.DB, *SQLTable) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	table, err := NewSQLTable(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLTable() error = %v", err)
	}
	t.Cleanup(table.Close)

	return db, table
}

// newSeededModel returns a model with a fixed random source.
func newSeededModel(t testing.TB, n int, opts ...ModelOption) *Model {
	opts = append([]ModelOption{WithRand(rand.New(rand.NewPCG(7, 11)))}, opts...)
	m, err := NewModel(n, opts...)
	if err != nil {
		t.Fatalf("NewModel(%d) error = %v", n, err)
	}
	return m
}

// setupTrainedModel is a convenience helper that trains a model on a small corpus.
func setupTrainedModel(t testing.TB, n int, text string, opts ...ModelOption) (context.Context, *Model) {
	ctx := context.Background()
	m := newSeededModel(t, n, opts...)
	if _, _, err := m.TrainText(ctx, NewDefaultTokenizer(), text); err != nil {
		t.Fatalf("setup: TrainText() failed: %v", err)
	}
	return ctx, m
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString(" ")
		}
		benchmarkCorpus = strings.ReplaceAll(sb.String(), "\n", " ")
	})
	return benchmarkCorpus
}
