package ngram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
)

const (
	// StartTokenID is the reserved vocabulary ID of StartMarker.
	StartTokenID = 0
	// EndTokenID is the reserved vocabulary ID of EndMarker.
	EndTokenID = 1
)

// SetupSchema initializes the necessary tables and reserved vocabulary entries
// in the provided database. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS ngram_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
`
		schemaContexts = `
CREATE TABLE IF NOT EXISTS ngram_contexts (
    context_id INTEGER PRIMARY KEY,
    context_text TEXT NOT NULL UNIQUE
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS ngram_counts (
    entry_id INTEGER PRIMARY KEY,
    context_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    frequency REAL NOT NULL DEFAULT 1.0,
    UNIQUE (context_id, next_token_id)
);
`
	)

	startToken := fmt.Sprintf("INSERT OR IGNORE INTO ngram_vocabulary (token_id, token_text) VALUES (%d, '%s');", StartTokenID, StartMarker)
	endToken := fmt.Sprintf("INSERT OR IGNORE INTO ngram_vocabulary (token_id, token_text) VALUES (%d, '%s');", EndTokenID, EndMarker)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []string{schemaVocab, schemaContexts, schemaCounts} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if _, err = tx.Exec(startToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}
	if _, err = tx.Exec(endToken); err != nil {
		return fmt.Errorf("could not insert special tokens: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLTable is a Table stored in SQLite. Contexts are stored as the
// space-separated vocabulary IDs of their tokens, and families come back in
// insertion order. Callers should give each SQLTable its own database.
type SQLTable struct {
	db *sql.DB

	mu       sync.RWMutex
	vocab    map[Token]int
	contexts map[string]int

	stmtInsertVocab        *sql.Stmt
	stmtGetOrInsertContext *sql.Stmt
	stmtIncrement          *sql.Stmt
	stmtGetContextID       *sql.Stmt
	stmtGetFamily          *sql.Stmt
	stmtGetCount           *sql.Stmt
	stmtCountNGrams        *sql.Stmt
	stmtCountContexts      *sql.Stmt
	stmtTotalFrequency     *sql.Stmt
	stmtLoadVocab          *sql.Stmt
	logger                 *slog.Logger
}

// NewSQLTable prepares all statements against db, whose schema must already
// be set up with SetupSchema, and loads the existing vocabulary.
func NewSQLTable(ctx context.Context, db *sql.DB) (*SQLTable, error) {
	t := &SQLTable{
		db:       db,
		vocab:    make(map[Token]int),
		contexts: make(map[string]int),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&t.stmtInsertVocab, `INSERT INTO ngram_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&t.stmtGetOrInsertContext, `INSERT INTO ngram_contexts (context_text) VALUES (?) ON CONFLICT(context_text) DO UPDATE SET context_text=excluded.context_text RETURNING context_id;`},
		{&t.stmtIncrement, `INSERT INTO ngram_counts (context_id, next_token_id, frequency) VALUES (?, ?, 1.0) ON CONFLICT(context_id, next_token_id) DO UPDATE SET frequency = frequency + 1.0;`},
		{&t.stmtGetContextID, `SELECT context_id FROM ngram_contexts WHERE context_text = ?;`},
		{&t.stmtGetFamily, `SELECT v.token_text, c.frequency FROM ngram_counts c JOIN ngram_vocabulary v ON v.token_id = c.next_token_id WHERE c.context_id = ? ORDER BY c.entry_id;`},
		{&t.stmtGetCount, `SELECT frequency FROM ngram_counts WHERE context_id = ? AND next_token_id = ?;`},
		{&t.stmtCountNGrams, `SELECT COUNT(*) FROM ngram_counts;`},
		{&t.stmtCountContexts, `SELECT COUNT(DISTINCT context_id) FROM ngram_counts;`},
		{&t.stmtTotalFrequency, `SELECT coalesce(SUM(frequency), 0) FROM ngram_counts;`},
		{&t.stmtLoadVocab, `SELECT token_id, token_text FROM ngram_vocabulary;`},
	}
	for _, s := range stmts {
		stmt, err := db.PrepareContext(ctx, s.query)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*s.dst = stmt
	}

	if err := t.loadVocab(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Close releases all prepared statements. The database itself is owned by
// the caller.
func (t *SQLTable) Close() {
	for _, stmt := range []*sql.Stmt{
		t.stmtInsertVocab, t.stmtGetOrInsertContext, t.stmtIncrement,
		t.stmtGetContextID, t.stmtGetFamily, t.stmtGetCount,
		t.stmtCountNGrams, t.stmtCountContexts, t.stmtTotalFrequency,
		t.stmtLoadVocab,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the table. By default, all logs are discarded.
func (t *SQLTable) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

func (t *SQLTable) loadVocab(ctx context.Context) error {
	rows, err := t.stmtLoadVocab.QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("could not load vocabulary: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			return err
		}
		t.vocab[text] = id
	}
	return rows.Err()
}

// Add counts every gram inside a single transaction, flushing increments in
// batches.
func (t *SQLTable) Add(ctx context.Context, grams []NGram) error {
	// batchSize determines how many increments are buffered before being written.
	const batchSize = 1000

	type increment struct {
		contextID   int
		nextTokenID int
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsertVocab := tx.StmtContext(ctx, t.stmtInsertVocab)
	stmtGetOrInsertContext := tx.StmtContext(ctx, t.stmtGetOrInsertContext)
	stmtIncrement := tx.StmtContext(ctx, t.stmtIncrement)

	// Caches are only published once the transaction commits.
	newVocab := make(map[Token]int)
	newContexts := make(map[string]int)

	tokenID := func(tok Token) (int, error) {
		if id, ok := t.vocab[tok]; ok {
			return id, nil
		}
		if id, ok := newVocab[tok]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, tok).Scan(&id); err != nil {
			return 0, fmt.Errorf("sql insert vocabulary error for token '%s': %w", tok, err)
		}
		newVocab[tok] = id
		return id, nil
	}

	batch := make([]increment, 0, batchSize)
	flush := func() error {
		for _, inc := range batch {
			if _, err := stmtIncrement.ExecContext(ctx, inc.contextID, inc.nextTokenID); err != nil {
				return fmt.Errorf("failed during batch increment (%d -> %d): %w", inc.contextID, inc.nextTokenID, err)
			}
		}
		batch = batch[:0]
		return nil
	}

	var keyBuf []byte
	for _, g := range grams {
		keyBuf = keyBuf[:0]
		for j, tok := range g.Context() {
			id, err := tokenID(tok)
			if err != nil {
				return err
			}
			if j > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(id), 10)
		}
		contextKey := string(keyBuf)

		nextID, err := tokenID(g.Last())
		if err != nil {
			return err
		}

		contextID, ok := t.contexts[contextKey]
		if !ok {
			contextID, ok = newContexts[contextKey]
		}
		if !ok {
			if err := stmtGetOrInsertContext.QueryRowContext(ctx, contextKey).Scan(&contextID); err != nil {
				return fmt.Errorf("failed to get or insert context '%s': %w", contextKey, err)
			}
			newContexts[contextKey] = contextID
		}

		batch = append(batch, increment{contextID: contextID, nextTokenID: nextID})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for k, v := range newVocab {
		t.vocab[k] = v
	}
	for k, v := range newContexts {
		t.contexts[k] = v
	}

	t.logger.DebugContext(ctx, "N-grams stored",
		slog.Int("ngrams", len(grams)),
		slog.Int("new_tokens", len(newVocab)),
		slog.Int("new_contexts", len(newContexts)),
	)
	return nil
}

// contextID resolves ctxTokens to a stored context. ok is false when any
// token or the context itself was never added.
func (t *SQLTable) contextID(ctx context.Context, ctxTokens []Token) (id int, ok bool, err error) {
	t.mu.RLock()
	var keyBuf []byte
	for j, tok := range ctxTokens {
		tokenID, known := t.vocab[tok]
		if !known {
			t.mu.RUnlock()
			return 0, false, nil
		}
		if j > 0 {
			keyBuf = append(keyBuf, ' ')
		}
		keyBuf = strconv.AppendInt(keyBuf, int64(tokenID), 10)
	}
	contextKey := string(keyBuf)
	id, ok = t.contexts[contextKey]
	t.mu.RUnlock()
	if ok {
		return id, true, nil
	}

	err = t.stmtGetContextID.QueryRowContext(ctx, contextKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not get context ID for '%s': %w", contextKey, err)
	}
	return id, true, nil
}

// Family returns the entries following ctxTokens ordered by first insertion.
func (t *SQLTable) Family(ctx context.Context, ctxTokens []Token) ([]Entry, error) {
	contextID, ok, err := t.contextID(ctx, ctxTokens)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Entry{}, nil
	}

	rows, err := t.stmtGetFamily.QueryContext(ctx, contextID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	family := []Entry{}
	for rows.Next() {
		var e Entry
		if err = rows.Scan(&e.Next, &e.Count); err != nil {
			return nil, err
		}
		family = append(family, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return family, nil
}

// Count returns the stored frequency of gram, or 0 when it is absent.
func (t *SQLTable) Count(ctx context.Context, gram NGram) (float64, error) {
	contextID, ok, err := t.contextID(ctx, gram.Context())
	if err != nil || !ok {
		return 0, err
	}
	t.mu.RLock()
	nextID, known := t.vocab[gram.Last()]
	t.mu.RUnlock()
	if !known {
		return 0, nil
	}

	var freq float64
	err = t.stmtGetCount.QueryRowContext(ctx, contextID, nextID).Scan(&freq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("could not get count for %s: %w", gram, err)
	}
	return freq, nil
}

// Stats returns aggregated counts for the table.
func (t *SQLTable) Stats(ctx context.Context) (TableStats, error) {
	var stats TableStats
	if err := t.stmtCountNGrams.QueryRowContext(ctx).Scan(&stats.NGrams); err != nil {
		return TableStats{}, err
	}
	if err := t.stmtCountContexts.QueryRowContext(ctx).Scan(&stats.Contexts); err != nil {
		return TableStats{}, err
	}
	if err := t.stmtTotalFrequency.QueryRowContext(ctx).Scan(&stats.TotalFrequency); err != nil {
		return TableStats{}, err
	}
	return stats, nil
}
