package ngram

import (
	"context"
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestSetupSchemaIsIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := SetupSchema(db); err != nil {
		t.Fatalf("second SetupSchema() failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM ngram_vocabulary").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected only the 2 reserved tokens, got %d", count)
	}
}

func TestSQLTableCounts(t *testing.T) {
	db, table := setupTestDB(t)
	ctx := context.Background()

	grams := []NGram{
		{StartMarker, "a"},
		{"a", "b"},
		{"a", "b"},
		{"a", "c"},
		{"b", EndMarker},
	}
	if err := table.Add(ctx, grams); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	count, err := table.Count(ctx, NGram{"a", "b"})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count of (a, b) = %v, want 2", count)
	}
	if count, _ = table.Count(ctx, NGram{"a", "zzz"}); count != 0 {
		t.Errorf("count of unseen n-gram = %v, want 0", count)
	}

	// Reserved markers keep their fixed IDs.
	var endID int
	if err := db.QueryRow("SELECT token_id FROM ngram_vocabulary WHERE token_text = ?", EndMarker).Scan(&endID); err != nil {
		t.Fatal(err)
	}
	if endID != EndTokenID {
		t.Errorf("end marker id = %d, want %d", endID, EndTokenID)
	}

	family, err := table.Family(ctx, []Token{"a"})
	if err != nil {
		t.Fatalf("Family() failed: %v", err)
	}
	expected := []Entry{{Next: "b", Count: 2}, {Next: "c", Count: 1}}
	if !reflect.DeepEqual(family, expected) {
		t.Errorf("Family(a) = %+v, want %+v", family, expected)
	}

	family, err = table.Family(ctx, []Token{"never"})
	if err != nil {
		t.Fatalf("Family() for unseen context failed: %v", err)
	}
	if len(family) != 0 {
		t.Errorf("expected empty family for unseen context, got %+v", family)
	}

	stats, err := table.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats != (TableStats{NGrams: 4, Contexts: 3, TotalFrequency: 5}) {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestSQLTableReloadsVocabulary(t *testing.T) {
	db, table := setupTestDB(t)
	ctx := context.Background()

	if err := table.Add(ctx, []NGram{{"x", "y"}}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLTable(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLTable() failed: %v", err)
	}
	defer reopened.Close()

	family, err := reopened.Family(ctx, []Token{"x"})
	if err != nil {
		t.Fatal(err)
	}
	if len(family) != 1 || family[0].Next != "y" {
		t.Errorf("reopened table family = %+v", family)
	}
}

func TestTableBackendsAgree(t *testing.T) {
	text := "the cat sat on the mat. the dog sat on the log. the cat saw the dog! did the dog see the cat?"
	ctx := context.Background()

	for _, n := range []int{1, 2, 3} {
		_, sqlTable := setupTestDB(t)

		memModel, err := NewModel(n, WithRand(rand.New(rand.NewPCG(3, 5))))
		if err != nil {
			t.Fatal(err)
		}
		sqlModel, err := NewModel(n, WithTable(sqlTable), WithRand(rand.New(rand.NewPCG(3, 5))))
		if err != nil {
			t.Fatal(err)
		}

		for _, m := range []*Model{memModel, sqlModel} {
			if _, _, err := m.TrainText(ctx, NewDefaultTokenizer(), text); err != nil {
				t.Fatalf("n=%d: TrainText() failed: %v", n, err)
			}
		}

		memStats, err := memModel.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		sqlStats, err := sqlModel.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if memStats != sqlStats {
			t.Errorf("n=%d: stats differ: memory %+v, sqlite %+v", n, memStats, sqlStats)
		}

		memOut, err := memModel.Generate(ctx, 10, WithMaxSteps(200))
		if err != nil {
			t.Fatal(err)
		}
		sqlOut, err := sqlModel.Generate(ctx, 10, WithMaxSteps(200))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(memOut, sqlOut) {
			t.Errorf("n=%d: backends generated different sentences:\n%q\n%q", n, memOut, sqlOut)
		}
	}
}

func BenchmarkSQLTableAdd(b *testing.B) {
	corpus := createBenchmarkCorpus()
	grams, err := Extract(NewDefaultTokenizer().Tokenize(corpus), 3)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		_, table := setupTestDB(b)
		b.StartTimer()

		if err := table.Add(ctx, grams); err != nil {
			b.Fatalf("Add() failed: %v", err)
		}
	}
}
