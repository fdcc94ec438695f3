package sqlgen

import (
	"context"
	"strings"
	"testing"

	"github.com/pkarlsson/wordrel/internal/relindex"
	"github.com/pkarlsson/wordrel/pkg/config"
)

// captureSink records every statement it receives.
type captureSink struct {
	stmts []string
}

func (s *captureSink) Exec(_ context.Context, stmt string) error {
	s.stmts = append(s.stmts, stmt)
	return nil
}

func testWriterConfig(maxBytes int) config.WriterConfig {
	return config.WriterConfig{
		TablePrefix:       "relations",
		MaxStatementBytes: maxBytes,
		WithEvidence:      true,
	}
}

func factRows(n int) []relindex.FactRow {
	rows := make([]relindex.FactRow, n)
	for i := range rows {
		rows[i] = relindex.FactRow{
			Key:   relindex.RelKey{HeadID: i, Rel: "SUBJ", DepID: i + 1},
			Stats: relindex.RelStats{ID: i, Freq: 1, LemmaHead: true, LemmaDep: true},
		}
	}
	return rows
}

func TestBeginEmitsDropAndCreatePerTable(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(1<<20), sink, nil)
	if err := w.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// Six tables, each dropped then created under its temporary name.
	if len(sink.stmts) != 12 {
		t.Fatalf("got %d statements, want 12", len(sink.stmts))
	}
	if sink.stmts[0] != "DROP TABLE IF EXISTS relations_tmp;" {
		t.Errorf("first statement = %q", sink.stmts[0])
	}
	if !strings.HasPrefix(sink.stmts[1], "CREATE TABLE relations_tmp") {
		t.Errorf("second statement = %q", sink.stmts[1])
	}
	for _, stmt := range sink.stmts {
		if strings.Contains(stmt, "relations ") || strings.Contains(stmt, "relations;") {
			t.Errorf("production name touched before swap: %q", stmt)
		}
	}
}

func TestStatementsRespectByteThreshold(t *testing.T) {
	const max = 500
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(max), sink, nil)
	if err := w.WriteFacts(context.Background(), factRows(50)); err != nil {
		t.Fatalf("WriteFacts: %v", err)
	}
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(sink.stmts) < 2 {
		t.Fatalf("expected multiple batches, got %d", len(sink.stmts))
	}
	for _, stmt := range sink.stmts {
		if len(stmt) > max {
			t.Errorf("statement of %d bytes exceeds threshold %d", len(stmt), max)
		}
		if !strings.HasSuffix(stmt, ";") {
			t.Errorf("statement not terminated: %q", stmt)
		}
	}
}

func TestOversizedRowShipsAlone(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(40), sink, nil)
	ctx := context.Background()
	if err := w.WriteFacts(ctx, factRows(2)); err != nil {
		t.Fatalf("WriteFacts: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// Every row alone exceeds 40 bytes with the insert head, so each must
	// ship as its own statement rather than stall.
	if len(sink.stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(sink.stmts))
	}
	for _, stmt := range sink.stmts {
		if strings.Count(stmt, "), (") != 0 {
			t.Errorf("oversized statement carries more than one row: %q", stmt)
		}
	}
}

func TestUpsertClausesAreAdditive(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(1<<20), sink, nil)
	ctx := context.Background()
	if err := w.WriteFacts(ctx, factRows(1)); err != nil {
		t.Fatalf("WriteFacts: %v", err)
	}
	st := relindex.NewStringTable()
	st.Intern(relindex.StringKey{S: "springa..vb.1", Pos: "VB"})
	if err := w.WriteStrings(ctx, st); err != nil {
		t.Fatalf("WriteStrings: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var fact, strs string
	for _, stmt := range sink.stmts {
		switch {
		case strings.HasPrefix(stmt, "INSERT INTO relations_tmp "):
			fact = stmt
		case strings.HasPrefix(stmt, "INSERT INTO relations_strings_tmp "):
			strs = stmt
		}
	}
	if !strings.Contains(fact, "ON CONFLICT (head, rel, dep) DO UPDATE SET freq = relations_tmp.freq + EXCLUDED.freq") {
		t.Errorf("fact upsert missing additive clause: %q", fact)
	}
	if !strings.Contains(fact, "bfhead = relations_tmp.bfhead OR EXCLUDED.bfhead") {
		t.Errorf("fact upsert missing flag OR clause: %q", fact)
	}
	if !strings.Contains(strs, "ON CONFLICT (id) DO NOTHING") {
		t.Errorf("strings upsert wrong: %q", strs)
	}
}

func TestWriteStringsIsIncremental(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(1<<20), sink, nil)
	ctx := context.Background()

	st := relindex.NewStringTable()
	st.Intern(relindex.StringKey{S: "a..nn.1", Pos: "NN"})
	if err := w.WriteStrings(ctx, st); err != nil {
		t.Fatalf("WriteStrings: %v", err)
	}
	st.Intern(relindex.StringKey{S: "b..nn.1", Pos: "NN"})
	if err := w.WriteStrings(ctx, st); err != nil {
		t.Fatalf("WriteStrings: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	joined := strings.Join(sink.stmts, "\n")
	if strings.Count(joined, "'a..nn.1'") != 1 {
		t.Errorf("already flushed string written again:\n%s", joined)
	}
	if strings.Count(joined, "'b..nn.1'") != 1 {
		t.Errorf("new string missing:\n%s", joined)
	}
}

func TestSwapRenamesEveryTableAfterFinalFlush(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(1<<20), sink, nil)
	ctx := context.Background()
	if err := w.WriteFacts(ctx, factRows(1)); err != nil {
		t.Fatalf("WriteFacts: %v", err)
	}
	if err := w.Swap(ctx); err != nil {
		t.Fatalf("Swap: %v", err)
	}

	var inserts, drops, renames []int
	for i, stmt := range sink.stmts {
		switch {
		case strings.HasPrefix(stmt, "INSERT INTO "):
			inserts = append(inserts, i)
		case strings.HasPrefix(stmt, "DROP TABLE IF EXISTS "):
			drops = append(drops, i)
		case strings.HasPrefix(stmt, "ALTER TABLE "):
			renames = append(renames, i)
		}
	}
	if len(drops) != 6 || len(renames) != 6 {
		t.Fatalf("got %d drops and %d renames, want 6 each", len(drops), len(renames))
	}
	// Pending data flushes before any production table is dropped.
	if len(inserts) == 0 || inserts[len(inserts)-1] > drops[0] {
		t.Errorf("insert after swap began: inserts=%v drops=%v", inserts, drops)
	}
	if sink.stmts[drops[0]] != "DROP TABLE IF EXISTS relations;" {
		t.Errorf("first drop = %q", sink.stmts[drops[0]])
	}
	if sink.stmts[renames[0]] != "ALTER TABLE relations_tmp RENAME TO relations;" {
		t.Errorf("first rename = %q", sink.stmts[renames[0]])
	}

	if err := w.Swap(ctx); err == nil {
		t.Error("second Swap should fail")
	}
}

func TestChunkedEvidenceFlushTouchesOnlyEvidence(t *testing.T) {
	sink := &captureSink{}
	w := NewWriter(testWriterConfig(1<<20), sink, nil)
	ctx := context.Background()
	if err := w.WriteFacts(ctx, factRows(1)); err != nil {
		t.Fatalf("WriteFacts: %v", err)
	}
	if err := w.WriteEvidence(ctx, []relindex.Evidence{
		{RelID: 0, SentenceID: "s1", HeadRef: "3", DepRef: "1"},
	}); err != nil {
		t.Fatalf("WriteEvidence: %v", err)
	}
	if err := w.FlushEvidence(ctx); err != nil {
		t.Fatalf("FlushEvidence: %v", err)
	}
	if len(sink.stmts) != 1 {
		t.Fatalf("got %d statements, want only the evidence batch", len(sink.stmts))
	}
	if !strings.HasPrefix(sink.stmts[0], "INSERT INTO relations_sentences_tmp ") {
		t.Errorf("statement = %q", sink.stmts[0])
	}
}

func TestQuoteEscapesSingleQuotes(t *testing.T) {
	if got := quote("l'an"); got != "'l''an'" {
		t.Errorf("quote = %q", got)
	}
}
