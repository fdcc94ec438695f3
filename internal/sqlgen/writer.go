package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkarlsson/wordrel/internal/relindex"
	"github.com/pkarlsson/wordrel/pkg/config"
	"github.com/pkarlsson/wordrel/pkg/logger"
	"github.com/pkarlsson/wordrel/pkg/metrics"
)

// table is one logical output table with its in-progress insert batch.
type table struct {
	name       string // production name
	tmpName    string
	insertHead string // "INSERT INTO tmp (cols) VALUES "
	suffix     string // rendered conflict clause + ";"
	ddl        string

	rows      []string
	rowsBytes int
}

// stmtBytes is the size of the statement the current batch would produce.
func (t *table) stmtBytes() int {
	if len(t.rows) == 0 {
		return 0
	}
	// rows joined by ", ".
	return len(t.insertHead) + t.rowsBytes + 2*(len(t.rows)-1) + len(t.suffix)
}

// Writer accumulates rows per logical table and emits size-bounded insert
// statements. Tables are built under temporary names; Swap atomically renames
// them into production.
type Writer struct {
	cfg     config.WriterConfig
	sink    Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	fact     *table
	strings  *table
	relFreq  *table
	headRel  *table
	depRel   *table
	evidence *table
	all      []*table

	flushedStrings int
	swapped        bool
}

// NewWriter creates a Writer over the given sink.
func NewWriter(cfg config.WriterConfig, sink Sink, m *metrics.Metrics) *Writer {
	w := &Writer{
		cfg:     cfg,
		sink:    sink,
		metrics: m,
		logger:  logger.WithComponent("sqlgen"),
	}
	w.fact = w.newTable(factSpec)
	w.strings = w.newTable(stringsSpec)
	w.relFreq = w.newTable(relFreqSpec)
	w.headRel = w.newTable(headRelSpec)
	w.depRel = w.newTable(depRelSpec)
	w.all = []*table{w.fact, w.strings, w.relFreq, w.headRel, w.depRel}
	if cfg.WithEvidence {
		w.evidence = w.newTable(evidenceSpec)
		w.all = append(w.all, w.evidence)
	}
	return w
}

func (w *Writer) newTable(spec tableSpec) *table {
	name := w.cfg.TablePrefix + spec.suffix
	tmp := name + tmpSuffix
	suffix := ";"
	if spec.conflict != "" {
		suffix = fmt.Sprintf(spec.conflict, tmp) + ";"
	}
	return &table{
		name:       name,
		tmpName:    tmp,
		insertHead: fmt.Sprintf("INSERT INTO %s (%s) VALUES ", tmp, strings.Join(spec.columns, ", ")),
		suffix:     suffix,
		ddl:        fmt.Sprintf(spec.ddl, tmp),
	}
}

// Begin emits the schema statements: every table is (re)created empty under
// its temporary name.
func (w *Writer) Begin(ctx context.Context) error {
	for _, t := range w.all {
		if err := w.sink.Exec(ctx, dropStmt(t.tmpName)); err != nil {
			return err
		}
		if err := w.sink.Exec(ctx, t.ddl); err != nil {
			return err
		}
	}
	w.logger.Info("schema emitted", "tables", len(w.all), "prefix", w.cfg.TablePrefix)
	return nil
}

// append adds one rendered row, cutting a statement whenever the batch would
// cross the byte threshold. A row that alone exceeds the threshold becomes
// its own oversized statement on the next cut.
func (w *Writer) append(ctx context.Context, t *table, row string) error {
	if len(t.rows) > 0 {
		projected := t.stmtBytes() + 2 + len(row)
		if projected > w.cfg.MaxStatementBytes {
			if err := w.cut(ctx, t); err != nil {
				return err
			}
		}
	}
	t.rows = append(t.rows, row)
	t.rowsBytes += len(row)
	return nil
}

// cut flushes the current batch of one table as a single statement.
func (w *Writer) cut(ctx context.Context, t *table) error {
	if len(t.rows) == 0 {
		return nil
	}
	stmt := t.insertHead + strings.Join(t.rows, ", ") + t.suffix
	size := len(stmt)
	t.rows = t.rows[:0]
	t.rowsBytes = 0
	if err := w.sink.Exec(ctx, stmt); err != nil {
		if w.metrics != nil {
			w.metrics.BatchesFlushed.WithLabelValues(t.name, "error").Inc()
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.BatchesFlushed.WithLabelValues(t.name, "ok").Inc()
		w.metrics.BatchBytes.WithLabelValues(t.name).Observe(float64(size))
	}
	return nil
}

// WriteFacts appends all fact rows.
func (w *Writer) WriteFacts(ctx context.Context, rows []relindex.FactRow) error {
	for _, r := range rows {
		row := renderRow([]string{
			strconv.Itoa(r.Stats.ID),
			strconv.Itoa(r.Key.HeadID),
			quote(r.Key.Rel),
			strconv.Itoa(r.Key.DepID),
			strconv.Itoa(r.Stats.Freq),
			boolLit(r.Stats.LemmaHead),
			boolLit(r.Stats.LemmaDep),
			boolLit(r.Stats.SurfaceHead),
			boolLit(r.Stats.SurfaceDep),
		})
		if err := w.append(ctx, w.fact, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteStrings appends string-table rows not yet written in an earlier flush.
func (w *Writer) WriteStrings(ctx context.Context, st *relindex.StringTable) error {
	entries := st.Entries()
	for id := w.flushedStrings; id < len(entries); id++ {
		key := entries[id]
		row := renderRow([]string{
			strconv.Itoa(id),
			quote(key.S),
			quote(key.Extra),
			quote(key.Pos),
		})
		if err := w.append(ctx, w.strings, row); err != nil {
			return err
		}
	}
	w.flushedStrings = len(entries)
	return nil
}

// WriteMarginals appends the three marginal tables from the session.
func (w *Writer) WriteMarginals(ctx context.Context, s *relindex.Session) error {
	relOrder, relFreq := s.RelFreqs()
	for _, rel := range relOrder {
		row := renderRow([]string{quote(rel), strconv.Itoa(relFreq[rel])})
		if err := w.append(ctx, w.relFreq, row); err != nil {
			return err
		}
	}
	headOrder, headFreq := s.HeadRelFreqs()
	for _, key := range headOrder {
		row := renderRow([]string{strconv.Itoa(key.StringID), quote(key.Rel), strconv.Itoa(headFreq[key])})
		if err := w.append(ctx, w.headRel, row); err != nil {
			return err
		}
	}
	depOrder, depFreq := s.DepRelFreqs()
	for _, key := range depOrder {
		row := renderRow([]string{strconv.Itoa(key.StringID), quote(key.Rel), strconv.Itoa(depFreq[key])})
		if err := w.append(ctx, w.depRel, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvidence appends sampled evidence rows. In chunked mode this runs
// after every source unit; the other tables wait for the final flush.
func (w *Writer) WriteEvidence(ctx context.Context, rows []relindex.Evidence) error {
	if w.evidence == nil {
		return nil
	}
	for _, e := range rows {
		row := renderRow([]string{
			strconv.Itoa(e.RelID),
			quote(e.SentenceID),
			quote(e.HeadRef),
			quote(e.DepRef),
		})
		if err := w.append(ctx, w.evidence, row); err != nil {
			return err
		}
	}
	return nil
}

// Flush cuts every table's pending batch.
func (w *Writer) Flush(ctx context.Context) error {
	for _, t := range w.all {
		if err := w.cut(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// FlushEvidence cuts only the evidence table's pending batch, bounding peak
// memory between units in chunked mode.
func (w *Writer) FlushEvidence(ctx context.Context) error {
	if w.evidence == nil {
		return nil
	}
	return w.cut(ctx, w.evidence)
}

// Swap flushes everything and renames the temporary tables into production,
// dropping the previous generation. Readers never observe a partially
// populated index: until Swap, new data exists only under temporary names.
func (w *Writer) Swap(ctx context.Context) error {
	if w.swapped {
		return fmt.Errorf("index already swapped")
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	for _, t := range w.all {
		if err := w.sink.Exec(ctx, dropStmt(t.name)); err != nil {
			if w.metrics != nil {
				w.metrics.SwapsTotal.WithLabelValues("error").Inc()
			}
			return err
		}
		if err := w.sink.Exec(ctx, renameStmt(t.tmpName, t.name)); err != nil {
			if w.metrics != nil {
				w.metrics.SwapsTotal.WithLabelValues("error").Inc()
			}
			return err
		}
	}
	w.swapped = true
	if w.metrics != nil {
		w.metrics.SwapsTotal.WithLabelValues("ok").Inc()
	}
	w.logger.Info("index tables swapped", "tables", len(w.all))
	return nil
}
