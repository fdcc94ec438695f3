// Package sqlgen renders the aggregated index as a relational-store script:
// schema statements, size-bounded batched inserts with additive upsert, and a
// final atomic drop-and-rename swap from temporary to production table names.
package sqlgen

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
)

// Sink receives finished SQL statements one at a time, in order.
type Sink interface {
	Exec(ctx context.Context, stmt string) error
}

// ScriptSink writes statements to an output script, one per line group.
type ScriptSink struct {
	w *bufio.Writer
}

func NewScriptSink(w io.Writer) *ScriptSink {
	return &ScriptSink{w: bufio.NewWriterSize(w, 256*1024)}
}

func (s *ScriptSink) Exec(_ context.Context, stmt string) error {
	if _, err := s.w.WriteString(stmt); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing statement: %w", err)
	}
	return nil
}

func (s *ScriptSink) Flush() error {
	return s.w.Flush()
}

// TxSink executes statements inside an enclosing Postgres transaction, so a
// direct-execution run commits all or nothing. Store errors are returned to
// the caller unmodified; there is no retry at this layer.
type TxSink struct {
	tx *sql.Tx
}

func NewTxSink(tx *sql.Tx) *TxSink {
	return &TxSink{tx: tx}
}

func (s *TxSink) Exec(ctx context.Context, stmt string) error {
	_, err := s.tx.ExecContext(ctx, stmt)
	return err
}
