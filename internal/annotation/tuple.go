package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
)

const tupleFieldCount = 13

// Tuple is one extracted relation instance, the record exchanged between the
// extract and index passes. Head and Dep are lexical descriptors (lemgram or
// surface word); the four path flags record which route each side took.
type Tuple struct {
	Head       string
	HeadPos    string
	Rel        string
	Dep        string
	DepPos     string
	Extra      string
	SentenceID string
	HeadRef    string
	DepRef     string

	LemmaHead   bool
	LemmaDep    bool
	SurfaceHead bool
	SurfaceDep  bool
}

// Key returns the full-tuple identity used for set-semantics deduplication.
func (t Tuple) Key() string {
	return strings.Join([]string{
		t.Head, t.HeadPos, t.Rel, t.Dep, t.DepPos, t.Extra,
		t.SentenceID, t.HeadRef, t.DepRef,
		flag(t.LemmaHead), flag(t.LemmaDep), flag(t.SurfaceHead), flag(t.SurfaceDep),
	}, "\t")
}

// TupleWriter streams tuples as tab-separated interchange lines.
type TupleWriter struct {
	w *bufio.Writer
}

func NewTupleWriter(w io.Writer) *TupleWriter {
	return &TupleWriter{w: bufio.NewWriter(w)}
}

// Write emits one 13-field interchange line.
func (tw *TupleWriter) Write(t Tuple) error {
	if _, err := tw.w.WriteString(t.Key()); err != nil {
		return fmt.Errorf("writing tuple: %w", err)
	}
	if err := tw.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing tuple: %w", err)
	}
	return nil
}

func (tw *TupleWriter) Flush() error {
	return tw.w.Flush()
}

// TupleReader parses interchange lines back into Tuples.
type TupleReader struct {
	scanner *bufio.Scanner
	lineNo  int
}

func NewTupleReader(r io.Reader) *TupleReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &TupleReader{scanner: s}
}

// Next returns the next tuple, or io.EOF when the input is exhausted.
func (tr *TupleReader) Next() (Tuple, error) {
	for tr.scanner.Scan() {
		tr.lineNo++
		line := tr.scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != tupleFieldCount {
			return Tuple{}, fmt.Errorf("%w: tuple line %d has %d fields, want %d",
				apperrors.ErrMalformedInput, tr.lineNo, len(fields), tupleFieldCount)
		}
		return Tuple{
			Head:        fields[0],
			HeadPos:     fields[1],
			Rel:         fields[2],
			Dep:         fields[3],
			DepPos:      fields[4],
			Extra:       fields[5],
			SentenceID:  fields[6],
			HeadRef:     fields[7],
			DepRef:      fields[8],
			LemmaHead:   fields[9] == "1",
			LemmaDep:    fields[10] == "1",
			SurfaceHead: fields[11] == "1",
			SurfaceDep:  fields[12] == "1",
		}, nil
	}
	if err := tr.scanner.Err(); err != nil {
		return Tuple{}, fmt.Errorf("reading tuples: %w", err)
	}
	return Tuple{}, io.EOF
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
