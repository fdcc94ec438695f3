package annotation

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkarlsson/wordrel/pkg/config"
	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
)

const tokenFieldCount = 7

// ReadUnit parses one source unit of annotation input. Sentences are separated
// by blank lines; a "# sentence <id>" comment names the following sentence,
// otherwise an id is synthesised from the unit name and sentence ordinal.
// Each token line has seven tab-separated fields:
//
//	word  pos  lemgram  dephead  deprel  ref  baseform
//
// The lemgram sentinel and head-none sentinel come from the extractor config.
func ReadUnit(r io.Reader, unitID string, cfg config.ExtractorConfig) ([]Sentence, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		sentences []Sentence
		current   Sentence
		ordinal   int
	)
	finish := func() {
		// A tokenless sentence still resets current, so an id comment
		// followed by a blank line cannot leak onto the next sentence.
		if len(current.Tokens) > 0 {
			if current.ID == "" {
				ordinal++
				current.ID = fmt.Sprintf("%s-s%d", unitID, ordinal)
			}
			sentences = append(sentences, current)
		}
		current = Sentence{}
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			finish()
			continue
		}
		if strings.HasPrefix(line, "#") {
			if id, ok := strings.CutPrefix(line, "# sentence "); ok {
				current.ID = strings.TrimSpace(id)
			}
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != tokenFieldCount {
			return nil, fmt.Errorf("%w: line %d of %s has %d fields, want %d",
				apperrors.ErrMalformedInput, lineNo, unitID, len(fields), tokenFieldCount)
		}
		tok := Token{
			Word:     fields[0],
			Pos:      fields[1],
			Lemgram:  normalizeSet(fields[2], cfg.LemgramSentinel),
			DepHead:  normalizeHead(fields[3], cfg.HeadNone),
			Deprel:   fields[4],
			Ref:      fields[5],
			Baseform: fields[6],
		}
		current.Tokens = append(current.Tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading unit %s: %w", unitID, err)
	}
	finish()
	return sentences, nil
}

// normalizeSet strips the set delimiters of an attribute value and maps the
// empty-set sentinel to "".
func normalizeSet(v, sentinel string) string {
	if v == "" || v == sentinel {
		return ""
	}
	return strings.Trim(v, "|")
}

func normalizeHead(v, none string) string {
	if v == none {
		return ""
	}
	return v
}
