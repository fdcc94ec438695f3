package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingDeprel   = errors.New("token missing dependency relation")
	ErrDanglingHead    = errors.New("dangling dependency head reference")
	ErrBadPatternTable = errors.New("invalid relation pattern table")
	ErrUnresolvedSlot  = errors.New("template references unresolved slot")
	ErrMalformedInput  = errors.New("malformed annotation input")
)

// SentenceError marks an error as fatal for one sentence only; the run
// continues with the next sentence.
type SentenceError struct {
	SentenceID string
	Err        error
}

func (e *SentenceError) Error() string {
	return fmt.Sprintf("sentence %s: %s", e.SentenceID, e.Err.Error())
}

func (e *SentenceError) Unwrap() error {
	return e.Err
}

func Sentence(sentenceID string, sentinel error, format string, args ...any) *SentenceError {
	return &SentenceError{
		SentenceID: sentenceID,
		Err:        fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}

// IsSentence reports whether err aborts only the enclosing sentence.
func IsSentence(err error) bool {
	var se *SentenceError
	return errors.As(err, &se)
}
