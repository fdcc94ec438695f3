// Package annotation defines the token and sentence model produced by the
// upstream annotation pipeline, a reader for per-unit annotation files, and
// the tab-separated relation-tuple interchange format shared by the extract
// and index passes.
package annotation

// Token is one annotated token of a sentence. Immutable once read.
type Token struct {
	Word     string
	Pos      string
	Lemgram  string // may be a |-delimited multi-word list; empty means "use Word"
	DepHead  string // ref of the syntactic head, or the none sentinel
	Deprel   string
	Ref      string // sentence-relative position
	Baseform string
}

// Sentence is an ordered token sequence with a corpus-unique identifier.
type Sentence struct {
	ID     string
	Tokens []Token
}
