// Package relindex aggregates relation tuples into the frequency-indexed
// structures behind the word-picture tables: an interned string table, the
// (head, relation, dep) fact index with path flags, three marginal counts,
// and a bounded sample of evidence sentences per relation.
package relindex

import (
	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/pkg/config"
	"github.com/pkarlsson/wordrel/pkg/metrics"
)

// RelKey identifies one fact row: interned head and dep ids plus the grouped
// relation category.
type RelKey struct {
	HeadID int
	Rel    string
	DepID  int
}

// RelStats is the running aggregate for one fact row. The four path flags are
// monotone: set by OR, never cleared.
type RelStats struct {
	ID   int
	Freq int

	LemmaHead   bool
	LemmaDep    bool
	SurfaceHead bool
	SurfaceDep  bool
}

// PairKey identifies one head-relation or dep-relation marginal row.
type PairKey struct {
	StringID int
	Rel      string
}

// Evidence is one sampled example sentence for a relation.
type Evidence struct {
	RelID      int
	SentenceID string
	HeadRef    string
	DepRef     string
}

// Session owns all aggregation state for one run. It is strictly sequential:
// later source units must observe ids and counts assigned by earlier ones.
type Session struct {
	strings *StringTable

	rels     map[RelKey]*RelStats
	relOrder []RelKey

	relFreq      map[string]int
	relFreqOrder []string
	headRel      map[PairKey]int
	headRelOrder []PairKey
	depRel       map[PairKey]int
	depRelOrder  []PairKey

	evidence      []Evidence
	evidenceSeen  map[int]map[string]struct{}
	evidenceCount map[int]int
	cap           int

	metrics *metrics.Metrics
}

// NewSession creates an empty aggregation session.
func NewSession(cfg config.IndexConfig, m *metrics.Metrics) *Session {
	return &Session{
		strings:       NewStringTable(),
		rels:          make(map[RelKey]*RelStats),
		relFreq:       make(map[string]int),
		headRel:       make(map[PairKey]int),
		depRel:        make(map[PairKey]int),
		evidenceSeen:  make(map[int]map[string]struct{}),
		evidenceCount: make(map[int]int),
		cap:           cfg.EvidenceCap,
		metrics:       m,
	}
}

// Add folds one expanded tuple into the index.
func (s *Session) Add(t annotation.Tuple) {
	headID := s.strings.Intern(StringKey{S: t.Head, Pos: t.HeadPos})
	depID := s.strings.Intern(StringKey{S: t.Dep, Pos: t.DepPos, Extra: t.Extra})
	rel := GroupRel(t.Rel)

	key := RelKey{HeadID: headID, Rel: rel, DepID: depID}
	stats, ok := s.rels[key]
	if !ok {
		stats = &RelStats{ID: len(s.relOrder)}
		s.rels[key] = stats
		s.relOrder = append(s.relOrder, key)
		if s.metrics != nil {
			s.metrics.RelationsIndexed.Inc()
		}
	}
	stats.Freq++
	stats.LemmaHead = stats.LemmaHead || t.LemmaHead
	stats.LemmaDep = stats.LemmaDep || t.LemmaDep
	stats.SurfaceHead = stats.SurfaceHead || t.SurfaceHead
	stats.SurfaceDep = stats.SurfaceDep || t.SurfaceDep

	// Marginals: the relation-only count follows the lemma-lemma path; each
	// side-specific count also admits that side's surface path.
	lemmaBoth := t.LemmaHead && t.LemmaDep
	if lemmaBoth {
		if _, ok := s.relFreq[rel]; !ok {
			s.relFreqOrder = append(s.relFreqOrder, rel)
		}
		s.relFreq[rel]++
	}
	if lemmaBoth || t.SurfaceHead {
		hk := PairKey{StringID: headID, Rel: rel}
		if _, ok := s.headRel[hk]; !ok {
			s.headRelOrder = append(s.headRelOrder, hk)
		}
		s.headRel[hk]++
	}
	if lemmaBoth || t.SurfaceDep {
		dk := PairKey{StringID: depID, Rel: rel}
		if _, ok := s.depRel[dk]; !ok {
			s.depRelOrder = append(s.depRelOrder, dk)
		}
		s.depRel[dk]++
	}

	s.addEvidence(stats.ID, t)
}

// addEvidence samples (sentence, head ref, dep ref) for the relation until
// the cap is reached; capped relations silently drop further evidence.
func (s *Session) addEvidence(relID int, t annotation.Tuple) {
	if s.cap <= 0 {
		return
	}
	if s.evidenceCount[relID] >= s.cap {
		if s.metrics != nil {
			s.metrics.EvidenceDropped.Inc()
		}
		return
	}
	seen, ok := s.evidenceSeen[relID]
	if !ok {
		seen = make(map[string]struct{})
		s.evidenceSeen[relID] = seen
	}
	key := t.SentenceID + "\t" + t.HeadRef + "\t" + t.DepRef
	if _, dup := seen[key]; dup {
		return
	}
	seen[key] = struct{}{}
	s.evidenceCount[relID]++
	s.evidence = append(s.evidence, Evidence{
		RelID:      relID,
		SentenceID: t.SentenceID,
		HeadRef:    t.HeadRef,
		DepRef:     t.DepRef,
	})
}

// Strings returns the interned string table.
func (s *Session) Strings() *StringTable {
	return s.strings
}

// Facts returns all fact rows in first-seen order.
func (s *Session) Facts() []FactRow {
	rows := make([]FactRow, 0, len(s.relOrder))
	for _, key := range s.relOrder {
		stats := s.rels[key]
		rows = append(rows, FactRow{Key: key, Stats: *stats})
	}
	return rows
}

// FactRow pairs a fact key with its aggregated stats.
type FactRow struct {
	Key   RelKey
	Stats RelStats
}

// RelFreqs returns the relation-only marginal in first-seen order.
func (s *Session) RelFreqs() ([]string, map[string]int) {
	return s.relFreqOrder, s.relFreq
}

// HeadRelFreqs returns the (head, relation) marginal in first-seen order.
func (s *Session) HeadRelFreqs() ([]PairKey, map[PairKey]int) {
	return s.headRelOrder, s.headRel
}

// DepRelFreqs returns the (dep, relation) marginal in first-seen order.
func (s *Session) DepRelFreqs() ([]PairKey, map[PairKey]int) {
	return s.depRelOrder, s.depRel
}

// DrainEvidence returns the evidence collected since the previous drain and
// clears the buffer. Cap bookkeeping survives the drain, so a relation capped
// in an earlier unit stays capped.
func (s *Session) DrainEvidence() []Evidence {
	drained := s.evidence
	s.evidence = nil
	return drained
}

// RelCount returns the number of distinct fact rows.
func (s *Session) RelCount() int {
	return len(s.relOrder)
}
