package relindex

import (
	"fmt"
	"testing"

	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/pkg/config"
)

func lemmaTuple(sentence string) annotation.Tuple {
	return annotation.Tuple{
		Head: "springa..vb.1", HeadPos: "VB",
		Rel: "SS",
		Dep: "han..pn.1", DepPos: "PN",
		SentenceID: sentence,
		HeadRef:    "3", DepRef: "1",
		LemmaHead: true, LemmaDep: true,
	}
}

func TestAddAggregatesFrequencyAndFlags(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 20}, nil)

	s.Add(lemmaTuple("s1"))
	surf := lemmaTuple("s1")
	surf.Head = "springer"
	surf.LemmaHead, surf.SurfaceHead = false, true
	s.Add(surf)

	facts := s.Facts()
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2 (surface head interns separately)", len(facts))
	}

	s.Add(lemmaTuple("s2"))
	facts = s.Facts()
	if facts[0].Stats.Freq != 2 {
		t.Errorf("lemma fact freq = %d, want 2", facts[0].Stats.Freq)
	}
	if !facts[0].Stats.LemmaHead || !facts[0].Stats.LemmaDep {
		t.Errorf("lemma fact flags = %+v", facts[0].Stats)
	}
	if !facts[1].Stats.SurfaceHead || !facts[1].Stats.LemmaDep || facts[1].Stats.LemmaHead {
		t.Errorf("surface fact flags = %+v", facts[1].Stats)
	}
}

func TestFactIDsAreSequentialFirstSeen(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 20}, nil)
	for i := 0; i < 3; i++ {
		tu := lemmaTuple("s1")
		tu.Head = fmt.Sprintf("head%d..vb.1", i)
		s.Add(tu)
	}
	for i, fact := range s.Facts() {
		if fact.Stats.ID != i {
			t.Errorf("fact %d has id %d", i, fact.Stats.ID)
		}
	}
	if s.RelCount() != 3 {
		t.Errorf("RelCount = %d, want 3", s.RelCount())
	}
}

func TestRelationGrouping(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 20}, nil)
	es := lemmaTuple("s1")
	es.Rel = "ES"
	s.Add(lemmaTuple("s1"))
	s.Add(es)

	facts := s.Facts()
	if len(facts) != 1 {
		t.Fatalf("SS and ES should group into one fact, got %d", len(facts))
	}
	if facts[0].Key.Rel != "SUBJ" {
		t.Errorf("grouped rel = %q, want SUBJ", facts[0].Key.Rel)
	}
}

func TestMarginalIncrementPolicy(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 20}, nil)

	s.Add(lemmaTuple("s1"))

	surfHead := lemmaTuple("s1")
	surfHead.Head = "springer"
	surfHead.LemmaHead, surfHead.SurfaceHead = false, true
	s.Add(surfHead)

	surfDep := lemmaTuple("s1")
	surfDep.Dep = "han"
	surfDep.LemmaDep, surfDep.SurfaceDep = false, true
	s.Add(surfDep)

	_, relFreq := s.RelFreqs()
	if relFreq["SUBJ"] != 1 {
		t.Errorf("relation marginal = %d, want 1 (lemma-lemma only)", relFreq["SUBJ"])
	}

	headOrder, headRel := s.HeadRelFreqs()
	if len(headOrder) != 2 {
		t.Fatalf("got %d head marginal rows, want 2", len(headOrder))
	}
	// Lemma head from the lemma-lemma tuple, surface head from its own.
	if headRel[headOrder[0]] != 1 || headRel[headOrder[1]] != 1 {
		t.Errorf("head marginals = %v", headRel)
	}

	depOrder, depRel := s.DepRelFreqs()
	if len(depOrder) != 2 {
		t.Fatalf("got %d dep marginal rows, want 2", len(depOrder))
	}
	if depRel[depOrder[0]] != 1 || depRel[depOrder[1]] != 1 {
		t.Errorf("dep marginals = %v", depRel)
	}
}

func TestEvidenceCapPersistsAcrossDrains(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 2}, nil)

	for i := 0; i < 5; i++ {
		tu := lemmaTuple(fmt.Sprintf("s%d", i))
		s.Add(tu)
	}
	first := s.DrainEvidence()
	if len(first) != 2 {
		t.Fatalf("drained %d evidence rows, want cap 2", len(first))
	}

	// Same relation in a later unit: the cap spent above still applies.
	s.Add(lemmaTuple("s9"))
	second := s.DrainEvidence()
	if len(second) != 0 {
		t.Fatalf("capped relation produced %d more evidence rows", len(second))
	}
}

func TestEvidenceDeduplicatesWithinRelation(t *testing.T) {
	s := NewSession(config.IndexConfig{EvidenceCap: 20}, nil)
	s.Add(lemmaTuple("s1"))
	s.Add(lemmaTuple("s1"))
	if got := s.DrainEvidence(); len(got) != 1 {
		t.Fatalf("drained %d evidence rows for one sentence, want 1", len(got))
	}
}

func TestStringTableInternsFirstSeen(t *testing.T) {
	st := NewStringTable()
	a := st.Intern(StringKey{S: "springa..vb.1", Pos: "VB"})
	b := st.Intern(StringKey{S: "han..pn.1", Pos: "PN"})
	again := st.Intern(StringKey{S: "springa..vb.1", Pos: "VB"})
	withExtra := st.Intern(StringKey{S: "springa..vb.1", Pos: "VB", Extra: "ha:2"})

	if a != 0 || b != 1 {
		t.Errorf("ids = %d, %d, want 0, 1", a, b)
	}
	if again != a {
		t.Errorf("re-intern gave %d, want %d", again, a)
	}
	if withExtra == a {
		t.Errorf("distinct extra must intern separately")
	}
	if st.Len() != 3 {
		t.Errorf("Len = %d, want 3", st.Len())
	}
	entries := st.Entries()
	if entries[0].S != "springa..vb.1" || entries[1].S != "han..pn.1" {
		t.Errorf("entries out of first-seen order: %+v", entries)
	}
}

func TestGroupRelPassThrough(t *testing.T) {
	cases := map[string]string{
		"SS": "SUBJ", "ES": "SUBJ", "FS": "SUBJ",
		"OO": "OBJ", "IO": "IOBJ",
		"RA": "ADV", "AT": "ATTR",
		"VG": "VG", "PA": "PA",
	}
	for in, want := range cases {
		if got := GroupRel(in); got != want {
			t.Errorf("GroupRel(%s) = %s, want %s", in, got, want)
		}
	}
}
