package pattern

import (
	"errors"
	"testing"

	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/internal/graph"
	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
)

// buildGraph links "han har sprungit": sprungit -VG-> har -SS-> han.
func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(&annotation.Sentence{
		ID: "s1",
		Tokens: []annotation.Token{
			{Word: "han", Pos: "NN", Lemgram: "han..pn.1", DepHead: "2", Deprel: "SS", Ref: "1", Baseform: "han"},
			{Word: "har", Pos: "VB", Lemgram: "ha..vb.1", DepHead: "3", Deprel: "VG", Ref: "2", Baseform: "ha"},
			{Word: "sprungit", Pos: "VB", Lemgram: "springa..vb.1", DepHead: "", Deprel: "ROOT", Ref: "3", Baseform: "springa"},
		},
	})
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	return g
}

func TestVerbGroupCompositeAttributesSubjectToMainVerb(t *testing.T) {
	m, err := NewMatcher(Default(), nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(buildGraph(t))
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}

	var composite *Match
	for i := range matches {
		if matches[i].Kind == "composite" {
			if composite != nil {
				t.Fatalf("got more than one composite match: %+v", matches)
			}
			composite = &matches[i]
		}
	}
	if composite == nil {
		t.Fatalf("no composite match in %+v", matches)
	}
	// The subject attaches to the auxiliary but belongs to the main verb;
	// the auxiliary itself lands in the extra value.
	if composite.Head.Lemgram != "springa..vb.1" {
		t.Errorf("composite head = %q, want springa..vb.1", composite.Head.Lemgram)
	}
	if composite.Rel != "SS" {
		t.Errorf("composite rel = %q, want SS", composite.Rel)
	}
	if composite.Dep.Lemgram != "han..pn.1" {
		t.Errorf("composite dep = %q, want han..pn.1", composite.Dep.Lemgram)
	}
	if composite.Extra != "ha:2" {
		t.Errorf("composite extra = %q, want ha:2", composite.Extra)
	}
}

func TestSimpleSubjectStillMatchesAuxiliaryEdge(t *testing.T) {
	m, err := NewMatcher(Default(), nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(buildGraph(t))
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}

	var simple []Match
	for _, match := range matches {
		if match.Kind == "simple" {
			simple = append(simple, match)
		}
	}
	if len(simple) != 1 {
		t.Fatalf("got %d simple matches, want 1: %+v", len(simple), simple)
	}
	if simple[0].Head.Lemgram != "ha..vb.1" || simple[0].Rel != "SS" || simple[0].Dep.Lemgram != "han..pn.1" {
		t.Errorf("simple match = %+v, want (ha..vb.1, SS, han..pn.1)", simple[0])
	}
}

func TestFirstMatchWins(t *testing.T) {
	patterns := []Pattern{
		{Name: "narrow", First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "SS", DepSlot: "d", DepPos: "NN"}},
		{Name: "broad", First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "S.*", DepSlot: "d", DepPos: "NN"}},
	}
	m, err := NewMatcher(patterns, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(buildGraph(t))
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}
	// The SS edge satisfies both patterns but only the first may claim it.
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
}

func TestCompositeWithoutSecondEdgeFallsThrough(t *testing.T) {
	// A chain composite whose second triple can never resolve must not
	// swallow the edge: the simple pattern after it should claim it.
	patterns := []Pattern{
		{
			Name:   "dead end",
			First:  Triple{HeadSlot: "v1", HeadPos: "VB", Rel: "VG", DepSlot: "v2", DepPos: "VB"},
			Second: &Triple{HeadSlot: "v2", HeadPos: "VB", Rel: "XX", DepSlot: "x", DepPos: "NN"},
			Out:    &Output{HeadSlot: "v1", DepSlot: "x", RelFrom: 2},
		},
		{Name: "verb group", First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "VG", DepSlot: "d", DepPos: "VB"}},
	}
	m, err := NewMatcher(patterns, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(buildGraph(t))
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}
	if len(matches) != 1 || matches[0].Kind != "simple" || matches[0].Rel != "VG" {
		t.Fatalf("got %+v, want one simple VG match", matches)
	}
}

func TestSiblingCompositePairsCoArguments(t *testing.T) {
	// hon -SS-> ser <-OO- bollen: both triples share the verb slot, so the
	// second resolves among the verb's other dependents.
	g, err := graph.Build(&annotation.Sentence{
		ID: "s3",
		Tokens: []annotation.Token{
			{Word: "hon", Pos: "NN", Lemgram: "hon..pn.1", DepHead: "2", Deprel: "SS", Ref: "1", Baseform: "hon"},
			{Word: "ser", Pos: "VB", Lemgram: "se..vb.1", DepHead: "", Deprel: "ROOT", Ref: "2", Baseform: "se"},
			{Word: "bollen", Pos: "NN", Lemgram: "boll..nn.1", DepHead: "2", Deprel: "OO", Ref: "3", Baseform: "boll"},
		},
	})
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	// The broad second fragment also matches the SS edge itself; pairing the
	// subject with itself must not happen.
	m, err := NewMatcher([]Pattern{{
		Name:   "co-arguments",
		First:  Triple{HeadSlot: "v", HeadPos: "VB", Rel: "SS", DepSlot: "s", DepPos: "NN"},
		Second: &Triple{HeadSlot: "v", HeadPos: "VB", Rel: "SS|OO", DepSlot: "o", DepPos: "NN"},
		Out:    &Output{HeadSlot: "s", DepSlot: "o", RelFrom: 2, Extra: "{v.baseform}:{v.ref}"},
	}}, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(g)
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	got := matches[0]
	if got.Kind != "composite" {
		t.Errorf("kind = %q, want composite", got.Kind)
	}
	if got.Head.Lemgram != "hon..pn.1" {
		t.Errorf("head = %q, want hon..pn.1", got.Head.Lemgram)
	}
	if got.Rel != "OO" {
		t.Errorf("rel = %q, want OO from the second edge", got.Rel)
	}
	if got.Dep.Lemgram != "boll..nn.1" {
		t.Errorf("dep = %q, want boll..nn.1", got.Dep.Lemgram)
	}
	if got.Extra != "se:2" {
		t.Errorf("extra = %q, want se:2", got.Extra)
	}
}

func TestNullRelationEmitsOnePlaceholderPerMissingArgument(t *testing.T) {
	m, err := NewMatcher(nil, DefaultNullRels())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(buildGraph(t))
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}

	// har has a subject but no object; sprungit has neither.
	want := map[string]int{"ha..vb.1/OO": 1, "springa..vb.1/SS": 1, "springa..vb.1/OO": 1}
	got := make(map[string]int)
	for _, match := range matches {
		if match.Kind != "nullrel" {
			t.Fatalf("unexpected kind %q", match.Kind)
		}
		got[match.Head.Lemgram+"/"+match.Rel]++
		if match.Dep.Ref != match.Head.Ref {
			t.Errorf("placeholder dep ref = %q, want head ref %q", match.Dep.Ref, match.Head.Ref)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("placeholders = %v, want %v", got, want)
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("placeholder %s seen %d times, want %d", k, got[k], n)
		}
	}
}

func TestCompileRejectsUnsupportedTopology(t *testing.T) {
	_, err := NewMatcher([]Pattern{{
		Name:   "backwards",
		First:  Triple{HeadSlot: "a", HeadPos: "VB", Rel: "VG", DepSlot: "b", DepPos: "VB"},
		Second: &Triple{HeadSlot: "c", HeadPos: "VB", Rel: "SS", DepSlot: "a", DepPos: "NN"},
		Out:    &Output{HeadSlot: "a", DepSlot: "c", RelFrom: 2},
	}}, nil)
	if !errors.Is(err, apperrors.ErrBadPatternTable) {
		t.Fatalf("error = %v, want ErrBadPatternTable", err)
	}
}

func TestCompileRejectsUnknownTemplateSlot(t *testing.T) {
	_, err := NewMatcher([]Pattern{{
		Name:   "bad template",
		First:  Triple{HeadSlot: "v1", HeadPos: "VB", Rel: "VG", DepSlot: "v2", DepPos: "VB"},
		Second: &Triple{HeadSlot: "v2", HeadPos: "VB", Rel: "SS", DepSlot: "s", DepPos: "NN"},
		Out:    &Output{HeadSlot: "v1", DepSlot: "s", RelFrom: 2, Extra: "{zz.ref}"},
	}}, nil)
	if !errors.Is(err, apperrors.ErrUnresolvedSlot) {
		t.Fatalf("error = %v, want ErrUnresolvedSlot", err)
	}
}

func TestFragmentsAreAnchored(t *testing.T) {
	g, err := graph.Build(&annotation.Sentence{
		ID: "s2",
		Tokens: []annotation.Token{
			{Word: "x", Pos: "NN", DepHead: "2", Deprel: "SS", Ref: "1"},
			{Word: "y", Pos: "VBX", DepHead: "", Deprel: "ROOT", Ref: "2"},
		},
	})
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	m, err := NewMatcher([]Pattern{
		{Name: "subject", First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "SS", DepSlot: "d", DepPos: "NN"}},
	}, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	matches, err := m.MatchSentence(g)
	if err != nil {
		t.Fatalf("MatchSentence: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("VB matched VBX: %+v", matches)
	}
}
