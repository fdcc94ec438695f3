package pattern

import (
	"fmt"
	"log/slog"

	"github.com/pkarlsson/wordrel/internal/graph"
	"github.com/pkarlsson/wordrel/pkg/logger"
)

// Side is one endpoint of a match: the token's surface word, lexical key,
// part of speech, position, and dictionary base form.
type Side struct {
	Word     string
	Lemgram  string
	Pos      string
	Ref      string
	Baseform string
}

// Match is one pattern hit in a sentence, before multi-word expansion. Kind
// is "simple", "composite", or "nullrel". For null-relation matches Dep is
// empty apart from Ref, which equals the head token's own ref.
type Match struct {
	Kind       string
	Head       Side
	Rel        string
	Dep        Side
	Extra      string
	SentenceID string
}

// Matcher holds a compiled, ordered pattern table.
type Matcher struct {
	patterns []*compiledPattern
	nullRels []*compiledNullRel
	logger   *slog.Logger
}

// NewMatcher compiles the pattern table. Configuration errors (unsupported
// join topology, bad fragments, bad templates) fail here, before any data is
// seen.
func NewMatcher(patterns []Pattern, nullRels []NullRel) (*Matcher, error) {
	m := &Matcher{
		logger: logger.WithComponent("matcher"),
	}
	for _, p := range patterns {
		cp, err := compile(p)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, cp)
	}
	for _, n := range nullRels {
		cn, err := compileNullRel(n)
		if err != nil {
			return nil, err
		}
		m.nullRels = append(m.nullRels, cn)
	}
	m.logger.Info("pattern table compiled",
		"patterns", len(m.patterns), "null_relations", len(m.nullRels))
	return m, nil
}

// MatchSentence evaluates every dependency edge of the sentence against the
// pattern table in priority order (first match wins, no backtracking across
// patterns) and then applies the null-relation checks per token.
func (m *Matcher) MatchSentence(g *graph.Graph) ([]Match, error) {
	var matches []Match
	for _, v := range g.Nodes {
		for _, edge := range v.Deps {
			found, err := m.matchEdge(g, v, edge)
			if err != nil {
				return nil, err
			}
			matches = append(matches, found...)
		}
	}
	for _, v := range g.Nodes {
		matches = append(matches, m.matchNullRels(g, v)...)
	}
	return matches, nil
}

// matchEdge tries each pattern in order against the edge (v, rel, d). A
// composite whose first triple matches but whose second triple resolves to no
// token does not win; evaluation falls through to later patterns.
func (m *Matcher) matchEdge(g *graph.Graph, v *graph.Node, edge graph.Edge) ([]Match, error) {
	d := edge.Dep
	for _, p := range m.patterns {
		if !p.first.head.MatchString(v.Token.Pos) ||
			!p.first.rel.MatchString(edge.Rel) ||
			!p.first.dep.MatchString(d.Token.Pos) {
			continue
		}
		if p.second == nil {
			return []Match{{
				Kind:       "simple",
				Head:       side(v),
				Rel:        edge.Rel,
				Dep:        side(d),
				SentenceID: g.Sentence.ID,
			}}, nil
		}
		found, err := m.resolveComposite(g, p, v, edge)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return nil, nil
}

// resolveComposite resolves the second triple of a composite through the
// shared token and builds one match per satisfying edge.
func (m *Matcher) resolveComposite(g *graph.Graph, p *compiledPattern, v *graph.Node, first graph.Edge) ([]Match, error) {
	shared := v
	if p.topology == joinChain {
		shared = first.Dep
	}
	if !p.second.head.MatchString(shared.Token.Pos) {
		return nil, nil
	}

	var matches []Match
	for _, cand := range shared.Deps {
		if p.topology == joinSiblings && cand.Dep == first.Dep {
			continue
		}
		if !p.second.rel.MatchString(cand.Rel) || !p.second.dep.MatchString(cand.Dep.Token.Pos) {
			continue
		}

		resolved := map[string]Side{
			p.first.headSlot:  side(v),
			p.first.depSlot:   side(first.Dep),
			p.second.headSlot: side(shared),
			p.second.depSlot:  side(cand.Dep),
		}
		rel := first.Rel
		if p.out.RelFrom == 2 {
			rel = cand.Rel
		}
		extra, err := p.extra.render(resolved)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p.name, err)
		}
		head, ok := resolved[p.out.HeadSlot]
		if !ok {
			return nil, fmt.Errorf("pattern %q: head slot %q unresolved", p.name, p.out.HeadSlot)
		}
		dep, ok := resolved[p.out.DepSlot]
		if !ok {
			return nil, fmt.Errorf("pattern %q: dep slot %q unresolved", p.name, p.out.DepSlot)
		}
		matches = append(matches, Match{
			Kind:       "composite",
			Head:       head,
			Rel:        rel,
			Dep:        dep,
			Extra:      extra,
			SentenceID: g.Sentence.ID,
		})
	}
	return matches, nil
}

// matchNullRels emits one placeholder per required relation absent from the
// token's outgoing edges.
func (m *Matcher) matchNullRels(g *graph.Graph, v *graph.Node) []Match {
	var matches []Match
	for _, n := range m.nullRels {
		if !n.trigger.MatchString(v.Token.Pos) {
			continue
		}
		present := make(map[string]bool, len(v.Deps))
		for _, edge := range v.Deps {
			present[edge.Rel] = true
		}
		for _, rel := range n.required {
			if present[rel] {
				continue
			}
			matches = append(matches, Match{
				Kind:       "nullrel",
				Head:       side(v),
				Rel:        rel,
				Dep:        Side{Ref: v.Token.Ref},
				SentenceID: g.Sentence.ID,
			})
		}
	}
	return matches
}

func side(n *graph.Node) Side {
	return Side{
		Word:     n.Token.Word,
		Lemgram:  n.Token.Lemgram,
		Pos:      n.Token.Pos,
		Ref:      n.Token.Ref,
		Baseform: n.Token.Baseform,
	}
}
