// Package pattern evaluates an ordered table of relation patterns against
// per-sentence dependency graphs. A pattern is either a single
// (head-pos, relation, dep-pos) triple or a composite of two triples joined
// through one shared slot; null-relation patterns independently flag tokens
// missing a required argument.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
)

// Triple is one (head-pos, relation, dep-pos) match fragment. HeadSlot and
// DepSlot are symbolic names; a composite's two triples share exactly one.
type Triple struct {
	HeadSlot string
	HeadPos  string
	Rel      string
	DepSlot  string
	DepPos   string
}

// Output selects which resolved slots of a composite become the final head
// and dep, which triple supplies the relation label, and how the extra value
// is built from resolved tokens.
type Output struct {
	HeadSlot string
	DepSlot  string
	// RelFrom is 1 or 2: the matched edge whose concrete relation label is
	// carried into the tuple.
	RelFrom int
	// Extra is a template over resolved slots, e.g. "{v2.baseform}:{v2.ref}".
	Extra string
}

// Pattern is one entry of the ordered pattern table. Second and Out are set
// only for composites.
type Pattern struct {
	Name   string
	First  Triple
	Second *Triple
	Out    *Output
}

// NullRel flags tokens of a triggering part of speech that lack one of the
// required outgoing relations.
type NullRel struct {
	Name       string
	TriggerPos string
	Required   []string
}

// joinTopology is how a composite's two triples share a token.
type joinTopology int

const (
	// joinChain: the shared slot is the dependent of triple 1 and the head
	// of triple 2; triple 2 is resolved among the shared token's dependents.
	joinChain joinTopology = iota
	// joinSiblings: the shared slot is the head of both triples; triple 2 is
	// resolved among the other dependents of the shared token.
	joinSiblings
)

type compiledTriple struct {
	headSlot string
	depSlot  string
	head     *regexp.Regexp
	rel      *regexp.Regexp
	dep      *regexp.Regexp
}

type compiledPattern struct {
	name     string
	first    compiledTriple
	second   *compiledTriple
	topology joinTopology
	out      *Output
	extra    *template
}

type compiledNullRel struct {
	name     string
	trigger  *regexp.Regexp
	required []string
}

// compile validates a pattern and precompiles its match fragments. Unsupported
// join topologies and malformed templates are authoring bugs, rejected here.
func compile(p Pattern) (*compiledPattern, error) {
	cp := &compiledPattern{name: p.Name, out: p.Out}
	var err error
	if cp.first, err = compileTriple(p.First); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
	}
	if p.Second == nil {
		if p.Out != nil {
			return nil, fmt.Errorf("%w: pattern %q has an output map but no second triple",
				apperrors.ErrBadPatternTable, p.Name)
		}
		return cp, nil
	}

	second, err := compileTriple(*p.Second)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
	}
	cp.second = &second

	switch {
	case p.First.DepSlot == p.Second.HeadSlot:
		cp.topology = joinChain
	case p.First.HeadSlot == p.Second.HeadSlot:
		cp.topology = joinSiblings
	default:
		return nil, fmt.Errorf("%w: pattern %q joins slots %s/%s with %s/%s, no shared token",
			apperrors.ErrBadPatternTable, p.Name,
			p.First.HeadSlot, p.First.DepSlot, p.Second.HeadSlot, p.Second.DepSlot)
	}

	if p.Out == nil {
		return nil, fmt.Errorf("%w: composite pattern %q has no output map",
			apperrors.ErrBadPatternTable, p.Name)
	}
	if p.Out.RelFrom != 1 && p.Out.RelFrom != 2 {
		return nil, fmt.Errorf("%w: pattern %q output selects relation from triple %d",
			apperrors.ErrBadPatternTable, p.Name, p.Out.RelFrom)
	}
	slots := map[string]bool{
		p.First.HeadSlot: true, p.First.DepSlot: true,
		p.Second.HeadSlot: true, p.Second.DepSlot: true,
	}
	if !slots[p.Out.HeadSlot] || !slots[p.Out.DepSlot] {
		return nil, fmt.Errorf("%w: pattern %q output references unknown slot",
			apperrors.ErrBadPatternTable, p.Name)
	}
	if cp.extra, err = parseTemplate(p.Out.Extra, slots); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", p.Name, err)
	}
	return cp, nil
}

func compileTriple(t Triple) (compiledTriple, error) {
	if t.HeadSlot == "" || t.DepSlot == "" || t.HeadSlot == t.DepSlot {
		return compiledTriple{}, fmt.Errorf("%w: triple slots %q/%q",
			apperrors.ErrBadPatternTable, t.HeadSlot, t.DepSlot)
	}
	ct := compiledTriple{headSlot: t.HeadSlot, depSlot: t.DepSlot}
	var err error
	if ct.head, err = compileFragment(t.HeadPos); err != nil {
		return compiledTriple{}, err
	}
	if ct.rel, err = compileFragment(t.Rel); err != nil {
		return compiledTriple{}, err
	}
	if ct.dep, err = compileFragment(t.DepPos); err != nil {
		return compiledTriple{}, err
	}
	return ct, nil
}

// compileFragment anchors a fragment so "VB" never matches "VBX".
func compileFragment(frag string) (*regexp.Regexp, error) {
	if frag == "" {
		return nil, fmt.Errorf("%w: empty match fragment", apperrors.ErrBadPatternTable)
	}
	re, err := regexp.Compile("^(?:" + frag + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: fragment %q: %v", apperrors.ErrBadPatternTable, frag, err)
	}
	return re, nil
}

func compileNullRel(n NullRel) (*compiledNullRel, error) {
	trigger, err := compileFragment(n.TriggerPos)
	if err != nil {
		return nil, fmt.Errorf("null-relation %q: %w", n.Name, err)
	}
	if len(n.Required) == 0 {
		return nil, fmt.Errorf("%w: null-relation %q requires no relations",
			apperrors.ErrBadPatternTable, n.Name)
	}
	return &compiledNullRel{name: n.Name, trigger: trigger, required: n.Required}, nil
}

// template is a parsed extra-value template: literal text interleaved with
// {slot.field} substitutions.
type template struct {
	segments []segment
}

type segment struct {
	literal string
	slot    string
	field   string
}

var templateRef = regexp.MustCompile(`\{([^.{}]+)\.(baseform|ref|word)\}`)

func parseTemplate(tmpl string, slots map[string]bool) (*template, error) {
	t := &template{}
	rest := tmpl
	for rest != "" {
		loc := templateRef.FindStringSubmatchIndex(rest)
		if loc == nil {
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if loc[0] > 0 {
			t.segments = append(t.segments, segment{literal: rest[:loc[0]]})
		}
		slot := rest[loc[2]:loc[3]]
		field := rest[loc[4]:loc[5]]
		if !slots[slot] {
			return nil, fmt.Errorf("%w: template slot %q", apperrors.ErrUnresolvedSlot, slot)
		}
		t.segments = append(t.segments, segment{slot: slot, field: field})
		rest = rest[loc[1]:]
	}
	return t, nil
}

// render substitutes resolved tokens into the template. A missing slot at this
// point is a pattern-table bug and a hard failure.
func (t *template) render(resolved map[string]Side) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.slot == "" {
			b.WriteString(seg.literal)
			continue
		}
		side, ok := resolved[seg.slot]
		if !ok {
			return "", fmt.Errorf("%w: slot %q", apperrors.ErrUnresolvedSlot, seg.slot)
		}
		switch seg.field {
		case "baseform":
			b.WriteString(side.Baseform)
		case "ref":
			b.WriteString(side.Ref)
		case "word":
			b.WriteString(side.Word)
		}
	}
	return b.String(), nil
}
