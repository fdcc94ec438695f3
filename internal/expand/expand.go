// Package expand turns pattern matches into relation tuples. A match side
// whose lexical key is a |-delimited multi-word list is expanded into one
// variant per entry, cross-listed multi-word noise is pruned, and every
// surviving head/dep variant pair yields the three lemma/surface tuples.
package expand

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkarlsson/wordrel/internal/annotation"
	"github.com/pkarlsson/wordrel/internal/pattern"
)

// mweMarker matches lexical entries denoting a multi-word unit (the sense id
// carries an "m"-suffixed part-of-speech class, as in "ge_ut..vbm.1").
var mweMarker = regexp.MustCompile(`\.\.\w*m\.`)

// entry is one variant of a multi-word descriptor: the lexical text plus the
// sentence-relative position it anchors to.
type entry struct {
	text string
	ref  string
}

func (e entry) String() string {
	if e.ref == "" {
		return e.text
	}
	return e.text + ":" + e.ref
}

// Expand converts the matches of one sentence into deduplicated tuples.
// Every head-variant/dep-variant pair produces exactly three tuples
// (lemma-lemma, surface-lemma, lemma-surface); null-relation placeholders
// produce one lemma-path tuple per head variant. The result keeps first-seen
// order and full-tuple set semantics.
func Expand(matches []pattern.Match) []annotation.Tuple {
	var out []annotation.Tuple
	seen := make(map[string]struct{})
	emit := func(t annotation.Tuple) {
		key := t.Key()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	for _, m := range matches {
		if m.Kind == "nullrel" {
			for _, h := range variants(m.Head) {
				emit(annotation.Tuple{
					Head: h.text, HeadPos: m.Head.Pos,
					Rel:        m.Rel,
					SentenceID: m.SentenceID,
					HeadRef:    m.Head.Ref, DepRef: m.Dep.Ref,
					LemmaHead: true, LemmaDep: true,
				})
			}
			continue
		}

		heads := variants(m.Head)
		deps := variants(m.Dep)
		extra := m.Extra

		if len(heads) > 1 && len(deps) > 1 {
			heads, deps = pruneCrossListed(heads, deps)
		}
		if extraEntries := parseList(extra, ""); len(extraEntries) > 1 {
			deps = pruneWithinSpan(deps, extraEntries)
			extra = shortest(extraEntries).String()
		}

		for _, h := range heads {
			for _, d := range deps {
				base := annotation.Tuple{
					HeadPos: m.Head.Pos, Rel: m.Rel, DepPos: m.Dep.Pos,
					Extra: extra, SentenceID: m.SentenceID,
				}

				lemmaBoth := base
				lemmaBoth.Head, lemmaBoth.HeadRef = h.text, h.ref
				lemmaBoth.Dep, lemmaBoth.DepRef = d.text, d.ref
				lemmaBoth.LemmaHead, lemmaBoth.LemmaDep = true, true
				emit(lemmaBoth)

				surfHead := base
				surfHead.Head, surfHead.HeadRef = m.Head.Word, m.Head.Ref
				surfHead.Dep, surfHead.DepRef = d.text, d.ref
				surfHead.SurfaceHead, surfHead.LemmaDep = true, true
				emit(surfHead)

				surfDep := base
				surfDep.Head, surfDep.HeadRef = h.text, h.ref
				surfDep.Dep, surfDep.DepRef = m.Dep.Word, m.Dep.Ref
				surfDep.LemmaHead, surfDep.SurfaceDep = true, true
				emit(surfDep)
			}
		}
	}
	return out
}

// variants derives the lemma-path variant list of one side: the lemgram list
// if present, otherwise the surface word.
func variants(s pattern.Side) []entry {
	key := s.Lemgram
	if key == "" {
		key = s.Word
	}
	return parseList(key, s.Ref)
}

// parseList splits a |-delimited descriptor into entries. An entry without an
// explicit ":ref" suffix anchors at defaultRef.
func parseList(v, defaultRef string) []entry {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "|")
	entries := make([]entry, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		e := entry{text: part, ref: defaultRef}
		if i := strings.LastIndexByte(part, ':'); i >= 0 {
			if _, err := strconv.Atoi(part[i+1:]); err == nil {
				e.text, e.ref = part[:i], part[i+1:]
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// pruneCrossListed removes entries that appear in both lists and carry the
// multi-word marker: a unit spanning head and dependent would otherwise
// relate to itself.
func pruneCrossListed(heads, deps []entry) ([]entry, []entry) {
	inHeads := make(map[string]bool, len(heads))
	for _, h := range heads {
		inHeads[h.String()] = true
	}
	drop := make(map[string]bool)
	for _, d := range deps {
		if inHeads[d.String()] && mweMarker.MatchString(d.text) {
			drop[d.String()] = true
		}
	}
	if len(drop) == 0 {
		return heads, deps
	}
	return without(heads, drop), without(deps, drop)
}

// pruneWithinSpan removes dependent entries whose ref falls inside the span
// covered by the extra entries, to avoid counting the extra's own tokens.
func pruneWithinSpan(deps, extra []entry) []entry {
	lo, hi, ok := span(extra)
	if !ok {
		return deps
	}
	kept := deps[:0:0]
	for _, d := range deps {
		if ref, err := strconv.Atoi(d.ref); err == nil && ref >= lo && ref <= hi {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func span(entries []entry) (lo, hi int, ok bool) {
	for _, e := range entries {
		ref, err := strconv.Atoi(e.ref)
		if err != nil {
			continue
		}
		if !ok || ref < lo {
			lo = ref
		}
		if !ok || ref > hi {
			hi = ref
		}
		ok = true
	}
	return lo, hi, ok
}

func shortest(entries []entry) entry {
	best := entries[0]
	for _, e := range entries[1:] {
		if len(e.text) < len(best.text) {
			best = e
		}
	}
	return best
}

func without(entries []entry, drop map[string]bool) []entry {
	kept := entries[:0:0]
	for _, e := range entries {
		if drop[e.String()] {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
