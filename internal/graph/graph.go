// Package graph assembles per-sentence dependency graphs from flat token
// annotations. Construction is single pass: dependents seen before their head
// wait in a pending-lookup map keyed by head ref, and the map must be empty
// once the sentence is fully scanned.
package graph

import (
	"github.com/pkarlsson/wordrel/internal/annotation"
	apperrors "github.com/pkarlsson/wordrel/pkg/errors"
)

// Node is one token in a dependency graph with its head back-link and
// outgoing dependent edges.
type Node struct {
	Token *annotation.Token
	Head  *Node
	Deps  []Edge
}

// Edge links a head node to one dependent under a relation label.
type Edge struct {
	Rel string
	Dep *Node
}

// Graph is a fully linked dependency graph for one sentence. Nodes are in
// token order.
type Graph struct {
	Sentence *annotation.Sentence
	Nodes    []*Node
}

// Build constructs the dependency graph for one sentence.
//
// A token with no relation label aborts the sentence (data-quality guard).
// A head ref that is never visited leaves the pending map non-empty, which
// violates graph completeness and also aborts the sentence. Both are
// SentenceErrors: the run continues with the next sentence.
func Build(sent *annotation.Sentence) (*Graph, error) {
	g := &Graph{
		Sentence: sent,
		Nodes:    make([]*Node, 0, len(sent.Tokens)),
	}
	byRef := make(map[string]*Node, len(sent.Tokens))
	pending := make(map[string][]*Node)

	for i := range sent.Tokens {
		tok := &sent.Tokens[i]
		if tok.Deprel == "" {
			return nil, apperrors.Sentence(sent.ID, apperrors.ErrMissingDeprel,
				"token %q at ref %s", tok.Word, tok.Ref)
		}
		node := &Node{Token: tok}
		g.Nodes = append(g.Nodes, node)
		byRef[tok.Ref] = node

		// Dependents that were scanned before this head.
		for _, dep := range pending[tok.Ref] {
			link(node, dep)
		}
		delete(pending, tok.Ref)

		if tok.DepHead == "" {
			continue // root
		}
		if head, ok := byRef[tok.DepHead]; ok {
			link(head, node)
		} else {
			pending[tok.DepHead] = append(pending[tok.DepHead], node)
		}
	}

	if len(pending) > 0 {
		for headRef, deps := range pending {
			return nil, apperrors.Sentence(sent.ID, apperrors.ErrDanglingHead,
				"head ref %s referenced by token at ref %s never appeared",
				headRef, deps[0].Token.Ref)
		}
	}
	return g, nil
}

// link wires head and dependent in both directions.
func link(head, dep *Node) {
	dep.Head = head
	head.Deps = append(head.Deps, Edge{Rel: dep.Token.Deprel, Dep: dep})
}
