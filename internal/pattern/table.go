package pattern

// Default returns the built-in pattern table for the Swedish word-picture
// relations. Composites come first so that multi-hop readings win over the
// generic single-edge fallbacks; within each group more specific part-of-
// speech fragments precede broader ones.
func Default() []Pattern {
	nominal := "NN|PM|PN"
	return []Pattern{
		{
			Name:   "subject via verb group",
			First:  Triple{HeadSlot: "v1", HeadPos: "VB", Rel: "VG", DepSlot: "v2", DepPos: "VB"},
			Second: &Triple{HeadSlot: "v2", HeadPos: "VB", Rel: "SS", DepSlot: "s", DepPos: nominal},
			Out:    &Output{HeadSlot: "v1", DepSlot: "s", RelFrom: 2, Extra: "{v2.baseform}:{v2.ref}"},
		},
		{
			Name:   "object via verb group",
			First:  Triple{HeadSlot: "v1", HeadPos: "VB", Rel: "VG", DepSlot: "v2", DepPos: "VB"},
			Second: &Triple{HeadSlot: "v2", HeadPos: "VB", Rel: "OO|IO", DepSlot: "o", DepPos: nominal},
			Out:    &Output{HeadSlot: "v1", DepSlot: "o", RelFrom: 2, Extra: "{v2.baseform}:{v2.ref}"},
		},
		{
			Name:   "prepositional attribute",
			First:  Triple{HeadSlot: "n1", HeadPos: "NN", Rel: "ET", DepSlot: "p", DepPos: "PP"},
			Second: &Triple{HeadSlot: "p", HeadPos: "PP", Rel: "PA", DepSlot: "n2", DepPos: nominal + "|VB"},
			Out:    &Output{HeadSlot: "n1", DepSlot: "n2", RelFrom: 1, Extra: "{p.baseform}:{p.ref}"},
		},
		{
			Name:   "prepositional object",
			First:  Triple{HeadSlot: "v", HeadPos: "VB", Rel: "OA|RA", DepSlot: "p", DepPos: "PP"},
			Second: &Triple{HeadSlot: "p", HeadPos: "PP", Rel: "PA", DepSlot: "n", DepPos: nominal},
			Out:    &Output{HeadSlot: "v", DepSlot: "n", RelFrom: 1, Extra: "{p.baseform}:{p.ref}"},
		},
		{
			Name:  "subject",
			First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "SS", DepSlot: "d", DepPos: nominal},
		},
		{
			Name:  "direct object",
			First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "OO", DepSlot: "d", DepPos: nominal},
		},
		{
			Name:  "indirect object",
			First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "IO", DepSlot: "d", DepPos: nominal},
		},
		{
			Name:  "adverbial",
			First: Triple{HeadSlot: "h", HeadPos: "VB", Rel: "RA|TA|MA|KA", DepSlot: "d", DepPos: "AB|NN"},
		},
		{
			Name:  "adjectival attribute",
			First: Triple{HeadSlot: "h", HeadPos: "NN", Rel: "AT", DepSlot: "d", DepPos: "JJ|PC"},
		},
		{
			Name:  "adverbial modifier",
			First: Triple{HeadSlot: "h", HeadPos: "JJ|AB", Rel: "AA", DepSlot: "d", DepPos: "AB"},
		},
	}
}

// DefaultNullRels returns the built-in null-relation checks: a verb without a
// subject or object gets a placeholder marking the missing argument.
func DefaultNullRels() []NullRel {
	return []NullRel{
		{Name: "verb argument gaps", TriggerPos: "VB", Required: []string{"SS", "OO"}},
	}
}
