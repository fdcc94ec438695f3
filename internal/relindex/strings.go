package relindex

// StringKey identifies one interned lexical string: the descriptor text, its
// part of speech, and for dependents the extra value.
type StringKey struct {
	S     string
	Pos   string
	Extra string
}

// StringTable interns string keys to monotonically increasing ids in
// first-seen order. Ids are stable only within one run.
type StringTable struct {
	ids   map[StringKey]int
	order []StringKey
}

func NewStringTable() *StringTable {
	return &StringTable{ids: make(map[StringKey]int)}
}

// Intern returns the id for key, assigning the next id on first sight.
func (t *StringTable) Intern(key StringKey) int {
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := len(t.order)
	t.ids[key] = id
	t.order = append(t.order, key)
	return id
}

// Len returns the number of interned keys.
func (t *StringTable) Len() int {
	return len(t.order)
}

// Entries returns all interned keys in id order.
func (t *StringTable) Entries() []StringKey {
	return t.order
}
