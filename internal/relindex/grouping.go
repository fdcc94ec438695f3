package relindex

// relGrouping merges fine-grained dependency labels into the coarser
// categories the word-picture frontend displays. Labels without a group pass
// through unchanged.
var relGrouping = map[string]string{
	"SS": "SUBJ",
	"ES": "SUBJ",
	"FS": "SUBJ",
	"OO": "OBJ",
	"FO": "OBJ",
	"VO": "OBJ",
	"IO": "IOBJ",
	"OA": "ADV",
	"RA": "ADV",
	"TA": "ADV",
	"MA": "ADV",
	"KA": "ADV",
	"AA": "ADV",
	"AT": "ATTR",
	"ET": "ATTR",
}

// GroupRel maps a surface dependency label to its index category.
func GroupRel(rel string) string {
	if g, ok := relGrouping[rel]; ok {
		return g
	}
	return rel
}
