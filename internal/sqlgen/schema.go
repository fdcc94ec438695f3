package sqlgen

import (
	"fmt"
	"strings"
)

// tmpSuffix marks tables under construction. Readers only ever see production
// names, which the final swap installs.
const tmpSuffix = "_tmp"

// tableSpec describes one generated table: its DDL and, for aggregate tables,
// the upsert clause that lets chunked flushes reconcile additively.
type tableSpec struct {
	suffix   string
	columns  []string
	ddl      string // format string taking the table name
	conflict string // format string taking the table name; empty for plain inserts
}

var (
	factSpec = tableSpec{
		suffix:  "",
		columns: []string{"id", "head", "rel", "dep", "freq", "bfhead", "bfdep", "wfhead", "wfdep"},
		ddl: `CREATE TABLE %[1]s (
	id INTEGER NOT NULL,
	head INTEGER NOT NULL,
	rel TEXT NOT NULL,
	dep INTEGER NOT NULL,
	freq INTEGER NOT NULL,
	bfhead BOOLEAN NOT NULL,
	bfdep BOOLEAN NOT NULL,
	wfhead BOOLEAN NOT NULL,
	wfdep BOOLEAN NOT NULL,
	UNIQUE (head, rel, dep)
);`,
		conflict: ` ON CONFLICT (head, rel, dep) DO UPDATE SET` +
			` freq = %[1]s.freq + EXCLUDED.freq,` +
			` bfhead = %[1]s.bfhead OR EXCLUDED.bfhead,` +
			` bfdep = %[1]s.bfdep OR EXCLUDED.bfdep,` +
			` wfhead = %[1]s.wfhead OR EXCLUDED.wfhead,` +
			` wfdep = %[1]s.wfdep OR EXCLUDED.wfdep`,
	}

	stringsSpec = tableSpec{
		suffix:  "_strings",
		columns: []string{"id", "string", "stringextra", "pos"},
		ddl: `CREATE TABLE %[1]s (
	id INTEGER NOT NULL,
	string TEXT NOT NULL,
	stringextra TEXT NOT NULL,
	pos TEXT NOT NULL,
	UNIQUE (id)
);`,
		conflict: ` ON CONFLICT (id) DO NOTHING`,
	}

	relFreqSpec = tableSpec{
		suffix:  "_rel",
		columns: []string{"rel", "freq"},
		ddl: `CREATE TABLE %[1]s (
	rel TEXT NOT NULL,
	freq INTEGER NOT NULL,
	UNIQUE (rel)
);`,
		conflict: ` ON CONFLICT (rel) DO UPDATE SET freq = %[1]s.freq + EXCLUDED.freq`,
	}

	headRelSpec = tableSpec{
		suffix:  "_head_rel",
		columns: []string{"head", "rel", "freq"},
		ddl: `CREATE TABLE %[1]s (
	head INTEGER NOT NULL,
	rel TEXT NOT NULL,
	freq INTEGER NOT NULL,
	UNIQUE (head, rel)
);`,
		conflict: ` ON CONFLICT (head, rel) DO UPDATE SET freq = %[1]s.freq + EXCLUDED.freq`,
	}

	depRelSpec = tableSpec{
		suffix:  "_dep_rel",
		columns: []string{"dep", "rel", "freq"},
		ddl: `CREATE TABLE %[1]s (
	dep INTEGER NOT NULL,
	rel TEXT NOT NULL,
	freq INTEGER NOT NULL,
	UNIQUE (dep, rel)
);`,
		conflict: ` ON CONFLICT (dep, rel) DO UPDATE SET freq = %[1]s.freq + EXCLUDED.freq`,
	}

	evidenceSpec = tableSpec{
		suffix:  "_sentences",
		columns: []string{"rel", "sentence", "start_ref", "end_ref"},
		ddl: `CREATE TABLE %[1]s (
	rel INTEGER NOT NULL,
	sentence TEXT NOT NULL,
	start_ref TEXT NOT NULL,
	end_ref TEXT NOT NULL
);`,
	}
)

// quote renders a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolLit(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func renderRow(values []string) string {
	return "(" + strings.Join(values, ", ") + ")"
}

func dropStmt(name string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", name)
}

func renameStmt(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", from, to)
}
