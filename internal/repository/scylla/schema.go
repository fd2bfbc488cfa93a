package scylla

import (
	_ "embed"
	"strings"
)

//go:embed schema.cql
var schemaCQL string

func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaCQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
