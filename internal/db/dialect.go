package db

import (
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// Dialect captures the SQL differences between back-ends.
type Dialect struct {
	Name       string
	goose      goose.Dialect
	dollarArgs bool
}

var (
	DialectSQLite   = Dialect{Name: "sqlite", goose: goose.DialectSQLite3}
	DialectPostgres = Dialect{Name: "postgres", goose: goose.DialectPostgres, dollarArgs: true}
)

// rebind rewrites ? placeholders to $1..$n for dialects that need it.
func (d Dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
