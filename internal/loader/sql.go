package loader

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/pharmstock/internal/datastore"
)

func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = datastore.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

func placeholderList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

// buildInsert produces a plain parameterized INSERT for one record.
func buildInsert(spec TableSpec, columns []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		datastore.QuoteIdentifier(spec.Name),
		quotedList(columns),
		placeholderList(len(columns)),
	)
}

// buildInsertSkip produces an INSERT that silently skips conflicting
// rows. With a natural key the conflict target is explicit; without one
// any unique violation is skipped.
func buildInsertSkip(spec TableSpec, columns []string) string {
	base := buildInsert(spec, columns)
	if spec.HasNaturalKey() {
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, quotedList(spec.NaturalKey))
	}
	return base + " ON CONFLICT DO NOTHING"
}

// buildUpsert produces an INSERT ... ON CONFLICT DO UPDATE that
// overwrites every non-key column from the incoming row.
func buildUpsert(spec TableSpec, columns []string) string {
	key := make(map[string]bool, len(spec.NaturalKey))
	for _, k := range spec.NaturalKey {
		key[k] = true
	}

	var updates []string
	for _, col := range columns {
		if key[col] {
			continue
		}
		q := datastore.QuoteIdentifier(col)
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	base := buildInsert(spec, columns)
	if len(updates) == 0 {
		// Every column is part of the key, nothing to update.
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", base, quotedList(spec.NaturalKey))
	}

	return fmt.Sprintf(
		"%s ON CONFLICT (%s) DO UPDATE SET %s",
		base,
		quotedList(spec.NaturalKey),
		strings.Join(updates, ", "),
	)
}

// buildDeleteAll produces the statement that clears a table before a
// full replace.
func buildDeleteAll(spec TableSpec) string {
	return fmt.Sprintf("DELETE FROM %s", datastore.QuoteIdentifier(spec.Name))
}
