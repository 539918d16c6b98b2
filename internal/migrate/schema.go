package migrate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/pharmstock/internal/datastore"
	"github.com/lepinkainen/pharmstock/internal/errors"
	"github.com/lepinkainen/pharmstock/internal/loader"
)

// buildCreateTable renders the target DDL for a source table,
// preserving primary keys, NOT NULL constraints and defaults.
// Unrecognized column types default to TEXT with a per-column warning.
func buildCreateTable(table string, columns []datastore.ColumnInfo) string {
	var (
		defs        []string
		primaryKeys []string
	)

	for _, col := range columns {
		pgType, known := MapType(col.DeclaredType)
		if !known {
			slog.Warn("column type not recognized, defaulting to TEXT",
				"mismatch", errors.NewSchemaMismatch(table, col.Name, col.DeclaredType))
		}

		def := datastore.QuoteIdentifier(col.Name) + " " + pgType
		if col.NotNull {
			def += " NOT NULL"
		}
		if col.DefaultValue != nil {
			def += " DEFAULT " + translateDefault(*col.DefaultValue)
		}
		defs = append(defs, def)

		if col.PrimaryKey {
			primaryKeys = append(primaryKeys, datastore.QuoteIdentifier(col.Name))
		}
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s",
		datastore.QuoteIdentifier(table),
		strings.Join(defs, ",\n\t"))
	if len(primaryKeys) > 0 {
		ddl += fmt.Sprintf(",\n\tPRIMARY KEY (%s)", strings.Join(primaryKeys, ", "))
	}
	ddl += "\n)"

	return ddl
}

// translateDefault rewrites SQLite default expressions that PostgreSQL
// spells differently. Everything else passes through verbatim.
func translateDefault(expr string) string {
	switch strings.ToUpper(strings.TrimSpace(expr)) {
	case "CURRENT_TIMESTAMP", "(CURRENT_TIMESTAMP)", "DATETIME('NOW')":
		return "CURRENT_TIMESTAMP"
	default:
		return expr
	}
}

// indexDef is one secondary index: the DDL and the columns it needs.
type indexDef struct {
	ddl     string
	columns []string
}

// secondaryIndexes returns the hand-picked indexes for the query
// patterns the web application actually runs: date-ordered scans on the
// document tables and branch lookups on current stock.
func secondaryIndexes(table string) []indexDef {
	quoted := datastore.QuoteIdentifier(table)
	switch table {
	case "purchase_orders", "branch_orders", "supplier_invoices", "grns":
		return []indexDef{{
			ddl: fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_date ON %s (document_date DESC)",
				table, quoted),
			columns: []string{"document_date"},
		}}
	case "current_stock":
		return []indexDef{{
			ddl: fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_branch ON %s (branch, company, item_code)",
				table, quoted),
			columns: []string{"branch", "company", "item_code"},
		}}
	default:
		return nil
	}
}

// naturalKeyIndex returns the unique index backing the table's natural
// key, or an empty definition when the table has none. The loader's
// conflict clauses depend on this constraint existing.
func naturalKeyIndex(table string) (indexDef, bool) {
	spec, err := loader.SpecFor(table)
	if err != nil || !spec.HasNaturalKey() {
		return indexDef{}, false
	}

	quotedCols := make([]string, len(spec.NaturalKey))
	for i, col := range spec.NaturalKey {
		quotedCols[i] = datastore.QuoteIdentifier(col)
	}

	return indexDef{
		ddl: fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS uq_%s_key ON %s (%s)",
			table, datastore.QuoteIdentifier(table), strings.Join(quotedCols, ", ")),
		columns: spec.NaturalKey,
	}, true
}

// hasColumns reports whether every named column exists in the schema.
func hasColumns(columns []datastore.ColumnInfo, names []string) bool {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col.Name] = true
	}
	for _, name := range names {
		if !present[name] {
			return false
		}
	}
	return true
}

// buildBatchInsert renders a multi-row conflict-skipping INSERT for one
// batch. Argument order is row-major.
func buildBatchInsert(table string, columns []string, rowCount int) string {
	quotedCols := make([]string, len(columns))
	for i, col := range columns {
		quotedCols[i] = datastore.QuoteIdentifier(col)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ",
		datastore.QuoteIdentifier(table), strings.Join(quotedCols, ", "))

	arg := 1
	for row := 0; row < rowCount; row++ {
		if row > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for col := range columns {
			if col > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", arg)
			arg++
		}
		sb.WriteString(")")
	}

	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String()
}
