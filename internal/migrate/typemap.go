package migrate

import "strings"

// MapType converts a SQLite declared column type to its PostgreSQL
// equivalent. SQLite uses affinity keywords rather than strict types,
// so matching is by substring the same way SQLite itself resolves
// affinity. Untyped columns map to TEXT. The second return reports
// whether the declared type matched a known family; unmatched types
// still fall back to TEXT so a single exotic column never blocks its
// table.
func MapType(declared string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(declared))

	switch {
	case t == "":
		return "TEXT", true
	case strings.Contains(t, "INT"):
		return "INTEGER", true
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return "TEXT", true
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "REAL", true
	case strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return "NUMERIC", true
	case strings.Contains(t, "BOOL"):
		return "BOOLEAN", true
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return "TIMESTAMP", true
	case strings.Contains(t, "BLOB"):
		return "BYTEA", true
	default:
		return "TEXT", false
	}
}
