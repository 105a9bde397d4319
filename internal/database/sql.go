package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// dialect holds the SQL differences between the two backends.
type dialect struct {
	idColumn    string
	types       map[core.ColumnKind]string
	placeholder func(n int) string
}

var postgresDialect = dialect{
	idColumn: `"id" BIGINT PRIMARY KEY`,
	types: map[core.ColumnKind]string{
		core.KindFloat:     "DOUBLE PRECISION",
		core.KindInteger:   "BIGINT",
		core.KindTimestamp: "TIMESTAMP",
		core.KindText:      "TEXT",
	},
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

var sqliteDialect = dialect{
	idColumn: `"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
	types: map[core.ColumnKind]string{
		core.KindFloat:     "REAL",
		core.KindInteger:   "INTEGER",
		core.KindTimestamp: "TIMESTAMP",
		core.KindText:      "TEXT",
	},
	placeholder: func(int) string { return "?" },
}

func (d dialect) createTable(table string, schema core.Schema) string {
	cols := make([]string, 0, len(schema)+1)
	cols = append(cols, d.idColumn)
	for _, c := range schema {
		cols = append(cols, quoteIdentifier(c.Name)+" "+d.types[c.Kind])
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(table), strings.Join(cols, ", "))
}

func (d dialect) insert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentifier(c)
		params[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// Bookkeeping tables mirrored from the audit files and the error log.
const (
	etlLogTable   = "etl_log"
	errorLogTable = "error_log"
)

var etlLogColumns = []string{
	"id",
	"began_at_timestamp",
	"header_tstamp_first",
	"station_name",
	"test_file_name",
	"table_name",
	"rows_inserted",
	"minutes_since_last_run",
}

var errorLogColumns = []string{"timestamp", "level", "message"}

func (d dialect) bookkeeping() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id" %s,
	"began_at_timestamp" %s,
	"header_tstamp_first" %s,
	"station_name" %s,
	"test_file_name" %s,
	"table_name" %s,
	"rows_inserted" INTEGER,
	"minutes_since_last_run" INTEGER
)`, etlLogTable,
			d.types[core.KindInteger],
			d.types[core.KindTimestamp],
			d.types[core.KindTimestamp],
			d.types[core.KindText],
			d.types[core.KindText],
			d.types[core.KindText],
		),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"timestamp" %s,
	"level" %s,
	"message" %s
)`, errorLogTable,
			d.types[core.KindTimestamp],
			d.types[core.KindText],
			d.types[core.KindText],
		),
	}
}

// quoteIdentifier quotes a table or column name for SQL.
// Measurement names contain spaces and punctuation, so every identifier is quoted.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
