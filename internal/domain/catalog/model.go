package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/riskibarqy/epl-data-lake/internal/domain/player"
)

const (
	TypeString = "string"
	TypeInt    = "int"
)

var columnNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column is one (name, declared type) pair of the table schema.
type Column struct {
	Name string
	Type string
}

// Table describes an external table bound to a storage prefix.
type Table struct {
	Database    string
	Name        string
	Location    string
	Description string
	Columns     []Column
}

// DefaultPlayerColumns is the fixed schema of the player table.
func DefaultPlayerColumns() []Column {
	return []Column{
		{Name: "PlayerID", Type: TypeInt},
		{Name: "FirstName", Type: TypeString},
		{Name: "LastName", Type: TypeString},
		{Name: player.TeamField, Type: TypeString},
		{Name: "Position", Type: TypeString},
		{Name: "Nationality", Type: TypeString},
		{Name: "Jersey", Type: TypeInt},
	}
}

// PlayerColumns appends extra provider fields, consumed as strings, to the
// default schema. Names already present are ignored.
func PlayerColumns(extra []string) []Column {
	columns := DefaultPlayerColumns()
	seen := make(map[string]struct{}, len(columns)+len(extra))
	for _, column := range columns {
		seen[strings.ToLower(column.Name)] = struct{}{}
	}
	for _, name := range extra {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		columns = append(columns, Column{Name: name, Type: TypeString})
	}
	return columns
}

func (t Table) Validate() error {
	if strings.TrimSpace(t.Database) == "" {
		return fmt.Errorf("table database is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if !strings.HasPrefix(t.Location, "s3://") {
		return fmt.Errorf("table location %q must be an s3:// prefix", t.Location)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s needs at least one column", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, column := range t.Columns {
		if !columnNamePattern.MatchString(column.Name) {
			return fmt.Errorf("invalid column name %q", column.Name)
		}
		if column.Type != TypeString && column.Type != TypeInt {
			return fmt.Errorf("unsupported type %q for column %s", column.Type, column.Name)
		}
		key := strings.ToLower(column.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate column %q", column.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Project keeps only the fields of record that are schema columns, renamed to
// the column spelling, so that every stored line maps onto the registered
// table. Matching is case-insensitive like the JSON SerDe ("PlayerId" fills
// PlayerID); an exact-case field wins over a case-folded one.
func Project(record player.Record, columns []Column) player.Record {
	folded := make(map[string]string, len(record))
	for key := range record {
		lower := strings.ToLower(key)
		if existing, ok := folded[lower]; ok && existing < key {
			continue
		}
		folded[lower] = key
	}

	out := make(player.Record, len(columns))
	for _, column := range columns {
		if value, ok := record[column.Name]; ok {
			out[column.Name] = value
			continue
		}
		if key, ok := folded[strings.ToLower(column.Name)]; ok {
			out[column.Name] = record[key]
		}
	}
	return out
}
