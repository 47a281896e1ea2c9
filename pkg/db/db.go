// --- Interfaces communes aux deux générations de backend ---

package db

import (
	"context"
	"time"
)

type QueryResult struct {
	Series        []Series `json:"series"`
	ExecutionTime uint64   `json:"execution_time"`
}

// Series is one named table of a result. Values rows are aligned with Columns
// by position but are kept as received, so a row may be shorter or longer.
type Series struct {
	Name    string            `json:"name"`
	Columns []string          `json:"columns"`
	Values  [][]any           `json:"values"`
	Tags    map[string]string `json:"tags,omitempty"`
}

type DatabaseInfo struct {
	Name              string            `json:"name"`
	RetentionPolicies []RetentionPolicy `json:"retention_policies"`
	Measurements      []Measurement     `json:"measurements"`
	SeriesCount       uint64            `json:"series_count"`
}

type RetentionPolicy struct {
	Name        string `json:"name"`
	Duration    string `json:"duration"`
	Replication uint32 `json:"replication"`
	Default     bool   `json:"default"`
}

type Measurement struct {
	Name        string     `json:"name"`
	TagKeys     []string   `json:"tag_keys"`
	FieldKeys   []FieldKey `json:"field_keys"`
	SeriesCount uint64     `json:"series_count"`
}

type FieldType string

const (
	FieldString  FieldType = "string"
	FieldFloat   FieldType = "float"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
)

type FieldKey struct {
	Name      string    `json:"name"`
	FieldType FieldType `json:"field_type"`
}

// NewMeasurement returns a measurement summary without tag or field details.
func NewMeasurement(name string) Measurement {
	return Measurement{Name: name, TagKeys: []string{}, FieldKeys: []FieldKey{}}
}

type QueryBuilder interface {
	Select(fields ...string) QueryBuilder
	From(measurement string) QueryBuilder
	Where(condition string) QueryBuilder
	Since(d time.Duration) QueryBuilder
	GroupBy(fields ...string) QueryBuilder
	OrderBy(field string, asc bool) QueryBuilder
	Limit(n int) QueryBuilder
	Build() string
}

// Service is one live backend session. Implementations are immutable after
// construction and safe for concurrent use.
type Service interface {
	Version() Version
	Ping(ctx context.Context) (bool, error)
	Query(ctx context.Context, text string) (QueryResult, error)
	QueryWithDatabase(ctx context.Context, text, database string) (QueryResult, error)
	ListDatabases(ctx context.Context) ([]string, error)
	ListMeasurements(ctx context.Context, database string) ([]string, error)
	DatabaseInfo(ctx context.Context, database string) (DatabaseInfo, error)
	MeasurementInfo(ctx context.Context, database, name string) (Measurement, error)
	NewQueryBuilder(database string) QueryBuilder
}

// Admin covers the schema and write operations that each generation expresses
// through a different API.
type Admin interface {
	CreateDatabase(ctx context.Context, name string, rp *RetentionPolicy) error
	DropDatabase(ctx context.Context, name string) error
	DropMeasurement(ctx context.Context, database, name string) error
	WriteLines(ctx context.Context, database string, lines ...string) error
}

// Elapsed returns the milliseconds spent since start.
func Elapsed(start time.Time) uint64 {
	return uint64(time.Since(start).Milliseconds())
}

// ColumnValues collects the string cells of the named column across every row
// of every series. Series without that column, or calls with an empty name,
// read column 0.
func ColumnValues(series []Series, column string) []string {
	names := []string{}
	for _, s := range series {
		idx := 0
		for i, c := range s.Columns {
			if column != "" && c == column {
				idx = i
				break
			}
		}
		for _, row := range s.Values {
			if idx >= len(row) {
				continue
			}
			if name, ok := row[idx].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}
