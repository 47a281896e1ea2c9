package influxv1

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxql"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

type QueryBuilder struct {
	selects  []string
	from     string
	where    string
	since    time.Duration
	groupBy  []string
	orderBy  string
	orderAsc bool
	limit    int
}

func (b *QueryBuilder) Select(fields ...string) db.QueryBuilder {
	b.selects = fields
	return b
}
func (b *QueryBuilder) From(measurement string) db.QueryBuilder {
	b.from = measurement
	return b
}
func (b *QueryBuilder) Where(condition string) db.QueryBuilder {
	b.where = condition
	return b
}
func (b *QueryBuilder) Since(d time.Duration) db.QueryBuilder {
	b.since = d
	return b
}
func (b *QueryBuilder) GroupBy(fields ...string) db.QueryBuilder {
	b.groupBy = fields
	return b
}
func (b *QueryBuilder) OrderBy(field string, asc bool) db.QueryBuilder {
	b.orderBy = field
	b.orderAsc = asc
	return b
}
func (b *QueryBuilder) Limit(n int) db.QueryBuilder {
	b.limit = n
	return b
}
func (b *QueryBuilder) Build() string {
	fields := "*"
	if len(b.selects) > 0 {
		fields = strings.Join(b.selects, ", ")
	}
	query := fmt.Sprintf("SELECT %s FROM %s", fields, influxql.QuoteIdent(b.from))

	var conds []string
	if b.where != "" {
		conds = append(conds, b.where)
	}
	if b.since > 0 {
		conds = append(conds, "time > now() - "+influxql.FormatDuration(b.since))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(b.groupBy) > 0 {
		query += " GROUP BY " + strings.Join(b.groupBy, ", ")
	}
	if b.orderBy != "" {
		dir := "DESC"
		if b.orderAsc {
			dir = "ASC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", b.orderBy, dir)
	}
	if b.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", b.limit)
	}
	return query
}
