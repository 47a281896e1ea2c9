package influx

import (
	"fmt"
	"strings"
	"time"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

const defaultRange = time.Hour

type FluxQueryBuilder struct {
	selects     []string
	bucket      string
	measurement string
	where       string
	since       time.Duration
	groupBy     []string
	orderBy     string
	orderAsc    bool
	limit       int
}

func (b *FluxQueryBuilder) Select(fields ...string) db.QueryBuilder {
	b.selects = fields
	return b
}
func (b *FluxQueryBuilder) From(measurement string) db.QueryBuilder {
	b.measurement = measurement
	return b
}
func (b *FluxQueryBuilder) Where(condition string) db.QueryBuilder {
	b.where = condition
	return b
}
func (b *FluxQueryBuilder) Since(d time.Duration) db.QueryBuilder {
	b.since = d
	return b
}
func (b *FluxQueryBuilder) GroupBy(fields ...string) db.QueryBuilder {
	b.groupBy = fields
	return b
}
func (b *FluxQueryBuilder) OrderBy(field string, asc bool) db.QueryBuilder {
	b.orderBy = field
	b.orderAsc = asc
	return b
}
func (b *FluxQueryBuilder) Limit(n int) db.QueryBuilder {
	b.limit = n
	return b
}
func (b *FluxQueryBuilder) Build() string {
	since := b.since
	if since <= 0 {
		since = defaultRange
	}
	query := fmt.Sprintf(`from(bucket: %s) |> range(start: -%s)`, fluxString(b.bucket), fluxDuration(since))
	if b.measurement != "" {
		query += fmt.Sprintf(` |> filter(fn: (r) => r._measurement == %s)`, fluxString(b.measurement))
	}
	if fields := b.fields(); len(fields) > 0 {
		conds := make([]string, len(fields))
		for i, f := range fields {
			conds[i] = "r._field == " + fluxString(f)
		}
		query += fmt.Sprintf(" |> filter(fn: (r) => %s)", strings.Join(conds, " or "))
	}
	if b.where != "" {
		query += fmt.Sprintf(" |> filter(fn: (r) => %s)", b.where)
	}
	if len(b.groupBy) > 0 {
		cols := make([]string, len(b.groupBy))
		for i, g := range b.groupBy {
			cols[i] = fluxString(g)
		}
		query += fmt.Sprintf(" |> group(columns: [%s])", strings.Join(cols, ", "))
	}
	if b.orderBy != "" {
		query += fmt.Sprintf(" |> sort(columns: [%s], desc: %v)", fluxString(b.orderBy), !b.orderAsc)
	}
	if b.limit > 0 {
		query += fmt.Sprintf(" |> limit(n: %d)", b.limit)
	}
	return query
}

// fields drops the wildcard, which Flux expresses by not filtering.
func (b *FluxQueryBuilder) fields() []string {
	var out []string
	for _, f := range b.selects {
		if f != "" && f != "*" {
			out = append(out, f)
		}
	}
	return out
}

// fluxDuration renders d with the largest whole unit Flux accepts.
func fluxDuration(d time.Duration) string {
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
		{"ms", time.Millisecond},
	}
	for _, u := range units {
		if d%u.size == 0 {
			return fmt.Sprintf("%d%s", d/u.size, u.suffix)
		}
	}
	return fmt.Sprintf("%dns", d.Nanoseconds())
}
