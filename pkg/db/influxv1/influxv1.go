package influxv1

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/influxdata/influxql"
	"github.com/rs/zerolog"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/normalize"
	"github.com/EcoPowerHub/tsdesk/pkg/db/transport"
)

// --- InfluxDB 1.x (InfluxQL / JSON) ---

type Client struct {
	conf    db.V1Config
	http    *transport.Client
	decoder normalize.Decoder
	logger  zerolog.Logger
}

func NewClient(conf db.V1Config, logger zerolog.Logger) *Client {
	logger = logger.With().Str("backend", "v1").Str("url", conf.BaseURL()).Logger()
	return &Client{
		conf:    conf,
		http:    transport.New(conf.BaseURL(), conf.RequestTimeout(), transport.NewBasicAuth(conf.Username, conf.Password), logger),
		decoder: normalize.JSON{},
		logger:  logger,
	}
}

func (c *Client) Version() db.Version { return db.V1 }

// NewQueryBuilder ignores database: InfluxQL names it in the request, not the
// statement.
func (c *Client) NewQueryBuilder(string) db.QueryBuilder {
	return &QueryBuilder{}
}

func (c *Client) Ping(ctx context.Context) (bool, error) {
	resp, err := c.http.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/ping"})
	if err != nil {
		return false, err
	}
	if !resp.OK() {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("ping failed")
		return false, db.Errorf(db.KindNetwork, "Connection failed with status: %d. Response: %s", resp.StatusCode, resp.Truncated())
	}
	return true, nil
}

func (c *Client) Query(ctx context.Context, text string) (db.QueryResult, error) {
	return c.QueryWithDatabase(ctx, text, c.conf.Database)
}

// QueryWithDatabase runs text against database, ignoring the profile default.
// INSERT statements are sent to the write endpoint.
func (c *Client) QueryWithDatabase(ctx context.Context, text, database string) (db.QueryResult, error) {
	start := time.Now()
	if IsInsert(text) {
		if err := c.insert(ctx, text, database); err != nil {
			return db.QueryResult{}, err
		}
		return db.QueryResult{Series: []db.Series{}, ExecutionTime: db.Elapsed(start)}, nil
	}

	params := url.Values{}
	if database != "" {
		params.Set("db", database)
	}
	req := transport.Request{Method: http.MethodGet, Path: "/query", Query: params}
	if isReadOnly(text) {
		params.Set("q", text)
	} else {
		// the server refuses schema changes over GET
		req.Method = http.MethodPost
		req.Header = http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
		req.Body = url.Values{"q": {text}}.Encode()
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return db.QueryResult{}, err
	}
	if !resp.OK() {
		c.logger.Error().Int("status", resp.StatusCode).Str("query", text).Msg("query failed")
		return db.QueryResult{}, db.Errorf(db.KindQuery, "HTTP %d: %s", resp.StatusCode, resp.Text())
	}
	series, err := c.decoder.Decode(resp.Body)
	if err != nil {
		return db.QueryResult{}, err
	}
	result := db.QueryResult{Series: series, ExecutionTime: db.Elapsed(start)}
	c.logger.Debug().Int("series", len(series)).Uint64("ms", result.ExecutionTime).Msg("query done")
	return result, nil
}

func (c *Client) insert(ctx context.Context, stmt, database string) error {
	ins, err := ParseInsert(stmt)
	if err != nil {
		return err
	}
	if ins.Database != "" {
		database = ins.Database
	}
	return c.write(ctx, database, ins.RetentionPolicy, ins.Payload)
}

func (c *Client) WriteLines(ctx context.Context, database string, lines ...string) error {
	if len(lines) == 0 {
		return db.NewError(db.KindValidation, "nothing to write")
	}
	return c.write(ctx, database, "", strings.Join(lines, "\n"))
}

func (c *Client) write(ctx context.Context, database, rp, payload string) error {
	if database == "" {
		return db.NewError(db.KindValidation, "Database name cannot be empty")
	}
	params := url.Values{"db": {database}}
	if rp != "" {
		params.Set("rp", rp)
	}
	resp, err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/write",
		Query:  params,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   payload,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		c.logger.Error().Int("status", resp.StatusCode).Str("db", database).Msg("write failed")
		return db.Errorf(db.KindQuery, "HTTP %d: %s", resp.StatusCode, resp.Text())
	}
	return nil
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	result, err := c.Query(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, err
	}
	return db.ColumnValues(result.Series, ""), nil
}

func (c *Client) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	result, err := c.Query(ctx, "SHOW MEASUREMENTS ON "+influxql.QuoteIdent(database))
	if err != nil {
		return nil, err
	}
	return db.ColumnValues(result.Series, ""), nil
}

func (c *Client) DatabaseInfo(ctx context.Context, database string) (db.DatabaseInfo, error) {
	result, err := c.Query(ctx, "SHOW RETENTION POLICIES ON "+influxql.QuoteIdent(database))
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	info := db.DatabaseInfo{
		Name:              database,
		RetentionPolicies: retentionPolicies(result.Series),
		Measurements:      []db.Measurement{},
	}

	names, err := c.ListMeasurements(ctx, database)
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	for _, name := range names {
		info.Measurements = append(info.Measurements, db.NewMeasurement(name))
	}
	return info, nil
}

// retentionPolicies reads rows of at least four cells. Columns are located by
// name when the server labels them and by position otherwise.
func retentionPolicies(series []db.Series) []db.RetentionPolicy {
	policies := []db.RetentionPolicy{}
	for _, s := range series {
		idx := columnIndex(s.Columns)
		nameAt, durationAt := idx("name", 0), idx("duration", 1)
		replicaAt, defaultAt := idx("replicaN", 2), idx("default", 3)
		for _, row := range s.Values {
			if len(row) < 4 {
				continue
			}
			rp := db.RetentionPolicy{Replication: 1}
			rp.Name, _ = cellAt(row, nameAt).(string)
			rp.Duration, _ = cellAt(row, durationAt).(string)
			switch n := cellAt(row, replicaAt).(type) {
			case int64:
				rp.Replication = uint32(n)
			case float64:
				rp.Replication = uint32(n)
			}
			rp.Default, _ = cellAt(row, defaultAt).(bool)
			policies = append(policies, rp)
		}
	}
	return policies
}

func columnIndex(columns []string) func(name string, fallback int) int {
	return func(name string, fallback int) int {
		for i, c := range columns {
			if c == name {
				return i
			}
		}
		return fallback
	}
}

func cellAt(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func (c *Client) MeasurementInfo(ctx context.Context, database, name string) (db.Measurement, error) {
	names, err := c.ListMeasurements(ctx, database)
	if err != nil {
		return db.Measurement{}, err
	}
	if !slices.Contains(names, name) {
		return db.Measurement{}, db.Errorf(db.KindNotFound, "Measurement '%s' not found in database '%s'", name, database)
	}

	m := db.NewMeasurement(name)
	fields, err := c.QueryWithDatabase(ctx, "SHOW FIELD KEYS FROM "+quote(name), database)
	if err != nil {
		return db.Measurement{}, err
	}
	for _, s := range fields.Series {
		for _, row := range s.Values {
			if len(row) < 2 {
				continue
			}
			key, ok1 := row[0].(string)
			typ, ok2 := row[1].(string)
			if ok1 && ok2 {
				m.FieldKeys = append(m.FieldKeys, db.FieldKey{Name: key, FieldType: db.FieldType(typ)})
			}
		}
	}

	tags, err := c.QueryWithDatabase(ctx, "SHOW TAG KEYS FROM "+quote(name), database)
	if err != nil {
		return db.Measurement{}, err
	}
	m.TagKeys = db.ColumnValues(tags.Series, "")
	return m, nil
}

func (c *Client) CreateDatabase(ctx context.Context, name string, rp *db.RetentionPolicy) error {
	stmt, err := CreateDatabaseStatement(name, rp)
	if err != nil {
		return err
	}
	_, err = c.QueryWithDatabase(ctx, stmt, "")
	return err
}

func (c *Client) DropDatabase(ctx context.Context, name string) error {
	_, err := c.QueryWithDatabase(ctx, "DROP DATABASE "+quote(name), "")
	return err
}

func (c *Client) DropMeasurement(ctx context.Context, database, name string) error {
	_, err := c.QueryWithDatabase(ctx, "DROP MEASUREMENT "+quote(name), database)
	return err
}

// CreateDatabaseStatement renders
//
//	CREATE DATABASE "name" [WITH DURATION d REPLICATION r NAME "rp"]
func CreateDatabaseStatement(name string, rp *db.RetentionPolicy) (string, error) {
	stmt := "CREATE DATABASE " + quote(name)
	if rp == nil {
		return stmt, nil
	}
	if rp.Name == "" {
		return "", db.NewError(db.KindValidation, "retention policy name cannot be empty")
	}
	if !strings.EqualFold(rp.Duration, "INF") {
		if _, err := influxql.ParseDuration(rp.Duration); err != nil {
			return "", db.WrapError(db.KindValidation, fmt.Sprintf("invalid retention duration %q", rp.Duration), err)
		}
	}
	replication := rp.Replication
	if replication == 0 {
		replication = 1
	}
	return fmt.Sprintf("%s WITH DURATION %s REPLICATION %d NAME %s", stmt, rp.Duration, replication, quote(rp.Name)), nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `\"`) + `"`
}

func isReadOnly(stmt string) bool {
	s := strings.TrimLeftFunc(stmt, unicode.IsSpace)
	return hasKeyword(s, "SELECT") || hasKeyword(s, "SHOW")
}
