package influx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	ihttp "github.com/influxdata/influxdb-client-go/v2/api/http"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/influxdata/influxql"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/normalize"
	"github.com/EcoPowerHub/tsdesk/pkg/db/transport"
)

// --- InfluxDB 2.x (Flux / CSV) ---

// Client queries through the HTTP endpoints directly so the CSV body can be
// normalized as received. Bucket and write management go through the official
// client.
type Client struct {
	conf    db.V2Config
	version db.Version
	http    *transport.Client
	decoder normalize.Decoder
	admin   influxdb2.Client
	logger  zerolog.Logger
}

func NewClient(conf db.V2Config, opts normalize.CSVOptions, logger zerolog.Logger) *Client {
	logger = logger.With().Str("backend", "v2").Str("url", conf.BaseURL()).Str("org", conf.Org).Logger()
	timeout := conf.RequestTimeout()
	seconds := uint(timeout / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return &Client{
		conf:    conf,
		version: db.V2,
		http:    transport.New(conf.BaseURL(), timeout, transport.NewTokenAuth(conf.Token), logger),
		decoder: normalize.CSV{Options: opts},
		admin:   influxdb2.NewClientWithOptions(conf.BaseURL(), conf.Token, influxdb2.DefaultOptions().SetHTTPRequestTimeout(seconds)),
		logger:  logger,
	}
}

// AsVersion returns a copy of c that reports v. V3 profiles are served by the
// V2 protocol.
func (c *Client) AsVersion(v db.Version) *Client {
	cp := *c
	cp.version = v
	return &cp
}

func (c *Client) Version() db.Version { return c.version }

func (c *Client) Close() error {
	c.admin.Close()
	return nil
}

func (c *Client) NewQueryBuilder(database string) db.QueryBuilder {
	return &FluxQueryBuilder{bucket: c.bucket(database)}
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
	return c.QueryWithDatabase(ctx, text, c.conf.Bucket)
}

// QueryWithDatabase treats database as the bucket for rewritten statements.
func (c *Client) QueryWithDatabase(ctx context.Context, text, database string) (db.QueryResult, error) {
	flux, err := ToFlux(text, c.bucket(database))
	if err != nil {
		return db.QueryResult{}, err
	}
	return c.flux(ctx, flux)
}

func (c *Client) flux(ctx context.Context, flux string) (db.QueryResult, error) {
	start := time.Now()
	resp, err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v2/query",
		Query:  url.Values{"org": {c.conf.Org}},
		Header: http.Header{
			"Content-Type": {"application/vnd.flux"},
			"Accept":       {"text/csv"},
		},
		Body: flux,
	})
	if err != nil {
		return db.QueryResult{}, err
	}
	if !resp.OK() {
		c.logger.Error().Int("status", resp.StatusCode).Str("query", flux).Msg("query failed")
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

func (c *Client) bucket(database string) string {
	if database != "" {
		return database
	}
	return c.conf.Bucket
}

func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	result, err := c.flux(ctx, listBucketsFlux)
	if err != nil {
		return nil, err
	}
	return db.ColumnValues(result.Series, "name"), nil
}

func (c *Client) ListMeasurements(ctx context.Context, database string) ([]string, error) {
	bucket := c.bucket(database)
	if bucket == "" {
		return nil, db.NewError(db.KindValidation, "Database name cannot be empty")
	}
	result, err := c.flux(ctx, measurementsFlux(bucket))
	if err != nil {
		return nil, err
	}
	return db.ColumnValues(result.Series, "_value"), nil
}

func (c *Client) DatabaseInfo(ctx context.Context, database string) (db.DatabaseInfo, error) {
	names, err := c.ListMeasurements(ctx, database)
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	info := db.DatabaseInfo{
		Name:              database,
		RetentionPolicies: []db.RetentionPolicy{},
		Measurements:      make([]db.Measurement, 0, len(names)),
	}
	for _, name := range names {
		info.Measurements = append(info.Measurements, db.NewMeasurement(name))
	}
	return info, nil
}

func (c *Client) MeasurementInfo(ctx context.Context, database, name string) (db.Measurement, error) {
	names, err := c.ListMeasurements(ctx, database)
	if err != nil {
		return db.Measurement{}, err
	}
	if !slices.Contains(names, name) {
		return db.Measurement{}, db.Errorf(db.KindNotFound, "Measurement '%s' not found in database '%s'", name, database)
	}
	bucket := c.bucket(database)

	m := db.NewMeasurement(name)
	tags, err := c.flux(ctx, tagKeysFlux(bucket, name))
	if err != nil {
		return db.Measurement{}, err
	}
	for _, key := range db.ColumnValues(tags.Series, "_value") {
		if !strings.HasPrefix(key, "_") {
			m.TagKeys = append(m.TagKeys, key)
		}
	}

	fields, err := c.flux(ctx, fieldKeysFlux(bucket, name))
	if err != nil {
		return db.Measurement{}, err
	}
	for _, key := range db.ColumnValues(fields.Series, "_value") {
		m.FieldKeys = append(m.FieldKeys, db.FieldKey{Name: key})
	}
	return m, nil
}

// CreateDatabase creates a bucket in the profile organization. The retention
// policy name and replication are not used by this generation.
func (c *Client) CreateDatabase(ctx context.Context, name string, rp *db.RetentionPolicy) error {
	var rules []domain.RetentionRule
	if rp != nil {
		seconds, err := everySeconds(rp.Duration)
		if err != nil {
			return err
		}
		rules = append(rules, domain.RetentionRule{EverySeconds: seconds})
	}
	org, err := c.admin.OrganizationsAPI().FindOrganizationByName(ctx, c.conf.Org)
	if err != nil {
		return adminError(err, fmt.Sprintf("Organization '%s' not found", c.conf.Org))
	}
	if _, err := c.admin.BucketsAPI().CreateBucketWithName(ctx, org, name, rules...); err != nil {
		return adminError(err, "create bucket")
	}
	c.logger.Info().Str("bucket", name).Msg("bucket created")
	return nil
}

func (c *Client) DropDatabase(ctx context.Context, name string) error {
	bucketsAPI := c.admin.BucketsAPI()
	bucket, err := bucketsAPI.FindBucketByName(ctx, name)
	if err != nil {
		return adminError(err, fmt.Sprintf("Bucket '%s' not found", name))
	}
	if err := bucketsAPI.DeleteBucket(ctx, bucket); err != nil {
		return adminError(err, "delete bucket")
	}
	c.logger.Info().Str("bucket", name).Msg("bucket deleted")
	return nil
}

// DropMeasurement deletes every point of the measurement up to now.
func (c *Client) DropMeasurement(ctx context.Context, database, name string) error {
	bucket := c.bucket(database)
	predicate := "_measurement=" + fluxString(name)
	err := c.admin.DeleteAPI().DeleteWithName(ctx, c.conf.Org, bucket, time.Unix(0, 0).UTC(), time.Now().UTC(), predicate)
	if err != nil {
		return adminError(err, "delete measurement")
	}
	return nil
}

func (c *Client) WriteLines(ctx context.Context, database string, lines ...string) error {
	if len(lines) == 0 {
		return db.NewError(db.KindValidation, "nothing to write")
	}
	bucket := c.bucket(database)
	if bucket == "" {
		return db.NewError(db.KindValidation, "Database name cannot be empty")
	}
	if err := c.admin.WriteAPIBlocking(c.conf.Org, bucket).WriteRecord(ctx, lines...); err != nil {
		return adminError(err, "write")
	}
	return nil
}

// everySeconds converts an InfluxQL duration to bucket retention. INF and 0
// mean infinite retention.
func everySeconds(duration string) (int64, error) {
	if duration == "" || strings.EqualFold(duration, "INF") {
		return 0, nil
	}
	d, err := influxql.ParseDuration(duration)
	if err != nil {
		return 0, db.WrapError(db.KindValidation, fmt.Sprintf("invalid retention duration %q", duration), err)
	}
	return int64(d / time.Second), nil
}

// adminError maps errors from the official client onto our kinds.
func adminError(err error, msg string) error {
	var herr *ihttp.Error
	if errors.As(err, &herr) {
		switch {
		case herr.StatusCode == http.StatusNotFound:
			return db.WrapError(db.KindNotFound, msg, err)
		case herr.StatusCode == 0:
			return db.WrapError(db.KindNetwork, msg, err)
		}
		return db.WrapError(db.KindQuery, msg, err)
	}
	if strings.Contains(err.Error(), "not found") {
		return db.WrapError(db.KindNotFound, msg, err)
	}
	return db.WrapError(db.KindNetwork, msg, err)
}
