package tsdesk

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/factory"
	"github.com/EcoPowerHub/tsdesk/pkg/db/registry"
)

// Version is set at build time with -ldflags.
var Version = "0.1.0-dev"

const (
	defaultPreviewLimit = 100
	previewWindow       = 30 * 24 * time.Hour
)

// Field is one field of a measurement created from the desk.
type Field struct {
	Name  string       `json:"name" yaml:"name"`
	Type  db.FieldType `json:"type" yaml:"type"`
	Value any          `json:"value" yaml:"value"`
}

type Tag struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Desk is the caller-facing surface: every operation resolves a connection id
// through the registry and wraps the outcome in a Response.
type Desk struct {
	registry *registry.Registry
	opts     factory.Options
	logger   zerolog.Logger
}

func New(conf Configuration, reg *registry.Registry, logger zerolog.Logger) *Desk {
	if reg == nil {
		reg = registry.Default
	}
	return &Desk{
		registry: reg,
		opts:     factory.Options{Logger: logger, CSV: conf.CSV},
		logger:   logger,
	}
}

// run executes fn with a request-scoped logger, records metrics and turns
// errors and panics into a failed envelope.
func run[T any](ctx context.Context, d *Desk, operation string, fn func(ctx context.Context, logger zerolog.Logger) (T, error)) (resp Response[T]) {
	start := time.Now()
	logger := d.logger.With().Str("request_id", uuid.NewString()).Str("operation", operation).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("operation panicked")
			resp = fail[T](fmt.Sprintf("internal error: %v", r))
		}
		observe(operation, resp.Success, time.Since(start))
	}()

	data, err := fn(ctx, logger)
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(db.KindOf(err))).Msg("operation failed")
		return fail[T](err.Error())
	}
	logger.Debug().Dur("took", time.Since(start)).Msg("operation done")
	return ok(data)
}

func (d *Desk) service(id string) (db.Service, error) {
	svc, found := d.registry.Lookup(id)
	if !found {
		return nil, db.ErrConnectionNotFound
	}
	return svc, nil
}

func (d *Desk) admin(id string) (db.Admin, error) {
	svc, err := d.service(id)
	if err != nil {
		return nil, err
	}
	admin, isAdmin := svc.(db.Admin)
	if !isAdmin {
		return nil, db.Errorf(db.KindValidation, "%s backend does not support this operation", svc.Version())
	}
	return admin, nil
}

func closeService(svc db.Service) {
	if c, isCloser := svc.(io.Closer); isCloser {
		_ = c.Close()
	}
}

func validateDatabase(database string) error {
	if strings.TrimSpace(database) == "" {
		return db.NewError(db.KindValidation, "Database name cannot be empty")
	}
	return nil
}

func validateMeasurement(name string) error {
	if strings.TrimSpace(name) == "" {
		return db.NewError(db.KindValidation, "Measurement name cannot be empty")
	}
	return nil
}

// TestConnection builds a throwaway service for profile and pings it.
func (d *Desk) TestConnection(ctx context.Context, profile db.ConnectionProfile) Response[bool] {
	return run(ctx, d, "test_connection", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		svc, err := factory.NewService(profile, d.opts)
		if err != nil {
			return false, err
		}
		defer closeService(svc)
		return svc.Ping(ctx)
	})
}

// Connect pings the profile backend and registers it. The connection id is
// returned; connecting the same id again replaces the previous session.
func (d *Desk) Connect(ctx context.Context, profile db.ConnectionProfile) Response[string] {
	return run(ctx, d, "connect", func(ctx context.Context, logger zerolog.Logger) (string, error) {
		id, err := factory.ConnectionID(profile)
		if err != nil {
			return "", err
		}
		svc, err := factory.NewService(profile, d.opts)
		if err != nil {
			return "", err
		}
		if _, err := svc.Ping(ctx); err != nil {
			closeService(svc)
			return "", err
		}
		if prev, replaced := d.registry.Insert(id, svc); replaced {
			closeService(prev)
		}
		logger.Info().Str("connection_id", id).Str("version", string(svc.Version())).Msg("connected")
		return id, nil
	})
}

func (d *Desk) Disconnect(ctx context.Context, id string) Response[bool] {
	return run(ctx, d, "disconnect", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		svc, found := d.registry.Take(id)
		if !found {
			return false, db.ErrConnectionNotFound
		}
		closeService(svc)
		logger.Info().Str("connection_id", id).Msg("disconnected")
		return true, nil
	})
}

func (d *Desk) ListDatabases(ctx context.Context, id string) Response[[]string] {
	return run(ctx, d, "list_databases", func(ctx context.Context, logger zerolog.Logger) ([]string, error) {
		svc, err := d.service(id)
		if err != nil {
			return nil, err
		}
		return svc.ListDatabases(ctx)
	})
}

func (d *Desk) DatabaseInfo(ctx context.Context, id, database string) Response[db.DatabaseInfo] {
	return run(ctx, d, "database_info", func(ctx context.Context, logger zerolog.Logger) (db.DatabaseInfo, error) {
		svc, err := d.service(id)
		if err != nil {
			return db.DatabaseInfo{}, err
		}
		if err := validateDatabase(database); err != nil {
			return db.DatabaseInfo{}, err
		}
		return svc.DatabaseInfo(ctx, database)
	})
}

// ExecuteQuery runs query against database, or against the profile default
// when database is empty.
func (d *Desk) ExecuteQuery(ctx context.Context, id, database, query string) Response[db.QueryResult] {
	return run(ctx, d, "execute_query", func(ctx context.Context, logger zerolog.Logger) (db.QueryResult, error) {
		svc, err := d.service(id)
		if err != nil {
			return db.QueryResult{}, err
		}
		if strings.TrimSpace(query) == "" {
			return db.QueryResult{}, db.NewError(db.KindValidation, "Query cannot be empty")
		}
		logger.Debug().Str("database", database).Str("query", query).Msg("executing query")
		if database == "" {
			return svc.Query(ctx, query)
		}
		return svc.QueryWithDatabase(ctx, query, database)
	})
}

func (d *Desk) CreateDatabase(ctx context.Context, id, database string, rp *db.RetentionPolicy) Response[bool] {
	return run(ctx, d, "create_database", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		admin, err := d.admin(id)
		if err != nil {
			return false, err
		}
		if err := validateDatabase(database); err != nil {
			return false, err
		}
		if err := admin.CreateDatabase(ctx, database, rp); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (d *Desk) DropDatabase(ctx context.Context, id, database string) Response[bool] {
	return run(ctx, d, "drop_database", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		admin, err := d.admin(id)
		if err != nil {
			return false, err
		}
		if err := validateDatabase(database); err != nil {
			return false, err
		}
		if err := admin.DropDatabase(ctx, database); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (d *Desk) ListMeasurements(ctx context.Context, id, database string) Response[[]string] {
	return run(ctx, d, "list_measurements", func(ctx context.Context, logger zerolog.Logger) ([]string, error) {
		svc, err := d.service(id)
		if err != nil {
			return nil, err
		}
		if err := validateDatabase(database); err != nil {
			return nil, err
		}
		return svc.ListMeasurements(ctx, database)
	})
}

func (d *Desk) MeasurementInfo(ctx context.Context, id, database, name string) Response[db.Measurement] {
	return run(ctx, d, "measurement_info", func(ctx context.Context, logger zerolog.Logger) (db.Measurement, error) {
		svc, err := d.service(id)
		if err != nil {
			return db.Measurement{}, err
		}
		if err := validateDatabase(database); err != nil {
			return db.Measurement{}, err
		}
		if err := validateMeasurement(name); err != nil {
			return db.Measurement{}, err
		}
		return svc.MeasurementInfo(ctx, database, name)
	})
}

// CreateMeasurement writes a single point, which is how a measurement comes
// into existence on both generations.
func (d *Desk) CreateMeasurement(ctx context.Context, id, database, name string, fields []Field, tags []Tag) Response[bool] {
	return run(ctx, d, "create_measurement", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		admin, err := d.admin(id)
		if err != nil {
			return false, err
		}
		if err := validateDatabase(database); err != nil {
			return false, err
		}
		if err := validateMeasurement(name); err != nil {
			return false, err
		}
		line, err := LineProtocol(name, fields, tags)
		if err != nil {
			return false, err
		}
		logger.Debug().Str("line", line).Msg("writing point")
		if err := admin.WriteLines(ctx, database, line); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (d *Desk) DeleteMeasurement(ctx context.Context, id, database, name string) Response[bool] {
	return run(ctx, d, "delete_measurement", func(ctx context.Context, logger zerolog.Logger) (bool, error) {
		admin, err := d.admin(id)
		if err != nil {
			return false, err
		}
		if err := validateDatabase(database); err != nil {
			return false, err
		}
		if err := validateMeasurement(name); err != nil {
			return false, err
		}
		if err := admin.DropMeasurement(ctx, database, name); err != nil {
			return false, err
		}
		return true, nil
	})
}

// PreviewMeasurement returns up to limit points of the last 30 days.
func (d *Desk) PreviewMeasurement(ctx context.Context, id, database, name string, limit int) Response[db.QueryResult] {
	return run(ctx, d, "preview_measurement", func(ctx context.Context, logger zerolog.Logger) (db.QueryResult, error) {
		svc, err := d.service(id)
		if err != nil {
			return db.QueryResult{}, err
		}
		if err := validateDatabase(database); err != nil {
			return db.QueryResult{}, err
		}
		if err := validateMeasurement(name); err != nil {
			return db.QueryResult{}, err
		}
		if limit <= 0 {
			limit = defaultPreviewLimit
		}
		query := svc.NewQueryBuilder(database).Select("*").From(name).Since(previewWindow).Limit(limit).Build()
		return svc.QueryWithDatabase(ctx, query, database)
	})
}

func (d *Desk) Connections(ctx context.Context) Response[[]string] {
	return run(ctx, d, "connections", func(ctx context.Context, logger zerolog.Logger) ([]string, error) {
		return d.registry.IDs(), nil
	})
}

func (d *Desk) AppVersion(ctx context.Context) Response[string] {
	return run(ctx, d, "app_version", func(ctx context.Context, logger zerolog.Logger) (string, error) {
		return Version, nil
	})
}

// LineProtocol renders one point without timestamp. Values are coerced to the
// declared field type; unknown types are written as strings.
func LineProtocol(measurement string, fields []Field, tags []Tag) (string, error) {
	if len(fields) == 0 {
		return "", db.NewError(db.KindValidation, "At least one field must be specified")
	}
	values := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := f.coerce()
		if err != nil {
			return "", db.WrapError(db.KindValidation, fmt.Sprintf("invalid %s value for field %q", f.Type, f.Name), err)
		}
		values[f.Name] = v
	}
	tagSet := make(map[string]string, len(tags))
	for _, t := range tags {
		tagSet[t.Name] = t.Value
	}
	pt, err := client.NewPoint(measurement, tagSet, values)
	if err != nil {
		return "", db.WrapError(db.KindValidation, "invalid point", err)
	}
	return pt.String(), nil
}

func (f Field) coerce() (any, error) {
	switch f.Type {
	case db.FieldFloat:
		return cast.ToFloat64E(f.Value)
	case db.FieldInteger:
		// cast reads "010" as octal.
		if s, isString := f.Value.(string); isString {
			if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return i, nil
			}
		}
		return cast.ToInt64E(f.Value)
	case db.FieldBoolean:
		return cast.ToBoolE(f.Value)
	default:
		return cast.ToStringE(f.Value)
	}
}
