//go:build integration

package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/normalize"
)

func startInflux(t *testing.T, image string, env map[string]string, waitFor wait.Strategy) (string, uint16) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"8086/tcp"},
			Env:          env,
			WaitingFor:   waitFor,
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8086")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)
	return host, uint16(p)
}

func TestInfluxDBV1Integration(t *testing.T) {
	ctx := context.Background()

	// Conteneur InfluxDB 1.8
	host, port := startInflux(t, "influxdb:1.8", nil,
		wait.ForHTTP("/ping").WithPort("8086/tcp").WithStatusCodeMatcher(func(status int) bool {
			return status == 204
		}).WithStartupTimeout(2*time.Minute))

	svc, err := NewService(db.ConnectionProfile{
		ID:      "it-v1",
		Version: db.V1,
		Config:  json.RawMessage(fmt.Sprintf(`{"host":%q,"port":%d}`, host, port)),
	}, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	ok, err := svc.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	admin := svc.(db.Admin)
	require.NoError(t, admin.CreateDatabase(ctx, "testdb", &db.RetentionPolicy{Name: "week", Duration: "7d", Replication: 1}))

	dbs, err := svc.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Contains(t, dbs, "testdb")

	_, err = svc.Query(ctx, `INSERT INTO "testdb" cpu,host=server01 value=0.64`)
	require.NoError(t, err)

	measurements, err := svc.ListMeasurements(ctx, "testdb")
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu"}, measurements)

	info, err := svc.DatabaseInfo(ctx, "testdb")
	require.NoError(t, err)
	assert.NotEmpty(t, info.RetentionPolicies)

	m, err := svc.MeasurementInfo(ctx, "testdb", "cpu")
	require.NoError(t, err)
	assert.Equal(t, []string{"host"}, m.TagKeys)
	assert.Equal(t, []db.FieldKey{{Name: "value", FieldType: db.FieldFloat}}, m.FieldKeys)

	query := svc.NewQueryBuilder("testdb").Select("*").From("cpu").Limit(1).Build()
	result, err := svc.QueryWithDatabase(ctx, query, "testdb")
	require.NoError(t, err)
	require.NotEmpty(t, result.Series)
	assert.NotEmpty(t, result.Series[0].Values)

	require.NoError(t, admin.DropDatabase(ctx, "testdb"))
}

func TestInfluxDBV2Integration(t *testing.T) {
	ctx := context.Background()

	// Conteneur InfluxDB 2.7
	host, port := startInflux(t, "influxdb:2.7", map[string]string{
		"DOCKER_INFLUXDB_INIT_MODE":        "setup",
		"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
		"DOCKER_INFLUXDB_INIT_PASSWORD":    "password",
		"DOCKER_INFLUXDB_INIT_ORG":         "my-org",
		"DOCKER_INFLUXDB_INIT_BUCKET":      "test",
		"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": "my-token",
	}, wait.ForHTTP("/health").WithPort("8086/tcp").WithStatusCodeMatcher(func(status int) bool {
		return status == 200
	}))

	svc, err := NewService(db.ConnectionProfile{
		ID:      "it-v2",
		Version: db.V2,
		Config: json.RawMessage(fmt.Sprintf(`{"host":%q,"port":%d,"token":"my-token","org":"my-org","bucket":"test"}`,
			host, port)),
	}, Options{Logger: zerolog.Nop(), CSV: normalize.CSVOptions{SkipComments: true}})
	require.NoError(t, err)

	ok, err := svc.Ping(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	admin := svc.(db.Admin)
	require.NoError(t, admin.WriteLines(ctx, "test", "test_measurement,tag1=value1 value=42i"))

	buckets, err := svc.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Contains(t, buckets, "test")

	measurements, err := svc.ListMeasurements(ctx, "test")
	require.NoError(t, err)
	assert.Contains(t, measurements, "test_measurement")

	m, err := svc.MeasurementInfo(ctx, "test", "test_measurement")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag1"}, m.TagKeys)

	query := svc.NewQueryBuilder("").Select("*").From("test_measurement").Limit(1).Build()
	result, err := svc.Query(ctx, query)
	require.NoError(t, err)
	require.NotEmpty(t, result.Series)
	assert.NotEmpty(t, result.Series[0].Values)

	require.NoError(t, admin.CreateDatabase(ctx, "scratch", &db.RetentionPolicy{Name: "unused", Duration: "24h"}))
	require.NoError(t, admin.DropDatabase(ctx, "scratch"))
}
