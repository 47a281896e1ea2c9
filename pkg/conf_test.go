package tsdesk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

const sampleConfig = `
log:
  level: debug
  pretty: true
csv:
  coerce_numbers: true
profiles:
  - id: local-v1
    name: Local 1.8
    version: v1.x
    config:
      host: localhost
      port: 8086
      database: telegraf
      useSsl: false
  - id: cloud
    name: Cloud
    version: V2
    config:
      host: eu-central-1.aws.cloud2.influxdata.com
      port: 443
      token: secret
      org: acme
      bucket: metrics
      useSsl: true
      timeout: 5000
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "tsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfiguration(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.Log.Level)
	assert.True(t, conf.Log.Pretty)
	assert.True(t, conf.CSV.CoerceNumbers)
	assert.False(t, conf.CSV.SkipComments)
	require.Len(t, conf.Profiles, 2)

	v1, err := conf.Profile("local-v1")
	require.NoError(t, err)
	assert.Equal(t, db.V1, v1.Version)
	c1, err := v1.V1Config()
	require.NoError(t, err)
	assert.Equal(t, "telegraf", c1.Database)
	assert.Equal(t, uint16(8086), c1.Port)

	v2, err := conf.Profile("Cloud")
	require.NoError(t, err)
	c2, err := v2.V2Config()
	require.NoError(t, err)
	assert.True(t, c2.UseSSL)
	assert.Equal(t, "https://eu-central-1.aws.cloud2.influxdata.com:443", c2.BaseURL())
	assert.Equal(t, "metrics", c2.Bucket)

	_, err = conf.Profile("missing")
	assert.Equal(t, db.KindNotFound, db.KindOf(err))
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("TSDESK_CSV_SKIP_COMMENTS", "true")
	t.Setenv("TSDESK_LOG_LEVEL", "warn")
	conf, err := LoadConfiguration(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.True(t, conf.CSV.SkipComments)
	assert.Equal(t, "warn", conf.Log.Level)
}

func TestLoadConfigurationDefaults(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, "log:\n  pretty: false\n"))
	require.NoError(t, err)
	assert.Equal(t, "info", conf.Log.Level)
	assert.Empty(t, conf.Profiles)
	assert.NotNil(t, conf.Profiles)
}

func TestLoadConfigurationErrors(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, db.KindConfig, db.KindOf(err))

	_, err = LoadConfiguration(writeConfig(t, "profiles:\n  - id: x\n    version: v9\n"))
	assert.Equal(t, db.KindConfig, db.KindOf(err))
}

func TestLogConfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConf{Level: "warn"}.Logger(&buf)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Equal(t, zerolog.InfoLevel, LogConf{Level: "loud"}.Logger(&buf).GetLevel())
}
