package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/registry"
)

func fakeV1(t *testing.T) *url.URL {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping", "/write":
			w.WriteHeader(http.StatusNoContent)
		case "/query":
			if r.URL.Query().Get("q") == "SHOW DATABASES" {
				_, _ = w.Write([]byte(`{"results":[{"series":[{"name":"databases","columns":["name"],"values":[["db1"],["db2"]]}]}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"statement_id":0}]}`))
		}
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u
}

func configFor(t *testing.T, u *url.URL) string {
	content := fmt.Sprintf(`
log:
  level: error
profiles:
  - id: local
    name: Local
    version: v1.x
    config:
      host: %s
      port: %s
      database: telegraf
`, u.Hostname(), u.Port())
	path := filepath.Join(t.TempDir(), "tsdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDatabasesJSON(t *testing.T) {
	conf := configFor(t, fakeV1(t))
	out, err := run(t, "--config", conf, "-p", "local", "databases", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `["db1","db2"]`, out)
	assert.Zero(t, registry.Default.Len())
}

func TestDatabasesYAML(t *testing.T) {
	conf := configFor(t, fakeV1(t))
	out, err := run(t, "--config", conf, "-p", "Local", "databases", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "- db1\n- db2\n", out)
}

func TestProfilesTable(t *testing.T) {
	conf := configFor(t, fakeV1(t))
	out, err := run(t, "--config", conf, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "V1")
}

func TestCommandErrors(t *testing.T) {
	conf := configFor(t, fakeV1(t))

	_, err := run(t, "--config", conf, "databases")
	assert.EqualError(t, err, "no profile selected, use --profile")

	_, err = run(t, "--config", conf, "-p", "missing", "databases")
	assert.Error(t, err)

	_, err = run(t, "--config", conf, "-p", "local", "databases", "-o", "xml")
	assert.EqualError(t, err, `unknown output format "xml"`)

	_, err = run(t, "--config", conf, "-p", "local", "measurement", "create", "telegraf", "cpu")
	assert.EqualError(t, err, "At least one field must be specified")
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"usage:float=0.64", "state:string=\"ok go\"", "count=3"})
	require.NoError(t, err)
	assert.Equal(t, "usage", fields[0].Name)
	assert.Equal(t, db.FieldFloat, fields[0].Type)
	assert.Equal(t, "ok go", fields[1].Value)
	assert.Equal(t, db.FieldFloat, fields[2].Type)

	_, err = parseFields([]string{"novalue"})
	assert.Error(t, err)

	tags, err := parseTags([]string{"host=a"})
	require.NoError(t, err)
	assert.Equal(t, "a", tags[0].Value)
	_, err = parseTags([]string{"=a"})
	assert.Error(t, err)
}

func TestSeriesTable(t *testing.T) {
	rows := seriesTable(db.QueryResult{Series: []db.Series{
		{Name: "cpu", Columns: []string{"time", "value"}, Values: [][]any{{"t1", 1.5}, {"t2", nil}}},
		{Name: "mem", Columns: []string{"time", "value"}, Values: [][]any{{"t1", int64(3)}}},
	}})
	assert.Equal(t, [][]string{
		{"series", "time", "value"},
		{"cpu", "t1", "1.5"},
		{"cpu", "t2", ""},
		{"mem", "t1", "3"},
	}, rows)
	assert.Nil(t, seriesTable(db.QueryResult{}))
}
