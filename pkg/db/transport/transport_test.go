package transport

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

func TestSetBasicAuth(t *testing.T) {
	auth := NewBasicAuth("user1", "pass1")
	req, err := http.NewRequest("POST", "http://127.0.0.1:8080/ttt", strings.NewReader("ttt"))
	require.NoError(t, err)
	auth.SetAuth(req)
	code := "Basic " + base64.StdEncoding.EncodeToString([]byte("user1:pass1"))
	assert.Equal(t, code, req.Header.Get("Authorization"))
}

func TestSetBasicAuthWithoutUser(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://127.0.0.1:8080/ping", nil)
	NewBasicAuth("", "secret").SetAuth(req)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestSetTokenAuth(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://127.0.0.1:8086/ping", nil)
	NewTokenAuth("my-token").SetAuth(req)
	assert.Equal(t, "Token my-token", req.Header.Get("Authorization"))
}

func TestDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "SHOW DATABASES", r.URL.Query().Get("q"))
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second, nil, zerolog.Nop())
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/query",
		Query:  url.Values{"q": {"SHOW DATABASES"}},
		Header: http.Header{"Content-Type": {"text/plain"}},
	})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", resp.Text())
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, 20*time.Millisecond, nil, zerolog.Nop())
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/ping"})
	require.Error(t, err)
	assert.Equal(t, db.KindTimeout, db.KindOf(err))
}

func TestDoNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr, time.Second, nil, zerolog.Nop())
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/ping"})
	require.Error(t, err)
	assert.Equal(t, db.KindNetwork, db.KindOf(err))
}

func TestTruncated(t *testing.T) {
	resp := &Response{Body: []byte(strings.Repeat("x", 600))}
	assert.Len(t, resp.Truncated(), maxErrorBody+3)
	resp = &Response{Body: []byte("small")}
	assert.Equal(t, "small", resp.Truncated())
}
