package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Version string

const (
	V1 Version = "V1"
	V2 Version = "V2"
	V3 Version = "V3"
)

const DefaultTimeout = 10 * time.Second

// ParseVersion accepts the tags written by profile editors ("v1.x") as well as
// the bare forms ("V1", "1").
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1.x", "v1", "1":
		return V1, nil
	case "v2.x", "v2", "2":
		return V2, nil
	case "v3.x", "v3", "3":
		return V3, nil
	}
	return "", Errorf(KindConfig, "unsupported version: %q", s)
}

func (v Version) MarshalText() ([]byte, error) {
	switch v {
	case V1:
		return []byte("v1.x"), nil
	case V2:
		return []byte("v2.x"), nil
	case V3:
		return []byte("v3.x"), nil
	}
	return nil, Errorf(KindConfig, "unsupported version: %q", string(v))
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type ConnectionProfile struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Version   Version         `json:"version" yaml:"version"`
	Config    json.RawMessage `json:"config" yaml:"-"`
	CreatedAt uint64          `json:"created_at" yaml:"created_at"`
	UpdatedAt uint64          `json:"updated_at" yaml:"updated_at"`
}

type V1Config struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Database string `json:"database"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	UseSSL   bool   `json:"useSsl"`
	// Timeout is in milliseconds.
	Timeout uint64 `json:"timeout"`
}

type V2Config struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket,omitempty"`
	UseSSL bool   `json:"useSsl"`
	// Timeout is in milliseconds.
	Timeout uint64 `json:"timeout"`
}

func (c V1Config) BaseURL() string { return baseURL(c.UseSSL, c.Host, c.Port) }

func (c V1Config) RequestTimeout() time.Duration { return requestTimeout(c.Timeout) }

func (c V2Config) BaseURL() string { return baseURL(c.UseSSL, c.Host, c.Port) }

func (c V2Config) RequestTimeout() time.Duration { return requestTimeout(c.Timeout) }

func baseURL(useSSL bool, host string, port uint16) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

func requestTimeout(ms uint64) time.Duration {
	if ms == 0 {
		return DefaultTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func (p ConnectionProfile) V1Config() (V1Config, error) {
	var c V1Config
	if err := decodeConfig(p.Config, &c); err != nil {
		return c, WrapError(KindConfig, "Invalid v1 config", err)
	}
	if c.Host == "" || c.Port == 0 {
		return c, NewError(KindConfig, "Invalid v1 config: host and port are required")
	}
	return c, nil
}

// V2Config decodes the blob of a V2 or V3 profile.
func (p ConnectionProfile) V2Config() (V2Config, error) {
	label := "v2"
	if p.Version == V3 {
		label = "v3"
	}
	var c V2Config
	if err := decodeConfig(p.Config, &c); err != nil {
		return c, WrapError(KindConfig, fmt.Sprintf("Invalid %s config", label), err)
	}
	if c.Host == "" || c.Port == 0 || c.Token == "" || c.Org == "" {
		return c, Errorf(KindConfig, "Invalid %s config: host, port, token and org are required", label)
	}
	return c, nil
}

func decodeConfig(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("missing configuration")
	}
	return json.Unmarshal(raw, out)
}
