package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

const maxErrorBody = 512

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Truncated returns at most the first 512 bytes of the body.
func (r *Response) Truncated() string {
	if len(r.Body) <= maxErrorBody {
		return string(r.Body)
	}
	return string(r.Body[:maxErrorBody]) + "..."
}

// Client issues requests against one base URL. It holds no per-request state
// and may be shared by concurrent callers.
type Client struct {
	baseURL string
	auth    Auth
	http    *http.Client
	logger  zerolog.Logger
}

func New(baseURL string, timeout time.Duration, auth Auth, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do sends the request and reads the whole body. Non-2xx statuses are not
// errors at this level; callers decide what a status means.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	u := c.baseURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, db.WrapError(db.KindNetwork, "build request", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.auth != nil {
		c.auth.SetAuth(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("method", r.Method).Str("path", r.Path).Err(err).Msg("request failed")
		return nil, classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(errors.Wrap(err, "read body"))
	}
	c.logger.Debug().
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("request done")
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func classify(err error) error {
	if isTimeout(err) {
		return db.WrapError(db.KindTimeout, "request timed out", err)
	}
	return db.WrapError(db.KindNetwork, "request failed", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
