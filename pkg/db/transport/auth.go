package transport

import (
	"encoding/base64"
	"net/http"
)

// Auth fills the authentication header of an outbound request.
type Auth interface {
	SetAuth(request *http.Request)
}

type basicAuth struct {
	code string
}

// NewBasicAuth returns an Auth that sets nothing when username is empty.
func NewBasicAuth(username, password string) Auth {
	ba := new(basicAuth)
	if username == "" {
		return ba
	}
	ba.code = base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return ba
}

func (ba *basicAuth) SetAuth(request *http.Request) {
	if ba.code == "" {
		return
	}
	request.Header.Set("Authorization", "Basic "+ba.code)
}

type tokenAuth struct {
	token string
}

// NewTokenAuth returns an Auth sending "Authorization: Token <token>".
func NewTokenAuth(token string) Auth {
	return &tokenAuth{token: token}
}

func (ta *tokenAuth) SetAuth(request *http.Request) {
	request.Header.Set("Authorization", "Token "+ta.token)
}
