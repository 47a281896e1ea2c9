// Package normalize converts the wire responses of both backend generations
// into db.Series. Row and column order is kept exactly as received and short or
// long rows are never padded or cut.
package normalize

import (
	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

// Decoder turns a successful response body into series.
type Decoder interface {
	Decode(body []byte) ([]db.Series, error)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
