package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

// JSON decodes the legacy {"results":[{"series":[...]}]} envelope.
type JSON struct{}

func (JSON) Decode(body []byte) ([]db.Series, error) {
	var resp client.Response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, db.WrapError(db.KindParse, "Failed to parse JSON", err)
	}
	if resp.Err != "" {
		return nil, db.NewError(db.KindQuery, resp.Err)
	}

	series := []db.Series{}
	for _, result := range resp.Results {
		if result.Err != "" {
			return nil, db.NewError(db.KindQuery, result.Err)
		}
		for _, row := range result.Series {
			s := db.Series{
				Name:    row.Name,
				Columns: orEmpty(row.Columns),
				Values:  make([][]any, 0, len(row.Values)),
			}
			if len(row.Tags) > 0 {
				s.Tags = row.Tags
			}
			for _, values := range row.Values {
				cells := make([]any, len(values))
				for i, v := range values {
					cells[i] = cell(v)
				}
				s.Values = append(s.Values, cells)
			}
			series = append(series, s)
		}
	}
	return series, nil
}

// cell turns json.Number into int64 when integral, float64 otherwise.
func cell(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
