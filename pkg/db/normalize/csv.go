package normalize

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

// ResultName is the series name given to a CSV response.
const ResultName = "_result"

// CSVOptions selects between the two parsing behaviours seen for Flux
// responses. The zero value keeps every cell as a string and every line.
type CSVOptions struct {
	CoerceNumbers bool `mapstructure:"coerce_numbers" json:"coerce_numbers"`
	SkipComments  bool `mapstructure:"skip_comments" json:"skip_comments"`
}

// CSV decodes a Flux CSV body: the first non-blank line is the header and
// every later non-blank line is a row, even when all its cells are empty.
type CSV struct {
	Options CSVOptions
}

func (d CSV) Decode(body []byte) ([]db.Series, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if d.Options.SkipComments {
		r.Comment = '#'
	}

	var current *db.Series
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, db.WrapError(db.KindParse, "Failed to parse CSV", err)
		}
		if blank(record) {
			continue
		}
		if current == nil {
			current = &db.Series{Name: ResultName, Columns: record, Values: [][]any{}}
			continue
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = d.value(v)
		}
		current.Values = append(current.Values, row)
	}

	if current == nil {
		return []db.Series{}, nil
	}
	return []db.Series{*current}, nil
}

func (d CSV) value(s string) any {
	if !d.Options.CoerceNumbers {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// blank reports a whitespace-only line. encoding/csv already drops empty ones.
func blank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
