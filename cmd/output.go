package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	tsdesk "github.com/EcoPowerHub/tsdesk/pkg"
	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// render prints the data of a successful response in the selected format.
// table turns the data into rows, the first one being the header.
func render[T any](w io.Writer, format string, resp tsdesk.Response[T], table func(T) [][]string) error {
	if !resp.Success {
		return errors.New(resp.Error)
	}
	var data T
	if resp.Data != nil {
		data = *resp.Data
	}

	switch format {
	case outputJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode json")
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case outputYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		_, err = w.Write(out)
		return err
	}

	rows := table(data)
	if len(rows) <= 1 {
		pterm.Fprintln(w, "(empty)")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(rows).Render()
}

func listTable(header string) func([]string) [][]string {
	return func(items []string) [][]string {
		rows := [][]string{{header}}
		for _, item := range items {
			rows = append(rows, []string{item})
		}
		return rows
	}
}

func doneTable(message string) func(bool) [][]string {
	return func(bool) [][]string {
		return [][]string{{"result"}, {message}}
	}
}

// seriesTable flattens every series into one table. The series name is the
// first column when the result has more than one series.
func seriesTable(result db.QueryResult) [][]string {
	if len(result.Series) == 0 {
		return nil
	}
	multi := len(result.Series) > 1
	var rows [][]string
	for i, s := range result.Series {
		if i == 0 {
			header := append([]string{}, s.Columns...)
			if multi {
				header = append([]string{"series"}, header...)
			}
			rows = append(rows, header)
		}
		for _, v := range s.Values {
			row := make([]string, 0, len(v)+1)
			if multi {
				row = append(row, s.Name)
			}
			for _, cell := range v {
				row = append(row, formatCell(cell))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func formatCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
