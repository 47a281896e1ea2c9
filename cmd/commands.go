package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	tsdesk "github.com/EcoPowerHub/tsdesk/pkg"
	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the profile server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.selectedProfile()
			if err != nil {
				return err
			}
			resp := a.desk.TestConnection(cmd.Context(), profile)
			return render(cmd.OutOrStdout(), a.opts.output, resp, doneTable("pong"))
		},
	}
}

func (a *app) databasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "databases",
		Aliases: []string{"dbs", "buckets"},
		Short:   "List databases (buckets on 2.x)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.ListDatabases(cmd.Context(), id)
				return render(cmd.OutOrStdout(), a.opts.output, resp, listTable("name"))
			})
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <database>",
		Short: "Show retention policies and measurements of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.DatabaseInfo(cmd.Context(), id, args[0])
				return render(cmd.OutOrStdout(), a.opts.output, resp, databaseInfoTable)
			})
		},
	}
}

func databaseInfoTable(info db.DatabaseInfo) [][]string {
	rows := [][]string{{"kind", "name", "detail"}}
	for _, rp := range info.RetentionPolicies {
		detail := fmt.Sprintf("duration=%s replication=%d", rp.Duration, rp.Replication)
		if rp.Default {
			detail += " default"
		}
		rows = append(rows, []string{"retention policy", rp.Name, detail})
	}
	for _, m := range info.Measurements {
		rows = append(rows, []string{"measurement", m.Name, ""})
	}
	return rows
}

func (a *app) createDatabaseCmd() *cobra.Command {
	var rp db.RetentionPolicy
	cmd := &cobra.Command{
		Use:   "create-db <database>",
		Short: "Create a database (a bucket on 2.x)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var policy *db.RetentionPolicy
			if cmd.Flags().Changed("duration") || cmd.Flags().Changed("rp") || cmd.Flags().Changed("replication") {
				policy = &rp
			}
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.CreateDatabase(cmd.Context(), id, args[0], policy)
				return render(cmd.OutOrStdout(), a.opts.output, resp, doneTable("created "+args[0]))
			})
		},
	}
	cmd.Flags().StringVar(&rp.Name, "rp", "autogen", "retention policy name")
	cmd.Flags().StringVar(&rp.Duration, "duration", "INF", "retention duration, e.g. 7d or INF")
	cmd.Flags().Uint32Var(&rp.Replication, "replication", 1, "replication factor")
	return cmd
}

func (a *app) dropDatabaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-db <database>",
		Short: "Drop a database (a bucket on 2.x)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.DropDatabase(cmd.Context(), id, args[0])
				return render(cmd.OutOrStdout(), a.opts.output, resp, doneTable("dropped "+args[0]))
			})
		},
	}
}

func (a *app) measurementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "measurements <database>",
		Short: "List the measurements of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.ListMeasurements(cmd.Context(), id, args[0])
				return render(cmd.OutOrStdout(), a.opts.output, resp, listTable("measurement"))
			})
		},
	}
}

// measurementCmd groups the per-measurement operations.
func (a *app) measurementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "measurement",
		Short: "Inspect, create or delete a measurement",
	}

	show := &cobra.Command{
		Use:   "show <database> <measurement>",
		Short: "Show tag and field keys",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.MeasurementInfo(cmd.Context(), id, args[0], args[1])
				return render(cmd.OutOrStdout(), a.opts.output, resp, measurementTable)
			})
		},
	}

	var fields, tags []string
	create := &cobra.Command{
		Use:   "create <database> <measurement>",
		Short: "Create a measurement by writing one point",
		Example: `  tsdesk -p local measurement create telegraf cpu \
    --field usage:float=0.64 --field state:string=ok --tag host=server01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedFields, err := parseFields(fields)
			if err != nil {
				return err
			}
			parsedTags, err := parseTags(tags)
			if err != nil {
				return err
			}
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.CreateMeasurement(cmd.Context(), id, args[0], args[1], parsedFields, parsedTags)
				return render(cmd.OutOrStdout(), a.opts.output, resp, doneTable("created "+args[1]))
			})
		},
	}
	create.Flags().StringArrayVar(&fields, "field", nil, "field as name:type=value (type: string, float, integer, boolean)")
	create.Flags().StringArrayVar(&tags, "tag", nil, "tag as name=value")

	drop := &cobra.Command{
		Use:   "drop <database> <measurement>",
		Short: "Delete a measurement and its points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.DeleteMeasurement(cmd.Context(), id, args[0], args[1])
				return render(cmd.OutOrStdout(), a.opts.output, resp, doneTable("dropped "+args[1]))
			})
		},
	}

	cmd.AddCommand(show, create, drop)
	return cmd
}

func measurementTable(m db.Measurement) [][]string {
	rows := [][]string{{"kind", "key", "type"}}
	for _, t := range m.TagKeys {
		rows = append(rows, []string{"tag", t, ""})
	}
	for _, f := range m.FieldKeys {
		rows = append(rows, []string{"field", f.Name, string(f.FieldType)})
	}
	return rows
}

func (a *app) previewCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "preview <database> <measurement>",
		Short: "Show the latest points of a measurement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConnection(cmd.Context(), func(id string) error {
				resp := a.desk.PreviewMeasurement(cmd.Context(), id, args[0], args[1], limit)
				return render(cmd.OutOrStdout(), a.opts.output, resp, seriesTable)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of points")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var database string
	cmd := &cobra.Command{
		Use:   "query <statement>",
		Short: "Run an InfluxQL statement (1.x) or a Flux script (2.x)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement := strings.Join(args, " ")
			return a.withConnection(cmd.Context(), func(id string) error {
				start := time.Now()
				resp := a.desk.ExecuteQuery(cmd.Context(), id, database, statement)
				a.logger.Debug().Dur("took", time.Since(start)).Msg("query finished")
				return render(cmd.OutOrStdout(), a.opts.output, resp, seriesTable)
			})
		},
	}
	cmd.Flags().StringVarP(&database, "database", "d", "", "database or bucket (default from profile)")
	return cmd
}

func (a *app) profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the configured connection profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type entry struct {
				ID      string `json:"id" yaml:"id"`
				Name    string `json:"name" yaml:"name"`
				Version string `json:"version" yaml:"version"`
			}
			entries := make([]entry, 0, len(a.conf.Profiles))
			for _, p := range a.conf.Profiles {
				entries = append(entries, entry{ID: p.ID, Name: p.Name, Version: string(p.Version)})
			}
			resp := tsdesk.Response[[]entry]{Success: true, Data: &entries}
			return render(cmd.OutOrStdout(), a.opts.output, resp, func(es []entry) [][]string {
				rows := [][]string{{"id", "name", "version"}}
				for _, e := range es {
					rows = append(rows, []string{e.ID, e.Name, e.Version})
				}
				return rows
			})
		},
	}
}

// parseFields reads name:type=value. The type defaults to float.
func parseFields(args []string) ([]tsdesk.Field, error) {
	fields := make([]tsdesk.Field, 0, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, errors.Errorf("invalid field %q, want name:type=value", arg)
		}
		name, typ, _ := strings.Cut(key, ":")
		if typ == "" {
			typ = string(db.FieldFloat)
		}
		fields = append(fields, tsdesk.Field{Name: name, Type: db.FieldType(typ), Value: unquote(value)})
	}
	return fields, nil
}

func parseTags(args []string) ([]tsdesk.Tag, error) {
	tags := make([]tsdesk.Tag, 0, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, errors.Errorf("invalid tag %q, want name=value", arg)
		}
		tags = append(tags, tsdesk.Tag{Name: name, Value: value})
	}
	return tags, nil
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}
