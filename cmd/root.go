// Package cmd implements the tsdesk command line on top of the desk
// operations. Every command connects the selected profile, runs one
// operation and disconnects.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	tsdesk "github.com/EcoPowerHub/tsdesk/pkg"
	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/registry"
)

type options struct {
	configFile string
	profile    string
	output     string
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	opts   options
	conf   tsdesk.Configuration
	desk   *tsdesk.Desk
	logger zerolog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tsdesk",
		Short:         "Query and manage InfluxDB 1.x and 2.x servers",
		Long:          `tsdesk talks to InfluxDB 1.x (InfluxQL) and 2.x (Flux) servers through one set of commands. Connection profiles are read from tsdesk.yaml.`,
		Version:       tsdesk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configFile, "config", "", "configuration file (default ./tsdesk.yaml or $HOME/.config/tsdesk/tsdesk.yaml)")
	flags.StringVarP(&a.opts.profile, "profile", "p", "", "connection profile id or name")
	flags.StringVarP(&a.opts.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		a.pingCmd(),
		a.databasesCmd(),
		a.infoCmd(),
		a.createDatabaseCmd(),
		a.dropDatabaseCmd(),
		a.measurementsCmd(),
		a.measurementCmd(),
		a.previewCmd(),
		a.queryCmd(),
		a.profilesCmd(),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	switch a.opts.output {
	case outputTable, outputJSON, outputYAML:
	default:
		return errors.Errorf("unknown output format %q", a.opts.output)
	}
	conf, err := tsdesk.LoadConfiguration(a.opts.configFile)
	if err != nil {
		return err
	}
	a.conf = conf
	a.logger = conf.Log.Logger(cmd.ErrOrStderr())
	a.desk = tsdesk.New(conf, registry.Default, a.logger)
	return nil
}

// withConnection connects the selected profile for the duration of fn.
func (a *app) withConnection(ctx context.Context, fn func(id string) error) error {
	profile, err := a.selectedProfile()
	if err != nil {
		return err
	}
	resp := a.desk.Connect(ctx, profile)
	if !resp.Success {
		return errors.Errorf("connect %s: %s", a.opts.profile, resp.Error)
	}
	id := *resp.Data
	defer a.desk.Disconnect(ctx, id)
	return fn(id)
}

func (a *app) selectedProfile() (db.ConnectionProfile, error) {
	if a.opts.profile == "" {
		return db.ConnectionProfile{}, errors.New("no profile selected, use --profile")
	}
	return a.conf.Profile(a.opts.profile)
}
