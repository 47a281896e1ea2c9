package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/influx"
	"github.com/EcoPowerHub/tsdesk/pkg/db/influxv1"
	"github.com/EcoPowerHub/tsdesk/pkg/db/normalize"
)

// Options are shared by every service the factory builds.
type Options struct {
	Logger zerolog.Logger
	CSV    normalize.CSVOptions
}

// NewService builds the adapter matching the profile version. V3 profiles use
// the V2 adapter.
func NewService(profile db.ConnectionProfile, opts Options) (db.Service, error) {
	logger := opts.Logger.With().Str("profile", profile.ID).Logger()

	switch profile.Version {
	case db.V1:
		conf, err := profile.V1Config()
		if err != nil {
			return nil, err
		}
		return influxv1.NewClient(conf, logger), nil

	case db.V2, db.V3:
		conf, err := profile.V2Config()
		if err != nil {
			return nil, err
		}
		return influx.NewClient(conf, opts.CSV, logger).AsVersion(profile.Version), nil

	default:
		return nil, db.Errorf(db.KindConfig, "unsupported version: %q", string(profile.Version))
	}
}

// ConnectionID is the registry key of a profile: its ID when set, otherwise
// host_port from its configuration.
func ConnectionID(profile db.ConnectionProfile) (string, error) {
	if profile.ID != "" {
		return profile.ID, nil
	}
	switch profile.Version {
	case db.V1:
		conf, err := profile.V1Config()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s_%d", conf.Host, conf.Port), nil
	case db.V2, db.V3:
		conf, err := profile.V2Config()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s_%d", conf.Host, conf.Port), nil
	}
	return "", db.Errorf(db.KindConfig, "unsupported version: %q", string(profile.Version))
}
