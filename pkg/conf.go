package tsdesk

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
	"github.com/EcoPowerHub/tsdesk/pkg/db/normalize"
)

const (
	configName = "tsdesk"
	envPrefix  = "tsdesk"
)

type Configuration struct {
	Log      LogConf                `mapstructure:"log" json:"log"`
	CSV      normalize.CSVOptions   `mapstructure:"csv" json:"csv"`
	Profiles []db.ConnectionProfile `mapstructure:"-" json:"profiles"`
}

type LogConf struct {
	Level  string `mapstructure:"level" json:"level"`
	Pretty bool   `mapstructure:"pretty" json:"pretty"`
}

// Logger builds the process logger. Pretty selects the console writer.
func (c LogConf) Logger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if c.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Profile returns the profile whose ID or Name equals ref.
func (c Configuration) Profile(ref string) (db.ConnectionProfile, error) {
	for _, p := range c.Profiles {
		if p.ID == ref || p.Name == ref {
			return p, nil
		}
	}
	return db.ConnectionProfile{}, db.Errorf(db.KindNotFound, "profile %q not found", ref)
}

// LoadConfiguration reads path, or tsdesk.yaml from the working directory and
// $HOME/.config/tsdesk when path is empty. TSDESK_* variables override file
// values. A missing default file is not an error.
func LoadConfiguration(path string) (Configuration, error) {
	var conf Configuration
	v := viper.New()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("csv.coerce_numbers", false)
	v.SetDefault("csv.skip_comments", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tsdesk")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return conf, db.WrapError(db.KindConfig, "read configuration", err)
		}
	}
	if err := v.Unmarshal(&conf); err != nil {
		return conf, db.WrapError(db.KindConfig, "decode configuration", err)
	}

	// Profiles carry an opaque config blob, so they go through JSON rather
	// than mapstructure.
	conf.Profiles = []db.ConnectionProfile{}
	if raw := v.Get("profiles"); raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return conf, db.WrapError(db.KindConfig, "encode profiles", err)
		}
		if err := json.Unmarshal(data, &conf.Profiles); err != nil {
			return conf, db.WrapError(db.KindConfig, "decode profiles", err)
		}
	}
	return conf, nil
}
