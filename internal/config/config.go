// Package config loads the settings shared by every stage.
//
// Settings come from, in order of precedence: command line flags,
// environment variables prefixed with STRUCK_, an optional YAML file and
// defaults.  An optional .env file is loaded into the environment first.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arnodel/struckstream/encoding/jsonl"
	"github.com/arnodel/struckstream/internal/logger"
)

// EnvPrefix is the prefix of environment variables read as settings.
const EnvPrefix = "STRUCK"

// RunIDEnv is the environment variable carrying the run id, which is also
// how child processes inherit it.
const RunIDEnv = EnvPrefix + "_RUN_ID"

// ConventionEnv is the environment variable carrying the convention.
const ConventionEnv = EnvPrefix + "_CONVENTION"

// Settings are the settings of a stage process.
type Settings struct {
	Convention string        `mapstructure:"convention"`
	Log        logger.Config `mapstructure:"log"`
	Metrics    Metrics       `mapstructure:"metrics"`
	RunID      string        `mapstructure:"run_id"`
}

// Metrics configures the metrics textfile.
type Metrics struct {
	// File to write counters to on exit.  Empty disables metrics.
	File string `mapstructure:"file"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	s := &Settings{Convention: jsonl.DefaultConvention.String()}
	s.Log.ApplyDefaults()
	return s
}

// ParsedConvention returns the configured location convention.
func (s *Settings) ParsedConvention() (jsonl.Convention, error) {
	return jsonl.ParseConvention(s.Convention)
}

// Validate checks the settings are usable.
func (s *Settings) Validate() error {
	if _, err := s.ParsedConvention(); err != nil {
		return err
	}
	return s.Log.Validate()
}

// flag name -> settings key
var flagKeys = map[string]string{
	"convention":   "convention",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"no-color":     "log.no_color",
	"metrics-file": "metrics.file",
	"run-id":       "run_id",
	"config":       "config",
	"env-file":     "env_file",
}

// AddFlags registers the settings flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP("convention", "c", d.Convention, "location convention of event lines (embedded or paired)")
	fs.String("log-level", d.Log.Level, "diagnostics level (trace, debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "diagnostics format (console or json)")
	fs.Bool("no-color", false, "disable colored diagnostics")
	fs.String("metrics-file", "", "write Prometheus counters to this file on exit")
	fs.String("run-id", "", "run id for correlating diagnostics (default: random)")
	fs.String("config", "", "YAML settings file")
	fs.String("env-file", "", ".env file to load into the environment")
}

// Load builds settings from the flags in fs (which may be nil), the
// environment and the files they point to.
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("convention", d.Convention)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.no_color", false)
	v.SetDefault("metrics.file", "")
	v.SetDefault("run_id", "")
	v.SetDefault("config", "")
	v.SetDefault("env_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("cannot bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if envFile := v.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("cannot load env file %s: %w", envFile, err)
		}
	}
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("cannot decode settings: %w", err)
	}
	s.Log.ApplyDefaults()
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ChildEnv returns the environment for a child process of a stage, which
// carries the run id and convention along.
func ChildEnv(runID, convention string) []string {
	return append(os.Environ(),
		RunIDEnv+"="+runID,
		ConventionEnv+"="+convention,
	)
}
