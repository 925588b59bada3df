// Package config loads the defaults the command line falls back to.
// Values come from WINDS_* environment variables and an optional YAML,
// TOML or JSON file; flags given on the command line override both.
package config

import (
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/rtm0/winds/internal/errs"
)

// EnvPrefix prefixes every environment variable, e.g. WINDS_PRECISION.
const EnvPrefix = "WINDS"

// Config holds the runtime defaults.
type Config struct {
	Projection          string
	ProjectionEllipsoid string
	EarthEllipsoid      string
	Units               string
	Precision           int
	SaveDirectory       string
	LogFormat           string
	Concurrency         int

	// VictoriaMetrics export, disabled while VMInsertURL is empty.
	VMInsertURL      string
	MetricPrefix     string
	RecsPerInsert    int
	InsertsPerSecond float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("projection", "stere")
	v.SetDefault("projection_ellipsoid", "WGS84")
	v.SetDefault("earth_ellipsoid", "WGS84")
	v.SetDefault("units", "m")
	v.SetDefault("precision", 2)
	v.SetDefault("save_directory", "")
	v.SetDefault("log_format", "text")
	v.SetDefault("concurrency", runtime.NumCPU())
	v.SetDefault("vm_insert_url", "")
	v.SetDefault("metric_prefix", "winds")
	v.SetDefault("recs_per_insert", 500)
	v.SetDefault("inserts_per_second", 0)
}

// Load reads the environment and, when path is not empty, the config file
// at path.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errs.Errorf(errs.EINVALID, "could not read config file %s: %v", path, err)
		}
	}

	cfg := Config{
		Projection:          v.GetString("projection"),
		ProjectionEllipsoid: v.GetString("projection_ellipsoid"),
		EarthEllipsoid:      v.GetString("earth_ellipsoid"),
		Units:               v.GetString("units"),
		Precision:           v.GetInt("precision"),
		SaveDirectory:       v.GetString("save_directory"),
		LogFormat:           v.GetString("log_format"),
		Concurrency:         v.GetInt("concurrency"),
		VMInsertURL:         v.GetString("vm_insert_url"),
		MetricPrefix:        v.GetString("metric_prefix"),
		RecsPerInsert:       v.GetInt("recs_per_insert"),
		InsertsPerSecond:    v.GetFloat64("inserts_per_second"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the numeric settings.
func (c Config) Validate() error {
	if c.Precision < 0 {
		return errs.Errorf(errs.EINVALID, "precision must not be negative but was %d", c.Precision)
	}
	if c.Concurrency < 1 {
		return errs.Errorf(errs.EINVALID, "concurrency must be at least 1 but was %d", c.Concurrency)
	}
	if c.RecsPerInsert < 1 {
		return errs.Errorf(errs.EINVALID, "recs_per_insert must be at least 1 but was %d", c.RecsPerInsert)
	}
	if c.InsertsPerSecond < 0 {
		return errs.Errorf(errs.EINVALID, "inserts_per_second must not be negative but was %v", c.InsertsPerSecond)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errs.Errorf(errs.EINVALID, "log_format must be text or json but was %q", c.LogFormat)
	}
	return nil
}
