package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Demographics DemographicsConfig `yaml:"demographics" mapstructure:"demographics"`
	Geo          GeoConfig          `yaml:"geo" mapstructure:"geo"`
	Render       RenderConfig       `yaml:"render" mapstructure:"render"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
}

// FetchConfig configures downloads of http(s) inputs.
type FetchConfig struct {
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// DemographicsConfig configures the prepare step.
type DemographicsConfig struct {
	Input       string `yaml:"input" mapstructure:"input"`
	SkipRows    int    `yaml:"skip_rows" mapstructure:"skip_rows"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	SchemaFile  string `yaml:"schema_file" mapstructure:"schema_file"` // empty = 2020 P2 labels
	PerUnitPath string `yaml:"per_unit_path" mapstructure:"per_unit_path"`
	TotalPath   string `yaml:"total_path" mapstructure:"total_path"`
	IDWidth     int    `yaml:"id_width" mapstructure:"id_width"`
}

// GeoConfig configures the boundary layer and jurisdiction filter.
type GeoConfig struct {
	Path              string `yaml:"path" mapstructure:"path"`
	GeoIDField        string `yaml:"geoid_field" mapstructure:"geoid_field"`
	JurisdictionField string `yaml:"jurisdiction_field" mapstructure:"jurisdiction_field"`
	NameField         string `yaml:"name_field" mapstructure:"name_field"`
	Jurisdiction      string `yaml:"jurisdiction" mapstructure:"jurisdiction"` // state FIPS or abbreviation; empty = all
}

// RenderConfig configures the choropleth output.
type RenderConfig struct {
	Field     string  `yaml:"field" mapstructure:"field"`
	Title     string  `yaml:"title" mapstructure:"title"`
	Min       float64 `yaml:"min" mapstructure:"min"`
	Max       float64 `yaml:"max" mapstructure:"max"`
	Scale     string  `yaml:"scale" mapstructure:"scale"`
	Width     int     `yaml:"width" mapstructure:"width"`
	Height    int     `yaml:"height" mapstructure:"height"`
	EdgeColor string  `yaml:"edge_color" mapstructure:"edge_color"`
	LineWidth float64 `yaml:"line_width" mapstructure:"line_width"`
	Output    string  `yaml:"output" mapstructure:"output"`
}

// StoreConfig configures the optional database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "", "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Enabled reports whether a store driver is configured.
func (s StoreConfig) Enabled() bool {
	return s.Driver != ""
}

// Validate checks the settings a command needs and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "prepare":
		d := c.Demographics
		require(d.Input != "", "demographics.input is required")
		require(d.PerUnitPath != "", "demographics.per_unit_path is required")
		require(d.TotalPath != "", "demographics.total_path is required")
		require(d.PerUnitPath == "" || d.PerUnitPath != d.TotalPath, "demographics.per_unit_path and total_path must differ")
		require(d.SkipRows >= 0, "demographics.skip_rows must be >= 0")
		require(d.IDWidth > 0, "demographics.id_width must be > 0")
		require(!isURL(d.Input) || c.Fetch.CacheDir != "", "fetch.cache_dir is required for a remote demographics.input")
	case "render":
		r := c.Render
		require(c.Geo.Path != "", "geo.path is required")
		require(c.Geo.GeoIDField != "", "geo.geoid_field is required")
		require(c.Demographics.PerUnitPath != "", "demographics.per_unit_path is required")
		require(c.Demographics.IDWidth > 0, "demographics.id_width must be > 0")
		require(r.Field != "", "render.field is required")
		require(r.Output != "", "render.output is required")
		require(r.Min < r.Max, "render.min must be < render.max")
		require(r.Width > 0 && r.Height > 0, "render.width and render.height must be > 0")
		require(!isURL(c.Geo.Path) || c.Fetch.CacheDir != "", "fetch.cache_dir is required for a remote geo.path")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	require(c.Fetch.MaxRetries >= 1, "fetch.max_retries must be >= 1")
	require(c.Fetch.TimeoutSecs >= 0, "fetch.timeout_secs must be >= 0")

	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres":
		require(c.Store.DatabaseURL != "", "store.database_url is required for postgres")
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("CHOROPLETH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("demographics.input", "data/race_data/georgia_race_data.csv")
	v.SetDefault("demographics.skip_rows", 1)
	v.SetDefault("demographics.sheet", "")
	v.SetDefault("demographics.schema_file", "")
	v.SetDefault("demographics.per_unit_path", "data/race_data/cleaned_georgia_race_precinct.csv")
	v.SetDefault("demographics.total_path", "data/race_data/cleaned_georgia_race_total.csv")
	v.SetDefault("demographics.id_width", 5)
	v.SetDefault("geo.path", "tl_2020_us_county.shp")
	v.SetDefault("geo.geoid_field", "GEOID")
	v.SetDefault("geo.jurisdiction_field", "STATEFP")
	v.SetDefault("geo.name_field", "NAMELSAD")
	v.SetDefault("geo.jurisdiction", "13")
	v.SetDefault("render.field", "White%")
	v.SetDefault("render.title", "White Choropleth Map")
	v.SetDefault("render.min", 0.0)
	v.SetDefault("render.max", 100.0)
	v.SetDefault("render.scale", "Blues")
	v.SetDefault("render.width", 1500)
	v.SetDefault("render.height", 1000)
	v.SetDefault("render.edge_color", "#cccccc")
	v.SetDefault("render.line_width", 0.8)
	v.SetDefault("render.output", "choropleth.png")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("fetch.cache_dir", filepath.Join(os.TempDir(), "census-choropleth"))
	v.SetDefault("fetch.timeout_secs", 300)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "census-choropleth/1.0")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrapf(err, "config: read file %s", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
