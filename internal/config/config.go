package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Clean    CleanConfig    `yaml:"clean" mapstructure:"clean"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Build    BuildConfig    `yaml:"build" mapstructure:"build"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the snapshot and reference files.
type DataConfig struct {
	SnapshotPath   string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	BoundaryPath   string `yaml:"boundary_path" mapstructure:"boundary_path"`
	PopulationPath string `yaml:"population_path" mapstructure:"population_path"`
	SourcesPath    string `yaml:"sources_path" mapstructure:"sources_path"`
	RawDir         string `yaml:"raw_dir" mapstructure:"raw_dir"`
	WorkspacePath  string `yaml:"workspace_path" mapstructure:"workspace_path"`
}

// CleanConfig configures the cleaning stage.
type CleanConfig struct {
	// MaxPlausibleSeconds is the upper bound for a credible attendance
	// duration. Values above it are treated as missing, not clipped.
	MaxPlausibleSeconds float64 `yaml:"max_plausible_seconds" mapstructure:"max_plausible_seconds"`
}

// AnalysisConfig configures borough-level statistical analysis.
type AnalysisConfig struct {
	// WeightedBoroughs switches borough-level comparisons and regressions
	// to incident-volume weighting. Unweighted is the default.
	WeightedBoroughs bool `yaml:"weighted_boroughs" mapstructure:"weighted_boroughs"`
}

// FetchConfig configures raw source downloads.
type FetchConfig struct {
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseMS int     `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
	SkipUnchanged bool    `yaml:"skip_unchanged" mapstructure:"skip_unchanged"`
}

// BuildConfig configures the snapshot build.
type BuildConfig struct {
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the query API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LFB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.snapshot_path", "data/incidents.csv.gz")
	v.SetDefault("data.boundary_path", "data/boundaries/London_Borough_Excluding_MHW.shp")
	v.SetDefault("data.population_path", "data/borough_population.csv")
	v.SetDefault("data.sources_path", "sources.yaml")
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.workspace_path", "data/build.db")
	v.SetDefault("clean.max_plausible_seconds", 10800) // 3 hours
	v.SetDefault("analysis.weighted_boroughs", false)
	v.SetDefault("fetch.user_agent", "lfb-cli/1.0 (+https://github.com/sells-group/lfb-cli)")
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.burst", 4)
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_base_ms", 500)
	v.SetDefault("fetch.skip_unchanged", true)
	v.SetDefault("build.temp_dir", "/tmp/lfb-build")
	v.SetDefault("build.workers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "fetch", "build", "report", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Clean.MaxPlausibleSeconds <= 0 {
		problems = append(problems, "clean.max_plausible_seconds must be > 0")
	}

	switch mode {
	case "fetch":
		if c.Data.SourcesPath == "" {
			problems = append(problems, "data.sources_path is required")
		}
		if c.Data.RawDir == "" {
			problems = append(problems, "data.raw_dir is required")
		}
		if c.Fetch.RatePerSecond <= 0 {
			problems = append(problems, "fetch.rate_per_second must be > 0")
		}
	case "build":
		if c.Data.RawDir == "" {
			problems = append(problems, "data.raw_dir is required")
		}
		if c.Data.SnapshotPath == "" {
			problems = append(problems, "data.snapshot_path is required")
		}
		if c.Build.Workers < 1 || c.Build.Workers > 32 {
			problems = append(problems, "build.workers must be between 1 and 32")
		}
	case "report":
		if c.Data.SnapshotPath == "" {
			problems = append(problems, "data.snapshot_path is required")
		}
		if c.Data.BoundaryPath == "" {
			problems = append(problems, "data.boundary_path is required")
		}
	case "serve":
		if c.Data.SnapshotPath == "" {
			problems = append(problems, "data.snapshot_path is required")
		}
		if c.Data.BoundaryPath == "" {
			problems = append(problems, "data.boundary_path is required")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s mode: %s", mode, strings.Join(problems, "; "))
	}
	return nil
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
