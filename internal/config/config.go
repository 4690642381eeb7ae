package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Reference ReferenceConfig `yaml:"reference" mapstructure:"reference"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Policy    PolicyConfig    `yaml:"policy" mapstructure:"policy"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the per-proposition donation files.
type InputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Suffix string `yaml:"suffix" mapstructure:"suffix"`
}

// ReferenceConfig locates the ZIP coordinate table and municipality boundaries.
type ReferenceConfig struct {
	ZIPTable     string         `yaml:"zip_table" mapstructure:"zip_table"`
	ZIPSearchDir string         `yaml:"zip_search_dir" mapstructure:"zip_search_dir"`
	Boundaries   string         `yaml:"boundaries" mapstructure:"boundaries"`
	Sources      []SourceConfig `yaml:"sources" mapstructure:"sources"`
	Manifest     string         `yaml:"manifest" mapstructure:"manifest"`
}

// SourceConfig names a downloadable reference file.
type SourceConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	URL     string `yaml:"url" mapstructure:"url"`
	Path    string `yaml:"path" mapstructure:"path"`
	Extract bool   `yaml:"extract" mapstructure:"extract"`
}

// OutputConfig controls where feature collections are written.
type OutputConfig struct {
	Dir              string `yaml:"dir" mapstructure:"dir"`
	AggregatedDir    string `yaml:"aggregated_dir" mapstructure:"aggregated_dir"`
	WriteCitySummary bool   `yaml:"write_city_summary" mapstructure:"write_city_summary"`
}

// PolicyConfig points at an optional geocoding policy file.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures file processing.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ReportConfig configures the console and file reports.
type ReportConfig struct {
	TotalsPath    string   `yaml:"totals_path" mapstructure:"totals_path"`
	ZIPsPath      string   `yaml:"zips_path" mapstructure:"zips_path"`
	CityTotalFile string   `yaml:"city_total_file" mapstructure:"city_total_file"`
	Cities        []string `yaml:"cities" mapstructure:"cities"`
	FilterInput   string   `yaml:"filter_input" mapstructure:"filter_input"`
	FilterState   string   `yaml:"filter_state" mapstructure:"filter_state"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
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
	v.SetEnvPrefix("DONORMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.dir", "data/mt-filtered")
	v.SetDefault("input.suffix", "-mt.csv")
	v.SetDefault("reference.zip_table", "data/mt-zipcodes.csv")
	v.SetDefault("reference.zip_search_dir", "data")
	v.SetDefault("reference.boundaries", "data/mt-municipalities-1m.geojson")
	v.SetDefault("reference.manifest", "data/.reference.json")
	v.SetDefault("reference.sources", []map[string]interface{}{
		{
			"name":    "mt-places",
			"url":     "https://www2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_30_place_500k.zip",
			"path":    "data/cb_2023_30_place_500k.zip",
			"extract": true,
		},
	})
	v.SetDefault("output.dir", "output/geojson")
	v.SetDefault("output.aggregated_dir", "output/aggregated-geojson")
	v.SetDefault("output.write_city_summary", true)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("report.totals_path", "output/totals.txt")
	v.SetDefault("report.zips_path", "unique-zipcodes.csv")
	v.SetDefault("report.city_total_file", "data/mt-filtered/prop-50-mt.csv")
	v.SetDefault("report.cities", []string{
		"whitefish", "columbia falls", "kalispell", "polson", "ronan",
		"alberton", "missoula", "stevensville", "hamilton",
	})
	v.SetDefault("report.filter_input", "data/all-states")
	v.SetDefault("report.filter_state", "MT")
	v.SetDefault("policy.path", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "donormap.db")

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

// Validate checks the settings required by a command mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "map":
		if c.Input.Dir == "" {
			errs = append(errs, "input.dir is required")
		}
		if c.Output.Dir == "" {
			errs = append(errs, "output.dir is required")
		}
		if c.Output.WriteCitySummary && c.Output.AggregatedDir == "" {
			errs = append(errs, "output.aggregated_dir is required when output.write_city_summary is set")
		}
		if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 32 {
			errs = append(errs, "pipeline.concurrency must be between 1 and 32")
		}
	case "report":
		if c.Input.Dir == "" {
			errs = append(errs, "input.dir is required")
		}
	case "reference":
		if len(c.Reference.Sources) == 0 {
			errs = append(errs, "reference.sources is empty")
		}
		for i, src := range c.Reference.Sources {
			if src.URL == "" || src.Path == "" {
				errs = append(errs, fmt.Sprintf("reference.sources[%d] needs url and path", i))
			}
		}
		if c.Reference.Manifest == "" {
			errs = append(errs, "reference.manifest is required")
		}
	case "filter":
		if c.Report.FilterInput == "" {
			errs = append(errs, "report.filter_input is required")
		}
		if len(strings.TrimSpace(c.Report.FilterState)) != 2 {
			errs = append(errs, "report.filter_state must be a two-letter state code")
		}
	case "ledger":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
