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
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Census     CensusConfig     `yaml:"census" mapstructure:"census"`
	Postgres   PostgresConfig   `yaml:"postgres" mapstructure:"postgres"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the input trees: per-state BDC availability files and
// the FCC reference files.
type DataConfig struct {
	BDCDir       string `yaml:"bdc_dir" mapstructure:"bdc_dir"`
	ResourceDir  string `yaml:"resource_dir" mapstructure:"resource_dir"`
	TabblockDir  string `yaml:"tabblock_dir" mapstructure:"tabblock_dir"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
	StatesFile   string `yaml:"states_file" mapstructure:"states_file"`
	ProviderList string `yaml:"provider_list" mapstructure:"provider_list"`
	TechCodes    string `yaml:"tech_codes" mapstructure:"tech_codes"`
}

// OutputConfig selects the output directory and formats.
type OutputConfig struct {
	Dir      string   `yaml:"dir" mapstructure:"dir"`
	Formats  []string `yaml:"formats" mapstructure:"formats"` // geojson, gpkg, csv, postgres
	RunLog   string   `yaml:"run_log" mapstructure:"run_log"`
	Postgres bool     `yaml:"postgres" mapstructure:"postgres"`
	// Replace truncates the postgres table and loads with plain COPY
	// instead of upserting, for full refreshes.
	Replace bool `yaml:"replace" mapstructure:"replace"`
}

// PipelineConfig tunes the per-state processing.
type PipelineConfig struct {
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	KeepTemp    bool `yaml:"keep_temp" mapstructure:"keep_temp"`
}

// CensusConfig configures TIGER/Line downloads.
type CensusConfig struct {
	Year        int  `yaml:"year" mapstructure:"year"`
	UseFTP      bool `yaml:"use_ftp" mapstructure:"use_ftp"`
	DownloadRPS int  `yaml:"download_rps" mapstructure:"download_rps"`
}

// PostgresConfig configures the optional Postgres sink.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// MonitoringConfig configures the memory watcher.
type MonitoringConfig struct {
	SampleIntervalSecs int    `yaml:"sample_interval_secs" mapstructure:"sample_interval_secs"`
	HeapWarnBytes      uint64 `yaml:"heap_warn_bytes" mapstructure:"heap_warn_bytes"`
}

// ServerConfig configures the read-only results API.
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
	v.SetEnvPrefix("BDC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.bdc_dir", "data/bdc")
	v.SetDefault("data.resource_dir", "data/resources")
	v.SetDefault("data.tabblock_dir", "data/tabblock")
	v.SetDefault("data.temp_dir", "/tmp/bdc")
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.formats", []string{"geojson", "gpkg"})
	v.SetDefault("output.run_log", "output/runs.db")
	v.SetDefault("output.replace", false)
	v.SetDefault("pipeline.concurrency", 2)
	v.SetDefault("pipeline.keep_temp", false)
	v.SetDefault("census.year", 2024)
	v.SetDefault("census.use_ftp", false)
	v.SetDefault("census.download_rps", 2)
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("monitoring.sample_interval_secs", 30)
	v.SetDefault("monitoring.heap_warn_bytes", uint64(8<<30))
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
