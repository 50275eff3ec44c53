package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/squiidz/geoindex/cellindex"
	"github.com/squiidz/geoindex/geo"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Index    IndexConfig    `yaml:"index" mapstructure:"index"`
	Distance DistanceConfig `yaml:"distance" mapstructure:"distance"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the badger directory.
type StoreConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	InMemory bool   `yaml:"in_memory" mapstructure:"in_memory"`
}

// IndexConfig configures coverings and traversal grouping.
type IndexConfig struct {
	GoalCells      int `yaml:"goal_cells" mapstructure:"goal_cells"`
	QueryGoalCells int `yaml:"query_goal_cells" mapstructure:"query_goal_cells"`
	LeafSize       int `yaml:"leaf_size" mapstructure:"leaf_size"`
	Fanout         int `yaml:"fanout" mapstructure:"fanout"`
}

// Covering returns the covering budgets as cellindex options.
func (c IndexConfig) Covering() cellindex.Options {
	return cellindex.Options{IndexGoalCells: c.GoalCells, QueryGoalCells: c.QueryGoalCells}
}

// DistanceConfig sets the default unit for distance output.
type DistanceConfig struct {
	Unit string `yaml:"unit" mapstructure:"unit"`
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
	v.SetEnvPrefix("GEOINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "geoindex.db")
	v.SetDefault("store.in_memory", false)
	v.SetDefault("index.goal_cells", cellindex.DefaultIndexGoalCells)
	v.SetDefault("index.query_goal_cells", cellindex.DefaultQueryGoalCells)
	v.SetDefault("index.leaf_size", 64)
	v.SetDefault("index.fanout", 16)
	v.SetDefault("distance.unit", string(geo.Meter))
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if err := c.Index.Covering().Validate(); err != nil {
		return eris.Wrap(err, "config: index")
	}
	if c.Index.LeafSize < 1 || c.Index.Fanout < 1 {
		return eris.Errorf("config: index leaf_size and fanout must be positive, got %d and %d", c.Index.LeafSize, c.Index.Fanout)
	}
	if _, err := geo.ParseUnit(c.Distance.Unit); err != nil {
		return eris.Wrap(err, "config: distance")
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return eris.New("config: store.path is required unless store.in_memory is set")
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
