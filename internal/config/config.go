// Package config loads edmap settings from config.yaml, a .env file, and
// EDMAP_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/edmap/internal/classify"
	"github.com/sells-group/edmap/internal/dataset"
	"github.com/sells-group/edmap/internal/store"
	"github.com/sells-group/edmap/internal/view"
)

// Config holds the full application configuration.
type Config struct {
	Data       dataset.Config   `yaml:"data" mapstructure:"data"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Chart      view.Layout      `yaml:"chart" mapstructure:"chart"`
	Client     ClientConfig     `yaml:"client" mapstructure:"client"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Reload     ReloadConfig     `yaml:"reload" mapstructure:"reload"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CatalogConfig selects the attribute catalog. Path wins over LabelSet.
type CatalogConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	LabelSet string `yaml:"label_set" mapstructure:"label_set"`
}

// ClassifyConfig configures natural-breaks classification.
type ClassifyConfig struct {
	Clusters    int      `yaml:"clusters" mapstructure:"clusters"`
	Algorithm   string   `yaml:"algorithm" mapstructure:"algorithm"`
	Palette     []string `yaml:"palette" mapstructure:"palette"`
	NoDataColor string   `yaml:"no_data_color" mapstructure:"no_data_color"`
}

// ClientConfig selects between the two browser script variants.
type ClientConfig struct {
	Container   string `yaml:"container" mapstructure:"container"`
	LabelCoords string `yaml:"label_coords" mapstructure:"label_coords"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// StoreConfig configures snapshot persistence.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ReloadConfig schedules dataset reloads. An empty schedule disables them.
type ReloadConfig struct {
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// FetchConfig configures remote dataset sources.
type FetchConfig struct {
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int      `yaml:"retries" mapstructure:"retries"`
	UserAgent   string   `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64  `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	S3          S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config configures s3:// sources. Empty keys use the default AWS chain.
type S3Config struct {
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle       bool   `yaml:"path_style" mapstructure:"path_style"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

// MonitoringConfig configures reload alerting.
type MonitoringConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// MaxJoinMisses alerts when more region codes than this fail to join.
	// Zero disables the check.
	MaxJoinMisses int `yaml:"max_join_misses" mapstructure:"max_join_misses"`
	// FailureThreshold is the number of consecutive failed loads before
	// alerting.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EDMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

// setDefaults registers every key so AutomaticEnv can override keys that
// have no file value.
func setDefaults(v *viper.Viper) {
	layout := view.DefaultLayout()
	palette := make([]string, len(classify.DefaultPalette))
	for i, c := range classify.DefaultPalette {
		palette[i] = string(c)
	}

	v.SetDefault("data.tabular.uri", "data/education.csv")
	v.SetDefault("data.tabular.format", "")
	v.SetDefault("data.tabular.encoding", "")
	v.SetDefault("data.tabular.sheet", "")
	v.SetDefault("data.tabular.code_column", "STUSPS")
	v.SetDefault("data.tabular.name_column", "STATE")
	v.SetDefault("data.geo.uri", "data/states.topojson")
	v.SetDefault("data.geo.format", "")
	v.SetDefault("data.geo.object", "States")
	v.SetDefault("data.geo.code_property", "STUSPS")
	v.SetDefault("data.geo.name_property", "NAME")
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.label_set", "default")
	v.SetDefault("classify.clusters", len(classify.DefaultPalette))
	v.SetDefault("classify.algorithm", classify.AlgorithmCKMeans)
	v.SetDefault("classify.palette", palette)
	v.SetDefault("classify.no_data_color", string(classify.NoDataColor))
	v.SetDefault("chart.width", layout.Width)
	v.SetDefault("chart.height", layout.Height)
	v.SetDefault("chart.padding_left", layout.PaddingLeft)
	v.SetDefault("chart.padding_right", layout.PaddingRight)
	v.SetDefault("chart.padding_top", layout.PaddingTop)
	v.SetDefault("chart.padding_bottom", layout.PaddingBottom)
	v.SetDefault("client.container", view.ContainerMain)
	v.SetDefault("client.label_coords", view.LabelCoordsPage)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "edmap.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("reload.schedule", "")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.user_agent", "edmap/1.0")
	v.SetDefault("fetch.rate_per_host", 5.0)
	v.SetDefault("fetch.s3.region", "")
	v.SetDefault("fetch.s3.endpoint", "")
	v.SetDefault("fetch.s3.path_style", false)
	v.SetDefault("fetch.s3.access_key_id", "")
	v.SetDefault("fetch.s3.secret_access_key", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.max_join_misses", 0)
	v.SetDefault("monitoring.failure_threshold", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects settings the classifier or server cannot honor.
func (c *Config) Validate() error {
	if c.Classify.Clusters != len(c.Classify.Palette) {
		return eris.Errorf("config: classify.clusters is %d but the palette has %d colors",
			c.Classify.Clusters, len(c.Classify.Palette))
	}
	if c.Classify.Clusters < 2 {
		return eris.Errorf("config: classify.clusters must be at least 2, got %d", c.Classify.Clusters)
	}
	for _, p := range c.Classify.Palette {
		if _, err := view.ParseColor(classify.Color(p)); err != nil {
			return eris.Wrapf(err, "config: palette color %q", p)
		}
	}
	if _, err := classify.NewClusterer(c.Classify.Algorithm); err != nil {
		return eris.Wrap(err, "config: classify.algorithm")
	}
	if c.Chart.InnerWidth() <= 0 || c.Chart.InnerHeight() <= 0 {
		return eris.New("config: chart paddings exceed its size")
	}
	return nil
}

// ValidateFor checks the settings a command needs beyond Validate.
// Problems are reported together.
func (c *Config) ValidateFor(mode string) error {
	var problems []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		problems = append(problems, c.dataProblems()...)
	case "import":
		if c.Data.Tabular.URI == "" {
			problems = append(problems, "data.tabular.uri is required")
		}
		problems = append(problems, c.storeProblems()...)
	case "snapshots":
		problems = append(problems, c.storeProblems()...)
	default:
		problems = append(problems, c.dataProblems()...)
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) dataProblems() []string {
	var problems []string
	if c.Data.Tabular.URI == "" {
		problems = append(problems, "data.tabular.uri is required")
	}
	if c.Data.Geo.URI == "" {
		problems = append(problems, "data.geo.uri is required")
	}
	if strings.HasPrefix(c.Data.Tabular.URI, dataset.SchemeStore+"://") {
		problems = append(problems, c.storeProblems()...)
	}
	return problems
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "", "sqlite":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	}
	return []string{fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver)}
}

// ClassifyOptions builds classifier options from the classify section.
func (c *Config) ClassifyOptions() (classify.Options, error) {
	cl, err := classify.NewClusterer(c.Classify.Algorithm)
	if err != nil {
		return classify.Options{}, eris.Wrap(err, "config: classify.algorithm")
	}
	palette := make([]classify.Color, len(c.Classify.Palette))
	for i, p := range c.Classify.Palette {
		palette[i] = classify.Color(p)
	}
	return classify.Options{
		Clusterer: cl,
		Palette:   palette,
		NoData:    classify.Color(c.Classify.NoDataColor),
	}, nil
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
