package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Resolution ResolutionConfig `yaml:"resolution" mapstructure:"resolution"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Points     PointsConfig     `yaml:"points" mapstructure:"points"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	FrontendDistPath string   `yaml:"frontend_dist_path" mapstructure:"frontend_dist_path"`
	ShutdownSecs     int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// StoreConfig selects the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	LogSQL      bool   `yaml:"log_sql" mapstructure:"log_sql"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuthConfig configures token validation. The signing secret only comes from
// the environment (CARDCAT_AUTH_JWT_SECRET).
type AuthConfig struct {
	JWTSecret string `yaml:"-" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// ResolutionConfig holds matching policy. ConfidenceThreshold separates
// auto-accepted matches from ones flagged for review.
type ResolutionConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	MinSimilarity       float64 `yaml:"min_similarity" mapstructure:"min_similarity"`
	MaxCandidates       int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	DefaultSeriesName   string  `yaml:"default_series_name" mapstructure:"default_series_name"`
}

// ReviewConfig controls bundle review policy. A negative AutoApproveMinPoints
// disables auto-approval.
type ReviewConfig struct {
	AutoApproveMinPoints int `yaml:"auto_approve_min_points" mapstructure:"auto_approve_min_points"`
	MinRejectNotes       int `yaml:"min_reject_notes" mapstructure:"min_reject_notes"`
	MaxReviewNotes       int `yaml:"max_review_notes" mapstructure:"max_review_notes"`
}

// PointsConfig holds the contributor point rewards and penalties.
type PointsConfig struct {
	PerApprovedCard   int `yaml:"per_approved_card" mapstructure:"per_approved_card"`
	PerRejectedBundle int `yaml:"per_rejected_bundle" mapstructure:"per_rejected_bundle"`
}

// RateLimitConfig guards bundle submission per user.
type RateLimitConfig struct {
	SubmissionsPerMinute float64 `yaml:"submissions_per_minute" mapstructure:"submissions_per_minute"`
	Burst                int     `yaml:"burst" mapstructure:"burst"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from an explicit file path, falling back to
// ./config.yaml when path is empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CARDCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.frontend_dist_path", "")
	v.SetDefault("server.shutdown_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./cardcatalog.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.log_sql", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "cardcatalog")
	v.SetDefault("resolution.confidence_threshold", 0.95)
	v.SetDefault("resolution.min_similarity", 0.6)
	v.SetDefault("resolution.max_candidates", 5)
	v.SetDefault("resolution.concurrency", 4)
	v.SetDefault("resolution.default_series_name", "Base")
	v.SetDefault("review.auto_approve_min_points", 50)
	v.SetDefault("review.min_reject_notes", 10)
	v.SetDefault("review.max_review_notes", 2000)
	v.SetDefault("points.per_approved_card", 2)
	v.SetDefault("points.per_rejected_bundle", 5)
	v.SetDefault("rate_limit.submissions_per_minute", 6)
	v.SetDefault("rate_limit.burst", 3)
}

// Validate checks settings that would make the resolver or review engine
// misbehave.
func (c *Config) Validate() error {
	r := c.Resolution
	if r.ConfidenceThreshold <= 0 || r.ConfidenceThreshold > 1 {
		return eris.Errorf("config: resolution.confidence_threshold must be in (0,1], got %v", r.ConfidenceThreshold)
	}
	if r.MinSimilarity <= 0 || r.MinSimilarity > r.ConfidenceThreshold {
		return eris.Errorf("config: resolution.min_similarity must be in (0,%v], got %v", r.ConfidenceThreshold, r.MinSimilarity)
	}
	if r.MaxCandidates < 1 {
		return eris.New("config: resolution.max_candidates must be at least 1")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return eris.New("config: store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Review.MinRejectNotes < 1 || c.Review.MaxReviewNotes < c.Review.MinRejectNotes {
		return eris.New("config: review note limits are inconsistent")
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
