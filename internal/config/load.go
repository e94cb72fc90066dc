package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/scormbridge/internal/platform/envutil"
)

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if dd, err := time.ParseDuration(s); err == nil {
		d.Duration = dd
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or integer seconds: %w", err)
	}
	d.Duration = time.Duration(n) * time.Second
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			CORSOrigins:       []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Launch: LaunchConfig{
			ProbeTimeout: Duration{Duration: 10 * time.Second},
			UserAgent:    "scormbridge/1.0",
		},
		DB: DBConfig{
			Driver: "sqlite",
			DSN:    "file:scormbridge.db?_busy_timeout=5000",
		},
		Redis: RedisConfig{Channel: "scorm-bridge"},
		Session: SessionConfig{
			Secret: "",
			TTL:    Duration{Duration: 8 * time.Hour},
		},
	}
}

// Load reads the YAML file named by SCORM_CONFIG_PATH (or ./config/config.yaml
// when present), then applies environment overrides and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(os.Getenv("SCORM_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("SCORM_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.PublicBaseURL = envutil.String("SCORM_PUBLIC_BASE_URL", cfg.HTTP.PublicBaseURL)
	if v := envutil.String("SCORM_CORS_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	cfg.Launch.ProbeTimeout.Duration = envutil.Duration("SCORM_PROBE_TIMEOUT", cfg.Launch.ProbeTimeout.Duration)
	if v := envutil.String("SCORM_ALLOWED_ROOTS", ""); v != "" {
		cfg.Launch.AllowedRoots = splitList(v)
	}
	cfg.DB.Driver = envutil.String("SCORM_DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = envutil.String("SCORM_DB_DSN", cfg.DB.DSN)
	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)
	cfg.GCS.Enabled = envutil.Bool("SCORM_GCS_ENABLED", cfg.GCS.Enabled)
	cfg.GCS.Endpoint = envutil.String("STORAGE_EMULATOR_HOST", cfg.GCS.Endpoint)
	cfg.GCS.CredentialsFile = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", cfg.GCS.CredentialsFile)
	cfg.Session.Secret = envutil.String("SCORM_SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.TTL.Duration = envutil.Duration("SCORM_SESSION_TTL", cfg.Session.TTL.Duration)
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.HTTP.PublicBaseURL), "/")
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}
	if cfg.Launch.ProbeTimeout.Duration < 0 {
		return errors.New("launch.probe_timeout must not be negative")
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	switch cfg.DB.Driver {
	case "", "sqlite", "sqlite3":
		cfg.DB.Driver = "sqlite"
	case "postgres", "postgresql", "pg":
		cfg.DB.Driver = "postgres"
	default:
		return fmt.Errorf("invalid db.driver=%q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return errors.New("db.dsn is required")
	}

	if strings.TrimSpace(cfg.Redis.Channel) == "" {
		cfg.Redis.Channel = "scorm-bridge"
	}

	if cfg.Session.TTL.Duration <= 0 {
		cfg.Session.TTL = Duration{Duration: 8 * time.Hour}
	}
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		if isProduction(cfg.Env) {
			return errors.New("session.secret is required in production")
		}
		cfg.Session.Secret = "scormbridge-development-secret"
	}
	return nil
}

func isProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
