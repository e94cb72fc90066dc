package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	CORSOrigins       []string `yaml:"cors_origins"`

	// PublicBaseURL is prepended to content and bridge URLs handed to the shell.
	// Empty means URLs stay relative to the serving host.
	PublicBaseURL string `yaml:"public_base_url,omitempty"`
}

type LaunchConfig struct {
	// ProbeTimeout bounds each remote HEAD/GET issued while resolving a package.
	ProbeTimeout Duration `yaml:"probe_timeout"`
	UserAgent    string   `yaml:"user_agent,omitempty"`

	// AllowedRoots restricts which local package roots sessions may launch.
	// Empty allows any root.
	AllowedRoots []string `yaml:"allowed_roots,omitempty"`
}

type DBConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	// Addr empty disables the bridge event bus.
	Addr    string `yaml:"addr,omitempty"`
	Channel string `yaml:"channel,omitempty"`
}

type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

type SessionConfig struct {
	Secret string   `yaml:"secret"`
	TTL    Duration `yaml:"ttl"`
}

type Config struct {
	Env     string        `yaml:"env"`
	HTTP    HTTPConfig    `yaml:"http"`
	Launch  LaunchConfig  `yaml:"launch"`
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	GCS     GCSConfig     `yaml:"gcs"`
	Session SessionConfig `yaml:"session"`
}
