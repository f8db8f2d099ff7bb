package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultHTTPAddr          = "0.0.0.0:8080"
	DefaultKeyServiceTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
)

type PostgresConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
}

// ConnString prefers an explicit URL and otherwise assembles one from the
// individual settings. It is empty when nothing is configured.
func (p PostgresConfig) ConnString() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

type KeyServiceConfig struct {
	URL     string   `yaml:"url"`
	Secret  string   `yaml:"secret"`
	Timeout Duration `yaml:"timeout"`
}

type Config struct {
	HTTPAddr          string           `yaml:"http-addr"`
	Postgres          PostgresConfig   `yaml:"postgres"`
	JWTSecret         string           `yaml:"jwt-secret"`
	KeyService        KeyServiceConfig `yaml:"key-service"`
	InternalAPISecret string           `yaml:"internal-api-secret"`
	ShutdownTimeout   Duration         `yaml:"shutdown-timeout"`
}

// Duration reads Go duration strings such as "10s" from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return &yaml.TypeError{Errors: []string{fmt.Sprintf("invalid duration %q", raw)}}
	}
	*d = Duration(parsed)
	return nil
}

// Load reads .env (if present), then the environment, then the YAML file
// named by CONFIG_FILE. Non-empty YAML values win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.merge(file)
	}
	return cfg, nil
}

func FromEnv() (*Config, error) {
	keyTimeout, err := envDuration("KEY_SERVICE_TIMEOUT", DefaultKeyServiceTimeout)
	if err != nil {
		return nil, err
	}
	shutdown, err := envDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPAddr: envOr("HTTP_ADDR", DefaultHTTPAddr),
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     envOr("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		KeyService: KeyServiceConfig{
			URL:     os.Getenv("KEY_SERVICE_URL"),
			Secret:  os.Getenv("KEY_SERVICE_SECRET"),
			Timeout: Duration(keyTimeout),
		},
		InternalAPISecret: os.Getenv("INTERNAL_API_SECRET"),
		ShutdownTimeout:   Duration(shutdown),
	}, nil
}

func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	setString(&c.HTTPAddr, o.HTTPAddr)
	setString(&c.Postgres.URL, o.Postgres.URL)
	setString(&c.Postgres.Host, o.Postgres.Host)
	setString(&c.Postgres.Port, o.Postgres.Port)
	setString(&c.Postgres.User, o.Postgres.User)
	setString(&c.Postgres.Password, o.Postgres.Password)
	setString(&c.Postgres.DB, o.Postgres.DB)
	setString(&c.JWTSecret, o.JWTSecret)
	setString(&c.KeyService.URL, o.KeyService.URL)
	setString(&c.KeyService.Secret, o.KeyService.Secret)
	setString(&c.InternalAPISecret, o.InternalAPISecret)
	if o.KeyService.Timeout > 0 {
		c.KeyService.Timeout = o.KeyService.Timeout
	}
	if o.ShutdownTimeout > 0 {
		c.ShutdownTimeout = o.ShutdownTimeout
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
