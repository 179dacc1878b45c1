package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Env          string `yaml:"env" validate:"oneof=dev stage prod"`
	HTTPServer   `yaml:"http_server"`
	Postgres     `yaml:"postgres"`
	Storage      `yaml:"storage"`
	SafeBrowsing `yaml:"safe_browsing"`
	Probe        `yaml:"probe"`
	QRCode       `yaml:"qrcode"`
	CORS         `yaml:"cors"`
	Log          `yaml:"log"`
}

type HTTPServer struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:            3000,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    30 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 10 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	// URL takes precedence over the individual connection fields.
	URL             string        `yaml:"url"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	MigrationsPath  string        `yaml:"migrations_path"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	MigrationsPath:  "file://migrations",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	if p.URL != "" {
		return p.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Storage struct {
	Driver string `yaml:"driver" validate:"oneof=postgres memory"`
}

type SafeBrowsing struct {
	APIKey        string        `yaml:"api_key" validate:"required"`
	Endpoint      string        `yaml:"endpoint" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	ClientID      string        `yaml:"client_id"`
	ClientVersion string        `yaml:"client_version"`
}

var defaultSafeBrowsing = SafeBrowsing{
	Endpoint:      "https://safebrowsing.googleapis.com/v4/threatMatches:find",
	Timeout:       5 * time.Second,
	ClientID:      "qr-service",
	ClientVersion: "1.0.0",
}

type Probe struct {
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type QRCode struct {
	Size          int    `yaml:"size" validate:"min=128,max=1024"`
	RecoveryLevel string `yaml:"recovery_level" validate:"oneof=low medium high highest"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Log struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON    bool   `yaml:"json"`
	Concise bool   `yaml:"concise"`
}

// Load builds the config from defaults, the optional YAML file at path,
// an optional .env file and the environment, in that order.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: failed to load .env file: %w", op, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse PORT: %w", err)
		}
		cfg.HTTPServer.Port = port
	}

	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		cfg.Postgres.URL = v
	}

	if v, ok := os.LookupEnv("SAFE_BROWSING_API_KEY"); ok {
		cfg.SafeBrowsing.APIKey = v
	}

	if v, ok := os.LookupEnv("STORAGE_DRIVER"); ok {
		cfg.Storage.Driver = v
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Storage = Storage{Driver: StorageDriverPostgres}
	cfg.SafeBrowsing = defaultSafeBrowsing
	cfg.Probe = Probe{Timeout: 5 * time.Second}
	cfg.QRCode = QRCode{Size: 256, RecoveryLevel: "medium"}
	cfg.CORS = CORS{AllowedOrigins: []string{"*"}}
	cfg.Log = Log{Level: "info", Concise: true}
}
