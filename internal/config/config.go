package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPort        = 3000
	DefaultMaxFileSize = 18 * 1024 * 1024
	defaultSecret      = "schan-secret-key"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Media   Media   `yaml:"media"`
	Session Session `yaml:"session"`
	Captcha Captcha `yaml:"captcha"`
	Log     Log     `yaml:"log"`
	Private Private `yaml:"private"`
}

type Server struct {
	Port          int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout   time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout  time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	SecureCookies bool          `yaml:"secure_cookies"`
	CorsOrigins   []string      `yaml:"cors_origins"`
	// TrustProxy is only safe when a reverse proxy sets X-Real-IP or appends to X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy"`
}

type Storage struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	// file path for sqlite, connection string for postgres
	DSN string `yaml:"dsn" validate:"required_unless=Driver memory"`
}

type Media struct {
	UploadsDir  string `yaml:"uploads_dir" validate:"required"`
	MaxFileSize int64  `yaml:"max_file_size" validate:"gt=0"`
	// orphan sweep period, zero disables it
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
	// files younger than this are never swept
	GCSafetyThreshold time.Duration `yaml:"gc_safety_threshold" validate:"gte=0"`
}

type Session struct {
	Secret          string        `yaml:"secret" validate:"required"`
	TTL             time.Duration `yaml:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gt=0"`
}

type Captcha struct {
	// base64 encoded reserved display names
	EncodedSpecialNames []string `yaml:"encoded_special_names"`
}

type Log struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// Private holds the moderation secrets. Empty means the role is not configured.
type Private struct {
	AdminPassword string `yaml:"admin_password"`
	ModPassword   string `yaml:"mod_password"`
}

// UsesDefaultSecret reports whether sessions are signed with the built-in key.
func (c *Config) UsesDefaultSecret() bool {
	return c.Session.Secret == defaultSecret
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:         DefaultPort,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Storage: Storage{Driver: "sqlite", DSN: "schan.db"},
		Media: Media{
			UploadsDir:        "public/uploads",
			MaxFileSize:       DefaultMaxFileSize,
			GCInterval:        time.Hour,
			GCSafetyThreshold: 10 * time.Minute,
		},
		Session: Session{
			Secret:          defaultSecret,
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the optional yaml file at path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("can't read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("can't unmarshal config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok && v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		cfg.Media.MaxFileSize = size
	}
	str("SESSION_SECRET", &cfg.Session.Secret)
	str("ADMIN_PASSWORD", &cfg.Private.AdminPassword)
	str("MOD_PASSWORD", &cfg.Private.ModPassword)
	list("ENCODED_SPECIAL_NAMES", &cfg.Captcha.EncodedSpecialNames)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("UPLOADS_DIR", &cfg.Media.UploadsDir)
	str("LOG_LEVEL", &cfg.Log.Level)
	list("CORS_ORIGINS", &cfg.Server.CorsOrigins)

	if err := boolean("LOG_JSON", &cfg.Log.JSON); err != nil {
		return err
	}
	if err := boolean("SECURE_COOKIES", &cfg.Server.SecureCookies); err != nil {
		return err
	}
	if err := boolean("TRUST_PROXY", &cfg.Server.TrustProxy); err != nil {
		return err
	}
	if err := duration("SESSION_TTL", &cfg.Session.TTL); err != nil {
		return err
	}
	if err := duration("MEDIA_GC_INTERVAL", &cfg.Media.GCInterval); err != nil {
		return err
	}
	return nil
}

func splitList(input string) []string {
	var result []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
