package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// Config holds all configuration for docscan
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Storage StorageConfig `mapstructure:"storage"`
	Export  ExportConfig  `mapstructure:"export"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	MaxUploadMB  int      `mapstructure:"max_upload_mb"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// OCRConfig selects and tunes the text recognition engine
type OCRConfig struct {
	Engine      string        `mapstructure:"engine"` // tesseract | gosseract
	Binary      string        `mapstructure:"binary"`
	Languages   string        `mapstructure:"languages"`
	PSM         int           `mapstructure:"psm"`
	TessdataDir string        `mapstructure:"tessdata_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
	RateLimit   RateConfig    `mapstructure:"rate_limit"`
}

// BreakerConfig holds circuit breaker thresholds for the OCR provider
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// RateConfig limits OCR calls per second (0 = unlimited)
type RateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// BatchConfig holds batch orchestration settings
type BatchConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	ItemTimeout    time.Duration `mapstructure:"item_timeout"`
	RetryCount     int           `mapstructure:"retry_count"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir       string        `mapstructure:"data_dir"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	BadgerPath    string        `mapstructure:"badger_path"`
	Retention     time.Duration `mapstructure:"retention"`
	PurgeSchedule string        `mapstructure:"purge_schedule"`
}

// ExportConfig holds messaging export settings
type ExportConfig struct {
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	Title          string `mapstructure:"title"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	dataDir = expandPath(dataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "docscan.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "ocrcache"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "docscan.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.WrapAs(apperrors.ErrConfigInvalid, fmt.Errorf("failed to read config: %w", err))
		}
	}

	// Environment variables (DOCSCAN_SERVER_PORT, DOCSCAN_OCR_ENGINE, etc.)
	v.SetEnvPrefix("DOCSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.binary", "tesseract")
	v.SetDefault("ocr.languages", "eng+ita")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.timeout", "45s")
	v.SetDefault("ocr.cache_ttl", "24h")
	v.SetDefault("ocr.breaker.max_failures", 5)
	v.SetDefault("ocr.breaker.open_timeout", "30s")
	v.SetDefault("ocr.rate_limit.per_second", 0)
	v.SetDefault("ocr.rate_limit.burst", 4)

	v.SetDefault("batch.max_concurrency", 3)
	v.SetDefault("batch.item_timeout", "60s")
	v.SetDefault("batch.retry_count", 0)
	v.SetDefault("batch.retry_delay", "1s")

	v.SetDefault("storage.retention", "72h")
	v.SetDefault("storage.purge_schedule", "@hourly")

	v.SetDefault("export.title", "ID Card")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "docscan")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "docscan")
}

// loadEnvOverrides applies env vars that are commonly set under other names
func loadEnvOverrides(cfg *Config) {
	if v := ResolveEnvWithAliases("DOCSCAN_SERVER_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := ResolveEnvWithAliases("DOCSCAN_EXPORT_WHATSAPP_NUMBER"); v != "" {
		cfg.Export.WhatsAppNumber = v
	}
	if v := ResolveEnvWithAliases("DOCSCAN_OCR_BINARY"); v != "" {
		cfg.OCR.Binary = v
	}
	if v := ResolveEnvWithAliases("DOCSCAN_OCR_TESSDATA_DIR"); v != "" {
		cfg.OCR.TessdataDir = v
	}
}

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-().]+$`)

func validate(cfg *Config) error {
	invalid := func(format string, args ...any) error {
		return apperrors.WrapAs(apperrors.ErrConfigInvalid, fmt.Errorf(format, args...))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return invalid("server.port out of range: %d", cfg.Server.Port)
	}
	if cfg.Batch.MaxConcurrency < 1 {
		return invalid("batch.max_concurrency must be at least 1")
	}
	if cfg.Batch.RetryCount < 0 {
		return invalid("batch.retry_count must not be negative")
	}

	switch cfg.OCR.Engine {
	case "tesseract", "gosseract":
	default:
		return invalid("unknown ocr.engine %q", cfg.OCR.Engine)
	}

	if n := cfg.Export.WhatsAppNumber; n != "" && !phonePattern.MatchString(n) {
		return invalid("export.whatsapp_number must be a phone number, got %q", n)
	}

	if cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = generateSecret(32)
	}

	return nil
}

func generateSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// NewLogger builds the process logger from the log section
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	return zc.Build()
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}
