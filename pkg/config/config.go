package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/zenetia/zap/pkg/utils"
)

var (
	once     sync.Once
	instance *Config

	defaultListenAddr    = ":8000"
	defaultIssuer        = "https://idp.example.com"
	defaultFetchTimeout  = "10s"
	defaultStorageType   = "local"
	defaultUploadDir     = "./uploads"
	defaultOutputDir     = "./outputs"
	defaultTempDir       = "./temp"
	defaultMaxUploadSize = int64(100 * 1024 * 1024) // 100MB
)

// Storage configures where converted files are kept.
type Storage struct {
	Type     string `mapstructure:"type"`      // Storage backend ("local" or "s3")
	LocalDir string `mapstructure:"local_dir"` // Root directory for the local backend
	S3Bucket string `mapstructure:"s3_bucket"` // Bucket name for the S3 backend
	S3Prefix string `mapstructure:"s3_prefix"` // Key prefix for the S3 backend
}

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"` // Address the HTTP server binds to
	LogLevel   string `mapstructure:"log_level"`   // Log level (debug, info, warn, error)

	Issuer       string        `mapstructure:"issuer"`        // Expected issuer of session tokens
	JWKSURL      string        `mapstructure:"jwks_url"`      // URL of the provider's published key set
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // Timeout for a single JWKS fetch

	UploadDir     string `mapstructure:"upload_dir"`      // Directory for raw uploads
	TempDir       string `mapstructure:"temp_dir"`        // Scratch directory for in-flight conversions
	MaxUploadSize int64  `mapstructure:"max_upload_size"` // Maximum request body size in bytes

	SupportedPDFFormats   []string `mapstructure:"supported_pdf_formats"`
	SupportedImageFormats []string `mapstructure:"supported_image_formats"`
	SupportedAudioFormats []string `mapstructure:"supported_audio_formats"`
	SupportedVideoFormats []string `mapstructure:"supported_video_formats"`

	Storage *Storage `mapstructure:"storage"` // Converted-file storage configuration
}

// NewConfig initializes and returns the configuration. It ensures that the config is loaded only once.
func NewConfig() (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		err = instance.LoadConfig()
	})
	return instance, err
}

// LoadConfig attempts to load configuration from a file or uses default values if not found.
func (c *Config) LoadConfig() error {
	configName := utils.GetEnv("CONFIG_NAME", "config") // Configuration file name without extension
	configPath := utils.GetEnv("CONFIG_PATH", ".")      // Configuration file path, default to current directory

	viper.SetEnvPrefix("zap") // Environment variable prefix, ex: "ZAP_"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("/etc/zap/")
	viper.AddConfigPath(configPath)
	viper.SetConfigName(configName)

	viper.SetDefault("listen_addr", defaultListenAddr)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("issuer", defaultIssuer)
	viper.SetDefault("fetch_timeout", defaultFetchTimeout)
	viper.SetDefault("upload_dir", defaultUploadDir)
	viper.SetDefault("temp_dir", defaultTempDir)
	viper.SetDefault("max_upload_size", defaultMaxUploadSize)
	viper.SetDefault("supported_pdf_formats", []string{"pdf"})
	viper.SetDefault("supported_image_formats", []string{"jpg", "jpeg", "png", "webp", "bmp", "tiff", "gif"})
	viper.SetDefault("supported_audio_formats", []string{"mp3", "wav", "flac", "aac", "ogg", "m4a"})
	viper.SetDefault("supported_video_formats", []string{"mp4", "webm", "avi", "mov", "mkv", "flv"})
	viper.SetDefault("storage.type", defaultStorageType)
	viper.SetDefault("storage.local_dir", defaultOutputDir)

	// Explicitly bind all config keys to environment variables
	_ = viper.BindEnv("listen_addr")     // ZAP_LISTEN_ADDR
	_ = viper.BindEnv("log_level")       // ZAP_LOG_LEVEL
	_ = viper.BindEnv("issuer")          // ZAP_ISSUER
	_ = viper.BindEnv("jwks_url")        // ZAP_JWKS_URL
	_ = viper.BindEnv("fetch_timeout")   // ZAP_FETCH_TIMEOUT
	_ = viper.BindEnv("upload_dir")      // ZAP_UPLOAD_DIR
	_ = viper.BindEnv("temp_dir")        // ZAP_TEMP_DIR
	_ = viper.BindEnv("max_upload_size") // ZAP_MAX_UPLOAD_SIZE

	// Storage settings
	_ = viper.BindEnv("storage.type")      // ZAP_STORAGE_TYPE
	_ = viper.BindEnv("storage.local_dir") // ZAP_STORAGE_LOCAL_DIR
	_ = viper.BindEnv("storage.s3_bucket") // ZAP_STORAGE_S3_BUCKET
	_ = viper.BindEnv("storage.s3_prefix") // ZAP_STORAGE_S3_PREFIX

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; rely on defaults
		} else {
			return fmt.Errorf("problem reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return c.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("issuer is required")
	}

	// The provider publishes its key set at the standard well-known path
	if c.JWKSURL == "" {
		c.JWKSURL = strings.TrimSuffix(c.Issuer, "/") + "/.well-known/jwks.json"
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("max_upload_size must be positive")
	}

	if c.Storage == nil {
		c.Storage = &Storage{Type: defaultStorageType, LocalDir: defaultOutputDir}
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalDir == "" {
			c.Storage.LocalDir = defaultOutputDir
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket is required when storage.type is s3")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	return nil
}

// FormatSupported reports whether ext (without the dot) appears in the
// given format list.
func FormatSupported(formats []string, ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, f := range formats {
		if f == ext {
			return true
		}
	}
	return false
}
