package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Session  SessionConfig  `mapstructure:"session"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	CookieSecure    bool          `mapstructure:"cookie_secure"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	Debug      bool          `mapstructure:"debug"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

type WizardConfig struct {
	IdleTTL        time.Duration `mapstructure:"idle_ttl"`
	MaxPhotoBytes  int64         `mapstructure:"max_photo_bytes"`
	ThumbnailMax   int           `mapstructure:"thumbnail_max"`
	EncodeWorkers  int           `mapstructure:"encode_workers"`
	MaxDuplicate   int           `mapstructure:"max_duplicate"`
	PickupTimezone string        `mapstructure:"pickup_timezone"`
	CleanupCron    string        `mapstructure:"cleanup_cron"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // s3 | local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

type AIConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
}

type AdminConfig struct {
	// bcrypt 哈希，为空则不启用后台口令
	ConsolePasswordHash string `mapstructure:"console_password_hash"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ==================== 加载 ====================

// EnvPrefix 环境变量前缀，例如 BLUBERRY_BACKEND_BASE_URL
const EnvPrefix = "BLUBERRY"

// Load 读取配置文件与环境变量；path 为空时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 文件不存在时允许只靠环境变量启动
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 基础校验
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url 不能为空")
	}
	if c.Session.Secret == "" {
		return errors.New("session.secret 不能为空")
	}
	if c.Wizard.MaxPhotoBytes <= 0 {
		return errors.New("wizard.max_photo_bytes 必须大于 0")
	}
	if _, err := time.LoadLocation(c.Wizard.PickupTimezone); err != nil {
		return fmt.Errorf("wizard.pickup_timezone 无效: %w", err)
	}
	return nil
}

// PickupLocation 取件日期所在时区
func (c *Config) PickupLocation() *time.Location {
	loc, err := time.LoadLocation(c.Wizard.PickupTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "bluberry.db")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("backend.base_url", "http://localhost:8000/api")
	v.SetDefault("backend.timeout", 60*time.Second)
	v.SetDefault("backend.retry_count", 2)
	v.SetDefault("backend.debug", false)

	v.SetDefault("session.secret", "bluberry-session-secret-change-in-production")
	v.SetDefault("session.ttl", 7*24*time.Hour)
	v.SetDefault("session.issuer", "bluberry-storefront")

	v.SetDefault("wizard.idle_ttl", 24*time.Hour)
	v.SetDefault("wizard.max_photo_bytes", 5*1024*1024)
	v.SetDefault("wizard.thumbnail_max", 512)
	v.SetDefault("wizard.encode_workers", 4)
	v.SetDefault("wizard.max_duplicate", 20)
	v.SetDefault("wizard.pickup_timezone", "America/New_York")
	v.SetDefault("wizard.cleanup_cron", "0 */10 * * * *")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.endpoint", "/uploads")
	v.SetDefault("storage.cdn_domain", "")
	v.SetDefault("storage.base_path", "./uploads")

	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")

	v.SetDefault("admin.console_password_hash", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
