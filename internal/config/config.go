package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env        string
	ServerPort string
	Currency   string

	DB       DBConfig
	JWT      JWTConfig
	Paygate  PaygateConfig
	Telegram TelegramConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Admin    AdminConfig

	DraftTTL time.Duration
}

type DBConfig struct {
	DSN      string
	LogLevel string // silent | error | warn | info
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type PaygateConfig struct {
	BaseURL       string
	APIKey        string
	ShopID        string
	WebhookSecret string
	SuccessURL    string
	FailURL       string
}

type TelegramConfig struct {
	BotToken      string
	BotName       string
	WebhookSecret string
	AdminChatIDs  []int64
}

type StorageConfig struct {
	Provider  string // local | s3
	LocalDir  string
	PublicURL string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	CDNDomain string
	BasePath  string
}

type UploadConfig struct {
	MaxBytes int64
	MaxWidth int
}

type AdminConfig struct {
	Email    string
	Password string
}

// IsProd 是否生产环境
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// Load 加载配置：.env -> 环境变量 -> config.yaml（可选）
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:        v.GetString("APP_ENV"),
		ServerPort: v.GetString("SERVER_PORT"),
		Currency:   v.GetString("CURRENCY"),
		DB: DBConfig{
			DSN:      v.GetString("DB_DSN"),
			LogLevel: v.GetString("DB_LOG_LEVEL"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			AccessTTL:  v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL: v.GetDuration("JWT_REFRESH_TTL"),
		},
		Paygate: PaygateConfig{
			BaseURL:       v.GetString("PAYGATE_BASE_URL"),
			APIKey:        v.GetString("PAYGATE_API_KEY"),
			ShopID:        v.GetString("PAYGATE_SHOP_ID"),
			WebhookSecret: v.GetString("PAYGATE_WEBHOOK_SECRET"),
			SuccessURL:    v.GetString("PAYGATE_SUCCESS_URL"),
			FailURL:       v.GetString("PAYGATE_FAIL_URL"),
		},
		Telegram: TelegramConfig{
			BotToken:      v.GetString("TELEGRAM_BOT_TOKEN"),
			BotName:       v.GetString("TELEGRAM_BOT_NAME"),
			WebhookSecret: v.GetString("TELEGRAM_WEBHOOK_SECRET"),
			AdminChatIDs:  parseChatIDs(v.GetString("TELEGRAM_ADMIN_CHAT_IDS")),
		},
		Storage: StorageConfig{
			Provider:  v.GetString("STORAGE_PROVIDER"),
			LocalDir:  v.GetString("STORAGE_LOCAL_DIR"),
			PublicURL: v.GetString("STORAGE_PUBLIC_URL"),
			Bucket:    v.GetString("AWS_BUCKET"),
			Region:    v.GetString("AWS_REGION"),
			AccessKey: v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:  v.GetString("AWS_ENDPOINT"),
			CDNDomain: v.GetString("AWS_CDN_DOMAIN"),
			BasePath:  v.GetString("STORAGE_BASE_PATH"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			MaxWidth: v.GetInt("UPLOAD_MAX_WIDTH"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		DraftTTL: v.GetDuration("DRAFT_TTL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CURRENCY", "RUB")
	v.SetDefault("DB_DSN", "host=localhost user=shop password=shop dbname=storefront port=5432 sslmode=disable")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "storefront-dev-secret-change-in-production")
	v.SetDefault("JWT_ACCESS_TTL", 2*time.Hour)
	v.SetDefault("JWT_REFRESH_TTL", 30*24*time.Hour)
	v.SetDefault("PAYGATE_BASE_URL", "https://api.paygate.example")
	v.SetDefault("DRAFT_TTL", time.Hour)
	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "/uploads")
	v.SetDefault("STORAGE_BASE_PATH", "storefront")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("UPLOAD_MAX_WIDTH", 1600)
}

// Validate 生产环境下必须显式配置敏感项
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT 不能为空")
	}
	if !c.IsProd() {
		return nil
	}
	if c.DB.DSN == "" {
		return errors.New("生产环境必须配置 DB_DSN")
	}
	if c.JWT.Secret == "" || strings.Contains(c.JWT.Secret, "dev-secret") {
		return errors.New("生产环境必须配置 JWT_SECRET")
	}
	if c.Paygate.WebhookSecret == "" {
		return errors.New("生产环境必须配置 PAYGATE_WEBHOOK_SECRET")
	}
	return nil
}

// parseChatIDs 解析 "123,-100456" 形式的 chat id 列表，非法项跳过
func parseChatIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
