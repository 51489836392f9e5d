package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务配置
type Config struct {
	Port        string
	Environment string

	// 数据库
	DBDriver string // "sqlite" | "postgres"
	DBDSN    string

	// 库存接口
	InventoryAPIBaseURL string
	InventoryAPIToken   string // CLI 使用的固定令牌
	CategoryID          string
	HTTPTimeout         time.Duration
	RequestRatePerSec   float64
	RequestBurst        int

	// 上传目标: "api" 由库存接口签发，"s3" 由本服务直接签发
	UploadURLProvider string
	Storage           StorageConfig

	// 会话
	SessionIdleTTL   time.Duration
	TaxonomyCacheTTL time.Duration
	CleanupSpec      string
}

// StorageConfig 自建对象存储
type StorageConfig struct {
	Provider  string // "s3" | "cos"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	CDNDomain string
	BasePath  string
	URLExpiry time.Duration
}

// Load 读取 .env (可选) 与环境变量
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", "workbench.db"),

		InventoryAPIBaseURL: getEnv("INVENTORY_API_BASE_URL", "https://tcgid.io/api"),
		InventoryAPIToken:   getEnv("INVENTORY_API_TOKEN", ""),
		CategoryID:          getEnv("EBAY_CATEGORY_ID", "183454"),
		HTTPTimeout:         getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		RequestRatePerSec:   getEnvAsFloat("UPLOAD_RATE_PER_SEC", 5),
		RequestBurst:        getEnvAsInt("UPLOAD_RATE_BURST", 2),

		UploadURLProvider: strings.ToLower(getEnv("UPLOAD_URL_PROVIDER", "api")),
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "s3"),
			Bucket:    getEnv("AWS_BUCKET", ""),
			Region:    getEnv("AWS_REGION", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
			BasePath:  getEnv("STORAGE_BASE_PATH", "inventory"),
			URLExpiry: getEnvAsDuration("STORAGE_URL_EXPIRY", 15*time.Minute),
		},

		SessionIdleTTL:   getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
		TaxonomyCacheTTL: getEnvAsDuration("TAXONOMY_CACHE_TTL", 24*time.Hour),
		CleanupSpec:      getEnv("SESSION_CLEANUP_SPEC", "0 */10 * * * *"),
	}
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return result
}
