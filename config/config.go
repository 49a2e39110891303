package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 存储驱动
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config 应用配置
type Config struct {
	Port     int
	MongoURI string
	MongoDB  string
	JWTKey   string
	Debug    bool

	// StoreDriver mongo 或 memory
	StoreDriver      string
	AutoTransferCron string
	ConflictRetries  int
	CORSOrigins      []string
}

// LoadConfig 从环境变量加载配置, 当前目录存在 .env 时先加载
func LoadConfig() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() *Config {
	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo))
	if driver != StoreDriverMemory {
		driver = StoreDriverMongo
	}

	return &Config{
		Port:             getEnvInt("PORT", 8080),
		MongoURI:         getEnv("MONGO_URI", "mongodb://127.0.0.1:27017/?replicaSet=rs0"),
		MongoDB:          getEnv("MONGO_DB", "crm"),
		JWTKey:           getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为安全密钥
		Debug:            getEnv("GIN_MODE", "debug") == "debug",
		StoreDriver:      driver,
		AutoTransferCron: getEnv("AUTO_TRANSFER_CRON", "0 0 2 * * *"),
		ConflictRetries:  getEnvInt("CONFLICT_RETRIES", 1),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
