package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	WhatsApp WhatsAppConfig
	Keys     APIKeys
	Media    MediaConfig
	Data     DataConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port        string
	Environment string
	LogFilePath string
	NatsURL     string
	RedisURL    string
}

type DatabaseConfig struct {
	Connection string
}

type WhatsAppConfig struct {
	GraphAPIURL string
	AccessToken string
	AppSecret   string
	VerifyToken string
}

type APIKeys struct {
	GoogleGemini string
	Weather      string
}

type MediaConfig struct {
	Bucket    string
	Region    string
	KeyPrefix string
}

type DataConfig struct {
	Dir          string // crops.json, varieties file and audit dumps live under here
	KnowledgeDir string // per-crop folders of .txt passages for the indexer
	AuditTopic   string
}

type PipelineConfig struct {
	RequestBudget   time.Duration
	SessionTTL      time.Duration
	WorkerPoolSize  int
	RetrievalTopK   int
	MenuDelay       time.Duration
	EmbeddingModel  string
	GenerationModel string
}

// Keys the process cannot meaningfully run without. Missing ones are logged,
// not fatal, so local development with a subset of collaborators still works.
var requiredEnv = []string{
	"ACCESS_TOKEN",
	"APP_SECRET",
	"VERIFY_TOKEN",
	"REDIS_URL",
	"DB_CONNECTION_STRING",
	"GOOGLE_GEMINI_API_KEY",
	"WEATHER_API_KEY",
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	for _, key := range requiredEnv {
		if os.Getenv(key) == "" {
			log.Printf("WARNING: Missing the environment variable %s", key)
		}
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8080"),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/app.log"),
			NatsURL:     getEnv("NATS_URL", ""),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		WhatsApp: WhatsAppConfig{
			GraphAPIURL: getEnv("GRAPH_API_URL", "https://graph.facebook.com/v24.0"),
			AccessToken: getEnv("ACCESS_TOKEN", ""),
			AppSecret:   getEnv("APP_SECRET", ""),
			VerifyToken: getEnv("VERIFY_TOKEN", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Weather:      getEnv("WEATHER_API_KEY", ""),
		},
		Media: MediaConfig{
			Bucket:    getEnv("MEDIA_BUCKET", ""),
			Region:    getEnv("MEDIA_BUCKET_REGION", "ap-south-1"),
			KeyPrefix: getEnv("MEDIA_KEY_PREFIX", "uploads"),
		},
		Data: DataConfig{
			Dir:          dataDir,
			KnowledgeDir: getEnv("RAG_KB_DIR", filepath.Join(dataDir, "knowledge_base")),
			AuditTopic:   getEnv("AUDIT_TOPIC_NAME", "SESSION_AUDIT"),
		},
		Pipeline: PipelineConfig{
			RequestBudget:   getEnvAsSeconds("REQUEST_BUDGET_SECONDS", 90),
			SessionTTL:      getEnvAsSeconds("SESSION_TTL_SECONDS", 300),
			WorkerPoolSize:  getEnvAsInt("LLM_WORKER_POOL_SIZE", 4),
			RetrievalTopK:   getEnvAsInt("RAG_TOP_K", 3),
			MenuDelay:       getEnvAsSeconds("CONFIRM_MENU_DELAY_SECONDS", 4),
			EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			GenerationModel: getEnv("GENERATION_MODEL", "gemini-1.5-flash"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}
