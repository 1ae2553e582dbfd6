package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// Hierarchy root: a directory, a base URL or a bucket prefix.
	QuizRoot     string
	QuizRootKind string // fs|http|minio

	KVDriver string // memory|file|sqlite|postgres|redis|mongo
	KVDSN    string
	KVFile   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	BlobDriver   string // fs|minio
	BlobBasePath string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	FetchTimeout    time.Duration
	LoadConcurrency int
	SessionTTL      time.Duration

	EnableJournal bool
	EnableMetrics bool

	CORSOrigins []string
}

// Load reads .env (when present) and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		QuizRoot:        envOr("QUIZ_ROOT", "./quiz"),
		QuizRootKind:    envOr("QUIZ_ROOT_KIND", "fs"),
		KVDriver:        envOr("KV_DRIVER", "file"),
		KVDSN:           envOr("KV_DSN", ""),
		KVFile:          envOr("KV_FILE", "./data/state.json"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		MongoURI:        envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         envOr("MONGO_DB", "historieq"),
		BlobDriver:      envOr("BLOB_DRIVER", "fs"),
		BlobBasePath:    envOr("BLOB_BASE_PATH", "./export"),
		MinioEndpoint:   envOr("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:     envOr("MINIO_BUCKET", "quiz"),
		MinioUseSSL:     envBool("MINIO_USE_SSL", false),
		FetchTimeout:    time.Duration(envInt("FETCH_TIMEOUT_SEC", 10)) * time.Second,
		LoadConcurrency: envInt("LOAD_CONCURRENCY", 1),
		SessionTTL:      time.Duration(envInt("SESSION_TTL_MIN", 30)) * time.Minute,
		EnableJournal:   envBool("ENABLE_JOURNAL", false),
		EnableMetrics:   envBool("ENABLE_METRICS", true),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
