package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"
)

type Config struct {
	AppEnv  string
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	// Empty RedisAddr runs the queue, events and caches in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RecommendationQueueName      string
	RecommendationLockTTLSeconds int

	MaxClassesPerTeacher int
	AnalyticsCacheTTL    time.Duration
	PasswordResetTTL     time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	SendgridAPIKey  string
	MailFrom        string
	MailFromName    string
	FrontendBaseURL string

	B2KeyID  string
	B2AppKey string
	B2Bucket string

	RollbarToken string

	AdminEmail    string
	AdminPassword string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		AppEnv:                       getEnv("APP_ENV", "development"),
		APIPort:                      getEnv("API_PORT", "8080"),
		JWTKey:                       []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                       time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBDriver:                     getEnv("DB_DRIVER", DBDriverPostgres),
		DBHost:                       getEnv("DB_HOST", "localhost"),
		DBPort:                       getEnv("DB_PORT", "5432"),
		DBUser:                       getEnv("DB_USER", "user"),
		DBPassword:                   getEnv("DB_PASSWORD", "password"),
		DBName:                       getEnv("DB_NAME", "iquizu_db"),
		DBSslMode:                    getEnv("DB_SSLMODE", "disable"),
		RedisAddr:                    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:                getEnv("REDIS_PASSWORD", ""),
		RedisDB:                      getEnvAsInt("REDIS_DB", 0),
		RecommendationQueueName:      getEnv("RECOMMENDATION_QUEUE_NAME", "recommendation_jobs_queue"),
		RecommendationLockTTLSeconds: getEnvAsInt("RECOMMENDATION_LOCK_TTL_SECONDS", 120),
		MaxClassesPerTeacher:         getEnvAsInt("MAX_CLASSES_PER_TEACHER", 8),
		AnalyticsCacheTTL:            time.Duration(getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 300)) * time.Second,
		PasswordResetTTL:             time.Duration(getEnvAsInt("PASSWORD_RESET_TTL_MINUTES", 60)) * time.Minute,
		GeminiAPIKey:                 getEnv("GEMINI_API_KEY", ""),
		GeminiModel:                  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:                getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SendgridAPIKey:               getEnv("SENDGRID_API_KEY", ""),
		MailFrom:                     getEnv("MAIL_FROM", "no-reply@iquizu.app"),
		MailFromName:                 getEnv("MAIL_FROM_NAME", "iQuizU"),
		FrontendBaseURL:              getEnv("FRONTEND_BASE_URL", "http://localhost:5173"),
		B2KeyID:                      getEnv("B2_KEY_ID", ""),
		B2AppKey:                     getEnv("B2_APP_KEY", ""),
		B2Bucket:                     getEnv("B2_BUCKET", ""),
		RollbarToken:                 getEnv("ROLLBAR_TOKEN", ""),
		AdminEmail:                   getEnv("ADMIN_EMAIL", ""),
		AdminPassword:                getEnv("ADMIN_PASSWORD", ""),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
