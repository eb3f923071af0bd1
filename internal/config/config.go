package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Export   ExportConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// EngineConfig holds the tunables of the classification and forecasting
// engine. The defaults match the calibrated production values; override
// them only with a reason.
type EngineConfig struct {
	// WindowMonths is the length of the trailing demand window.
	WindowMonths int
	// MinDataPoints is the minimum number of nonzero months required
	// before anything other than the fallback forecaster runs.
	MinDataPoints int
	// ADIThreshold and CV2Threshold drive the Syntetos-Boylan routing.
	ADIThreshold float64
	CV2Threshold float64
	// Alpha/Beta are the SBA smoothing constants for demand size and
	// inter-demand interval.
	Alpha float64
	Beta  float64
	// WorkingDaysPerMonth converts monthly figures to daily ones.
	WorkingDaysPerMonth float64
	// DefaultLeadTimeDays applies when the item master has no lead time.
	DefaultLeadTimeDays int
	// WorkerCount bounds the per-item forecast parallelism within a run.
	WorkerCount int
	// CronSpec schedules the automatic monthly run; empty disables it.
	CronSpec string
}

type ExportConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "sparecast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 60)
		viper.SetDefault("ENGINE_WINDOW_MONTHS", 12)
		viper.SetDefault("ENGINE_MIN_DATA_POINTS", 3)
		viper.SetDefault("ENGINE_ADI_THRESHOLD", 1.32)
		viper.SetDefault("ENGINE_CV2_THRESHOLD", 0.49)
		viper.SetDefault("ENGINE_SBA_ALPHA", 0.15)
		viper.SetDefault("ENGINE_SBA_BETA", 0.10)
		viper.SetDefault("ENGINE_WORKING_DAYS", 22.0)
		viper.SetDefault("ENGINE_DEFAULT_LEAD_TIME_DAYS", 30)
		viper.SetDefault("ENGINE_WORKER_COUNT", 4)
		// First day of the month, 01:00.
		viper.SetDefault("ENGINE_CRON_SPEC", "0 1 1 * *")
		viper.SetDefault("EXPORT_ENABLED", false)
		viper.SetDefault("EXPORT_ENDPOINT", "")
		viper.SetDefault("EXPORT_ACCESS_KEY", "")
		viper.SetDefault("EXPORT_SECRET_KEY", "")
		viper.SetDefault("EXPORT_BUCKET", "sparecast-runs")
		viper.SetDefault("EXPORT_USE_SSL", true)

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				WindowMonths:        viper.GetInt("ENGINE_WINDOW_MONTHS"),
				MinDataPoints:       viper.GetInt("ENGINE_MIN_DATA_POINTS"),
				ADIThreshold:        viper.GetFloat64("ENGINE_ADI_THRESHOLD"),
				CV2Threshold:        viper.GetFloat64("ENGINE_CV2_THRESHOLD"),
				Alpha:               viper.GetFloat64("ENGINE_SBA_ALPHA"),
				Beta:                viper.GetFloat64("ENGINE_SBA_BETA"),
				WorkingDaysPerMonth: viper.GetFloat64("ENGINE_WORKING_DAYS"),
				DefaultLeadTimeDays: viper.GetInt("ENGINE_DEFAULT_LEAD_TIME_DAYS"),
				WorkerCount:         viper.GetInt("ENGINE_WORKER_COUNT"),
				CronSpec:            viper.GetString("ENGINE_CRON_SPEC"),
			},
			Export: ExportConfig{
				Enabled:   viper.GetBool("EXPORT_ENABLED"),
				Endpoint:  viper.GetString("EXPORT_ENDPOINT"),
				AccessKey: viper.GetString("EXPORT_ACCESS_KEY"),
				SecretKey: viper.GetString("EXPORT_SECRET_KEY"),
				Bucket:    viper.GetString("EXPORT_BUCKET"),
				UseSSL:    viper.GetBool("EXPORT_USE_SSL"),
			},
		}
	})

	return instance
}
