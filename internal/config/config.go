package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Cache         CacheConfig
	Storage       StorageConfig
	Drive         DriveConfig
	Replenishment ReplenishmentConfig
	Schema        SchemaConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
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

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig points at an S3-compatible bucket holding source files and
// receiving exports.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
}

// ReplenishmentConfig carries the decision thresholds and key normalization
// rules.
type ReplenishmentConfig struct {
	TargetCoverDays     float64
	SalesWindowDays     float64
	MinWarehouseStock   float64
	MaxReturnPct        float64
	EmptyFCLabel        string
	KeyByChannel        bool
	FBAChannel          string
	SellableDisposition string
	MappingLocation     string
	MappingTable        string
}

// SchemaConfig lists the required headers per source.
type SchemaConfig struct {
	Sale    []string
	FBA     []string
	Uniware []string
	Mapping []string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = FromViper(v)

		// Ensure upload and data directories exist
		ensureDir(instance.App.UploadDir)
		ensureDir(instance.App.DataDir)
	})

	return instance
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_DATA_DIR", "./data/output")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("REPLENISH_TARGET_COVER_DAYS", 45)
	v.SetDefault("REPLENISH_SALES_WINDOW_DAYS", 30)
	v.SetDefault("REPLENISH_MIN_WAREHOUSE_STOCK", 45)
	v.SetDefault("REPLENISH_MAX_RETURN_PCT", 30)
	v.SetDefault("REPLENISH_EMPTY_FC_LABEL", "")
	v.SetDefault("REPLENISH_KEY_BY_CHANNEL", false)
	v.SetDefault("REPLENISH_FBA_CHANNEL", "AFN")
	v.SetDefault("REPLENISH_SELLABLE_DISPOSITION", "SELLABLE")
	v.SetDefault("SKU_MAPPING_LOCATION", "./data/sku_mapping.csv")
	v.SetDefault("SKU_MAPPING_TABLE", "sku_mappings")
	v.SetDefault("SCHEMA_SALE", "Transaction Type,Sku,Quantity,Warehouse Id")
	v.SetDefault("SCHEMA_FBA", "Date,MSKU,Disposition,Ending Warehouse Balance,Location")
	v.SetDefault("SCHEMA_UNIWARE", "Sku Code,Total Inventory")
	v.SetDefault("SCHEMA_MAPPING", "Amazon Seller SKU,Uniware SKU")
}

// FromViper builds a Config from the values held by v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			UploadDir: v.GetString("APP_UPLOAD_DIR"),
			DataDir:   v.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
		Replenishment: ReplenishmentConfig{
			TargetCoverDays:     v.GetFloat64("REPLENISH_TARGET_COVER_DAYS"),
			SalesWindowDays:     v.GetFloat64("REPLENISH_SALES_WINDOW_DAYS"),
			MinWarehouseStock:   v.GetFloat64("REPLENISH_MIN_WAREHOUSE_STOCK"),
			MaxReturnPct:        v.GetFloat64("REPLENISH_MAX_RETURN_PCT"),
			EmptyFCLabel:        v.GetString("REPLENISH_EMPTY_FC_LABEL"),
			KeyByChannel:        v.GetBool("REPLENISH_KEY_BY_CHANNEL"),
			FBAChannel:          v.GetString("REPLENISH_FBA_CHANNEL"),
			SellableDisposition: v.GetString("REPLENISH_SELLABLE_DISPOSITION"),
			MappingLocation:     v.GetString("SKU_MAPPING_LOCATION"),
			MappingTable:        v.GetString("SKU_MAPPING_TABLE"),
		},
		Schema: SchemaConfig{
			Sale:    splitList(v.GetString("SCHEMA_SALE")),
			FBA:     splitList(v.GetString("SCHEMA_FBA")),
			Uniware: splitList(v.GetString("SCHEMA_UNIWARE")),
			Mapping: splitList(v.GetString("SCHEMA_MAPPING")),
		},
	}
}

// splitList turns a comma separated env value into trimmed, non-empty parts.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
