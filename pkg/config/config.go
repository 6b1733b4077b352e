package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StoreDriverGitHub = "github"
	StoreDriverLocal  = "local"
)

// Snapshot read strategies.
const (
	ReadStrategyAPI   = "api"
	ReadStrategyRaw   = "raw"
	ReadStrategyProxy = "proxy"
)

// Commit modes.
const (
	SyncModeDirect = "direct"
	SyncModeProxy  = "proxy"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	Timezone  string

	GitHub  GitHubConfig
	Store   StoreConfig
	Dataset DatasetConfig
	Sync    SyncConfig
	Redis   RedisConfig
	Cache   CacheConfig
	JWT     JWTConfig
	Admin   AdminConfig
	CORS    CORSConfig
	Log     LogConfig
	Cleanup CleanupConfig
}

// GitHubConfig holds the repository coordinates and the write credential.
type GitHubConfig struct {
	Token      string
	Owner      string
	Repo       string
	Branch     string
	APIBaseURL string
	RawBaseURL string
	Timeout    time.Duration
}

// Configured reports whether owner, repo and token are all present.
func (c GitHubConfig) Configured() bool {
	return c.Token != "" && c.Owner != "" && c.Repo != ""
}

type StoreConfig struct {
	Driver   string
	LocalDir string
}

// DatasetConfig locates the JSON document and the media directory inside the store.
type DatasetConfig struct {
	Path                string
	MediaDir            string
	MediaPublicPrefix   string
	MediaMaxBytes       int64
	ReadStrategy        string
	MaxAdvertisements   int
	DeleteMediaOnRemove bool
}

// SyncConfig selects how commits reach the store.
type SyncConfig struct {
	Mode       string
	ProxyURL   string
	ProxyToken string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs the public snapshot cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig is the single administrator credential.
type AdminConfig struct {
	Username string
	Password string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CleanupConfig sizes the orphaned-media cleanup queue.
type CleanupConfig struct {
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Timezone = v.GetString("TIMEZONE")

	cfg.GitHub = GitHubConfig{
		Token:      v.GetString("GITHUB_TOKEN"),
		Owner:      v.GetString("GITHUB_OWNER"),
		Repo:       v.GetString("GITHUB_REPO"),
		Branch:     v.GetString("GITHUB_BRANCH"),
		APIBaseURL: strings.TrimRight(v.GetString("GITHUB_API_URL"), "/"),
		RawBaseURL: strings.TrimRight(v.GetString("GITHUB_RAW_URL"), "/"),
		Timeout:    parseDuration(v.GetString("GITHUB_TIMEOUT"), 15*time.Second),
	}

	cfg.Store = StoreConfig{
		Driver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		LocalDir: v.GetString("LOCAL_STORE_DIR"),
	}

	maxMedia := v.GetInt64("MEDIA_MAX_BYTES")
	if maxMedia <= 0 {
		maxMedia = 50 * 1024 * 1024
	}
	cfg.Dataset = DatasetConfig{
		Path:                strings.Trim(v.GetString("DATASET_PATH"), "/"),
		MediaDir:            strings.Trim(v.GetString("MEDIA_DIR"), "/"),
		MediaPublicPrefix:   strings.TrimRight(v.GetString("MEDIA_PUBLIC_PREFIX"), "/"),
		MediaMaxBytes:       maxMedia,
		ReadStrategy:        strings.ToLower(v.GetString("READ_STRATEGY")),
		MaxAdvertisements:   v.GetInt("AD_MAX_COUNT"),
		DeleteMediaOnRemove: v.GetBool("DELETE_MEDIA_ON_REMOVE"),
	}

	cfg.Sync = SyncConfig{
		Mode:       strings.ToLower(v.GetString("SYNC_MODE")),
		ProxyURL:   strings.TrimRight(v.GetString("PROXY_URL"), "/"),
		ProxyToken: v.GetString("PROXY_TOKEN"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 8*time.Hour),
	}

	cfg.Admin = AdminConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cleanup = CleanupConfig{
		Workers: v.GetInt("CLEANUP_WORKERS"),
		Retries: v.GetInt("CLEANUP_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")

	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_OWNER", "")
	v.SetDefault("GITHUB_REPO", "")
	v.SetDefault("GITHUB_BRANCH", "")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("GITHUB_RAW_URL", "https://raw.githubusercontent.com")
	v.SetDefault("GITHUB_TIMEOUT", "15s")

	v.SetDefault("STORE_DRIVER", StoreDriverGitHub)
	v.SetDefault("LOCAL_STORE_DIR", "./data")

	v.SetDefault("DATASET_PATH", "public/db.json")
	v.SetDefault("MEDIA_DIR", "public/media")
	v.SetDefault("MEDIA_PUBLIC_PREFIX", "./media")
	v.SetDefault("MEDIA_MAX_BYTES", 50*1024*1024)
	v.SetDefault("READ_STRATEGY", ReadStrategyAPI)
	v.SetDefault("AD_MAX_COUNT", 4)
	v.SetDefault("DELETE_MEDIA_ON_REMOVE", true)

	v.SetDefault("SYNC_MODE", SyncModeDirect)
	v.SetDefault("PROXY_URL", "")
	v.SetDefault("PROXY_TOKEN", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "1m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "8h")

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "1234")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLEANUP_WORKERS", 1)
	v.SetDefault("CLEANUP_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
