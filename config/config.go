// Package config reads process configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"

	KVSQLite = "sqlite"
	KVRedis  = "redis"

	PhotosFS = "fs"
	PhotosS3 = "s3"
)

type Config struct {
	Backend  string // where records live: local kv or remote Mongo
	KVDriver string
	DataPath string // SQLite file of the local kv

	PostgresDSN  string // remote account registry; empty keeps accounts in kv
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	RedisPrefix  string
	StoreTimeout time.Duration

	Addr      string
	JWTSecret string
	JWTTTL    time.Duration
	CacheTTL  time.Duration

	PhotoDriver string
	PhotoDir    string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string

	GlobalRPS   float64
	GlobalBurst int
	AuthRPS     float64
	AuthBurst   int
	UserRPS     float64
	UserBurst   int
	DailyQuota  int

	SeedName     string
	SeedEmail    string
	SeedPassword string

	LogLevel  string
	LogPretty bool
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

type parser struct{ errs []string }

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (p *parser) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(getEnv(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	p.errs = append(p.errs, fmt.Sprintf("%s: %q is not one of %s", key, v, strings.Join(allowed, "|")))
	return def
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		Backend:  p.oneOf("CHECKIN_BACKEND", BackendLocal, BackendLocal, BackendRemote),
		KVDriver: p.oneOf("CHECKIN_KV_DRIVER", KVSQLite, KVSQLite, KVRedis),
		DataPath: getEnv("CHECKIN_DATA_PATH", "checkin.db"),

		PostgresDSN:  getEnv("PG_DSN", ""),
		MongoURI:     getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:      getEnv("MONGO_DB", "checkin"),
		RedisAddr:    getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPrefix:  getEnv("REDIS_PREFIX", "checkin:"),
		StoreTimeout: p.duration("CHECKIN_STORE_TIMEOUT", 5*time.Second),

		Addr:      getEnv("CHECKIN_ADDR", ":8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    p.duration("JWT_TTL", 2*time.Hour),
		CacheTTL:  p.duration("CHECKIN_CACHE_TTL", 30*time.Second),

		PhotoDriver: p.oneOf("CHECKIN_PHOTO_DRIVER", PhotosFS, PhotosFS, PhotosS3),
		PhotoDir:    getEnv("CHECKIN_PHOTO_DIR", "photos"),
		S3Bucket:    getEnv("CHECKIN_S3_BUCKET", ""),
		S3Region:    getEnv("CHECKIN_S3_REGION", "us-east-1"),
		S3Endpoint:  getEnv("CHECKIN_S3_ENDPOINT", ""),
		S3PathStyle: p.bool("CHECKIN_S3_PATH_STYLE", false),
		S3AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		GlobalRPS:   p.float("CHECKIN_RATE_RPS", 20),
		GlobalBurst: p.int("CHECKIN_RATE_BURST", 40),
		AuthRPS:     p.float("CHECKIN_AUTH_RPS", 0.5),
		AuthBurst:   p.int("CHECKIN_AUTH_BURST", 2),
		UserRPS:     p.float("CHECKIN_USER_RPS", 5),
		UserBurst:   p.int("CHECKIN_USER_BURST", 10),
		DailyQuota:  p.int("CHECKIN_DAILY_QUOTA", 2000),

		SeedName:     getEnv("CHECKIN_SEED_NAME", "Test User"),
		SeedEmail:    getEnv("CHECKIN_SEED_EMAIL", ""),
		SeedPassword: getEnv("CHECKIN_SEED_PASSWORD", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: p.bool("LOG_PRETTY", false),
	}

	if cfg.PhotoDriver == PhotosS3 && cfg.S3Bucket == "" {
		p.errs = append(p.errs, "CHECKIN_S3_BUCKET: required for the s3 photo driver")
	}
	if cfg.StoreTimeout <= 0 {
		p.errs = append(p.errs, "CHECKIN_STORE_TIMEOUT: must be positive")
	}
	if len(p.errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	return cfg, nil
}

// Seeded reports whether a demo account should be created at startup.
func (c Config) Seeded() bool { return c.SeedEmail != "" && c.SeedPassword != "" }
