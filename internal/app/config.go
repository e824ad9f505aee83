package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"example.com/shopcart/internal/service"
	"example.com/shopcart/internal/store"
)

type SystemConfig struct {
	Env  string `yaml:"env"`
	Port string `yaml:"port"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode"` // development | production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type JobsConfig struct {
	PurgeSchedule string `yaml:"purge_schedule"`
}

// OrderConfig.NodeID is the snowflake node of this process. Negative means
// unset, which is only accepted outside prod.
type OrderConfig struct {
	NodeID int64 `yaml:"node_id"`
}

type Config struct {
	System   SystemConfig       `yaml:"system"`
	Database store.Config       `yaml:"database"`
	Auth     service.AuthConfig `yaml:"auth"`
	Logger   LoggerConfig       `yaml:"logger"`
	Redis    RedisConfig        `yaml:"redis"`
	Kafka    KafkaConfig        `yaml:"kafka"`
	SMTP     service.SMTPConfig `yaml:"smtp"`
	Jobs     JobsConfig         `yaml:"jobs"`
	Order    OrderConfig        `yaml:"order"`
}

func (c Config) IsProd() bool { return c.System.Env == "prod" }

func defaultConfig() Config {
	return Config{
		System:   SystemConfig{Env: "dev", Port: "8080"},
		Database: store.Config{Driver: "postgres", MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLife: 30 * time.Minute},
		Auth:     service.AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		Logger:   LoggerConfig{Mode: "development", Filename: "logs/shopcart.log"},
		Redis:    RedisConfig{TTL: 5 * time.Minute},
		Kafka:    KafkaConfig{Topic: service.DefaultOrderTopic},
		SMTP:     service.SMTPConfig{Port: 25, From: "no-reply@shopcart.local"},
		Jobs:     JobsConfig{PurgeSchedule: "@every 10m"},
		Order:    OrderConfig{NodeID: -1},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by APP_CONFIG, then the environment. .env is loaded first so it may
// name APP_CONFIG too; variables already set in the process win over it.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	if path := os.Getenv("APP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Auth.JWTSecret == "" {
		if cfg.IsProd() {
			return cfg, errors.New("JWT_SECRET is required in prod")
		}
		cfg.Auth.JWTSecret = "dev-secret"
	}
	if cfg.Order.NodeID < 0 {
		// replicas sharing node 0 can mint the same order id in one millisecond
		if cfg.IsProd() {
			return cfg, errors.New("ORDER_NODE_ID is required in prod")
		}
		cfg.Order.NodeID = 0
	}
	return cfg, nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func applyEnv(cfg *Config) error {
	cfg.System.Env = getEnv("APP_ENV", cfg.System.Env)
	cfg.System.Port = getEnv("APP_PORT", cfg.System.Port)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Logger.Mode = getEnv("LOG_MODE", cfg.Logger.Mode)
	cfg.Logger.Filename = getEnv("LOG_FILE", cfg.Logger.Filename)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Username = getEnv("SMTP_USER", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASS", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	cfg.Jobs.PurgeSchedule = getEnv("PURGE_SCHEDULE", cfg.Jobs.PurgeSchedule)

	var err error
	parse := func(key string, fn func(string) error) {
		if v := os.Getenv(key); v != "" && err == nil {
			if e := fn(v); e != nil {
				err = errors.Wrapf(e, "env %s", key)
			}
		}
	}
	parse("DB_MAX_OPEN_CONNS", func(v string) (e error) { cfg.Database.MaxOpenConns, e = cast.ToIntE(v); return })
	parse("DB_DEBUG", func(v string) (e error) { cfg.Database.Debug, e = cast.ToBoolE(v); return })
	parse("TOKEN_TTL", func(v string) (e error) { cfg.Auth.TokenTTL, e = cast.ToDurationE(v); return })
	parse("BCRYPT_COST", func(v string) (e error) { cfg.Auth.BcryptCost, e = cast.ToIntE(v); return })
	parse("MAX_CONCURRENT_HASHES", func(v string) (e error) { cfg.Auth.MaxConcurrentHashes, e = cast.ToInt64E(v); return })
	parse("LOG_FILE_ENABLE", func(v string) (e error) { cfg.Logger.FileEnable, e = cast.ToBoolE(v); return })
	parse("REDIS_DB", func(v string) (e error) { cfg.Redis.DB, e = cast.ToIntE(v); return })
	parse("REDIS_TTL", func(v string) (e error) { cfg.Redis.TTL, e = cast.ToDurationE(v); return })
	parse("SMTP_WORKERS", func(v string) (e error) { cfg.SMTP.Workers, e = cast.ToIntE(v); return })
	parse("SMTP_PORT", func(v string) (e error) { cfg.SMTP.Port, e = cast.ToIntE(v); return })
	parse("ORDER_NODE_ID", func(v string) (e error) { cfg.Order.NodeID, e = cast.ToInt64E(v); return })
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
