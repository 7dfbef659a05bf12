package config

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	DatabaseHost     string `envconfig:"DATABASE_HOST"     default:"db"`
	DatabasePort     string `envconfig:"DATABASE_PORT"     default:"5432"`
	DatabaseUser     string `envconfig:"DATABASE_USER"     default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:"password"`
	DatabaseName     string `envconfig:"DATABASE_NAME"     default:"cryptotracker"`
	RedisAddr        string `envconfig:"REDIS_ADDR"        default:"redis:6379"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"    default:""`
	RedisDB          int    `envconfig:"REDIS_DB"          default:"0"`
	ServerPort       string `envconfig:"SERVER_PORT"       default:"8080"`
	JWTSecret        string `envconfig:"JWT_SECRET"        default:"secret"`
	FeedBaseURL      string `envconfig:"FEED_BASE_URL"     default:"https://api.coingecko.com/api/v3"`
	FeedTopN         int    `envconfig:"FEED_TOP_N"        default:"10"`
}

func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfigOrPanic() Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Ошибка загрузки конфигурации: %v", err))
	}
	return cfg
}

func (c Config) PostgresConnStr() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
	)
}

func InitDB(ctx context.Context, cfg Config) *sql.DB {
	db, err := sql.Open("postgres", cfg.PostgresConnStr())
	if err != nil {
		panic(fmt.Sprintf("Ошибка подключения к БД: %v", err))
	}
	if err = db.PingContext(ctx); err != nil {
		panic(fmt.Sprintf("Ошибка пинга БД: %v", err))
	}
	return db
}

func InitRedis(ctx context.Context, cfg Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Ошибка пинга Redis: %v", err))
	}
	return rdb
}
