package config

import (
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

var (
	redisOnce   sync.Once
	redisConfig *RedisConfig
)

type RedisConfig struct {
	Addr string
	DB   int
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, falling back to environment variables")
		}

		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}

		db := 0
		if v := os.Getenv("REDIS_DB"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				db = parsed
			}
		}

		redisConfig = &RedisConfig{
			Addr: addr,
			DB:   db,
		}
	})
	return redisConfig
}
