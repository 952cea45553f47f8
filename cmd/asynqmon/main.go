package main

import (
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/joho/godotenv"

	"github.com/storefront-dev/storefront/internal/logger"
)

// The dashboard only needs Redis, so it reads its few settings directly
// instead of going through config.Load and its required secrets.
func main() {
	_ = godotenv.Load(".env")

	logger.Init(getenv("LOG_LEVEL", "info"), getenv("LOG_FORMAT", "json"))
	log := logger.GetLogger()

	redisAddr := getenv("REDIS_ADDRESS", "localhost:6379")
	port := getenv("ASYNQMON_PORT", "8090")

	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/asynqmon",
		RedisConnOpt: asynq.RedisClientOpt{Addr: redisAddr},
	})
	defer h.Close()

	log.Info().Str("port", port).Str("redis", redisAddr).Msg("Starting Asynqmon")
	if err := http.ListenAndServe(":"+port, h); err != nil {
		log.Fatal().Err(err).Msg("Asynqmon failed")
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
