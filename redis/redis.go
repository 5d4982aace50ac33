package redis

import (
	"context"

	"bloc-editor/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var Ctx = context.Background()
var RedisClient *redis.Client

// InitRedis connects to REDIS_ADDRESS. When redis is unreachable the client
// stays nil and caching is disabled.
func InitRedis(log zerolog.Logger) {
	RedisClient = redis.NewClient(&redis.Options{
		Addr: config.AppConfig.RedisAddress,
	})
	_, err := RedisClient.Ping(Ctx).Result()
	if err != nil {
		log.Warn().Err(err).Msg("redis not available, running without redis")
		RedisClient = nil
		return
	}

	log.Info().Msg("redis connected successfully")
}
