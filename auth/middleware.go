package auth

import (
	"context"
	"strings"
	"time"

	"bloc-editor/internal/errors"
	"bloc-editor/redis"

	"github.com/gin-gonic/gin"
)

func revokedKey(token string) string {
	return "revoked:" + token
}

// Revoke rejects token until it would have expired anyway. Without redis
// revocation is not available.
func Revoke(ctx context.Context, token string) error {
	if redis.RedisClient == nil {
		return nil
	}
	return redis.RedisClient.Set(ctx, revokedKey(token), 1, tokenTTL).Err()
}

func AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		var token string
		tokenQuery := ctx.Query("token")

		if authHeader != "" {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if tokenQuery != "" {
			token = tokenQuery
		} else {
			ctx.Error(errors.Unauthorized("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		// verify token
		parsed, err := VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		subject, err := GetSubject(parsed)
		if err != nil {
			ctx.Error(errors.Unauthorized("Invalid token!", err))
			ctx.Abort()
			return
		}

		// check on redis
		if redis.RedisClient != nil {
			c, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
			exists, err := redis.RedisClient.Exists(c, revokedKey(token)).Result()
			cancel()
			if err == nil && exists > 0 {
				ctx.Error(errors.Unauthorized("Token revoked!", nil))
				ctx.Abort()
				return
			}
		}

		ctx.Set("subject", subject)
		ctx.Set("jwt_token", token)
		ctx.Next()
	}
}
