package repository

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"chat_relay/pkg/logger"
)

type Repositories struct {
	Chat      ChatRepository
	RateLimit RateLimitRepository
}

func NewRepositories(db *mongo.Database, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Chat:      NewChatRepository(db, log),
		RateLimit: NewRateLimitRepository(redis, log),
	}
}
