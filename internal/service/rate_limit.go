package service

import (
	"context"
	"time"

	"chat_relay/internal/repository"
	"chat_relay/pkg/logger"
)

type RateLimitService interface {
	Allow(ctx context.Context, key string) (bool, int64, error)
	Limit() int
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	limit         int
	window        time.Duration
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		limit:         100,
		window:        time.Minute,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string) (bool, int64, error) {
	return s.rateLimitRepo.Allow(ctx, "ratelimit:"+key, s.limit, s.window)
}

func (s *rateLimitService) Limit() int {
	return s.limit
}
