package service

import (
	"chat_relay/internal/config"
	"chat_relay/internal/repository"
	"chat_relay/pkg/logger"
)

type Services struct {
	Chat         ChatService
	Relay        RelayService
	Notification NotificationService
	Upload       UploadService
	RateLimit    RateLimitService
}

func NewServices(
	repos *repository.Repositories,
	cfg *config.Config,
	publisher Publisher,
	presence Presence,
	s3Client S3API,
	log logger.Logger,
) *Services {
	notification := NewNotificationService(cfg.Notification, log)

	return &Services{
		Chat:         NewChatService(repos.Chat, log),
		Relay:        NewRelayService(repos.Chat, publisher, notification, presence, cfg.Relay.TimeOffset, log),
		Notification: notification,
		Upload:       NewUploadService(s3Client, cfg.Storage, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
