package handler

import (
	"chat_relay/internal/config"
	"chat_relay/internal/service"
	"chat_relay/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	Upload    *UploadHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	cfg *config.Config,
	registry *Registry,
	mailbox MailboxBroker,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Chat:      NewChatHandler(services.Chat, log),
		Upload:    NewUploadHandler(services.Upload, log),
		WebSocket: NewWebSocketHandler(services.Relay, mailbox, registry, cfg.Broker, log),
	}
}
