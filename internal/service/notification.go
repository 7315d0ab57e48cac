package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"chat_relay/internal/config"
	"chat_relay/internal/domain"
	"chat_relay/pkg/logger"
)

// NotificationService posts best-effort push alerts for offline recipients.
// Calls never block the relay and failures are never surfaced to the
// sender: a dropped notification only delays awareness, the message itself
// is already persisted.
type NotificationService interface {
	Notify(payload domain.NotificationPayload)
	Close()
}

type notificationService struct {
	url    string
	client *http.Client
	log    logger.Logger

	queue     chan domain.NotificationPayload
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// queueDepth bounds how many alerts may wait behind a slow webhook before
// new ones are dropped.
const queueDepth = 256

func NewNotificationService(cfg config.NotificationConfig, log logger.Logger) NotificationService {
	s := &notificationService{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		queue:  make(chan domain.NotificationPayload, queueDepth),
	}

	workers := cfg.PoolSize
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

func (s *notificationService) Notify(payload domain.NotificationPayload) {
	if s.url == "" {
		s.log.Debug("Notification URL not configured, dropping alert", "receiverUserId", payload.ReceiverUserID)
		return
	}

	select {
	case s.queue <- payload:
	default:
		s.log.Warn("Notification queue full, dropping alert", "receiverUserId", payload.ReceiverUserID)
	}
}

func (s *notificationService) worker() {
	defer s.wg.Done()
	for payload := range s.queue {
		s.send(payload)
	}
}

func (s *notificationService) send(payload domain.NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("Failed to marshal notification", "error", err)
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Error("Failed to send notification", "receiverUserId", payload.ReceiverUserID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Error("Notification rejected", "receiverUserId", payload.ReceiverUserID, "status", resp.StatusCode)
		return
	}

	s.log.Debug("Notification sent", "receiverUserId", payload.ReceiverUserID)
}

// Close stops accepting alerts and waits for in-flight sends to finish.
func (s *notificationService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}
