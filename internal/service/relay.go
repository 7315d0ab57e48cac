package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat_relay/internal/domain"
	"chat_relay/internal/repository"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

// Publisher delivers a payload to the mailbox bound for routingKey, if any.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Presence reports whether a user currently holds a live connection on this
// process. Backed by the gateway's connection registry.
type Presence interface {
	IsOnline(userID string) bool
}

// RelayService handles one inbound frame end to end: persist, update the
// chat summary, fan out to the other participant's mailbox, and fall back
// to a push notification when that participant is offline.
type RelayService interface {
	HandleFrame(ctx context.Context, senderID, bookingID string, raw []byte) error
}

type relayService struct {
	chatRepo  repository.ChatRepository
	publisher Publisher
	notifier  NotificationService
	presence  Presence
	// Fixed offset added to UTC when stamping message timestamps.
	timeOffset time.Duration
	now        func() time.Time
	log        logger.Logger
}

func NewRelayService(
	chatRepo repository.ChatRepository,
	publisher Publisher,
	notifier NotificationService,
	presence Presence,
	timeOffset time.Duration,
	log logger.Logger,
) RelayService {
	return &relayService{
		chatRepo:   chatRepo,
		publisher:  publisher,
		notifier:   notifier,
		presence:   presence,
		timeOffset: timeOffset,
		now:        time.Now,
		log:        log,
	}
}

// HandleFrame never kills the connection: every failure is logged, reported
// to the caller, and scoped to this frame alone.
func (s *relayService) HandleFrame(ctx context.Context, senderID, bookingID string, raw []byte) error {
	frame := &domain.InboundFrame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		s.log.Warn("Dropping undecodable frame", "userId", senderID, "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidFrame, err)
	}
	if err := frame.Validate(); err != nil {
		s.log.Warn("Dropping invalid frame", "userId", senderID, "error", err)
		return err
	}

	ts := s.now().UTC().Add(s.timeOffset)
	msg := domain.Message{
		ID:               primitive.NewObjectID(),
		SenderID:         senderID,
		ReceiverUserType: frame.ReceiverUserType,
		BookingID:        bookingID,
		Content:          frame.Content,
		Timestamp:        ts,
		Read:             false,
		MssgType:         frame.MssgType,
		FileType:         frame.FileType,
		FileName:         frame.FileName,
		Height:           frame.Height,
		Width:            frame.Width,
		Size:             frame.Size,
	}

	if err := s.chatRepo.AppendMessage(ctx, frame.ChatID, msg); err != nil {
		s.log.Error("Failed to persist message, skipping fan-out", "chatId", frame.ChatID, "error", err)
		return err
	}

	// Separate write from the append; the pair is not atomic and a stale
	// summary is tolerated.
	if err := s.chatRepo.SetLastMessage(ctx, frame.ChatID, frame.Content, ts); err != nil {
		s.log.Error("Failed to update chat summary, skipping fan-out", "chatId", frame.ChatID, "error", err)
		return err
	}

	chat, err := s.chatRepo.GetChat(ctx, frame.ChatID)
	if err != nil {
		s.log.Warn("Chat not found for fan-out", "chatId", frame.ChatID, "error", err)
		return err
	}

	outbound := domain.OutboundFrame{
		ChatID:           frame.ChatID,
		Content:          frame.Content,
		SenderID:         senderID,
		ReceiverUserType: frame.ReceiverUserType,
		BookingID:        bookingID,
		Timestamp:        domain.FormatTimestamp(ts),
		MssgType:         frame.MssgType,
		FileType:         frame.FileType,
		FileName:         frame.FileName,
		Height:           frame.Height,
		Width:            frame.Width,
		Size:             frame.Size,
	}

	for _, participant := range chat.Participants {
		if participant == senderID {
			continue
		}

		if !s.presence.IsOnline(participant) {
			// Supplementary alert; the publish below still runs, as a
			// queue may have been bound on another process meanwhile.
			s.notifier.Notify(domain.NotificationPayload{
				Title:            "New Message",
				Body:             frame.Content,
				SenderUserID:     senderID,
				ReceiverUserID:   participant,
				ReceiverUserType: frame.ReceiverUserType,
				BookingID:        bookingID,
			})
		}

		if err := s.publisher.Publish(ctx, participant, outbound); err != nil {
			s.log.Error("Failed to publish to mailbox", "userId", participant, "chatId", frame.ChatID, "error", err)
		}
	}

	return nil
}
