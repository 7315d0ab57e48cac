package service

import (
	"context"
	"fmt"
	"sort"

	"chat_relay/internal/domain"
	"chat_relay/internal/repository"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

// ChatList is one page of the admin chat listing.
type ChatList struct {
	Page       int            `json:"page"`
	PerPage    int            `json:"perPage"`
	TotalCount int64          `json:"totalCount"`
	TotalPages int64          `json:"totalPages"`
	Chats      []*domain.Chat `json:"chats"`
}

// BookingDetails is a booking's full history, newest message first.
type BookingDetails struct {
	BookingID string           `json:"bookingId"`
	Messages  []domain.Message `json:"messages"`
}

type ChatService interface {
	CreateChat(ctx context.Context, bookingID string, participants []string) (*domain.Chat, error)
	GetUserChats(ctx context.Context, userID string) ([]*domain.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	ListChats(ctx context.Context, page, perPage int) (*ChatList, error)
	GetChatDetails(ctx context.Context, bookingID string) (*BookingDetails, error)
}

type chatService struct {
	chatRepo repository.ChatRepository
	log      logger.Logger
}

func NewChatService(chatRepo repository.ChatRepository, log logger.Logger) ChatService {
	return &chatService{chatRepo: chatRepo, log: log}
}

func (s *chatService) CreateChat(ctx context.Context, bookingID string, participants []string) (*domain.Chat, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("%w: missing bookingId", pkgerrors.ErrBadRequest)
	}
	if len(participants) != 2 {
		return nil, fmt.Errorf("%w: a chat needs exactly two participants", pkgerrors.ErrBadRequest)
	}
	return s.chatRepo.CreateChatIfAbsent(ctx, bookingID, participants)
}

func (s *chatService) GetUserChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	return s.chatRepo.GetUserChats(ctx, userID)
}

func (s *chatService) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	return s.chatRepo.GetMessages(ctx, chatID)
}

func (s *chatService) ListChats(ctx context.Context, page, perPage int) (*ChatList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	chats, total, err := s.chatRepo.ListChats(ctx, page, perPage)
	if err != nil {
		return nil, err
	}

	return &ChatList{
		Page:       page,
		PerPage:    perPage,
		TotalCount: total,
		TotalPages: (total + int64(perPage) - 1) / int64(perPage),
		Chats:      chats,
	}, nil
}

func (s *chatService) GetChatDetails(ctx context.Context, bookingID string) (*BookingDetails, error) {
	chat, err := s.chatRepo.GetChatByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.GetMessages(ctx, chat.ID.Hex())
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, pkgerrors.ErrMessagesNotFound
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})

	return &BookingDetails{
		BookingID: chat.ID.Hex(),
		Messages:  messages,
	}, nil
}
