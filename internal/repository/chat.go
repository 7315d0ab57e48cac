package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat_relay/internal/domain"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

type ChatRepository interface {
	CreateChatIfAbsent(ctx context.Context, bookingID string, participants []string) (*domain.Chat, error)
	AppendMessage(ctx context.Context, chatID string, msg domain.Message) error
	SetLastMessage(ctx context.Context, chatID string, content string, ts time.Time) error
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	GetChatByBookingID(ctx context.Context, bookingID string) (*domain.Chat, error)
	GetUserChats(ctx context.Context, userID string) ([]*domain.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	ListChats(ctx context.Context, page, perPage int) ([]*domain.Chat, int64, error)
}

type chatRepository struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	log      logger.Logger
}

func NewChatRepository(db *mongo.Database, log logger.Logger) ChatRepository {
	return &chatRepository{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
		log:      log,
	}
}

// CreateChatIfAbsent is idempotent per bookingId: a second call returns the
// chat created by the first. The lookup is not locked against concurrent
// first-contact; the unique booking key makes the duplicate insert lose.
func (r *chatRepository) CreateChatIfAbsent(ctx context.Context, bookingID string, participants []string) (*domain.Chat, error) {
	existing := &domain.Chat{}
	err := r.chats.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		r.log.Error("Failed to look up chat by booking", "bookingId", bookingID, "error", err)
		return nil, err
	}

	chat := &domain.Chat{
		ID:           primitive.NewObjectID(),
		BookingID:    bookingID,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := r.chats.InsertOne(ctx, chat); err != nil {
		r.log.Error("Failed to insert chat", "bookingId", bookingID, "error", err)
		return nil, err
	}

	// The log document is created together with the chat so every chat has
	// one even when empty. If this insert fails, AppendMessage upserts.
	doc := domain.MessageDocument{
		ChatID:   chat.ID.Hex(),
		Messages: []domain.Message{},
	}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		r.log.Error("Failed to insert message document", "chatId", chat.ID.Hex(), "error", err)
		return nil, err
	}

	return chat, nil
}

// AppendMessage pushes onto the embedded array. Upsert self-heals a chat
// whose log document was never created; Mongo's per-document atomicity
// serializes concurrent appends to the same chat.
func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg domain.Message) error {
	_, err := r.messages.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$push": bson.M{"messages": msg}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.log.Error("Failed to append message", "chatId", chatID, "error", err)
		return err
	}
	return nil
}

func (r *chatRepository) SetLastMessage(ctx context.Context, chatID string, content string, ts time.Time) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return fmt.Errorf("%w: invalid chat id %q", pkgerrors.ErrBadRequest, chatID)
	}

	_, err = r.chats.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"last_message":      content,
			"last_message_time": ts,
		}},
	)
	if err != nil {
		r.log.Error("Failed to set last message", "chatId", chatID, "error", err)
		return err
	}
	return nil
}

func (r *chatRepository) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid chat id %q", pkgerrors.ErrBadRequest, chatID)
	}

	chat := &domain.Chat{}
	err = r.chats.FindOne(ctx, bson.M{"_id": oid}).Decode(chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrChatNotFound
	}
	if err != nil {
		r.log.Error("Failed to get chat", "chatId", chatID, "error", err)
		return nil, err
	}
	return chat, nil
}

func (r *chatRepository) GetChatByBookingID(ctx context.Context, bookingID string) (*domain.Chat, error) {
	chat := &domain.Chat{}
	err := r.chats.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrBookingNotFound
	}
	if err != nil {
		r.log.Error("Failed to get chat by booking", "bookingId", bookingID, "error", err)
		return nil, err
	}
	return chat, nil
}

func (r *chatRepository) GetUserChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	cursor, err := r.chats.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		r.log.Error("Failed to list user chats", "userId", userID, "error", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []*domain.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		r.log.Error("Failed to decode user chats", "userId", userID, "error", err)
		return nil, err
	}
	return chats, nil
}

func (r *chatRepository) GetMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	doc := domain.MessageDocument{}
	err := r.messages.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.Message{}, nil
	}
	if err != nil {
		r.log.Error("Failed to get messages", "chatId", chatID, "error", err)
		return nil, err
	}
	return doc.Messages, nil
}

func (r *chatRepository) ListChats(ctx context.Context, page, perPage int) ([]*domain.Chat, int64, error) {
	total, err := r.chats.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.log.Error("Failed to count chats", "error", err)
		return nil, 0, err
	}

	skip := int64((page - 1) * perPage)
	cursor, err := r.chats.Find(ctx, bson.M{},
		options.Find().SetSkip(skip).SetLimit(int64(perPage)),
	)
	if err != nil {
		r.log.Error("Failed to list chats", "error", err)
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	chats := []*domain.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		r.log.Error("Failed to decode chats", "error", err)
		return nil, 0, err
	}
	return chats, total, nil
}
