package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is one conversation between exactly two participants, keyed by the
// booking that created it. lastMessage/lastMessageTime mirror the newest
// entry of the chat's message document and are updated separately from the
// append itself.
type Chat struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookingID       string             `bson:"bookingId" json:"bookingId"`
	Participants    []string           `bson:"participants" json:"participants"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	LastMessage     *string            `bson:"last_message,omitempty" json:"last_message,omitempty"`
	LastMessageTime *time.Time         `bson:"last_message_time,omitempty" json:"last_message_time,omitempty"`
}

// Message is a single append-only chat entry. Timestamp is stamped by the
// server at ingress; read defaults to false and is never flipped here.
type Message struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	SenderID         string             `bson:"sender_id" json:"sender_id"`
	ReceiverUserType string             `bson:"receiver_user_type" json:"receiver_user_type"`
	BookingID        string             `bson:"booking_id" json:"booking_id"`
	Content          string             `bson:"content" json:"content"`
	Timestamp        time.Time          `bson:"timestamp" json:"timestamp"`
	Read             bool               `bson:"read" json:"read"`
	MssgType         string             `bson:"mssg_type" json:"mssg_type"`
	FileType         *string            `bson:"file_type" json:"file_type"`
	FileName         *string            `bson:"file_name" json:"file_name"`
	Height           *float64           `bson:"height" json:"height"`
	Width            *float64           `bson:"width" json:"width"`
	Size             *float64           `bson:"size" json:"size"`
}

// MessageDocument holds the whole log of one chat as an embedded array,
// one document per chat.
type MessageDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID   string             `bson:"chat_id" json:"chat_id"`
	Messages []Message          `bson:"messages" json:"messages"`
}

const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)
