package domain

import (
	"fmt"
	"time"

	pkgerrors "chat_relay/pkg/errors"
)

// OutboundTimestampLayout is the display format forwarded to clients,
// e.g. "08/30/26, 04:05 PM".
const OutboundTimestampLayout = "01/02/06, 03:04 PM"

// InboundFrame is one decoded websocket message from a sender. Field names
// follow the upstream wire contract, which mixes snake_case and camelCase.
type InboundFrame struct {
	ChatID           string   `json:"chat_id"`
	ReceiverUserType string   `json:"receiverUserType"`
	Content          string   `json:"content"`
	MssgType         string   `json:"mssg_type"`
	FileType         *string  `json:"file_type"`
	FileName         *string  `json:"file_name"`
	Height           *float64 `json:"height"`
	Width            *float64 `json:"width"`
	Size             *float64 `json:"size"`
}

// Validate rejects frames missing a required field. A failed frame is
// dropped by the caller; it never tears down the connection.
func (f *InboundFrame) Validate() error {
	if f.ChatID == "" {
		return fmt.Errorf("%w: missing chat_id", pkgerrors.ErrInvalidFrame)
	}
	if f.Content == "" {
		return fmt.Errorf("%w: missing content", pkgerrors.ErrInvalidFrame)
	}
	if f.ReceiverUserType == "" {
		return fmt.Errorf("%w: missing receiverUserType", pkgerrors.ErrInvalidFrame)
	}
	if f.MssgType == "" {
		return fmt.Errorf("%w: missing mssg_type", pkgerrors.ErrInvalidFrame)
	}
	return nil
}

// OutboundFrame is the payload published to a recipient's mailbox and
// forwarded verbatim to its socket.
type OutboundFrame struct {
	ChatID           string   `json:"chat_id"`
	Content          string   `json:"content"`
	SenderID         string   `json:"sender_id"`
	ReceiverUserType string   `json:"receiver_user_type"`
	BookingID        string   `json:"booking_id"`
	Timestamp        string   `json:"timestamp"`
	MssgType         string   `json:"mssg_type"`
	FileType         *string  `json:"file_type"`
	FileName         *string  `json:"file_name"`
	Height           *float64 `json:"height"`
	Width            *float64 `json:"width"`
	Size             *float64 `json:"size"`
}

// NotificationPayload is the webhook body for offline recipients. Body
// carries the message content.
type NotificationPayload struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	SenderUserID     string `json:"senderUserId"`
	ReceiverUserID   string `json:"receiverUserId"`
	ReceiverUserType string `json:"receiverUserType"`
	BookingID        string `json:"bookingId"`
}

// FormatTimestamp renders a server-stamped time for the outbound frame.
func FormatTimestamp(t time.Time) string {
	return t.Format(OutboundTimestampLayout)
}
