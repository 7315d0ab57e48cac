package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgerrors "chat_relay/pkg/errors"
)

func TestInboundFrameValidate(t *testing.T) {
	valid := InboundFrame{
		ChatID:           "65f0c0ffee",
		ReceiverUserType: "customer",
		Content:          "hi",
		MssgType:         MessageTypeText,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*InboundFrame)
	}{
		{"missing chat_id", func(f *InboundFrame) { f.ChatID = "" }},
		{"missing content", func(f *InboundFrame) { f.Content = "" }},
		{"missing receiverUserType", func(f *InboundFrame) { f.ReceiverUserType = "" }},
		{"missing mssg_type", func(f *InboundFrame) { f.MssgType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := valid
			tt.mutate(&frame)
			assert.ErrorIs(t, frame.Validate(), pkgerrors.ErrInvalidFrame)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 30, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, "08/30/26, 03:30 PM", FormatTimestamp(ts))

	morning := time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "01/02/26, 09:05 AM", FormatTimestamp(morning))
}
