// Package lineutil provides helpers for building LINE reply messages.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// TruncateRunes shortens text to at most maxRunes runes, ending with "..."
// when something was cut.
func TruncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewMessageAction creates an action that sends text when tapped.
// Label and text longer than the LINE limits are truncated.
func NewMessageAction(label, text string) messaging_api.ActionInterface {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Text:  TruncateRunes(text, MaxMessageActionText),
	}
}

// NewQuickReply wraps actions as quick reply buttons, keeping at most
// MaxQuickReplyItemCount of them.
func NewQuickReply(actions ...messaging_api.ActionInterface) *messaging_api.QuickReply {
	if len(actions) > MaxQuickReplyItemCount {
		actions = actions[:MaxQuickReplyItemCount]
	}
	items := make([]messaging_api.QuickReplyItem, len(actions))
	for i, a := range actions {
		items[i] = messaging_api.QuickReplyItem{Action: a}
	}
	return &messaging_api.QuickReply{Items: items}
}
