package line

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// isBotMentioned reports whether any mentionee in msg is the bot itself.
func isBotMentioned(msg webhook.TextMessageContent) bool {
	if msg.Mention == nil {
		return false
	}
	for _, m := range msg.Mention.Mentionees {
		if um, ok := m.(webhook.UserMentionee); ok && um.IsSelf {
			return true
		}
	}
	return false
}

// stripBotMentions removes the bot's own mentions from text. Mention
// offsets count runes.
func stripBotMentions(text string, mention *webhook.Mention) string {
	if mention == nil {
		return text
	}

	type span struct{ start, end int }
	var spans []span
	for _, m := range mention.Mentionees {
		if um, ok := m.(webhook.UserMentionee); ok && um.IsSelf {
			spans = append(spans, span{int(um.Index), int(um.Index + um.Length)})
		}
	}
	if len(spans) == 0 {
		return text
	}

	// Back to front so earlier offsets stay valid.
	slices.SortFunc(spans, func(a, b span) int { return b.start - a.start })

	runes := []rune(text)
	for _, s := range spans {
		start, end := max(s.start, 0), min(s.end, len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
