package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/compeng-bot/compeng-bot-go/internal/config"
	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
)

// ErrParseFailed marks errors from the intent parser rather than the dispatcher.
var ErrParseFailed = errors.New("intent parsing failed")

// ParseFailedText is shown when no parser could classify the message.
const ParseFailedText = "Sorry, I couldn't understand that right now. Please try again later."

// Dispatcher runs a fulfillment query.
type Dispatcher interface {
	Dispatch(ctx context.Context, q fulfillment.Query) (string, error)
}

// Answer classifies text with p and dispatches the resulting query to d.
// Parsing is bounded by config.NLUParse. Direct replies are returned
// without dispatching and with an empty intent.
func Answer(ctx context.Context, p IntentParser, d Dispatcher, text string) (reply, intent string, err error) {
	parseCtx, cancel := context.WithTimeout(ctx, config.NLUParse)
	result, err := p.Parse(parseCtx, text)
	cancel()
	if err != nil {
		return "", "", domerrors.NewWrapper("genai", "parse").
			Wrap(fmt.Errorf("%w: %w", ErrParseFailed, err), ParseFailedText)
	}
	if result.IsDirectReply() {
		return result.Reply, "", nil
	}

	reply, err = d.Dispatch(ctx, result.Query())
	return reply, result.Intent, err
}
