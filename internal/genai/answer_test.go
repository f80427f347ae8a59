package genai

import (
	"context"
	"errors"
	"testing"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
)

type stubDispatcher struct {
	got   fulfillment.Query
	reply string
	err   error
	calls int
}

func (s *stubDispatcher) Dispatch(_ context.Context, q fulfillment.Query) (string, error) {
	s.calls++
	s.got = q
	return s.reply, s.err
}

func TestAnswer_Dispatches(t *testing.T) {
	t.Parallel()
	p := &mockIntentParser{
		provider:  ProviderGemini,
		parseFunc: func(context.Context, string) (*ParseResult, error) { return okResult(), nil },
	}
	d := &stubDispatcher{reply: "CPENG511:\tRobotics"}

	reply, intent, err := Answer(context.Background(), p, d, "title of CPENG511")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "CPENG511:\tRobotics" || intent != fulfillment.IntentCourseTitle {
		t.Errorf("reply=%q intent=%q", reply, intent)
	}
	if got := d.got.Params[fulfillment.ParamCourses].Values(); len(got) != 1 || got[0] != "CPENG511" {
		t.Errorf("dispatched params = %v", got)
	}
}

func TestAnswer_DirectReply(t *testing.T) {
	t.Parallel()
	p := &mockIntentParser{
		parseFunc: func(context.Context, string) (*ParseResult, error) {
			return &ParseResult{Reply: "Hi!", FunctionName: FuncDirectReply}, nil
		},
	}
	d := &stubDispatcher{}

	reply, intent, err := Answer(context.Background(), p, d, "hello")
	if err != nil || reply != "Hi!" || intent != "" {
		t.Errorf("reply=%q intent=%q err=%v", reply, intent, err)
	}
	if d.calls != 0 {
		t.Error("direct replies should not be dispatched")
	}
}

func TestAnswer_ParseError(t *testing.T) {
	t.Parallel()
	cause := errors.New("all down")
	p := &mockIntentParser{
		parseFunc: func(context.Context, string) (*ParseResult, error) { return nil, cause },
	}

	_, _, err := Answer(context.Background(), p, &stubDispatcher{}, "x")
	if !errors.Is(err, ErrParseFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrParseFailed wrapping cause", err)
	}
	if got := domerrors.GetUserMessage(err, "fallback"); got != ParseFailedText {
		t.Errorf("user message = %q", got)
	}
}
