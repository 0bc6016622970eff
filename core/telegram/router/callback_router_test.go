package router

import (
	"testing"

	tg "salesbot/core/telegram"
	tghelpers "salesbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// queryContext covers the slice of tele.Context the callback route touches
// and records every answer sent back to the query.
type queryContext struct {
	tele.Context

	update  tele.Update
	values  map[string]interface{}
	answers []*tele.CallbackResponse
}

func newQueryContext(updateID int, data string) *queryContext {
	return &queryContext{
		update: tele.Update{
			ID: updateID,
			Callback: &tele.Callback{
				Data:   data,
				Sender: &tele.User{ID: 7},
				Message: &tele.Message{
					ID:   1,
					Chat: &tele.Chat{ID: 100},
				},
			},
		},
		values: map[string]interface{}{},
	}
}

func (c *queryContext) Update() tele.Update      { return c.update }
func (c *queryContext) Callback() *tele.Callback { return c.update.Callback }
func (c *queryContext) Message() *tele.Message   { return c.update.Callback.Message }
func (c *queryContext) Sender() *tele.User       { return c.update.Callback.Sender }
func (c *queryContext) Chat() *tele.Chat         { return c.update.Callback.Message.Chat }

func (c *queryContext) Set(key string, v interface{}) { c.values[key] = v }
func (c *queryContext) Get(key string) interface{}    { return c.values[key] }

func (c *queryContext) Respond(resp ...*tele.CallbackResponse) error {
	r := &tele.CallbackResponse{}
	if len(resp) > 0 {
		r = resp[0]
	}
	c.answers = append(c.answers, r)
	return nil
}

func TestCallbackToastIsTheOnlyAnswer(t *testing.T) {
	const toast = "Сессия истекла. Начните заново с /sale"

	reg := tg.NewRegistry()
	err := reg.RegisterCallback("wizard_pkg", func(c tele.Context) error {
		if err := c.Respond(&tele.CallbackResponse{Text: toast}); err != nil {
			return err
		}
		tghelpers.MarkCallbackAnswered(c)
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	c := newQueryContext(9001, "\fwizard_pkg|starter")
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(c.answers) != 1 {
		t.Fatalf("answers = %d, want exactly 1", len(c.answers))
	}
	if c.answers[0].Text != toast {
		t.Fatalf("answer text = %q, want %q", c.answers[0].Text, toast)
	}
}

func TestCallbackSilentHandlerGetsEmptyAnswer(t *testing.T) {
	reg := tg.NewRegistry()
	err := reg.RegisterCallback("wizard_skip", func(c tele.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	c := newQueryContext(9002, "\fwizard_skip|")
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(c.answers) != 1 {
		t.Fatalf("answers = %d, want exactly 1", len(c.answers))
	}
	if c.answers[0].Text != "" {
		t.Fatalf("answer text = %q, want empty", c.answers[0].Text)
	}
}

func TestCallbackUnknownKeyAnsweredOnce(t *testing.T) {
	reg := tg.NewRegistry()

	c := newQueryContext(9003, "\fno_such_key|")
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}

	if len(c.answers) != 1 {
		t.Fatalf("answers = %d, want exactly 1", len(c.answers))
	}
	if c.answers[0].Text != "Unsupported action" {
		t.Fatalf("answer text = %q", c.answers[0].Text)
	}
}
