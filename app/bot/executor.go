package bot

import (
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"salesbot/app/sales"
	"salesbot/app/wizard"
	"salesbot/core/logger"
	tghelpers "salesbot/core/telegram/helpers"
	"salesbot/core/telegram/keyboard"
)

// conversationKey derives the wizard key from the incoming update.
func conversationKey(c tele.Context) sales.ConversationKey {
	key := sales.ConversationKey{}
	if chat := c.Chat(); chat != nil {
		key.ChatID = chat.ID
	}
	if msg := c.Message(); msg != nil {
		key.ThreadID = msg.ThreadID
	}
	return key
}

// applyEffects executes machine effects in order against the transport.
// Transport faults are best effort throughout: they are logged and never
// abort the remaining effects.
func (a *App) applyEffects(c tele.Context, key sales.ConversationKey, effects []wizard.Effect) {
	for _, e := range effects {
		a.applyEffect(c, key, e)
	}
}

func (a *App) applyEffect(c tele.Context, key sales.ConversationKey, e wizard.Effect) {
	switch e.Kind {
	case wizard.EffectSend:
		if e.Delay > 0 {
			bot := c.Bot()
			eff := e
			time.AfterFunc(e.Delay, func() { a.sendEffect(nil, bot, key, eff) })
			return
		}
		a.sendEffect(c, c.Bot(), key, e)
	case wizard.EffectEdit:
		opts := &tele.SendOptions{ReplyMarkup: keyboardMarkup(e.Keyboard)}
		if e.Markdown {
			opts.ParseMode = tele.ModeMarkdown
		}
		if err := c.Edit(e.Text, opts); err != nil {
			logger.Debug(tghelpers.BuildContext(c), "tg", "edit.skip",
				slog.String("err", err.Error()),
			)
		}
	case wizard.EffectDelete:
		a.deleteMessages(c.Bot(), key.ChatID, e.MessageIDs)
	case wizard.EffectDeleteSource:
		tghelpers.DeleteBestEffort(c)
	case wizard.EffectRespond:
		_ = c.Respond(&tele.CallbackResponse{Text: e.Text})
		tghelpers.MarkCallbackAnswered(c)
	}
}

// sendEffect delivers one send effect. Sends are synchronous so effects of
// one transition land in order; a delayed effect starts its timer only once
// the preceding sends have completed. c is nil for delayed sends that
// outlive the originating handler.
func (a *App) sendEffect(c tele.Context, bot tele.API, key sales.ConversationKey, e wizard.Effect) {
	opts := &tele.SendOptions{
		ThreadID:    key.ThreadID,
		ReplyMarkup: keyboardMarkup(e.Keyboard),
	}
	if e.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}

	msg, err := bot.Send(tele.ChatID(key.ChatID), e.Text, opts)
	if err != nil {
		ctx := logger.Background()
		if c != nil {
			ctx = tghelpers.BuildContext(c)
		}
		logger.Warn(ctx, "tg", "send.failed",
			slog.Int64("chat_id", key.ChatID),
			slog.String("err", err.Error()),
		)
		return
	}

	if e.Track {
		a.machine.TrackMessage(key, msg.ID)
	}
	if e.DeleteAfter > 0 {
		a.scheduleDelete(bot, key.ChatID, msg.ID, e.DeleteAfter)
	}
}

func (a *App) scheduleDelete(bot tele.API, chatID int64, messageID int, after time.Duration) {
	time.AfterFunc(after, func() {
		a.deleteMessages(bot, chatID, []int{messageID})
	})
}

func (a *App) deleteMessages(bot tele.API, chatID int64, ids []int) {
	for _, id := range ids {
		ref := tele.StoredMessage{MessageID: strconv.Itoa(id), ChatID: chatID}
		tghelpers.DeleteMessageAsync(bot, ref)
	}
}

func keyboardMarkup(rows [][]wizard.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	btnRows := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for j, btn := range row {
			r[j] = keyboard.InlineBtn{Text: btn.Label, Unique: btn.Key, Data: btn.Data}
		}
		btnRows[i] = r
	}
	return keyboard.InlineButtonsRows(btnRows...)
}
