package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"salesbot/app/sales"
	"salesbot/core/logger"
	"salesbot/core/telegram/commands"
	tghelpers "salesbot/core/telegram/helpers"
)

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/sale", commands.Command{
		Handler:     a.handleSale,
		Description: "начать расчёт новой продажи",
	})
	a.registry.RegisterCommand("/pay", commands.Command{
		Handler:     a.handlePay,
		Description: "посмотреть предстоящие платежи",
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "отменить текущий расчёт",
	})
	a.registry.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "показать справку",
	})

	// Non-command text during a live dialog is wizard input; outside of one
	// it is noise and is removed without a reply.
	a.registry.SetTextFallback(func(c tele.Context) error {
		tghelpers.DeleteBestEffort(c)
		return nil
	})
}

func (a *App) handleSale(c tele.Context) error {
	key := conversationKey(c)
	tghelpers.DeleteBestEffort(c)

	ctx := tghelpers.WithHandler(c, "sale")
	effects := a.machine.Start(ctx, key)
	a.applyEffects(c, key, effects)
	return nil
}

func (a *App) handleCancel(c tele.Context) error {
	key := conversationKey(c)
	tghelpers.DeleteBestEffort(c)

	ctx := tghelpers.WithHandler(c, "cancel")
	effects := a.machine.Cancel(ctx, key)
	a.applyEffects(c, key, effects)
	return nil
}

func (a *App) handleHelp(c tele.Context) error {
	key := conversationKey(c)
	tghelpers.DeleteBestEffort(c)

	a.sendEphemeral(c, key, helpText, true, helpTTL)
	return nil
}

func (a *App) handlePay(c tele.Context) error {
	key := conversationKey(c)
	tghelpers.DeleteBestEffort(c)
	ctx := tghelpers.WithHandler(c, "pay")

	records, err := a.store.List(ctx)
	if err != nil {
		logger.Error(ctx, "service.sales", "record.load.failed",
			slog.String("err", err.Error()),
		)
		a.sendEphemeral(c, key, payListFailed, false, noticeTTL)
		return nil
	}

	upcoming := a.evaluator.Upcoming(ctx, records, a.now())
	if len(upcoming) == 0 {
		a.sendEphemeral(c, key, payListEmpty, false, noticeTTL)
		return nil
	}

	var b strings.Builder
	b.WriteString(payListHeader)
	for _, o := range upcoming {
		daysText := fmt.Sprintf("через %d дн.", o.DaysUntil)
		switch o.DaysUntil {
		case 0:
			daysText = "сегодня"
		case 1:
			daysText = "завтра"
		}
		fmt.Fprintf(&b, "%s *%s*\n", o.Tier().Icon(), o.ClientName)
		fmt.Fprintf(&b, "   Мастер: %s\n", o.MasterName)
		fmt.Fprintf(&b, "   Пакет: %s\n", o.PackageType)
		fmt.Fprintf(&b, "   Сумма: %s\n", sales.FormatAmount(o.Amount))
		fmt.Fprintf(&b, "   До: %s (%s)\n\n", o.DueLabel, daysText)
	}
	b.WriteString(payListLegend)

	a.sendEphemeral(c, key, b.String(), true, payListTTL)
	return nil
}

// sendEphemeral sends a message that removes itself after ttl.
func (a *App) sendEphemeral(c tele.Context, key sales.ConversationKey, text string, markdown bool, ttl time.Duration) {
	opts := &tele.SendOptions{ThreadID: key.ThreadID}
	if markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	msg, err := c.Bot().Send(tele.ChatID(key.ChatID), text, opts)
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), "tg", "send.failed",
			slog.Int64("chat_id", key.ChatID),
			slog.String("err", err.Error()),
		)
		return
	}
	a.scheduleDelete(c.Bot(), key.ChatID, msg.ID, ttl)
}
