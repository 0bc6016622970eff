package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"salesbot/core/logger"
	"salesbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// DeleteMessageAsync removes a stored message through the async dispatcher,
// so bulk cleanup gets retry treatment (including flood waits). Falls back
// to a direct call when no dispatcher is wired or the queue is saturated.
func DeleteMessageAsync(bot tele.API, ref tele.StoredMessage) {
	run := func() error { return bot.Delete(ref) }

	disp := currentDispatcher()
	if disp == nil {
		deleteDirect(ref, run)
		return
	}
	if err := disp.Enqueue(logger.Background(), "delete.message", "deleteMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(logger.Background(), "tg.sender", "queue.fallback",
				slog.String("action", "delete.message"),
				slog.String("err", err.Error()),
			)
		}
		deleteDirect(ref, run)
	}
}

func deleteDirect(ref tele.StoredMessage, run func() error) {
	if err := run(); err != nil {
		logger.Debug(logger.Background(), "tg", "delete.skip",
			slog.Int64("chat_id", ref.ChatID),
			slog.String("err", err.Error()),
		)
	}
}

// DeleteBestEffort deletes the current message ignoring failures.
// Deletions are advisory: the message may already be gone or the bot
// may lack rights in the chat.
func DeleteBestEffort(c tele.Context) {
	if c.Message() == nil {
		return
	}
	if err := c.Delete(); err != nil {
		logger.Debug(BuildContext(c), "tg", "delete.skip",
			slog.String("err", err.Error()),
		)
	}
}
