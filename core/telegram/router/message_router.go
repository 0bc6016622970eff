package router

import (
	"time"

	tg "salesbot/core/telegram"
	"salesbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Wizard is the minimal interface for an in-progress conversation flow.
// Active reports whether the current chat/topic has an open dialog that
// should consume free-form text instead of the command registry.
type Wizard interface {
	Active(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for free-form text routing.
// Dialog input wins over command aliases and the registry fallback.
func TextRoutes(wiz Wizard, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if wiz != nil && wiz.Active(c) {
			return handleWithSummary(c, "wizard", start, "", "", func() error {
				return wiz.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
