package helpers

import tele "gopkg.in/telebot.v4"

const answeredKey = "cb_answered"

// MarkCallbackAnswered records that the pending callback query has been
// answered. Telegram accepts exactly one answer per query, so whoever
// answers first must mark it to stop the router's fallback answer.
func MarkCallbackAnswered(c tele.Context) {
	if c != nil {
		c.Set(answeredKey, true)
	}
}

// CallbackAnswered reports whether the pending callback query was answered.
func CallbackAnswered(c tele.Context) bool {
	if c == nil {
		return false
	}
	v, _ := c.Get(answeredKey).(bool)
	return v
}
