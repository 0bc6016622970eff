package wizard

import "time"

// EffectKind discriminates outbound actions produced by the machine.
type EffectKind int

const (
	// EffectSend sends a new message to the conversation.
	EffectSend EffectKind = iota
	// EffectEdit rewrites the message that carried the pressed button.
	EffectEdit
	// EffectDelete removes previously tracked messages, best effort.
	EffectDelete
	// EffectDeleteSource removes the message the event originated from.
	EffectDeleteSource
	// EffectRespond answers the pending callback query with a toast.
	EffectRespond
)

// Button is one inline keyboard button.
type Button struct {
	Label string
	Key   string
	Data  string
}

// Effect is a single intended outbound action. The machine never talks to
// the transport; it returns effects and the host executes them in order.
type Effect struct {
	Kind     EffectKind
	Text     string
	Markdown bool
	Keyboard [][]Button

	// Track records the sent message for bulk cleanup on finalize/cancel.
	Track bool
	// DeleteAfter schedules best-effort self-deletion of the sent message.
	DeleteAfter time.Duration
	// Delay postpones execution of the effect.
	Delay time.Duration

	// MessageIDs to remove, for EffectDelete.
	MessageIDs []int
}

func send(text string) Effect {
	return Effect{Kind: EffectSend, Text: text, Track: true}
}

func sendMD(text string) Effect {
	e := send(text)
	e.Markdown = true
	return e
}

func respond(text string) Effect {
	return Effect{Kind: EffectRespond, Text: text}
}
