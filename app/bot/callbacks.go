package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"salesbot/app/wizard"
	"salesbot/core/logger"
	"salesbot/core/telegram/callbacks"
	tghelpers "salesbot/core/telegram/helpers"
)

func (a *App) registerCallbacks() {
	for _, key := range []string{
		wizard.ButtonPackage,
		wizard.ButtonAddTranches,
		wizard.ButtonSkipTranches,
		wizard.ButtonFinishTranches,
		wizard.ButtonNewCalculation,
	} {
		btn := key
		err := a.registry.RegisterCallback(btn, func(c tele.Context) error {
			return a.handleWizardButton(c, btn)
		})
		if err != nil {
			logger.Warn(logger.Background(), "tg.wire", "register.callback.failed",
				slog.String("key", btn),
				slog.String("err", err.Error()),
			)
		}
	}
}

func (a *App) handleWizardButton(c tele.Context, btn string) error {
	key := conversationKey(c)
	ctx := tghelpers.WithHandler(c, "wizard."+btn)

	payload := callbacks.CallbackPayload(c)
	effects := a.machine.HandleButton(ctx, key, btn, payload)
	a.applyEffects(c, key, effects)
	return nil
}

// Active reports whether free-form text for this update belongs to a live
// wizard session. Satisfies the text router's dialog interface.
func (a *App) Active(c tele.Context) bool {
	return a.machine.Active(conversationKey(c))
}

// Handle feeds one text message into the wizard. The operator's input
// message is always removed, valid or not.
func (a *App) Handle(c tele.Context) error {
	key := conversationKey(c)
	text := c.Text()
	tghelpers.DeleteBestEffort(c)

	ctx := tghelpers.WithHandler(c, "wizard.input")
	effects := a.machine.HandleText(ctx, key, text)
	a.applyEffects(c, key, effects)
	return nil
}
