// Package bot wires the sale intake wizard, record storage, and the
// reminder sweep into a runnable Telegram application.
package bot

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"salesbot/app/duedate"
	"salesbot/app/reminder"
	"salesbot/app/storage"
	"salesbot/app/wizard"
	"salesbot/core/database"
	"salesbot/core/logger"
	tg "salesbot/core/telegram"
	"salesbot/core/telegram/router"
)

const dueDateCacheSize = 256

// App holds the assembled application components.
type App struct {
	cfg       *Config
	registry  *tg.Registry
	machine   *wizard.Machine
	store     storage.Store
	evaluator *duedate.Evaluator
	now       func() time.Time
}

// Bootstrap initialises logging, storage, and the wizard, and registers
// all commands and callbacks.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	if err := logger.InitLogger(&cfg.Core); err != nil {
		return nil, fmt.Errorf("bot: init logger: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	evaluator, err := duedate.NewEvaluator(dueDateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("bot: due date evaluator: %w", err)
	}

	a := &App{
		cfg:       cfg,
		registry:  tg.NewRegistry(),
		machine:   wizard.NewMachine(wizard.NewMemoryStore(), store),
		store:     store,
		evaluator: evaluator,
		now:       time.Now,
	}
	a.registerCommands()
	a.registerCallbacks()
	return a, nil
}

func buildStore(cfg *Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case storage.BackendPostgres:
		if err := database.RunMigrations(cfg.Database); err != nil {
			return nil, fmt.Errorf("bot: migrations: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bot: database: %w", err)
		}
		return storage.NewPostgres(db), nil
	default:
		return storage.NewJSONFile(cfg.Storage.Path), nil
	}
}

// TelegramRunOptions assembles routes, middleware, and lifecycle hooks for
// the shared bot runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a, a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.startSweeper(ctx, rt)
			return nil
		},
	}, nil
}

// startSweeper launches the background due-payment sweep. It stops with
// the run context. Notifications go through the async dispatcher so they
// get the same retry and logging treatment as handler sends.
func (a *App) startSweeper(ctx context.Context, rt tg.Runtime) {
	notify := func(ctx context.Context, chatID int64, threadID int, text string) error {
		return rt.Dispatcher.Enqueue(ctx, "reminder.notify", "sendMessage", func() error {
			_, err := rt.Bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{
				ThreadID:  threadID,
				ParseMode: tele.ModeMarkdown,
			})
			return err
		})
	}
	sweeper := reminder.NewSweeper(a.store, a.evaluator, notify, a.cfg.Reminder)
	go sweeper.Run(ctx)
}
