package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesbot/app/sales"
	"salesbot/app/storage"
	"salesbot/core/logger"
)

// Button keys consumed by the machine.
const (
	ButtonPackage        = "package"
	ButtonAddTranches    = "add_tranches"
	ButtonSkipTranches   = "skip_tranches"
	ButtonFinishTranches = "finish_tranches"
	ButtonNewCalculation = "new_calculation"
)

const (
	promptClientNameStart   = "🗝️ *Расчёт новой продажи*\n\nВведите имя клиента:"
	promptClientNameRestart = "🗝️ *Новый расчёт продажи*\n\nВведите имя клиента:"
	promptMasterName        = "👤 Теперь введите имя мастера поддержки, который вёл клиента:"
	promptPackage           = "📦 Выберите пакет:"
	promptTotalAmount       = "💰 Введите полную стоимость пакета (в рублях):"
	promptPaidAmount        = "💳 Введите сумму, которую клиент оплатил:"

	errEmptyName        = "❌ Имя не может быть пустым, введите ещё раз:"
	errPracticesCount   = "❌ Пожалуйста, введите корректное количество практик (число больше 0):"
	errTotalAmount      = "❌ Пожалуйста, введите корректную сумму:"
	errPaidAmount       = "❌ Пожалуйста, введите корректную сумму оплаты:"
	errPaidExceedsTotal = "⚠️ Оплаченная сумма не может быть больше полной стоимости. Введите корректную сумму:"
	errTrancheCount     = "❌ Введите корректное количество траншей (число больше 0):"
	errTrancheAmount    = "❌ Введите корректную сумму транша:"

	textCancelled      = "❌ Расчёт отменён.\n\nДля нового расчёта введите /sale"
	textSessionExpired = "Сессия истекла. Начните заново с /sale"

	cancelNoticeTTL = 3 * time.Second
	followUpDelay   = 500 * time.Millisecond
)

var packageIcons = map[sales.Package]string{
	sales.PackageStarter:   "🟢",
	sales.PackageExpansion: "🔵",
	sales.PackageScale:     "🟡",
	sales.PackageAbsolute:  "🔴",
}

// Machine drives the sale intake dialog. It owns all session mutation and
// produces outbound effects; it never calls the transport itself.
// Transitions for the same conversation key are serialised, so the terminal
// transition (persist record, destroy session) is atomic per key.
type Machine struct {
	sessions SessionStore
	records  storage.Store

	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	locks map[sales.ConversationKey]*keyLock
}

// keyLock is a reference-counted mutex; the last holder removes it from the
// map so the lock table stays bounded by concurrently active conversations.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMachine builds a machine over the given session store and record store.
func NewMachine(sessions SessionStore, records storage.Store) *Machine {
	return &Machine{
		sessions: sessions,
		records:  records,
		now:      time.Now,
		newID:    uuid.NewString,
		locks:    make(map[sales.ConversationKey]*keyLock),
	}
}

func (m *Machine) lockKey(key sales.ConversationKey) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Active reports whether a wizard run is in progress for the key.
func (m *Machine) Active(key sales.ConversationKey) bool {
	_, ok := m.sessions.Get(key)
	return ok
}

// TrackMessage records an outbound message ID for bulk cleanup. Called by
// the effect executor after a tracked send succeeds.
func (m *Machine) TrackMessage(key sales.ConversationKey, messageID int) {
	unlock := m.lockKey(key)
	defer unlock()
	if ses, ok := m.sessions.Get(key); ok {
		ses.Tracked = append(ses.Tracked, messageID)
		m.sessions.Put(ses)
	}
}

// Start begins a new run. A duplicate start while a session is live is
// ignored: no new session, no reply.
func (m *Machine) Start(ctx context.Context, key sales.ConversationKey) []Effect {
	unlock := m.lockKey(key)
	defer unlock()

	if _, ok := m.sessions.Get(key); ok {
		logger.Debug(ctx, "wizard", "start.duplicate", slog.String("key", key.String()))
		return nil
	}
	return m.beginSession(ctx, key, promptClientNameStart)
}

// Restart unconditionally replaces any live session with a fresh one.
// Reached from the post-summary "new calculation" button.
func (m *Machine) Restart(ctx context.Context, key sales.ConversationKey) []Effect {
	unlock := m.lockKey(key)
	defer unlock()

	effects := []Effect{respond("Начинаем новый расчёт!"), {Kind: EffectDeleteSource}}
	return append(effects, m.beginSession(ctx, key, promptClientNameRestart)...)
}

func (m *Machine) beginSession(ctx context.Context, key sales.ConversationKey, prompt string) []Effect {
	m.sessions.Put(&Session{
		Key:       key,
		Step:      StepClientName,
		StartedAt: m.now(),
	})
	logger.Info(ctx, "wizard", "session.started",
		slog.String("key", key.String()),
		slog.String("step", string(StepClientName)),
	)
	return []Effect{sendMD(prompt)}
}

// Cancel discards the live session, if any, and cleans up its messages.
// No record is persisted.
func (m *Machine) Cancel(ctx context.Context, key sales.ConversationKey) []Effect {
	unlock := m.lockKey(key)
	defer unlock()

	ses, ok := m.sessions.Get(key)
	if !ok {
		return nil
	}
	m.sessions.Delete(key)
	logger.Info(ctx, "wizard", "session.cancelled",
		slog.String("key", key.String()),
		slog.String("step", string(ses.Step)),
	)

	notice := send(textCancelled)
	notice.Track = false
	notice.DeleteAfter = cancelNoticeTTL
	return []Effect{
		{Kind: EffectDelete, MessageIDs: ses.Tracked},
		notice,
	}
}

// HandleText processes free-form operator input. Text without a live
// session is noise and produces no effects; the inbound message is removed
// by the host either way.
func (m *Machine) HandleText(ctx context.Context, key sales.ConversationKey, text string) []Effect {
	unlock := m.lockKey(key)
	defer unlock()

	ses, ok := m.sessions.Get(key)
	if !ok {
		return nil
	}

	logger.Debug(ctx, "wizard", "input.text",
		slog.String("key", key.String()),
		slog.String("step", string(ses.Step)),
		slog.String("payload", logger.SanitizeLimit(text, 128)),
	)

	switch ses.Step {
	case StepClientName:
		return m.handleName(ses, text, StepMasterName, send(promptMasterName))
	case StepMasterName:
		return m.handleName(ses, text, StepPackage, packagePrompt())
	case StepPackage:
		// Package is chosen by button only; stray text is discarded.
		return nil
	case StepPracticesCount:
		return m.handlePracticesCount(ses, text)
	case StepTotalAmount:
		return m.handleTotalAmount(ses, text)
	case StepPaidAmount:
		return m.handlePaidAmount(ctx, ses, text)
	case StepRemainderChoice:
		// Awaiting a button press; text input is discarded.
		return nil
	case StepTrancheCount:
		return m.handleTrancheCount(ses, text)
	case StepTrancheAmount:
		return m.handleTrancheAmount(ses, text)
	case StepTrancheDate:
		return m.handleTrancheDate(ctx, ses, text)
	}
	return nil
}

// HandleButton processes an inline button press. btn is the callback key,
// payload its optional argument.
func (m *Machine) HandleButton(ctx context.Context, key sales.ConversationKey, btn, payload string) []Effect {
	if btn == ButtonNewCalculation {
		return m.Restart(ctx, key)
	}

	unlock := m.lockKey(key)
	defer unlock()

	ses, ok := m.sessions.Get(key)
	if !ok {
		return []Effect{respond(textSessionExpired)}
	}

	logger.Debug(ctx, "wizard", "input.button",
		slog.String("key", key.String()),
		slog.String("step", string(ses.Step)),
		slog.String("payload", btn),
	)

	switch ses.Step {
	case StepPackage:
		if btn != ButtonPackage {
			return nil
		}
		return m.handlePackageChoice(ses, payload)
	case StepRemainderChoice:
		switch btn {
		case ButtonAddTranches:
			ses.Step = StepTrancheCount
			m.sessions.Put(ses)
			return []Effect{
				respond("Указываем количество траншей"),
				{Kind: EffectEdit, Text: fmt.Sprintf("💰 Остаток: %s\n\nСколько будет траншей? Введите число:", sales.FormatAmount(ses.Draft.RemainingAmount))},
			}
		case ButtonSkipTranches:
			return append([]Effect{respond("Указываем общий остаток")}, m.finalize(ctx, ses)...)
		case ButtonFinishTranches:
			return append([]Effect{respond("Завершаем")}, m.finalize(ctx, ses)...)
		}
		return nil
	case StepTrancheAmount, StepTrancheDate:
		if btn == ButtonFinishTranches {
			return append([]Effect{respond("Завершаем")}, m.finalize(ctx, ses)...)
		}
		return nil
	default:
		return nil
	}
}

func (m *Machine) handleName(ses *Session, text string, next Step, prompt Effect) []Effect {
	name := strings.TrimSpace(text)
	if name == "" {
		return []Effect{send(errEmptyName)}
	}
	if ses.Step == StepClientName {
		ses.Draft.ClientName = name
	} else {
		ses.Draft.MasterName = name
	}
	ses.Step = next
	m.sessions.Put(ses)
	return []Effect{prompt}
}

func (m *Machine) handlePackageChoice(ses *Session, payload string) []Effect {
	pkg := sales.Package(payload)
	if !pkg.Valid() {
		return nil
	}
	ses.Draft.PackageType = pkg
	ses.Step = StepPracticesCount
	m.sessions.Put(ses)
	return []Effect{
		respond(fmt.Sprintf("Выбран %s", pkg)),
		{
			Kind:     EffectEdit,
			Markdown: true,
			Text:     fmt.Sprintf("✅ Выбран пакет: *%s* (%d%%)\n\nТеперь введите количество практик:", pkg, pkg.Percent()),
		},
	}
}

func (m *Machine) handlePracticesCount(ses *Session, text string) []Effect {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count < 1 {
		return []Effect{send(errPracticesCount)}
	}
	ses.Draft.PracticesCount = count
	ses.Step = StepTotalAmount
	m.sessions.Put(ses)
	return []Effect{send(promptTotalAmount)}
}

func (m *Machine) handleTotalAmount(ses *Session, text string) []Effect {
	amount, ok := parseAmount(text)
	if !ok {
		return []Effect{send(errTotalAmount)}
	}
	ses.Draft.TotalAmount = amount
	ses.Step = StepPaidAmount
	m.sessions.Put(ses)
	return []Effect{send(promptPaidAmount)}
}

func (m *Machine) handlePaidAmount(ctx context.Context, ses *Session, text string) []Effect {
	amount, ok := parseAmount(text)
	if !ok {
		return []Effect{send(errPaidAmount)}
	}
	if amount > ses.Draft.TotalAmount {
		return []Effect{send(errPaidExceedsTotal)}
	}

	ses.Draft.PaidAmount = amount
	remainder := ses.Draft.Remainder()
	if remainder <= 0 {
		return m.finalize(ctx, ses)
	}

	ses.Draft.RemainingAmount = remainder
	ses.Draft.Tranches = []sales.Tranche{}
	ses.Step = StepRemainderChoice
	m.sessions.Put(ses)

	prompt := send(fmt.Sprintf("💰 Остаток к доплате: %s\n\nХотите указать даты будущих траншей?", sales.FormatAmount(remainder)))
	prompt.Keyboard = [][]Button{
		{{Label: "✅ Да, указать даты траншей", Key: ButtonAddTranches}},
		{{Label: "⏩ Нет, просто указать общий остаток", Key: ButtonSkipTranches}},
	}
	return []Effect{prompt}
}

func (m *Machine) handleTrancheCount(ses *Session, text string) []Effect {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count < 1 {
		return []Effect{send(errTrancheCount)}
	}
	ses.TotalTranches = count
	ses.TrancheIndex = 1
	ses.Step = StepTrancheAmount
	m.sessions.Put(ses)
	return []Effect{send(fmt.Sprintf("💰 Транш 1 из %d\n\nВведите сумму первого транша:", count))}
}

func (m *Machine) handleTrancheAmount(ses *Session, text string) []Effect {
	amount, ok := parseAmount(text)
	if !ok {
		return []Effect{send(errTrancheAmount)}
	}
	if amount > ses.Draft.RemainingAmount {
		return []Effect{send(fmt.Sprintf("⚠️ Сумма транша не может быть больше остатка (%s):", sales.FormatAmount(ses.Draft.RemainingAmount)))}
	}
	ses.PendingTranche = amount
	ses.Step = StepTrancheDate
	m.sessions.Put(ses)
	return []Effect{send(fmt.Sprintf("📅 Транш %d из %d\n\nВведите дату оплаты (например: 15.09.2026 или 15 сентября):", ses.TrancheIndex, ses.TotalTranches))}
}

func (m *Machine) handleTrancheDate(ctx context.Context, ses *Session, text string) []Effect {
	label := strings.TrimSpace(text)
	if label == "" {
		return []Effect{send(fmt.Sprintf("📅 Транш %d из %d\n\nВведите дату оплаты (например: 15.09.2026 или 15 сентября):", ses.TrancheIndex, ses.TotalTranches))}
	}

	ses.Draft.Tranches = append(ses.Draft.Tranches, sales.Tranche{Amount: ses.PendingTranche, DueDate: label})
	ses.Draft.RemainingAmount -= ses.PendingTranche
	ses.PendingTranche = 0
	ses.TrancheIndex++

	if ses.TrancheIndex <= ses.TotalTranches && ses.Draft.RemainingAmount > 0 {
		ses.Step = StepTrancheAmount
		m.sessions.Put(ses)
		prompt := send(fmt.Sprintf("💰 Транш %d из %d (остаток %s)\n\nВведите сумму транша:",
			ses.TrancheIndex, ses.TotalTranches, sales.FormatAmount(ses.Draft.RemainingAmount)))
		prompt.Keyboard = [][]Button{
			{{Label: "🏁 Завершить без остальных траншей", Key: ButtonFinishTranches}},
		}
		return []Effect{prompt}
	}
	return m.finalize(ctx, ses)
}

// finalize builds and persists the record, cleans up dialog messages, emits
// the summary, and destroys the session. Runs under the key lock, so no
// other event for this conversation can interleave.
func (m *Machine) finalize(ctx context.Context, ses *Session) []Effect {
	// Any unscheduled remainder is absorbed by one synthetic installment.
	if len(ses.Draft.Tranches) > 0 && ses.Draft.RemainingAmount > 0 {
		ses.Draft.Tranches = append(ses.Draft.Tranches, sales.Tranche{
			Amount:  ses.Draft.RemainingAmount,
			DueDate: sales.UnspecifiedDueDate,
		})
		ses.Draft.RemainingAmount = 0
	}

	rec := sales.Record{
		ID:              m.newID(),
		ClientName:      ses.Draft.ClientName,
		MasterName:      ses.Draft.MasterName,
		PackageType:     ses.Draft.PackageType,
		PracticesCount:  ses.Draft.PracticesCount,
		TotalAmount:     ses.Draft.TotalAmount,
		PaidAmount:      ses.Draft.PaidAmount,
		RemainingAmount: ses.Draft.Remainder(),
		Tranches:        ses.Draft.Tranches,
		CreatedAt:       m.now(),
		ChatID:          ses.Key.ChatID,
		ThreadID:        ses.Key.ThreadID,
	}

	// A storage fault must not stall the operator flow: the summary is
	// still shown and the gap is surfaced in logs only.
	if err := m.records.Append(ctx, rec); err != nil {
		logger.Error(ctx, "service.sales", "record.append.failed",
			slog.String("sale_id", rec.ID),
			slog.String("key", ses.Key.String()),
			slog.String("err", err.Error()),
		)
	}

	m.sessions.Delete(ses.Key)
	logger.Info(ctx, "wizard", "session.completed",
		slog.String("key", ses.Key.String()),
		slog.String("sale_id", rec.ID),
		slog.String("package", string(rec.PackageType)),
		slog.Int("tranches", len(rec.Tranches)),
	)

	summary := Effect{Kind: EffectSend, Text: sales.Summary(ses.Draft)}
	followUp := Effect{
		Kind:  EffectSend,
		Text:  "⬆️",
		Delay: followUpDelay,
		Keyboard: [][]Button{
			{{Label: "➕ Новый расчёт", Key: ButtonNewCalculation}},
		},
	}
	return []Effect{
		{Kind: EffectDelete, MessageIDs: ses.Tracked},
		summary,
		followUp,
	}
}

func packagePrompt() Effect {
	prompt := send(promptPackage)
	rows := make([][]Button, 0, len(sales.AllPackages))
	for _, pkg := range sales.AllPackages {
		rows = append(rows, []Button{{
			Label: fmt.Sprintf("%s %s (%d%%)", packageIcons[pkg], pkg, pkg.Percent()),
			Key:   ButtonPackage,
			Data:  string(pkg),
		}})
	}
	prompt.Keyboard = rows
	return prompt
}

func parseAmount(text string) (float64, bool) {
	cleaned := strings.Join(strings.Fields(text), "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
