package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/app/sales"
)

type recordingStore struct {
	mu         sync.Mutex
	records    []sales.Record
	failAppend bool
}

func (s *recordingStore) Append(_ context.Context, rec sales.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) List(context.Context) ([]sales.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sales.Record(nil), s.records...), nil
}

func newTestMachine(store *recordingStore) *Machine {
	m := NewMachine(NewMemoryStore(), store)
	m.now = func() time.Time { return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC) }
	id := 0
	m.newID = func() string { id++; return "sale-" + string(rune('0'+id)) }
	return m
}

func texts(effects []Effect) []string {
	var out []string
	for _, e := range effects {
		if e.Kind == EffectSend || e.Kind == EffectEdit {
			out = append(out, e.Text)
		}
	}
	return out
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

var testKey = sales.ConversationKey{ChatID: 100}

// walkToPaid drives a session through client, master, package, practices
// and total amount so tests can focus on the remainder branches.
func walkToPaid(t *testing.T, m *Machine, key sales.ConversationKey) {
	t.Helper()
	ctx := context.Background()
	require.NotEmpty(t, m.Start(ctx, key))
	require.NotEmpty(t, m.HandleText(ctx, key, "Мария"))
	require.NotEmpty(t, m.HandleText(ctx, key, "Ольга"))
	require.NotEmpty(t, m.HandleButton(ctx, key, ButtonPackage, string(sales.PackageStarter)))
	require.NotEmpty(t, m.HandleText(ctx, key, "4"))
	require.NotEmpty(t, m.HandleText(ctx, key, "30000"))
}

func TestFullPaymentSkipsTrancheDialogue(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	effects := m.HandleText(ctx, testKey, "30000")

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Empty(t, rec.Tranches)
	assert.Equal(t, float64(0), rec.RemainingAmount)
	assert.Equal(t, int64(100), rec.ChatID)
	assert.False(t, m.Active(testKey))

	joined := texts(effects)
	require.NotEmpty(t, joined)
	assert.Contains(t, joined[0], "Остаток 0.")
	assert.Contains(t, joined[0], "это 2 100 р")
}

func TestSkipTranchesLeavesUnscheduledRemainder(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.HandleText(ctx, testKey, "20000")
	effects := m.HandleButton(ctx, testKey, ButtonSkipTranches, "")

	require.Len(t, store.records, 1)
	assert.Empty(t, store.records[0].Tranches)
	assert.Equal(t, float64(10000), store.records[0].RemainingAmount)
	assert.Contains(t, texts(effects)[0], "Остаток 10к.")
	assert.False(t, m.Active(testKey))
}

func TestUnderScheduledTranchesGetSyntheticInstallment(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.HandleText(ctx, testKey, "10000") // remainder 20000
	m.HandleButton(ctx, testKey, ButtonAddTranches, "")
	m.HandleText(ctx, testKey, "2")
	m.HandleText(ctx, testKey, "5000")
	m.HandleText(ctx, testKey, "15.09.2026")
	m.HandleText(ctx, testKey, "5000")
	m.HandleText(ctx, testKey, "15.10.2026")

	require.Len(t, store.records, 1)
	rec := store.records[0]
	require.Len(t, rec.Tranches, 3)
	assert.Equal(t, float64(5000), rec.Tranches[0].Amount)
	assert.Equal(t, float64(5000), rec.Tranches[1].Amount)
	assert.Equal(t, float64(10000), rec.Tranches[2].Amount)
	assert.Equal(t, sales.UnspecifiedDueDate, rec.Tranches[2].DueDate)

	var sum float64
	for _, tr := range rec.Tranches {
		sum += tr.Amount
	}
	assert.Equal(t, rec.TotalAmount-rec.PaidAmount, sum)
}

func TestTrancheAmountBoundedByRemaining(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.HandleText(ctx, testKey, "20000") // remainder 10000
	m.HandleButton(ctx, testKey, ButtonAddTranches, "")
	m.HandleText(ctx, testKey, "2")

	effects := m.HandleText(ctx, testKey, "15000")
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "не может быть больше остатка")

	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepTrancheAmount, ses.Step)
	assert.Empty(t, store.records)
}

func TestInvalidInputHoldsStep(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	m.HandleText(ctx, testKey, "Мария")
	m.HandleText(ctx, testKey, "Ольга")
	m.HandleButton(ctx, testKey, ButtonPackage, string(sales.PackageStarter))

	for _, bad := range []string{"ноль", "0", "-3", ""} {
		effects := m.HandleText(ctx, testKey, bad)
		require.Len(t, effects, 1, "input %q", bad)
		assert.Equal(t, errPracticesCount, effects[0].Text)
		ses, ok := m.sessions.Get(testKey)
		require.True(t, ok)
		assert.Equal(t, StepPracticesCount, ses.Step)
		assert.Equal(t, "Мария", ses.Draft.ClientName)
	}
}

func TestPaidAmountCannotExceedTotal(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	effects := m.HandleText(ctx, testKey, "40000")
	require.Len(t, effects, 1)
	assert.Equal(t, errPaidExceedsTotal, effects[0].Text)

	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepPaidAmount, ses.Step)
}

func TestAmountParsingStripsSpaces(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.HandleText(ctx, testKey, "30 000")

	require.Len(t, store.records, 1)
	assert.Equal(t, float64(30000), store.records[0].PaidAmount)
}

func TestEmptyNameRejected(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	effects := m.HandleText(ctx, testKey, "   ")
	require.Len(t, effects, 1)
	assert.Equal(t, errEmptyName, effects[0].Text)

	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepClientName, ses.Step)
}

func TestTextDuringPackageStepIgnored(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	m.HandleText(ctx, testKey, "Мария")
	m.HandleText(ctx, testKey, "Ольга")

	assert.Empty(t, m.HandleText(ctx, testKey, "Стартовый набор"))
	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepPackage, ses.Step)
	assert.Empty(t, ses.Draft.PackageType)
}

func TestUnknownPackagePayloadIgnored(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	m.HandleText(ctx, testKey, "Мария")
	m.HandleText(ctx, testKey, "Ольга")

	assert.Empty(t, m.HandleButton(ctx, testKey, ButtonPackage, "VIP"))
	ses, _ := m.sessions.Get(testKey)
	assert.Equal(t, StepPackage, ses.Step)
}

func TestDuplicateStartIgnored(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	require.NotEmpty(t, m.Start(ctx, testKey))
	m.HandleText(ctx, testKey, "Мария")
	assert.Empty(t, m.Start(ctx, testKey))

	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, "Мария", ses.Draft.ClientName)
}

func TestCancelDestroysSessionAndFreshStart(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	m.TrackMessage(testKey, 11)
	m.HandleText(ctx, testKey, "Мария")
	m.HandleText(ctx, testKey, "Ольга")
	m.HandleButton(ctx, testKey, ButtonPackage, string(sales.PackageStarter))

	effects := m.Cancel(ctx, testKey)
	require.Len(t, effects, 2)
	assert.Equal(t, EffectDelete, effects[0].Kind)
	assert.Equal(t, []int{11}, effects[0].MessageIDs)
	assert.Equal(t, textCancelled, effects[1].Text)
	assert.Equal(t, cancelNoticeTTL, effects[1].DeleteAfter)
	assert.False(t, m.Active(testKey))
	assert.Empty(t, store.records)

	m.Start(ctx, testKey)
	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepClientName, ses.Step)
	assert.Empty(t, ses.Draft.ClientName)
}

func TestCancelWithoutSessionIsSilent(t *testing.T) {
	m := newTestMachine(&recordingStore{})
	assert.Empty(t, m.Cancel(context.Background(), testKey))
}

func TestCallbackWithoutSessionAnswersExpired(t *testing.T) {
	m := newTestMachine(&recordingStore{})
	effects := m.HandleButton(context.Background(), testKey, ButtonAddTranches, "")
	require.Len(t, effects, 1)
	assert.Equal(t, EffectRespond, effects[0].Kind)
	assert.Equal(t, textSessionExpired, effects[0].Text)
}

func TestNewCalculationReplacesLiveSession(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	m.Start(ctx, testKey)
	m.HandleText(ctx, testKey, "Мария")

	effects := m.HandleButton(ctx, testKey, ButtonNewCalculation, "")
	assert.Equal(t, []EffectKind{EffectRespond, EffectDeleteSource, EffectSend}, kinds(effects))

	ses, ok := m.sessions.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, StepClientName, ses.Step)
	assert.Empty(t, ses.Draft.ClientName)
}

func TestTextWithoutSessionProducesNothing(t *testing.T) {
	m := newTestMachine(&recordingStore{})
	assert.Empty(t, m.HandleText(context.Background(), testKey, "привет"))
}

func TestStorageFaultDoesNotBlockSummary(t *testing.T) {
	store := &recordingStore{failAppend: true}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	effects := m.HandleText(ctx, testKey, "30000")

	require.NotEmpty(t, texts(effects))
	assert.Contains(t, texts(effects)[0], "Новая продажа!")
	assert.False(t, m.Active(testKey))
}

func TestIndependentConversationsDoNotLeak(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	keyA := sales.ConversationKey{ChatID: 100}
	keyB := sales.ConversationKey{ChatID: 100, ThreadID: 7}

	m.Start(ctx, keyA)
	m.Start(ctx, keyB)
	m.HandleText(ctx, keyA, "Мария")
	m.HandleText(ctx, keyB, "Иван")

	sesA, _ := m.sessions.Get(keyA)
	sesB, _ := m.sessions.Get(keyB)
	assert.Equal(t, "Мария", sesA.Draft.ClientName)
	assert.Equal(t, "Иван", sesB.Draft.ClientName)
}

func TestFinalizeEffectsShape(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.TrackMessage(testKey, 5)
	m.TrackMessage(testKey, 6)
	effects := m.HandleText(ctx, testKey, "30000")

	require.Len(t, effects, 3)
	assert.Equal(t, EffectDelete, effects[0].Kind)
	assert.Equal(t, []int{5, 6}, effects[0].MessageIDs)
	assert.Equal(t, EffectSend, effects[1].Kind)
	assert.Equal(t, EffectSend, effects[2].Kind)
	assert.Equal(t, "⬆️", effects[2].Text)
	assert.Equal(t, followUpDelay, effects[2].Delay)
	require.Len(t, effects[2].Keyboard, 1)
	assert.Equal(t, ButtonNewCalculation, effects[2].Keyboard[0][0].Key)
}

func TestLockTableEmptiesBetweenUpdates(t *testing.T) {
	store := &recordingStore{}
	m := newTestMachine(store)
	ctx := context.Background()

	walkToPaid(t, m, testKey)
	m.HandleText(ctx, testKey, "30000")
	m.Start(ctx, sales.ConversationKey{ChatID: 200})
	m.Cancel(ctx, sales.ConversationKey{ChatID: 200})

	m.mu.Lock()
	held := len(m.locks)
	m.mu.Unlock()
	assert.Zero(t, held)
}
