package widget

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"seasonbot/internal/assistant"
	"seasonbot/internal/catalog"
	"seasonbot/internal/intent"
	"seasonbot/internal/logger"
	"seasonbot/internal/models"
	"seasonbot/internal/order"
	"seasonbot/internal/storage"
	"seasonbot/internal/wizard"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssistant struct {
	mu      sync.Mutex
	replies map[string]assistant.Reply
	block   chan struct{}
	calls   int
	entered chan struct{}
}

func (a *stubAssistant) Reply(ctx context.Context, history []models.ChatMessage, current *models.Order) assistant.Reply {
	a.mu.Lock()
	a.calls++
	block, entered := a.block, a.entered
	reply, ok := a.replies[history[len(history)-1].Content]
	a.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if !ok {
		return assistant.Reply{Text: "Certainly, Sir/Ma'am."}
	}
	return reply
}

type fixture struct {
	manager   *Manager
	assistant *stubAssistant
	store     *storage.MemoryStore
	clock     *clockwork.FakeClock
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStore()
	return newFixtureWithStore(t, store, store)
}

// newFixtureWithStore persists through backend; store is the memory store
// underneath it that assertions read from.
func newFixtureWithStore(t *testing.T, backend storage.Store, store *storage.MemoryStore) *fixture {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC))
	stub := &stubAssistant{replies: map[string]assistant.Reply{}}
	deps := Deps{
		Catalog:     c,
		Router:      intent.NewRouter(c).WithClock(clock.Now),
		Assistant:   stub,
		Reducer:     order.NewReducer(c, order.DefaultRules()),
		Persistence: storage.NewPersistence(backend, logger.Discard(), nil).WithClock(clock.Now),
		Logger:      logger.Discard(),
		Clock:       clock,
	}
	m := NewManager(deps)
	t.Cleanup(m.Close)
	return &fixture{manager: m, assistant: stub, store: store, clock: clock, deps: deps}
}

// heldStore parks the next write or delete of a draft key until released
type heldStore struct {
	*storage.MemoryStore

	mu      sync.Mutex
	op      string
	entered chan struct{}
	release chan struct{}
}

func (h *heldStore) holdNext(op string) (entered, release chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.op = op
	h.entered = make(chan struct{})
	h.release = make(chan struct{})
	return h.entered, h.release
}

func (h *heldStore) wait(op string, keys ...string) {
	h.mu.Lock()
	if h.op != op || !hasDraftKey(keys) {
		h.mu.Unlock()
		return
	}
	entered, release := h.entered, h.release
	h.op = ""
	h.mu.Unlock()

	close(entered)
	<-release
}

func hasDraftKey(keys []string) bool {
	for _, k := range keys {
		if strings.HasSuffix(k, ":"+storage.DraftKey) {
			return true
		}
	}
	return false
}

func (h *heldStore) Set(ctx context.Context, key, value string) error {
	h.wait("set", key)
	return h.MemoryStore.Set(ctx, key, value)
}

func (h *heldStore) Delete(ctx context.Context, keys ...string) error {
	h.wait("delete", keys...)
	return h.MemoryStore.Delete(ctx, keys...)
}

func newHeldFixture(t *testing.T) (*fixture, *heldStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	held := &heldStore{MemoryStore: mem}
	return newFixtureWithStore(t, held, mem), held
}

// openCartWithPendingPush leaves 101 in the session draft and a quantity
// change to 2 waiting in the wizard's debouncer
func openCartWithPendingPush(t *testing.T, f *fixture, s *Session) {
	t.Helper()
	require.NoError(t, s.SetTab(order.TabCart, "", ""))
	w, err := s.Wizard()
	require.NoError(t, err)

	_, err = w.AddItem("101")
	require.NoError(t, err)
	f.clock.Advance(wizard.DefaultUpdateDelay)
	require.Eventually(t, func() bool {
		o := s.Snapshot().Order
		return o != nil && len(o.Items) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.ChangeQuantity("101", 1))
}

func addAction(codes ...string) *models.OrderAction {
	a := &models.OrderAction{Action: models.ActionAdd}
	for _, c := range codes {
		a.Items = append(a.Items, models.OrderToolItem{ItemCode: c, Quantity: 1})
	}
	return a
}

func TestSession_Welcome(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Create(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Assalamu Alaikum! Welcome to **Four Season Restaurant**.\n\nI am **SeasonBot**, your personal waiter. How can I help you today?", snap.Messages[0].Content)
	assert.Equal(t, order.TabChat, snap.Tab)
	assert.Nil(t, snap.Order)
	assert.Len(t, snap.Questions, 3)

	_, err := f.store.Get(context.Background(), s.ID()+":"+storage.ChatKey)
	assert.NoError(t, err, "welcome is persisted")
}

func TestSession_SendLocal(t *testing.T) {
	f := newFixture(t)
	s := f.manager.Create(context.Background())

	res, err := s.Send(context.Background(), "  Show me the full menu ")
	require.NoError(t, err)
	assert.Equal(t, RouteLocal, res.Route)
	assert.Equal(t, "Opening the full menu for you! 📖", res.Reply.Content)
	assert.Equal(t, 0, f.assistant.calls)

	snap := s.Snapshot()
	assert.Equal(t, order.TabMenu, snap.Tab)
	require.NotNil(t, snap.Wizard)
	assert.Equal(t, wizard.ViewMenu, snap.Wizard.View)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Show me the full menu", snap.Messages[1].Content)
	assert.False(t, snap.Busy)

	_, err = s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSession_SendRemoteAddsItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assistant.replies["I would like two spring rolls please"] = assistant.Reply{
		Text:   "Added! Sir/Ma'am, would you like anything else?",
		Action: &models.OrderAction{Action: models.ActionAdd, Items: []models.OrderToolItem{{ItemCode: "108", Quantity: 2}, {ItemCode: "000", Quantity: 1}}},
	}
	s := f.manager.Create(ctx)

	res, err := s.Send(ctx, "I would like two spring rolls please")
	require.NoError(t, err)
	assert.Equal(t, RouteRemote, res.Route)
	assert.Equal(t, []order.Toast{{Message: "Added: THAI SPRING ROLL", Kind: order.ToastSuccess}}, res.Toasts)

	snap := s.Snapshot()
	require.NotNil(t, snap.Order)
	require.Len(t, snap.Order.Items, 1)
	assert.Equal(t, 2, snap.Order.Items[0].Quantity)
	assert.Equal(t, 1140, snap.Totals.Subtotal)
	assert.Equal(t, order.TabChat, snap.Tab)

	// a fresh manager over the same store restores chat and draft
	restored := NewManager(f.deps).Resume(ctx, s.ID())
	rs := restored.Snapshot()
	assert.Len(t, rs.Messages, 3)
	require.NotNil(t, rs.Order)
	assert.Equal(t, 1140, rs.Order.Subtotal)
}

func TestSession_Busy(t *testing.T) {
	f := newFixture(t)
	f.assistant.block = make(chan struct{})
	f.assistant.entered = make(chan struct{}, 1)
	s := f.manager.Create(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "tell me something nice")
		done <- err
	}()
	<-f.assistant.entered

	assert.True(t, s.Snapshot().Busy)
	_, err := s.Send(context.Background(), "and another thing")
	assert.ErrorIs(t, err, ErrBusy)

	close(f.assistant.block)
	require.NoError(t, <-done)
	assert.False(t, s.Snapshot().Busy)
	assert.Len(t, s.Snapshot().Messages, 3, "rejected message is not logged")
}

func TestSession_ConfirmFromChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assistant.replies["please add one chicken corn soup for me"] = assistant.Reply{Text: "Added!", Action: addAction("101")}
	f.assistant.replies["yes, go ahead with it"] = assistant.Reply{Text: "Thank you!", Action: &models.OrderAction{Action: models.ActionConfirm}}
	s := f.manager.Create(ctx)

	_, err := s.Send(ctx, "please add one chicken corn soup for me")
	require.NoError(t, err)
	res, err := s.Send(ctx, "yes, go ahead with it")
	require.NoError(t, err)

	require.NotNil(t, res.Confirmed)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, res.Confirmed.ID)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Order Success! Your Order ID is **"+res.Confirmed.ID+"**. Total: ৳745", res.Messages[0].Content)

	snap := s.Snapshot()
	assert.Nil(t, snap.Order)
	assert.Equal(t, res.Confirmed.ID, snap.LastOrder.ID)
	assert.Equal(t, models.MessageTypeOrderUpdate, snap.Messages[len(snap.Messages)-1].Type)

	_, err = f.store.Get(ctx, s.ID()+":"+storage.DraftKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "draft is cleared")
}

func TestSession_ConfirmDropsInFlightWizardPush(t *testing.T) {
	f, held := newHeldFixture(t)
	ctx := context.Background()
	f.assistant.replies["yes, go ahead with it"] = assistant.Reply{Text: "Thank you!", Action: &models.OrderAction{Action: models.ActionConfirm}}
	s := f.manager.Create(ctx)
	openCartWithPendingPush(t, f, s)

	entered, release := held.holdNext("delete")
	done := make(chan *Result, 1)
	go func() {
		res, err := s.Send(ctx, "yes, go ahead with it")
		assert.NoError(t, err)
		done <- res
	}()

	// the draft delete is parked with the session locked; the push fires
	// and waits for the session behind it
	<-entered
	f.clock.Advance(wizard.DefaultUpdateDelay)
	time.Sleep(20 * time.Millisecond)
	close(release)

	res := <-done
	require.NotNil(t, res.Confirmed)
	assert.Equal(t, 745, res.Confirmed.Total)

	f.clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)

	snap := s.Snapshot()
	assert.Nil(t, snap.Order)
	assert.Nil(t, snap.Wizard)
	assert.Equal(t, order.TabChat, snap.Tab)
	_, err := f.store.Get(ctx, s.ID()+":"+storage.DraftKey)
	assert.ErrorIs(t, err, storage.ErrNotFound, "confirmed draft stays cleared")
}

func TestSession_StaleWizardDraftDropped(t *testing.T) {
	for _, tc := range []struct {
		name   string
		finish func(s *Session, draft *models.Order)
	}{
		{
			name:   "reset",
			finish: func(s *Session, draft *models.Order) { s.Reset(context.Background()) },
		},
		{
			name:   "submit",
			finish: func(s *Session, draft *models.Order) {
				draft.ID, draft.Status = "ORD-0000BEEF", models.OrderStatusConfirmed
				s.FinalizeOrder(draft)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			s := f.manager.Create(ctx)
			openCartWithPendingPush(t, f, s)

			w, err := s.Wizard()
			require.NoError(t, err)
			s.mu.Lock()
			gen := s.gen
			s.mu.Unlock()
			draft := w.Draft()

			tc.finish(s, draft.Clone())
			// a push taken before the draft was finished arrives late
			s.updateFromWizard(w, gen, 0, draft)

			snap := s.Snapshot()
			assert.Nil(t, snap.Order)
			assert.Equal(t, order.TabChat, snap.Tab)
			_, err = f.store.Get(ctx, s.ID()+":"+storage.DraftKey)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

func TestSession_ChatEditBeatsInFlightWizardPush(t *testing.T) {
	f, held := newHeldFixture(t)
	ctx := context.Background()
	f.assistant.replies["please add one spring roll as well for me"] = assistant.Reply{Text: "Added!", Action: addAction("108")}
	s := f.manager.Create(ctx)
	openCartWithPendingPush(t, f, s)

	entered, release := held.holdNext("set")
	done := make(chan struct{})
	go func() {
		_, err := s.Send(ctx, "please add one spring roll as well for me")
		assert.NoError(t, err)
		close(done)
	}()

	<-entered
	f.clock.Advance(wizard.DefaultUpdateDelay)
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done
	time.Sleep(20 * time.Millisecond)

	// the chat edit synced into the wizard wins over the older quantity push
	snap := s.Snapshot()
	require.NotNil(t, snap.Order)
	require.Len(t, snap.Order.Items, 2)
	assert.Equal(t, 1, snap.Order.Items[0].Quantity)
	assert.Equal(t, 745+570, snap.Order.Total)
	require.NotNil(t, snap.Wizard)
	assert.Len(t, snap.Wizard.Items, 2)

	raw, err := f.store.Get(ctx, s.ID()+":"+storage.DraftKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"108"`)
}

func TestSession_WizardFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.manager.Create(ctx)

	_, err := s.Wizard()
	assert.ErrorIs(t, err, ErrWizardClosed)

	require.NoError(t, s.SetTab(order.TabMenu, "chinese", "soups"))
	w, err := s.Wizard()
	require.NoError(t, err)
	assert.Equal(t, "soups", w.State().SubcategoryID)

	_, err = w.AddItem("101")
	require.NoError(t, err)
	_, err = w.AddItem("101")
	require.NoError(t, err)

	f.clock.Advance(wizard.DefaultUpdateDelay)
	require.Eventually(t, func() bool {
		o := s.Snapshot().Order
		return o != nil && len(o.Items) == 1 && o.Items[0].Quantity == 2
	}, time.Second, 5*time.Millisecond, "debounced push reaches the session")

	require.NoError(t, s.SetTab(order.TabCart, "", ""))
	require.NoError(t, w.Navigate(wizard.ViewCheckout))
	phone := "01712345678"
	require.NoError(t, w.UpdateCustomer(wizard.CustomerUpdate{Phone: &phone}))

	final, err := w.Submit()
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, order.TabChat, snap.Tab)
	assert.Nil(t, snap.Wizard)
	assert.Nil(t, snap.Order)
	assert.Equal(t, final.ID, snap.LastOrder.ID)
	last := snap.Messages[len(snap.Messages)-1]
	assert.Equal(t, "Order Confirmed! ID: **"+final.ID+"**", last.Content)
	assert.Equal(t, final.ID, last.Metadata.OrderID)
}

func TestSession_ChatEditsReachOpenWizard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assistant.replies["put a fried rice in there too"] = assistant.Reply{Text: "Added!", Action: addAction("221")}
	s := f.manager.Create(ctx)

	require.NoError(t, s.SetTab(order.TabCart, "", ""))
	_, err := s.Send(ctx, "put a fried rice in there too")
	require.NoError(t, err)

	w, err := s.Wizard()
	require.NoError(t, err)
	require.Len(t, w.State().Items, 1)
	assert.Equal(t, "221", w.State().Items[0].Code)
}

func TestSession_Reset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.assistant.replies["please add one chicken corn soup for me"] = assistant.Reply{Text: "Added!", Action: addAction("101")}
	s := f.manager.Create(ctx)
	_, err := s.Send(ctx, "please add one chicken corn soup for me")
	require.NoError(t, err)

	s.Reset(ctx)
	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 1)
	assert.Nil(t, snap.Order)
}

func TestManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	updates := map[string]int{}
	f.manager.Subscribe(func(id string, u Update) {
		mu.Lock()
		defer mu.Unlock()
		updates[id]++
	})

	_, err := f.manager.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	a := f.manager.Create(ctx)
	b := f.manager.Create(ctx)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Same(t, a, f.manager.Resume(ctx, a.ID()))
	assert.Equal(t, 2, f.manager.Count())

	_, err = a.Send(ctx, "menu")
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, 2, updates[a.ID()], "one update for the user message and one for the reply")
	mu.Unlock()

	f.clock.Advance(time.Hour)
	_, err = b.Send(ctx, "menu")
	require.NoError(t, err)
	assert.Equal(t, 1, f.manager.EvictIdle(30*time.Minute))
	_, err = f.manager.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = a.Send(ctx, "hello there")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, f.manager.Delete(ctx, b.ID()))
	assert.ErrorIs(t, f.manager.Delete(ctx, b.ID()), ErrSessionNotFound)
	keys, err := f.store.KeysWithSuffix(ctx, storage.DraftKey)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestManager_SweepLeavesLiveSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.deps.Persistence.WithActive(f.manager.Active)

	idle := f.manager.Create(ctx)
	live := f.manager.Create(ctx)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err := live.Send(ctx, "menu")
	require.NoError(t, err)
	require.Equal(t, 1, f.manager.EvictIdle(24*time.Hour))
	assert.False(t, f.manager.Active(idle.ID()))
	assert.True(t, f.manager.Active(live.ID()))

	assert.Equal(t, 1, f.deps.Persistence.Sweep(ctx))

	raw, err := f.store.Get(ctx, idle.ID()+":"+storage.ChatKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
	raw, err = f.store.Get(ctx, live.ID()+":"+storage.ChatKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"welcome"`)
}
