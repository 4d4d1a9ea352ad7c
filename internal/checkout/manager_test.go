package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/events"
	"kasirinaja/checkout/internal/store"
	"kasirinaja/checkout/internal/store/memory"
)

// stallingStore holds every invoice load until release is closed.
type stallingStore struct {
	*memory.Store
	arrived chan string
	release chan struct{}
}

func (s *stallingStore) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	s.arrived <- invoiceID
	select {
	case <-s.release:
		return s.Store.GetInvoice(ctx, invoiceID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestManager() *Manager {
	return NewManager(ManagerConfig{Store: newTestStore(), Settings: testSettings})
}

func TestManagerOpenReplacesTerminalSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first, _, err := m.Open(ctx, "terminal-a1", "POS-INV-0001")
	require.NoError(t, err)
	second, _, err := m.Open(ctx, "terminal-a1", "SINV-EMPTY")
	require.NoError(t, err)

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, 2, m.Dispatcher("terminal-a1").Len())

	_, _, err = m.Get(first.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, _, err := m.Get(second.ID())
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestManagerConcurrentOpenKeepsOneSessionPerTerminal(t *testing.T) {
	orderStore := &stallingStore{Store: newTestStore(), arrived: make(chan string, 2), release: make(chan struct{})}
	m := NewManager(ManagerConfig{Store: orderStore, Settings: testSettings})
	t.Cleanup(m.CloseAll)

	type opened struct {
		session *Session
		err     error
	}
	results := make(chan opened, 2)
	for _, invoiceID := range []string{"POS-INV-0001", "SINV-EMPTY"} {
		invoiceID := invoiceID
		go func() {
			session, _, err := m.Open(context.Background(), "terminal-a1", invoiceID)
			results <- opened{session: session, err: err}
		}()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-orderStore.arrived:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected both opens to load their invoice")
		}
	}
	close(orderStore.release)

	var sessions []*Session
	for i := 0; i < 2; i++ {
		result := <-results
		require.NoError(t, result.err)
		sessions = append(sessions, result.session)
	}

	live := 0
	for _, session := range sessions {
		if _, _, err := m.Get(session.ID()); err == nil {
			live++
			assert.False(t, session.Closed())
		} else {
			assert.True(t, session.Closed())
		}
	}
	assert.Equal(t, 1, live)
	assert.Equal(t, 2, m.Dispatcher("terminal-a1").Len())
}

func TestManagerOpenRequiresInvoice(t *testing.T) {
	_, _, err := newTestManager().Open(context.Background(), "terminal-a1", " ")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, _, err = newTestManager().Open(context.Background(), "terminal-a1", "POS-INV-404")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManagerDispatchReachesTerminalListeners(t *testing.T) {
	m := newTestManager()
	session, _, err := m.Open(context.Background(), "terminal-a1", "POS-INV-0001")
	require.NoError(t, err)
	require.NoError(t, session.SelectMode("cash"))

	delivered, err := m.Dispatch(context.Background(), session.ID(), events.Event{Kind: events.KindClick, Target: "cart"})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, session.Snapshot().ActiveMode)

	_, err = m.Dispatch(context.Background(), "pay-missing", events.Event{Kind: events.KindClick})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerRoutesCallbackByInvoice(t *testing.T) {
	m := newTestManager()
	session, recorder, err := m.Open(context.Background(), "terminal-a1", "POS-INV-0001")
	require.NoError(t, err)
	require.NoError(t, session.SelectMode("qris"))
	recorder.Drain()

	routed, rec, inv, err := m.HandleCallback(context.Background(), domain.GatewayCallback{
		InvoiceID: "POS-INV-0001",
		Success:   true,
		Amount:    decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	assert.Same(t, session, routed)
	require.NotNil(t, inv)
	assert.Equal(t, domain.InvoiceStatusSubmitted, inv.Status)
	assert.Same(t, recorder, rec)
	assert.Equal(t, "Payment Received", recorder.Drain().Notices[0].Title)

	_, _, err = m.Get(session.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, _, _, err = m.HandleCallback(context.Background(), domain.GatewayCallback{InvoiceID: "POS-INV-404", Success: true})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerCloseAll(t *testing.T) {
	m := newTestManager()
	a, _, err := m.Open(context.Background(), "terminal-a1", "POS-INV-0001")
	require.NoError(t, err)
	b, _, err := m.Open(context.Background(), "terminal-a2", "SINV-EMPTY")
	require.NoError(t, err)

	m.CloseAll()

	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	assert.Equal(t, 0, m.Dispatcher("terminal-a1").Len())
	assert.ErrorIs(t, m.Close(a.ID()), ErrSessionNotFound)
}
