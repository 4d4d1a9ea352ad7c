package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"kasirinaja/checkout/internal/config"
	"kasirinaja/checkout/internal/domain"
	"kasirinaja/checkout/internal/events"
	"kasirinaja/checkout/internal/store"
	"kasirinaja/checkout/internal/xid"
)

const defaultTerminalID = "terminal-1"

type ManagerConfig struct {
	Store            OrderStore
	Loyalty          LoyaltySource
	Settings         config.SettingsProvider
	InvoiceFields    []domain.InvoiceField
	FocusDefaultMode bool
	PersistTimeout   time.Duration
}

type managedSession struct {
	session    *Session
	recorder   *Recorder
	terminalID string
}

// Manager keeps the open payment sessions of every terminal. A terminal shows
// one payment screen at a time, so opening a session closes the terminal's
// previous one.
type Manager struct {
	cfg ManagerConfig

	mu          sync.Mutex
	sessions    map[string]*managedSession
	byInvoice   map[string]string
	byTerminal  map[string]string
	dispatchers map[string]*events.Dispatcher
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:         cfg,
		sessions:    make(map[string]*managedSession),
		byInvoice:   make(map[string]string),
		byTerminal:  make(map[string]string),
		dispatchers: make(map[string]*events.Dispatcher),
	}
}

// Dispatcher returns the listener registry of terminalID, creating it on
// first use.
func (m *Manager) Dispatcher(terminalID string) *events.Dispatcher {
	terminalID = normalizeTerminal(terminalID)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatcherLocked(terminalID)
}

func (m *Manager) dispatcherLocked(terminalID string) *events.Dispatcher {
	d, ok := m.dispatchers[terminalID]
	if !ok {
		d = events.NewDispatcher()
		m.dispatchers[terminalID] = d
	}
	return d
}

func (m *Manager) Open(ctx context.Context, terminalID string, invoiceID string) (*Session, *Recorder, error) {
	terminalID = normalizeTerminal(terminalID)
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, nil, fmt.Errorf("%w: invoice_id is required", store.ErrInvalidInput)
	}

	m.mu.Lock()
	var stale []*Session
	if id, ok := m.byTerminal[terminalID]; ok {
		stale = append(stale, m.forgetLocked(id))
	}
	if id, ok := m.byInvoice[invoiceID]; ok {
		stale = append(stale, m.forgetLocked(id))
	}
	dispatcher := m.dispatcherLocked(terminalID)
	m.mu.Unlock()

	closeAll(stale)

	recorder := NewRecorder()
	session, err := Open(ctx, invoiceID, Options{
		Store:            m.cfg.Store,
		Loyalty:          m.cfg.Loyalty,
		Settings:         m.cfg.Settings,
		Presenter:        recorder,
		Dispatcher:       dispatcher,
		InvoiceFields:    m.cfg.InvoiceFields,
		FocusDefaultMode: m.cfg.FocusDefaultMode,
		PersistTimeout:   m.cfg.PersistTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	// Another Open may have registered for the terminal or invoice while this
	// one was loading. The newest session wins.
	m.mu.Lock()
	var displaced []*Session
	if id, ok := m.byTerminal[terminalID]; ok {
		displaced = append(displaced, m.forgetLocked(id))
	}
	if id, ok := m.byInvoice[session.InvoiceID()]; ok {
		displaced = append(displaced, m.forgetLocked(id))
	}
	m.sessions[session.ID()] = &managedSession{session: session, recorder: recorder, terminalID: terminalID}
	m.byInvoice[session.InvoiceID()] = session.ID()
	m.byTerminal[terminalID] = session.ID()
	m.mu.Unlock()

	closeAll(displaced)
	return session, recorder, nil
}

func (m *Manager) Get(sessionID string) (*Session, *Recorder, error) {
	if !xid.Valid(sessionIDPrefix, sessionID) {
		return nil, nil, ErrSessionNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	managed := m.liveLocked(sessionID)
	if managed == nil {
		return nil, nil, ErrSessionNotFound
	}
	return managed.session, managed.recorder, nil
}

// Dispatch delivers ev to every listener on the session's terminal.
func (m *Manager) Dispatch(ctx context.Context, sessionID string, ev events.Event) (int, error) {
	m.mu.Lock()
	managed := m.liveLocked(sessionID)
	if managed == nil {
		m.mu.Unlock()
		return 0, ErrSessionNotFound
	}
	dispatcher := m.dispatcherLocked(managed.terminalID)
	m.mu.Unlock()
	return dispatcher.Dispatch(ctx, ev), nil
}

func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	session := m.forgetLocked(sessionID)
	m.mu.Unlock()
	if session == nil {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// HandleCallback routes a gateway callback to the session open for its
// invoice. The recorder is returned with the session since a callback that
// completes the payment closes the session.
func (m *Manager) HandleCallback(ctx context.Context, cb domain.GatewayCallback) (*Session, *Recorder, *domain.Invoice, error) {
	m.mu.Lock()
	var managed *managedSession
	if id, ok := m.byInvoice[strings.TrimSpace(cb.InvoiceID)]; ok {
		managed = m.liveLocked(id)
	}
	m.mu.Unlock()
	if managed == nil {
		return nil, nil, nil, fmt.Errorf("%w: invoice %s", ErrSessionNotFound, cb.InvoiceID)
	}

	finalized, err := managed.session.HandleGatewayCallback(ctx, cb)
	return managed.session, managed.recorder, finalized, err
}

// CloseAll closes every session. It is called on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id := range m.sessions {
		if session := m.forgetLocked(id); session != nil {
			sessions = append(sessions, session)
		}
	}
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// liveLocked returns the session registered under sessionID. A session that
// closed itself, e.g. after a successful submit, is dropped instead.
func (m *Manager) liveLocked(sessionID string) *managedSession {
	managed, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	if managed.session.Closed() {
		m.forgetLocked(sessionID)
		return nil
	}
	return managed
}

func (m *Manager) forgetLocked(sessionID string) *Session {
	managed, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(m.sessions, sessionID)
	if m.byInvoice[managed.session.InvoiceID()] == sessionID {
		delete(m.byInvoice, managed.session.InvoiceID())
	}
	if m.byTerminal[managed.terminalID] == sessionID {
		delete(m.byTerminal, managed.terminalID)
	}
	return managed.session
}

func closeAll(sessions []*Session) {
	for _, session := range sessions {
		if session != nil {
			session.Close()
		}
	}
}

func normalizeTerminal(terminalID string) string {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return defaultTerminalID
	}
	return terminalID
}
