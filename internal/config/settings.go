package config

import "sync"

// Settings are read at every numeric operation so a change takes effect on
// the next keystroke.
type Settings struct {
	Currency            string `json:"currency"`
	Precision           int32  `json:"precision"`
	RoundingEnabled     bool   `json:"rounding_enabled"`
	AllowPartialPayment bool   `json:"allow_partial_payment"`
}

type SettingsProvider interface {
	CurrentSettings() Settings
}

// CurrentSettings lets a fixed Settings value act as its own provider.
func (s Settings) CurrentSettings() Settings {
	return s
}

type LiveSettings struct {
	mu      sync.RWMutex
	current Settings
}

func NewLiveSettings(initial Settings) *LiveSettings {
	return &LiveSettings{current: initial}
}

func (l *LiveSettings) CurrentSettings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

func (l *LiveSettings) Update(apply func(*Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	apply(&l.current)
}
