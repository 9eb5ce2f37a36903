// Package storage is a best-effort JSON key-value adapter. Every failure is
// logged and degraded: reads fall back to a default, writes become no-ops.
package storage

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

// Keys under which the practice state is stored.
const (
	CumulativeMistakesKey = "jyutping_practice_incorrect_answers"
	SessionMistakesKey    = "jyutping_practice_current_session_incorrect_answers"
	SettingsKey           = "jyutping_practice_settings"
)

// Backend stores raw values by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Adapter reads and writes JSON values through a Backend without ever
// returning an error to the caller.
type Adapter struct {
	backend Backend
	logger  *zap.Logger
}

// New returns an Adapter over backend. A nil logger discards failures.
func New(backend Backend, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{backend: backend, logger: logger.Named("storage")}
}

// Load decodes the value stored under key into a copy of def. An absent key
// or any failure yields def.
func Load[T any](a *Adapter, key string, def T) T {
	raw, ok, err := a.backend.Get(context.Background(), key)
	if err != nil {
		a.logger.Error("failed to load key", zap.String("key", key), zap.Error(err))
		return def
	}
	if !ok {
		return def
	}
	out := def
	if err := json.Unmarshal(raw, &out); err != nil {
		a.logger.Error("failed to decode key", zap.String("key", key), zap.Error(err))
		return def
	}
	return out
}

// Save encodes value and stores it under key.
func (a *Adapter) Save(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("failed to encode key", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.backend.Put(context.Background(), key, raw); err != nil {
		a.logger.Error("failed to save key", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes key.
func (a *Adapter) Clear(key string) {
	if err := a.backend.Delete(context.Background(), key); err != nil {
		a.logger.Error("failed to clear key", zap.String("key", key), zap.Error(err))
	}
}

func mistakesKey(scope model.MistakeScope) string {
	if scope == model.ScopeSession {
		return SessionMistakesKey
	}
	return CumulativeMistakesKey
}

// LoadMistakes returns the stored mistake log for scope, empty when absent.
func (a *Adapter) LoadMistakes(scope model.MistakeScope) []model.MistakeRecord {
	return Load(a, mistakesKey(scope), []model.MistakeRecord{})
}

// SaveMistakes stores the mistake log for scope.
func (a *Adapter) SaveMistakes(scope model.MistakeScope, records []model.MistakeRecord) {
	if records == nil {
		records = []model.MistakeRecord{}
	}
	a.Save(mistakesKey(scope), records)
}

// ClearMistakes removes the mistake log for scope.
func (a *Adapter) ClearMistakes(scope model.MistakeScope) {
	a.Clear(mistakesKey(scope))
}

// LoadSettings returns the stored settings. Fields missing from the stored
// object keep their default values.
func (a *Adapter) LoadSettings() model.Settings {
	return Load(a, SettingsKey, model.DefaultSettings())
}

// SaveSettings stores settings.
func (a *Adapter) SaveSettings(settings model.Settings) {
	a.Save(SettingsKey, settings)
}

// ClearSettings removes the stored settings.
func (a *Adapter) ClearSettings() {
	a.Clear(SettingsKey)
}

// Memory is an in-process Backend.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemory returns an empty in-process Backend.
func NewMemory() *Memory {
	return &Memory{values: map[string][]byte{}}
}

// Get implements Backend.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements Backend.
func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
