// Package settings persists drill settings in a string key-value store.
package settings

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/verte-zerg/sprint/internal/model"
)

// Keys under which the four settings are stored.
const (
	KeyTimeLimit    = "sprintTimeLimit"
	KeyMinFactor    = "sprintMinFactor"
	KeyMaxFactor    = "sprintMaxFactor"
	KeyNoDuplicates = "sprintNoDuplicates"
)

// Store loads and saves the drill settings.
type Store interface {
	Load(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, s model.Settings) error
}

// KV is a string key-value backend. GetSetting returns "" for missing keys.
type KV interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// KVStore stores settings as four string entries.
type KVStore struct {
	kv KV
}

// NewKVStore returns a Store backed by kv.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

// Load reads all four entries. A missing or unparsable entry falls back to
// its default; read errors are joined and returned with the settings built
// so far, so callers can keep going on defaults.
func (s *KVStore) Load(ctx context.Context) (model.Settings, error) {
	def := model.DefaultSettings()
	var errs []error

	get := func(key string) string {
		v, err := s.kv.GetSetting(ctx, key)
		if err != nil {
			errs = append(errs, err)
			return ""
		}
		return v
	}

	out := model.Settings{
		TimeLimitMinutes: parseInt(get(KeyTimeLimit), def.TimeLimitMinutes),
		MinFactor:        parseInt(get(KeyMinFactor), def.MinFactor),
		MaxFactor:        parseInt(get(KeyMaxFactor), def.MaxFactor),
		NoDuplicates:     parseBool(get(KeyNoDuplicates), def.NoDuplicates),
	}
	return out, errors.Join(errs...)
}

// Save overwrites all four entries.
func (s *KVStore) Save(ctx context.Context, st model.Settings) error {
	entries := []struct {
		key   string
		value string
	}{
		{KeyTimeLimit, strconv.Itoa(st.TimeLimitMinutes)},
		{KeyMinFactor, strconv.Itoa(st.MinFactor)},
		{KeyMaxFactor, strconv.Itoa(st.MaxFactor)},
		{KeyNoDuplicates, strconv.FormatBool(st.NoDuplicates)},
	}
	for _, e := range entries {
		if err := s.kv.SetSetting(ctx, e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func parseInt(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(v string, fallback bool) bool {
	switch v {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

// GetSetting implements KV.
func (m *MemoryKV) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

// SetSetting implements KV.
func (m *MemoryKV) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
