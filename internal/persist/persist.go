// Package persist stores the three durable records (conversation history,
// developer configuration and the developer-mode flag) as JSON values in a
// key/value capability.
//
// Every operation is best-effort: failures are logged and swallowed, and a
// record that cannot be read or decoded falls back to its default without
// affecting the other two.
package persist

import (
	"encoding/json"

	"go.uber.org/zap"

	"lumen/internal/models"
)

const (
	KeyHistory   = "lumen.history"
	KeyDevConfig = "lumen.dev_config"
	KeyDevMode   = "lumen.dev_mode"
)

// Keys lists every record the adapter owns.
var Keys = []string{KeyHistory, KeyDevConfig, KeyDevMode}

// KV is the durable string key/value capability.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type Adapter struct {
	kv  KV
	log *zap.Logger
}

func New(kv KV, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{kv: kv, log: log.Named("persist")}
}

// LoadHistory returns the persisted conversation, or nil when absent or corrupt.
func (a *Adapter) LoadHistory() []models.Message {
	var msgs []models.Message
	if !a.load(KeyHistory, &msgs) {
		return nil
	}
	valid := msgs[:0]
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			a.log.Warn("dropping malformed history entry", zap.Error(err))
			continue
		}
		valid = append(valid, m)
	}
	return valid
}

func (a *Adapter) SaveHistory(msgs []models.Message) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	a.save(KeyHistory, msgs)
}

// LoadDevConfig overlays the persisted record on the defaults; fields missing
// from the record keep their default values.
func (a *Adapter) LoadDevConfig() models.DevConfig {
	cfg := models.DefaultDevConfig()
	overlay := cfg
	if !a.load(KeyDevConfig, &overlay) {
		return cfg
	}
	return overlay.Clamp()
}

func (a *Adapter) SaveDevConfig(cfg models.DevConfig) {
	a.save(KeyDevConfig, cfg)
}

func (a *Adapter) LoadDevMode() bool {
	var on bool
	if !a.load(KeyDevMode, &on) {
		return false
	}
	return on
}

func (a *Adapter) SaveDevMode(on bool) {
	a.save(KeyDevMode, on)
}

// Reset removes every record.
func (a *Adapter) Reset() {
	for _, key := range Keys {
		if err := a.kv.Remove(key); err != nil {
			a.log.Warn("remove failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// load decodes key into v and reports whether v now holds persisted data.
func (a *Adapter) load(key string, v any) bool {
	raw, ok, err := a.kv.Get(key)
	if err != nil {
		a.log.Warn("read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		a.log.Warn("corrupt record, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (a *Adapter) save(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		a.log.Error("encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.kv.Set(key, string(b)); err != nil {
		a.log.Warn("write failed", zap.String("key", key), zap.Error(err))
	}
}
