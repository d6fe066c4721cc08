package shipcode

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/vvatanabe/shipcode/internal/constant"
)

// APIConfig locates the shipment API. An empty BearerToken means requests
// are sent without an Authorization header.
type APIConfig struct {
	BaseURL     string `json:"baseUrl"`
	BearerToken string `json:"bearerToken,omitempty"`
}

// DefaultAPIConfig is the start-up configuration used when nothing else is configured.
func DefaultAPIConfig() APIConfig {
	return APIConfig{BaseURL: constant.DefaultBaseURL}
}

// PreferenceStore is the key-value persistence the ConfigManager writes its
// override to. Implementations absorb their own failures.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// ConfigProvider supplies the API configuration in effect for the next request.
type ConfigProvider interface {
	Current() APIConfig
}

// ConfigManagerOptions holds options for a ConfigManager.
type ConfigManagerOptions struct {
	Logger *slog.Logger
	Key    string
}

func WithConfigLogger(logger *slog.Logger) func(*ConfigManagerOptions) {
	return func(o *ConfigManagerOptions) {
		o.Logger = logger
	}
}

// WithConfigKey overrides the preference key the configuration is persisted under.
func WithConfigKey(key string) func(*ConfigManagerOptions) {
	return func(o *ConfigManagerOptions) {
		o.Key = key
	}
}

// ConfigManager owns the process-wide APIConfig. The lifecycle is:
// defaults at construction, overridden by the persisted preference, mutated
// by Update (persisted), and returned to defaults by Reset.
type ConfigManager struct {
	mu       sync.RWMutex
	defaults APIConfig
	current  APIConfig
	store    PreferenceStore
	key      string
	logger   *slog.Logger
}

// NewConfigManager creates a ConfigManager. store may be nil, in which case
// the configuration lives only in memory.
func NewConfigManager(defaults APIConfig, store PreferenceStore, optFns ...func(*ConfigManagerOptions)) *ConfigManager {
	o := &ConfigManagerOptions{
		Logger: slog.Default(),
		Key:    constant.KeyAPIConfig,
	}
	for _, opt := range optFns {
		opt(o)
	}
	if strings.TrimSpace(defaults.BaseURL) == "" {
		defaults.BaseURL = constant.DefaultBaseURL
	}
	m := &ConfigManager{
		defaults: defaults,
		current:  defaults,
		store:    store,
		key:      o.Key,
		logger:   o.Logger,
	}
	m.load()
	return m
}

func (m *ConfigManager) load() {
	if m.store == nil {
		return
	}
	raw, ok := m.store.Get(m.key)
	if !ok || raw == "" {
		return
	}
	var saved APIConfig
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		m.logger.Warn("ignoring saved API configuration", "key", m.key, "error", ConfigPersistenceError{Cause: err})
		return
	}
	m.current = merge(m.current, saved)
}

// Current returns a copy of the configuration in effect.
func (m *ConfigManager) Current() APIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Defaults returns the start-up configuration.
func (m *ConfigManager) Defaults() APIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// Update overrides the non-blank fields of cfg and persists the result.
// Blank fields keep their current value.
func (m *ConfigManager) Update(cfg APIConfig) APIConfig {
	m.mu.Lock()
	m.current = merge(m.current, cfg)
	current := m.current
	m.mu.Unlock()
	m.save(current)
	return current
}

// Reset drops every override and removes the persisted configuration.
func (m *ConfigManager) Reset() APIConfig {
	m.mu.Lock()
	m.current = m.defaults
	current := m.current
	m.mu.Unlock()
	if m.store != nil {
		m.store.Remove(m.key)
	}
	return current
}

func (m *ConfigManager) save(cfg APIConfig) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		m.logger.Warn("failed to encode API configuration", "error", err)
		return
	}
	m.store.Set(m.key, string(data))
}

func merge(base, override APIConfig) APIConfig {
	if v := strings.TrimRight(strings.TrimSpace(override.BaseURL), "/"); v != "" {
		base.BaseURL = v
	}
	if v := strings.TrimSpace(override.BearerToken); v != "" {
		base.BearerToken = v
	}
	return base
}
