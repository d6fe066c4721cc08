package prefs

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/vvatanabe/shipcode/internal/constant"
)

// Preferences is a typed view over a Store using the application's
// logical keys. It satisfies shipcode.PreferenceStore.
type Preferences struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Preferences {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{store: store, logger: logger}
}

func (p *Preferences) Get(key string) (string, bool) {
	return p.store.Get(key)
}

func (p *Preferences) Set(key, value string) {
	p.store.Set(key, value)
}

func (p *Preferences) Remove(key string) {
	p.store.Remove(key)
}

// GetString returns the stored value or def when the key is absent.
func (p *Preferences) GetString(key, def string) string {
	if v, ok := p.store.Get(key); ok {
		return v
	}
	return def
}

// GetBool returns the stored boolean or def when absent or unparsable.
func (p *Preferences) GetBool(key string, def bool) bool {
	v, ok := p.store.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.logger.Warn("discarding corrupt preference", "error", StorageError{Op: "decode", Key: key, Cause: err})
		return def
	}
	return b
}

func (p *Preferences) SetBool(key string, v bool) {
	p.store.Set(key, strconv.FormatBool(v))
}

// GetJSON decodes the stored value into v. It reports false, leaving v
// untouched, when the key is absent or the stored JSON is corrupt; corrupt
// data is removed from the store.
func (p *Preferences) GetJSON(key string, v any) bool {
	raw, ok := p.store.Get(key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		p.logger.Warn("discarding corrupt preference", "error", StorageError{Op: "decode", Key: key, Cause: err})
		p.store.Remove(key)
		return false
	}
	return true
}

func (p *Preferences) SetJSON(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("failed to encode preference", "error", StorageError{Op: "encode", Key: key, Cause: err})
		return
	}
	p.store.Set(key, string(data))
}

func (p *Preferences) ThemeColor() string {
	return p.GetString(constant.KeyThemeColor, constant.DefaultThemeColor)
}

func (p *Preferences) SetThemeColor(hex string) {
	p.store.Set(constant.KeyThemeColor, hex)
}

func TextKey(id int) string {
	return constant.KeyTextPrefix + strconv.Itoa(id)
}

func ModeKey(id int) string {
	return constant.KeyModePrefix + strconv.Itoa(id)
}

// CardText returns the saved text of generator card id, or def.
func (p *Preferences) CardText(id int, def string) string {
	return p.GetString(TextKey(id), def)
}

func (p *Preferences) SetCardText(id int, text string) {
	p.store.Set(TextKey(id), text)
}

// CardQRMode reports whether generator card id was last shown as a QR code.
func (p *Preferences) CardQRMode(id int) bool {
	return p.GetBool(ModeKey(id), false)
}

func (p *Preferences) SetCardQRMode(id int, qr bool) {
	p.SetBool(ModeKey(id), qr)
}

func (p *Preferences) SearchTerm() string {
	return p.GetString(constant.KeySearchValue, "")
}

func (p *Preferences) SetSearchTerm(term string) {
	p.store.Set(constant.KeySearchValue, term)
}
