package shipcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/constant"
)

type mapStore map[string]string

func (m mapStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapStore) Set(key, value string) { m[key] = value }

func (m mapStore) Remove(key string) { delete(m, key) }

func TestNewConfigManager(t *testing.T) {
	type testCase struct {
		name  string
		store mapStore
		want  shipcode.APIConfig
	}
	defaults := shipcode.APIConfig{BaseURL: "http://defaults"}
	tests := []testCase{
		{
			name:  "no saved configuration",
			store: mapStore{},
			want:  defaults,
		},
		{
			name:  "saved configuration overrides defaults",
			store: mapStore{constant.KeyAPIConfig: `{"baseUrl":"http://saved/","bearerToken":"tok"}`},
			want:  shipcode.APIConfig{BaseURL: "http://saved", BearerToken: "tok"},
		},
		{
			name:  "corrupt configuration is ignored",
			store: mapStore{constant.KeyAPIConfig: `{not json`},
			want:  defaults,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := shipcode.NewConfigManager(defaults, tt.store)
			assert.Equal(t, tt.want, m.Current())
			assert.Equal(t, defaults, m.Defaults())
		})
	}
}

func TestConfigManager_UpdateAndReset(t *testing.T) {
	store := mapStore{}
	m := shipcode.NewConfigManager(shipcode.DefaultAPIConfig(), store)
	assert.Equal(t, constant.DefaultBaseURL, m.Current().BaseURL)

	got := m.Update(shipcode.APIConfig{BaseURL: " http://localhost:5000/ "})
	assert.Equal(t, shipcode.APIConfig{BaseURL: "http://localhost:5000"}, got)
	require.Contains(t, store, constant.KeyAPIConfig)

	got = m.Update(shipcode.APIConfig{BearerToken: "secret"})
	assert.Equal(t, shipcode.APIConfig{BaseURL: "http://localhost:5000", BearerToken: "secret"}, got)

	reloaded := shipcode.NewConfigManager(shipcode.DefaultAPIConfig(), store)
	assert.Equal(t, got, reloaded.Current())

	assert.Equal(t, shipcode.DefaultAPIConfig(), m.Reset())
	assert.NotContains(t, store, constant.KeyAPIConfig)
}

func TestConfigManager_NilStore(t *testing.T) {
	m := shipcode.NewConfigManager(shipcode.APIConfig{}, nil, shipcode.WithConfigKey("other"))
	assert.Equal(t, constant.DefaultBaseURL, m.Current().BaseURL)
	m.Update(shipcode.APIConfig{BaseURL: "http://x"})
	assert.Equal(t, "http://x", m.Current().BaseURL)
}
