package constant

import "time"

const (
	DefaultBaseURL           = "https://barcode-api-ecolab.azurewebsites.net"
	DefaultThemeColor        = "#006BD3"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultGeneratorDelay    = 300 * time.Millisecond
	DefaultPreferencesTable  = "shipcode-preferences"
	DefaultPreferencesFile   = "preferences.json"
	DefaultPreviewAddr       = "127.0.0.1:8080"
	DefaultExportDir         = "codes"
	DefaultExportConcurrency = 3
)

// Persisted preference keys.
const (
	KeyThemeColor  = "barcode_theme_color"
	KeyTextPrefix  = "barcode_text_"
	KeyModePrefix  = "barcode_mode_"
	KeySearchValue = "shipment_search_value"
	KeyAPIConfig   = "shipment_api_config"
)
