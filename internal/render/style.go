package render

// LinearOptions shape a Code 128 rendering. Lengths are SVG user units.
type LinearOptions struct {
	ModuleWidth float64
	BarHeight   int
	Margin      int
	FontSize    int
	ShowLabel   bool
}

// QROptions shape a QR rendering. Size is the target edge in pixels and is
// rounded down to a whole number of pixels per module; Margin is the quiet
// zone in modules.
type QROptions struct {
	Size   int
	Margin int
	Level  ECLevel
}

type Style struct {
	Linear      LinearOptions
	QR          QROptions
	Transparent bool
}

var (
	// GeneratorStyle is used by the standalone generator cards.
	GeneratorStyle = Style{
		Linear: LinearOptions{ModuleWidth: 2, BarHeight: 80, Margin: 10, FontSize: 14, ShowLabel: true},
		QR:     QROptions{Size: 200, Margin: 2, Level: ECLevelM},
	}
	// RecordStyle is used for shipment and delivery numbers.
	RecordStyle = Style{
		Linear: LinearOptions{ModuleWidth: 2, BarHeight: 50, Margin: 5, FontSize: 12, ShowLabel: true},
		QR:     QROptions{Size: 150, Margin: 2, Level: ECLevelM},
	}
	// ItemStyle is used for the fields of delivery items.
	ItemStyle = Style{
		Linear: LinearOptions{ModuleWidth: 1.5, BarHeight: 40, Margin: 3, FontSize: 10, ShowLabel: true},
		QR:     QROptions{Size: 80, Margin: 1, Level: ECLevelM},
	}
)
