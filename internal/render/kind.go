package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/boombuler/barcode/qr"
	"github.com/vvatanabe/shipcode/internal/constant"
)

// Kind is the symbology a text is rendered with.
type Kind int

const (
	KindLinear Kind = iota
	KindQR
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindQR:
		return "qr"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Toggle returns the other kind.
func (k Kind) Toggle() Kind {
	if k == KindQR {
		return KindLinear
	}
	return KindQR
}

// KindOf maps a QR toggle state to a Kind.
func KindOf(qrMode bool) Kind {
	if qrMode {
		return KindQR
	}
	return KindLinear
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "barcode", "code128", "bar":
		return KindLinear, nil
	case "qr", "qrcode":
		return KindQR, nil
	}
	return KindLinear, fmt.Errorf("unknown code kind %q: want linear or qr", s)
}

// RGBColor is an opaque ink colour.
type RGBColor struct {
	R, G, B uint8
}

// DefaultThemeColor is the ink used when no theme colour is configured.
var DefaultThemeColor = MustParseHexColor(constant.DefaultThemeColor)

// ParseHexColor accepts "#RRGGBB", "RRGGBB" and the short "#RGB" form.
func ParseHexColor(s string) (RGBColor, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGBColor{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid hex colour %q", s)
	}
	return RGBColor{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func MustParseHexColor(s string) RGBColor {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the colour as upper-case "#RRGGBB".
func (c RGBColor) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGBColor) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// ECLevel is the QR error correction level.
type ECLevel int

const (
	ECLevelL ECLevel = iota
	ECLevelM
	ECLevelQ
	ECLevelH
)

func (l ECLevel) qr() qr.ErrorCorrectionLevel {
	switch l {
	case ECLevelL:
		return qr.L
	case ECLevelQ:
		return qr.Q
	case ECLevelH:
		return qr.H
	default:
		return qr.M
	}
}

func ParseECLevel(s string) (ECLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return ECLevelL, nil
	case "M", "":
		return ECLevelM, nil
	case "Q":
		return ECLevelQ, nil
	case "H":
		return ECLevelH, nil
	}
	return ECLevelM, fmt.Errorf("unknown error correction level %q: want L, M, Q or H", s)
}

// Mix blends c towards other by ratio (0 keeps c, 1 yields other).
func (c RGBColor) Mix(other RGBColor, ratio float64) RGBColor {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-ratio) + float64(b)*ratio))
	}
	return RGBColor{R: mix(c.R, other.R), G: mix(c.G, other.G), B: mix(c.B, other.B)}
}

// Palette is the set of shades derived from a theme colour.
type Palette struct {
	Primary string `json:"primary"`
	Light   string `json:"light"`
	Dark    string `json:"dark"`
}

func NewPalette(c RGBColor) Palette {
	return Palette{
		Primary: c.Hex(),
		Light:   c.Mix(RGBColor{R: 0xff, G: 0xff, B: 0xff}, 0.3).Hex(),
		Dark:    c.Mix(RGBColor{}, 0.3).Hex(),
	}
}
