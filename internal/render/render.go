// Package render turns text into Code 128 (SVG) and QR (PNG) artifacts.
package render

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

const (
	ContentTypeSVG = "image/svg+xml"
	ContentTypePNG = "image/png"

	labelMargin = 2
)

// Artifact is a rendered code.
type Artifact struct {
	Kind        Kind
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Ext returns the file extension matching the artifact's content type.
func (a *Artifact) Ext() string {
	if a.ContentType == ContentTypePNG {
		return ".png"
	}
	return ".svg"
}

// RenderError reports text that the symbology cannot encode.
type RenderError struct {
	Kind  Kind
	Text  string
	Cause error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("cannot render %q as %s: %v.", e.Text, e.Kind, e.Cause)
}

func (e RenderError) Unwrap() error {
	return e.Cause
}

// Render encodes text with the given kind and ink colour. Blank text
// yields a nil artifact and no error. Rendering is deterministic.
func Render(text string, kind Kind, ink RGBColor, style Style) (*Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	switch kind {
	case KindLinear:
		return renderLinear(text, ink, style)
	case KindQR:
		return renderQR(text, ink, style)
	default:
		return nil, RenderError{Kind: kind, Text: text, Cause: fmt.Errorf("unsupported kind")}
	}
}

func renderLinear(text string, ink RGBColor, style Style) (*Artifact, error) {
	code, err := code128.Encode(text)
	if err != nil {
		return nil, RenderError{Kind: KindLinear, Text: text, Cause: err}
	}
	opts := style.Linear
	if opts.ModuleWidth <= 0 {
		opts.ModuleWidth = 1
	}
	modules := code.Bounds().Dx()
	width := float64(modules)*opts.ModuleWidth + float64(2*opts.Margin)
	height := opts.Margin*2 + opts.BarHeight
	if opts.ShowLabel {
		height += labelMargin + opts.FontSize
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%d" viewBox="0 0 %s %d">`,
		num(width), height, num(width), height)
	if !style.Transparent {
		fmt.Fprintf(&b, `<rect x="0" y="0" width="%s" height="%d" fill="#FFFFFF"/>`, num(width), height)
	}
	fmt.Fprintf(&b, `<g fill="%s">`, ink.Hex())
	for x := 0; x < modules; {
		if !isDark(code.At(x, 0)) {
			x++
			continue
		}
		start := x
		for x < modules && isDark(code.At(x, 0)) {
			x++
		}
		fmt.Fprintf(&b, `<rect x="%s" y="%d" width="%s" height="%d"/>`,
			num(float64(opts.Margin)+float64(start)*opts.ModuleWidth), opts.Margin,
			num(float64(x-start)*opts.ModuleWidth), opts.BarHeight)
	}
	b.WriteString(`</g>`)
	if opts.ShowLabel {
		fmt.Fprintf(&b, `<text x="%s" y="%d" fill="%s" font-family="monospace" font-size="%d" text-anchor="middle">%s</text>`,
			num(width/2), opts.Margin+opts.BarHeight+labelMargin+opts.FontSize, ink.Hex(), opts.FontSize, html.EscapeString(text))
	}
	b.WriteString(`</svg>`)
	return &Artifact{
		Kind:        KindLinear,
		ContentType: ContentTypeSVG,
		Data:        []byte(b.String()),
		Width:       int(width + 0.5),
		Height:      height,
	}, nil
}

func renderQR(text string, ink RGBColor, style Style) (*Artifact, error) {
	code, err := qr.Encode(text, style.QR.Level.qr(), qr.Auto)
	if err != nil {
		return nil, RenderError{Kind: KindQR, Text: text, Cause: err}
	}
	img := rasterize(code, ink, style)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, RenderError{Kind: KindQR, Text: text, Cause: err}
	}
	return &Artifact{
		Kind:        KindQR,
		ContentType: ContentTypePNG,
		Data:        buf.Bytes(),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func rasterize(code barcode.Barcode, ink RGBColor, style Style) *image.NRGBA {
	modules := code.Bounds().Dx()
	margin := style.QR.Margin
	if margin < 0 {
		margin = 0
	}
	total := modules + 2*margin
	scale := 1
	if style.QR.Size > total {
		scale = style.QR.Size / total
	}
	edge := total * scale
	img := image.NewNRGBA(image.Rect(0, 0, edge, edge))
	bg := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if style.Transparent {
		bg = color.NRGBA{}
	}
	fg := ink.NRGBA()
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			img.SetNRGBA(x, y, bg)
		}
	}
	for my := 0; my < modules; my++ {
		for mx := 0; mx < modules; mx++ {
			if !isDark(code.At(mx, my)) {
				continue
			}
			x0, y0 := (mx+margin)*scale, (my+margin)*scale
			for y := y0; y < y0+scale; y++ {
				for x := x0; x < x0+scale; x++ {
					img.SetNRGBA(x, y, fg)
				}
			}
		}
	}
	return img
}

func isDark(c color.Color) bool {
	r, _, _, _ := c.RGBA()
	return r == 0
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Placeholder renders a human-readable message in place of a code.
func Placeholder(message string, ink RGBColor, style Style) *Artifact {
	const width = 200
	fontSize := style.Linear.FontSize
	if fontSize <= 0 {
		fontSize = 12
	}
	height := fontSize*2 + 2*style.Linear.Margin
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	if !style.Transparent {
		fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#FFFFFF"/>`, width, height)
	}
	fmt.Fprintf(&b, `<text x="%d" y="%d" fill="%s" font-family="sans-serif" font-size="%d" text-anchor="middle" dominant-baseline="middle">%s</text>`,
		width/2, height/2, ink.Hex(), fontSize, html.EscapeString(message))
	b.WriteString(`</svg>`)
	return &Artifact{
		Kind:        KindLinear,
		ContentType: ContentTypeSVG,
		Data:        []byte(b.String()),
		Width:       width,
		Height:      height,
	}
}
