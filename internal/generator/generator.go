// Package generator implements the standalone six-card code generator.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vvatanabe/shipcode/internal/clock"
	"github.com/vvatanabe/shipcode/internal/constant"
	"github.com/vvatanabe/shipcode/internal/debounce"
	"github.com/vvatanabe/shipcode/internal/prefs"
	"github.com/vvatanabe/shipcode/internal/render"
)

// DefaultTexts are the initial card texts, in card order.
var DefaultTexts = []string{"SAMPLE1234", "PRODUCT567", "BATCH890", "ORDER123", "SERIAL456", "INVOICE789"}

var ErrClosed = errors.New("generator is closed")

type CardNotFoundError struct {
	ID int
}

func (e CardNotFoundError) Error() string {
	return fmt.Sprintf("card %d does not exist: want 1 to %d.", e.ID, len(DefaultTexts))
}

type InvalidColorError struct {
	Value string
}

func (e InvalidColorError) Error() string {
	return fmt.Sprintf("invalid theme colour %q: want #RRGGBB.", e.Value)
}

// Card is a snapshot of one generator card.
type Card struct {
	ID       int
	Text     string
	Kind     render.Kind
	Artifact *render.Artifact
	Failed   bool
}

type card struct {
	id     int
	text   string
	qrMode bool
	target *render.Target
}

type Options struct {
	Delay  time.Duration
	Clock  clock.Clock
	Logger *slog.Logger
	Style  render.Style
}

func WithDelay(d time.Duration) func(*Options) {
	return func(o *Options) {
		o.Delay = d
	}
}

func WithClock(c clock.Clock) func(*Options) {
	return func(o *Options) {
		o.Clock = c
	}
}

func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithStyle(style render.Style) func(*Options) {
	return func(o *Options) {
		o.Style = style
	}
}

// Generator owns the cards, their persisted state and their renderings.
type Generator struct {
	mu        sync.Mutex
	prefs     *prefs.Preferences
	cards     []*card
	theme     render.RGBColor
	debouncer *debounce.Debouncer
	logger    *slog.Logger
	closed    bool
}

// New restores the cards from p and renders all of them.
func New(p *prefs.Preferences, optFns ...func(*Options)) *Generator {
	o := &Options{
		Delay:  constant.DefaultGeneratorDelay,
		Clock:  clock.RealClock{},
		Logger: slog.Default(),
		Style:  render.GeneratorStyle,
	}
	for _, opt := range optFns {
		opt(o)
	}
	g := &Generator{
		prefs:     p,
		debouncer: debounce.New(o.Delay, debounce.WithClock(o.Clock)),
		logger:    o.Logger,
		theme:     render.DefaultThemeColor,
	}
	if c, err := render.ParseHexColor(p.ThemeColor()); err == nil {
		g.theme = c
	} else {
		g.logger.Warn("ignoring saved theme colour", "error", err)
	}
	for i, def := range DefaultTexts {
		id := i + 1
		g.cards = append(g.cards, &card{
			id:     id,
			text:   p.CardText(id, def),
			qrMode: p.CardQRMode(id),
			target: render.NewTarget(o.Style, o.Logger),
		})
	}
	for _, c := range g.cards {
		g.draw(c)
	}
	return g
}

func (g *Generator) draw(c *card) {
	c.target.Draw(c.text, render.KindOf(c.qrMode), g.theme)
}

func (g *Generator) card(id int) (*card, error) {
	if g.closed {
		return nil, ErrClosed
	}
	if id < 1 || id > len(g.cards) {
		return nil, CardNotFoundError{ID: id}
	}
	return g.cards[id-1], nil
}

// SetText stores the new text right away and re-renders the card once
// input has been quiet for the debounce window.
func (g *Generator) SetText(id int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.card(id)
	if err != nil {
		return err
	}
	c.text = text
	g.prefs.SetCardText(id, text)
	g.debouncer.Schedule(strconv.Itoa(id), func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.closed {
			return
		}
		g.draw(c)
	})
	return nil
}

// Flush renders the card now, dropping a pending debounced render.
func (g *Generator) Flush(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.card(id)
	if err != nil {
		return err
	}
	g.debouncer.Cancel(strconv.Itoa(id))
	g.draw(c)
	return nil
}

// Toggle flips the card between linear and QR and re-renders only that card.
func (g *Generator) Toggle(id int) (Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.card(id)
	if err != nil {
		return Card{}, err
	}
	c.qrMode = !c.qrMode
	g.prefs.SetCardQRMode(id, c.qrMode)
	g.debouncer.Cancel(strconv.Itoa(id))
	g.draw(c)
	return snapshot(c), nil
}

// SetThemeColor validates and stores the colour, then re-renders every card.
func (g *Generator) SetThemeColor(hex string) (render.RGBColor, error) {
	color, err := render.ParseHexColor(hex)
	if err != nil {
		return render.RGBColor{}, InvalidColorError{Value: hex}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return render.RGBColor{}, ErrClosed
	}
	g.theme = color
	g.prefs.SetThemeColor(color.Hex())
	for _, c := range g.cards {
		g.debouncer.Cancel(strconv.Itoa(c.id))
		g.draw(c)
	}
	return color, nil
}

func (g *Generator) ThemeColor() render.RGBColor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.theme
}

func (g *Generator) Card(id int) (Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.card(id)
	if err != nil {
		return Card{}, err
	}
	return snapshot(c), nil
}

// Cards returns a snapshot of every card in order.
func (g *Generator) Cards() []Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	cards := make([]Card, 0, len(g.cards))
	for _, c := range g.cards {
		cards = append(cards, snapshot(c))
	}
	return cards
}

// Close cancels pending renders. Later calls fail with ErrClosed.
func (g *Generator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.debouncer.Stop()
}

func snapshot(c *card) Card {
	return Card{
		ID:       c.id,
		Text:     c.text,
		Kind:     render.KindOf(c.qrMode),
		Artifact: c.target.Artifact(),
		Failed:   c.target.Failed(),
	}
}
