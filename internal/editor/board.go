package editor

import (
	"log/slog"
	"strconv"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/render"
)

// ShipmentToggleID is the toggle id of the shipment number's code.
// Delivery and item ids carry a "delivery:" or "item:" prefix, so no
// delivery number can collide with it or with each other.
const ShipmentToggleID = "shipment"

// DeliveryToggleID returns the toggle id of a delivery number's code.
func DeliveryToggleID(d shipcode.Delivery) string {
	return "delivery:" + d.DeliveryNumber
}

// ItemToggleID returns the toggle id shared by both fields of a delivery
// item, e.g. "item:DL-1:container:0".
func ItemToggleID(d shipcode.Delivery, index int) string {
	kind := "container"
	if d.DeliveryType == shipcode.DeliveryTypeBulk {
		kind = "bulk"
	}
	return "item:" + d.DeliveryNumber + ":" + kind + ":" + strconv.Itoa(index)
}

// Slot is a snapshot of one rendered field of the current shipment.
type Slot struct {
	// Path locates the field, e.g. "deliveries/DL-1/items/0/material".
	Path     string
	ToggleID string
	Text     string
	Kind     render.Kind
	Artifact *render.Artifact
	Failed   bool
}

type slot struct {
	path     string
	toggleID string
	text     string
	target   *render.Target
}

// board maps every leaf field of a shipment to its render target.
type board struct {
	slots  []*slot
	byPath map[string]*slot
}

func newBoard(s *shipcode.Shipment, logger *slog.Logger) *board {
	b := &board{byPath: make(map[string]*slot)}
	b.add(ShipmentToggleID, ShipmentToggleID, s.ShipmentNumber, render.RecordStyle, logger)
	for _, d := range s.Deliveries {
		base := "deliveries/" + d.DeliveryNumber
		b.add(base, DeliveryToggleID(d), d.DeliveryNumber, render.RecordStyle, logger)
		second := "serial"
		if d.DeliveryType == shipcode.DeliveryTypeBulk {
			second = "seal"
		}
		for i, item := range d.Items() {
			toggleID := ItemToggleID(d, i)
			prefix := base + "/items/" + strconv.Itoa(i) + "/"
			b.add(prefix+"material", toggleID, item.MaterialNumber, render.ItemStyle, logger)
			b.add(prefix+second, toggleID, item.Secondary, render.ItemStyle, logger)
		}
	}
	return b
}

func (b *board) add(path, toggleID, text string, style render.Style, logger *slog.Logger) {
	s := &slot{
		path:     path,
		toggleID: toggleID,
		text:     text,
		target:   render.NewTarget(style, logger),
	}
	b.slots = append(b.slots, s)
	b.byPath[path] = s
}

func (b *board) hasToggle(id string) bool {
	for _, s := range b.slots {
		if s.toggleID == id {
			return true
		}
	}
	return false
}

func (b *board) draw(toggles map[string]bool, ink render.RGBColor, only func(*slot) bool) {
	for _, s := range b.slots {
		if only != nil && !only(s) {
			continue
		}
		s.target.Draw(s.text, render.KindOf(toggles[s.toggleID]), ink)
	}
}

func (s *slot) snapshot(toggles map[string]bool) Slot {
	return Slot{
		Path:     s.path,
		ToggleID: s.toggleID,
		Text:     s.text,
		Kind:     render.KindOf(toggles[s.toggleID]),
		Artifact: s.target.Artifact(),
		Failed:   s.target.Failed(),
	}
}
