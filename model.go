package shipcode

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DeliveryType is the kind of goods carried by a delivery.
// The numeric values are part of the wire contract of the shipment API.
type DeliveryType int

const (
	DeliveryTypeContainer DeliveryType = 0
	DeliveryTypeBulk      DeliveryType = 1
)

func (t DeliveryType) String() string {
	switch t {
	case DeliveryTypeContainer:
		return "Container"
	case DeliveryTypeBulk:
		return "Bulk"
	default:
		return fmt.Sprintf("DeliveryType(%d)", int(t))
	}
}

// Valid reports whether t is one of the two known delivery types.
func (t DeliveryType) Valid() bool {
	return t == DeliveryTypeContainer || t == DeliveryTypeBulk
}

// ParseDeliveryType accepts "container", "bulk" (any case) or the numeric wire values "0" and "1".
func ParseDeliveryType(s string) (DeliveryType, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "container", "c":
		return DeliveryTypeContainer, nil
	case "bulk", "b":
		return DeliveryTypeBulk, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && DeliveryType(n).Valid() {
		return DeliveryType(n), nil
	}
	return DeliveryTypeContainer, fmt.Errorf("unknown delivery type %q: want container (0) or bulk (1)", s)
}

type ContainerItem struct {
	MaterialNumber string `json:"materialNumber"`
	SerialNumber   string `json:"serialNumber"`
}

func (i ContainerItem) blank() bool {
	return strings.TrimSpace(i.MaterialNumber) == "" && strings.TrimSpace(i.SerialNumber) == ""
}

type BulkItem struct {
	MaterialNumber string `json:"materialNumber"`
	EvdSealNumber  string `json:"evdSealNumber"`
}

func (i BulkItem) blank() bool {
	return strings.TrimSpace(i.MaterialNumber) == "" && strings.TrimSpace(i.EvdSealNumber) == ""
}

// Delivery belongs to exactly one Shipment. Only the item list matching
// DeliveryType is populated.
type Delivery struct {
	DeliveryNumber string          `json:"deliveryNumber"`
	DeliveryType   DeliveryType    `json:"deliveryType"`
	ContainerItems []ContainerItem `json:"containerItems,omitempty"`
	BulkItems      []BulkItem      `json:"bulkItems,omitempty"`
	CreatedAt      Timestamp       `json:"createdAt"`
}

// ItemFields is the type-independent view of one delivery item: the material
// number plus the serial number (container) or EVD seal number (bulk).
type ItemFields struct {
	MaterialNumber string
	Secondary      string
}

// Items returns the populated item list as ItemFields, in order.
func (d Delivery) Items() []ItemFields {
	var items []ItemFields
	switch d.DeliveryType {
	case DeliveryTypeContainer:
		for _, it := range d.ContainerItems {
			items = append(items, ItemFields{MaterialNumber: it.MaterialNumber, Secondary: it.SerialNumber})
		}
	case DeliveryTypeBulk:
		for _, it := range d.BulkItems {
			items = append(items, ItemFields{MaterialNumber: it.MaterialNumber, Secondary: it.EvdSealNumber})
		}
	}
	return items
}

type Shipment struct {
	ShipmentNumber string     `json:"shipmentNumber"`
	Deliveries     []Delivery `json:"deliveries"`
	CreatedAt      Timestamp  `json:"createdAt"`
	UpdatedAt      Timestamp  `json:"updatedAt"`
}

// FindDelivery returns the delivery with the given number, or nil.
func (s *Shipment) FindDelivery(deliveryNumber string) *Delivery {
	for i := range s.Deliveries {
		if s.Deliveries[i].DeliveryNumber == deliveryNumber {
			return &s.Deliveries[i]
		}
	}
	return nil
}

// ToUpdateRequest builds a full-replace payload carrying every delivery of s.
func (s *Shipment) ToUpdateRequest() UpdateShipmentRequest {
	req := UpdateShipmentRequest{ShipmentNumber: s.ShipmentNumber}
	for _, d := range s.Deliveries {
		req.Deliveries = append(req.Deliveries, DeliveryUpdate{
			DeliveryNumber: d.DeliveryNumber,
			DeliveryType:   d.DeliveryType,
			ContainerItems: d.ContainerItems,
			BulkItems:      d.BulkItems,
		})
	}
	return req
}

type ShipmentDeliveryRequest struct {
	ShipmentNumber string          `json:"shipmentNumber"`
	DeliveryNumber string          `json:"deliveryNumber"`
	DeliveryType   DeliveryType    `json:"deliveryType"`
	ContainerItems []ContainerItem `json:"containerItems,omitempty"`
	BulkItems      []BulkItem      `json:"bulkItems,omitempty"`
}

// WithoutBlankItems drops item rows whose fields are all blank and clears the
// item list that does not match DeliveryType.
func (r ShipmentDeliveryRequest) WithoutBlankItems() ShipmentDeliveryRequest {
	out := ShipmentDeliveryRequest{
		ShipmentNumber: strings.TrimSpace(r.ShipmentNumber),
		DeliveryNumber: strings.TrimSpace(r.DeliveryNumber),
		DeliveryType:   r.DeliveryType,
	}
	switch r.DeliveryType {
	case DeliveryTypeContainer:
		out.ContainerItems = []ContainerItem{}
		for _, it := range r.ContainerItems {
			if !it.blank() {
				out.ContainerItems = append(out.ContainerItems, it)
			}
		}
	case DeliveryTypeBulk:
		out.BulkItems = []BulkItem{}
		for _, it := range r.BulkItems {
			if !it.blank() {
				out.BulkItems = append(out.BulkItems, it)
			}
		}
	}
	return out
}

type UpdateShipmentRequest struct {
	ShipmentNumber string           `json:"shipmentNumber"`
	Deliveries     []DeliveryUpdate `json:"deliveries"`
}

type DeliveryUpdate struct {
	DeliveryNumber string          `json:"deliveryNumber"`
	DeliveryType   DeliveryType    `json:"deliveryType"`
	ContainerItems []ContainerItem `json:"containerItems,omitempty"`
	BulkItems      []BulkItem      `json:"bulkItems,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a time sent by the shipment API. Values without a zone are
// read as UTC. A value that matches no known layout is kept in Raw and
// leaves Time zero, so a single odd field never fails a whole response.
type Timestamp struct {
	time.Time
	Raw string
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) String() string {
	if t.Time.IsZero() && t.Raw != "" {
		return t.Raw
	}
	return t.Time.Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() && t.Raw != "" {
		return json.Marshal(t.Raw)
	}
	return t.Time.MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Raw = raw
		return nil
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Raw = s
	return nil
}
