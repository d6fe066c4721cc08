package editor

import "github.com/vvatanabe/shipcode"

// Form holds the create-mode input. Both item lists are kept while editing
// so switching the delivery type does not lose rows.
type Form struct {
	ShipmentNumber string
	DeliveryNumber string
	DeliveryType   shipcode.DeliveryType
	ContainerItems []shipcode.ContainerItem
	BulkItems      []shipcode.BulkItem
}

// NewForm returns a blank container form with one empty row of each kind.
func NewForm() Form {
	return Form{
		DeliveryType:   shipcode.DeliveryTypeContainer,
		ContainerItems: []shipcode.ContainerItem{{}},
		BulkItems:      []shipcode.BulkItem{{}},
	}
}

func (f *Form) AddContainerItem() {
	f.ContainerItems = append(f.ContainerItems, shipcode.ContainerItem{})
}

// RemoveContainerItem removes row i unless it is the last one left.
func (f *Form) RemoveContainerItem(i int) bool {
	if len(f.ContainerItems) <= 1 || i < 0 || i >= len(f.ContainerItems) {
		return false
	}
	f.ContainerItems = append(f.ContainerItems[:i], f.ContainerItems[i+1:]...)
	return true
}

func (f *Form) AddBulkItem() {
	f.BulkItems = append(f.BulkItems, shipcode.BulkItem{})
}

// RemoveBulkItem removes row i unless it is the last one left.
func (f *Form) RemoveBulkItem(i int) bool {
	if len(f.BulkItems) <= 1 || i < 0 || i >= len(f.BulkItems) {
		return false
	}
	f.BulkItems = append(f.BulkItems[:i], f.BulkItems[i+1:]...)
	return true
}

// Request builds the create request. Rows with every field blank are
// dropped, as is the item list that does not match the delivery type.
func (f Form) Request() shipcode.ShipmentDeliveryRequest {
	return shipcode.ShipmentDeliveryRequest{
		ShipmentNumber: f.ShipmentNumber,
		DeliveryNumber: f.DeliveryNumber,
		DeliveryType:   f.DeliveryType,
		ContainerItems: f.ContainerItems,
		BulkItems:      f.BulkItems,
	}.WithoutBlankItems()
}

func (f Form) clone() Form {
	f.ContainerItems = append([]shipcode.ContainerItem(nil), f.ContainerItems...)
	f.BulkItems = append([]shipcode.BulkItem(nil), f.BulkItems...)
	return f
}
