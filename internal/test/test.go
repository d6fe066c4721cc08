package test

import (
	"errors"
	"strconv"
	"time"

	"github.com/vvatanabe/shipcode"
)

var ErrorTest = errors.New("test")

var DefaultTestDate = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

// NewContainerDelivery returns a container delivery with n numbered items.
func NewContainerDelivery(number string, n int) shipcode.Delivery {
	d := shipcode.Delivery{
		DeliveryNumber: number,
		DeliveryType:   shipcode.DeliveryTypeContainer,
		CreatedAt:      shipcode.NewTimestamp(DefaultTestDate),
	}
	for i := 1; i <= n; i++ {
		d.ContainerItems = append(d.ContainerItems, shipcode.ContainerItem{
			MaterialNumber: number + "-MAT" + strconv.Itoa(i),
			SerialNumber:   number + "-SER" + strconv.Itoa(i),
		})
	}
	return d
}

// NewBulkDelivery returns a bulk delivery with n numbered items.
func NewBulkDelivery(number string, n int) shipcode.Delivery {
	d := shipcode.Delivery{
		DeliveryNumber: number,
		DeliveryType:   shipcode.DeliveryTypeBulk,
		CreatedAt:      shipcode.NewTimestamp(DefaultTestDate),
	}
	for i := 1; i <= n; i++ {
		d.BulkItems = append(d.BulkItems, shipcode.BulkItem{
			MaterialNumber: number + "-MAT" + strconv.Itoa(i),
			EvdSealNumber:  number + "-EVD" + strconv.Itoa(i),
		})
	}
	return d
}

// NewShipment returns a shipment holding one container delivery with two
// items and one bulk delivery with one item.
func NewShipment(number string) *shipcode.Shipment {
	return &shipcode.Shipment{
		ShipmentNumber: number,
		Deliveries: []shipcode.Delivery{
			NewContainerDelivery("DL-1", 2),
			NewBulkDelivery("DL-2", 1),
		},
		CreatedAt: shipcode.NewTimestamp(DefaultTestDate),
		UpdatedAt: shipcode.NewTimestamp(DefaultTestDate),
	}
}
