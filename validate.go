package shipcode

import (
	"fmt"
	"strings"
)

// ValidateRequest checks a create request locally. It never fails; an empty
// result means the request is valid. Every violation is reported, item rows
// are numbered from 1.
func ValidateRequest(req ShipmentDeliveryRequest) []string {
	errs := []string{}
	if isBlank(req.ShipmentNumber) {
		errs = append(errs, "Shipment number is required")
	}
	if isBlank(req.DeliveryNumber) {
		errs = append(errs, "Delivery number is required")
	}
	if !req.DeliveryType.Valid() {
		errs = append(errs, "Delivery type must be Container (0) or Bulk (1)")
	}
	switch req.DeliveryType {
	case DeliveryTypeContainer:
		if len(req.ContainerItems) == 0 {
			errs = append(errs, "At least one container item is required for Container delivery type")
			break
		}
		for i, item := range req.ContainerItems {
			if isBlank(item.MaterialNumber) {
				errs = append(errs, fmt.Sprintf("Container item %d: Material number is required", i+1))
			}
			if isBlank(item.SerialNumber) {
				errs = append(errs, fmt.Sprintf("Container item %d: Serial number is required", i+1))
			}
		}
	case DeliveryTypeBulk:
		if len(req.BulkItems) == 0 {
			errs = append(errs, "At least one bulk item is required for Bulk delivery type")
			break
		}
		for i, item := range req.BulkItems {
			if isBlank(item.MaterialNumber) {
				errs = append(errs, fmt.Sprintf("Bulk item %d: Material number is required", i+1))
			}
			if isBlank(item.EvdSealNumber) {
				errs = append(errs, fmt.Sprintf("Bulk item %d: EVD seal number is required", i+1))
			}
		}
	}
	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
