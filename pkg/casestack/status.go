package casestack

import (
	"fmt"
	"strings"
)

// ShipmentStatus represents the workflow status of a shipment.
type ShipmentStatus int

const (
	BrokerApprovalPending ShipmentStatus = iota
	QuotePending
	CustomerApprovalPending
	CustomerRejected
	ReadyToTender
	Tendered
	TenderAcceptedByCarrier
	TenderAcceptedByRep
	TenderRejectedByCarrier
	TenderRejectedByRep
	PickupAppointmentScheduled
	ArrivedAtPickupLocation
	PickedUp
	InTransit
	DeliveryAppointmentScheduled
	ArrivedAtDeliveryLocation
	OutForDelivery
	Delivered
	DeliveryException
	Cancelled
	Billable
	Invoiced
	Archived
)

// shipmentStatusLabels is indexed by ShipmentStatus.
var shipmentStatusLabels = [...]string{
	BrokerApprovalPending:        "Broker Approval Pending",
	QuotePending:                 "Quote Pending",
	CustomerApprovalPending:      "Customer Approval Pending",
	CustomerRejected:             "Customer Rejected",
	ReadyToTender:                "Ready to Tender",
	Tendered:                     "Tendered",
	TenderAcceptedByCarrier:      "Tender Accepted by Carrier",
	TenderAcceptedByRep:          "Tender Accepted by Rep",
	TenderRejectedByCarrier:      "Tender Rejected by Carrier",
	TenderRejectedByRep:          "Tender Rejected by Rep",
	PickupAppointmentScheduled:   "Pickup Appointment Scheduled",
	ArrivedAtPickupLocation:      "Arrived at Pickup Location",
	PickedUp:                     "Picked Up",
	InTransit:                    "In Transit",
	DeliveryAppointmentScheduled: "Delivery Appointment Scheduled",
	ArrivedAtDeliveryLocation:    "Arrived at Delivery Location",
	OutForDelivery:               "Out for Delivery",
	Delivered:                    "Delivered",
	DeliveryException:            "Delivery Exception",
	Cancelled:                    "Cancelled",
	Billable:                     "Billable",
	Invoiced:                     "Invoiced",
	Archived:                     "Archived",
}

// String returns the label the API uses for the status.
func (s ShipmentStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ShipmentStatus(%d)", int(s))
	}
	return shipmentStatusLabels[s]
}

// Valid reports whether s is one of the defined statuses.
func (s ShipmentStatus) Valid() bool {
	return s >= 0 && int(s) < len(shipmentStatusLabels)
}

// ShipmentStatuses returns every status in workflow order.
func ShipmentStatuses() []ShipmentStatus {
	out := make([]ShipmentStatus, len(shipmentStatusLabels))
	for i := range shipmentStatusLabels {
		out[i] = ShipmentStatus(i)
	}
	return out
}

// ParseShipmentStatus looks a status up by its label. Matching ignores case
// and surrounding whitespace.
func ParseShipmentStatus(label string) (ShipmentStatus, error) {
	label = strings.TrimSpace(label)
	for i, l := range shipmentStatusLabels {
		if strings.EqualFold(l, label) {
			return ShipmentStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown shipment status %q", ErrInvalidArgument, label)
}
