package domain

import "strings"

// Status is the lifecycle category of a shipment
type Status string

const (
	StatusPending        Status = "pending"
	StatusInTransit      Status = "in-transit"
	StatusCustoms        Status = "customs"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusInTransit,
	StatusCustoms,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusCustoms, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether the shipment is physically moving
func (s Status) IsActive() bool {
	return s == StatusInTransit || s == StatusCustoms || s == StatusOutForDelivery
}

// rank orders statuses along the delivery path. Cancelled sits outside it.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInTransit:
		return 1
	case StatusCustoms:
		return 2
	case StatusOutForDelivery:
		return 3
	case StatusDelivered:
		return 4
	}
	return -1
}

// ServiceType is the freight product a shipment was booked on
type ServiceType string

const (
	ServiceAirFreight    ServiceType = "air-freight"
	ServiceSeaFreight    ServiceType = "sea-freight"
	ServiceLandTransport ServiceType = "land-transport"
	ServiceDoorToDoor    ServiceType = "door-to-door"
)

// ServiceTypes lists every service type.
var ServiceTypes = []ServiceType{
	ServiceAirFreight,
	ServiceSeaFreight,
	ServiceLandTransport,
	ServiceDoorToDoor,
}

// IsValid reports whether t is one of the known service types
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceAirFreight, ServiceSeaFreight, ServiceLandTransport, ServiceDoorToDoor:
		return true
	}
	return false
}

// canonicalLabels is the label written when a transition carries none.
var canonicalLabels = map[Status]string{
	StatusPending:        "Processing",
	StatusInTransit:      "In Transit",
	StatusCustoms:        "Customs Clearance",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// labelAliases maps normalised human labels to their category.
var labelAliases = map[string]Status{
	"pending":           StatusPending,
	"processing":        StatusPending,
	"processed":         StatusPending,
	"order-processed":   StatusPending,
	"received":          StatusPending,
	"shipment-received": StatusPending,
	"booking-confirmed": StatusPending,

	"in-transit":      StatusInTransit,
	"picked-up":       StatusInTransit,
	"arrived":         StatusInTransit,
	"arrived-at-port": StatusInTransit,
	"arrived-at-hub":  StatusInTransit,
	"warehouse":       StatusInTransit,
	"departed":        StatusInTransit,

	"customs":           StatusCustoms,
	"customs-clearance": StatusCustoms,

	"out-for-delivery": StatusOutForDelivery,

	"delivered": StatusDelivered,

	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
}

// CanonicalLabel returns the default human label for a status
func CanonicalLabel(s Status) string {
	if label, ok := canonicalLabels[s]; ok {
		return label
	}
	return string(s)
}

// CategoryOf resolves a human status label to its status category.
// Matching ignores case and treats spaces, underscores and hyphens alike.
func CategoryOf(label string) (Status, bool) {
	key := normaliseLabel(label)
	if key == "" {
		return "", false
	}
	status, ok := labelAliases[key]
	return status, ok
}

func normaliseLabel(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "-")
}

// StatusDisplay is presentation metadata for a status
type StatusDisplay struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
	Icon  string `json:"icon"`
}

var statusDisplays = map[Status]StatusDisplay{
	StatusPending:        {Label: "Order Processed", Tone: "#FFD700", Icon: "file-text"},
	StatusInTransit:      {Label: "In Transit", Tone: "#8B5CF6", Icon: "plane"},
	StatusCustoms:        {Label: "Customs Clearance", Tone: "#F59E0B", Icon: "file-text"},
	StatusOutForDelivery: {Label: "Out for Delivery", Tone: "#F97316", Icon: "truck"},
	StatusDelivered:      {Label: "Delivered", Tone: "#10B981", Icon: "check-circle"},
	StatusCancelled:      {Label: "Cancelled", Tone: "#DC143C", Icon: "alert-circle"},
}

// DisplayFor returns the display metadata for a status. Unknown statuses get
// a neutral entry labelled with the raw value.
func DisplayFor(s Status) StatusDisplay {
	if d, ok := statusDisplays[s]; ok {
		return d
	}
	return StatusDisplay{Label: string(s), Tone: "#6B7280", Icon: "help-circle"}
}
