package domain

import (
	"fmt"
	"strings"
	"time"
)

// Dimensions of a package in centimetres
type Dimensions struct {
	Length float64 `json:"length" bson:"length"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// IsZero reports whether no dimension is set
func (d Dimensions) IsZero() bool {
	return d.Length == 0 && d.Width == 0 && d.Height == 0
}

// IsComplete reports whether every dimension is positive
func (d Dimensions) IsComplete() bool {
	return d.Length > 0 && d.Width > 0 && d.Height > 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%gx%g cm", d.Length, d.Width, d.Height)
}

// ShipmentRecord is one physical consignment and the sole owner of its timeline
type ShipmentRecord struct {
	ID                  string          `json:"id" bson:"id"`
	TrackingID          string          `json:"trackingId" bson:"trackingId"`
	CustomerName        string          `json:"customerName" bson:"customerName"`
	CustomerEmail       string          `json:"customerEmail" bson:"customerEmail"`
	CustomerPhone       string          `json:"customerPhone" bson:"customerPhone"`
	CustomerAddress     string          `json:"customerAddress,omitempty" bson:"customerAddress,omitempty"`
	Origin              string          `json:"origin" bson:"origin"`
	Destination         string          `json:"destination" bson:"destination"`
	ServiceType         ServiceType     `json:"serviceType" bson:"serviceType"`
	PackageDetails      string          `json:"packageDetails" bson:"packageDetails"`
	Weight              float64         `json:"weight" bson:"weight"`
	Dimensions          Dimensions      `json:"dimensions" bson:"dimensions"`
	SpecialInstructions string          `json:"specialInstructions,omitempty" bson:"specialInstructions,omitempty"`
	DeclaredValue       *float64        `json:"declaredValue,omitempty" bson:"declaredValue,omitempty"`
	Status              Status          `json:"status" bson:"status"`
	CreatedDate         time.Time       `json:"createdDate" bson:"createdDate"`
	LastUpdated         time.Time       `json:"lastUpdated" bson:"lastUpdated"`
	EstimatedDelivery   time.Time       `json:"estimatedDelivery" bson:"estimatedDelivery"`
	Events              []TimelineEvent `json:"events" bson:"events"`
}

// Clone returns a deep copy of the record
func (r *ShipmentRecord) Clone() *ShipmentRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.DeclaredValue != nil {
		v := *r.DeclaredValue
		c.DeclaredValue = &v
	}
	c.Events = make([]TimelineEvent, len(r.Events))
	copy(c.Events, r.Events)
	return &c
}

// LatestEvent returns the most recent timeline entry, if any
func (r *ShipmentRecord) LatestEvent() (TimelineEvent, bool) {
	if len(r.Events) == 0 {
		return TimelineEvent{}, false
	}
	return r.Events[len(r.Events)-1], true
}

// CheckInvariants verifies timeline ordering, the status projection and
// the created/updated ordering. A record without events is accepted.
func (r *ShipmentRecord) CheckInvariants() error {
	if !r.Status.IsValid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", r.Status))
	}
	if !r.ServiceType.IsValid() {
		return NewValidationError("serviceType", fmt.Sprintf("unknown service type %q", r.ServiceType))
	}
	if r.LastUpdated.Before(r.CreatedDate) {
		return NewValidationError("lastUpdated", "must not precede createdDate")
	}
	for i := 1; i < len(r.Events); i++ {
		if r.Events[i].Timestamp.Before(r.Events[i-1].Timestamp) {
			return NewValidationError("events", fmt.Sprintf("event %d precedes event %d", i, i-1))
		}
	}
	if latest, ok := r.LatestEvent(); ok {
		category, known := CategoryOf(latest.StatusLabel)
		if !known {
			return NewValidationError("events", fmt.Sprintf("unknown status label %q", latest.StatusLabel))
		}
		if category != r.Status {
			return NewValidationError("status", fmt.Sprintf("status %s does not match latest event %s", r.Status, category))
		}
	}
	return nil
}

// ShipmentDraft carries the fields a creator supplies
type ShipmentDraft struct {
	TrackingID          string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	CustomerAddress     string
	Origin              string
	Destination         string
	ServiceType         ServiceType
	PackageDetails      string
	Weight              float64
	Dimensions          Dimensions
	SpecialInstructions string
	DeclaredValue       *float64
	EstimatedDelivery   time.Time
}

// Validate checks that every mandatory field is present
func (d ShipmentDraft) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"trackingId", d.TrackingID},
		{"customerName", d.CustomerName},
		{"customerEmail", d.CustomerEmail},
		{"origin", d.Origin},
		{"destination", d.Destination},
		{"serviceType", string(d.ServiceType)},
		{"packageDetails", d.PackageDetails},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, "")
		}
	}
	if !d.ServiceType.IsValid() {
		return NewValidationError("serviceType", fmt.Sprintf("unknown service type %q", d.ServiceType))
	}
	if d.Weight <= 0 {
		return NewValidationError("weight", "must be greater than zero")
	}
	if !d.Dimensions.IsComplete() {
		return NewValidationError("dimensions", "length, width and height must be greater than zero")
	}
	if d.EstimatedDelivery.IsZero() {
		return NewValidationError("estimatedDelivery", "")
	}
	return nil
}

// ShipmentPatch is a partial update. Nil fields are left untouched.
// Status or Event trigger a timeline append through the state machine.
type ShipmentPatch struct {
	TrackingID          *string
	CustomerName        *string
	CustomerEmail       *string
	CustomerPhone       *string
	CustomerAddress     *string
	Origin              *string
	Destination         *string
	ServiceType         *ServiceType
	PackageDetails      *string
	Weight              *float64
	Dimensions          *Dimensions
	SpecialInstructions *string
	DeclaredValue       *float64
	EstimatedDelivery   *time.Time
	Status              *Status
	Event               *EventDetails
}

// HasTransition reports whether the patch appends a timeline event
func (p ShipmentPatch) HasTransition() bool {
	return p.Status != nil || p.Event != nil
}
