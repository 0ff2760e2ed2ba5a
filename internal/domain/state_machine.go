package domain

import (
	"fmt"
	"strings"
	"time"
)

// Initial event written when a shipment is created
const (
	InitialEventLabel       = "Processing"
	InitialEventDescription = "Shipment received and processing has begun"
)

// Clock returns the current time
type Clock func() time.Time

// SystemClock returns the current UTC time
func SystemClock() time.Time {
	return time.Now().UTC()
}

// StateMachine validates and applies status transitions
type StateMachine struct {
	now Clock
}

// NewStateMachine creates a StateMachine. A nil clock uses SystemClock.
func NewStateMachine(clock Clock) *StateMachine {
	if clock == nil {
		clock = SystemClock
	}
	return &StateMachine{now: clock}
}

// CanTransition reports whether target is reachable from current. Any
// non-terminal status may move to any status, including itself.
func CanTransition(current, target Status) error {
	if current.IsTerminal() {
		return &TransitionError{Kind: TerminalStateViolation, Current: current, Attempted: target}
	}
	if !target.IsValid() {
		return &TransitionError{Kind: IllegalTransition, Current: current, Attempted: target}
	}
	return nil
}

// Transition returns a copy of record moved to target with one event appended.
// The input record is not modified.
func (m *StateMachine) Transition(record *ShipmentRecord, target Status, details EventDetails) (*ShipmentRecord, error) {
	if err := CanTransition(record.Status, target); err != nil {
		return nil, err
	}

	label := strings.TrimSpace(details.StatusLabel)
	if label == "" {
		label = CanonicalLabel(target)
	}
	category, ok := CategoryOf(label)
	if !ok {
		return nil, NewValidationError("statusLabel", fmt.Sprintf("unknown status label %q", label))
	}
	if category != target {
		return nil, NewValidationError("statusLabel", fmt.Sprintf("label %q maps to %s, not %s", label, category, target))
	}

	now := m.now()
	if latest, ok := record.LatestEvent(); ok && now.Before(latest.Timestamp) {
		now = latest.Timestamp
	}
	if now.Before(record.CreatedDate) {
		now = record.CreatedDate
	}

	next := record.Clone()
	next.Events = append(next.Events, TimelineEvent{
		Timestamp:   now,
		StatusLabel: label,
		Location:    details.Location,
		Description: details.Description,
	})
	next.Status = target
	next.LastUpdated = now
	return next, nil
}

// NewShipmentRecord builds a pending record from a validated draft with the
// initial received event.
func (m *StateMachine) NewShipmentRecord(id string, draft ShipmentDraft) (*ShipmentRecord, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	now := m.now()

	var declared *float64
	if draft.DeclaredValue != nil {
		v := *draft.DeclaredValue
		declared = &v
	}

	return &ShipmentRecord{
		ID:                  id,
		TrackingID:          strings.TrimSpace(draft.TrackingID),
		CustomerName:        draft.CustomerName,
		CustomerEmail:       draft.CustomerEmail,
		CustomerPhone:       draft.CustomerPhone,
		CustomerAddress:     draft.CustomerAddress,
		Origin:              draft.Origin,
		Destination:         draft.Destination,
		ServiceType:         draft.ServiceType,
		PackageDetails:      draft.PackageDetails,
		Weight:              draft.Weight,
		Dimensions:          draft.Dimensions,
		SpecialInstructions: draft.SpecialInstructions,
		DeclaredValue:       declared,
		Status:              StatusPending,
		CreatedDate:         now,
		LastUpdated:         now,
		EstimatedDelivery:   draft.EstimatedDelivery,
		Events: []TimelineEvent{{
			Timestamp:   now,
			StatusLabel: InitialEventLabel,
			Location:    draft.Origin,
			Description: InitialEventDescription,
		}},
	}, nil
}

// ApplyPatch merges patch onto a copy of record and, when the patch carries a
// status or event details, appends a timeline event. Identity fields and the
// delivered estimate are immutable.
func (m *StateMachine) ApplyPatch(record *ShipmentRecord, patch ShipmentPatch) (*ShipmentRecord, error) {
	if patch.TrackingID != nil && strings.TrimSpace(*patch.TrackingID) != record.TrackingID {
		return nil, NewValidationError("trackingId", "is immutable once issued")
	}
	if patch.EstimatedDelivery != nil && record.Status == StatusDelivered && !patch.EstimatedDelivery.Equal(record.EstimatedDelivery) {
		return nil, NewValidationError("estimatedDelivery", "cannot change after delivery")
	}

	next := record.Clone()
	if err := mergeFields(next, patch); err != nil {
		return nil, err
	}

	if patch.HasTransition() {
		target := record.Status
		if patch.Status != nil {
			target = *patch.Status
		}
		var details EventDetails
		if patch.Event != nil {
			details = *patch.Event
		}
		moved, err := m.Transition(next, target, details)
		if err != nil {
			return nil, err
		}
		return moved, nil
	}

	now := m.now()
	if now.Before(record.LastUpdated) {
		now = record.LastUpdated
	}
	next.LastUpdated = now
	return next, nil
}

func mergeFields(r *ShipmentRecord, p ShipmentPatch) error {
	setString := func(field string, dst *string, src *string, required bool) error {
		if src == nil {
			return nil
		}
		if required && strings.TrimSpace(*src) == "" {
			return NewValidationError(field, "")
		}
		*dst = *src
		return nil
	}

	fields := []struct {
		name     string
		dst      *string
		src      *string
		required bool
	}{
		{"customerName", &r.CustomerName, p.CustomerName, true},
		{"customerEmail", &r.CustomerEmail, p.CustomerEmail, true},
		{"customerPhone", &r.CustomerPhone, p.CustomerPhone, false},
		{"customerAddress", &r.CustomerAddress, p.CustomerAddress, false},
		{"origin", &r.Origin, p.Origin, true},
		{"destination", &r.Destination, p.Destination, true},
		{"packageDetails", &r.PackageDetails, p.PackageDetails, true},
		{"specialInstructions", &r.SpecialInstructions, p.SpecialInstructions, false},
	}
	for _, f := range fields {
		if err := setString(f.name, f.dst, f.src, f.required); err != nil {
			return err
		}
	}

	if p.ServiceType != nil {
		if !p.ServiceType.IsValid() {
			return NewValidationError("serviceType", fmt.Sprintf("unknown service type %q", *p.ServiceType))
		}
		r.ServiceType = *p.ServiceType
	}
	if p.Weight != nil {
		if *p.Weight <= 0 {
			return NewValidationError("weight", "must be greater than zero")
		}
		r.Weight = *p.Weight
	}
	if p.Dimensions != nil {
		if !p.Dimensions.IsComplete() {
			return NewValidationError("dimensions", "length, width and height must be greater than zero")
		}
		r.Dimensions = *p.Dimensions
	}
	if p.DeclaredValue != nil {
		v := *p.DeclaredValue
		r.DeclaredValue = &v
	}
	if p.EstimatedDelivery != nil {
		r.EstimatedDelivery = *p.EstimatedDelivery
	}
	return nil
}
