package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func createTestDraft() ShipmentDraft {
	return ShipmentDraft{
		TrackingID:        "PPS2024001",
		CustomerName:      "Rajesh Kumar",
		CustomerEmail:     "rajesh@example.com",
		CustomerPhone:     "+977 9801234567",
		Origin:            "Kathmandu, Nepal",
		Destination:       "Dubai, UAE",
		ServiceType:       ServiceAirFreight,
		PackageDetails:    "Electronics",
		Weight:            25,
		Dimensions:        Dimensions{Length: 50, Width: 40, Height: 30},
		EstimatedDelivery: testNow.AddDate(0, 0, 5),
	}
}

func createTestRecord(t *testing.T, status Status) *ShipmentRecord {
	t.Helper()
	sm := NewStateMachine(fixedClock(testNow))
	record, err := sm.NewShipmentRecord("rec-1", createTestDraft())
	require.NoError(t, err)
	if status == StatusPending {
		return record
	}
	moved, err := sm.Transition(record, status, EventDetails{Location: "Somewhere"})
	require.NoError(t, err)
	return moved
}

func TestNewShipmentRecord(t *testing.T) {
	sm := NewStateMachine(fixedClock(testNow))

	record, err := sm.NewShipmentRecord("rec-1", createTestDraft())
	require.NoError(t, err)

	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, StatusPending, record.Status)
	assert.Equal(t, testNow, record.CreatedDate)
	assert.Equal(t, testNow, record.LastUpdated)
	require.Len(t, record.Events, 1)
	assert.Equal(t, InitialEventLabel, record.Events[0].StatusLabel)
	assert.Equal(t, "Kathmandu, Nepal", record.Events[0].Location)
	assert.Equal(t, InitialEventDescription, record.Events[0].Description)
	assert.NoError(t, record.CheckInvariants())
}

func TestNewShipmentRecord_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *ShipmentDraft)
		field  string
	}{
		{"tracking id", func(d *ShipmentDraft) { d.TrackingID = "" }, "trackingId"},
		{"customer name", func(d *ShipmentDraft) { d.CustomerName = "  " }, "customerName"},
		{"customer email", func(d *ShipmentDraft) { d.CustomerEmail = "" }, "customerEmail"},
		{"origin", func(d *ShipmentDraft) { d.Origin = "" }, "origin"},
		{"destination", func(d *ShipmentDraft) { d.Destination = "" }, "destination"},
		{"service type", func(d *ShipmentDraft) { d.ServiceType = "" }, "serviceType"},
		{"unknown service type", func(d *ShipmentDraft) { d.ServiceType = "rail" }, "serviceType"},
		{"package details", func(d *ShipmentDraft) { d.PackageDetails = "" }, "packageDetails"},
		{"weight", func(d *ShipmentDraft) { d.Weight = 0 }, "weight"},
		{"dimensions", func(d *ShipmentDraft) { d.Dimensions.Height = 0 }, "dimensions"},
		{"estimated delivery", func(d *ShipmentDraft) { d.EstimatedDelivery = time.Time{} }, "estimatedDelivery"},
	}

	sm := NewStateMachine(fixedClock(testNow))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := createTestDraft()
			tt.mutate(&draft)

			_, err := sm.NewShipmentRecord("rec-1", draft)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestTransition(t *testing.T) {
	later := testNow.Add(2 * time.Hour)
	sm := NewStateMachine(fixedClock(later))

	tests := []struct {
		name    string
		from    Status
		to      Status
		details EventDetails
		label   string
		wantErr TransitionErrorKind
	}{
		{name: "pending to in-transit", from: StatusPending, to: StatusInTransit, label: "In Transit"},
		{name: "skip to delivered", from: StatusPending, to: StatusDelivered, label: "Delivered"},
		{name: "customs to in-transit", from: StatusCustoms, to: StatusInTransit, details: EventDetails{StatusLabel: "Arrived"}, label: "Arrived"},
		{name: "same status location update", from: StatusInTransit, to: StatusInTransit, details: EventDetails{StatusLabel: "Departed"}, label: "Departed"},
		{name: "cancel pending", from: StatusPending, to: StatusCancelled, label: "Cancelled"},
		{name: "from delivered", from: StatusDelivered, to: StatusInTransit, wantErr: TerminalStateViolation},
		{name: "from cancelled", from: StatusCancelled, to: StatusPending, wantErr: TerminalStateViolation},
		{name: "unknown target", from: StatusPending, to: Status("lost"), wantErr: IllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := createTestRecord(t, tt.from)
			before := len(record.Events)

			next, err := sm.Transition(record, tt.to, tt.details)

			if tt.wantErr != "" {
				var te *TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.wantErr, te.Kind)
				assert.Equal(t, tt.from, te.Current)
				assert.Equal(t, tt.to, te.Attempted)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, next.Status)
			assert.Equal(t, later, next.LastUpdated)
			require.Len(t, next.Events, before+1)
			assert.Equal(t, tt.label, next.Events[before].StatusLabel)
			assert.Equal(t, later, next.Events[before].Timestamp)
			assert.Len(t, record.Events, before, "input record must not change")
			assert.NoError(t, next.CheckInvariants())
		})
	}
}

func TestTransition_CancelThenTerminal(t *testing.T) {
	sm := NewStateMachine(fixedClock(testNow.Add(time.Hour)))
	record := createTestRecord(t, StatusPending)

	cancelled, err := sm.Transition(record, StatusCancelled, EventDetails{
		Location:    "Kathmandu Office",
		Description: "Cancelled at customer request",
	})
	require.NoError(t, err)
	require.Len(t, cancelled.Events, 2)
	category, ok := cancelled.Events[1].Category()
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, category)

	_, err = sm.Transition(cancelled, StatusCancelled, EventDetails{})
	assert.True(t, IsTransitionError(err, TerminalStateViolation))

	_, err = sm.Transition(cancelled, StatusInTransit, EventDetails{})
	assert.True(t, IsTransitionError(err, TerminalStateViolation))
}

func TestTransition_LabelMismatch(t *testing.T) {
	sm := NewStateMachine(fixedClock(testNow))
	record := createTestRecord(t, StatusPending)

	_, err := sm.Transition(record, StatusCustoms, EventDetails{StatusLabel: "Delivered"})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "statusLabel", ve.Field)
}

func TestTransition_TimestampsNeverGoBackwards(t *testing.T) {
	record := createTestRecord(t, StatusPending)
	earlier := NewStateMachine(fixedClock(testNow.Add(-time.Hour)))

	next, err := earlier.Transition(record, StatusInTransit, EventDetails{})
	require.NoError(t, err)

	assert.Equal(t, testNow, next.Events[1].Timestamp)
	assert.False(t, next.LastUpdated.Before(next.CreatedDate))
	assert.NoError(t, next.CheckInvariants())
}

func TestApplyPatch(t *testing.T) {
	later := testNow.Add(time.Hour)
	sm := NewStateMachine(fixedClock(later))

	t.Run("merges fields without an event", func(t *testing.T) {
		record := createTestRecord(t, StatusPending)
		phone := "+977 1111111"
		next, err := sm.ApplyPatch(record, ShipmentPatch{CustomerPhone: &phone})
		require.NoError(t, err)
		assert.Equal(t, phone, next.CustomerPhone)
		assert.Len(t, next.Events, 1)
		assert.Equal(t, later, next.LastUpdated)
	})

	t.Run("event details append at current status", func(t *testing.T) {
		record := createTestRecord(t, StatusInTransit)
		next, err := sm.ApplyPatch(record, ShipmentPatch{Event: &EventDetails{Location: "Doha"}})
		require.NoError(t, err)
		assert.Equal(t, StatusInTransit, next.Status)
		assert.Len(t, next.Events, len(record.Events)+1)
		assert.Equal(t, "Doha", next.Events[len(next.Events)-1].Location)
	})

	t.Run("status change goes through the state machine", func(t *testing.T) {
		record := createTestRecord(t, StatusDelivered)
		status := StatusInTransit
		_, err := sm.ApplyPatch(record, ShipmentPatch{Status: &status})
		assert.True(t, IsTransitionError(err, TerminalStateViolation))
	})

	t.Run("tracking id is immutable", func(t *testing.T) {
		record := createTestRecord(t, StatusPending)
		id := "PPS2024999"
		_, err := sm.ApplyPatch(record, ShipmentPatch{TrackingID: &id})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "trackingId", ve.Field)
	})

	t.Run("estimate frozen after delivery", func(t *testing.T) {
		record := createTestRecord(t, StatusDelivered)
		eta := testNow.AddDate(0, 0, 30)
		_, err := sm.ApplyPatch(record, ShipmentPatch{EstimatedDelivery: &eta})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "estimatedDelivery", ve.Field)
	})

	t.Run("required field cannot be blanked", func(t *testing.T) {
		record := createTestRecord(t, StatusPending)
		empty := ""
		_, err := sm.ApplyPatch(record, ShipmentPatch{Origin: &empty})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "origin", ve.Field)
	})
}

func TestCheckInvariants(t *testing.T) {
	t.Run("status must match latest event", func(t *testing.T) {
		record := createTestRecord(t, StatusInTransit)
		record.Status = StatusCustoms
		assert.Error(t, record.CheckInvariants())
	})

	t.Run("events must be ordered", func(t *testing.T) {
		record := createTestRecord(t, StatusInTransit)
		record.Events[1].Timestamp = testNow.Add(-time.Hour)
		assert.Error(t, record.CheckInvariants())
	})

	t.Run("empty events are accepted", func(t *testing.T) {
		record := createTestRecord(t, StatusPending)
		record.Events = []TimelineEvent{}
		assert.NoError(t, record.CheckInvariants())
	})
}

func TestClone(t *testing.T) {
	value := 100.0
	record := createTestRecord(t, StatusInTransit)
	record.DeclaredValue = &value

	clone := record.Clone()
	clone.Events[0].Location = "changed"
	*clone.DeclaredValue = 5

	assert.NotEqual(t, "changed", record.Events[0].Location)
	assert.Equal(t, 100.0, *record.DeclaredValue)
}
