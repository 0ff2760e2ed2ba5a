package domain

import "time"

// TimelineEvent is one recorded milestone. Events are append-only.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	StatusLabel string    `json:"statusLabel" bson:"statusLabel"`
	Location    string    `json:"location" bson:"location"`
	Description string    `json:"description" bson:"description"`
}

// Category resolves the event's label to a status
func (e TimelineEvent) Category() (Status, bool) {
	return CategoryOf(e.StatusLabel)
}

// EventDetails are the caller-supplied parts of a new timeline event
type EventDetails struct {
	StatusLabel string
	Location    string
	Description string
}

// DisplayEvent is a timeline event annotated for rendering
type DisplayEvent struct {
	TimelineEvent
	Status    Status `json:"status,omitempty"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// DeriveDisplayState marks every event completed except the last, which is
// current. Order is kept as given and the input is not modified.
func DeriveDisplayState(events []TimelineEvent) []DisplayEvent {
	out := make([]DisplayEvent, len(events))
	last := len(events) - 1
	for i, e := range events {
		status, _ := e.Category()
		out[i] = DisplayEvent{
			TimelineEvent: e,
			Status:        status,
			Completed:     i != last,
			Current:       i == last,
		}
	}
	return out
}

// StageState classifies an expected stage against a shipment's progress
type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StagePending   StageState = "pending"
)

// Stage is one expected step of a service type's journey
type Stage struct {
	Status Status     `json:"status"`
	Label  string     `json:"label"`
	State  StageState `json:"state"`
}

var (
	fullJourney = []Status{StatusPending, StatusInTransit, StatusCustoms, StatusOutForDelivery, StatusDelivered}
	landJourney = []Status{StatusPending, StatusInTransit, StatusOutForDelivery, StatusDelivered}
)

// ExpectedStages returns the ordered stages a shipment of the given service
// type normally passes through.
func ExpectedStages(serviceType ServiceType) []Status {
	src := fullJourney
	if serviceType == ServiceLandTransport {
		src = landJourney
	}
	out := make([]Status, len(src))
	copy(out, src)
	return out
}

// ClassifyStages marks each expected stage for the record's service type as
// completed, current or pending.
func ClassifyStages(record *ShipmentRecord) []Stage {
	expected := ExpectedStages(record.ServiceType)
	stages := make([]Stage, len(expected))

	reached := record.Status.rank()
	current := true
	switch record.Status {
	case StatusDelivered:
		current = false
	case StatusCancelled:
		current = false
		reached = furthestRank(record.Events)
	}

	for i, s := range expected {
		state := StagePending
		switch {
		case record.Status == StatusDelivered:
			state = StageCompleted
		case s.rank() < reached:
			state = StageCompleted
		case s.rank() == reached && current:
			state = StageCurrent
		case s.rank() == reached:
			state = StageCompleted
		}
		stages[i] = Stage{Status: s, Label: DisplayFor(s).Label, State: state}
	}
	return stages
}

func furthestRank(events []TimelineEvent) int {
	furthest := -1
	for _, e := range events {
		if status, ok := e.Category(); ok && status.rank() > furthest {
			furthest = status.rank()
		}
	}
	return furthest
}
