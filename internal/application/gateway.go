package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// ChangeKind names the mutation that produced a Change
type ChangeKind string

const (
	ChangeCreated      ChangeKind = "created"
	ChangeUpdated      ChangeKind = "updated"
	ChangeTransitioned ChangeKind = "transitioned"
	ChangeDeleted      ChangeKind = "deleted"
	ChangeImported     ChangeKind = "imported"
)

// Change is delivered to subscribers after a mutation commits. Records are
// copies of the affected records; for deletes, the state before removal.
type Change struct {
	Kind    ChangeKind
	From    domain.Status
	Records []*domain.ShipmentRecord
}

// TrackingIDs returns the tracking IDs touched by the change
func (c Change) TrackingIDs() []string {
	ids := make([]string, len(c.Records))
	for i, r := range c.Records {
		ids[i] = r.TrackingID
	}
	return ids
}

// MutationGateway owns the authoritative shipment collection. Every write
// is persisted to the repository before it becomes visible; a failed
// repository call leaves the collection untouched.
type MutationGateway struct {
	mu      sync.RWMutex
	records []*domain.ShipmentRecord
	byID    map[string]*domain.ShipmentRecord

	repo      domain.ShipmentRepository
	machine   *domain.StateMachine
	newID     func() string
	generator *domain.TrackingIDGenerator

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// GatewayOption customises a MutationGateway
type GatewayOption func(*MutationGateway)

// WithGatewayClock sets the clock used for timestamps
func WithGatewayClock(clock domain.Clock) GatewayOption {
	return func(g *MutationGateway) { g.machine = domain.NewStateMachine(clock) }
}

// WithRecordIDs sets the internal id generator
func WithRecordIDs(fn func() string) GatewayOption {
	return func(g *MutationGateway) { g.newID = fn }
}

// WithTrackingIDGenerator issues tracking IDs for drafts that carry none
func WithTrackingIDGenerator(gen *domain.TrackingIDGenerator) GatewayOption {
	return func(g *MutationGateway) { g.generator = gen }
}

// NewMutationGateway creates an empty gateway over repo. Call Load to
// populate it from the repository.
func NewMutationGateway(repo domain.ShipmentRepository, opts ...GatewayOption) *MutationGateway {
	g := &MutationGateway{
		byID:    make(map[string]*domain.ShipmentRecord),
		repo:    repo,
		machine: domain.NewStateMachine(nil),
		newID:   uuid.NewString,
		subs:    make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Load replaces the in-memory collection with the repository contents
func (g *MutationGateway) Load(ctx context.Context) error {
	records, err := g.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load shipments: %w", err)
	}

	byID := make(map[string]*domain.ShipmentRecord, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.Events == nil {
			r.Events = []domain.TimelineEvent{}
		}
		if _, dup := seen[r.TrackingID]; dup {
			return &domain.DuplicateTrackingIDError{TrackingID: r.TrackingID}
		}
		seen[r.TrackingID] = struct{}{}
		byID[r.ID] = r
	}

	g.mu.Lock()
	g.records = records
	g.byID = byID
	g.mu.Unlock()
	return nil
}

// Subscribe registers fn to receive every committed change. fn runs on the
// mutating goroutine after the write lock is released.
func (g *MutationGateway) Subscribe(fn func(Change)) (unsubscribe func()) {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.subMu.Unlock()

	return func() {
		g.subMu.Lock()
		delete(g.subs, id)
		g.subMu.Unlock()
	}
}

func (g *MutationGateway) notify(change Change) {
	g.subMu.Lock()
	subs := make([]func(Change), 0, len(g.subs))
	for id := 0; id < g.nextSub; id++ {
		if fn, ok := g.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	g.subMu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

// Snapshot returns copies of every record in insertion order
func (g *MutationGateway) Snapshot() []*domain.ShipmentRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return cloneAll(g.records)
}

// Len returns the number of records held
func (g *MutationGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.records)
}

// Get returns a copy of the record with id
func (g *MutationGateway) Get(id string) (*domain.ShipmentRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{ID: id}
	}
	return r.Clone(), nil
}

// FindByTrackingID returns a copy of the record with trackingID, or nil
func (g *MutationGateway) FindByTrackingID(_ context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	trackingID = domain.NormaliseTrackingID(trackingID)
	for _, r := range g.records {
		if domain.NormaliseTrackingID(r.TrackingID) == trackingID {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

// Create validates draft, stores a new pending record and returns a copy
func (g *MutationGateway) Create(ctx context.Context, draft domain.ShipmentDraft) (*domain.ShipmentRecord, error) {
	g.mu.Lock()

	if draft.TrackingID == "" && g.generator != nil {
		draft.TrackingID = g.generator.Next(g.trackingIDsLocked())
	}
	draft.TrackingID = domain.NormaliseTrackingID(draft.TrackingID)
	if g.hasTrackingIDLocked(draft.TrackingID) {
		g.mu.Unlock()
		return nil, &domain.DuplicateTrackingIDError{TrackingID: draft.TrackingID}
	}

	record, err := g.machine.NewShipmentRecord(g.newID(), draft)
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	if err := g.repo.Save(ctx, record); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	g.records = append(g.records, record)
	g.byID[record.ID] = record
	out := record.Clone()
	g.mu.Unlock()

	g.notify(Change{Kind: ChangeCreated, Records: []*domain.ShipmentRecord{record.Clone()}})
	return out, nil
}

// Update merges patch onto the record with id
func (g *MutationGateway) Update(ctx context.Context, id string, patch domain.ShipmentPatch) (*domain.ShipmentRecord, error) {
	return g.replace(ctx, id, func(current *domain.ShipmentRecord) (*domain.ShipmentRecord, ChangeKind, error) {
		next, err := g.machine.ApplyPatch(current, patch)
		kind := ChangeUpdated
		if patch.HasTransition() {
			kind = ChangeTransitioned
		}
		return next, kind, err
	})
}

// Transition moves the record with id to target and appends one event
func (g *MutationGateway) Transition(ctx context.Context, id string, target domain.Status, details domain.EventDetails) (*domain.ShipmentRecord, error) {
	return g.replace(ctx, id, func(current *domain.ShipmentRecord) (*domain.ShipmentRecord, ChangeKind, error) {
		next, err := g.machine.Transition(current, target, details)
		return next, ChangeTransitioned, err
	})
}

func (g *MutationGateway) replace(
	ctx context.Context,
	id string,
	mutate func(*domain.ShipmentRecord) (*domain.ShipmentRecord, ChangeKind, error),
) (*domain.ShipmentRecord, error) {
	g.mu.Lock()

	current, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return nil, &domain.NotFoundError{ID: id}
	}

	next, kind, err := mutate(current)
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	if err := g.repo.Save(ctx, next); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}

	for i, r := range g.records {
		if r.ID == id {
			g.records[i] = next
			break
		}
	}
	g.byID[id] = next
	from := current.Status
	out := next.Clone()
	g.mu.Unlock()

	g.notify(Change{Kind: kind, From: from, Records: []*domain.ShipmentRecord{next.Clone()}})
	return out, nil
}

// Delete removes the record with id and returns its final state. A missing
// id changes nothing and returns *domain.NotFoundError.
func (g *MutationGateway) Delete(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	g.mu.Lock()

	current, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return nil, &domain.NotFoundError{ID: id}
	}
	if err := g.repo.Delete(ctx, id); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("failed to delete shipment: %w", err)
	}

	for i, r := range g.records {
		if r.ID == id {
			g.records = append(g.records[:i:i], g.records[i+1:]...)
			break
		}
	}
	delete(g.byID, id)
	g.mu.Unlock()

	g.notify(Change{Kind: ChangeDeleted, From: current.Status, Records: []*domain.ShipmentRecord{current.Clone()}})
	return current.Clone(), nil
}

// Import appends records as new entries with normalised tracking IDs. The
// batch is rejected as a whole when any tracking ID is already held or
// repeats within the batch. Internal ids that collide are reissued.
func (g *MutationGateway) Import(ctx context.Context, records []*domain.ShipmentRecord) ([]*domain.ShipmentRecord, error) {
	g.mu.Lock()

	seen := make(map[string]struct{}, len(records))
	ids := make(map[string]struct{}, len(records))
	batch := make([]*domain.ShipmentRecord, len(records))
	for i, r := range records {
		trackingID := domain.NormaliseTrackingID(r.TrackingID)
		if _, dup := seen[trackingID]; dup || g.hasTrackingIDLocked(trackingID) {
			g.mu.Unlock()
			return nil, &domain.DuplicateTrackingIDError{TrackingID: trackingID}
		}
		seen[trackingID] = struct{}{}

		c := r.Clone()
		c.TrackingID = trackingID
		_, held := g.byID[c.ID]
		_, repeated := ids[c.ID]
		if c.ID == "" || held || repeated {
			c.ID = g.newID()
		}
		ids[c.ID] = struct{}{}
		batch[i] = c
	}

	if len(batch) > 0 {
		if err := g.repo.SaveAll(ctx, batch); err != nil {
			g.mu.Unlock()
			return nil, fmt.Errorf("failed to save imported shipments: %w", err)
		}
	}

	for _, r := range batch {
		g.records = append(g.records, r)
		g.byID[r.ID] = r
	}
	out := cloneAll(batch)
	g.mu.Unlock()

	if len(batch) > 0 {
		g.notify(Change{Kind: ChangeImported, Records: cloneAll(batch)})
	}
	return out, nil
}

func (g *MutationGateway) hasTrackingIDLocked(trackingID string) bool {
	for _, r := range g.records {
		if domain.NormaliseTrackingID(r.TrackingID) == trackingID {
			return true
		}
	}
	return false
}

func (g *MutationGateway) trackingIDsLocked() []string {
	ids := make([]string, len(g.records))
	for i, r := range g.records {
		ids[i] = r.TrackingID
	}
	return ids
}

func cloneAll(records []*domain.ShipmentRecord) []*domain.ShipmentRecord {
	out := make([]*domain.ShipmentRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
