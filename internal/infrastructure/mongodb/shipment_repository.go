package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pan-pacific/tracking-service/internal/domain"
)

// CollectionName is the collection shipments are stored in
const CollectionName = "shipments"

type mongoCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Indexes() mongoIndexView
}

type mongoSingleResult interface {
	Decode(v interface{}) error
}

type mongoCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

type mongoIndexView interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

type pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type mongoCollectionWrapper struct {
	collection *mongo.Collection
}

func (w mongoCollectionWrapper) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return w.collection.UpdateOne(ctx, filter, update, opts...)
}

func (w mongoCollectionWrapper) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	return w.collection.BulkWrite(ctx, models, opts...)
}

func (w mongoCollectionWrapper) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) mongoSingleResult {
	return w.collection.FindOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (mongoCursor, error) {
	cursor, err := w.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (w mongoCollectionWrapper) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return w.collection.DeleteOne(ctx, filter, opts...)
}

func (w mongoCollectionWrapper) Indexes() mongoIndexView {
	return w.collection.Indexes()
}

// ShipmentRepository stores shipment records as documents keyed by id
type ShipmentRepository struct {
	collection mongoCollection
	client     pinger
}

// NewShipmentRepository creates a repository over db and ensures its indexes
func NewShipmentRepository(ctx context.Context, db *mongo.Database) (*ShipmentRepository, error) {
	repo := newShipmentRepository(mongoCollectionWrapper{collection: db.Collection(CollectionName)}, db.Client())

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := repo.ensureIndexes(indexCtx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newShipmentRepository(collection mongoCollection, client pinger) *ShipmentRepository {
	return &ShipmentRepository{collection: collection, client: client}
}

func (r *ShipmentRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "trackingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "serviceType", Value: 1}}},
		{Keys: bson.D{{Key: "createdDate", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create shipment indexes: %w", err)
	}
	return nil
}

// Save upserts record by id
func (r *ShipmentRepository) Save(ctx context.Context, record *domain.ShipmentRecord) error {
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"id": record.ID}, bson.M{"$set": record}, opts); err != nil {
		return fmt.Errorf("failed to save shipment %s: %w", record.ID, err)
	}
	return nil
}

// SaveAll upserts records in one ordered bulk write
func (r *ShipmentRepository) SaveAll(ctx context.Context, records []*domain.ShipmentRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(records))
	for i, record := range records {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": record.ID}).
			SetUpdate(bson.M{"$set": record}).
			SetUpsert(true)
	}
	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to save %d shipments: %w", len(records), err)
	}
	return nil
}

// FindByID returns the record with id, or nil
func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentRecord, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

// FindByTrackingID returns the record with trackingID, or nil
func (r *ShipmentRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.ShipmentRecord, error) {
	return r.findOne(ctx, bson.M{"trackingId": trackingID})
}

func (r *ShipmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.ShipmentRecord, error) {
	var record domain.ShipmentRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	normalise(&record)
	return &record, nil
}

// FindAll returns every record in insertion order
func (r *ShipmentRepository) FindAll(ctx context.Context) ([]*domain.ShipmentRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.ShipmentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.ShipmentRecord{}
	}
	for _, record := range records {
		normalise(record)
	}
	return records, nil
}

// Delete removes the record with id
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	return err
}

// Ping checks the connection to the primary
func (r *ShipmentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// normalise restores the shape the rest of the service expects: UTC times
// and a non-nil timeline.
func normalise(r *domain.ShipmentRecord) {
	r.CreatedDate = r.CreatedDate.UTC()
	r.LastUpdated = r.LastUpdated.UTC()
	r.EstimatedDelivery = r.EstimatedDelivery.UTC()
	if r.Events == nil {
		r.Events = []domain.TimelineEvent{}
	}
	for i := range r.Events {
		r.Events[i].Timestamp = r.Events[i].Timestamp.UTC()
	}
}
