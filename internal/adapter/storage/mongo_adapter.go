package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

const schedulesCollection = "production_schedules"

// MongoAdapter stores each schedule as one document with its parts embedded,
// so a schedule and its parts are always written together.
type MongoAdapter struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ port.ScheduleRepository = (*MongoAdapter)(nil)

type scheduleDocument struct {
	ID            string         `bson:"_id"`
	ProductID     string         `bson:"product_id"`
	ProductName   string         `bson:"product_name"`
	ScheduledDate time.Time      `bson:"scheduled_date"`
	Quantity      int            `bson:"quantity"`
	Status        string         `bson:"status"`
	Version       int            `bson:"version"`
	CreatedAt     time.Time      `bson:"created_at"`
	UpdatedAt     *time.Time     `bson:"updated_at,omitempty"`
	Parts         []partDocument `bson:"parts"`
}

type partDocument struct {
	ID           string  `bson:"id"`
	Name         string  `bson:"name"`
	Measurements *string `bson:"measurements,omitempty"`
	Quantity     int     `bson:"quantity"`
}

// NewMongoAdapter connects to uri and verifies the connection.
func NewMongoAdapter(ctx context.Context, uri, dbName string) (*MongoAdapter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoAdapter{
		client: client,
		coll:   client.Database(dbName).Collection(schedulesCollection),
	}, nil
}

// EnsureIndexes creates the unique aggregation key index and the listing index.
func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_product_date"),
		},
		{
			Keys:    bson.D{{Key: "scheduled_date", Value: 1}, {Key: "product_name", Value: 1}},
			Options: options.Index().SetName("idx_date_product_name"),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (m *MongoAdapter) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoAdapter) FindByProductAndDate(ctx context.Context, productID string, date time.Time) (*domain.Schedule, error) {
	return m.findOne(ctx, bson.M{"product_id": productID, "scheduled_date": domain.Day(date)})
}

func (m *MongoAdapter) FindByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoAdapter) findOne(ctx context.Context, filter bson.M) (*domain.Schedule, error) {
	var doc scheduleDocument
	err := m.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	s := doc.toDomain()
	return &s, nil
}

func (m *MongoAdapter) Save(ctx context.Context, s *domain.Schedule) error {
	doc := newScheduleDocument(s)
	doc.Version = s.Version + 1

	if s.Version == 0 {
		_, err := m.coll.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return port.ErrDuplicateScheduleKey
		}
		if err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
	} else {
		result, err := m.coll.ReplaceOne(ctx, bson.M{"_id": s.ID, "version": s.Version}, doc)
		if err != nil {
			return fmt.Errorf("replace schedule: %w", err)
		}
		if result.MatchedCount == 0 {
			return port.ErrVersionConflict
		}
	}

	s.Version = doc.Version
	return nil
}

func (m *MongoAdapter) Delete(ctx context.Context, id string) (bool, error) {
	result, err := m.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoAdapter) Query(ctx context.Context, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	query := bson.M{}
	date := bson.M{}
	if filter.ExactDate != nil {
		date["$eq"] = *filter.ExactDate
	}
	if filter.DateFrom != nil {
		date["$gte"] = *filter.DateFrom
	}
	if filter.DateTo != nil {
		date["$lte"] = *filter.DateTo
	}
	if len(date) > 0 {
		query["scheduled_date"] = date
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "scheduled_date", Value: 1},
		{Key: "product_name", Value: 1},
		{Key: "_id", Value: 1},
	})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := m.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	var docs []scheduleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}

	out := make([]domain.Schedule, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}

func newScheduleDocument(s *domain.Schedule) scheduleDocument {
	doc := scheduleDocument{
		ID:            s.ID,
		ProductID:     s.ProductID,
		ProductName:   s.ProductName,
		ScheduledDate: domain.Day(s.ScheduledDate),
		Quantity:      s.Quantity,
		Status:        string(s.Status),
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Parts:         make([]partDocument, 0, len(s.Parts)),
	}
	for _, p := range s.Parts {
		doc.Parts = append(doc.Parts, partDocument{
			ID:           p.ID,
			Name:         p.Name,
			Measurements: p.Measurements,
			Quantity:     p.Quantity,
		})
	}
	return doc
}

func (d scheduleDocument) toDomain() domain.Schedule {
	s := domain.Schedule{
		ID:            d.ID,
		ProductID:     d.ProductID,
		ProductName:   d.ProductName,
		ScheduledDate: domain.Day(d.ScheduledDate.UTC()),
		Quantity:      d.Quantity,
		Status:        domain.ScheduleStatus(d.Status),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Parts:         make([]domain.ScheduledPart, 0, len(d.Parts)),
	}
	for _, p := range d.Parts {
		s.Parts = append(s.Parts, domain.ScheduledPart{
			ID:           p.ID,
			ScheduleID:   d.ID,
			Name:         p.Name,
			Measurements: p.Measurements,
			Quantity:     p.Quantity,
		})
	}
	return s
}
