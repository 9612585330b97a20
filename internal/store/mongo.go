package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores each collection as one document {_id: <collection>, records: [...]}
// in a single MongoDB collection, replaced with upsert on Save.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoCollection struct {
	ID      string   `bson:"_id"`
	Records []bson.D `bson:"records"`
}

// OpenMongo connects to uri and uses the hazard_records collection of database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background()) //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection("hazard_records"),
	}, nil
}

func (m *Mongo) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	var doc mongoCollection
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: collection}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return fromBSON(doc.Records)
}

func (m *Mongo) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	docs, err := toBSON(records)
	if err != nil {
		return fmt.Errorf("convert %s: %w", collection, err)
	}
	filter := bson.D{{Key: "_id", Value: collection}}
	replacement := mongoCollection{ID: collection, Records: docs}
	if _, err := m.coll.ReplaceOne(ctx, filter, replacement, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

// CheckReadiness pings the primary.
func (m *Mongo) CheckReadiness(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// toBSON parses JSON records as relaxed extended JSON so key order is kept.
func toBSON(records []json.RawMessage) ([]bson.D, error) {
	docs := make([]bson.D, len(records))
	for i, r := range records {
		var d bson.D
		if err := bson.UnmarshalExtJSON(r, false, &d); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		docs[i] = d
	}
	return docs, nil
}

func fromBSON(docs []bson.D) ([]json.RawMessage, error) {
	records := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		data, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = data
	}
	return records, nil
}
