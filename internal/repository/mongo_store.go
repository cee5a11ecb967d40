package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideahub/internal/metrics"
	"ideahub/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore returns a Store over a MongoDB database and makes sure its indexes
// exist. The client must have been created with NewBSONRegistry so decimals round-trip.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (Store, error) {
	s := &mongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *mongoStore) Backend() string { return "mongo" }

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"profiles": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		"ideas": {
			{Keys: bson.D{{Key: "submitter_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: 1}}},
		},
		"evaluations": {
			{Keys: bson.D{{Key: "evaluator_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "idea_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// RunInTx requires a replica set, which every hosted MongoDB deployment provides
func (s *mongoStore) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *mongoStore) collection(name ModelName) (*mongo.Collection, schema, error) {
	sc, err := lookup(name)
	if err != nil {
		return nil, schema{}, err
	}
	return s.db.Collection(sc.table), sc, nil
}

// toBSON renames the id field onto Mongo's _id
func toBSON(filter Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[bsonField(k)] = v
	}
	return out
}

func bsonField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

func (s *mongoStore) Find(ctx context.Context, name ModelName, filter Filter, order *OrderBy, dest any) error {
	defer metrics.ObserveStore(s.Backend(), string(name), "find", time.Now())

	coll, sc, err := s.collection(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := sc.checkOrder(order); err != nil {
		return err
	}
	if err := checkList(name, dest); err != nil {
		return err
	}

	opts := options.Find()
	if order != nil {
		dir := 1
		if order.Direction == Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: bsonField(order.Field), Value: dir}})
	}
	cursor, err := coll.Find(ctx, toBSON(filter), opts)
	if err != nil {
		return translateMongo(fmt.Errorf("find %s: %w", name, err))
	}
	if err := cursor.All(ctx, dest); err != nil {
		return translateMongo(fmt.Errorf("decode %s: %w", name, err))
	}
	return nil
}

func (s *mongoStore) FindOne(ctx context.Context, name ModelName, filter Filter, dest any) error {
	defer metrics.ObserveStore(s.Backend(), string(name), "find_one", time.Now())

	coll, sc, err := s.collection(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := checkOne(name, dest); err != nil {
		return err
	}
	if err := coll.FindOne(ctx, toBSON(filter)).Decode(dest); err != nil {
		return translateMongo(fmt.Errorf("find one %s: %w", name, err))
	}
	return nil
}

func (s *mongoStore) Count(ctx context.Context, name ModelName, filter Filter) (int64, error) {
	defer metrics.ObserveStore(s.Backend(), string(name), "count", time.Now())

	coll, sc, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	if err := sc.checkFilter(filter); err != nil {
		return 0, err
	}
	total, err := coll.CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, translateMongo(fmt.Errorf("count %s: %w", name, err))
	}
	return total, nil
}

func (s *mongoStore) Create(ctx context.Context, name ModelName, record any) error {
	defer metrics.ObserveStore(s.Backend(), string(name), "create", time.Now())

	coll, _, err := s.collection(name)
	if err != nil {
		return err
	}
	if err := checkOne(name, record); err != nil {
		return err
	}
	if st, ok := record.(model.Stampable); ok {
		st.Stamp(time.Now().UTC())
	}
	if _, err := coll.InsertOne(ctx, record); err != nil {
		return translateMongo(fmt.Errorf("create %s: %w", name, err))
	}
	return nil
}

func (s *mongoStore) Update(ctx context.Context, name ModelName, filter Filter, changes map[string]any, dest any) error {
	defer metrics.ObserveStore(s.Backend(), string(name), "update", time.Now())

	coll, sc, err := s.collection(name)
	if err != nil {
		return err
	}
	if err := sc.checkFilter(filter); err != nil {
		return err
	}
	if err := sc.checkChanges(changes); err != nil {
		return err
	}
	if err := checkOne(name, dest); err != nil {
		return err
	}

	set := bson.M{}
	for k, v := range changes {
		set[k] = v
	}
	if sc.fields["updated_at"] {
		set["updated_at"] = time.Now().UTC()
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, toBSON(filter), bson.M{"$set": set}, opts).Decode(dest); err != nil {
		return translateMongo(fmt.Errorf("update %s: %w", name, err))
	}
	return nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translateMongo(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
