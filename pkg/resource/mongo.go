package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/graphsync/pkg/observability"
)

// DefaultMongoDatabase is used when MongoConfig.Database is empty.
const DefaultMongoDatabase = "graphsync"

const mongoBackend = "mongo"

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI      string // mongodb:// or mongodb+srv:// URI
	Database string
}

// MongoStore is a Client backed by MongoDB. Each resource collection maps to
// a Mongo collection of the same name; ids are random UUIDs.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *log.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *log.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = DefaultMongoDatabase
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MongoStore{client: client, db: client.Database(database), logger: logger}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) FetchCollection(ctx context.Context, spec Spec) ([]Resource, error) {
	var out []Resource
	err := observability.ObserveStore(ctx, mongoBackend, "fetch", spec.Collection, func() error {
		cur, err := s.db.Collection(spec.Collection).Find(ctx, mongoFilter(spec),
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return fmt.Errorf("find %s: %w", spec.Collection, err)
		}
		if err := cur.All(ctx, &out); err != nil {
			return fmt.Errorf("decode %s: %w", spec.Collection, err)
		}
		return nil
	})
	return out, err
}

func (s *MongoStore) FetchOne(ctx context.Context, collection, id string) (Resource, error) {
	var out Resource
	err := observability.ObserveStore(ctx, mongoBackend, "get", collection, func() error {
		err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&out)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", collection, id, err)
		}
		return nil
	})
	return out, err
}

func (s *MongoStore) Create(ctx context.Context, r Resource) (Resource, error) {
	err := observability.ObserveStore(ctx, mongoBackend, "create", r.Collection, func() error {
		if r.Collection == "" {
			return fmt.Errorf("create without collection: %w", ErrInvalid)
		}
		r.ID = uuid.NewString()
		if _, err := s.db.Collection(r.Collection).InsertOne(ctx, r); err != nil {
			return fmt.Errorf("insert %s: %w", r.Collection, err)
		}
		s.logger.Debug("inserted resource", "collection", r.Collection, "id", r.ID)
		return nil
	})
	if err != nil {
		return Resource{}, err
	}
	return r, nil
}

func (s *MongoStore) Update(ctx context.Context, r Resource) (Resource, error) {
	err := observability.ObserveStore(ctx, mongoBackend, "update", r.Collection, func() error {
		res, err := s.db.Collection(r.Collection).ReplaceOne(ctx, bson.D{{Key: "_id", Value: r.ID}}, r)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", r.Collection, r.ID, err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		return nil
	})
	return r, err
}

func (s *MongoStore) Delete(ctx context.Context, r Resource) error {
	return observability.ObserveStore(ctx, mongoBackend, "delete", r.Collection, func() error {
		res, err := s.db.Collection(r.Collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: r.ID}})
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", r.Collection, r.ID, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%s/%s: %w", r.Collection, r.ID, ErrNotFound)
		}
		return nil
	})
}

// mongoFilter turns a spec's attribute equality filters into a query on the
// embedded attributes document. Keys are sorted for a deterministic filter.
func mongoFilter(spec Spec) bson.D {
	keys := make([]string, 0, len(spec.Query))
	for k := range spec.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filter := bson.D{}
	for _, k := range keys {
		filter = append(filter, bson.E{Key: "attributes." + k, Value: spec.Query[k]})
	}
	return filter
}

var _ Client = (*MongoStore)(nil)
