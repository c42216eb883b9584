package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/appetiteclub/kds/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoURL = "mongodb://localhost:27017"
	defaultDBName   = "kds"
	collectionName  = "tickets"
)

// TicketRepo archives closed tickets in MongoDB.
type TicketRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     logger.Logger
	config     *config.Config
}

func NewTicketRepo(cfg *config.Config, log logger.Logger) *TicketRepo {
	if log == nil {
		log = logger.NewNoop()
	}
	return &TicketRepo{
		logger: log.With("component", "ticket_repo"),
		config: cfg,
	}
}

func (r *TicketRepo) Start(ctx context.Context) error {
	mongoURL := r.config.GetStringOrDef("db.mongo.url", defaultMongoURL)
	dbName := r.config.GetStringOrDef("db.mongo.name", defaultDBName)

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection(collectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "closed_at", Value: -1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "closed_at", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("cannot create ticket indexes: %w", err)
	}

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, collectionName)
	return nil
}

func (r *TicketRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

// Save upserts by ticket id, so a replayed close overwrites the same document.
func (r *TicketRepo) Save(ctx context.Context, t *kitchen.ArchivedTicket) error {
	if r.collection == nil {
		return errors.New("ticket repo not started")
	}

	filter := bson.M{"_id": t.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, t, opts); err != nil {
		return fmt.Errorf("cannot save ticket: %w", err)
	}
	return nil
}

func (r *TicketRepo) List(ctx context.Context, filter kitchen.ArchiveFilter) ([]kitchen.ArchivedTicket, error) {
	if r.collection == nil {
		return nil, errors.New("ticket repo not started")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "closed_at", Value: -1}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := r.collection.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find tickets: %w", err)
	}
	defer cursor.Close(ctx)

	tickets := []kitchen.ArchivedTicket{}
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("cannot decode tickets: %w", err)
	}

	return tickets, nil
}

func buildQuery(filter kitchen.ArchiveFilter) bson.M {
	query := bson.M{}

	if filter.State != "" {
		query["state"] = filter.State
	}

	closedAt := bson.M{}
	if filter.From != nil {
		closedAt["$gte"] = *filter.From
	}
	if filter.To != nil {
		closedAt["$lt"] = *filter.To
	}
	if len(closedAt) > 0 {
		query["closed_at"] = closedAt
	}

	return query
}
