package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-topics/internal/types"
)

// mongoRunDocument stores the run id as _id so the primary key enforces uniqueness.
type mongoRunDocument struct {
	ID string `bson:"_id"`

	types.RunDocument `bson:",inline"`
}

// MongoStore is a Store backed by a MongoDB collection.
type MongoStore struct {
	lifecycle
	cfg    Config
	logger *logrus.Logger
	now    func() time.Time

	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore creates an unconnected MongoDB store.
func NewMongoStore(cfg Config, logger *logrus.Logger) *MongoStore {
	return &MongoStore{
		cfg:    cfg,
		logger: logOrDiscard(logger),
		now:    time.Now,
	}
}

// Provider returns ProviderMongo.
func (s *MongoStore) Provider() Provider {
	return ProviderMongo
}

// Capabilities reports text search support through the collection's text index.
func (s *MongoStore) Capabilities() Capabilities {
	return Capabilities{FullTextSearch: true}
}

func (s *MongoStore) database() string {
	if s.cfg.MongoDatabase == "" {
		return DefaultDatabase
	}
	return s.cfg.MongoDatabase
}

// Connect opens the client, pings the primary and ensures indexes. Ping and index
// failures are logged as warnings.
func (s *MongoStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrStoreClosed
	}

	timeout := s.cfg.connectTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(s.cfg.MongoURI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return &BackendError{Op: "mongo connect", Cause: err}
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		s.logger.WithError(err).Warn("mongo ping failed, continuing")
	}

	s.client = client
	s.coll = client.Database(s.database()).Collection(s.cfg.collection())

	if _, err := s.coll.Indexes().CreateMany(ctx, mongoIndexes()); err != nil {
		s.logger.WithError(err).Warn("failed to ensure mongo indexes")
	}

	s.state = stateConnected
	s.logger.WithFields(logrus.Fields{
		"database":   s.database(),
		"collection": s.cfg.collection(),
	}).Info("connected to mongo")
	return nil
}

func mongoIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "runId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("runId_unique"),
		},
		{
			Keys:    bson.D{{Key: "generatedAt", Value: -1}},
			Options: options.Index().SetName("generatedAt_desc"),
		},
		{
			Keys: bson.D{
				{Key: "topics.category", Value: 1},
				{Key: "topics.difficulty", Value: 1},
			},
			Options: options.Index().SetName("topics_category_difficulty"),
		},
		{
			Keys: bson.D{
				{Key: "topics.title", Value: "text"},
				{Key: "topics.description", Value: "text"},
			},
			Options: options.Index().SetName("topics_text"),
		},
	}
}

// InsertRun stores doc with insertion metadata. A second insert of the same run id fails
// with *DuplicateRunIDError.
func (s *MongoStore) InsertRun(ctx context.Context, doc *types.RunDocument) (string, error) {
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	if err := ValidateDocument(doc); err != nil {
		return "", err
	}

	stamped := stampMetadata(doc, s.now())
	_, err := s.coll.InsertOne(ctx, mongoRunDocument{ID: stamped.RunID, RunDocument: *stamped})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", &DuplicateRunIDError{RunID: doc.RunID, Cause: err}
		}
		return "", &BackendError{Op: "mongo insert", Cause: err}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": doc.RunID,
		"topics": doc.TopicCount(),
	}).Info("stored run document")
	return doc.RunID, nil
}

// GetByRunID returns the run with runID, or nil when there is none.
func (s *MongoStore) GetByRunID(ctx context.Context, runID string) (*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}

	var row mongoRunDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: runID}}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &BackendError{Op: "mongo find", Cause: err}
	}
	return &row.RunDocument, nil
}

// GetRecent returns up to limit runs, newest first.
func (s *MongoStore) GetRecent(ctx context.Context, limit int) ([]*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	return s.find(ctx, bson.D{}, limitOrDefault(limit, DefaultRecentLimit))
}

// Search returns runs with at least one topic matching the query, newest first.
func (s *MongoStore) Search(ctx context.Context, query SearchQuery) ([]*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	return s.find(ctx, buildSearchFilter(query), limitOrDefault(query.Limit, DefaultSearchLimit))
}

func (s *MongoStore) find(ctx context.Context, filter bson.D, limit int) ([]*types.RunDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "generatedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, &BackendError{Op: "mongo find", Cause: err}
	}

	var rows []mongoRunDocument
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, &BackendError{Op: "mongo decode", Cause: err}
	}

	docs := make([]*types.RunDocument, len(rows))
	for i := range rows {
		docs[i] = &rows[i].RunDocument
	}
	return docs, nil
}

// buildSearchFilter matches documents where one topic satisfies every structured filter.
func buildSearchFilter(q SearchQuery) bson.D {
	filter := bson.D{}

	elem := bson.D{}
	if q.Category != "" {
		elem = append(elem, bson.E{Key: "category", Value: q.Category})
	}
	if q.Difficulty != "" {
		elem = append(elem, bson.E{Key: "difficulty", Value: q.Difficulty})
	}
	if len(elem) > 0 {
		filter = append(filter, bson.E{Key: "topics", Value: bson.D{{Key: "$elemMatch", Value: elem}}})
	}

	if q.Text != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q.Text}}})
	}
	return filter
}

type summaryRow struct {
	Topics int64      `bson:"topics"`
	Last   *time.Time `bson:"last"`
}

type distributionRow struct {
	ID    *string `bson:"_id"`
	Count int64   `bson:"count"`
}

func summaryPipeline() mongo.Pipeline {
	topicCount := bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$topics", bson.A{}}}}}}
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "topics", Value: bson.D{{Key: "$sum", Value: topicCount}}},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$generatedAt"}}},
		}}},
	}
}

func distributionPipeline(field string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$topics"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$topics." + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
}

// Stats runs the count and aggregation queries concurrently.
func (s *MongoStore) Stats(ctx context.Context) (*types.Stats, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}

	stats := types.NewStats()
	var summary []summaryRow
	var categories, difficulties []distributionRow

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.coll.CountDocuments(gCtx, bson.D{})
		if err != nil {
			return &BackendError{Op: "mongo count", Cause: err}
		}
		stats.TotalDocuments = n
		return nil
	})
	g.Go(func() error {
		return s.aggregate(gCtx, summaryPipeline(), &summary)
	})
	g.Go(func() error {
		return s.aggregate(gCtx, distributionPipeline("category"), &categories)
	})
	g.Go(func() error {
		return s.aggregate(gCtx, distributionPipeline("difficulty"), &difficulties)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(summary) > 0 {
		stats.TotalTopics = summary[0].Topics
		stats.LastGeneration = summary[0].Last
	}
	fillDistribution(stats.CategoriesDistribution, categories)
	fillDistribution(stats.DifficultiesDistribution, difficulties)
	return stats, nil
}

func (s *MongoStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return &BackendError{Op: "mongo aggregate", Cause: err}
	}
	if err := cursor.All(ctx, out); err != nil {
		return &BackendError{Op: "mongo aggregate decode", Cause: err}
	}
	return nil
}

func fillDistribution(dst map[string]int64, rows []distributionRow) {
	for _, row := range rows {
		if row.ID == nil {
			continue
		}
		dst[*row.ID] += row.Count
	}
}

// Close disconnects the client. Errors are logged.
func (s *MongoStore) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}
	if s.client != nil {
		if err := s.client.Disconnect(ctx); err != nil {
			s.logger.WithError(err).Warn("mongo disconnect failed")
		}
	}
	s.client = nil
	s.coll = nil
	s.state = stateClosed
}
