package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/interview-topics/internal/types"
)

// FirestoreStore is a Store backed by a Firestore collection, one document per run
// keyed by run id.
type FirestoreStore struct {
	lifecycle
	cfg    Config
	logger *logrus.Logger
	now    func() time.Time

	client *firestore.Client
	coll   *firestore.CollectionRef
}

// NewFirestoreStore creates an unconnected Firestore store.
func NewFirestoreStore(cfg Config, logger *logrus.Logger) *FirestoreStore {
	return &FirestoreStore{
		cfg:    cfg,
		logger: logOrDiscard(logger),
		now:    time.Now,
	}
}

// Provider returns ProviderFirebase.
func (s *FirestoreStore) Provider() Provider {
	return ProviderFirebase
}

// Capabilities reports that text search is not available.
func (s *FirestoreStore) Capabilities() Capabilities {
	return Capabilities{FullTextSearch: false}
}

// clientOptions turns FIREBASE_CREDENTIALS_JSON into client options. A value starting
// with "{" is inline JSON, anything else is a file path. Empty means default credentials.
func clientOptions(credentials string) []option.ClientOption {
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return nil
	}
	if strings.HasPrefix(credentials, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentials))}
	}
	return []option.ClientOption{option.WithCredentialsFile(credentials)}
}

// Connect creates the client and reads at most one document as a probe. Probe failures
// are logged as warnings.
func (s *FirestoreStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrStoreClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.connectTimeout())
	defer cancel()

	client, err := firestore.NewClient(ctx, s.cfg.FirebaseProjectID, clientOptions(s.cfg.FirebaseCredentialsJSON)...)
	if err != nil {
		return &BackendError{Op: "firestore connect", Cause: err}
	}

	s.client = client
	s.coll = client.Collection(s.cfg.collection())

	if err := s.probe(ctx); err != nil {
		s.logger.WithError(err).Warn("firestore probe failed, continuing")
	}

	s.state = stateConnected
	s.logger.WithFields(logrus.Fields{
		"project":    s.cfg.FirebaseProjectID,
		"collection": s.cfg.collection(),
	}).Info("connected to firestore")
	return nil
}

func (s *FirestoreStore) probe(ctx context.Context) error {
	iter := s.coll.Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil
	}
	return err
}

// InsertRun creates the document named by the run id. Create fails atomically when the
// document exists, which is reported as *DuplicateRunIDError.
func (s *FirestoreStore) InsertRun(ctx context.Context, doc *types.RunDocument) (string, error) {
	if err := s.requireConnected(); err != nil {
		return "", err
	}
	if err := ValidateDocument(doc); err != nil {
		return "", err
	}

	stamped := stampMetadata(doc, s.now())
	if _, err := s.coll.Doc(stamped.RunID).Create(ctx, stamped); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return "", &DuplicateRunIDError{RunID: doc.RunID, Cause: err}
		}
		return "", &BackendError{Op: "firestore create", Cause: err}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": doc.RunID,
		"topics": doc.TopicCount(),
	}).Info("stored run document")
	return doc.RunID, nil
}

// GetByRunID returns the run with runID, or nil when there is none.
func (s *FirestoreStore) GetByRunID(ctx context.Context, runID string) (*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}

	snap, err := s.coll.Doc(runID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, &BackendError{Op: "firestore get", Cause: err}
	}

	var doc types.RunDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, &BackendError{Op: "firestore decode", Cause: err}
	}
	return &doc, nil
}

// GetRecent returns up to limit runs, newest first.
func (s *FirestoreStore) GetRecent(ctx context.Context, limit int) ([]*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}

	limit = limitOrDefault(limit, DefaultRecentLimit)
	query := s.coll.OrderBy("generatedAt", firestore.Desc).Limit(limit)

	var docs []*types.RunDocument
	err := scan(ctx, query, func(doc *types.RunDocument) bool {
		docs = append(docs, doc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Search scans runs newest first and keeps those with a topic matching the structured
// filters. Firestore cannot query inside arrays of maps, so matching happens here.
// The text filter is ignored.
func (s *FirestoreStore) Search(ctx context.Context, query SearchQuery) ([]*types.RunDocument, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if query.Text != "" {
		s.logger.WithField("query", query.Text).Warn("full-text search is not supported by firestore, ignoring text filter")
	}

	limit := limitOrDefault(query.Limit, DefaultSearchLimit)
	docs := make([]*types.RunDocument, 0)
	err := scan(ctx, s.coll.OrderBy("generatedAt", firestore.Desc), func(doc *types.RunDocument) bool {
		if matchesDocument(doc, query) {
			docs = append(docs, doc)
		}
		return len(docs) < limit
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Stats folds every stored run into the totals.
func (s *FirestoreStore) Stats(ctx context.Context) (*types.Stats, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}

	stats := types.NewStats()
	err := scan(ctx, s.coll.Query, func(doc *types.RunDocument) bool {
		foldStats(stats, doc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// scan decodes each result of query and passes it to visit until visit returns false.
func scan(ctx context.Context, query firestore.Query, visit func(*types.RunDocument) bool) error {
	iter := query.Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return &BackendError{Op: "firestore query", Cause: err}
		}

		var doc types.RunDocument
		if err := snap.DataTo(&doc); err != nil {
			return &BackendError{Op: "firestore decode", Cause: err}
		}
		if !visit(&doc) {
			return nil
		}
	}
}

// Close closes the client. Errors are logged.
func (s *FirestoreStore) Close(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.WithError(err).Warn("firestore close failed")
		}
	}
	s.client = nil
	s.coll = nil
	s.state = stateClosed
}
