package history

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resumerag/internal/config"
	"resumerag/internal/errors"
	"resumerag/internal/types"
)

const (
	resumeCollection    = "resume_history"
	interviewCollection = "interview_history"
)

// MongoStore keeps history in two MongoDB collections.
type MongoStore struct {
	client     *mongo.Client
	resumes    *mongo.Collection
	interviews *mongo.Collection
	timeout    time.Duration
	logger     *errors.Logger
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore connects, pings and ensures the user/createdAt indexes.
func NewMongoStore(ctx context.Context, cfg config.HistoryConfig, logger *errors.Logger) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to connect to mongodb", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to ping mongodb", err)
	}

	database := cfg.Database
	if database == "" {
		database = "resumerag"
	}
	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		resumes:    db.Collection(resumeCollection),
		interviews: db.Collection(interviewCollection),
		timeout:    timeout,
		logger:     logger,
	}

	index := mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}}
	for _, coll := range []*mongo.Collection{s.resumes, s.interviews} {
		if _, err := coll.Indexes().CreateOne(connectCtx, index); err != nil {
			logger.Warn("Failed to create history index", "collection", coll.Name(), "error", err.Error())
		}
	}

	logger.Info("History store connected", "driver", "mongo", "database", database)
	return s, nil
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) SaveResume(ctx context.Context, rec *types.ResumeHistory) error {
	stampResume(rec)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.resumes.InsertOne(ctx, rec); err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to save resume history", err)
	}
	return nil
}

func (s *MongoStore) SaveInterview(ctx context.Context, rec *types.InterviewHistory) error {
	stampInterview(rec)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.interviews.InsertOne(ctx, rec); err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to save interview history", err)
	}
	return nil
}

func (s *MongoStore) ListResume(ctx context.Context, user string, limit int) ([]types.ResumeHistory, error) {
	out := make([]types.ResumeHistory, 0)
	if err := s.find(ctx, s.resumes, user, limit, &out); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list resume history", err)
	}
	return out, nil
}

func (s *MongoStore) ListInterview(ctx context.Context, user string, limit int) ([]types.InterviewHistory, error) {
	out := make([]types.InterviewHistory, 0)
	if err := s.find(ctx, s.interviews, user, limit, &out); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to list interview history", err)
	}
	return out, nil
}

func (s *MongoStore) find(ctx context.Context, coll *mongo.Collection, user string, limit int, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(normalizeLimit(limit)))
	cursor, err := coll.Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func (s *MongoStore) IncrementAnswers(ctx context.Context, user, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.interviews.UpdateOne(ctx,
		bson.M{"_id": id, "user": user},
		bson.M{"$inc": bson.M{"answersSubmitted": 1}})
	if err != nil {
		return errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to update interview history", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CountResume(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.resumes.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to count resume history", err)
	}
	return n, nil
}

func (s *MongoStore) CountQuestions(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	size := bson.D{{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$questions", bson.A{}}}}}}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: size}}},
		}}},
	}
	cursor, err := s.interviews.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to count interview questions", err)
	}

	var totals []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return 0, errors.NewIOError(errors.ErrCodeHistoryFailed, "failed to count interview questions", err)
	}
	if len(totals) == 0 {
		return 0, nil
	}
	return totals[0].Total, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
