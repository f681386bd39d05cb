package repository

import (
	"context"
	"errors"
	"time"

	"snapintake/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateSession is returned by Insert when a record already exists for
// the session id. The lifecycle guard converts this into a re-fetch; it must
// never reach a caller above the guard.
var ErrDuplicateSession = errors.New("interview record already exists for session")

type InterviewRepo interface {
	GetBySessionID(ctx context.Context, sessionID string) (*model.InterviewRecord, error)
	Insert(ctx context.Context, record *model.InterviewRecord) error
	UpdateFields(ctx context.Context, sessionID string, fields map[string]interface{}) error
	MarkCompleted(ctx context.Context, sessionID string, summary *model.CompletionSummary, completedAt time.Time) error
	List(ctx context.Context) ([]*model.InterviewRecord, error)
}

type interviewRepo struct {
	collection *mongo.Collection
}

func NewInterviewRepo(db *mongo.Database) InterviewRepo {
	return &interviewRepo{
		collection: db.Collection("interviews"),
	}
}

// EnsureInterviewIndexes creates the unique sessionId index the lifecycle
// guard relies on. Must run before the server starts accepting writes.
func EnsureInterviewIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("interviews").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *interviewRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.InterviewRecord, error) {
	var record model.InterviewRecord
	err := r.collection.FindOne(ctx, map[string]interface{}{"sessionId": sessionID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Record not found
		}
		return nil, err
	}

	return &record, nil
}

func (r *interviewRepo) Insert(ctx context.Context, record *model.InterviewRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSession
		}
		return err
	}

	return nil
}

func (r *interviewRepo) UpdateFields(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	set := bson.M{"lastUpdated": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	_, err := r.collection.UpdateOne(ctx,
		map[string]interface{}{"sessionId": sessionID},
		bson.M{"$set": set})
	return err
}

func (r *interviewRepo) MarkCompleted(ctx context.Context, sessionID string, summary *model.CompletionSummary, completedAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		map[string]interface{}{"sessionId": sessionID},
		bson.M{"$set": bson.M{
			"status":      model.StatusCompleted,
			"completedAt": completedAt,
			"summary":     summary,
			"lastUpdated": completedAt,
		}})
	return err
}

func (r *interviewRepo) List(ctx context.Context) ([]*model.InterviewRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.InterviewRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
