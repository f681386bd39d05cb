package repository

import (
	"context"

	"snapintake/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CheckpointRepo is an append-only log of interview snapshots. Checkpoints
// are never updated or deleted here; they form the recovery log.
type CheckpointRepo interface {
	Append(ctx context.Context, checkpoint *model.Checkpoint) error
	ListByRecordID(ctx context.Context, recordID string) ([]*model.Checkpoint, error)
	LatestByRecordID(ctx context.Context, recordID string) (*model.Checkpoint, error)
}

type checkpointRepo struct {
	collection *mongo.Collection
}

func NewCheckpointRepo(db *mongo.Database) CheckpointRepo {
	return &checkpointRepo{
		collection: db.Collection("checkpoints"),
	}
}

func (r *checkpointRepo) Append(ctx context.Context, checkpoint *model.Checkpoint) error {
	if checkpoint.ID == "" {
		checkpoint.ID = uuid.New().String()
	}

	_, err := r.collection.InsertOne(ctx, checkpoint)
	return err
}

// ListByRecordID returns the record's checkpoints, newest first.
func (r *checkpointRepo) ListByRecordID(ctx context.Context, recordID string) ([]*model.Checkpoint, error) {
	cursor, err := r.collection.Find(ctx,
		map[string]interface{}{"recordId": recordID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var checkpoints []*model.Checkpoint
	if err := cursor.All(ctx, &checkpoints); err != nil {
		return nil, err
	}

	return checkpoints, nil
}

func (r *checkpointRepo) LatestByRecordID(ctx context.Context, recordID string) (*model.Checkpoint, error) {
	var checkpoint model.Checkpoint
	err := r.collection.FindOne(ctx,
		map[string]interface{}{"recordId": recordID},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&checkpoint)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &checkpoint, nil
}
