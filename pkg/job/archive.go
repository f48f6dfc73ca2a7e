package job

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/posterforge/posterforge/pkg/errors"
)

// Archive writes finished jobs to MongoDB for history queries after
// the live store has reaped them. Documents expire via a TTL index on
// completed_at, so the archive is self-pruning.
type Archive struct {
	coll   *mongo.Collection
	logger *log.Logger
}

// NewArchive ensures the TTL index and returns the archive. A zero
// retention disables expiry.
func NewArchive(ctx context.Context, coll *mongo.Collection, retention time.Duration, logger *log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if retention > 0 {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "completed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "creating archive TTL index")
		}
	}
	return &Archive{coll: coll, logger: logger}, nil
}

// Put upserts a terminal job. Non-terminal jobs are ignored; the
// archive only holds history.
func (a *Archive) Put(ctx context.Context, j *Job) error {
	if !j.Status.Terminal() {
		return nil
	}
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": j.ID}, j, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "archiving job")
	}
	return nil
}

// Get loads one archived job.
func (a *Archive) Get(ctx context.Context, id string) (*Job, error) {
	var j Job
	err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&j)
	if err == mongo.ErrNoDocuments {
		return nil, NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "loading archived job")
	}
	return &j, nil
}

// Recent returns up to limit archived jobs, newest first.
func (a *Archive) Recent(ctx context.Context, limit int64) ([]*Job, error) {
	cur, err := a.coll.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "completed_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "querying archive")
	}
	defer cur.Close(ctx)

	var jobs []*Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "decoding archived jobs")
	}
	return jobs, nil
}
