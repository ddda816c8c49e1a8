package mongo

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ColCounters stores named sequences, one document per counter
const ColCounters = "counters"

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// NextSeq atomically increments the counter `name` and returns the new value
func (d *db) NextSeq(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("empty counter name")
	}

	doc := new(counterDoc)
	err := d.GetCol(ColCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(doc)
	if err != nil {
		return 0, errors.Wrapf(err, "increase counter %q", name)
	}

	return doc.Seq, nil
}

// EnsureIndexes creates the given indexes on colName.
// Creating an index that already exists with the same spec is a no-op on the server.
func (d *db) EnsureIndexes(ctx context.Context, colName string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}

	if _, err := d.GetCol(colName).Indexes().CreateMany(ctx, models); err != nil {
		return errors.Wrapf(err, "create indexes for %q", colName)
	}

	return nil
}
