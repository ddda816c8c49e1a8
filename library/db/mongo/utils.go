package mongo

import (
	"context"

	"github.com/Laisky/errors/v2"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-forum/library/web"
)

// NotFound reports whether err means no document matched
func NotFound(err error) bool {
	return errors.Is(err, mongoLib.ErrNoDocuments)
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	return mongoLib.IsDuplicateKeyError(err)
}

// FindOne decodes the first document matching filter.
// No match is reported as web.ErrNotFound.
func FindOne[T any](ctx context.Context, col *mongoLib.Collection, filter any, what string) (*T, error) {
	doc := new(T)
	if err := col.FindOne(ctx, filter).Decode(doc); err != nil {
		if NotFound(err) {
			return nil, errors.Wrap(web.ErrNotFound, what)
		}

		return nil, errors.Wrapf(err, "find %s", what)
	}

	return doc, nil
}

// FindAll decodes every document matching filter
func FindAll[T any](ctx context.Context, col *mongoLib.Collection, filter any,
	what string, opts ...*options.FindOptions) ([]*T, error) {
	cur, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", what)
	}

	docs := []*T{}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", what)
	}

	return docs, nil
}
